package sched

import (
	"github.com/petfx/server/internal/core/clock"
	"github.com/petfx/server/internal/core/ecs"
)

// Func is the body of a scheduled task. Returning an error ends the task.
type Func func(t *Task) error

// Task is the handle for one unit of deferred or repeating work. Handles are
// owned by whoever scheduled them; the scheduler only keeps weak indexes by
// owner and subject for bulk teardown.
type Task struct {
	id      uint64
	seq     uint64
	owner   ecs.EntityID
	subject ecs.EntityID
	label   string

	next      clock.Tick
	period    int64
	remaining int64 // -1 = until cancelled
	deadline  clock.Tick
	until     func() bool
	fn        Func

	fired     int
	cancelled bool
	done      bool
	running   bool
	rearm     int64

	onFinish []func(*Task)

	s     *Scheduler
	index int // position in the queue heap, -1 when not queued
}

func (t *Task) ID() uint64            { return t.id }
func (t *Task) Owner() ecs.EntityID   { return t.owner }
func (t *Task) Subject() ecs.EntityID { return t.subject }
func (t *Task) Label() string         { return t.label }
func (t *Task) Fired() int            { return t.fired }
func (t *Task) NextFire() clock.Tick  { return t.next }
func (t *Task) Cancelled() bool       { return t.cancelled }

// Done reports whether the task will never fire again, for any reason.
func (t *Task) Done() bool { return t.done }

// Cancel stops the task. Safe to call repeatedly and from inside the task's
// own callback; the running callback completes normally.
func (t *Task) Cancel() bool {
	if t == nil || t.s == nil {
		return false
	}
	return t.s.Cancel(t)
}

// Rearm, called from inside the callback, schedules one more firing after
// delay ticks (minimum 1) instead of the task's normal continuation.
func (t *Task) Rearm(delay int64) {
	if t.running {
		t.rearm = max(delay, 1)
	}
}

// OnFinish registers fn to run once when the task ends by completion,
// failure or cancellation. On an already finished task fn runs immediately.
func (t *Task) OnFinish(fn func(*Task)) {
	if t.done {
		fn(t)
		return
	}
	t.onFinish = append(t.onFinish, fn)
}

// Option tweaks a task at scheduling time.
type Option func(*Task)

// About tags the task with the entity it acts on, so removing that entity
// cancels the task.
func About(subject ecs.EntityID) Option {
	return func(t *Task) { t.subject = subject }
}

// Times limits a repeating task to n firings.
func Times(n int) Option {
	return func(t *Task) {
		if n > 0 {
			t.remaining = int64(n)
		}
	}
}

// ForTicks bounds the task's lifetime: no firing happens more than n ticks
// after scheduling.
func ForTicks(n int64) Option {
	return func(t *Task) {
		if n > 0 {
			t.deadline = clock.Add(t.s.clk.Now(), n)
		}
	}
}

// Until ends the task before the first firing at which pred reports true.
func Until(pred func() bool) Option {
	return func(t *Task) { t.until = pred }
}

// After overrides the first firing delay of a repeating task.
func After(delay int64) Option {
	return func(t *Task) {
		t.next = clock.Add(t.s.clk.Now(), max(delay, 1))
	}
}

// Label names the task in logs.
func Label(name string) Option {
	return func(t *Task) { t.label = name }
}

// taskQueue is a min-heap on (next, seq).
type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].next != q[j].next {
		return q[i].next < q[j].next
	}
	return q[i].seq < q[j].seq
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*Task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
