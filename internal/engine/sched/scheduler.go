package sched

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"

	"github.com/petfx/server/internal/core/clock"
	"github.com/petfx/server/internal/core/ecs"
	"go.uber.org/zap"
)

// Scheduler runs one-shot and repeating callbacks on the tick thread.
//
// Within a tick, due tasks fire in (fire tick, registration order). Work
// scheduled during a tick never fires in that same tick. Not safe for
// concurrent use; every call must come from the game loop.
type Scheduler struct {
	clk   clock.Source
	log   *zap.Logger
	queue taskQueue

	nextID    uint64
	nextSeq   uint64
	bySubject map[ecs.EntityID]map[uint64]*Task
	byOwner   map[ecs.EntityID]map[uint64]*Task
	live      int
	failures  uint64
}

func New(clk clock.Source, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		clk:       clk,
		log:       log,
		queue:     make(taskQueue, 0, 128),
		bySubject: make(map[ecs.EntityID]map[uint64]*Task),
		byOwner:   make(map[ecs.EntityID]map[uint64]*Task),
	}
}

// Once runs fn a single time, delay ticks from now. A delay of 0 runs on the
// next tick.
func (s *Scheduler) Once(owner ecs.EntityID, delay int64, fn Func, opts ...Option) *Task {
	t := s.newTask(owner, fn)
	t.next = clock.Add(s.clk.Now(), max(delay, 1))
	for _, o := range opts {
		o(t)
	}
	return s.enqueue(t)
}

// Repeating runs fn every period ticks, first at now+period, until the task
// is cancelled or one of its budgets (Times, ForTicks, Until) runs out.
func (s *Scheduler) Repeating(owner ecs.EntityID, period int64, fn Func, opts ...Option) *Task {
	period = max(period, 1)
	t := s.newTask(owner, fn)
	t.period = period
	t.next = clock.Add(s.clk.Now(), period)
	for _, o := range opts {
		o(t)
	}
	return s.enqueue(t)
}

func (s *Scheduler) newTask(owner ecs.EntityID, fn Func) *Task {
	s.nextID++
	return &Task{
		id:        s.nextID,
		owner:     owner,
		remaining: -1,
		rearm:     -1,
		fn:        fn,
		s:         s,
		index:     -1,
	}
}

func (s *Scheduler) enqueue(t *Task) *Task {
	s.nextSeq++
	t.seq = s.nextSeq
	s.index(t)
	s.live++
	heap.Push(&s.queue, t)
	return t
}

func (s *Scheduler) index(t *Task) {
	if !t.owner.IsZero() {
		m := s.byOwner[t.owner]
		if m == nil {
			m = make(map[uint64]*Task, 4)
			s.byOwner[t.owner] = m
		}
		m[t.id] = t
	}
	if !t.subject.IsZero() {
		m := s.bySubject[t.subject]
		if m == nil {
			m = make(map[uint64]*Task, 4)
			s.bySubject[t.subject] = m
		}
		m[t.id] = t
	}
}

func (s *Scheduler) unindex(t *Task) {
	if m := s.byOwner[t.owner]; m != nil {
		delete(m, t.id)
		if len(m) == 0 {
			delete(s.byOwner, t.owner)
		}
	}
	if m := s.bySubject[t.subject]; m != nil {
		delete(m, t.id)
		if len(m) == 0 {
			delete(s.bySubject, t.subject)
		}
	}
}

// Cancel stops t. It is idempotent and returns true only for the call that
// actually cancelled the task.
func (s *Scheduler) Cancel(t *Task) bool {
	if t == nil || t.done || t.cancelled {
		return false
	}
	t.cancelled = true
	if t.index >= 0 {
		heap.Remove(&s.queue, t.index)
	}
	if !t.running {
		s.finish(t)
	}
	return true
}

// CancelAllFor cancels every outstanding task created by owner.
func (s *Scheduler) CancelAllFor(owner ecs.EntityID) int {
	return s.cancelSet(s.byOwner[owner])
}

// CancelAllAbout cancels every outstanding task tagged About(subject).
func (s *Scheduler) CancelAllAbout(subject ecs.EntityID) int {
	return s.cancelSet(s.bySubject[subject])
}

func (s *Scheduler) cancelSet(m map[uint64]*Task) int {
	if len(m) == 0 {
		return 0
	}
	tasks := make([]*Task, 0, len(m))
	for _, t := range m {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].seq < tasks[j].seq })
	n := 0
	for _, t := range tasks {
		if s.Cancel(t) {
			n++
		}
	}
	return n
}

// Pending returns the number of tasks that may still fire.
func (s *Scheduler) Pending() int { return s.live }

// PendingFor returns the number of live tasks created by owner.
func (s *Scheduler) PendingFor(owner ecs.EntityID) int { return len(s.byOwner[owner]) }

// PendingAbout returns the number of live tasks tagged with subject.
func (s *Scheduler) PendingAbout(subject ecs.EntityID) int { return len(s.bySubject[subject]) }

// Failures returns how many callbacks have failed since start.
func (s *Scheduler) Failures() uint64 { return s.failures }

// Tick fires every task due at or before now.
func (s *Scheduler) Tick(now clock.Tick) int {
	fired := 0
	for len(s.queue) > 0 && s.queue[0].next <= now {
		t := heap.Pop(&s.queue).(*Task)
		if s.run(t, now) {
			fired++
		}
	}
	return fired
}

func (s *Scheduler) run(t *Task, now clock.Tick) bool {
	if t.until != nil && t.until() {
		s.finish(t)
		return false
	}
	if t.deadline != 0 && now > t.deadline {
		s.finish(t)
		return false
	}

	t.running = true
	t.rearm = -1
	err := s.invoke(t)
	t.running = false
	t.fired++

	if err != nil {
		s.failures++
		s.log.Warn("scheduled task failed",
			zap.Uint64("task", t.id),
			zap.String("label", t.label),
			zap.Stringer("owner", t.owner),
			zap.Error(err),
		)
		s.finish(t)
		return true
	}
	if t.cancelled {
		s.finish(t)
		return true
	}

	var next clock.Tick
	switch {
	case t.rearm >= 0:
		next = clock.Add(now, t.rearm)
	case t.period > 0:
		if t.remaining > 0 {
			t.remaining--
		}
		if t.remaining == 0 {
			s.finish(t)
			return true
		}
		next = max(clock.Add(t.next, t.period), now+1)
	default:
		s.finish(t)
		return true
	}
	if t.deadline != 0 && next > t.deadline {
		s.finish(t)
		return true
	}
	t.next = next
	heap.Push(&s.queue, t)
	return true
}

// invoke runs the callback, turning a panic into an error.
func (s *Scheduler) invoke(t *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if t.fn == nil {
		return errors.New("nil task func")
	}
	return t.fn(t)
}

func (s *Scheduler) finish(t *Task) {
	if t.done {
		return
	}
	t.done = true
	s.live--
	s.unindex(t)
	hooks := t.onFinish
	t.onFinish = nil
	for _, fn := range hooks {
		s.callHook(t, fn)
	}
}

func (s *Scheduler) callHook(t *Task, fn func(*Task)) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("task finish hook panic",
				zap.Uint64("task", t.id),
				zap.String("label", t.label),
				zap.Any("panic", r),
			)
		}
	}()
	fn(t)
}
