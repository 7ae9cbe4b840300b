package sched

import "github.com/petfx/server/internal/core/ecs"

// Phase is one stage of a multi-phase action such as charge, execute or
// aftermath. A phase starts Delay ticks after the previous phase's last run
// and runs Repeat times (at least once), Period ticks apart.
type Phase struct {
	Name   string
	Delay  int64
	Period int64
	Repeat int
	Run    func(st *Step) error
}

// Step is passed to a phase body.
type Step struct {
	Task      *Task
	Phase     string
	Index     int // phase index
	Iteration int // 0-based run within the phase
	Last      bool

	skip bool
}

// Next ends the current phase after this run; the sequence continues with
// the following phase.
func (st *Step) Next() { st.skip = true }

// Stop ends the whole sequence after this run.
func (st *Step) Stop() { st.Task.Cancel() }

// Sequence runs phases back to back behind a single handle. Cancelling the
// handle stops every phase that has not started yet and every remaining
// repeat of the current one.
func (s *Scheduler) Sequence(owner ecs.EntityID, phases []Phase, opts ...Option) *Task {
	if len(phases) == 0 {
		t := s.newTask(owner, nil)
		t.done = true
		return t
	}
	var (
		idx  int
		iter int
	)
	fn := func(t *Task) error {
		ph := phases[idx]
		repeat := max(ph.Repeat, 1)
		st := &Step{
			Task:      t,
			Phase:     ph.Name,
			Index:     idx,
			Iteration: iter,
			Last:      iter == repeat-1,
		}
		if ph.Run != nil {
			if err := ph.Run(st); err != nil {
				return err
			}
		}
		if t.cancelled {
			return nil
		}
		iter++
		if iter < repeat && !st.skip {
			t.Rearm(ph.Period)
			return nil
		}
		idx++
		iter = 0
		if idx < len(phases) {
			t.Rearm(phases[idx].Delay)
		}
		return nil
	}
	return s.Once(owner, phases[0].Delay, fn, opts...)
}
