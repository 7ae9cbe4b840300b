package system

import (
	"sort"

	"github.com/petfx/server/internal/core/clock"
)

// Runner executes systems in phase order each tick. Systems sharing a phase
// run in registration order.
type Runner struct {
	systems []System
	sorted  bool
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

func (r *Runner) Tick(now clock.Tick) {
	r.ensureSorted()
	for _, s := range r.systems {
		s.Update(now)
	}
}

// TickPhase runs only the systems of one phase.
func (r *Runner) TickPhase(phase Phase, now clock.Tick) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(now)
		}
	}
}

func (r *Runner) Len() int { return len(r.systems) }

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}

// Every wraps a system so it only runs on ticks divisible by interval.
// An interval below 2 runs every tick.
func Every(interval int64, s System) System {
	if interval < 2 {
		return s
	}
	return &everySystem{interval: uint64(interval), inner: s}
}

type everySystem struct {
	interval uint64
	inner    System
}

func (e *everySystem) Phase() Phase { return e.inner.Phase() }

func (e *everySystem) Update(now clock.Tick) {
	if uint64(now)%e.interval == 0 {
		e.inner.Update(now)
	}
}
