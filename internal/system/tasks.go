package system

import (
	"github.com/petfx/server/internal/core/clock"
	coresys "github.com/petfx/server/internal/core/system"
	"github.com/petfx/server/internal/engine/sched"
	"github.com/petfx/server/internal/engine/timed"
)

// TaskSystem fires every scheduled task due at the current tick. Phase 2
// (Update); register it before the pet systems so tasks see the same tick
// state the abilities left behind last frame.
type TaskSystem struct {
	sched *sched.Scheduler
}

func NewTaskSystem(s *sched.Scheduler) *TaskSystem { return &TaskSystem{sched: s} }

func (s *TaskSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *TaskSystem) Update(now clock.Tick) { s.sched.Tick(now) }

// SweepSystem drops expired timed entries. Reads already treat expired
// entries as absent; this only bounds memory. Phase 3 (PostUpdate), usually
// wrapped in coresys.Every.
type SweepSystem struct {
	reg *timed.Registry
}

func NewSweepSystem(reg *timed.Registry) *SweepSystem { return &SweepSystem{reg: reg} }

func (s *SweepSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *SweepSystem) Update(_ clock.Tick) { s.reg.SweepExpired() }
