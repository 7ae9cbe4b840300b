package system

import "github.com/petfx/server/internal/core/clock"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain host command queue
	PhasePreUpdate               // 1: deliver last tick's events
	PhaseUpdate                  // 2: scheduled tasks, pet passives/ultimates
	PhasePostUpdate              // 3: timed state sweep
	PhaseOutput                  // 4: presentation flush
	PhasePersist                 // 5: journal flush
	PhaseCleanup                 // 6: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(now clock.Tick)
}
