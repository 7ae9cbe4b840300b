package system

import (
	"github.com/petfx/server/internal/core/clock"
	"github.com/petfx/server/internal/core/event"
	coresys "github.com/petfx/server/internal/core/system"
)

// EventDispatchSystem delivers the events emitted during the previous tick.
// Phase 1 (PreUpdate).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventDispatchSystem) Update(_ clock.Tick) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
