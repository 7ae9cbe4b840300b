package system

import (
	"github.com/petfx/server/internal/core/clock"
	coresys "github.com/petfx/server/internal/core/system"
	"github.com/petfx/server/internal/engine"
	"go.uber.org/zap"
)

// InputSystem drains engine calls queued by host goroutines so they run on
// the tick thread. Phase 0 (Input).
type InputSystem struct {
	queue      *engine.CommandQueue
	maxPerTick int
	log        *zap.Logger
	handled    uint64
}

func NewInputSystem(queue *engine.CommandQueue, maxPerTick int, log *zap.Logger) *InputSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &InputSystem{queue: queue, maxPerTick: maxPerTick, log: log}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(now clock.Tick) {
	n := s.queue.Drain(s.maxPerTick)
	s.handled += uint64(n)
	if n > 0 && s.queue.Len() > 0 {
		s.log.Debug("command backlog",
			zap.Uint64("tick", uint64(now)),
			zap.Int("ran", n),
			zap.Int("queued", s.queue.Len()),
		)
	}
}

// Handled counts commands run since start.
func (s *InputSystem) Handled() uint64 { return s.handled }
