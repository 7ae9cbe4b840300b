package system

import (
	"github.com/petfx/server/internal/core/clock"
	"github.com/petfx/server/internal/core/ecs"
	coresys "github.com/petfx/server/internal/core/system"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end.
// Every registered Removable, the pet manager included, sees the id before
// it is recycled. Phase 6 (Cleanup).
type CleanupSystem struct {
	world *ecs.World
}

func NewCleanupSystem(world *ecs.World) *CleanupSystem {
	return &CleanupSystem{world: world}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ clock.Tick) {
	s.world.FlushDestroyQueue()
}
