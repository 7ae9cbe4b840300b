package sim

import (
	"sort"

	"github.com/petfx/server/internal/core/ecs"
	"github.com/petfx/server/internal/pet"
	"go.uber.org/zap"
)

// Position is a tile coordinate in the arena.
type Position struct {
	X, Y int32
}

type Health struct {
	HP  float64
	Max float64
}

// Fighter marks a pet owner and carries the stats the pet layer reads.
type Fighter struct {
	BaseDamage float64
	StarPower  int
	Kills      int
}

// Hostile tags an entity pets may target.
type Hostile struct{}

// Host is a headless world of owners and hostiles with hit points. It
// implements the pet layer's World, DamageApplier and StatProvider, and
// ecs.Removable for its own stores. Death is deferred: a killed entity is
// queued on the ecs.World and released by the cleanup system at tick end.
type Host struct {
	world    *ecs.World
	pos      *ecs.PtrComponentStore[Position]
	health   *ecs.PtrComponentStore[Health]
	fighters *ecs.PtrComponentStore[Fighter]
	hostiles *ecs.PtrComponentStore[Hostile]
	grid     *Grid
	log      *zap.Logger

	kills int
}

var (
	_ pet.World         = (*Host)(nil)
	_ pet.DamageApplier = (*Host)(nil)
	_ pet.StatProvider  = (*Host)(nil)
	_ ecs.Removable     = (*Host)(nil)
)

func NewHost(world *ecs.World, log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	return &Host{
		world:    world,
		pos:      ecs.NewPtrComponentStore[Position](),
		health:   ecs.NewPtrComponentStore[Health](),
		fighters: ecs.NewPtrComponentStore[Fighter](),
		hostiles: ecs.NewPtrComponentStore[Hostile](),
		grid:     NewGrid(),
		log:      log,
	}
}

func (h *Host) spawn(x, y int32, hp float64) ecs.EntityID {
	id := h.world.CreateEntity()
	h.pos.Set(id, &Position{X: x, Y: y})
	h.health.Set(id, &Health{HP: hp, Max: hp})
	h.grid.Add(id, x, y)
	return id
}

// SpawnOwner creates a pet owner at (x, y).
func (h *Host) SpawnOwner(x, y int32, hp, baseDamage float64, starPower int) ecs.EntityID {
	id := h.spawn(x, y, hp)
	h.fighters.Set(id, &Fighter{BaseDamage: baseDamage, StarPower: starPower})
	return id
}

// SpawnHostile creates a hostile at (x, y).
func (h *Host) SpawnHostile(x, y int32, hp float64) ecs.EntityID {
	id := h.spawn(x, y, hp)
	h.hostiles.Set(id, &Hostile{})
	return id
}

// MoveTo relocates id, keeping the grid in step.
func (h *Host) MoveTo(id ecs.EntityID, x, y int32) {
	p, ok := h.pos.Get(id)
	if !ok {
		return
	}
	h.grid.Move(id, p.X, p.Y, x, y)
	p.X, p.Y = x, y
}

// StepToward moves id one tile toward other on each axis.
func (h *Host) StepToward(id, other ecs.EntityID) {
	p, ok := h.pos.Get(id)
	q, ok2 := h.pos.Get(other)
	if !ok || !ok2 {
		return
	}
	h.MoveTo(id, p.X+sign(q.X-p.X), p.Y+sign(q.Y-p.Y))
}

// Remove implements ecs.Removable.
func (h *Host) Remove(id ecs.EntityID) {
	if p, ok := h.pos.Get(id); ok {
		h.grid.Remove(id, p.X, p.Y)
	}
	h.pos.Remove(id)
	h.health.Remove(id)
	h.fighters.Remove(id)
	h.hostiles.Remove(id)
}

func (h *Host) ApplyDamage(attacker, target ecs.EntityID, amount float64, kind string) pet.Outcome {
	hp, ok := h.health.Get(target)
	if !ok || hp.HP <= 0 || amount <= 0 {
		return pet.Outcome{}
	}
	applied := min(amount, hp.HP)
	hp.HP -= applied
	if hp.HP > 0 {
		return pet.Outcome{Applied: applied}
	}
	h.world.MarkForDestruction(target)
	h.kills++
	if f, ok := h.fighters.Get(attacker); ok {
		f.Kills++
	}
	h.log.Debug("entity killed",
		zap.Stringer("attacker", attacker),
		zap.Stringer("target", target),
		zap.String("kind", kind),
	)
	return pet.Outcome{Applied: applied, Killed: true}
}

func (h *Host) BaseDamage(owner ecs.EntityID) float64 {
	if f, ok := h.fighters.Get(owner); ok {
		return f.BaseDamage
	}
	return 0
}

func (h *Host) StarPowerTier(owner ecs.EntityID) int {
	if f, ok := h.fighters.Get(owner); ok {
		return f.StarPower
	}
	return 0
}

func (h *Host) Alive(id ecs.EntityID) bool {
	hp, ok := h.health.Get(id)
	return ok && hp.HP > 0 && h.world.Alive(id)
}

// NearestHostile picks the closest live hostile by Chebyshev distance,
// lowest id on ties.
func (h *Host) NearestHostile(owner ecs.EntityID) (ecs.EntityID, bool) {
	op, ok := h.pos.Get(owner)
	if !ok {
		return ecs.NoEntity, false
	}
	best, bestDist := ecs.NoEntity, int32(-1)
	ecs.Each2(h.hostiles, h.pos, func(id ecs.EntityID, _ *Hostile, p *Position) {
		if !h.Alive(id) {
			return
		}
		d := chebyshev(op, p)
		if bestDist < 0 || d < bestDist || (d == bestDist && id < best) {
			best, bestDist = id, d
		}
	})
	return best, bestDist >= 0
}

// HostilesNear returns live hostiles within radius tiles of owner, sorted
// by id.
func (h *Host) HostilesNear(owner ecs.EntityID, radius float64) []ecs.EntityID {
	op, ok := h.pos.Get(owner)
	if !ok {
		return nil
	}
	var out []ecs.EntityID
	for _, id := range h.grid.Nearby(op.X, op.Y, radius) {
		if !h.hostiles.Has(id) || !h.Alive(id) {
			continue
		}
		if p, ok := h.pos.Get(id); ok && float64(chebyshev(op, p)) <= radius {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OwnersNear returns live owners within radius tiles of id, sorted by id.
func (h *Host) OwnersNear(id ecs.EntityID, radius float64) []ecs.EntityID {
	op, ok := h.pos.Get(id)
	if !ok {
		return nil
	}
	var out []ecs.EntityID
	for _, o := range h.grid.Nearby(op.X, op.Y, radius) {
		if !h.fighters.Has(o) || !h.Alive(o) {
			continue
		}
		if p, ok := h.pos.Get(o); ok && float64(chebyshev(op, p)) <= radius {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (h *Host) HealthFraction(id ecs.EntityID) float64 {
	hp, ok := h.health.Get(id)
	if !ok || hp.Max <= 0 {
		return 0
	}
	return max(hp.HP, 0) / hp.Max
}

// Hostiles returns every live hostile, sorted by id.
func (h *Host) Hostiles() []ecs.EntityID {
	var out []ecs.EntityID
	h.hostiles.Each(func(id ecs.EntityID, _ *Hostile) {
		if h.Alive(id) {
			out = append(out, id)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Kills counts entities killed since start.
func (h *Host) Kills() int { return h.kills }

func (h *Host) Fighter(id ecs.EntityID) (*Fighter, bool) { return h.fighters.Get(id) }

func chebyshev(a, b *Position) int32 {
	return max(abs(a.X-b.X), abs(a.Y-b.Y))
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
