package pet

import (
	"github.com/petfx/server/internal/core/ecs"
	"github.com/petfx/server/internal/engine/modifier"
	"github.com/petfx/server/internal/scripting"
)

// Outcome is what the host reports back after applying damage.
type Outcome struct {
	Applied float64
	Killed  bool
}

// DamageApplier applies a final damage number to a target. The host owns
// health and death; the pet layer only learns whether the hit killed.
type DamageApplier interface {
	ApplyDamage(attacker, target ecs.EntityID, amount float64, kind string) Outcome
}

// StatProvider supplies the owner's base damage from equipment and stats,
// and the star power tier (0..3) that unlocks enhanced ability behavior.
type StatProvider interface {
	BaseDamage(owner ecs.EntityID) float64
	StarPowerTier(owner ecs.EntityID) int
}

// World answers the spatial and health queries abilities need. Entity
// representation stays with the host.
type World interface {
	Alive(id ecs.EntityID) bool
	NearestHostile(owner ecs.EntityID) (ecs.EntityID, bool)
	HostilesNear(owner ecs.EntityID, radius float64) []ecs.EntityID
	HealthFraction(id ecs.EntityID) float64
}

// Formulas turns a pet level into power and cooldown numbers.
// *scripting.Engine implements it.
type Formulas interface {
	StatMultiplier(level int) float64
	AdjustedCooldown(baseSeconds float64, level int) float64
}

// ScriptHost evaluates scripted passive contributions.
// *scripting.Engine implements it.
type ScriptHost interface {
	Contributions(fn string, hc scripting.HitContext) ([]modifier.Contribution, error)
}

// DefaultFormulas is the built-in level curve used when no Lua engine is
// configured.
type DefaultFormulas struct{}

func (DefaultFormulas) StatMultiplier(level int) float64 {
	return scripting.DefaultStatMultiplier(level)
}

func (DefaultFormulas) AdjustedCooldown(base float64, level int) float64 {
	return scripting.DefaultAdjustedCooldown(base, level)
}
