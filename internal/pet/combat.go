package pet

import (
	"github.com/petfx/server/internal/core/ecs"
	"github.com/petfx/server/internal/core/event"
	"github.com/petfx/server/internal/engine/modifier"
	"go.uber.org/zap"
)

// Damage kinds used by the built-in abilities. Hosts may pass any string.
const (
	KindMelee   = "melee"
	KindPet     = "pet"
	KindFrost   = "frost"
	KindCombo   = "combo"
	KindReflect = "reflect"
)

// maxStrikeDepth bounds strikes started from inside strike hooks.
const maxStrikeDepth = 4

// Combat resolves hits through the modifier pipeline, hands the final
// number to the host and routes the outcome back to pet hooks.
type Combat struct {
	d     *Deps
	m     *Manager
	depth int
}

// Resolve computes the final damage for a hit without applying it.
func (c *Combat) Resolve(attacker, target ecs.EntityID, raw float64, kind string) modifier.Result {
	res := c.d.Engine.Pipeline.Resolve(modifier.Hit{
		Tick:     c.d.Now(),
		Attacker: attacker,
		Target:   target,
		Raw:      raw,
		Kind:     kind,
	})
	res.Final = max(res.Final, 0)
	return res
}

// Strike resolves and applies one hit. Hooks fire in this order: the
// attacker's dealt hooks, the attacker's kill hooks when the hit killed,
// then the target's received hooks. Reflected damage does not trigger
// received hooks again.
func (c *Combat) Strike(attacker, target ecs.EntityID, raw float64, kind string) Outcome {
	if c.depth >= maxStrikeDepth {
		c.d.Log.Warn("strike depth exceeded",
			zap.Stringer("attacker", attacker),
			zap.Stringer("target", target),
			zap.String("kind", kind),
		)
		return Outcome{}
	}
	c.depth++
	defer func() { c.depth-- }()

	res := c.Resolve(attacker, target, raw, kind)
	out := c.d.Damage.ApplyDamage(attacker, target, res.Final, kind)

	event.Emit(c.d.Engine.Bus, event.DamageDealt{
		Tick:     c.d.Now(),
		Attacker: attacker,
		Target:   target,
		Raw:      raw,
		Final:    res.Final,
		Kind:     kind,
		Killed:   out.Killed,
	})
	if res.Breakdown.Overridden || len(res.Contributions) > 0 {
		c.d.Log.Debug("strike resolved",
			zap.Stringer("attacker", attacker),
			zap.Stringer("target", target),
			zap.Float64("raw", raw),
			zap.Float64("final", res.Final),
			zap.Int("contributions", len(res.Contributions)),
		)
	}

	if p, ok := c.m.Equipped(attacker); ok {
		for _, a := range p.abilities() {
			if l, ok := a.(DamageDealtListener); ok {
				c.m.safely(p, a, "damage_dealt", func() { l.OnDamageDealt(p, target, out.Applied, kind) })
			}
		}
		if out.Killed {
			for _, a := range p.abilities() {
				if l, ok := a.(KillListener); ok {
					c.m.safely(p, a, "kill", func() { l.OnKill(p, target) })
				}
			}
		}
	}
	if kind != KindReflect {
		if p, ok := c.m.Equipped(target); ok {
			for _, a := range p.abilities() {
				if l, ok := a.(DamageReceivedListener); ok {
					c.m.safely(p, a, "damage_received", func() { l.OnDamageReceived(p, attacker, out.Applied, kind) })
				}
			}
		}
	}
	return out
}

// PetStrike is a hit dealt by the owner's pet: base damage scaled by ratio
// and the pet's stat multiplier.
func (c *Combat) PetStrike(p *Pet, target ecs.EntityID, ratio float64, kind string) Outcome {
	raw := c.d.Stats.BaseDamage(p.Owner) * ratio * p.Multiplier
	return c.Strike(p.Owner, target, raw, kind)
}
