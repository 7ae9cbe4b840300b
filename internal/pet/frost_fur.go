package pet

import (
	"github.com/petfx/server/internal/core/ecs"
	"github.com/petfx/server/internal/core/event"
	"github.com/petfx/server/internal/data"
	"github.com/petfx/server/internal/engine/modifier"
	"github.com/petfx/server/internal/engine/timed"
)

// frostFur reduces incoming damage, reflects a share of it back to the
// attacker and leaves a slow entry on the attacker for the host to read.
type frostFur struct {
	base
	reduction float64
	reflect   float64
	slow      int64
}

func newFrostFur(d *Deps, def *data.AbilityDef) (Ability, error) {
	a := &frostFur{base: newBase(d, def)}
	a.reduction = a.param("reduction", 0.2)
	a.reflect = a.param("reflect", 0.05)
	a.slow = a.seconds("slow", 1)
	return a, nil
}

// SlowKind is the timed kind of the slow entry, keyed (owner, attacker).
func (a *frostFur) SlowKind() timed.Kind { return a.kind("slow") }

func (a *frostFur) Incoming(_ *Pet, _ modifier.Hit, out []modifier.Contribution) []modifier.Contribution {
	if a.reduction <= 0 {
		return out
	}
	return append(out, modifier.Percent(a.def.ID, -a.reduction))
}

func (a *frostFur) OnDamageReceived(p *Pet, attacker ecs.EntityID, amount float64, _ string) {
	if amount <= 0 || attacker.IsZero() || !a.d.World.Alive(attacker) {
		return
	}
	a.d.Registry().Put(p.Owner, attacker, a.SlowKind(), 1, a.slow, timed.Replace())
	a.d.feedback(event.FeedbackMarkApplied, p.Owner, attacker, a.def.ID, float64(a.slow))
	if a.reflect > 0 {
		a.d.Combat().Strike(p.Owner, attacker, amount*a.reflect, KindReflect)
	}
}
