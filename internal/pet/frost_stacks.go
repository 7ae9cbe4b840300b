package pet

import (
	"errors"
	"math"

	"github.com/petfx/server/internal/core/ecs"
	"github.com/petfx/server/internal/core/event"
	"github.com/petfx/server/internal/data"
	"github.com/petfx/server/internal/engine/modifier"
	"github.com/petfx/server/internal/engine/timed"
)

// frostStacks puts a frost stack on every target the owner hits. Each
// stack multiplies later hits on that target; reaching the cap detonates
// the stacks for a frost strike.
type frostStacks struct {
	base
	maxStacks float64
	ttl       int64
	perStack  float64
	detonate  float64
}

func newFrostStacks(d *Deps, def *data.AbilityDef) (Ability, error) {
	a := &frostStacks{base: newBase(d, def)}
	a.maxStacks = a.param("max_stacks", 5)
	if a.maxStacks < 1 {
		return nil, errors.New("max_stacks must be at least 1")
	}
	a.ttl = a.seconds("stack_duration", 4)
	a.perStack = a.param("per_stack", 0.04)
	a.detonate = a.param("detonate_ratio", 1.5)
	return a, nil
}

func (a *frostStacks) stackKind() timed.Kind { return a.kind("frost") }

func (a *frostStacks) OnDamageDealt(p *Pet, target ecs.EntityID, amount float64, kind string) {
	if kind == KindFrost || kind == KindReflect || amount <= 0 {
		return
	}
	reg := a.d.Registry()
	n := reg.Put(p.Owner, target, a.stackKind(), 1, a.ttl, timed.SumCapped(a.maxStacks))
	a.d.feedback(event.FeedbackStacksChanged, p.Owner, target, a.def.ID, n)
	if n < a.maxStacks || !a.d.World.Alive(target) {
		return
	}
	reg.Consume(p.Owner, target, a.stackKind())
	a.d.feedback(event.FeedbackDetonation, p.Owner, target, a.def.ID, n)
	a.d.Combat().PetStrike(p, target, a.detonate, KindFrost)
}

func (a *frostStacks) Outgoing(p *Pet, h modifier.Hit, out []modifier.Contribution) []modifier.Contribution {
	n := a.d.Registry().Value(p.Owner, h.Target, a.stackKind())
	if n <= 0 {
		return out
	}
	return append(out, modifier.Factor(a.def.ID, math.Pow(1+a.perStack, n)))
}
