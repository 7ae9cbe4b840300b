package pet

import (
	"errors"

	"github.com/petfx/server/internal/core/ecs"
	"github.com/petfx/server/internal/core/event"
	"github.com/petfx/server/internal/data"
	"github.com/petfx/server/internal/engine/timed"
)

// comboBurst banks a combo stack on the owner for every landed hit and
// detonates the whole bank on activation.
type comboBurst struct {
	base
	maxStacks float64
	ttl       int64
	perStack  float64
}

func newComboBurst(d *Deps, def *data.AbilityDef) (Ability, error) {
	a := &comboBurst{base: newBase(d, def)}
	a.maxStacks = a.param("max_stacks", 5)
	if a.maxStacks < 1 {
		return nil, errors.New("max_stacks must be at least 1")
	}
	a.ttl = a.seconds("stack_duration", 6)
	a.perStack = a.param("per_stack", 0.6)
	return a, nil
}

func (a *comboBurst) stackKind() timed.Kind { return a.kind("combo") }

// Stacks returns owner's banked combo stacks.
func (a *comboBurst) Stacks(owner ecs.EntityID) float64 {
	return a.d.Registry().Value(owner, owner, a.stackKind())
}

func (a *comboBurst) OnDamageDealt(p *Pet, _ ecs.EntityID, amount float64, kind string) {
	if kind == KindCombo || kind == KindReflect || amount <= 0 {
		return
	}
	n := a.d.Registry().Put(p.Owner, p.Owner, a.stackKind(), 1, a.ttl, timed.IncrementCapped(a.maxStacks))
	a.d.feedback(event.FeedbackStacksChanged, p.Owner, p.Owner, a.def.ID, n)
}

func (a *comboBurst) CanAutoActivate(p *Pet) bool {
	return a.Stacks(p.Owner) >= a.maxStacks
}

// Activate checks the bank before touching the slot, so an empty bank is
// refused without starting a cooldown.
func (a *comboBurst) Activate(p *Pet) error {
	if a.Stacks(p.Owner) <= 0 {
		return ErrNoStacks
	}
	target, ok := a.d.World.NearestHostile(p.Owner)
	if !ok {
		return ErrNoTarget
	}
	if _, err := a.claim(p); err != nil {
		return err
	}
	n, _ := a.d.Registry().Consume(p.Owner, p.Owner, a.stackKind())
	a.d.feedback(event.FeedbackDetonation, p.Owner, target, a.def.ID, n)
	a.d.Combat().PetStrike(p, target, a.perStack*n, KindCombo)
	return nil
}
