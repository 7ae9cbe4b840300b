package pet

import (
	"errors"

	"github.com/petfx/server/internal/core/clock"
	"github.com/petfx/server/internal/core/ecs"
	"github.com/petfx/server/internal/core/event"
	"github.com/petfx/server/internal/engine"
	"github.com/petfx/server/internal/engine/sched"
	"github.com/petfx/server/internal/engine/slot"
	"github.com/petfx/server/internal/engine/timed"
	"go.uber.org/zap"
)

var (
	ErrNotEquipped = errors.New("no pet equipped")
	ErrNoUltimate  = errors.New("pet has no ultimate")
	ErrNoTarget    = errors.New("no target in range")
	ErrNoStacks    = errors.New("no stacks to consume")
	ErrUnknownPet  = errors.New("unknown pet")
)

// Deps is everything an ability may touch. It is built once by the
// Manager and shared by every ability instance.
type Deps struct {
	Engine   *engine.Engine
	World    World
	Damage   DamageApplier
	Stats    StatProvider
	Formulas Formulas
	Scripts  ScriptHost // nil disables scripted passives
	Log      *zap.Logger

	combat *Combat
}

func (d *Deps) Now() clock.Tick           { return d.Engine.Clock.Now() }
func (d *Deps) Sched() *sched.Scheduler   { return d.Engine.Scheduler }
func (d *Deps) Registry() *timed.Registry { return d.Engine.Registry }
func (d *Deps) Slots() *slot.Runtime      { return d.Engine.Runtime }
func (d *Deps) Combat() *Combat           { return d.combat }

// Seconds converts a duration in seconds to ticks, at least one tick for
// any positive value.
func (d *Deps) Seconds(s float64) int64 { return d.Engine.Clock.Seconds(s) }

func (d *Deps) feedback(kind event.FeedbackKind, owner, subject ecs.EntityID, ability string, value float64) {
	event.Emit(d.Engine.Bus, event.Feedback{
		Tick:    d.Now(),
		Kind:    kind,
		Owner:   owner,
		Subject: subject,
		Ability: ability,
		Value:   value,
	})
}
