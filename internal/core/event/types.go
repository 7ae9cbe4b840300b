package event

import (
	"github.com/petfx/server/internal/core/clock"
	"github.com/petfx/server/internal/core/ecs"
)

// FeedbackKind names a presentation cue. The engine never waits on these.
type FeedbackKind string

const (
	FeedbackMarkApplied      FeedbackKind = "markApplied"
	FeedbackMarkFaded        FeedbackKind = "markFaded"
	FeedbackAbilityCharging  FeedbackKind = "abilityCharging"
	FeedbackAbilityActivated FeedbackKind = "abilityActivated"
	FeedbackOnCooldown       FeedbackKind = "onCooldown"
	FeedbackImpact           FeedbackKind = "impact"
	FeedbackStacksChanged    FeedbackKind = "stacksChanged"
	FeedbackDetonation       FeedbackKind = "detonation"
	FeedbackChannelEnded     FeedbackKind = "channelEnded"
	FeedbackEquipped         FeedbackKind = "equipped"
	FeedbackUnequipped       FeedbackKind = "unequipped"
)

// Feedback is a fire-and-forget cue for the presentation layer.
type Feedback struct {
	Tick    clock.Tick
	Kind    FeedbackKind
	Owner   ecs.EntityID
	Subject ecs.EntityID
	Ability string
	Value   float64
}

// AbilityActivated is emitted after a successful activation.
type AbilityActivated struct {
	Tick       clock.Tick
	Owner      ecs.EntityID
	Ability    string
	Cooldown   int64
	Superseded bool
}

// ActivationDenied is emitted when an activation is refused.
type ActivationDenied struct {
	Tick      clock.Tick
	Owner     ecs.EntityID
	Ability   string
	Reason    string
	Remaining int64
}

// DamageDealt is emitted for every strike resolved through the pipeline.
type DamageDealt struct {
	Tick     clock.Tick
	Attacker ecs.EntityID
	Target   ecs.EntityID
	Raw      float64
	Final    float64
	Kind     string
	Killed   bool
}

type OwnerRemoved struct {
	Tick  clock.Tick
	Owner ecs.EntityID
}

type SubjectRemoved struct {
	Tick    clock.Tick
	Subject ecs.EntityID
}
