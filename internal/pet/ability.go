package pet

import (
	"errors"

	"github.com/petfx/server/internal/core/ecs"
	"github.com/petfx/server/internal/core/event"
	"github.com/petfx/server/internal/data"
	"github.com/petfx/server/internal/engine/modifier"
	"github.com/petfx/server/internal/engine/sched"
	"github.com/petfx/server/internal/engine/slot"
	"github.com/petfx/server/internal/engine/timed"
	"go.uber.org/zap"
)

// Pet is one equipped pet bound to its owner.
type Pet struct {
	Owner      ecs.EntityID
	Info       *data.PetInfo
	Level      int
	StarPower  int
	Multiplier float64 // stat multiplier for Level, fixed at equip
	Passive    Ability
	Ultimate   Ability // nil when the template has none
}

func (p *Pet) abilities() []Ability {
	if p.Ultimate == nil {
		return []Ability{p.Passive}
	}
	return []Ability{p.Passive, p.Ultimate}
}

// Ability is the common surface of every ability instance. Behavior is
// added by implementing any of the hook interfaces below.
type Ability interface {
	Def() *data.AbilityDef
}

// Activator is implemented by ultimates.
type Activator interface {
	Activate(p *Pet) error
}

// AutoActivator gates automatic activation beyond the cooldown check.
type AutoActivator interface {
	CanAutoActivate(p *Pet) bool
}

// PassiveTicker runs on every passive interval.
type PassiveTicker interface {
	TickPassive(p *Pet)
}

// DamageContributor adds contributions to hits the owner deals.
type DamageContributor interface {
	Outgoing(p *Pet, h modifier.Hit, out []modifier.Contribution) []modifier.Contribution
}

// DefenseContributor adds contributions to hits the owner receives.
type DefenseContributor interface {
	Incoming(p *Pet, h modifier.Hit, out []modifier.Contribution) []modifier.Contribution
}

type KillListener interface {
	OnKill(p *Pet, victim ecs.EntityID)
}

type DamageDealtListener interface {
	OnDamageDealt(p *Pet, target ecs.EntityID, amount float64, kind string)
}

type DamageReceivedListener interface {
	OnDamageReceived(p *Pet, attacker ecs.EntityID, amount float64, kind string)
}

type EquipListener interface {
	OnEquip(p *Pet)
	OnUnequip(p *Pet)
}

// base carries the definition and the shared deps every ability needs.
type base struct {
	def    *data.AbilityDef
	d      *Deps
	policy slot.Policy
}

func newBase(d *Deps, def *data.AbilityDef) base {
	policy := slot.Supersede
	if def.Policy == "deny" {
		policy = slot.Deny
	}
	return base{def: def, d: d, policy: policy}
}

func (b *base) Def() *data.AbilityDef { return b.def }

func (b *base) slotID() slot.AbilityID { return slot.AbilityID(b.def.ID) }

// kind namespaces a timed kind under the ability id so two pets never
// share entries.
func (b *base) kind(name string) timed.Kind {
	return timed.Kind(b.def.ID + ":" + name)
}

func (b *base) param(key string, def float64) float64 { return b.def.Param(key, def) }

// seconds reads a duration parameter given in seconds and returns ticks.
func (b *base) seconds(key string, def float64) int64 {
	return b.d.Seconds(b.def.Param(key, def))
}

// ticks reads a parameter already expressed in ticks.
func (b *base) ticks(key string, def int64) int64 {
	return max(int64(b.def.Param(key, float64(def))), 1)
}

// claim runs the slot check for an activation and reports the outcome on
// the bus. A refusal is returned as the *slot.Denied error.
func (b *base) claim(p *Pet) (slot.Token, error) {
	cd := b.d.Seconds(b.d.Formulas.AdjustedCooldown(b.def.Cooldown, p.Level))
	tok, err := b.d.Slots().TryActivateWith(p.Owner, b.slotID(), cd, b.policy)
	now := b.d.Now()
	if err != nil {
		var denied *slot.Denied
		if errors.As(err, &denied) {
			event.Emit(b.d.Engine.Bus, event.ActivationDenied{
				Tick:      now,
				Owner:     p.Owner,
				Ability:   b.def.ID,
				Reason:    denied.Reason.String(),
				Remaining: denied.Remaining,
			})
			if denied.Reason == slot.OnCooldown {
				b.d.feedback(event.FeedbackOnCooldown, p.Owner, p.Owner, b.def.ID, float64(denied.Remaining))
			}
		}
		return slot.Token{}, err
	}
	event.Emit(b.d.Engine.Bus, event.AbilityActivated{
		Tick:       now,
		Owner:      p.Owner,
		Ability:    b.def.ID,
		Cooldown:   cd,
		Superseded: tok.Superseded,
	})
	b.d.feedback(event.FeedbackAbilityActivated, p.Owner, p.Owner, b.def.ID, 0)
	return tok, nil
}

// bind attaches a freshly scheduled task to the slot. A stale token means a
// newer activation already owns the slot, so the task is dropped.
func (b *base) bind(tok slot.Token, t *sched.Task) bool {
	if err := b.d.Slots().Bind(tok, t); err != nil {
		b.d.Log.Debug("ability task dropped", zap.String("ability", b.def.ID), zap.Error(err))
		return false
	}
	return true
}

func slotOf(a Ability) slot.AbilityID { return slot.AbilityID(a.Def().ID) }
