package pet

import (
	"errors"
	"math"

	"github.com/petfx/server/internal/core/ecs"
	"github.com/petfx/server/internal/core/event"
	"github.com/petfx/server/internal/data"
	"github.com/petfx/server/internal/engine/modifier"
	"github.com/petfx/server/internal/engine/sched"
	"github.com/petfx/server/internal/engine/timed"
)

// bloodFrenzy channels for a fixed duration. While channeling, every kill
// adds to a capped kill counter and outgoing hits gain per_kill percent
// for the channel itself plus each counted kill, up to max_bonus.
type bloodFrenzy struct {
	base
	duration    int64
	perKill     float64
	maxBonus    float64
	maxKills    float64
	minHostiles int
	radius      float64
}

func newBloodFrenzy(d *Deps, def *data.AbilityDef) (Ability, error) {
	a := &bloodFrenzy{base: newBase(d, def)}
	a.duration = a.seconds("duration", 8)
	a.perKill = a.param("per_kill", 0.05)
	a.maxBonus = a.param("max_bonus", 0.25)
	if a.perKill <= 0 {
		return nil, errors.New("per_kill must be positive")
	}
	a.maxKills = math.Ceil(a.maxBonus / a.perKill)
	a.minHostiles = int(a.param("min_hostiles", 3))
	a.radius = a.param("radius", 6)
	return a, nil
}

func (a *bloodFrenzy) killKind() timed.Kind { return a.kind("kills") }

func (a *bloodFrenzy) channeling(owner ecs.EntityID) bool {
	return a.d.Slots().IsChanneling(owner, a.slotID())
}

func (a *bloodFrenzy) CanAutoActivate(p *Pet) bool {
	return len(a.d.World.HostilesNear(p.Owner, a.radius)) >= a.minHostiles
}

func (a *bloodFrenzy) Activate(p *Pet) error {
	tok, err := a.claim(p)
	if err != nil {
		return err
	}
	owner := p.Owner
	pulse := a.d.Seconds(1)
	channel := a.d.Sched().Repeating(owner, pulse, func(t *sched.Task) error {
		a.d.feedback(event.FeedbackImpact, owner, owner, a.def.ID, a.d.Registry().Value(owner, owner, a.killKind()))
		return nil
	},
		sched.ForTicks(a.duration),
		sched.Label(a.def.ID+":channel"),
	)
	channel.OnFinish(func(*sched.Task) {
		kills, _ := a.d.Registry().Consume(owner, owner, a.killKind())
		a.d.feedback(event.FeedbackChannelEnded, owner, owner, a.def.ID, kills)
	})
	a.bind(tok, channel)
	return nil
}

func (a *bloodFrenzy) OnKill(p *Pet, _ ecs.EntityID) {
	if !a.channeling(p.Owner) {
		return
	}
	// the counter outlives the channel by a tick so the end of channel
	// report still reads it
	n := a.d.Registry().Put(p.Owner, p.Owner, a.killKind(), 1, a.duration+1, timed.IncrementCapped(a.maxKills))
	a.d.feedback(event.FeedbackStacksChanged, p.Owner, p.Owner, a.def.ID, n)
}

func (a *bloodFrenzy) Outgoing(p *Pet, _ modifier.Hit, out []modifier.Contribution) []modifier.Contribution {
	if !a.channeling(p.Owner) {
		return out
	}
	kills := a.d.Registry().Value(p.Owner, p.Owner, a.killKind())
	return append(out, modifier.Percent(a.def.ID, min(a.perKill*(1+kills), a.maxBonus)))
}
