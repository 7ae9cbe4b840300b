package pet

import (
	"github.com/petfx/server/internal/core/event"
	"github.com/petfx/server/internal/data"
	"github.com/petfx/server/internal/engine/modifier"
	"github.com/petfx/server/internal/engine/sched"
	"github.com/petfx/server/internal/engine/timed"
)

// predatorMark marks the nearest hostile. Hits on the marked target gain a
// percent bonus while a watch task follows the mark until it fades or the
// target is gone. Star power extends the mark by one second per tier.
type predatorMark struct {
	base
	duration int64
	bonus    float64
	period   int64
}

func newPredatorMark(d *Deps, def *data.AbilityDef) (Ability, error) {
	a := &predatorMark{base: newBase(d, def)}
	a.duration = a.seconds("duration", 8)
	a.bonus = a.param("bonus", 0.5)
	a.period = a.ticks("watch_period", 10)
	return a, nil
}

func (a *predatorMark) markKind() timed.Kind { return a.kind("mark") }

func (a *predatorMark) Activate(p *Pet) error {
	target, ok := a.d.World.NearestHostile(p.Owner)
	if !ok {
		return ErrNoTarget
	}
	// claiming cancels the previous watch, which clears the previous mark
	tok, err := a.claim(p)
	if err != nil {
		return err
	}

	owner, kind := p.Owner, a.markKind()
	dur := a.duration + a.d.Seconds(float64(p.StarPower))
	a.d.Registry().Put(owner, target, kind, a.bonus*p.Multiplier, dur, timed.Replace())
	a.d.feedback(event.FeedbackMarkApplied, owner, target, a.def.ID, float64(dur))

	watch := a.d.Sched().Repeating(owner, a.period, func(t *sched.Task) error {
		a.d.feedback(event.FeedbackMarkApplied, owner, target, a.def.ID,
			float64(a.d.Registry().Remaining(owner, target, kind)))
		return nil
	},
		sched.About(target),
		sched.ForTicks(dur),
		sched.Until(func() bool {
			return !a.d.Registry().Has(owner, target, kind) || !a.d.World.Alive(target)
		}),
		sched.Label(a.def.ID+":watch"),
	)
	watch.OnFinish(func(*sched.Task) {
		a.d.Registry().Remove(owner, target, kind)
		a.d.feedback(event.FeedbackMarkFaded, owner, target, a.def.ID, 0)
	})
	a.bind(tok, watch)
	return nil
}

func (a *predatorMark) Outgoing(p *Pet, h modifier.Hit, out []modifier.Contribution) []modifier.Contribution {
	if v, ok := a.d.Registry().Get(p.Owner, h.Target, a.markKind()); ok {
		out = append(out, modifier.Percent(a.def.ID, v))
	}
	return out
}
