package pet

import (
	"github.com/petfx/server/internal/core/event"
	"github.com/petfx/server/internal/data"
	"github.com/petfx/server/internal/engine/sched"
	"github.com/petfx/server/internal/engine/slot"
)

// chargedStrike charges, strikes the nearest hostile, then sends frost
// waves around the owner. Star power adds one wave per tier.
type chargedStrike struct {
	base
	charge     int64
	ratio      float64
	waves      int
	wavePeriod int64
	waveRatio  float64
	waveRadius float64
}

func newChargedStrike(d *Deps, def *data.AbilityDef) (Ability, error) {
	a := &chargedStrike{base: newBase(d, def)}
	a.charge = a.seconds("charge", 1.5)
	a.ratio = a.param("strike_ratio", 3)
	a.waves = int(a.param("waves", 3))
	a.wavePeriod = a.ticks("wave_period", 10)
	a.waveRatio = a.param("wave_ratio", 0.5)
	a.waveRadius = a.param("wave_radius", 4)
	return a, nil
}

// Activate schedules the charge and strike against the target behind one
// handle tagged with the target, so removing the target cancels them. The
// waves hit whatever is near the owner and outlive the target: they run as
// a second task bound through the same activation.
func (a *chargedStrike) Activate(p *Pet) error {
	target, ok := a.d.World.NearestHostile(p.Owner)
	if !ok {
		return ErrNoTarget
	}
	tok, err := a.claim(p)
	if err != nil {
		return err
	}
	owner := p.Owner
	phases := []sched.Phase{
		{
			Name: "charge",
			Run: func(st *sched.Step) error {
				a.d.feedback(event.FeedbackAbilityCharging, owner, target, a.def.ID, float64(a.charge))
				return nil
			},
		},
		{
			Name:  "strike",
			Delay: a.charge,
			Run: func(st *sched.Step) error {
				if !a.d.World.Alive(target) {
					st.Stop()
					return nil
				}
				out := a.d.Combat().PetStrike(p, target, a.ratio, KindPet)
				a.d.feedback(event.FeedbackImpact, owner, target, a.def.ID, out.Applied)
				a.startWaves(p, tok)
				return nil
			},
		},
	}
	a.bind(tok, a.d.Sched().Sequence(owner, phases, sched.About(target), sched.Label(a.def.ID)))
	return nil
}

func (a *chargedStrike) startWaves(p *Pet, tok slot.Token) {
	n := a.waves + p.StarPower
	if n <= 0 {
		return
	}
	owner := p.Owner
	waves := a.d.Sched().Repeating(owner, a.wavePeriod, func(*sched.Task) error {
		for _, h := range a.d.World.HostilesNear(owner, a.waveRadius) {
			a.d.Combat().PetStrike(p, h, a.waveRatio, KindFrost)
		}
		return nil
	}, sched.Times(n), sched.Label(string(a.kind("waves"))))
	a.bind(tok, waves)
}
