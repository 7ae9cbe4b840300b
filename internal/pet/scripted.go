package pet

import (
	"github.com/petfx/server/internal/data"
	"github.com/petfx/server/internal/engine/modifier"
	"github.com/petfx/server/internal/scripting"
	"go.uber.org/zap"
)

// scripted hands every hit involving the owner to a Lua function and adds
// whatever contributions it returns. Script errors drop the contributions
// for that hit only.
type scripted struct {
	base
}

func newScripted(d *Deps, def *data.AbilityDef) (Ability, error) {
	return &scripted{base: newBase(d, def)}, nil
}

func (a *scripted) Outgoing(p *Pet, h modifier.Hit, out []modifier.Contribution) []modifier.Contribution {
	return a.eval(p, h, out)
}

func (a *scripted) Incoming(p *Pet, h modifier.Hit, out []modifier.Contribution) []modifier.Contribution {
	return a.eval(p, h, out)
}

func (a *scripted) eval(p *Pet, h modifier.Hit, out []modifier.Contribution) []modifier.Contribution {
	if a.d.Scripts == nil {
		return out
	}
	cs, err := a.d.Scripts.Contributions(a.def.Script, scripting.HitContext{
		Owner:      p.Owner,
		Attacker:   h.Attacker,
		Target:     h.Target,
		Raw:        h.Raw,
		Kind:       h.Kind,
		Tick:       uint64(h.Tick),
		Level:      p.Level,
		Multiplier: p.Multiplier,
		Health:     a.d.World.HealthFraction(h.Target),
		Params:     a.def.Params,
	})
	if err != nil {
		a.d.Log.Warn("scripted passive failed",
			zap.String("ability", a.def.ID),
			zap.String("script", a.def.Script),
			zap.Error(err),
		)
		return out
	}
	return append(out, cs...)
}
