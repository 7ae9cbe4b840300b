package pet

import (
	"github.com/petfx/server/internal/data"
	"github.com/petfx/server/internal/engine/modifier"
)

// execute floors damage against targets below a health threshold. Each
// star power tier raises the threshold by five points.
type execute struct {
	base
	threshold  float64
	floorRatio float64
}

func newExecute(d *Deps, def *data.AbilityDef) (Ability, error) {
	a := &execute{base: newBase(d, def)}
	a.threshold = a.param("threshold", 0.2)
	a.floorRatio = a.param("floor_ratio", 2)
	return a, nil
}

func (a *execute) Outgoing(p *Pet, h modifier.Hit, out []modifier.Contribution) []modifier.Contribution {
	if h.Kind == KindReflect {
		return out
	}
	hf := a.d.World.HealthFraction(h.Target)
	if hf <= 0 || hf > a.threshold+0.05*float64(p.StarPower) {
		return out
	}
	return append(out, modifier.AtLeast(a.def.ID, h.Raw*a.floorRatio))
}
