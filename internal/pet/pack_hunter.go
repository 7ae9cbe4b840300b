package pet

import (
	"github.com/petfx/server/internal/data"
	"github.com/petfx/server/internal/engine/modifier"
	"github.com/petfx/server/internal/engine/timed"
)

// packHunter refreshes a membership entry for every hostile within radius
// on each passive tick. Outgoing hits gain a percent bonus per member.
type packHunter struct {
	base
	perEnemy   float64
	maxBonus   float64
	radius     float64
	membership int64
}

func newPackHunter(d *Deps, def *data.AbilityDef) (Ability, error) {
	a := &packHunter{base: newBase(d, def)}
	a.perEnemy = a.param("per_enemy", 0.03)
	a.maxBonus = a.param("max_bonus", 0.15)
	a.radius = a.param("radius", 8)
	a.membership = a.seconds("membership", 2)
	return a, nil
}

func (a *packHunter) TickPassive(p *Pet) {
	kind := a.kind("pack")
	for _, h := range a.d.World.HostilesNear(p.Owner, a.radius) {
		a.d.Registry().Put(p.Owner, h, kind, 1, a.membership, timed.Replace())
	}
}

// Members counts hostiles currently inside the pack zone.
func (a *packHunter) Members(p *Pet) int {
	return a.d.Registry().CountActive(p.Owner, a.kind("pack"))
}

func (a *packHunter) Outgoing(p *Pet, _ modifier.Hit, out []modifier.Contribution) []modifier.Contribution {
	n := a.Members(p)
	if n == 0 {
		return out
	}
	bonus := min(a.perEnemy*float64(n)*p.Multiplier, a.maxBonus)
	return append(out, modifier.Percent(a.def.ID, bonus))
}
