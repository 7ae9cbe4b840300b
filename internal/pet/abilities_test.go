package pet

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/petfx/server/internal/core/event"
	"github.com/petfx/server/internal/engine/slot"
	"github.com/petfx/server/internal/engine/timed"
	"github.com/petfx/server/internal/scripting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComboBurstScenario(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.host.spawn(100)
	h := f.host.spawnHostile(1000)
	_, err := f.mgr.Equip(owner, 4, 1)
	require.NoError(t, err)

	kind := timed.Kind("ember_fox_burst:combo")
	for i := 0; i < 3; i++ {
		f.eng.Registry.Put(owner, owner, kind, 1, 120, timed.IncrementCapped(5))
	}
	v, ok := f.eng.Registry.Get(owner, owner, kind)
	require.True(t, ok)
	require.Equal(t, 3.0, v)

	require.NoError(t, f.mgr.Activate(owner))
	last := f.host.lastHit()
	assert.Equal(t, h, last.target)
	assert.Equal(t, KindCombo, last.kind)
	assert.InDelta(t, 10*0.6*3, last.amount, 1e-9, "detonation reads exactly 3 stacks")

	_, ok = f.eng.Registry.Get(owner, owner, kind)
	assert.False(t, ok, "consumed")

	err = f.mgr.Activate(owner)
	assert.ErrorIs(t, err, ErrNoStacks)
	assert.NotErrorIs(t, err, slot.ErrOnCooldown, "refused by the ability, not the slot")
	slots := f.eng.Runtime.Slots(owner)
	require.Len(t, slots, 1)
	assert.Equal(t, 1, slots[0].Activations)
	assert.Len(t, f.host.hits, 1)
}

func TestComboStacksFromHits(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.host.spawn(100)
	h := f.host.spawnHostile(10000)
	_, err := f.mgr.Equip(owner, 4, 1)
	require.NoError(t, err)
	p, ok := f.mgr.Equipped(owner)
	require.True(t, ok)
	burst := p.Ultimate.(*comboBurst)

	for i := 0; i < 7; i++ {
		f.mgr.Combat().Strike(owner, h, 10, KindMelee)
	}
	assert.Equal(t, 5.0, burst.Stacks(owner), "capped")
	assert.Equal(t, 1, f.mgr.TickUltimates(), "full bank auto-detonates")
	assert.Zero(t, burst.Stacks(owner))

	f.step(int(f.eng.Clock.Seconds(6)))
	f.mgr.Combat().Strike(owner, h, 10, KindMelee)
	f.step(int(f.eng.Clock.Seconds(6)))
	assert.Zero(t, burst.Stacks(owner), "stacks expire")
}

func TestPredatorMark(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.host.spawn(100)
	h := f.host.spawnHostile(1000)
	_, err := f.mgr.Equip(owner, 1, 1)
	require.NoError(t, err)
	faded := f.feedback(event.FeedbackMarkFaded)

	require.NoError(t, f.mgr.Activate(owner))
	assert.True(t, f.eng.Runtime.IsChanneling(owner, "shadow_cat_mark"))
	assert.Equal(t, 15.0, f.mgr.Combat().Strike(owner, h, 10, KindMelee).Applied)

	f.step(160)
	assert.False(t, f.eng.Registry.Has(owner, h, "shadow_cat_mark:mark"))
	assert.False(t, f.eng.Runtime.IsChanneling(owner, "shadow_cat_mark"))
	assert.Equal(t, 10.0, f.mgr.Combat().Strike(owner, h, 10, KindMelee).Applied)

	f.flush()
	require.Len(t, *faded, 1)
	assert.Equal(t, h, (*faded)[0].Subject)
}

func TestPredatorMarkSupersedes(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.host.spawn(100)
	h1 := f.host.spawnHostile(1000)
	h2 := f.host.spawnHostile(1000)
	_, err := f.mgr.Equip(owner, 1, 1)
	require.NoError(t, err)

	require.NoError(t, f.mgr.Activate(owner))
	f.step(20)
	f.host.hp[h1] = 0
	f.eng.Runtime.SetCooldown(owner, "shadow_cat_mark", 0)
	require.NoError(t, f.mgr.Activate(owner))

	assert.False(t, f.eng.Registry.Has(owner, h1, "shadow_cat_mark:mark"))
	assert.True(t, f.eng.Registry.Has(owner, h2, "shadow_cat_mark:mark"))
	assert.Equal(t, 1, f.eng.Scheduler.PendingFor(owner), "one live watch")
	assert.Equal(t, h2, f.eng.Runtime.ActiveTask(owner, "shadow_cat_mark").Subject())
}

func TestPredatorMarkEndsWhenTargetDies(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.host.spawn(100)
	h := f.host.spawnHostile(1000)
	_, err := f.mgr.Equip(owner, 1, 1)
	require.NoError(t, err)
	require.NoError(t, f.mgr.Activate(owner))

	f.host.hp[h] = 0
	f.step(10)
	assert.False(t, f.eng.Runtime.IsChanneling(owner, "shadow_cat_mark"))
	assert.False(t, f.eng.Registry.Has(owner, h, "shadow_cat_mark:mark"))
}

func TestExecuteFloor(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.host.spawn(100)
	h := f.host.spawnHostile(1000)
	_, err := f.mgr.Equip(owner, 1, 1)
	require.NoError(t, err)

	res := f.mgr.Combat().Resolve(owner, h, 10, KindMelee)
	assert.Equal(t, 10.0, res.Final)

	f.host.hp[h] = 150
	res = f.mgr.Combat().Resolve(owner, h, 10, KindMelee)
	assert.Equal(t, 20.0, res.Final)
	assert.True(t, res.Breakdown.Overridden)

	f.host.hp[h] = 240
	assert.Equal(t, 10.0, f.mgr.Combat().Resolve(owner, h, 10, KindMelee).Final)
	f.host.star = 1
	_, err = f.mgr.Equip(owner, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 20.0, f.mgr.Combat().Resolve(owner, h, 10, KindMelee).Final, "star power raises the threshold")
}

func TestFrostStacksDetonate(t *testing.T) {
	f := newFixture(t, nil)
	f.host.base = 20
	owner := f.host.spawn(100)
	h := f.host.spawnHostile(10000)
	_, err := f.mgr.Equip(owner, 2, 1)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		f.mgr.Combat().Strike(owner, h, 10, KindMelee)
	}
	require.Len(t, f.host.hits, 6)
	assert.InDelta(t, 10, f.host.hits[0].amount, 1e-9)
	assert.InDelta(t, 10.4, f.host.hits[1].amount, 1e-9)
	assert.InDelta(t, 10*math.Pow(1.04, 4), f.host.hits[4].amount, 1e-9)

	det := f.host.hits[5]
	assert.Equal(t, KindFrost, det.kind)
	assert.InDelta(t, 30, det.amount, 1e-9)
	assert.False(t, f.eng.Registry.Has(owner, h, "frost_owl_stacks:frost"))
}

func TestChargedStrikeSequence(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.host.spawn(100)
	h1 := f.host.spawnHostile(1000)
	h2 := f.host.spawnHostile(1000)
	_, err := f.mgr.Equip(owner, 2, 1)
	require.NoError(t, err)
	charging := f.feedback(event.FeedbackAbilityCharging)

	require.NoError(t, f.mgr.Activate(owner))
	f.step(30)
	assert.Empty(t, f.host.hits, "still charging")
	f.step(1)
	require.Len(t, f.host.hits, 1)
	assert.Equal(t, hit{owner, h1, 30, KindPet}, f.host.hits[0])

	f.step(30)
	require.Len(t, f.host.hits, 7)
	for _, w := range f.host.hits[1:] {
		assert.Equal(t, KindFrost, w.kind)
		if w.target == h2 {
			assert.InDelta(t, 5, w.amount, 1e-9)
		} else {
			assert.InDelta(t, 5.2, w.amount, 1e-9, "the strike left a frost stack on h1")
		}
	}
	assert.False(t, f.eng.Runtime.IsChanneling(owner, "frost_owl_dive"))

	f.flush()
	assert.Len(t, *charging, 1)
}

func TestChargedStrikeCancelledByUnequip(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.host.spawn(100)
	f.host.spawnHostile(1000)
	_, err := f.mgr.Equip(owner, 2, 1)
	require.NoError(t, err)

	require.NoError(t, f.mgr.Activate(owner))
	f.step(10)
	require.NoError(t, f.mgr.Unequip(owner))
	f.step(100)
	assert.Empty(t, f.host.hits)
}

func TestChargedStrikeDroppedWhenTargetRemoved(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.host.spawn(100)
	h1 := f.host.spawnHostile(1000)
	f.host.spawnHostile(1000)
	_, err := f.mgr.Equip(owner, 2, 1)
	require.NoError(t, err)

	require.NoError(t, f.mgr.Activate(owner))
	f.step(5)
	require.Equal(t, 1, f.eng.Scheduler.PendingAbout(h1))

	f.mgr.EntityRemoved(h1)
	assert.Zero(t, f.eng.Scheduler.PendingAbout(h1))
	assert.Zero(t, f.eng.Scheduler.PendingFor(owner))
	f.step(60)
	for _, h := range f.host.hits {
		assert.NotEqual(t, h1, h.target)
	}
	assert.Empty(t, f.host.hits)
	assert.False(t, f.eng.Runtime.IsChanneling(owner, "frost_owl_dive"))
}

func TestChargedStrikeWavesOutliveTarget(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.host.spawn(100)
	h1 := f.host.spawnHostile(1000)
	h2 := f.host.spawnHostile(1000)
	_, err := f.mgr.Equip(owner, 2, 1)
	require.NoError(t, err)

	require.NoError(t, f.mgr.Activate(owner))
	f.step(31)
	require.Len(t, f.host.hits, 1)
	assert.True(t, f.eng.Runtime.IsChanneling(owner, "frost_owl_dive"), "waves are bound to the slot")

	f.host.remove(h1)
	f.mgr.EntityRemoved(h1)
	f.step(30)
	require.Len(t, f.host.hits, 4)
	for _, w := range f.host.hits[1:] {
		assert.Equal(t, h2, w.target)
		assert.Equal(t, KindFrost, w.kind)
	}
	assert.False(t, f.eng.Runtime.IsChanneling(owner, "frost_owl_dive"))
}

func TestPackHunter(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.host.spawn(100)
	h := f.host.spawnHostile(1000)
	f.host.spawnHostile(1000)
	f.host.spawnHostile(1000)
	_, err := f.mgr.Equip(owner, 3, 1)
	require.NoError(t, err)

	f.mgr.TickPassives()
	assert.InDelta(t, 109, f.mgr.Combat().Resolve(owner, h, 100, KindMelee).Final, 1e-9)

	f.step(int(f.eng.Clock.Seconds(2)))
	assert.Equal(t, 100.0, f.mgr.Combat().Resolve(owner, h, 100, KindMelee).Final, "membership lapsed")
}

func TestBloodFrenzyChannel(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.host.spawn(100)
	h := f.host.spawnHostile(1000)
	weak := f.host.spawnHostile(5)
	f.host.spawnHostile(1000)
	_, err := f.mgr.Equip(owner, 3, 1)
	require.NoError(t, err)
	ended := f.feedback(event.FeedbackChannelEnded)

	assert.Equal(t, 1, f.mgr.TickUltimates())
	assert.True(t, f.eng.Runtime.IsChanneling(owner, "dire_wolf_frenzy"))
	assert.InDelta(t, 105, f.mgr.Combat().Resolve(owner, h, 100, KindMelee).Final, 1e-9)

	out := f.mgr.Combat().Strike(owner, weak, 5, KindMelee)
	require.True(t, out.Killed)
	assert.InDelta(t, 110, f.mgr.Combat().Resolve(owner, h, 100, KindMelee).Final, 1e-9)

	f.eng.Runtime.SetCooldown(owner, "dire_wolf_frenzy", 0)
	assert.ErrorIs(t, f.mgr.Activate(owner), slot.ErrAlreadyActive, "deny policy")

	f.step(160)
	assert.False(t, f.eng.Runtime.IsChanneling(owner, "dire_wolf_frenzy"))
	assert.Equal(t, 100.0, f.mgr.Combat().Resolve(owner, h, 100, KindMelee).Final)
	f.flush()
	require.Len(t, *ended, 1)
	assert.Equal(t, 1.0, (*ended)[0].Value)
}

func TestBloodFrenzyNeedsCrowd(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.host.spawn(100)
	f.host.spawnHostile(1000)
	_, err := f.mgr.Equip(owner, 3, 1)
	require.NoError(t, err)
	assert.Zero(t, f.mgr.TickUltimates())
	require.NoError(t, f.mgr.Activate(owner), "manual activation ignores the crowd check")
}

func TestFrostFur(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.host.spawn(1000)
	h := f.host.spawnHostile(1000)
	_, err := f.mgr.Equip(owner, 5, 1)
	require.NoError(t, err)

	out := f.mgr.Combat().Strike(h, owner, 100, KindMelee)
	assert.InDelta(t, 80, out.Applied, 1e-9)

	require.Len(t, f.host.hits, 2)
	reflect := f.host.hits[1]
	assert.Equal(t, owner, reflect.attacker)
	assert.Equal(t, h, reflect.target)
	assert.Equal(t, KindReflect, reflect.kind)
	assert.InDelta(t, 4, reflect.amount, 1e-9)
	assert.True(t, f.eng.Registry.Has(owner, h, "polar_bear_fur:slow"))
	f.step(int(f.eng.Clock.Seconds(1)))
	assert.False(t, f.eng.Registry.Has(owner, h, "polar_bear_fur:slow"))
}

func TestScriptedPassive(t *testing.T) {
	lua, err := scripting.NewEngine(filepath.Join("..", "..", "scripts"), nil)
	require.NoError(t, err)
	defer lua.Close()

	f := newFixture(t, lua)
	owner := f.host.spawn(100)
	h := f.host.spawnHostile(1000)
	_, err = f.mgr.Equip(owner, 4, 1)
	require.NoError(t, err)

	assert.InDelta(t, 11, f.mgr.Combat().Resolve(owner, h, 10, KindMelee).Final, 1e-9)
	f.host.hp[h] = 100
	assert.Equal(t, 10.0, f.mgr.Combat().Resolve(owner, h, 10, KindMelee).Final, "kindle skips wounded targets")
	assert.Equal(t, 10.0, f.mgr.Combat().Resolve(h, owner, 10, KindMelee).Final, "incoming hits untouched")
}

func TestScriptedPassiveErrorIsAbsorbed(t *testing.T) {
	lua, err := scripting.NewEngineFromSource(nil, `function ember_fox_kindle(hit) error("broken") end`)
	require.NoError(t, err)
	defer lua.Close()

	f := newFixture(t, lua)
	owner := f.host.spawn(100)
	h := f.host.spawnHostile(1000)
	_, err = f.mgr.Equip(owner, 4, 1)
	require.NoError(t, err)

	assert.Equal(t, 10.0, f.mgr.Combat().Resolve(owner, h, 10, KindMelee).Final)
	assert.Equal(t, 1, f.logs.FilterMessage("scripted passive failed").Len())
}
