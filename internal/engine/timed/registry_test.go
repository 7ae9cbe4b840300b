package timed

import (
	"testing"

	"github.com/petfx/server/internal/core/clock"
	"github.com/petfx/server/internal/core/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	p1 ecs.EntityID = 1
	p2 ecs.EntityID = 2
	z1 ecs.EntityID = 101
	z2 ecs.EntityID = 102
	z3 ecs.EntityID = 103
)

func newTestRegistry() (*Registry, *clock.Manual) {
	clk := &clock.Manual{T: 100}
	return New(clk), clk
}

func TestLazyExpiryWithoutSweep(t *testing.T) {
	r, clk := newTestRegistry()
	r.Put(p1, z1, "sonic-mark", 1, 10, Replace())

	for i := int64(0); i < 10; i++ {
		_, ok := r.Get(p1, z1, "sonic-mark")
		assert.True(t, ok, "live at +%d", i)
		clk.Step(1)
	}
	// clock is now exactly at expiry
	for i := 0; i < 5; i++ {
		_, ok := r.Get(p1, z1, "sonic-mark")
		assert.False(t, ok)
		assert.False(t, r.Has(p1, z1, "sonic-mark"))
		assert.Equal(t, int64(0), r.Remaining(p1, z1, "sonic-mark"))
		clk.Step(1)
	}
	assert.Equal(t, 1, r.Len(), "still physically present until swept")
	assert.Equal(t, 1, r.SweepExpired())
	assert.Equal(t, 0, r.Len())
}

func TestMergePolicies(t *testing.T) {
	tests := []struct {
		name     string
		merge    Merge
		payloads []float64
		want     float64
	}{
		{"replace keeps last", Replace(), []float64{5, 2, 7, 3}, 3},
		{"max keeps largest", Max(), []float64{5, 2, 7, 3}, 7},
		{"sum capped", SumCapped(10), []float64{3, 3, 3, 3, 3}, 10},
		{"sum below cap", SumCapped(10), []float64{3, 3}, 6},
		{"first put over cap", SumCapped(4), []float64{9}, 4},
		{"increment ignores payload", IncrementCapped(5), []float64{1, 1, 9}, 3},
		{"increment capped", IncrementCapped(5), []float64{1, 1, 1, 1, 1, 1, 1, 1}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRegistry()
			var got float64
			for _, p := range tt.payloads {
				got = r.Put(p1, z1, "k", p, 50, tt.merge)
			}
			assert.Equal(t, tt.want, got)
			v, ok := r.Get(p1, z1, "k")
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestCappedMergesNeverExceedCap(t *testing.T) {
	r, clk := newTestRegistry()
	for i := 0; i < 1000; i++ {
		s := r.Put(p1, z1, "frost-stack", float64(i%7), 20, SumCapped(8))
		c := r.Put(p1, p1, "combo", 1, 20, IncrementCapped(5))
		require.LessOrEqual(t, s, 8.0)
		require.LessOrEqual(t, c, 5.0)
		if i%3 == 0 {
			clk.Step(1)
		}
	}
}

func TestExpiredEntryRestartsFresh(t *testing.T) {
	r, clk := newTestRegistry()
	r.Put(p1, z1, "frost-stack", 4, 5, SumCapped(10))
	clk.Step(5)
	assert.Equal(t, 2.0, r.Put(p1, z1, "frost-stack", 2, 5, SumCapped(10)), "expired value is not carried over")
}

func TestRefreshExtendsButNeverShortens(t *testing.T) {
	r, clk := newTestRegistry()
	r.Put(p1, z1, "mark", 1, 100, Replace())
	clk.Step(10)
	r.Put(p1, z1, "mark", 1, 5, Replace())
	assert.Equal(t, int64(90), r.Remaining(p1, z1, "mark"))

	r.Put(p1, z1, "mark", 1, 200, Replace())
	assert.Equal(t, int64(200), r.Remaining(p1, z1, "mark"))
}

func TestZeroTTLIsClampedToOneTick(t *testing.T) {
	r, clk := newTestRegistry()
	r.Put(p1, z1, "flash", 1, 0, Replace())
	assert.True(t, r.Has(p1, z1, "flash"))
	clk.Step(1)
	assert.False(t, r.Has(p1, z1, "flash"))
}

func TestCountActiveAndSubjects(t *testing.T) {
	r, clk := newTestRegistry()
	r.Put(p1, z3, "pack-zone", 1, 10, Replace())
	r.Put(p1, z1, "pack-zone", 1, 10, Replace())
	r.Put(p1, z2, "pack-zone", 1, 3, Replace())
	r.Put(p1, z1, "other", 1, 10, Replace())
	r.Put(p2, z1, "pack-zone", 1, 10, Replace())

	assert.Equal(t, 3, r.CountActive(p1, "pack-zone"))
	assert.Equal(t, []ecs.EntityID{z1, z2, z3}, r.Subjects(p1, "pack-zone"))

	clk.Step(3)
	assert.Equal(t, 2, r.CountActive(p1, "pack-zone"))
	assert.Equal(t, []ecs.EntityID{z1, z3}, r.Subjects(p1, "pack-zone"))
	assert.Equal(t, 0, r.CountActive(p2, "other"))
}

func TestConsume(t *testing.T) {
	r, clk := newTestRegistry()
	r.Put(p1, p1, "combo", 1, 40, IncrementCapped(5))
	r.Put(p1, p1, "combo", 1, 40, IncrementCapped(5))

	v, ok := r.Consume(p1, p1, "combo")
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
	_, ok = r.Get(p1, p1, "combo")
	assert.False(t, ok)
	_, ok = r.Consume(p1, p1, "combo")
	assert.False(t, ok)

	r.Put(p1, p1, "combo", 1, 2, IncrementCapped(5))
	clk.Step(2)
	_, ok = r.Consume(p1, p1, "combo")
	assert.False(t, ok, "expired entries are not consumable")
	assert.Equal(t, 0, r.Len(), "but are dropped")
}

func TestBulkEviction(t *testing.T) {
	r, _ := newTestRegistry()
	r.Put(p1, z1, "mark", 1, 10, Replace())
	r.Put(p1, z2, "mark", 1, 10, Replace())
	r.Put(p1, p1, "combo", 1, 10, IncrementCapped(5))
	r.Put(p2, z1, "mark", 1, 10, Replace())
	r.Put(p2, p1, "mark", 1, 10, Replace())

	assert.Equal(t, 3, r.RemoveAllFor(p1))
	assert.Equal(t, 0, r.CountActive(p1, "mark"))
	assert.True(t, r.Has(p2, z1, "mark"))
	assert.True(t, r.Has(p2, p1, "mark"), "entries about p1 made by p2 survive owner eviction")

	assert.Equal(t, 1, r.RemoveAllAbout(z1))
	assert.False(t, r.Has(p2, z1, "mark"))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 0, r.RemoveAllAbout(z1))
}

func TestAboutSnapshot(t *testing.T) {
	r, _ := newTestRegistry()
	r.Put(p2, z1, "mark", 1, 10, Replace())
	r.Put(p1, z1, "frost-stack", 3, 10, SumCapped(5))
	r.Put(p1, z1, "burn", 2, 10, Replace())

	got := r.About(z1)
	require.Len(t, got, 3)
	assert.Equal(t, Kind("burn"), got[0].Kind)
	assert.Equal(t, Kind("frost-stack"), got[1].Kind)
	assert.Equal(t, p2, got[2].Owner)
	assert.Equal(t, 3.0, got[1].Value)
}

func TestMergeString(t *testing.T) {
	assert.Equal(t, "sum-capped(8)", SumCapped(8).String())
	assert.Equal(t, "replace", Replace().String())
	assert.Equal(t, 5.0, IncrementCapped(5).Cap())
}
