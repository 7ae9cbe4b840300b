package pet

import (
	"path/filepath"
	"testing"

	"github.com/petfx/server/internal/config"
	"github.com/petfx/server/internal/core/ecs"
	"github.com/petfx/server/internal/core/event"
	"github.com/petfx/server/internal/data"
	"github.com/petfx/server/internal/engine"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type hit struct {
	attacker ecs.EntityID
	target   ecs.EntityID
	amount   float64
	kind     string
}

// fakeHost is a minimal world: entities with hit points, every hostile in
// range of everybody.
type fakeHost struct {
	next     ecs.EntityID
	hp       map[ecs.EntityID]float64
	maxHP    map[ecs.EntityID]float64
	hostiles []ecs.EntityID
	base     float64
	star     int
	hits     []hit
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		hp:    make(map[ecs.EntityID]float64),
		maxHP: make(map[ecs.EntityID]float64),
		base:  10,
	}
}

func (h *fakeHost) spawn(hp float64) ecs.EntityID {
	h.next++
	h.hp[h.next] = hp
	h.maxHP[h.next] = hp
	return h.next
}

// remove drops id from the world the way a host does before reporting it
// removed.
func (h *fakeHost) remove(id ecs.EntityID) {
	delete(h.hp, id)
	delete(h.maxHP, id)
}

func (h *fakeHost) spawnHostile(hp float64) ecs.EntityID {
	id := h.spawn(hp)
	h.hostiles = append(h.hostiles, id)
	return id
}

func (h *fakeHost) ApplyDamage(attacker, target ecs.EntityID, amount float64, kind string) Outcome {
	hp, ok := h.hp[target]
	if !ok || hp <= 0 {
		return Outcome{}
	}
	h.hits = append(h.hits, hit{attacker, target, amount, kind})
	hp -= amount
	h.hp[target] = max(hp, 0)
	return Outcome{Applied: amount, Killed: hp <= 0}
}

func (h *fakeHost) lastHit() hit {
	if len(h.hits) == 0 {
		return hit{}
	}
	return h.hits[len(h.hits)-1]
}

func (h *fakeHost) BaseDamage(ecs.EntityID) float64 { return h.base }
func (h *fakeHost) StarPowerTier(ecs.EntityID) int  { return h.star }

func (h *fakeHost) Alive(id ecs.EntityID) bool { return h.hp[id] > 0 }

func (h *fakeHost) NearestHostile(ecs.EntityID) (ecs.EntityID, bool) {
	for _, id := range h.hostiles {
		if h.Alive(id) {
			return id, true
		}
	}
	return ecs.NoEntity, false
}

func (h *fakeHost) HostilesNear(ecs.EntityID, float64) []ecs.EntityID {
	var out []ecs.EntityID
	for _, id := range h.hostiles {
		if h.Alive(id) {
			out = append(out, id)
		}
	}
	return out
}

func (h *fakeHost) HealthFraction(id ecs.EntityID) float64 {
	if h.maxHP[id] <= 0 {
		return 0
	}
	return h.hp[id] / h.maxHP[id]
}

type fixture struct {
	eng  *engine.Engine
	host *fakeHost
	mgr  *Manager
	logs *observer.ObservedLogs
}

func loadPets(t *testing.T) *data.PetTable {
	t.Helper()
	table, err := data.LoadPetTable(filepath.Join("..", "..", "data", "yaml", "pets.yaml"))
	require.NoError(t, err)
	return table
}

func newFixture(t *testing.T, scripts ScriptHost) *fixture {
	t.Helper()
	return newFixtureWith(t, loadPets(t), nil, scripts)
}

func newFixtureWith(t *testing.T, table *data.PetTable, f *Factories, scripts ScriptHost) *fixture {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)
	eng := engine.New(config.Default().Engine, log)
	host := newFakeHost()
	mgr := NewManager(&Deps{
		Engine:  eng,
		World:   host,
		Damage:  host,
		Stats:   host,
		Scripts: scripts,
		Log:     log,
	}, table, f)
	return &fixture{eng: eng, host: host, mgr: mgr, logs: logs}
}

func (f *fixture) step(n int) {
	for i := 0; i < n; i++ {
		f.eng.Step()
	}
}

// flush delivers everything emitted so far to subscribers.
func (f *fixture) flush() {
	f.eng.Bus.SwapBuffers()
	f.eng.Bus.DispatchAll()
}

func (f *fixture) feedback(kind event.FeedbackKind) *[]event.Feedback {
	var got []event.Feedback
	event.Subscribe(f.eng.Bus, func(ev event.Feedback) {
		if ev.Kind == kind {
			got = append(got, ev)
		}
	})
	return &got
}
