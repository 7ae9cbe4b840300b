package scripting

import (
	"path/filepath"
	"testing"

	"github.com/petfx/server/internal/engine/modifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestShippedScripts(t *testing.T) {
	e, err := NewEngine(filepath.Join("..", "..", "scripts"), nil)
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, 2, e.Loaded())
	assert.True(t, e.Has("ember_fox_kindle"))
	assert.InDelta(t, 1.0, e.StatMultiplier(1), 1e-9)
	assert.InDelta(t, 1.9, e.StatMultiplier(10), 1e-9)
	assert.InDelta(t, 30.0, e.AdjustedCooldown(30, 1), 1e-9)
	assert.InDelta(t, 24.6, e.AdjustedCooldown(30, 10), 1e-9)

	cs, err := e.Contributions("ember_fox_kindle", HitContext{
		Owner: 1, Attacker: 1, Target: 2,
		Raw: 10, Kind: "combo", Level: 3, Multiplier: 1.2, Health: 0.8,
		Params: map[string]float64{"bonus": 0.1},
	})
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, modifier.AdditivePercent, cs[0].Kind)
	assert.InDelta(t, 0.12, cs[0].Value, 1e-9)
	assert.Equal(t, modifier.Flat("kindle", 3), cs[1])
}

func TestScriptedIncomingHitContributesNothing(t *testing.T) {
	e, err := NewEngine(filepath.Join("..", "..", "scripts"), nil)
	require.NoError(t, err)
	defer e.Close()

	cs, err := e.Contributions("ember_fox_kindle", HitContext{Owner: 1, Attacker: 2, Target: 1, Health: 1})
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestFormulaFallbacks(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	e, err := NewEngineFromSource(zap.New(core), `
function pet_stat_multiplier(level)
    error("broken")
end
function pet_adjusted_cooldown(base, level)
    return "soon"
end
`)
	require.NoError(t, err)
	defer e.Close()

	assert.InDelta(t, DefaultStatMultiplier(5), e.StatMultiplier(5), 1e-9)
	assert.InDelta(t, DefaultAdjustedCooldown(20, 5), e.AdjustedCooldown(20, 5), 1e-9)
	assert.Equal(t, 1, logs.FilterMessage("lua call error").Len())
	assert.Equal(t, 1, logs.FilterMessage("lua function returned non-number").Len())
}

func TestMissingFormulasUseDefaults(t *testing.T) {
	e, err := NewEngineFromSource(nil)
	require.NoError(t, err)
	defer e.Close()

	assert.InDelta(t, 1.4, e.StatMultiplier(5), 1e-9)
	assert.InDelta(t, 0.0, e.AdjustedCooldown(10, 100), 1e-9, "never negative")
	assert.InDelta(t, 1.0, e.StatMultiplier(0), 1e-9)
}

func TestContributionErrors(t *testing.T) {
	e, err := NewEngineFromSource(nil, `
function bad_kind(hit) return { { kind = "double", value = 2 } } end
function not_table(hit) return 5 end
function raises(hit) error("nope") end
function all_kinds(hit)
    return {
        { source = "a", kind = "flat", value = 1 },
        { kind = "percent", value = 0.5 },
        { kind = "factor", value = 2 },
        { kind = "floor", value = 3 },
        { kind = "ceil", value = 90 },
        { kind = "set", value = 7 },
    }
end
`)
	require.NoError(t, err)
	defer e.Close()

	for _, fn := range []string{"bad_kind", "not_table", "raises", "missing"} {
		_, err := e.Contributions(fn, HitContext{})
		assert.Error(t, err, fn)
	}

	cs, err := e.Contributions("all_kinds", HitContext{})
	require.NoError(t, err)
	require.Len(t, cs, 6)
	assert.Equal(t, "a", cs[0].Source)
	assert.Equal(t, "all_kinds", cs[1].Source, "source defaults to the function name")
	assert.Equal(t, 7.0, modifier.Compute(10, cs))
}

func TestBadChunk(t *testing.T) {
	_, err := NewEngineFromSource(nil, "function (")
	assert.Error(t, err)
}
