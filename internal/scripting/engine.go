package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/petfx/server/internal/core/ecs"
	"github.com/petfx/server/internal/engine/modifier"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for pet formulas and scripted
// passives. Single-goroutine access only (tick thread).
type Engine struct {
	vm     *lua.LState
	log    *zap.Logger
	loaded int
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := newBare(log)

	// core formulas first, then the pet scripts that may call them
	for _, sub := range []string{"core", "pet"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			e.vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

// NewEngineFromSource builds an engine from inline Lua chunks, in order.
func NewEngineFromSource(log *zap.Logger, chunks ...string) (*Engine, error) {
	e := newBare(log)
	for i, src := range chunks {
		if err := e.vm.DoString(src); err != nil {
			e.vm.Close()
			return nil, fmt.Errorf("load chunk %d: %w", i, err)
		}
		e.loaded++
	}
	return e, nil
}

func newBare(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{vm: vm, log: log}
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.loaded++
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Loaded returns how many script files or chunks were loaded.
func (e *Engine) Loaded() int { return e.loaded }

// Has reports whether a global Lua function with the given name exists.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// StatMultiplier calls pet_stat_multiplier(level). Falls back to
// 1 + 0.10*(level-1) when the script is missing or fails.
func (e *Engine) StatMultiplier(level int) float64 {
	v, ok := e.callNumber("pet_stat_multiplier", float64(level))
	if !ok || v <= 0 {
		return DefaultStatMultiplier(level)
	}
	return v
}

// AdjustedCooldown calls pet_adjusted_cooldown(base, level). Falls back to
// base*(1 - 0.02*(level-1)).
func (e *Engine) AdjustedCooldown(base float64, level int) float64 {
	v, ok := e.callNumber("pet_adjusted_cooldown", base, float64(level))
	if !ok || v < 0 {
		return DefaultAdjustedCooldown(base, level)
	}
	return v
}

func DefaultStatMultiplier(level int) float64 {
	return 1 + 0.10*float64(max(level, 1)-1)
}

func DefaultAdjustedCooldown(base float64, level int) float64 {
	return max(base*(1-0.02*float64(max(level, 1)-1)), 0)
}

// HitContext is the data a scripted passive sees for one hit.
type HitContext struct {
	Owner      ecs.EntityID
	Attacker   ecs.EntityID
	Target     ecs.EntityID
	Raw        float64
	Kind       string
	Tick       uint64
	Level      int
	Multiplier float64
	Health     float64 // target health fraction, 0..1
	Params     map[string]float64
}

// Contributions calls the named Lua function with a hit table and converts
// the returned array of {source, kind, value} tables into modifier
// contributions. kind is one of flat, percent, factor, floor, ceil, set.
func (e *Engine) Contributions(name string, hc HitContext) ([]modifier.Contribution, error) {
	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("lua function %s not found", name)
	}

	t := e.vm.NewTable()
	t.RawSetString("owner", lua.LNumber(hc.Owner.Index()))
	t.RawSetString("attacker", lua.LNumber(hc.Attacker.Index()))
	t.RawSetString("target", lua.LNumber(hc.Target.Index()))
	t.RawSetString("outgoing", lua.LBool(hc.Attacker == hc.Owner))
	t.RawSetString("raw", lua.LNumber(hc.Raw))
	t.RawSetString("kind", lua.LString(hc.Kind))
	t.RawSetString("tick", lua.LNumber(hc.Tick))
	t.RawSetString("level", lua.LNumber(hc.Level))
	t.RawSetString("multiplier", lua.LNumber(hc.Multiplier))
	t.RawSetString("health", lua.LNumber(hc.Health))
	params := e.vm.NewTable()
	for k, v := range hc.Params {
		params.RawSetString(k, lua.LNumber(v))
	}
	t.RawSetString("params", params)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		return nil, fmt.Errorf("lua %s: %w", name, err)
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)

	switch rt := result.(type) {
	case *lua.LNilType:
		return nil, nil
	case *lua.LTable:
		return parseContributions(name, rt)
	default:
		return nil, fmt.Errorf("lua %s returned %s, want table", name, result.Type())
	}
}

func parseContributions(name string, rt *lua.LTable) ([]modifier.Contribution, error) {
	out := make([]modifier.Contribution, 0, rt.Len())
	for i := 1; i <= rt.Len(); i++ {
		ct, ok := rt.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("lua %s: entry %d is not a table", name, i)
		}
		src := lStr(ct, "source")
		if src == "" {
			src = name
		}
		v := lNum(ct, "value")
		switch kind := lStr(ct, "kind"); kind {
		case "flat":
			out = append(out, modifier.Flat(src, v))
		case "percent":
			out = append(out, modifier.Percent(src, v))
		case "factor":
			out = append(out, modifier.Factor(src, v))
		case "floor":
			out = append(out, modifier.AtLeast(src, v))
		case "ceil":
			out = append(out, modifier.AtMost(src, v))
		case "set":
			out = append(out, modifier.Exactly(src, v))
		default:
			return nil, fmt.Errorf("lua %s: entry %d has unknown kind %q", name, i, kind)
		}
	}
	return out, nil
}

// lNum reads a numeric field from a Lua table.
func lNum(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// callNumber calls a Lua function with numeric args and returns a number.
// ok is false when the function is missing, fails or returns a non-number.
func (e *Engine) callNumber(name string, args ...float64) (float64, bool) {
	fn, isFn := e.vm.GetGlobal(name).(*lua.LFunction)
	if !isFn {
		return 0, false
	}

	lArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lArgs[i] = lua.LNumber(a)
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lArgs...); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
		return 0, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, isNum := result.(lua.LNumber)
	if !isNum {
		e.log.Error("lua function returned non-number", zap.String("func", name))
		return 0, false
	}
	return float64(n), true
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
