package pet

import (
	"fmt"
	"sort"

	"github.com/petfx/server/internal/data"
)

// Factory builds an ability instance from its YAML definition.
type Factory func(d *Deps, def *data.AbilityDef) (Ability, error)

// Factories maps the YAML `type` field to a constructor.
type Factories struct {
	byType map[string]Factory
}

// NewFactories returns a registry holding every built-in ability type.
func NewFactories() *Factories {
	f := &Factories{byType: make(map[string]Factory, 16)}
	f.Register("combo_burst", newComboBurst)
	f.Register("predator_mark", newPredatorMark)
	f.Register("frost_stacks", newFrostStacks)
	f.Register("pack_hunter", newPackHunter)
	f.Register("blood_frenzy", newBloodFrenzy)
	f.Register("execute", newExecute)
	f.Register("charged_strike", newChargedStrike)
	f.Register("frost_fur", newFrostFur)
	f.Register("scripted", newScripted)
	return f
}

// Register adds or replaces the constructor for typ.
func (f *Factories) Register(typ string, fn Factory) {
	f.byType[typ] = fn
}

func (f *Factories) Build(d *Deps, def *data.AbilityDef) (Ability, error) {
	fn, ok := f.byType[def.Type]
	if !ok {
		return nil, fmt.Errorf("ability %s: unknown type %q", def.ID, def.Type)
	}
	a, err := fn(d, def)
	if err != nil {
		return nil, fmt.Errorf("ability %s: %w", def.ID, err)
	}
	return a, nil
}

// Types lists the registered type names, sorted.
func (f *Factories) Types() []string {
	out := make([]string, 0, len(f.byType))
	for t := range f.byType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Validate checks that every ability in the table has a constructor.
func (f *Factories) Validate(t *data.PetTable) error {
	for _, p := range t.All() {
		for _, def := range []*data.AbilityDef{p.Passive, p.Ultimate} {
			if def == nil {
				continue
			}
			if _, ok := f.byType[def.Type]; !ok {
				return fmt.Errorf("pet %d (%s): ability %s: unknown type %q", p.ID, p.Name, def.ID, def.Type)
			}
		}
	}
	return nil
}
