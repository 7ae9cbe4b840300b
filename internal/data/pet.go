package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// AbilityDef is one ability template as written in pets.yaml.
type AbilityDef struct {
	ID       string // unique ability id, used as the slot key
	Type     string // factory key, e.g. "combo_burst"
	Name     string
	Cooldown float64 // seconds; 0 for passives
	Policy   string  // "supersede" (default) or "deny"
	Auto     bool    // ultimate auto-activates when ready
	Script   string  // Lua function name for type "scripted"
	Params   map[string]float64
}

// Param returns the named parameter, or def when absent.
func (d *AbilityDef) Param(key string, def float64) float64 {
	if d == nil {
		return def
	}
	if v, ok := d.Params[key]; ok {
		return v
	}
	return def
}

// PetInfo holds a single pet template.
type PetInfo struct {
	ID       int32
	Name     string
	Rarity   string
	Passive  *AbilityDef
	Ultimate *AbilityDef // nil when the pet has no active ability
}

// PetTable holds all pets indexed by ID.
type PetTable struct {
	pets   map[int32]*PetInfo
	byName map[string]*PetInfo
}

// Get returns a pet by ID, or nil if not found.
func (t *PetTable) Get(id int32) *PetInfo {
	return t.pets[id]
}

func (t *PetTable) GetByName(name string) *PetInfo {
	return t.byName[name]
}

// Count returns total loaded pets.
func (t *PetTable) Count() int {
	return len(t.pets)
}

// All returns every pet sorted by ID.
func (t *PetTable) All() []*PetInfo {
	result := make([]*PetInfo, 0, len(t.pets))
	for _, p := range t.pets {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// --- YAML loading ---

type abilityEntry struct {
	ID       string             `yaml:"id"`
	Type     string             `yaml:"type"`
	Name     string             `yaml:"name"`
	Cooldown float64            `yaml:"cooldown"`
	Policy   string             `yaml:"policy"`
	Auto     bool               `yaml:"auto"`
	Script   string             `yaml:"script"`
	Params   map[string]float64 `yaml:"params"`
}

type petEntry struct {
	ID       int32         `yaml:"id"`
	Name     string        `yaml:"name"`
	Rarity   string        `yaml:"rarity"`
	Passive  *abilityEntry `yaml:"passive"`
	Ultimate *abilityEntry `yaml:"ultimate"`
}

type petListFile struct {
	Pets []petEntry `yaml:"pets"`
}

// LoadPetTable loads pet definitions from YAML.
func LoadPetTable(path string) (*PetTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pets: %w", err)
	}
	return ParsePetTable(raw)
}

// ParsePetTable builds a table from YAML bytes.
func ParsePetTable(raw []byte) (*PetTable, error) {
	var f petListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse pets: %w", err)
	}
	t := &PetTable{
		pets:   make(map[int32]*PetInfo, len(f.Pets)),
		byName: make(map[string]*PetInfo, len(f.Pets)),
	}
	abilityIDs := make(map[string]int32)
	for i := range f.Pets {
		e := &f.Pets[i]
		if _, dup := t.pets[e.ID]; dup {
			return nil, fmt.Errorf("pet %d: duplicate id", e.ID)
		}
		if e.Passive == nil {
			return nil, fmt.Errorf("pet %d (%s): missing passive", e.ID, e.Name)
		}
		info := &PetInfo{ID: e.ID, Name: e.Name, Rarity: e.Rarity}
		for _, a := range []*abilityEntry{e.Passive, e.Ultimate} {
			if a == nil {
				continue
			}
			def, err := a.toDef()
			if err != nil {
				return nil, fmt.Errorf("pet %d (%s): %w", e.ID, e.Name, err)
			}
			if other, taken := abilityIDs[def.ID]; taken {
				return nil, fmt.Errorf("pet %d: ability id %q already used by pet %d", e.ID, def.ID, other)
			}
			abilityIDs[def.ID] = e.ID
			if a == e.Passive {
				info.Passive = def
			} else {
				info.Ultimate = def
			}
		}
		t.pets[e.ID] = info
		t.byName[e.Name] = info
	}
	return t, nil
}

func (a *abilityEntry) toDef() (*AbilityDef, error) {
	if a.ID == "" || a.Type == "" {
		return nil, fmt.Errorf("ability needs id and type")
	}
	if a.Cooldown < 0 {
		return nil, fmt.Errorf("ability %s: negative cooldown", a.ID)
	}
	switch a.Policy {
	case "", "supersede", "deny":
	default:
		return nil, fmt.Errorf("ability %s: unknown policy %q", a.ID, a.Policy)
	}
	if a.Type == "scripted" && a.Script == "" {
		return nil, fmt.Errorf("ability %s: scripted ability needs a script", a.ID)
	}
	params := a.Params
	if params == nil {
		params = map[string]float64{}
	}
	return &AbilityDef{
		ID:       a.ID,
		Type:     a.Type,
		Name:     a.Name,
		Cooldown: a.Cooldown,
		Policy:   a.Policy,
		Auto:     a.Auto,
		Script:   a.Script,
		Params:   params,
	}, nil
}
