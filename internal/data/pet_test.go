package data

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadShippedPetTable(t *testing.T) {
	tbl, err := LoadPetTable(filepath.Join("..", "..", "data", "yaml", "pets.yaml"))
	require.NoError(t, err)
	require.Equal(t, 5, tbl.Count())

	cat := tbl.Get(1)
	require.NotNil(t, cat)
	assert.Equal(t, "Shadow Cat", cat.Name)
	assert.Equal(t, "execute", cat.Passive.Type)
	require.NotNil(t, cat.Ultimate)
	assert.Equal(t, 25.0, cat.Ultimate.Cooldown)
	assert.True(t, cat.Ultimate.Auto)
	assert.Equal(t, 0.5, cat.Ultimate.Param("bonus", 0))

	bear := tbl.GetByName("Polar Bear")
	require.NotNil(t, bear)
	assert.Nil(t, bear.Ultimate)

	all := tbl.All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestParamDefault(t *testing.T) {
	var nilDef *AbilityDef
	assert.Equal(t, 3.0, nilDef.Param("x", 3))

	d := &AbilityDef{Params: map[string]float64{"x": 1}}
	assert.Equal(t, 1.0, d.Param("x", 3))
	assert.Equal(t, 3.0, d.Param("y", 3))
}

func TestParsePetTableRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing passive", `
pets:
  - id: 1
    name: a
`},
		{"duplicate pet", `
pets:
  - id: 1
    name: a
    passive: {id: p1, type: execute}
  - id: 1
    name: b
    passive: {id: p2, type: execute}
`},
		{"duplicate ability id", `
pets:
  - id: 1
    name: a
    passive: {id: same, type: execute}
  - id: 2
    name: b
    passive: {id: same, type: execute}
`},
		{"unknown policy", `
pets:
  - id: 1
    name: a
    passive: {id: p1, type: execute}
    ultimate: {id: u1, type: combo_burst, policy: queue}
`},
		{"negative cooldown", `
pets:
  - id: 1
    name: a
    passive: {id: p1, type: execute}
    ultimate: {id: u1, type: combo_burst, cooldown: -1}
`},
		{"scripted without script", `
pets:
  - id: 1
    name: a
    passive: {id: p1, type: scripted}
`},
		{"not yaml", "pets: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePetTable([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadPetTableMissingFile(t *testing.T) {
	_, err := LoadPetTable(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
