package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "petfx.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[engine]
tick_rate = "100ms"
passive_interval = 40
keep_cooldowns_on_unequip = false

[logging]
format = "json"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100*time.Millisecond, cfg.Engine.TickRate)
	assert.Equal(t, int64(40), cfg.Engine.PassiveInterval)
	assert.False(t, cfg.Engine.KeepCooldownsOnUnequip)
	assert.Equal(t, "json", cfg.Logging.Format)

	// untouched keys keep their defaults
	assert.Equal(t, int64(10), cfg.Engine.UltimateInterval)
	assert.Equal(t, "data/yaml/pets.yaml", cfg.Data.PetsPath)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotZero(t, cfg.Server.StartTime)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero tick rate", "[engine]\ntick_rate = \"0s\"\n"},
		{"zero interval", "[engine]\nsweep_interval = 0\n"},
		{"journal without dsn", "[journal]\nenabled = true\ndsn = \"\"\n"},
		{"bad toml", "[engine\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv("PETFX_CONFIG", "/etc/petfx.toml")
	assert.Equal(t, "/etc/petfx.toml", Path())
	t.Setenv("PETFX_CONFIG", "")
	assert.Equal(t, "config/petfx.toml", Path())
}

func TestShippedConfigParses(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "petfx.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Engine.TickRate, cfg.Engine.TickRate)
	assert.False(t, cfg.Journal.Enabled)
}
