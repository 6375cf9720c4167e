package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umuterturk/investment-game/internal/clock"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, clock.Date{Day: 1, Month: 3, Year: 2005}, cfg.StartDate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lifesim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
game:
  seed: 42
  end_age: 60
player:
  salary: 31000
  region: Scotland
loop:
  tick_interval: 250ms
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Game.Seed)
	assert.Equal(t, 60, cfg.Game.EndAge)
	assert.Equal(t, 31000.0, cfg.Player.Salary)
	assert.Equal(t, "Scotland", cfg.Player.Region)
	assert.Equal(t, 250*time.Millisecond, cfg.Loop.TickInterval)
	assert.Equal(t, 2005, cfg.Game.StartYear)
	assert.Equal(t, 8080, cfg.API.Port)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("game:\n  start_month: 13\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LIFESIM_SEED", "99")
	t.Setenv("LIFESIM_PORT", "9000")
	t.Setenv("LIFESIM_ADMIN_KEY", "secret")
	t.Setenv("LIFESIM_TICK_INTERVAL", "10ms")
	t.Setenv("LIFESIM_END_AGE", "not-a-number")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, int64(99), cfg.Game.Seed)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, "secret", cfg.API.AdminKey)
	assert.Equal(t, 10*time.Millisecond, cfg.Loop.TickInterval)
	assert.Equal(t, 45, cfg.Game.EndAge)
}
