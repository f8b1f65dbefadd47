package scan

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "simulation:\n  paths: 5000\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Simulation.Paths)
	assert.Equal(t, 0.04, cfg.Simulation.RiskFreeRate, "unset fields keep the built-in defaults")
	assert.True(t, math.IsNaN(cfg.Simulation.Drift), "drift stays unset until the caller provides it")
	assert.Nil(t, cfg.Simulation.Seed)
}

func TestLoadConfig_ParsesSeed(t *testing.T) {
	path := writeConfig(t, "simulation:\n  paths: 100\n  drift: 0.05\n  seed: 42\nworkers: 8\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Simulation.Seed)
	assert.Equal(t, int64(42), *cfg.Simulation.Seed)
	assert.Equal(t, 0.05, cfg.Simulation.Drift)
	assert.Equal(t, 8, cfg.Workers)
}

func TestLoadConfig_Rejections(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"zero paths", "simulation:\n  paths: 0\n"},
		{"negative rate", "simulation:\n  risk_free_rate: -0.01\n"},
		{"negative vol override", "simulation:\n  vol_override: -0.1\n"},
		{"negative workers", "workers: -1\n"},
		{"malformed yaml", "simulation: [not a map\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}
