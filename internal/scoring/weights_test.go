package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optionscan/optionscan/internal/strategy"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.validate())

	for _, st := range strategy.AllTypes() {
		w, err := cfg.Weights(st)
		require.NoError(t, err, "weights for %s", st)
		assert.Greater(t, w.Max(), 0.0)

		_, err = cfg.TenorWindowFor(st)
		require.NoError(t, err, "tenor window for %s", st)

		floor, err := cfg.OIFloorFor(st)
		require.NoError(t, err, "oi floor for %s", st)
		assert.GreaterOrEqual(t, floor, 1)
	}
}

func TestDefaultConfig_MaximaDifferAcrossTypes(t *testing.T) {
	cfg := DefaultConfig()

	condor, err := cfg.Weights(strategy.IronCondor)
	require.NoError(t, err)
	collar, err := cfg.Weights(strategy.SyntheticCollar)
	require.NoError(t, err)

	assert.NotEqual(t, condor.Max(), collar.Max(),
		"raw scales are per-type; only normalized scores compare")
}

func TestConfig_ValidateRejectsMissingStrategy(t *testing.T) {
	cfg := DefaultConfig()
	delete(cfg.Strategies, string(strategy.PMCC))

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing weights")
}

func TestConfig_ValidateRejectsOutOfBoundsWeight(t *testing.T) {
	cfg := DefaultConfig()
	w := cfg.Strategies[string(strategy.CSP)]
	w.ROI = 95
	cfg.Strategies[string(strategy.CSP)] = w

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside")
}

func TestConfig_ValidateRejectsLaxFourLegFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OIFloors[string(strategy.IronCondor)] = 150 // ties the spread floor

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "four-leg")
}

func TestConfig_ValidateRejectsMalformedTenor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tenor[string(strategy.CSP)] = TenorWindow{MinDTE: 45, MaxDTE: 21}

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}

func TestLoadConfig_RoundTrip(t *testing.T) {
	yamlDoc := `
strategies:
  csp: {roi: 35, cushion: 30, theta_gamma: 20, liquidity: 15}
  covered_call: {roi: 30, cushion: 30, theta_gamma: 25, liquidity: 15}
  collar: {roi: 25, cushion: 35, theta_gamma: 10, liquidity: 15}
  iron_condor: {roi: 40, cushion: 35, theta_gamma: 25, liquidity: 20}
  bull_put_spread: {roi: 40, cushion: 30, theta_gamma: 20, liquidity: 20}
  bear_call_spread: {roi: 40, cushion: 30, theta_gamma: 20, liquidity: 20}
  pmcc: {roi: 35, cushion: 20, theta_gamma: 20, liquidity: 15}
  synthetic_collar: {roi: 30, cushion: 25, theta_gamma: 10, liquidity: 15}
tenor_sweet_spots:
  csp: {min_dte: 21, max_dte: 45}
  covered_call: {min_dte: 21, max_dte: 45}
  collar: {min_dte: 30, max_dte: 90}
  iron_condor: {min_dte: 25, max_dte: 50}
  bull_put_spread: {min_dte: 20, max_dte: 45}
  bear_call_spread: {min_dte: 20, max_dte: 45}
  pmcc: {min_dte: 25, max_dte: 60}
  synthetic_collar: {min_dte: 14, max_dte: 45}
open_interest_floors:
  csp: 100
  covered_call: 100
  collar: 100
  iron_condor: 250
  bull_put_spread: 150
  bear_call_spread: 150
  pmcc: 100
  synthetic_collar: 100
targets:
  annualized_roi: 0.30
  cushion_std_devs: 2.0
  spread_pct: 0.10
validation:
  min_weight: 5
  max_weight: 60
`
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.Strategies, cfg.Strategies)
	assert.Equal(t, def.Tenor, cfg.Tenor)
	assert.Equal(t, def.OIFloors, cfg.OIFloors)
	assert.Equal(t, def.Targets, cfg.Targets)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestLoadConfig_RejectsInvalidTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategies: {}\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

// Equal inputs must land on equal normalized scores regardless of the
// strategy's raw scale.
func TestNormalizedScore_ComparableAcrossScales(t *testing.T) {
	cfg := DefaultConfig()

	for _, st := range strategy.AllTypes() {
		w, err := cfg.Weights(st)
		require.NoError(t, err)

		// Every sub-score at its ceiling.
		base := 1.0*w.ROI + 1.0*w.Cushion + 1.0*w.ThetaGamma + 1.0*w.Liquidity
		normalized := base / w.Max() * 100

		assert.InDelta(t, 100.0, normalized, 1e-9, "perfect %s candidate normalizes to 100", st)
	}
}
