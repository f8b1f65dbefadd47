package scoring

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/optionscan/optionscan/internal/strategy"
)

// StrategyWeights is the declarative weight table for one strategy type.
// Sub-scores are normalized to [0,1], so the theoretical maximum score
// for the type is the plain sum of its weights. Maxima deliberately
// differ across types; cross-strategy comparison goes through
// Breakdown.NormalizedScore, never raw scores.
type StrategyWeights struct {
	ROI        float64 `yaml:"roi"`
	Cushion    float64 `yaml:"cushion"`
	ThetaGamma float64 `yaml:"theta_gamma"`
	Liquidity  float64 `yaml:"liquidity"`
}

// Max is the strategy's theoretical maximum score.
func (w StrategyWeights) Max() float64 {
	return w.ROI + w.Cushion + w.ThetaGamma + w.Liquidity
}

// TenorWindow is the DTE sweet spot for a strategy type; candidates
// outside it take the tenor penalty.
type TenorWindow struct {
	MinDTE int `yaml:"min_dte"`
	MaxDTE int `yaml:"max_dte"`
}

// Targets maps raw metrics onto full sub-scores.
type Targets struct {
	// AnnualizedROI that earns the full ROI sub-score.
	AnnualizedROI float64 `yaml:"annualized_roi"`
	// CushionStdDevs of strike distance that earns the full cushion
	// sub-score.
	CushionStdDevs float64 `yaml:"cushion_std_devs"`
	// SpreadPct at or above which the spread-quality component hits zero.
	SpreadPct float64 `yaml:"spread_pct"`
}

// Validation bounds applied when loading a weights table.
type Validation struct {
	MinWeight float64 `yaml:"min_weight"`
	MaxWeight float64 `yaml:"max_weight"`
}

// Config is the full declarative scoring configuration: per-strategy
// weight tables, tenor sweet spots, and per-strategy open-interest
// floors for the hard liquidity filter.
type Config struct {
	Strategies map[string]StrategyWeights `yaml:"strategies"`
	Tenor      map[string]TenorWindow     `yaml:"tenor_sweet_spots"`
	OIFloors   map[string]int             `yaml:"open_interest_floors"`
	Targets    Targets                    `yaml:"targets"`
	Validation Validation                 `yaml:"validation"`
}

// LoadConfig reads and validates a scoring configuration from YAML.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scoring config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scoring config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("scoring config validation failed: %w", err)
	}
	return &cfg, nil
}

// DefaultConfig returns the built-in scoring configuration, mirrored by
// config/scoring_weights.yaml.
func DefaultConfig() *Config {
	cfg := &Config{
		Strategies: map[string]StrategyWeights{
			string(strategy.CSP):             {ROI: 35, Cushion: 30, ThetaGamma: 20, Liquidity: 15},
			string(strategy.CoveredCall):     {ROI: 30, Cushion: 30, ThetaGamma: 25, Liquidity: 15},
			string(strategy.Collar):          {ROI: 25, Cushion: 35, ThetaGamma: 10, Liquidity: 15},
			string(strategy.IronCondor):      {ROI: 40, Cushion: 35, ThetaGamma: 25, Liquidity: 20},
			string(strategy.BullPutSpread):   {ROI: 40, Cushion: 30, ThetaGamma: 20, Liquidity: 20},
			string(strategy.BearCallSpread):  {ROI: 40, Cushion: 30, ThetaGamma: 20, Liquidity: 20},
			string(strategy.PMCC):            {ROI: 35, Cushion: 20, ThetaGamma: 20, Liquidity: 15},
			string(strategy.SyntheticCollar): {ROI: 30, Cushion: 25, ThetaGamma: 10, Liquidity: 15},
		},
		Tenor: map[string]TenorWindow{
			string(strategy.CSP):             {MinDTE: 21, MaxDTE: 45},
			string(strategy.CoveredCall):     {MinDTE: 21, MaxDTE: 45},
			string(strategy.Collar):          {MinDTE: 30, MaxDTE: 90},
			string(strategy.IronCondor):      {MinDTE: 25, MaxDTE: 50},
			string(strategy.BullPutSpread):   {MinDTE: 20, MaxDTE: 45},
			string(strategy.BearCallSpread):  {MinDTE: 20, MaxDTE: 45},
			string(strategy.PMCC):            {MinDTE: 25, MaxDTE: 60},
			string(strategy.SyntheticCollar): {MinDTE: 14, MaxDTE: 45},
		},
		OIFloors: map[string]int{
			string(strategy.CSP):             100,
			string(strategy.CoveredCall):     100,
			string(strategy.Collar):          100,
			string(strategy.IronCondor):      250,
			string(strategy.BullPutSpread):   150,
			string(strategy.BearCallSpread):  150,
			string(strategy.PMCC):            100,
			string(strategy.SyntheticCollar): 100,
		},
		Targets: Targets{
			AnnualizedROI:  0.30,
			CushionStdDevs: 2.0,
			SpreadPct:      0.10,
		},
		Validation: Validation{MinWeight: 5, MaxWeight: 60},
	}

	if err := cfg.validate(); err != nil {
		// The built-in table is covered by tests; reaching this is a
		// programming error, not an input error.
		panic(fmt.Sprintf("default scoring config invalid: %v", err))
	}
	return cfg
}

// Weights returns the weight table for a strategy type.
func (c *Config) Weights(t strategy.Type) (StrategyWeights, error) {
	w, ok := c.Strategies[string(t)]
	if !ok {
		return StrategyWeights{}, fmt.Errorf("no weights configured for strategy type %q", t)
	}
	return w, nil
}

// TenorWindowFor returns the configured DTE sweet spot for a type.
func (c *Config) TenorWindowFor(t strategy.Type) (TenorWindow, error) {
	tw, ok := c.Tenor[string(t)]
	if !ok {
		return TenorWindow{}, fmt.Errorf("no tenor sweet spot configured for strategy type %q", t)
	}
	return tw, nil
}

// OIFloorFor returns the hard open-interest floor for a type.
func (c *Config) OIFloorFor(t strategy.Type) (int, error) {
	floor, ok := c.OIFloors[string(t)]
	if !ok {
		return 0, fmt.Errorf("no open-interest floor configured for strategy type %q", t)
	}
	return floor, nil
}

func (c *Config) validate() error {
	maxFourLegFloorDonor := 0

	for _, t := range strategy.AllTypes() {
		name := string(t)

		w, ok := c.Strategies[name]
		if !ok {
			return fmt.Errorf("missing weights for strategy type %s", name)
		}
		for label, v := range map[string]float64{
			"roi": w.ROI, "cushion": w.Cushion, "theta_gamma": w.ThetaGamma, "liquidity": w.Liquidity,
		} {
			if v < c.Validation.MinWeight || v > c.Validation.MaxWeight {
				return fmt.Errorf("strategy %s weight %s (%.2f) outside [%.2f, %.2f]",
					name, label, v, c.Validation.MinWeight, c.Validation.MaxWeight)
			}
		}
		if math.IsNaN(w.Max()) || w.Max() <= 0 {
			return fmt.Errorf("strategy %s has a non-positive theoretical maximum", name)
		}

		tw, ok := c.Tenor[name]
		if !ok {
			return fmt.Errorf("missing tenor sweet spot for strategy type %s", name)
		}
		if tw.MinDTE <= 0 || tw.MaxDTE <= tw.MinDTE {
			return fmt.Errorf("strategy %s tenor window [%d, %d] is malformed", name, tw.MinDTE, tw.MaxDTE)
		}

		floor, ok := c.OIFloors[name]
		if !ok {
			return fmt.Errorf("missing open-interest floor for strategy type %s", name)
		}
		if floor < 1 {
			return fmt.Errorf("strategy %s open-interest floor %d must be at least 1", name, floor)
		}
		if !strategy.FourLegged(t) && floor > maxFourLegFloorDonor {
			maxFourLegFloorDonor = floor
		}
	}

	// Four-leg structures carry a strict minimum: their floor must exceed
	// every two-or-fewer-leg floor.
	for _, t := range strategy.AllTypes() {
		if strategy.FourLegged(t) && c.OIFloors[string(t)] <= maxFourLegFloorDonor {
			return fmt.Errorf("four-leg strategy %s floor %d must exceed the strictest non-four-leg floor %d",
				t, c.OIFloors[string(t)], maxFourLegFloorDonor)
		}
	}

	if c.Targets.AnnualizedROI <= 0 || c.Targets.CushionStdDevs <= 0 || c.Targets.SpreadPct <= 0 {
		return fmt.Errorf("scoring targets must be positive")
	}

	return nil
}

// DefaultConfigPath is where the scan CLI looks for the weights file.
func DefaultConfigPath() string {
	return filepath.Join("config", "scoring_weights.yaml")
}
