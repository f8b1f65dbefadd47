package scan

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// DefaultConfig returns the stock session settings, mirrored by
// config/scan.yaml. Drift deliberately has no default and must be set
// by the caller before the config is used.
func DefaultConfig() Config {
	return Config{
		Simulation: SimulationConfig{
			Paths:        10000,
			Drift:        math.NaN(),
			RiskFreeRate: 0.04,
		},
	}
}

// LoadConfig reads session defaults from YAML. Drift may be set in the
// file or left for the caller; everything else is validated here.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read scan config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse scan config: %w", err)
	}

	if cfg.Simulation.Paths < 1 {
		return Config{}, fmt.Errorf("scan config: paths %d must be at least 1", cfg.Simulation.Paths)
	}
	if cfg.Simulation.RiskFreeRate < 0 {
		return Config{}, fmt.Errorf("scan config: risk-free rate %.4f is negative", cfg.Simulation.RiskFreeRate)
	}
	if cfg.Simulation.VolOverride < 0 {
		return Config{}, fmt.Errorf("scan config: vol override %.4f is negative", cfg.Simulation.VolOverride)
	}
	if cfg.Workers < 0 {
		return Config{}, fmt.Errorf("scan config: workers %d is negative", cfg.Workers)
	}
	return cfg, nil
}

// DefaultConfigPath is where the CLI looks for scan defaults.
func DefaultConfigPath() string {
	return filepath.Join("config", "scan.yaml")
}
