package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/optionscan/optionscan/internal/chain"
	"github.com/optionscan/optionscan/internal/metrics"
	"github.com/optionscan/optionscan/internal/scan"
	"github.com/optionscan/optionscan/internal/scoring"
	"github.com/optionscan/optionscan/internal/strategy"
)

var (
	scanSnapshotDir string
	scanSymbols     []string
	scanStrategies  []string
	scanPaths       int
	scanDrift       float64
	scanVolOverride float64
	scanSeed        int64
	scanRate        float64
	scanWorkers     int
	scanWeightsPath string
	scanConfigPath  string
	scanFormat      string
	scanTimeout     time.Duration
	scanShowAll     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan chain snapshots and rank strategy candidates",
	Long: `Scan reads chain snapshots from disk, assembles one candidate per
strategy type per symbol, simulates terminal prices, and prints the
ranked survivors.

The drift assumption shapes every simulated distribution, so it has no
default: state it explicitly with --drift.

Example usage:
  optionscan scan --snapshots ./snapshots --symbols SPY,QQQ --drift 0.05
  optionscan scan --snapshots ./snapshots --symbols SPY --drift 0.0 --seed 42 --format json`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanSnapshotDir, "snapshots", "snapshots", "Directory of chain snapshot JSON files")
	scanCmd.Flags().StringSliceVar(&scanSymbols, "symbols", nil, "Symbols to scan (required)")
	scanCmd.Flags().StringSliceVar(&scanStrategies, "strategies", nil, "Strategy types to build (default: all)")
	scanCmd.Flags().IntVar(&scanPaths, "paths", 10000, "Monte Carlo paths per candidate")
	scanCmd.Flags().Float64Var(&scanDrift, "drift", 0, "Annualized drift assumption (required)")
	scanCmd.Flags().Float64Var(&scanVolOverride, "vol", 0, "Override implied vol for all candidates")
	scanCmd.Flags().Int64Var(&scanSeed, "seed", 0, "Base RNG seed for reproducible runs")
	scanCmd.Flags().Float64Var(&scanRate, "rate", 0.04, "Risk-free rate for analytic Greeks")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "Evaluation workers (default: NumCPU)")
	scanCmd.Flags().StringVar(&scanWeightsPath, "weights", "", "Scoring weights YAML (default: built-in tables)")
	scanCmd.Flags().StringVar(&scanConfigPath, "config", "", "Scan defaults YAML (flags override it)")
	scanCmd.Flags().StringVar(&scanFormat, "format", "table", "Output format: table, json")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 5*time.Minute, "Overall scan timeout")
	scanCmd.Flags().BoolVar(&scanShowAll, "all", false, "Include filtered and errored candidates in output")

	_ = scanCmd.MarkFlagRequired("symbols")
	_ = scanCmd.MarkFlagRequired("drift")
}

func runScan(cmd *cobra.Command, _ []string) error {
	logger := newLogger()

	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	cfg, err := loadScoringConfig()
	if err != nil {
		return err
	}

	types, err := resolveStrategies()
	if err != nil {
		return err
	}

	provider := chain.NewFileProvider(scanSnapshotDir)
	builder := chain.NewBuilder(chain.DefaultBuildConfig(), logger)

	var candidates []chain.Candidate
	for _, symbol := range scanSymbols {
		snap, err := provider.Fetch(ctx, symbol)
		if err != nil {
			return fmt.Errorf("snapshot for %s: %w", symbol, err)
		}
		built, err := builder.Build(snap, types)
		if err != nil {
			return fmt.Errorf("building candidates for %s: %w", symbol, err)
		}
		candidates = append(candidates, built...)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no candidates could be assembled from the snapshots")
	}

	sessionCfg, err := sessionConfig(cmd)
	if err != nil {
		return err
	}

	session, err := scan.NewSession(sessionCfg, scoring.NewEngine(cfg), metrics.NewSet(), logger)
	if err != nil {
		return err
	}

	result, err := session.Run(ctx, candidates)
	if err != nil {
		return err
	}

	switch strings.ToLower(scanFormat) {
	case "json":
		return outputJSON(result)
	default:
		return outputTable(result, scanShowAll)
	}
}

// sessionConfig layers explicit flags over the scan config file (or the
// built-in defaults). Drift is always taken from the required flag.
func sessionConfig(cmd *cobra.Command) (scan.Config, error) {
	cfg := scan.DefaultConfig()
	if scanConfigPath != "" {
		loaded, err := scan.LoadConfig(scanConfigPath)
		if err != nil {
			return scan.Config{}, err
		}
		cfg = loaded
	}

	cfg.Simulation.Drift = scanDrift
	if cmd.Flags().Changed("paths") {
		cfg.Simulation.Paths = scanPaths
	}
	if cmd.Flags().Changed("rate") {
		cfg.Simulation.RiskFreeRate = scanRate
	}
	if cmd.Flags().Changed("vol") {
		cfg.Simulation.VolOverride = scanVolOverride
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = scanWorkers
	}
	if cmd.Flags().Changed("seed") {
		seed := scanSeed
		cfg.Simulation.Seed = &seed
	}
	return cfg, nil
}

func loadScoringConfig() (*scoring.Config, error) {
	if scanWeightsPath == "" {
		return scoring.DefaultConfig(), nil
	}
	return scoring.LoadConfig(scanWeightsPath)
}

func resolveStrategies() ([]strategy.Type, error) {
	if len(scanStrategies) == 0 {
		return strategy.AllTypes(), nil
	}
	known := map[strategy.Type]bool{}
	for _, t := range strategy.AllTypes() {
		known[t] = true
	}
	var out []strategy.Type
	for _, raw := range scanStrategies {
		t := strategy.Type(strings.ToLower(strings.TrimSpace(raw)))
		if !known[t] {
			return nil, fmt.Errorf("unknown strategy type %q", raw)
		}
		out = append(out, t)
	}
	return out, nil
}

func outputJSON(result *scan.Result) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputTable(result *scan.Result, showAll bool) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "SESSION\t%s\n", result.SessionID)
	fmt.Fprintf(w, "CANDIDATES\t%d evaluated in %s\n\n", len(result.Records), result.Duration.Round(time.Millisecond))

	fmt.Fprintln(w, "RANK\tCANDIDATE\tSCORE\tEXP P&L\tP5\tP95\tANN ROI\tCAPITAL")
	for i, rec := range result.Ranked() {
		b := rec.Outcome.Breakdown
		fmt.Fprintf(w, "%d\t%s\t%.1f\t$%.2f\t$%.2f\t$%.2f\t%.1f%%\t$%.2f\n",
			i+1,
			rec.CandidateID,
			b.NormalizedScore,
			rec.Summary.ExpectedPnL,
			rec.Summary.P5,
			rec.Summary.P95,
			rec.Summary.AnnualizedROI*100,
			rec.Summary.CapitalAtRisk,
		)
	}

	if showAll {
		fmt.Fprintln(w, "\nCANDIDATE\tSTATUS\tREASON\tDETAIL")
		for _, rec := range result.Records {
			if rec.Outcome.Verdict.Status == scoring.StatusRanked {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				rec.CandidateID,
				rec.Outcome.Verdict.Status,
				rec.Outcome.Verdict.Reason,
				rec.Outcome.Verdict.Detail,
			)
		}
	}

	return w.Flush()
}
