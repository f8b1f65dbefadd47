package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/optionscan/optionscan/internal/chain"
	"github.com/optionscan/optionscan/internal/httpapi"
	"github.com/optionscan/optionscan/internal/metrics"
	"github.com/optionscan/optionscan/internal/scan"
	"github.com/optionscan/optionscan/internal/scoring"
)

var (
	serveHost     string
	servePort     int
	serveInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scans on an interval and serve results over HTTP",
	Long: `Serve runs the scan pipeline on a fixed interval and exposes the most
recent result on a read-only HTTP surface: /health, /candidates, and
Prometheus /metrics.

Scan flags (snapshots, symbols, drift, paths, seed) apply to every
refresh.

Example usage:
  optionscan serve --snapshots ./snapshots --symbols SPY --drift 0.05 --port 8080 --interval 5m`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().AddFlagSet(scanCmd.Flags())
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Bind address")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Bind port")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 5*time.Minute, "Rescan interval")

	_ = serveCmd.MarkFlagRequired("symbols")
	_ = serveCmd.MarkFlagRequired("drift")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger()

	cfg, err := loadScoringConfig()
	if err != nil {
		return err
	}
	types, err := resolveStrategies()
	if err != nil {
		return err
	}

	m := metrics.NewSet()
	engine := scoring.NewEngine(cfg)
	provider := chain.NewFileProvider(scanSnapshotDir)
	builder := chain.NewBuilder(chain.DefaultBuildConfig(), logger)

	serverCfg := httpapi.DefaultServerConfig()
	serverCfg.Host = serveHost
	serverCfg.Port = servePort
	server := httpapi.NewServer(serverCfg, m, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	refresh := func() {
		scanCtx, cancel := context.WithTimeout(ctx, scanTimeout)
		defer cancel()

		var candidates []chain.Candidate
		for _, symbol := range scanSymbols {
			snap, err := provider.Fetch(scanCtx, symbol)
			if err != nil {
				logger.Error().Str("symbol", symbol).Err(err).Msg("snapshot fetch failed")
				continue
			}
			built, err := builder.Build(snap, types)
			if err != nil {
				logger.Error().Str("symbol", symbol).Err(err).Msg("candidate build failed")
				continue
			}
			candidates = append(candidates, built...)
		}
		if len(candidates) == 0 {
			logger.Warn().Msg("refresh produced no candidates")
			return
		}

		sessionCfg, err := sessionConfig(cmd)
		if err != nil {
			logger.Error().Err(err).Msg("session config invalid")
			return
		}

		session, err := scan.NewSession(sessionCfg, engine, m, logger)
		if err != nil {
			logger.Error().Err(err).Msg("session setup failed")
			return
		}
		result, err := session.Run(scanCtx, candidates)
		if err != nil {
			logger.Error().Err(err).Msg("scan run interrupted")
		}
		if result != nil && len(result.Records) > 0 {
			server.Publish(result)
		}
	}

	refresh()
	go func() {
		ticker := time.NewTicker(serveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				refresh()
			case <-ctx.Done():
				return
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
