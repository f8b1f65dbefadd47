package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Provider fetches a normalized chain snapshot for one underlying.
type Provider interface {
	Fetch(ctx context.Context, symbol string) (*Snapshot, error)
}

// FileProvider reads snapshots from <dir>/<SYMBOL>.json, the format the
// scan CLI consumes for offline and replay runs.
type FileProvider struct {
	dir string
}

func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

func (p *FileProvider) Fetch(_ context.Context, symbol string) (*Snapshot, error) {
	path := filepath.Join(p.dir, strings.ToUpper(symbol)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	return decodeSnapshot(data, symbol)
}

// HTTPProviderConfig tunes the remote snapshot client.
type HTTPProviderConfig struct {
	BaseURL string
	// RequestsPerSecond caps the request rate against the collaborator.
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	// BreakerFailures is the consecutive-failure count that opens the
	// circuit; BreakerCooldown is how long it stays open.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// DefaultHTTPProviderConfig returns conservative client settings.
func DefaultHTTPProviderConfig(baseURL string) HTTPProviderConfig {
	return HTTPProviderConfig{
		BaseURL:           baseURL,
		RequestsPerSecond: 4,
		Burst:             2,
		Timeout:           10 * time.Second,
		BreakerFailures:   5,
		BreakerCooldown:   30 * time.Second,
	}
}

// HTTPProvider fetches snapshots over HTTP behind a rate limiter and a
// circuit breaker, so a degraded collaborator slows or sheds scans
// instead of hammering the endpoint.
type HTTPProvider struct {
	cfg     HTTPProviderConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

func NewHTTPProvider(cfg HTTPProviderConfig, logger zerolog.Logger) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("snapshot provider requires a base URL")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid snapshot base URL %q: %w", cfg.BaseURL, err)
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 4
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	log := logger.With().Str("component", "chain_provider").Logger()

	settings := gobreaker.Settings{
		Name:    "chain-snapshots",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("snapshot circuit breaker state change")
		},
	}

	return &HTTPProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
		log:     log,
	}, nil
}

func (p *HTTPProvider) Fetch(ctx context.Context, symbol string) (*Snapshot, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter interrupted: %w", err)
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetchOnce(ctx, symbol)
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot fetch for %s: %w", symbol, err)
	}
	return result.(*Snapshot), nil
}

func (p *HTTPProvider) fetchOnce(ctx context.Context, symbol string) (*Snapshot, error) {
	endpoint := fmt.Sprintf("%s/chains/%s", strings.TrimRight(p.cfg.BaseURL, "/"), url.PathEscape(strings.ToUpper(symbol)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot body: %w", err)
	}

	snap, err := decodeSnapshot(body, symbol)
	if err != nil {
		return nil, err
	}

	p.log.Debug().
		Str("symbol", snap.Symbol).
		Int("calls", len(snap.Calls)).
		Int("puts", len(snap.Puts)).
		Dur("latency", time.Since(start)).
		Msg("snapshot fetched")
	return snap, nil
}

func decodeSnapshot(data []byte, symbol string) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot for %s: %w", symbol, err)
	}
	if snap.Symbol == "" {
		snap.Symbol = strings.ToUpper(symbol)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}
