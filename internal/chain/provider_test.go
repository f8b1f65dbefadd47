package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSnapshotFile(t *testing.T, dir string, snap *Snapshot) {
	t.Helper()
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, snap.Symbol+".json"), data, 0o644))
}

func TestFileProvider_Fetch(t *testing.T) {
	dir := t.TempDir()
	writeSnapshotFile(t, dir, testSnapshot())

	p := NewFileProvider(dir)

	snap, err := p.Fetch(context.Background(), "test")
	require.NoError(t, err, "symbol lookup is case-insensitive")
	assert.Equal(t, "TEST", snap.Symbol)
	assert.Equal(t, 100.0, snap.Spot)
	assert.Len(t, snap.Puts, 5)
}

func TestFileProvider_MissingSymbol(t *testing.T) {
	p := NewFileProvider(t.TempDir())

	_, err := p.Fetch(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read snapshot")
}

func TestFileProvider_RejectsMalformedSnapshot(t *testing.T) {
	dir := t.TempDir()
	snap := testSnapshot()
	snap.Spot = 0
	writeSnapshotFile(t, dir, snap)

	p := NewFileProvider(dir)
	_, err := p.Fetch(context.Background(), "TEST")
	require.Error(t, err)
}

func TestHTTPProvider_Fetch(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewEncoder(w).Encode(testSnapshot()))
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(DefaultHTTPProviderConfig(srv.URL), zerolog.Nop())
	require.NoError(t, err)

	snap, err := p.Fetch(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, "/chains/TEST", gotPath)
	assert.Equal(t, "TEST", snap.Symbol)
}

func TestHTTPProvider_BreakerOpensOnRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := DefaultHTTPProviderConfig(srv.URL)
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 100
	cfg.BreakerFailures = 3

	p, err := NewHTTPProvider(cfg, zerolog.Nop())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = p.Fetch(context.Background(), "TEST")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 502")
	}

	// Fourth attempt is shed by the breaker without touching the server.
	_, err = p.Fetch(context.Background(), "TEST")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestHTTPProvider_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPProvider(HTTPProviderConfig{}, zerolog.Nop())
	require.Error(t, err)
}

func TestSnapshotValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"zero spot", func(s *Snapshot) { s.Spot = 0 }},
		{"negative dividend yield", func(s *Snapshot) { s.DividendYield = -0.01 }},
		{"negative rate", func(s *Snapshot) { s.RiskFreeRate = -0.01 }},
		{"zero dte", func(s *Snapshot) { s.DaysToExpiration = 0 }},
		{"no quotes", func(s *Snapshot) { s.Calls, s.Puts = nil, nil }},
		{"leaps inside front expiry", func(s *Snapshot) { s.LeapsDTE = 10 }},
		{"no symbol", func(s *Snapshot) { s.Symbol = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := testSnapshot()
			tc.mutate(snap)
			assert.Error(t, snap.Validate())
		})
	}

	assert.NoError(t, testSnapshot().Validate())
}
