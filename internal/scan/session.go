// Package scan orchestrates one end-to-end scan session: simulation,
// payoff evaluation, distribution summary, and scoring over a candidate
// batch, fanned out across a bounded worker pool.
package scan

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/optionscan/optionscan/internal/chain"
	"github.com/optionscan/optionscan/internal/dist"
	"github.com/optionscan/optionscan/internal/metrics"
	"github.com/optionscan/optionscan/internal/pricing"
	"github.com/optionscan/optionscan/internal/scoring"
	"github.com/optionscan/optionscan/internal/simulate"
	"github.com/optionscan/optionscan/internal/strategy"
)

// SimulationConfig controls the Monte Carlo leg of a session.
type SimulationConfig struct {
	// Paths is the terminal-price draw count per candidate.
	Paths int `yaml:"paths"`
	// Drift is the annualized drift assumption. It has no sensible
	// universal default and must be set explicitly by the caller.
	Drift float64 `yaml:"drift"`
	// RiskFreeRate is used for the analytic Greeks.
	RiskFreeRate float64 `yaml:"risk_free_rate"`
	// VolOverride, when positive, replaces every candidate's implied
	// vol in both simulation and Greeks.
	VolOverride float64 `yaml:"vol_override"`
	// Seed, when set, makes the whole session bit-for-bit reproducible.
	// Each candidate derives its own uncorrelated stream from it.
	Seed *int64 `yaml:"seed"`
}

// Config is the full session configuration.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	// Workers bounds evaluation concurrency; 0 selects NumCPU.
	Workers int `yaml:"workers"`
}

// Record is the complete evaluation trail for one candidate.
type Record struct {
	CandidateID string            `json:"candidate_id"`
	Symbol      string            `json:"symbol"`
	Strategy    strategy.Type     `json:"strategy"`
	Legs        []strategy.Leg    `json:"legs"`
	NetGreeks   pricing.Greeks    `json:"net_greeks"`
	Summary     dist.Summary      `json:"summary"`
	Outcome     scoring.Outcome   `json:"outcome"`
}

// Result is one completed (or cancelled) session.
type Result struct {
	SessionID  string        `json:"session_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Candidates int           `json:"candidates"`
	Records    []Record      `json:"records"`
}

// Ranked returns the ranked records ordered by normalized score,
// highest first, with the candidate id as a stable tie-break.
func (r *Result) Ranked() []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Outcome.Verdict.Status == scoring.StatusRanked {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		si := out[i].Outcome.Breakdown.NormalizedScore
		sj := out[j].Outcome.Breakdown.NormalizedScore
		if si != sj {
			return si > sj
		}
		return out[i].CandidateID < out[j].CandidateID
	})
	return out
}

// Session evaluates candidate batches. All state is explicit: two
// sessions with the same config and seed produce identical results.
type Session struct {
	id      string
	cfg     Config
	engine  *scoring.Engine
	metrics *metrics.Set
	log     zerolog.Logger
}

// NewSession validates the configuration and builds a session. A nil
// metrics set disables instrumentation.
func NewSession(cfg Config, engine *scoring.Engine, m *metrics.Set, logger zerolog.Logger) (*Session, error) {
	if cfg.Simulation.Paths < 1 {
		return nil, fmt.Errorf("simulation paths %d must be at least 1", cfg.Simulation.Paths)
	}
	if math.IsNaN(cfg.Simulation.Drift) || math.IsInf(cfg.Simulation.Drift, 0) {
		return nil, fmt.Errorf("drift must be a finite annualized rate")
	}
	if cfg.Simulation.RiskFreeRate < 0 {
		return nil, fmt.Errorf("risk-free rate %.4f is negative", cfg.Simulation.RiskFreeRate)
	}
	if cfg.Simulation.VolOverride < 0 {
		return nil, fmt.Errorf("vol override %.4f is negative", cfg.Simulation.VolOverride)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if engine == nil {
		engine = scoring.NewEngine(nil)
	}

	id := uuid.New().String()
	return &Session{
		id:      id,
		cfg:     cfg,
		engine:  engine,
		metrics: m,
		log:     logger.With().Str("session_id", id).Logger(),
	}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Run evaluates the batch. One candidate's failure lands in its own
// Errored record and never aborts the rest. On cancellation the records
// completed so far are returned alongside the context error; candidates
// not yet started are discarded.
func (s *Session) Run(ctx context.Context, candidates []chain.Candidate) (*Result, error) {
	start := time.Now()
	s.log.Info().
		Int("candidates", len(candidates)).
		Int("workers", s.cfg.Workers).
		Int("paths", s.cfg.Simulation.Paths).
		Msg("scan session started")

	records := make([]Record, len(candidates))
	completed := make([]bool, len(candidates))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				records[idx] = s.evaluate(candidates[idx])
				completed[idx] = true
			}
		}()
	}

	var runErr error
feed:
	for i := range candidates {
		select {
		case jobs <- i:
		case <-ctx.Done():
			runErr = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	result := &Result{
		SessionID:  s.id,
		StartedAt:  start,
		Duration:   time.Since(start),
		Candidates: len(candidates),
	}
	for i, done := range completed {
		if done {
			result.Records = append(result.Records, records[i])
		}
	}

	ranked := 0
	for _, rec := range result.Records {
		s.metrics.RecordOutcome(string(rec.Strategy), string(rec.Outcome.Verdict.Status), string(rec.Outcome.Verdict.Reason))
		if rec.Outcome.Verdict.Status == scoring.StatusRanked {
			ranked++
		}
	}
	s.metrics.RecordScan(result.Duration, len(result.Records), ranked, len(result.Records)*s.cfg.Simulation.Paths)

	s.log.Info().
		Int("evaluated", len(result.Records)).
		Int("ranked", ranked).
		Dur("duration", result.Duration).
		Err(runErr).
		Msg("scan session finished")
	return result, runErr
}

// evaluate runs the full pipeline for one candidate. A panic anywhere
// inside becomes that candidate's Errored record.
func (s *Session) evaluate(c chain.Candidate) (rec Record) {
	rec = Record{
		CandidateID: c.ID,
		Symbol:      c.Symbol,
	}
	if c.Instance != nil {
		rec.Strategy = c.Instance.Type
		rec.Legs = c.Instance.Legs
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("candidate", c.ID).Interface("panic", r).Msg("candidate evaluation panicked")
			rec.Outcome = erroredOutcome(scoring.ReasonScoringFault, fmt.Sprintf("evaluation panicked: %v", r))
		}
	}()

	if c.Instance == nil {
		rec.Outcome = erroredOutcome(scoring.ReasonInvalidStructure, "candidate has no strategy instance")
		return rec
	}

	vol := c.Volatility
	if s.cfg.Simulation.VolOverride > 0 {
		vol = s.cfg.Simulation.VolOverride
	}

	horizon := float64(c.Instance.DaysToExpiration) / 365.0

	net, err := s.netGreeks(c.Instance, vol, horizon)
	if err != nil {
		rec.Outcome = erroredOutcome(scoring.ReasonInvalidStructure, err.Error())
		return rec
	}
	rec.NetGreeks = net

	terminals, err := s.terminalPrices(c, vol, horizon)
	if err != nil {
		rec.Outcome = erroredOutcome(scoring.ReasonInvalidSimulation, err.Error())
		return rec
	}

	pnl := make([]float64, len(terminals))
	for i, terminal := range terminals {
		p, err := c.Instance.PayoffPerContract(terminal, c.ExpectedDividend)
		if err != nil {
			rec.Outcome = erroredOutcome(scoring.ReasonInvalidSimulation, err.Error())
			return rec
		}
		pnl[i] = p
	}

	summary, err := dist.Summarize(pnl, c.Instance.CapitalAtRisk(), c.Instance.DaysToExpiration)
	if err != nil {
		rec.Outcome = erroredOutcome(scoring.ReasonInvalidSimulation, err.Error())
		return rec
	}
	rec.Summary = summary

	rec.Outcome = s.engine.Evaluate(scoring.Inputs{
		Instance:         c.Instance,
		Summary:          summary,
		NetGreeks:        net,
		Legs:             c.Legs,
		Volatility:       vol,
		EarningsInDays:   c.EarningsInDays,
		ExpectedDividend: c.ExpectedDividend,
	})
	return rec
}

// netGreeks sums per-leg analytic Greeks with position sign: long legs
// add, short legs subtract.
func (s *Session) netGreeks(inst *strategy.Instance, vol, horizon float64) (pricing.Greeks, error) {
	var net pricing.Greeks
	for i, leg := range inst.Legs {
		g, err := pricing.PriceAndGreeks(
			inst.Spot, leg.Strike, s.cfg.Simulation.RiskFreeRate, inst.DividendYield, vol, horizon, leg.Kind)
		if err != nil {
			return pricing.Greeks{}, fmt.Errorf("greeks for leg %d: %w", i, err)
		}
		sign := 1.0
		if leg.Position == strategy.Short {
			sign = -1.0
		}
		net.Price += sign * g.Price
		net.Delta += sign * g.Delta
		net.Gamma += sign * g.Gamma
		net.Vega += sign * g.Vega
		net.Theta += sign * g.Theta
	}
	return net, nil
}

func (s *Session) terminalPrices(c chain.Candidate, vol, horizon float64) ([]float64, error) {
	return simulate.TerminalPrices(c.Instance.Spot, s.cfg.Simulation.Drift, vol, horizon,
		s.cfg.Simulation.Paths, s.candidateSeed(c.ID))
}

// candidateSeed derives a per-candidate seed by folding the candidate id
// into the base seed, so parallel candidate streams are uncorrelated
// while the whole session stays reproducible. A nil base seed keeps the
// entropy-seeded default.
func (s *Session) candidateSeed(candidateID string) *int64 {
	if s.cfg.Simulation.Seed == nil {
		return nil
	}
	h := fnv.New64a()
	h.Write([]byte(candidateID))
	derived := *s.cfg.Simulation.Seed ^ int64(h.Sum64())
	return &derived
}

func erroredOutcome(reason scoring.ReasonCode, detail string) scoring.Outcome {
	return scoring.Outcome{Verdict: scoring.Verdict{
		Status: scoring.StatusErrored,
		Reason: reason,
		Detail: detail,
	}}
}
