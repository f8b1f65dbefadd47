// Package chain models normalized option-chain snapshots and assembles
// scannable strategy candidates from them.
package chain

import (
	"fmt"
	"time"

	"github.com/optionscan/optionscan/internal/errs"
)

// Quote is one option quote in a snapshot, per share.
type Quote struct {
	Strike       float64 `json:"strike"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	OpenInterest int     `json:"open_interest"`
	Volume       int     `json:"volume"`
	ImpliedVol   float64 `json:"implied_vol"`
}

// Mid is the usable per-share price: the bid/ask midpoint, or whichever
// side exists. Zero when the quote is empty on both sides.
func (q Quote) Mid() float64 {
	switch {
	case q.Bid > 0 && q.Ask > 0:
		return (q.Bid + q.Ask) / 2
	case q.Ask > 0:
		return q.Ask
	case q.Bid > 0:
		return q.Bid
	default:
		return 0
	}
}

// SpreadPct is (ask-bid)/mid, the spread-quality input for scoring.
// Quotes with no usable mid report 1.0, the worst possible spread.
func (q Quote) SpreadPct() float64 {
	mid := q.Mid()
	if mid <= 0 || q.Bid <= 0 || q.Ask <= 0 {
		return 1.0
	}
	return (q.Ask - q.Bid) / mid
}

// Snapshot is one normalized, single-expiration chain for one underlying,
// plus the long-dated calls needed to assemble diagonal structures.
type Snapshot struct {
	Symbol           string    `json:"symbol"`
	AsOf             time.Time `json:"as_of"`
	Spot             float64   `json:"spot"`
	DividendYield    float64   `json:"dividend_yield"`
	RiskFreeRate     float64   `json:"risk_free_rate"`
	DaysToExpiration int       `json:"days_to_expiration"`
	// EarningsInDays is days until the next earnings event; negative
	// means none inside the scan horizon.
	EarningsInDays int `json:"earnings_in_days"`
	// ExpectedDividend is the per-share dividend expected before the
	// front expiration.
	ExpectedDividend float64 `json:"expected_dividend"`

	Calls []Quote `json:"calls"`
	Puts  []Quote `json:"puts"`

	// LeapsCalls is the long-dated call series used for the long leg of
	// diagonal structures. LeapsDTE is its expiration distance.
	LeapsCalls []Quote `json:"leaps_calls,omitempty"`
	LeapsDTE   int     `json:"leaps_dte,omitempty"`
}

// Validate checks a snapshot before candidate assembly.
func (s *Snapshot) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("%w: snapshot has no symbol", errs.ErrInvalidParameter)
	}
	if s.Spot <= 0 {
		return fmt.Errorf("%w: %s spot %.4f must be positive", errs.ErrInvalidParameter, s.Symbol, s.Spot)
	}
	if s.DividendYield < 0 {
		return fmt.Errorf("%w: %s dividend yield %.4f is negative", errs.ErrInvalidParameter, s.Symbol, s.DividendYield)
	}
	if s.RiskFreeRate < 0 {
		return fmt.Errorf("%w: %s risk-free rate %.4f is negative", errs.ErrInvalidParameter, s.Symbol, s.RiskFreeRate)
	}
	if s.DaysToExpiration <= 0 {
		return fmt.Errorf("%w: %s days to expiration %d must be positive", errs.ErrInvalidParameter, s.Symbol, s.DaysToExpiration)
	}
	if len(s.Calls) == 0 && len(s.Puts) == 0 {
		return fmt.Errorf("%w: %s snapshot carries no quotes", errs.ErrInvalidParameter, s.Symbol)
	}
	if len(s.LeapsCalls) > 0 && s.LeapsDTE <= s.DaysToExpiration {
		return fmt.Errorf("%w: %s leaps expiration %d must sit beyond front expiration %d",
			errs.ErrInvalidParameter, s.Symbol, s.LeapsDTE, s.DaysToExpiration)
	}
	return nil
}
