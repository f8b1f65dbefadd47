// Package dist reduces a vector of simulated per-contract P&L samples
// into the summary statistics consumed by scoring.
package dist

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/optionscan/optionscan/internal/errs"
)

// Summary is the distilled simulation output for one candidate. All P&L
// figures are per contract.
type Summary struct {
	ExpectedPnL   float64 `json:"expected_pnl"`
	P5            float64 `json:"p5"`
	P50           float64 `json:"p50"`
	P95           float64 `json:"p95"`
	StdDev        float64 `json:"std_dev"`
	SharpeLike    float64 `json:"sharpe_like"`
	CapitalAtRisk float64 `json:"capital_at_risk"`
	AnnualizedROI float64 `json:"annualized_roi"`
	Paths         int     `json:"paths"`
}

// MarshalJSON renders the NaN Sharpe sentinel as null, since JSON has
// no NaN literal. In-process consumers still see the NaN itself.
func (s Summary) MarshalJSON() ([]byte, error) {
	type alias Summary
	out := struct {
		alias
		SharpeLike *float64 `json:"sharpe_like"`
	}{alias: alias(s)}
	if !math.IsNaN(s.SharpeLike) {
		out.SharpeLike = &s.SharpeLike
	}
	return json.Marshal(out)
}

// Summarize reduces pnl samples against the committed capital.
//
// SharpeLike is ExpectedPnL/StdDev; a degenerate distribution (zero
// standard deviation) yields an explicit NaN sentinel that downstream
// consumers must handle, never a silent zero.
func Summarize(pnl []float64, capitalAtRisk float64, daysToExpiration int) (Summary, error) {
	if len(pnl) == 0 {
		return Summary{}, fmt.Errorf("%w: no P&L samples to summarize", errs.ErrInvalidParameter)
	}
	if capitalAtRisk <= 0 {
		return Summary{}, fmt.Errorf("%w: capital at risk %.4f must be positive", errs.ErrInvalidParameter, capitalAtRisk)
	}
	if daysToExpiration <= 0 {
		return Summary{}, fmt.Errorf("%w: days to expiration %d must be positive", errs.ErrInvalidParameter, daysToExpiration)
	}
	for i, v := range pnl {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Summary{}, fmt.Errorf("%w: sample %d is not finite", errs.ErrSimulationFailure, i)
		}
	}

	mean := 0.0
	for _, v := range pnl {
		mean += v
	}
	mean /= float64(len(pnl))

	variance := 0.0
	for _, v := range pnl {
		d := v - mean
		variance += d * d
	}
	std := 0.0
	if len(pnl) > 1 {
		std = math.Sqrt(variance / float64(len(pnl)-1))
	}

	sorted := make([]float64, len(pnl))
	copy(sorted, pnl)
	sort.Float64s(sorted)

	sharpe := math.NaN()
	if std > 0 {
		sharpe = mean / std
	}

	return Summary{
		ExpectedPnL:   mean,
		P5:            percentile(sorted, 5),
		P50:           percentile(sorted, 50),
		P95:           percentile(sorted, 95),
		StdDev:        std,
		SharpeLike:    sharpe,
		CapitalAtRisk: capitalAtRisk,
		AnnualizedROI: (mean / capitalAtRisk) * (365.0 / float64(daysToExpiration)),
		Paths:         len(pnl),
	}, nil
}

// percentile interpolates linearly between the two nearest order
// statistics of an ascending-sorted sample.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
