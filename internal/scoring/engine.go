// Package scoring folds analytic Greeks and summarized simulation output
// into a composable, auditable score, then applies hard filters that can
// exclude a candidate outright.
//
// Failure semantics are strict: a fault anywhere inside scoring surfaces
// as an Errored verdict on the candidate. A failed computation is never
// downgraded to a neutral score or an absent penalty.
package scoring

import (
	"fmt"
	"math"

	"github.com/optionscan/optionscan/internal/dist"
	"github.com/optionscan/optionscan/internal/pricing"
	"github.com/optionscan/optionscan/internal/strategy"
)

// LegLiquidity carries per-leg book quality, parallel to the instance's
// leg slice.
type LegLiquidity struct {
	OpenInterest int     `json:"open_interest"`
	Volume       int     `json:"volume"`
	SpreadPct    float64 `json:"spread_pct"` // (ask-bid)/mid
}

// Inputs is everything the engine consumes for one candidate. Populated
// entirely at construction by the scan layer; the engine reads no
// ambient state.
type Inputs struct {
	Instance *strategy.Instance
	Summary  dist.Summary
	// NetGreeks are the signed net position Greeks: long legs add, short
	// legs subtract.
	NetGreeks pricing.Greeks
	Legs      []LegLiquidity
	// Volatility is the annualized figure the simulation ran with.
	Volatility float64
	// EarningsInDays is days until the next earnings event; negative
	// means none inside the scan horizon.
	EarningsInDays int
	// ExpectedDividend is the per-share dividend expected during the
	// holding period.
	ExpectedDividend float64
}

// Engine evaluates candidates through three stages: Validate, Score
// (with the penalty chain), and the hard filters.
type Engine struct {
	cfg *Config
}

// NewEngine builds an engine; a nil config selects the built-in tables.
func NewEngine(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg}
}

// Evaluate runs the full Validate -> Score -> Penalize -> Filter pass
// for one candidate and never panics outward: every failure path lands
// in an explicit Errored verdict.
func (e *Engine) Evaluate(in Inputs) Outcome {
	if verdict, ok := e.validate(in); !ok {
		return Outcome{Verdict: verdict}
	}

	breakdown, err := e.score(in)
	if err != nil {
		return Outcome{Verdict: Verdict{
			Status: StatusErrored,
			Reason: ReasonScoringFault,
			Detail: err.Error(),
		}}
	}

	e.applyFilters(in, breakdown)

	verdict := Verdict{Status: StatusRanked}
	for _, check := range breakdown.Filters {
		if !check.Passed {
			verdict = Verdict{Status: StatusHardFiltered, Reason: check.Reason, Detail: check.Detail}
			break
		}
	}

	return Outcome{Verdict: verdict, Breakdown: breakdown}
}

// validate confirms the instance and simulation summary are well-formed.
// A failure here is an evaluation fault, distinct from a deliberate
// exclusion.
func (e *Engine) validate(in Inputs) (Verdict, bool) {
	errored := func(reason ReasonCode, format string, args ...interface{}) (Verdict, bool) {
		return Verdict{Status: StatusErrored, Reason: reason, Detail: fmt.Sprintf(format, args...)}, false
	}

	if in.Instance == nil {
		return errored(ReasonInvalidStructure, "candidate has no strategy instance")
	}
	if err := in.Instance.Validate(); err != nil {
		return errored(ReasonInvalidStructure, "instance validation: %v", err)
	}
	if len(in.Legs) != len(in.Instance.Legs) {
		return errored(ReasonInvalidStructure, "liquidity for %d legs, instance has %d", len(in.Legs), len(in.Instance.Legs))
	}
	if _, err := e.cfg.Weights(in.Instance.Type); err != nil {
		return errored(ReasonInvalidStructure, "%v", err)
	}

	s := in.Summary
	if s.Paths < 1 {
		return errored(ReasonInvalidSimulation, "summary covers no simulated paths")
	}
	if math.IsNaN(s.ExpectedPnL) || math.IsInf(s.ExpectedPnL, 0) {
		return errored(ReasonInvalidSimulation, "expected P&L is not finite")
	}
	if s.CapitalAtRisk <= 0 {
		return errored(ReasonInvalidSimulation, "capital at risk %.4f is not positive", s.CapitalAtRisk)
	}
	if !(s.P5 <= s.P50 && s.P50 <= s.P95) {
		return errored(ReasonInvalidSimulation, "percentile ordering violated: p5=%.2f p50=%.2f p95=%.2f", s.P5, s.P50, s.P95)
	}
	if in.Volatility <= 0 {
		return errored(ReasonInvalidSimulation, "volatility %.4f is not positive", in.Volatility)
	}
	for label, v := range map[string]float64{
		"delta": in.NetGreeks.Delta, "gamma": in.NetGreeks.Gamma,
		"vega": in.NetGreeks.Vega, "theta": in.NetGreeks.Theta,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errored(ReasonInvalidSimulation, "net %s is not finite", label)
		}
	}

	return Verdict{}, true
}

// score computes the weighted base score and applies the penalty chain.
func (e *Engine) score(in Inputs) (*Breakdown, error) {
	weights, err := e.cfg.Weights(in.Instance.Type)
	if err != nil {
		return nil, err
	}
	window, err := e.cfg.TenorWindowFor(in.Instance.Type)
	if err != nil {
		return nil, err
	}

	cushion := e.cushionStdDevs(in)
	tgRatio := thetaGammaRatio(in.NetGreeks, in.Instance.Spot)

	sub := map[string]float64{
		"roi":         clamp01(in.Summary.AnnualizedROI / e.cfg.Targets.AnnualizedROI),
		"cushion":     clamp01(cushion / e.cfg.Targets.CushionStdDevs),
		"theta_gamma": thetaGammaTier(tgRatio),
		"liquidity":   e.liquidityQuality(in.Legs),
	}

	base := sub["roi"]*weights.ROI +
		sub["cushion"]*weights.Cushion +
		sub["theta_gamma"]*weights.ThetaGamma +
		sub["liquidity"]*weights.Liquidity

	if math.IsNaN(base) || math.IsInf(base, 0) {
		return nil, fmt.Errorf("base score is not finite (sub-scores %v)", sub)
	}

	penalties := []Penalty{
		tenorPenalty(window, in.Instance.DaysToExpiration),
		turnoverPenalty(in.Instance.Type, minTurnover(in.Legs)),
		earningsPenalty(in.EarningsInDays),
		thetaGammaPenalty(tgRatio),
	}

	final := base
	for _, p := range penalties {
		if math.IsNaN(p.Multiplier) || p.Multiplier <= 0 || p.Multiplier > 1 {
			return nil, fmt.Errorf("penalty %s produced multiplier %.4f outside (0, 1]", p.Name, p.Multiplier)
		}
		final *= p.Multiplier
	}

	return &Breakdown{
		SubScores:       sub,
		BaseScore:       base,
		TheoreticalMax:  weights.Max(),
		Penalties:       penalties,
		FinalScore:      final,
		NormalizedScore: final / weights.Max() * 100,
	}, nil
}

// applyFilters runs the hard filters after scoring so the breakdown
// always records why a candidate fell, independent of its score.
func (e *Engine) applyFilters(in Inputs, b *Breakdown) {
	inst := in.Instance

	expectancy := FilterCheck{
		Name:   "expected_pnl",
		Reason: ReasonNegativeExpectancy,
		Detail: fmt.Sprintf("expected P&L $%.2f per contract", in.Summary.ExpectedPnL),
		Passed: in.Summary.ExpectedPnL >= 0,
	}

	earnings := FilterCheck{
		Name:   "earnings_window",
		Reason: ReasonEarningsWindow,
		Passed: true,
		Detail: "no earnings inside 3 days",
	}
	if in.EarningsInDays >= 0 && in.EarningsInDays <= 3 {
		earnings.Passed = false
		earnings.Detail = fmt.Sprintf("earnings in %d days", in.EarningsInDays)
	}

	floor, _ := e.cfg.OIFloorFor(inst.Type)
	oi := FilterCheck{
		Name:   "open_interest_floor",
		Reason: ReasonOpenInterestFloor,
		Passed: true,
		Detail: fmt.Sprintf("all legs at or above %d open interest", floor),
	}
	for i, leg := range in.Legs {
		if leg.OpenInterest < floor {
			oi.Passed = false
			oi.Detail = fmt.Sprintf("leg %d open interest %d below floor %d", i, leg.OpenInterest, floor)
			break
		}
	}

	assignment := FilterCheck{
		Name:   "assignment_risk",
		Reason: ReasonAssignmentRisk,
		Passed: true,
		Detail: "dividend covered by short-call extrinsic",
	}
	if in.ExpectedDividend > 0 {
		for i, leg := range inst.Legs {
			if leg.Position != strategy.Short || leg.Kind != pricing.Call {
				continue
			}
			extrinsic := leg.Premium - math.Max(0, inst.Spot-leg.Strike)
			if in.ExpectedDividend > extrinsic {
				assignment.Passed = false
				assignment.Detail = fmt.Sprintf(
					"dividend $%.2f exceeds leg %d short-call extrinsic $%.2f", in.ExpectedDividend, i, extrinsic)
				break
			}
		}
	}

	b.Filters = []FilterCheck{expectancy, earnings, oi, assignment}
}

// cushionStdDevs measures the tightest short-strike distance in standard
// deviations of expected movement over the holding period.
func (e *Engine) cushionStdDevs(in Inputs) float64 {
	inst := in.Instance
	horizon := float64(inst.DaysToExpiration) / 365.0
	sigma := inst.Spot * in.Volatility * math.Sqrt(horizon)
	if sigma <= 0 {
		return 0
	}

	cushion := math.Inf(1)
	for _, leg := range inst.Legs {
		if leg.Position != strategy.Short {
			continue
		}
		var d float64
		if leg.Kind == pricing.Put {
			d = (inst.Spot - leg.Strike) / sigma
		} else {
			d = (leg.Strike - inst.Spot) / sigma
		}
		cushion = math.Min(cushion, d)
	}
	if math.IsInf(cushion, 1) {
		return 0
	}
	return math.Max(0, cushion)
}

// liquidityQuality blends bid/ask tightness with turnover into [0,1].
func (e *Engine) liquidityQuality(legs []LegLiquidity) float64 {
	if len(legs) == 0 {
		return 0
	}

	spreadSum := 0.0
	for _, leg := range legs {
		spreadSum += leg.SpreadPct
	}
	avgSpread := spreadSum / float64(len(legs))
	spreadQuality := clamp01(1 - avgSpread/e.cfg.Targets.SpreadPct)
	turnoverQuality := clamp01(minTurnover(legs) / 0.5)

	return 0.6*spreadQuality + 0.4*turnoverQuality
}

// minTurnover is volume/open-interest at the least liquid leg.
func minTurnover(legs []LegLiquidity) float64 {
	turnover := math.Inf(1)
	for _, leg := range legs {
		if leg.OpenInterest <= 0 {
			return 0
		}
		turnover = math.Min(turnover, float64(leg.Volume)/float64(leg.OpenInterest))
	}
	if math.IsInf(turnover, 1) {
		return 0
	}
	return turnover
}

// thetaGammaRatio compares daily decay income against the dollar
// convexity of a 1% move. NetGreeks are signed position Greeks, so a
// net-short premium seller carries positive theta here. Pure decay with
// no convexity maps to +Inf.
func thetaGammaRatio(net pricing.Greeks, spot float64) float64 {
	dailyDecay := net.Theta / 365.0
	move := 0.01 * spot
	gammaRisk := 0.5 * math.Abs(net.Gamma) * move * move

	if gammaRisk < 1e-12 {
		if dailyDecay > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return dailyDecay / gammaRisk
}

// thetaGammaTier maps the ratio onto the desirability sub-score.
func thetaGammaTier(ratio float64) float64 {
	switch {
	case ratio >= 1.0:
		return 1.0
	case ratio >= 0.5:
		return 0.6
	default:
		return 0.25
	}
}

// clamp01 deliberately lets NaN flow through: a poisoned sub-score must
// reach the finite check and error, never quietly floor to zero.
func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
