package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optionscan/optionscan/internal/dist"
	"github.com/optionscan/optionscan/internal/pricing"
	"github.com/optionscan/optionscan/internal/strategy"
)

// healthyInputs builds a CSP candidate that should rank cleanly: solid
// expectancy, liquid book, mid-window tenor, no earnings in sight.
func healthyInputs(t *testing.T) Inputs {
	t.Helper()

	inst, err := strategy.NewInstance(strategy.CSP,
		[]strategy.Leg{{Kind: pricing.Put, Position: strategy.Short, Strike: 95, Premium: 2.0, Quantity: 1}},
		100, 0.01, 30, nil)
	require.NoError(t, err)

	return Inputs{
		Instance: inst,
		Summary: dist.Summary{
			ExpectedPnL:   85,
			P5:            -220,
			P50:           120,
			P95:           200,
			StdDev:        130,
			SharpeLike:    85.0 / 130,
			CapitalAtRisk: 9300,
			AnnualizedROI: 0.11,
			Paths:         1000,
		},
		NetGreeks:        pricing.Greeks{Delta: 0.30, Gamma: -0.02, Vega: -11, Theta: 14},
		Legs:             []LegLiquidity{{OpenInterest: 800, Volume: 600, SpreadPct: 0.02}},
		Volatility:       0.22,
		EarningsInDays:   -1,
		ExpectedDividend: 0.20,
	}
}

func TestEngine_RankedHappyPath(t *testing.T) {
	engine := NewEngine(nil)

	out := engine.Evaluate(healthyInputs(t))

	require.Equal(t, StatusRanked, out.Verdict.Status, "detail: %s", out.Verdict.Detail)
	require.NotNil(t, out.Breakdown)

	b := out.Breakdown
	assert.Greater(t, b.BaseScore, 0.0)
	assert.LessOrEqual(t, b.FinalScore, b.BaseScore, "penalties only shrink the score")
	assert.Greater(t, b.NormalizedScore, 0.0)
	assert.LessOrEqual(t, b.NormalizedScore, 100.0)
	assert.Len(t, b.Penalties, 4, "all four penalty factors are always recorded")
	assert.Len(t, b.Filters, 4, "every hard filter is recorded even when passing")

	for _, name := range []string{"roi", "cushion", "theta_gamma", "liquidity"} {
		assert.Contains(t, b.SubScores, name)
	}
}

func TestEngine_NegativeExpectancyAlwaysHardFiltered(t *testing.T) {
	engine := NewEngine(nil)

	in := healthyInputs(t)
	in.Summary.ExpectedPnL = -1
	in.Summary.P50 = -5
	in.Summary.AnnualizedROI = -0.001

	out := engine.Evaluate(in)

	require.Equal(t, StatusHardFiltered, out.Verdict.Status,
		"negative expectancy must exclude regardless of score magnitude")
	assert.Equal(t, ReasonNegativeExpectancy, out.Verdict.Reason)
	require.NotNil(t, out.Breakdown, "the score is still computed and recorded before filtering")
}

func TestEngine_EarningsWindowHardFilter(t *testing.T) {
	engine := NewEngine(nil)

	in := healthyInputs(t)
	in.EarningsInDays = 2

	out := engine.Evaluate(in)
	require.Equal(t, StatusHardFiltered, out.Verdict.Status)
	assert.Equal(t, ReasonEarningsWindow, out.Verdict.Reason)

	// At 4 days the filter passes but the proximity penalty still bites.
	in.EarningsInDays = 4
	out = engine.Evaluate(in)
	require.Equal(t, StatusRanked, out.Verdict.Status)
	var earn Penalty
	for _, p := range out.Breakdown.Penalties {
		if p.Name == "earnings_proximity" {
			earn = p
		}
	}
	assert.Less(t, earn.Multiplier, 0.7, "4 days out sits near the bottom of the ramp")
}

func TestEngine_OpenInterestFloor(t *testing.T) {
	engine := NewEngine(nil)

	in := healthyInputs(t)
	in.Legs[0].OpenInterest = 5

	out := engine.Evaluate(in)
	require.Equal(t, StatusHardFiltered, out.Verdict.Status)
	assert.Equal(t, ReasonOpenInterestFloor, out.Verdict.Reason)
}

func TestEngine_FourLegFloorIsStricter(t *testing.T) {
	cfg := DefaultConfig()
	cspFloor, err := cfg.OIFloorFor(strategy.CSP)
	require.NoError(t, err)
	condorFloor, err := cfg.OIFloorFor(strategy.IronCondor)
	require.NoError(t, err)

	assert.Greater(t, condorFloor, cspFloor, "four-leg structures demand a deeper book on every leg")
}

func TestEngine_DividendAssignmentRisk(t *testing.T) {
	engine := NewEngine(nil)

	inst, err := strategy.NewInstance(strategy.CoveredCall,
		// Deep ITM short call: premium 10.2 against 10 of intrinsic
		// leaves 0.20 extrinsic.
		[]strategy.Leg{{Kind: pricing.Call, Position: strategy.Short, Strike: 90, Premium: 10.2, Quantity: 1}},
		100, 0.03, 30, nil)
	require.NoError(t, err)

	in := healthyInputs(t)
	in.Instance = inst
	in.ExpectedDividend = 0.75 // exceeds the 0.20 extrinsic

	out := engine.Evaluate(in)
	require.Equal(t, StatusHardFiltered, out.Verdict.Status)
	assert.Equal(t, ReasonAssignmentRisk, out.Verdict.Reason)

	in.ExpectedDividend = 0.10
	out = engine.Evaluate(in)
	assert.Equal(t, StatusRanked, out.Verdict.Status, "covered dividend passes: %s", out.Verdict.Detail)
}

func TestEngine_ErroredIsDistinctFromHardFiltered(t *testing.T) {
	engine := NewEngine(nil)

	// Missing instance: evaluation fault.
	out := engine.Evaluate(Inputs{})
	require.Equal(t, StatusErrored, out.Verdict.Status)
	assert.Equal(t, ReasonInvalidStructure, out.Verdict.Reason)
	assert.Nil(t, out.Breakdown)

	// Corrupt percentile ordering: the simulation cannot be trusted.
	in := healthyInputs(t)
	in.Summary.P5 = 500
	out = engine.Evaluate(in)
	require.Equal(t, StatusErrored, out.Verdict.Status)
	assert.Equal(t, ReasonInvalidSimulation, out.Verdict.Reason)
	assert.NotEqual(t, StatusHardFiltered, out.Verdict.Status,
		"a broken evaluation must never masquerade as a judged trade")
}

func TestEngine_PenaltyChainOrderAndMultipliers(t *testing.T) {
	engine := NewEngine(nil)

	in := healthyInputs(t)
	in.Instance.DaysToExpiration = 90 // outside the CSP sweet spot
	in.Legs[0].Volume = 100           // turnover 0.125: bottom tier
	in.EarningsInDays = 24            // mid-ramp

	out := engine.Evaluate(in)
	require.Equal(t, StatusRanked, out.Verdict.Status)

	p := out.Breakdown.Penalties
	require.Len(t, p, 4)
	assert.Equal(t, "tenor_fit", p[0].Name)
	assert.Equal(t, 0.70, p[0].Multiplier)
	assert.Equal(t, "liquidity_turnover", p[1].Name)
	assert.Equal(t, 0.65, p[1].Multiplier)
	assert.Equal(t, "earnings_proximity", p[2].Name)
	assert.InDelta(t, 0.80, p[2].Multiplier, 1e-9, "0.60 + 0.40*(24-3)/42")
	assert.Equal(t, "theta_gamma", p[3].Name)

	want := out.Breakdown.BaseScore
	for _, pen := range p {
		want *= pen.Multiplier
	}
	assert.InDelta(t, want, out.Breakdown.FinalScore, 1e-9, "final is the ordered product of the chain")
}

func TestTurnoverPenalty_FourLegTiers(t *testing.T) {
	p := turnoverPenalty(strategy.IronCondor, 0.35)
	assert.Equal(t, 0.80, p.Multiplier, "0.35 lands in the four-leg middle tier")

	p = turnoverPenalty(strategy.BullPutSpread, 0.35)
	assert.Equal(t, 0.85, p.Multiplier, "0.35 clears the two-leg middle tier")

	p = turnoverPenalty(strategy.IronCondor, 0.2)
	assert.Equal(t, 0.55, p.Multiplier)

	p = turnoverPenalty(strategy.CSP, 0.2)
	assert.Equal(t, 0.65, p.Multiplier)
}

func TestEarningsPenalty_Ramp(t *testing.T) {
	assert.Equal(t, 0.60, earningsPenalty(3).Multiplier)
	assert.Equal(t, 0.60, earningsPenalty(0).Multiplier, "clamped below 3 days")
	assert.Equal(t, 1.0, earningsPenalty(45).Multiplier)
	assert.Equal(t, 1.0, earningsPenalty(300).Multiplier)
	assert.Equal(t, 1.0, earningsPenalty(-1).Multiplier, "unknown earnings are not penalized")
	assert.InDelta(t, 0.80, earningsPenalty(24).Multiplier, 1e-9)
}
