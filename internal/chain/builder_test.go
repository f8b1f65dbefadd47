package chain

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optionscan/optionscan/internal/strategy"
)

// testSnapshot carries a tidy $5-spaced chain around a $100 spot, plus a
// deep ITM long-dated call series for the diagonals.
func testSnapshot() *Snapshot {
	put := func(strike, bid, ask float64) Quote {
		return Quote{Strike: strike, Bid: bid, Ask: ask, OpenInterest: 500, Volume: 300, ImpliedVol: 0.25}
	}
	call := put

	return &Snapshot{
		Symbol:           "TEST",
		Spot:             100,
		DividendYield:    0.01,
		RiskFreeRate:     0.04,
		DaysToExpiration: 30,
		EarningsInDays:   -1,
		ExpectedDividend: 0.10,
		Puts: []Quote{
			put(80, 0.25, 0.35),
			put(85, 0.50, 0.60),
			put(90, 0.95, 1.05),
			put(95, 2.40, 2.60),
			put(100, 4.40, 4.60),
		},
		Calls: []Quote{
			call(100, 4.40, 4.60),
			call(105, 1.90, 2.10),
			call(110, 0.75, 0.85),
			call(115, 0.30, 0.40),
		},
		LeapsCalls: []Quote{
			call(75, 28.00, 29.00),
			call(80, 23.50, 24.50),
			call(90, 15.50, 16.50),
		},
		LeapsDTE: 365,
	}
}

func TestBuilder_BuildsEveryStrategyType(t *testing.T) {
	b := NewBuilder(DefaultBuildConfig(), zerolog.Nop())

	cands, err := b.Build(testSnapshot(), strategy.AllTypes())
	require.NoError(t, err)
	require.Len(t, cands, len(strategy.AllTypes()), "a full chain supports every structure")

	byType := map[strategy.Type]Candidate{}
	for _, c := range cands {
		byType[c.Instance.Type] = c
		require.NoError(t, c.Instance.Validate())
		assert.Len(t, c.Legs, len(c.Instance.Legs), "liquidity runs parallel to legs")
		assert.Greater(t, c.Volatility, 0.0)
		assert.NotEmpty(t, c.ID)
	}

	csp := byType[strategy.CSP]
	assert.Equal(t, 95.0, csp.Instance.Legs[0].Strike, "5 percent OTM short put lands on the 95 strike")
	assert.InDelta(t, 2.50, csp.Instance.Legs[0].Premium, 1e-9, "premium is the bid/ask midpoint")

	condor := byType[strategy.IronCondor]
	strikes := []float64{
		condor.Instance.Legs[0].Strike,
		condor.Instance.Legs[1].Strike,
		condor.Instance.Legs[2].Strike,
		condor.Instance.Legs[3].Strike,
	}
	assert.Equal(t, []float64{90, 95, 105, 110}, strikes)
	assert.Greater(t, condor.Instance.NetCredit(), 0.0)

	pmcc := byType[strategy.PMCC]
	assert.Equal(t, 80.0, pmcc.Instance.Legs[0].Strike, "deep ITM long call")
	assert.Equal(t, 105.0, pmcc.Instance.Legs[1].Strike)
	require.NotNil(t, pmcc.Instance.LongLeg)
	assert.InDelta(t, float64(365-30)/365.0, pmcc.Instance.LongLeg.TailYears, 1e-12)
	assert.Equal(t, 0.25, pmcc.Instance.LongLeg.ImpliedVol)
}

func TestBuilder_SkipsUnsupportedStructures(t *testing.T) {
	b := NewBuilder(DefaultBuildConfig(), zerolog.Nop())

	snap := testSnapshot()
	snap.LeapsCalls = nil
	snap.LeapsDTE = 0

	cands, err := b.Build(snap, strategy.AllTypes())
	require.NoError(t, err)

	for _, c := range cands {
		assert.NotEqual(t, strategy.PMCC, c.Instance.Type, "no long-dated series, no diagonal")
		assert.NotEqual(t, strategy.SyntheticCollar, c.Instance.Type)
	}
	assert.Len(t, cands, len(strategy.AllTypes())-2)
}

func TestBuilder_SkipsEmptyQuotes(t *testing.T) {
	b := NewBuilder(DefaultBuildConfig(), zerolog.Nop())

	snap := testSnapshot()
	// Hollow out the 95 put: strike exists but nobody is quoting it.
	for i := range snap.Puts {
		if snap.Puts[i].Strike == 95 {
			snap.Puts[i].Bid, snap.Puts[i].Ask = 0, 0
		}
	}

	cands, err := b.Build(snap, []strategy.Type{strategy.CSP})
	require.NoError(t, err)
	assert.Empty(t, cands, "a strike with no usable quote cannot anchor a structure")
}

func TestBuilder_RejectsInvalidSnapshot(t *testing.T) {
	b := NewBuilder(DefaultBuildConfig(), zerolog.Nop())

	snap := testSnapshot()
	snap.Spot = -1

	_, err := b.Build(snap, strategy.AllTypes())
	require.Error(t, err)
}

func TestCandidateID_EncodesStructure(t *testing.T) {
	b := NewBuilder(DefaultBuildConfig(), zerolog.Nop())

	cands, err := b.Build(testSnapshot(), []strategy.Type{strategy.BullPutSpread})
	require.NoError(t, err)
	require.Len(t, cands, 1)

	assert.Equal(t, "TEST/bull_put_spread/95.00/90.00/30d", cands[0].ID)
}

func TestQuoteMidAndSpread(t *testing.T) {
	assert.InDelta(t, 2.50, Quote{Bid: 2.40, Ask: 2.60}.Mid(), 1e-12)
	assert.InDelta(t, 2.60, Quote{Ask: 2.60}.Mid(), 1e-12, "one-sided quote falls back to the live side")
	assert.Equal(t, 0.0, Quote{}.Mid())

	assert.InDelta(t, 0.08, Quote{Bid: 2.40, Ask: 2.60}.SpreadPct(), 1e-12)
	assert.Equal(t, 1.0, Quote{Ask: 2.60}.SpreadPct(), "one-sided book reports the worst spread")
}
