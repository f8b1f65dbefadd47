package chain

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/optionscan/optionscan/internal/pricing"
	"github.com/optionscan/optionscan/internal/scoring"
	"github.com/optionscan/optionscan/internal/strategy"
)

// Candidate is one assembled strategy instance with the market context
// the scoring engine needs.
type Candidate struct {
	ID       string             `json:"id"`
	Symbol   string             `json:"symbol"`
	Instance *strategy.Instance `json:"instance"`
	// Legs is the per-leg book quality, parallel to Instance.Legs.
	Legs []scoring.LegLiquidity `json:"legs"`
	// Volatility is the implied vol the simulation should run with,
	// taken from the structure's short legs.
	Volatility       float64 `json:"volatility"`
	EarningsInDays   int     `json:"earnings_in_days"`
	ExpectedDividend float64 `json:"expected_dividend"`
}

// BuildConfig holds the strike-selection heuristics.
type BuildConfig struct {
	// OTMOffsetPct places short strikes this fraction away from spot.
	OTMOffsetPct float64 `yaml:"otm_offset_pct"`
	// WingWidthPct sets the protective-wing width for defined-risk
	// structures as a fraction of spot.
	WingWidthPct float64 `yaml:"wing_width_pct"`
	// DeepITMPct places the diagonal long call this fraction below spot.
	DeepITMPct float64 `yaml:"deep_itm_pct"`
}

// DefaultBuildConfig returns the stock heuristics: short strikes 5% out,
// 3%-of-spot wings, diagonal long calls 20% in the money.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{OTMOffsetPct: 0.05, WingWidthPct: 0.03, DeepITMPct: 0.20}
}

// Builder assembles one candidate per requested strategy type from a
// snapshot. Structures the chain cannot support are skipped, not failed:
// an illiquid or one-sided chain yields fewer candidates.
type Builder struct {
	cfg BuildConfig
	log zerolog.Logger
}

func NewBuilder(cfg BuildConfig, logger zerolog.Logger) *Builder {
	if cfg.OTMOffsetPct <= 0 {
		cfg.OTMOffsetPct = 0.05
	}
	if cfg.WingWidthPct <= 0 {
		cfg.WingWidthPct = 0.03
	}
	if cfg.DeepITMPct <= 0 {
		cfg.DeepITMPct = 0.20
	}
	return &Builder{cfg: cfg, log: logger.With().Str("component", "chain_builder").Logger()}
}

// Build assembles candidates for the given strategy types. The snapshot
// is validated once up front; per-structure assembly failures are logged
// and skipped.
func (b *Builder) Build(snap *Snapshot, types []strategy.Type) ([]Candidate, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	var out []Candidate
	for _, t := range types {
		cand, err := b.buildOne(snap, t)
		if err != nil {
			b.log.Debug().
				Str("symbol", snap.Symbol).
				Str("strategy", string(t)).
				Err(err).
				Msg("candidate skipped")
			continue
		}
		out = append(out, *cand)
	}
	return out, nil
}

func (b *Builder) buildOne(snap *Snapshot, t strategy.Type) (*Candidate, error) {
	spot := snap.Spot

	switch t {
	case strategy.CSP:
		q, err := quoteAtOrBelow(snap.Puts, spot*(1-b.cfg.OTMOffsetPct))
		if err != nil {
			return nil, err
		}
		return b.assemble(snap, t, []legQuote{{pricing.Put, strategy.Short, q}}, nil)

	case strategy.CoveredCall:
		q, err := quoteAtOrAbove(snap.Calls, spot*(1+b.cfg.OTMOffsetPct))
		if err != nil {
			return nil, err
		}
		return b.assemble(snap, t, []legQuote{{pricing.Call, strategy.Short, q}}, nil)

	case strategy.Collar:
		call, err := quoteAtOrAbove(snap.Calls, spot*(1+b.cfg.OTMOffsetPct))
		if err != nil {
			return nil, err
		}
		put, err := quoteAtOrBelow(snap.Puts, spot*(1-b.cfg.OTMOffsetPct))
		if err != nil {
			return nil, err
		}
		return b.assemble(snap, t, []legQuote{
			{pricing.Call, strategy.Short, call},
			{pricing.Put, strategy.Long, put},
		}, nil)

	case strategy.IronCondor:
		shortPut, err := quoteAtOrBelow(snap.Puts, spot*(1-b.cfg.OTMOffsetPct))
		if err != nil {
			return nil, err
		}
		longPut, err := quoteAtOrBelow(snap.Puts, shortPut.Strike-spot*b.cfg.WingWidthPct)
		if err != nil {
			return nil, err
		}
		shortCall, err := quoteAtOrAbove(snap.Calls, spot*(1+b.cfg.OTMOffsetPct))
		if err != nil {
			return nil, err
		}
		longCall, err := quoteAtOrAbove(snap.Calls, shortCall.Strike+spot*b.cfg.WingWidthPct)
		if err != nil {
			return nil, err
		}
		return b.assemble(snap, t, []legQuote{
			{pricing.Put, strategy.Long, longPut},
			{pricing.Put, strategy.Short, shortPut},
			{pricing.Call, strategy.Short, shortCall},
			{pricing.Call, strategy.Long, longCall},
		}, nil)

	case strategy.BullPutSpread:
		short, err := quoteAtOrBelow(snap.Puts, spot*(1-b.cfg.OTMOffsetPct))
		if err != nil {
			return nil, err
		}
		long, err := quoteAtOrBelow(snap.Puts, short.Strike-spot*b.cfg.WingWidthPct)
		if err != nil {
			return nil, err
		}
		return b.assemble(snap, t, []legQuote{
			{pricing.Put, strategy.Short, short},
			{pricing.Put, strategy.Long, long},
		}, nil)

	case strategy.BearCallSpread:
		short, err := quoteAtOrAbove(snap.Calls, spot*(1+b.cfg.OTMOffsetPct))
		if err != nil {
			return nil, err
		}
		long, err := quoteAtOrAbove(snap.Calls, short.Strike+spot*b.cfg.WingWidthPct)
		if err != nil {
			return nil, err
		}
		return b.assemble(snap, t, []legQuote{
			{pricing.Call, strategy.Short, short},
			{pricing.Call, strategy.Long, long},
		}, nil)

	case strategy.PMCC, strategy.SyntheticCollar:
		if len(snap.LeapsCalls) == 0 {
			return nil, fmt.Errorf("no long-dated calls in snapshot")
		}
		long, err := quoteAtOrBelow(snap.LeapsCalls, spot*(1-b.cfg.DeepITMPct))
		if err != nil {
			return nil, fmt.Errorf("deep ITM long call: %w", err)
		}
		short, err := quoteAtOrAbove(snap.Calls, spot*(1+b.cfg.OTMOffsetPct))
		if err != nil {
			return nil, err
		}
		if long.ImpliedVol <= 0 {
			return nil, fmt.Errorf("long call at %.2f has no implied vol", long.Strike)
		}
		longLeg := &strategy.CompositeLongLeg{
			TailYears:  float64(snap.LeapsDTE-snap.DaysToExpiration) / 365.0,
			ImpliedVol: long.ImpliedVol,
			Rate:       snap.RiskFreeRate,
		}
		return b.assemble(snap, t, []legQuote{
			{pricing.Call, strategy.Long, long},
			{pricing.Call, strategy.Short, short},
		}, longLeg)
	}

	return nil, fmt.Errorf("unknown strategy type %q", t)
}

type legQuote struct {
	kind pricing.Kind
	pos  strategy.Position
	q    Quote
}

func (b *Builder) assemble(snap *Snapshot, t strategy.Type, legs []legQuote, longLeg *strategy.CompositeLongLeg) (*Candidate, error) {
	instLegs := make([]strategy.Leg, len(legs))
	liquidity := make([]scoring.LegLiquidity, len(legs))

	ivSum, ivCount := 0.0, 0
	for i, lq := range legs {
		mid := lq.q.Mid()
		if mid <= 0 {
			return nil, fmt.Errorf("leg %d at strike %.2f has no usable quote", i, lq.q.Strike)
		}
		instLegs[i] = strategy.Leg{
			Kind:     lq.kind,
			Position: lq.pos,
			Strike:   lq.q.Strike,
			Premium:  mid,
			Quantity: 1,
		}
		liquidity[i] = scoring.LegLiquidity{
			OpenInterest: lq.q.OpenInterest,
			Volume:       lq.q.Volume,
			SpreadPct:    lq.q.SpreadPct(),
		}
		if lq.pos == strategy.Short && lq.q.ImpliedVol > 0 {
			ivSum += lq.q.ImpliedVol
			ivCount++
		}
	}
	if ivCount == 0 {
		return nil, fmt.Errorf("no implied vol on any short leg")
	}

	inst, err := strategy.NewInstance(t, instLegs, snap.Spot, snap.DividendYield, snap.DaysToExpiration, longLeg)
	if err != nil {
		return nil, err
	}

	return &Candidate{
		ID:               candidateID(snap, inst),
		Symbol:           snap.Symbol,
		Instance:         inst,
		Legs:             liquidity,
		Volatility:       ivSum / float64(ivCount),
		EarningsInDays:   snap.EarningsInDays,
		ExpectedDividend: snap.ExpectedDividend,
	}, nil
}

// candidateID is a stable human-readable identity: symbol, strategy,
// strike ladder, and tenor. It seeds the per-candidate RNG stream.
func candidateID(snap *Snapshot, inst *strategy.Instance) string {
	id := fmt.Sprintf("%s/%s", snap.Symbol, inst.Type)
	for _, leg := range inst.Legs {
		id += fmt.Sprintf("/%.2f", leg.Strike)
	}
	return fmt.Sprintf("%s/%dd", id, inst.DaysToExpiration)
}

// quoteAtOrBelow picks the quote with the highest strike at or below the
// target, the tightest strike that still honors the offset.
func quoteAtOrBelow(quotes []Quote, target float64) (Quote, error) {
	best, found := Quote{}, false
	for _, q := range quotes {
		if q.Strike <= target && (!found || q.Strike > best.Strike) {
			best, found = q, true
		}
	}
	if !found {
		return Quote{}, fmt.Errorf("no strike at or below %.2f among %d quotes", target, len(quotes))
	}
	return best, nil
}

// quoteAtOrAbove mirrors quoteAtOrBelow on the upside.
func quoteAtOrAbove(quotes []Quote, target float64) (Quote, error) {
	best, found := Quote{}, false
	for _, q := range quotes {
		if q.Strike >= target && (!found || q.Strike < best.Strike) {
			best, found = q, true
		}
	}
	if !found {
		return Quote{}, fmt.Errorf("no strike at or above %.2f among %d quotes", target, len(quotes))
	}
	return best, nil
}
