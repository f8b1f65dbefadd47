// Package strategy defines the typed leg structure for multi-leg option
// strategies and the per-strategy payoff evaluation at a terminal price.
//
// Every representable structure has a statically bounded maximum loss;
// validation rejects anything else before simulation work begins.
package strategy

import (
	"fmt"
	"math"

	"github.com/optionscan/optionscan/internal/errs"
	"github.com/optionscan/optionscan/internal/pricing"
)

// Position is the side of a leg.
type Position string

const (
	Long  Position = "long"
	Short Position = "short"
)

// Leg is one option position inside a strategy. Strike and Premium are
// per share. A Leg is owned exclusively by its enclosing Instance.
type Leg struct {
	Kind     pricing.Kind `json:"kind"`
	Position Position     `json:"position"`
	Strike   float64      `json:"strike"`
	Premium  float64      `json:"premium"`
	Quantity int          `json:"quantity"`
}

// Type tags the supported strategy structures.
type Type string

const (
	CSP             Type = "csp"
	CoveredCall     Type = "covered_call"
	Collar          Type = "collar"
	IronCondor      Type = "iron_condor"
	BullPutSpread   Type = "bull_put_spread"
	BearCallSpread  Type = "bear_call_spread"
	PMCC            Type = "pmcc"
	SyntheticCollar Type = "synthetic_collar"
)

// AllTypes lists every strategy tag in a stable order.
func AllTypes() []Type {
	return []Type{CSP, CoveredCall, Collar, IronCondor, BullPutSpread, BearCallSpread, PMCC, SyntheticCollar}
}

// legCounts is the exact option-leg count per type. CoveredCall and
// Collar additionally carry the underlying, which is implied by the tag
// rather than modeled as a leg.
var legCounts = map[Type]int{
	CSP:             1,
	CoveredCall:     1,
	Collar:          2,
	IronCondor:      4,
	BullPutSpread:   2,
	BearCallSpread:  2,
	PMCC:            2,
	SyntheticCollar: 2,
}

// LegCount returns the required option-leg count for a type, or 0 for an
// unknown tag.
func LegCount(t Type) int { return legCounts[t] }

// FourLegged reports whether the structure carries four option legs,
// which triggers the stricter liquidity tiers and floors in scoring.
func FourLegged(t Type) bool { return legCounts[t] == 4 }

// CompositeLongLeg holds the revaluation inputs for the long-dated leg of
// PMCC and SyntheticCollar structures. The long leg is revalued with the
// pricing kernel at the short leg's expiration (single terminal
// evaluation, deliberately not two-stage).
type CompositeLongLeg struct {
	// TailYears is the long leg's remaining time to its own expiration,
	// measured at the short leg's expiry.
	TailYears float64 `json:"tail_years"`
	// ImpliedVol used for the revaluation.
	ImpliedVol float64 `json:"implied_vol"`
	// Rate is the risk-free rate used for the revaluation.
	Rate float64 `json:"rate"`
}

// Instance is a fully populated strategy candidate, built fresh per
// scanned candidate from current market data. All fields are set at
// construction; there is no runtime field-presence ambiguity.
type Instance struct {
	Type             Type    `json:"type"`
	Legs             []Leg   `json:"legs"`
	Spot             float64 `json:"spot"`
	DividendYield    float64 `json:"dividend_yield"`
	DaysToExpiration int     `json:"days_to_expiration"`

	// LongLeg is set only for PMCC and SyntheticCollar.
	LongLeg *CompositeLongLeg `json:"long_leg,omitempty"`
}

// NewInstance builds and validates a strategy instance. Construction
// fails with errs.ErrStructuralMismatch or errs.ErrInvalidParameter
// before any simulation runs.
func NewInstance(t Type, legs []Leg, spot, dividendYield float64, daysToExpiration int, longLeg *CompositeLongLeg) (*Instance, error) {
	inst := &Instance{
		Type:             t,
		Legs:             legs,
		Spot:             spot,
		DividendYield:    dividendYield,
		DaysToExpiration: daysToExpiration,
		LongLeg:          longLeg,
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

// Validate checks the leg structure against the declared type and the
// market inputs for sanity.
func (in *Instance) Validate() error {
	want, known := legCounts[in.Type]
	if !known {
		return fmt.Errorf("%w: unknown strategy type %q", errs.ErrStructuralMismatch, in.Type)
	}
	if len(in.Legs) != want {
		return fmt.Errorf("%w: %s requires exactly %d option legs, got %d",
			errs.ErrStructuralMismatch, in.Type, want, len(in.Legs))
	}
	if in.Spot <= 0 {
		return fmt.Errorf("%w: spot %.6f must be positive", errs.ErrInvalidParameter, in.Spot)
	}
	if in.DividendYield < 0 {
		return fmt.Errorf("%w: dividend yield %.6f is negative", errs.ErrInvalidParameter, in.DividendYield)
	}
	if in.DaysToExpiration <= 0 {
		return fmt.Errorf("%w: days to expiration %d must be positive", errs.ErrInvalidParameter, in.DaysToExpiration)
	}

	qty := in.Legs[0].Quantity
	for i, leg := range in.Legs {
		if leg.Strike <= 0 {
			return fmt.Errorf("%w: leg %d strike %.6f must be positive", errs.ErrInvalidParameter, i, leg.Strike)
		}
		if leg.Premium < 0 {
			return fmt.Errorf("%w: leg %d premium %.6f is negative", errs.ErrInvalidParameter, i, leg.Premium)
		}
		if leg.Quantity < 1 {
			return fmt.Errorf("%w: leg %d quantity %d must be at least 1", errs.ErrInvalidParameter, i, leg.Quantity)
		}
		if leg.Quantity != qty {
			return fmt.Errorf("%w: all legs must share a quantity, leg %d has %d vs %d",
				errs.ErrStructuralMismatch, i, leg.Quantity, qty)
		}
	}

	return in.validateShape()
}

func (in *Instance) validateShape() error {
	mismatch := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s: %s", errs.ErrStructuralMismatch, in.Type, fmt.Sprintf(format, args...))
	}

	switch in.Type {
	case CSP:
		if !in.Legs[0].is(pricing.Put, Short) {
			return mismatch("leg must be a short put")
		}

	case CoveredCall:
		if !in.Legs[0].is(pricing.Call, Short) {
			return mismatch("leg must be a short call against the underlying")
		}

	case Collar:
		call, put := in.Legs[0], in.Legs[1]
		if !call.is(pricing.Call, Short) || !put.is(pricing.Put, Long) {
			return mismatch("legs must be [short call, long put]")
		}
		if put.Strike >= call.Strike {
			return mismatch("put strike %.2f must sit below call strike %.2f", put.Strike, call.Strike)
		}

	case IronCondor:
		pl, ps, cs, cl := in.Legs[0], in.Legs[1], in.Legs[2], in.Legs[3]
		if !pl.is(pricing.Put, Long) || !ps.is(pricing.Put, Short) ||
			!cs.is(pricing.Call, Short) || !cl.is(pricing.Call, Long) {
			return mismatch("legs must be [long put, short put, short call, long call]")
		}
		if !(pl.Strike < ps.Strike && ps.Strike < cs.Strike && cs.Strike < cl.Strike) {
			return mismatch("strikes must be strictly increasing, got %.2f/%.2f/%.2f/%.2f",
				pl.Strike, ps.Strike, cs.Strike, cl.Strike)
		}
		if in.NetCredit() <= 0 {
			return mismatch("net credit %.4f must be positive", in.NetCredit())
		}

	case BullPutSpread:
		short, long := in.Legs[0], in.Legs[1]
		if !short.is(pricing.Put, Short) || !long.is(pricing.Put, Long) {
			return mismatch("legs must be [short put, long put]")
		}
		if long.Strike >= short.Strike {
			return mismatch("long strike %.2f must sit below short strike %.2f", long.Strike, short.Strike)
		}
		if in.NetCredit() <= 0 {
			return mismatch("net credit %.4f must be positive", in.NetCredit())
		}

	case BearCallSpread:
		short, long := in.Legs[0], in.Legs[1]
		if !short.is(pricing.Call, Short) || !long.is(pricing.Call, Long) {
			return mismatch("legs must be [short call, long call]")
		}
		if long.Strike <= short.Strike {
			return mismatch("long strike %.2f must sit above short strike %.2f", long.Strike, short.Strike)
		}
		if in.NetCredit() <= 0 {
			return mismatch("net credit %.4f must be positive", in.NetCredit())
		}

	case PMCC, SyntheticCollar:
		long, short := in.Legs[0], in.Legs[1]
		if !long.is(pricing.Call, Long) || !short.is(pricing.Call, Short) {
			return mismatch("legs must be [long call, short call]")
		}
		if long.Strike >= short.Strike {
			return mismatch("long strike %.2f must sit below short strike %.2f", long.Strike, short.Strike)
		}
		if in.NetDebit() <= 0 {
			return mismatch("net debit %.4f must be positive", in.NetDebit())
		}
		if in.LongLeg == nil {
			return mismatch("long-leg revaluation inputs are required")
		}
		if in.LongLeg.TailYears <= 0 {
			return fmt.Errorf("%w: long leg tail %.6f must be positive", errs.ErrInvalidParameter, in.LongLeg.TailYears)
		}
		if in.LongLeg.ImpliedVol <= 0 {
			return fmt.Errorf("%w: long leg implied vol %.6f must be positive", errs.ErrInvalidParameter, in.LongLeg.ImpliedVol)
		}
		if in.LongLeg.Rate < 0 {
			return fmt.Errorf("%w: long leg rate %.6f is negative", errs.ErrInvalidParameter, in.LongLeg.Rate)
		}
	}

	car := in.CapitalAtRiskPerShare()
	if car <= 0 {
		return fmt.Errorf("%w: %s capital at risk %.4f must be strictly positive",
			errs.ErrInvalidParameter, in.Type, car)
	}

	return nil
}

func (l Leg) is(kind pricing.Kind, pos Position) bool {
	return l.Kind == kind && l.Position == pos
}

// NetCredit is premium received minus premium paid across all legs, per
// share. Negative for net-debit structures.
func (in *Instance) NetCredit() float64 {
	credit := 0.0
	for _, leg := range in.Legs {
		if leg.Position == Short {
			credit += leg.Premium
		} else {
			credit -= leg.Premium
		}
	}
	return credit
}

// NetDebit is the mirror of NetCredit for net-debit structures.
func (in *Instance) NetDebit() float64 { return -in.NetCredit() }

// Quantity is the contract count shared by all legs.
func (in *Instance) Quantity() int {
	if len(in.Legs) == 0 {
		return 0
	}
	return in.Legs[0].Quantity
}

// ShortLegs returns the short legs of the structure.
func (in *Instance) ShortLegs() []Leg {
	var out []Leg
	for _, leg := range in.Legs {
		if leg.Position == Short {
			out = append(out, leg)
		}
	}
	return out
}

// CapitalAtRiskPerShare is the statically known capital committed per
// share: collateral for CSP and covered call, maximum loss for the
// defined-risk structures, entry debit for the diagonal composites.
func (in *Instance) CapitalAtRiskPerShare() float64 {
	switch in.Type {
	case CSP:
		return in.Legs[0].Strike - in.Legs[0].Premium
	case CoveredCall:
		return in.Spot - in.Legs[0].Premium
	case Collar:
		// Stock basis less the put floor, net of the collar credit.
		return in.Spot - in.Legs[1].Strike - in.NetCredit()
	case IronCondor:
		putWidth := in.Legs[1].Strike - in.Legs[0].Strike
		callWidth := in.Legs[3].Strike - in.Legs[2].Strike
		return math.Max(putWidth, callWidth) - in.NetCredit()
	case BullPutSpread:
		return (in.Legs[0].Strike - in.Legs[1].Strike) - in.NetCredit()
	case BearCallSpread:
		return (in.Legs[1].Strike - in.Legs[0].Strike) - in.NetCredit()
	case PMCC, SyntheticCollar:
		return in.NetDebit()
	}
	return 0
}

// CapitalAtRisk is CapitalAtRiskPerShare scaled to the full position
// (100 shares per contract).
func (in *Instance) CapitalAtRisk() float64 {
	return in.CapitalAtRiskPerShare() * 100 * float64(in.Quantity())
}
