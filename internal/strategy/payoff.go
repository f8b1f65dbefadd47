package strategy

import (
	"fmt"
	"math"

	"github.com/optionscan/optionscan/internal/errs"
	"github.com/optionscan/optionscan/internal/pricing"
)

// boundsTol absorbs float noise when checking a payoff against its
// static bounds. Anything beyond it is an implementation defect and
// fails loudly instead of clipping.
const boundsTol = 1e-9

// Bounds is the statically known per-share payoff range for an instance,
// inclusive of the holding-period dividend where the structure owns
// stock.
type Bounds struct {
	Min float64
	Max float64
}

// PayoffBounds returns the static per-share min/max P&L for the
// instance. dividend is the expected per-share dividend collected over
// the holding period; it shifts both bounds for stock-owning structures
// and is ignored elsewhere.
func (in *Instance) PayoffBounds(dividend float64) Bounds {
	switch in.Type {
	case CSP:
		k, prem := in.Legs[0].Strike, in.Legs[0].Premium
		return Bounds{Min: prem - k, Max: prem}

	case CoveredCall:
		k, prem := in.Legs[0].Strike, in.Legs[0].Premium
		return Bounds{
			Min: dividend + prem - in.Spot,
			Max: (k - in.Spot) + prem + dividend,
		}

	case Collar:
		kc, kp := in.Legs[0].Strike, in.Legs[1].Strike
		nc := in.NetCredit()
		return Bounds{
			Min: (kp - in.Spot) + nc + dividend,
			Max: (kc - in.Spot) + nc + dividend,
		}

	case IronCondor:
		putWidth := in.Legs[1].Strike - in.Legs[0].Strike
		callWidth := in.Legs[3].Strike - in.Legs[2].Strike
		nc := in.NetCredit()
		return Bounds{Min: -(math.Max(putWidth, callWidth) - nc), Max: nc}

	case BullPutSpread:
		width := in.Legs[0].Strike - in.Legs[1].Strike
		nc := in.NetCredit()
		return Bounds{Min: -(width - nc), Max: nc}

	case BearCallSpread:
		width := in.Legs[1].Strike - in.Legs[0].Strike
		nc := in.NetCredit()
		return Bounds{Min: -(width - nc), Max: nc}

	case PMCC, SyntheticCollar:
		// The covered short call caps the structure: the long call is
		// worth at most S, so payoff never exceeds the short strike less
		// the entry debit, and never loses more than the debit.
		debit := in.NetDebit()
		return Bounds{Min: -debit, Max: in.Legs[1].Strike - debit}
	}
	return Bounds{}
}

// PayoffPerShare maps one simulated terminal price to the realized
// per-share P&L of the structure, given the holding-period dividend.
// A result outside the static bounds returns errs.ErrSimulationFailure.
func (in *Instance) PayoffPerShare(terminal, dividend float64) (float64, error) {
	if terminal < 0 {
		return 0, fmt.Errorf("%w: terminal price %.6f is negative", errs.ErrSimulationFailure, terminal)
	}

	var (
		pnl float64
		err error
	)

	switch in.Type {
	case CSP:
		leg := in.Legs[0]
		pnl = leg.Premium + math.Min(0, terminal-leg.Strike)

	case CoveredCall:
		leg := in.Legs[0]
		pnl = (terminal - in.Spot) + leg.Premium - math.Max(0, terminal-leg.Strike) + dividend

	case Collar:
		call, put := in.Legs[0], in.Legs[1]
		pnl = (terminal - in.Spot) + call.Premium - put.Premium -
			math.Max(0, terminal-call.Strike) +
			math.Max(0, put.Strike-terminal) +
			dividend

	case IronCondor:
		pl, ps, cs, cl := in.Legs[0], in.Legs[1], in.Legs[2], in.Legs[3]
		putLoss := math.Max(0, ps.Strike-terminal) - math.Max(0, pl.Strike-terminal)
		callLoss := math.Max(0, terminal-cs.Strike) - math.Max(0, terminal-cl.Strike)
		pnl = in.NetCredit() - putLoss - callLoss

	case BullPutSpread:
		short, long := in.Legs[0], in.Legs[1]
		width := short.Strike - long.Strike
		spreadLoss := math.Min(math.Max(0, short.Strike-terminal), width)
		pnl = in.NetCredit() - spreadLoss

	case BearCallSpread:
		short, long := in.Legs[0], in.Legs[1]
		width := long.Strike - short.Strike
		spreadLoss := math.Min(math.Max(0, terminal-short.Strike), width)
		pnl = in.NetCredit() - spreadLoss

	case PMCC, SyntheticCollar:
		pnl, err = in.compositePayoff(terminal)
		if err != nil {
			return 0, err
		}

	default:
		return 0, fmt.Errorf("%w: no payoff defined for strategy type %q", errs.ErrSimulationFailure, in.Type)
	}

	b := in.PayoffBounds(dividend)
	if pnl < b.Min-boundsTol || pnl > b.Max+boundsTol {
		return 0, fmt.Errorf("%w: %s payoff %.6f escaped static bounds [%.6f, %.6f] at terminal %.4f",
			errs.ErrSimulationFailure, in.Type, pnl, b.Min, b.Max, terminal)
	}
	return pnl, nil
}

// compositePayoff handles the diagonal composites: the long-dated call
// is revalued at the short leg's expiry, the short near-term call
// settles at intrinsic. Each leg contributes its own terminal payoff
// minus (long) or plus (short) its entry premium.
func (in *Instance) compositePayoff(terminal float64) (float64, error) {
	long, short := in.Legs[0], in.Legs[1]

	var longValue float64
	if terminal == 0 {
		// The pricing kernel rejects a zero spot; a worthless underlying
		// leaves the call worthless.
		longValue = 0
	} else {
		// Revalued without the dividend discount: with yield discounting
		// the long call can decay below the short leg's intrinsic for
		// large terminals and the loss floor stops being a hard bound.
		g, err := pricing.PriceAndGreeks(
			terminal, long.Strike,
			in.LongLeg.Rate, 0,
			in.LongLeg.ImpliedVol, in.LongLeg.TailYears,
			pricing.Call,
		)
		if err != nil {
			return 0, fmt.Errorf("%w: revaluing long leg at terminal %.4f: %v",
				errs.ErrSimulationFailure, terminal, err)
		}
		longValue = g.Price
	}

	return (longValue - long.Premium) + (short.Premium - math.Max(0, terminal-short.Strike)), nil
}

// PayoffPerContract scales PayoffPerShare to the full position: 100
// shares per contract times the shared leg quantity.
func (in *Instance) PayoffPerContract(terminal, dividend float64) (float64, error) {
	perShare, err := in.PayoffPerShare(terminal, dividend)
	if err != nil {
		return 0, err
	}
	return perShare * 100 * float64(in.Quantity()), nil
}
