package scoring

import (
	"fmt"
	"math"

	"github.com/optionscan/optionscan/internal/strategy"
)

// The penalty chain is ordered and each factor is independent: tenor
// fit, liquidity turnover, earnings proximity, theta/gamma. Every
// applied factor is recorded with its policy rationale so a final score
// is auditable back to its inputs.

func tenorPenalty(window TenorWindow, dte int) Penalty {
	if dte >= window.MinDTE && dte <= window.MaxDTE {
		return Penalty{
			Name:       "tenor_fit",
			Multiplier: 1.0,
			Rationale:  fmt.Sprintf("%d DTE inside sweet spot [%d, %d]", dte, window.MinDTE, window.MaxDTE),
		}
	}
	return Penalty{
		Name:       "tenor_fit",
		Multiplier: 0.70,
		Rationale:  fmt.Sprintf("%d DTE outside sweet spot [%d, %d]", dte, window.MinDTE, window.MaxDTE),
	}
}

// turnover is simulated volume over open interest, taken at the least
// liquid leg. Four-leg structures take stricter tiers: every leg must
// trade out of a wider book.
func turnoverPenalty(t strategy.Type, turnover float64) Penalty {
	name := "liquidity_turnover"

	if strategy.FourLegged(t) {
		switch {
		case turnover >= 0.5:
			return Penalty{Name: name, Multiplier: 1.0, Rationale: fmt.Sprintf("turnover %.2f >= 0.50 (four-leg tiers)", turnover)}
		case turnover >= 0.3:
			return Penalty{Name: name, Multiplier: 0.80, Rationale: fmt.Sprintf("turnover %.2f in [0.30, 0.50) (four-leg tiers)", turnover)}
		default:
			return Penalty{Name: name, Multiplier: 0.55, Rationale: fmt.Sprintf("turnover %.2f below 0.30 (four-leg tiers)", turnover)}
		}
	}

	switch {
	case turnover >= 0.5:
		return Penalty{Name: name, Multiplier: 1.0, Rationale: fmt.Sprintf("turnover %.2f >= 0.50", turnover)}
	case turnover >= 0.25:
		return Penalty{Name: name, Multiplier: 0.85, Rationale: fmt.Sprintf("turnover %.2f in [0.25, 0.50)", turnover)}
	default:
		return Penalty{Name: name, Multiplier: 0.65, Rationale: fmt.Sprintf("turnover %.2f below 0.25", turnover)}
	}
}

// earningsPenalty ramps linearly from 0.60x at 3 days out to 1.0x at 45
// or more days out. Unknown earnings (negative days) are not penalized;
// the hard filter separately excludes anything inside 3 days.
func earningsPenalty(daysToEarnings int) Penalty {
	name := "earnings_proximity"

	if daysToEarnings < 0 {
		return Penalty{Name: name, Multiplier: 1.0, Rationale: "no earnings inside scan horizon"}
	}

	mult := 0.60 + 0.40*(float64(daysToEarnings)-3)/42
	mult = math.Max(0.60, math.Min(1.0, mult))
	return Penalty{
		Name:       name,
		Multiplier: mult,
		Rationale:  fmt.Sprintf("earnings in %d days (ramp 0.60x@3d to 1.0x@45d)", daysToEarnings),
	}
}

func thetaGammaPenalty(ratio float64) Penalty {
	name := "theta_gamma"

	switch {
	case ratio >= 1.0:
		return Penalty{Name: name, Multiplier: 1.0, Rationale: fmt.Sprintf("theta/gamma %.2f >= 1.0", ratio)}
	case ratio >= 0.5:
		return Penalty{Name: name, Multiplier: 0.85, Rationale: fmt.Sprintf("theta/gamma %.2f in [0.5, 1.0)", ratio)}
	default:
		return Penalty{Name: name, Multiplier: 0.70, Rationale: fmt.Sprintf("theta/gamma %.2f below 0.5", ratio)}
	}
}
