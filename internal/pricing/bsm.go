// Package pricing implements closed-form option pricing and Greeks for a
// single leg under the lognormal (Black-Scholes-Merton) model with a
// continuous dividend yield.
package pricing

import (
	"fmt"
	"math"

	"github.com/optionscan/optionscan/internal/errs"
)

// Kind distinguishes calls from puts.
type Kind string

const (
	Call Kind = "call"
	Put  Kind = "put"
)

// Greeks bundles the analytic price and first/second-order sensitivities
// for one option leg. Vega is per 1.00 of volatility and Theta is per
// year; callers rescale for display.
type Greeks struct {
	Price float64 `json:"price"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
}

// PriceAndGreeks prices a European option and its Greeks.
//
// tYears <= 0 returns intrinsic value only: delta is 0 or ±1 and
// gamma/vega/theta are zero since no time value remains. Zero volatility
// with time remaining collapses the same way onto the forward.
//
// The function is pure; all validation failures wrap
// errs.ErrInvalidParameter.
func PriceAndGreeks(spot, strike, rate, dividendYield, vol, tYears float64, kind Kind) (Greeks, error) {
	switch {
	case spot <= 0:
		return Greeks{}, fmt.Errorf("%w: spot %.6f must be positive", errs.ErrInvalidParameter, spot)
	case strike <= 0:
		return Greeks{}, fmt.Errorf("%w: strike %.6f must be positive", errs.ErrInvalidParameter, strike)
	case vol < 0:
		return Greeks{}, fmt.Errorf("%w: volatility %.6f is negative", errs.ErrInvalidParameter, vol)
	case tYears < 0:
		return Greeks{}, fmt.Errorf("%w: time to expiry %.6f is negative", errs.ErrInvalidParameter, tYears)
	case kind != Call && kind != Put:
		return Greeks{}, fmt.Errorf("%w: unknown option kind %q", errs.ErrInvalidParameter, kind)
	}

	if tYears == 0 {
		return intrinsicGreeks(spot, strike, kind), nil
	}

	sqrtT := math.Sqrt(tYears)
	if vol*sqrtT < 1e-12 {
		// Deterministic forward: discounted intrinsic on the forward price,
		// step delta, no convexity or time-value sensitivities.
		return forwardIntrinsicGreeks(spot, strike, rate, dividendYield, tYears, kind), nil
	}

	d1 := (math.Log(spot/strike) + (rate-dividendYield+0.5*vol*vol)*tYears) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT

	discQ := math.Exp(-dividendYield * tYears)
	discR := math.Exp(-rate * tYears)

	g := Greeks{
		Gamma: discQ * normPDF(d1) / (spot * vol * sqrtT),
		Vega:  spot * discQ * normPDF(d1) * sqrtT,
	}

	switch kind {
	case Call:
		g.Price = spot*discQ*normCDF(d1) - strike*discR*normCDF(d2)
		g.Delta = discQ * normCDF(d1)
		g.Theta = -spot*discQ*normPDF(d1)*vol/(2*sqrtT) -
			rate*strike*discR*normCDF(d2) +
			dividendYield*spot*discQ*normCDF(d1)
	case Put:
		g.Price = strike*discR*normCDF(-d2) - spot*discQ*normCDF(-d1)
		g.Delta = -discQ * normCDF(-d1)
		g.Theta = -spot*discQ*normPDF(d1)*vol/(2*sqrtT) +
			rate*strike*discR*normCDF(-d2) -
			dividendYield*spot*discQ*normCDF(-d1)
	}

	return g, nil
}

// intrinsicGreeks covers the expired case: pure intrinsic value.
func intrinsicGreeks(spot, strike float64, kind Kind) Greeks {
	var g Greeks
	switch kind {
	case Call:
		g.Price = math.Max(0, spot-strike)
		if spot > strike {
			g.Delta = 1
		}
	case Put:
		g.Price = math.Max(0, strike-spot)
		if spot < strike {
			g.Delta = -1
		}
	}
	return g
}

// forwardIntrinsicGreeks covers vol == 0 with time remaining: the
// terminal price is the forward with certainty.
func forwardIntrinsicGreeks(spot, strike, rate, dividendYield, tYears float64, kind Kind) Greeks {
	forward := spot * math.Exp((rate-dividendYield)*tYears)
	discR := math.Exp(-rate * tYears)
	discQ := math.Exp(-dividendYield * tYears)

	var g Greeks
	switch kind {
	case Call:
		g.Price = discR * math.Max(0, forward-strike)
		if forward > strike {
			g.Delta = discQ
		}
	case Put:
		g.Price = discR * math.Max(0, strike-forward)
		if forward < strike {
			g.Delta = -discQ
		}
	}
	return g
}
