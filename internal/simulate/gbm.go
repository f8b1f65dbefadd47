// Package simulate generates terminal underlying prices under geometric
// Brownian motion. A single closed-form terminal draw per path: no
// path-dependence, no early exercise.
package simulate

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	mrand "math/rand"
	"time"

	"github.com/optionscan/optionscan/internal/errs"
)

// TerminalPrices draws pathCount terminal prices:
//
//	ST = spot * exp((drift - vol²/2)·T + vol·sqrt(T)·Z)
//
// with Z standard normal. A non-nil seed makes the sequence bit-for-bit
// reproducible across calls with identical parameters; a nil seed draws
// the generator seed from OS entropy, which is deliberately not
// reproducible.
func TerminalPrices(spot, drift, vol, horizonYears float64, pathCount int, seed *int64) ([]float64, error) {
	switch {
	case spot <= 0:
		return nil, fmt.Errorf("%w: spot %.6f must be positive", errs.ErrInvalidParameter, spot)
	case vol < 0:
		return nil, fmt.Errorf("%w: volatility %.6f is negative", errs.ErrInvalidParameter, vol)
	case horizonYears < 0:
		return nil, fmt.Errorf("%w: horizon %.6f is negative", errs.ErrInvalidParameter, horizonYears)
	case pathCount < 1:
		return nil, fmt.Errorf("%w: path count %d must be at least 1", errs.ErrInvalidParameter, pathCount)
	}

	rng := mrand.New(mrand.NewSource(resolveSeed(seed)))

	muT := (drift - 0.5*vol*vol) * horizonYears
	sigT := vol * math.Sqrt(horizonYears)

	prices := make([]float64, pathCount)
	for i := range prices {
		prices[i] = spot * math.Exp(muT+sigT*rng.NormFloat64())
	}
	return prices, nil
}

func resolveSeed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
