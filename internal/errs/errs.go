// Package errs defines the error taxonomy shared across the evaluation
// pipeline. Callers classify failures with errors.Is against these
// sentinels; every fallible operation wraps one of them rather than
// returning a bare formatted error.
package errs

import "errors"

var (
	// ErrInvalidParameter marks malformed pricing or simulation inputs,
	// e.g. negative volatility or a non-positive spot.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrStructuralMismatch marks a leg structure inconsistent with the
	// declared strategy type. Raised at construction, before any
	// simulation work runs.
	ErrStructuralMismatch = errors.New("structural mismatch")

	// ErrSimulationFailure marks an unexpected internal fault during path
	// generation or payoff evaluation, including a payoff that escapes
	// its statically known bounds.
	ErrSimulationFailure = errors.New("simulation failure")
)
