// Package analyzer derives the pre-earnings statistical picture for one
// ticker: the market-implied move from the ATM straddle, summary statistics
// of realized past earnings moves, and the volatility-risk-premium ratio
// between the two. Everything here is a pure computation over immutable
// snapshots; no I/O, no shared state.
package analyzer

import "errors"

var (
	// ErrInsufficientData means the option chain has no usable ATM call/put
	// pair near spot. Callers should skip the ticker, not substitute zeros.
	ErrInsufficientData = errors.New("insufficient option chain data")

	// ErrInsufficientHistory means fewer past earnings events exist than the
	// configured minimum. This is "cannot evaluate", never "zero edge".
	ErrInsufficientHistory = errors.New("insufficient earnings history")
)
