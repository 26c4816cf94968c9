package ledger

import "errors"

// Validation failures returned by the append path and the calculators. They
// reject the single offending operation and never mutate state; match them
// with errors.Is.
var (
	// ErrInvalidAmount is returned for a negative quantity or price.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidTicker is returned for an empty or overlong ticker symbol.
	ErrInvalidTicker = errors.New("invalid ticker")

	// ErrMissingPositionReference is returned when a position-linked
	// transaction (buy, sell, dividend, cash settlement) names no position.
	ErrMissingPositionReference = errors.New("missing position reference")

	// ErrUnexpectedPositionReference is returned when a cash-only transaction
	// (deposit, withdrawal, tax) names a position, or a buy names an existing
	// one.
	ErrUnexpectedPositionReference = errors.New("unexpected position reference")

	// ErrPositionNotFound is returned when a transaction or query names a
	// position unknown to the ledger.
	ErrPositionNotFound = errors.New("position not found")

	// ErrPositionAlreadyClosed is returned for a second sell against the same
	// position. Positions close exactly once; there are no partial closes.
	ErrPositionAlreadyClosed = errors.New("position already closed")

	// ErrOutOfOrder is returned when a transaction is dated before the last
	// appended transaction. Per-portfolio dates are monotonically
	// non-decreasing.
	ErrOutOfOrder = errors.New("transaction out of order")

	// ErrNoBracketForYear is returned by the tax calculator for a year outside
	// the covered schedules. There is no nearest-year fallback.
	ErrNoBracketForYear = errors.New("no tax bracket for year")
)
