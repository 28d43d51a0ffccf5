package calculator

import "errors"

var (
	// ErrEmptyData means the series has no observations for the instrument/period.
	ErrEmptyData = errors.New("no data available for this instrument/period")
	// ErrInsufficientData means the series has fewer observations than the operation needs.
	ErrInsufficientData = errors.New("not enough observations")
	// ErrDegenerateInput means a value would make the result undefined (zero or
	// non-finite prices, unordered timestamps, negative principal, bad window).
	ErrDegenerateInput = errors.New("degenerate input")
)
