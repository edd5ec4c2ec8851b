package features

import "errors"

// Error kinds surfaced by feature computations. Callers decide whether
// to skip, fill, or abort the whole batch; nothing is defaulted silently.
var (
	// ErrInsufficientData means the series is shorter than a requested
	// window or lag allows.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDegenerateDistribution means a zero-variance sample made a
	// standard-deviation- or correlation-based feature undefined.
	ErrDegenerateDistribution = errors.New("degenerate distribution")

	// ErrMalformedInput means the bar series itself is unusable:
	// non-monotonic timestamps, duplicate days or broken OHLCV fields.
	ErrMalformedInput = errors.New("malformed input")
)
