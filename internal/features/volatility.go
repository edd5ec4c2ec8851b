package features

import (
	"fmt"
	"math"
)

// RollingVolatility computes the rolling sample standard deviation of
// returns over a fixed window. The output is aligned to the input: the
// first window-1 entries are NaN (warm-up) and callers drop them when
// assembling feature rows.
func RollingVolatility(returns []float64, window int) ([]float64, error) {
	if window < 2 {
		return nil, fmt.Errorf("volatility window must be >= 2, got %d", window)
	}
	if len(returns) < window {
		return nil, fmt.Errorf("%w: need %d returns for a %d-day volatility window, got %d",
			ErrInsufficientData, window, window, len(returns))
	}

	vols := make([]float64, len(returns))
	for i := range vols {
		if i < window-1 {
			vols[i] = math.NaN()
			continue
		}
		vols[i] = sampleStd(returns[i-window+1 : i+1])
	}

	return vols, nil
}
