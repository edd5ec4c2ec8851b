package features

import (
	"fmt"
	"math"

	"github.com/selivandex/regime-lab/pkg/models"
)

// ValidateBars rejects a bar series before any computation starts.
// Timestamps must be strictly increasing (one bar per day, no
// duplicates) and every OHLCV field must be usable.
func ValidateBars(bars []models.Bar) error {
	for i, bar := range bars {
		if i > 0 && !bar.Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("%w: timestamps not strictly increasing at index %d (%s then %s)",
				ErrMalformedInput, i, bars[i-1].Timestamp.Format("2006-01-02"), bar.Timestamp.Format("2006-01-02"))
		}

		if !bar.Open.IsPositive() || !bar.High.IsPositive() || !bar.Low.IsPositive() || !bar.Close.IsPositive() {
			return fmt.Errorf("%w: non-positive price at index %d", ErrMalformedInput, i)
		}

		if bar.High.LessThan(bar.Low) {
			return fmt.Errorf("%w: high below low at index %d", ErrMalformedInput, i)
		}

		if bar.Volume.IsNegative() {
			return fmt.Errorf("%w: negative volume at index %d", ErrMalformedInput, i)
		}
	}

	return nil
}

// LogReturns computes the log return per consecutive close pair.
// The result has one entry per bar after the first: returns[i] is the
// return realized on bars[i+1].
func LogReturns(bars []models.Bar) ([]float64, error) {
	if len(bars) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 bars for returns, got %d", ErrInsufficientData, len(bars))
	}

	returns := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close.InexactFloat64()
		cur := bars[i].Close.InexactFloat64()
		returns[i-1] = math.Log(cur / prev)
	}

	return returns, nil
}

// SimpleReturns computes percentage change per consecutive close pair
func SimpleReturns(bars []models.Bar) ([]float64, error) {
	if len(bars) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 bars for returns, got %d", ErrInsufficientData, len(bars))
	}

	returns := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close.InexactFloat64()
		cur := bars[i].Close.InexactFloat64()
		returns[i-1] = cur/prev - 1
	}

	return returns, nil
}
