package features

import (
	"fmt"
	"math"
)

// VolumeChanges computes the relative volume change over the given
// horizon: v[i]/v[i-horizon] - 1. Output is aligned to the input with
// NaN warm-up entries. Volume can legitimately be zero on a dead day,
// so a zero base reports 0 instead of an infinite change.
func VolumeChanges(volumes []float64, horizon int) ([]float64, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("volume change horizon must be >= 1, got %d", horizon)
	}
	if len(volumes) <= horizon {
		return nil, fmt.Errorf("%w: need more than %d volumes for a %d-day change, got %d",
			ErrInsufficientData, horizon, horizon, len(volumes))
	}

	out := make([]float64, len(volumes))
	for i := range volumes {
		if i < horizon {
			out[i] = math.NaN()
			continue
		}
		base := volumes[i-horizon]
		if base == 0 {
			out[i] = 0
			continue
		}
		out[i] = volumes[i]/base - 1
	}

	return out, nil
}

// VolumeTrendStrength measures how far the current volume sits from its
// rolling mean, relative to that mean: (v - ma) / ma. Output is aligned
// to the input with NaN warm-up entries; a zero mean reports 0.
func VolumeTrendStrength(volumes []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("volume trend window must be >= 1, got %d", window)
	}
	if len(volumes) < window {
		return nil, fmt.Errorf("%w: need %d volumes for a %d-day trend window, got %d",
			ErrInsufficientData, window, window, len(volumes))
	}

	out := make([]float64, len(volumes))
	sum := 0.0
	for i, v := range volumes {
		sum += v
		if i >= window {
			sum -= volumes[i-window]
		}
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		ma := sum / float64(window)
		if ma == 0 {
			out[i] = 0
			continue
		}
		out[i] = (v - ma) / ma
	}

	return out, nil
}
