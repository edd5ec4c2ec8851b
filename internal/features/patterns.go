package features

import (
	"fmt"
	"math"

	"github.com/selivandex/regime-lab/pkg/models"
)

// returnSign maps a return to its streak sign. Zero-return days carry
// the previous day's sign (continuation policy); a leading run of
// zeros stays flat until the first signed return.
func returnSign(r float64, prev models.StreakSign) models.StreakSign {
	switch {
	case r > 0:
		return models.StreakPositive
	case r < 0:
		return models.StreakNegative
	default:
		return prev
	}
}

// ReturnStreaks scans sign changes and groups consecutive same-signed
// returns into maximal runs. Streak lengths are always >= 1.
func ReturnStreaks(returns []float64) []models.ReturnStreak {
	if len(returns) == 0 {
		return nil
	}

	var streaks []models.ReturnStreak
	sign := returnSign(returns[0], models.StreakFlat)
	start := 0

	for i := 1; i <= len(returns); i++ {
		if i < len(returns) {
			if next := returnSign(returns[i], sign); next == sign {
				continue
			} else {
				streaks = append(streaks, models.ReturnStreak{Sign: sign, StartIdx: start, Length: i - start})
				sign = next
				start = i
				continue
			}
		}
		streaks = append(streaks, models.ReturnStreak{Sign: sign, StartIdx: start, Length: i - start})
	}

	return streaks
}

// StreakSeries returns, per day, the active streak sign and how long
// it has persisted including the day itself.
func StreakSeries(returns []float64) ([]models.StreakSign, []int) {
	signs := make([]models.StreakSign, len(returns))
	lengths := make([]int, len(returns))

	prev := models.StreakFlat
	for i, r := range returns {
		sign := returnSign(r, prev)
		if i > 0 && sign == signs[i-1] {
			lengths[i] = lengths[i-1] + 1
		} else {
			lengths[i] = 1
		}
		signs[i] = sign
		prev = sign
	}

	return signs, lengths
}

// StreakStats aggregates streak length distributions per sign
func StreakStats(streaks []models.ReturnStreak) map[models.StreakSign]models.StreakStats {
	stats := make(map[models.StreakSign]models.StreakStats)

	totals := make(map[models.StreakSign]int)
	for _, streak := range streaks {
		s := stats[streak.Sign]
		s.Count++
		if streak.Length > s.MaxLength {
			s.MaxLength = streak.Length
		}
		totals[streak.Sign] += streak.Length
		stats[streak.Sign] = s
	}

	for sign, s := range stats {
		s.MeanLength = float64(totals[sign]) / float64(s.Count)
		stats[sign] = s
	}

	return stats
}

// Momentum computes the rolling mean of returns over the window.
// Output is aligned to the input with NaN warm-up entries.
func Momentum(returns []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("momentum window must be >= 1, got %d", window)
	}
	if len(returns) < window {
		return nil, fmt.Errorf("%w: need %d returns for a %d-day momentum window, got %d",
			ErrInsufficientData, window, window, len(returns))
	}

	out := make([]float64, len(returns))
	sum := 0.0
	for i, r := range returns {
		sum += r
		if i >= window {
			sum -= returns[i-window]
		}
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}

	return out, nil
}

// Acceleration computes the day-over-day change of a momentum series.
// Entries where either side of the difference is still in warm-up stay
// NaN, so acceleration is defined one day after momentum.
func Acceleration(momentum []float64) []float64 {
	out := make([]float64, len(momentum))
	for i := range momentum {
		if i == 0 || math.IsNaN(momentum[i]) || math.IsNaN(momentum[i-1]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = momentum[i] - momentum[i-1]
	}
	return out
}

// Asymmetry computes the ratio of mean positive-return magnitude to
// mean negative-return magnitude, plus the third standardized moment.
// A sample with no positive or no negative returns has no defined
// ratio and is reported as degenerate.
func Asymmetry(returns []float64) (ratio, skew float64, err error) {
	if len(returns) < 3 {
		return 0, 0, fmt.Errorf("%w: need at least 3 returns for asymmetry, got %d", ErrInsufficientData, len(returns))
	}

	var posSum, negSum float64
	var posN, negN int
	for _, r := range returns {
		if r > 0 {
			posSum += r
			posN++
		} else if r < 0 {
			negSum += -r
			negN++
		}
	}

	if posN == 0 || negN == 0 {
		return 0, 0, fmt.Errorf("%w: one-sided return sample (%d positive, %d negative)",
			ErrDegenerateDistribution, posN, negN)
	}

	skew, err = skewness(returns)
	if err != nil {
		return 0, 0, err
	}

	ratio = (posSum / float64(posN)) / (negSum / float64(negN))
	return ratio, skew, nil
}

// RollingAsymmetry applies Asymmetry over a rolling window. Both
// outputs are aligned to the input with NaN warm-up entries; a
// degenerate window is surfaced with its index.
func RollingAsymmetry(returns []float64, window int) (ratios, skews []float64, err error) {
	if len(returns) < window {
		return nil, nil, fmt.Errorf("%w: need %d returns for a %d-day asymmetry window, got %d",
			ErrInsufficientData, window, window, len(returns))
	}

	ratios = make([]float64, len(returns))
	skews = make([]float64, len(returns))
	for i := range returns {
		if i < window-1 {
			ratios[i] = math.NaN()
			skews[i] = math.NaN()
			continue
		}

		ratio, skew, err := Asymmetry(returns[i-window+1 : i+1])
		if err != nil {
			return nil, nil, fmt.Errorf("window ending at index %d: %w", i, err)
		}
		ratios[i] = ratio
		skews[i] = skew
	}

	return ratios, skews, nil
}

// Autocorrelation computes the Pearson correlation between the series
// and its lagged copy. Lag 0 of any non-constant series is exactly 1.
func Autocorrelation(returns []float64, lag int) (float64, error) {
	if lag < 0 {
		return 0, fmt.Errorf("autocorrelation lag must be >= 0, got %d", lag)
	}
	if len(returns)-lag < 2 {
		return 0, fmt.Errorf("%w: need at least %d returns for lag %d, got %d",
			ErrInsufficientData, lag+2, lag, len(returns))
	}

	return pearson(returns[lag:], returns[:len(returns)-lag])
}

// RollingAutocorrelation computes per-day autocorrelation at the given
// lag over a rolling window. Each value correlates the last window
// returns with the window shifted back by lag days; output is aligned
// to the input with NaN warm-up entries.
func RollingAutocorrelation(returns []float64, window, lag int) ([]float64, error) {
	if lag < 1 {
		return nil, fmt.Errorf("rolling autocorrelation lag must be >= 1, got %d", lag)
	}
	need := window + lag
	if len(returns) < need {
		return nil, fmt.Errorf("%w: need %d returns for window %d at lag %d, got %d",
			ErrInsufficientData, need, window, lag, len(returns))
	}

	out := make([]float64, len(returns))
	for i := range returns {
		if i < need-1 {
			out[i] = math.NaN()
			continue
		}

		current := returns[i-window+1 : i+1]
		lagged := returns[i-window+1-lag : i+1-lag]
		corr, err := pearson(current, lagged)
		if err != nil {
			return nil, fmt.Errorf("window ending at index %d: %w", i, err)
		}
		out[i] = corr
	}

	return out, nil
}
