package features

import (
	"fmt"

	"github.com/selivandex/regime-lab/pkg/models"
)

// TertileBoundaries computes the 33rd/66th percentile split points of
// the volatility distribution. The split is static over the entire
// available sample, not rolling; boundaries are recomputed per dataset.
func TertileBoundaries(vols []float64) (models.RegimeBoundaries, error) {
	if len(vols) < 3 {
		return models.RegimeBoundaries{}, fmt.Errorf("%w: need at least 3 volatility values for tertiles, got %d",
			ErrInsufficientData, len(vols))
	}

	b := models.RegimeBoundaries{
		Lower: quantile(vols, 1.0/3.0),
		Upper: quantile(vols, 2.0/3.0),
	}

	// A collapsed distribution cannot be split into regimes; surfacing
	// this beats labeling every day "low" against equal boundaries.
	if b.Span() <= 0 {
		return models.RegimeBoundaries{}, fmt.Errorf("%w: tertile boundaries coincide at %.6g",
			ErrDegenerateDistribution, b.Lower)
	}

	return b, nil
}

// AssignRegimes labels each volatility value low/medium/high against
// the tertile boundaries of the whole sample. Ties at a boundary
// resolve to the lower regime.
func AssignRegimes(vols []float64) ([]models.RegimeLabel, models.RegimeBoundaries, error) {
	boundaries, err := TertileBoundaries(vols)
	if err != nil {
		return nil, models.RegimeBoundaries{}, err
	}

	labels := make([]models.RegimeLabel, len(vols))
	for i, v := range vols {
		switch {
		case v <= boundaries.Lower:
			labels[i] = models.RegimeLow
		case v <= boundaries.Upper:
			labels[i] = models.RegimeMedium
		default:
			labels[i] = models.RegimeHigh
		}
	}

	return labels, boundaries, nil
}

// Episodes groups consecutive equal labels into maximal runs, keeping
// the adjacent regimes at entry and exit (empty at the series edges).
func Episodes(labels []models.RegimeLabel) []models.RegimeEpisode {
	if len(labels) == 0 {
		return nil
	}

	var episodes []models.RegimeEpisode
	start := 0

	for i := 1; i <= len(labels); i++ {
		if i < len(labels) && labels[i] == labels[start] {
			continue
		}

		episode := models.RegimeEpisode{
			Regime:   labels[start],
			StartIdx: start,
			Length:   i - start,
		}
		if start > 0 {
			episode.Entered = labels[start-1]
		}
		if i < len(labels) {
			episode.Exited = labels[i]
		}

		episodes = append(episodes, episode)
		start = i
	}

	return episodes
}

// MeanDurations computes the mean episode length per regime
func MeanDurations(episodes []models.RegimeEpisode) map[models.RegimeLabel]float64 {
	totals := make(map[models.RegimeLabel]int)
	counts := make(map[models.RegimeLabel]int)
	for _, ep := range episodes {
		totals[ep.Regime] += ep.Length
		counts[ep.Regime]++
	}

	means := make(map[models.RegimeLabel]float64, len(totals))
	for regime, total := range totals {
		means[regime] = float64(total) / float64(counts[regime])
	}

	return means
}

// RegimeDurations returns, per day, how many consecutive days the
// current regime has been active including the day itself.
func RegimeDurations(labels []models.RegimeLabel) []int {
	durations := make([]int, len(labels))
	for i := range labels {
		if i > 0 && labels[i] == labels[i-1] {
			durations[i] = durations[i-1] + 1
		} else {
			durations[i] = 1
		}
	}
	return durations
}

// TransitionMatrix counts each (regime at day t, regime at day t+1)
// pair and normalizes every row by its total. A regime never observed
// keeps a row of zeros.
func TransitionMatrix(labels []models.RegimeLabel) (models.TransitionMatrix, error) {
	var matrix models.TransitionMatrix

	if len(labels) < 2 {
		return matrix, fmt.Errorf("%w: need at least 2 labels for transitions, got %d",
			ErrInsufficientData, len(labels))
	}

	var counts [3][3]int
	var rowTotals [3]int
	for i := 1; i < len(labels); i++ {
		from := labels[i-1].Index()
		to := labels[i].Index()
		counts[from][to]++
		rowTotals[from]++
	}

	for from := range counts {
		if rowTotals[from] == 0 {
			continue
		}
		for to := range counts[from] {
			matrix[from][to] = float64(counts[from][to]) / float64(rowTotals[from])
		}
	}

	return matrix, nil
}

// BoundaryDistances computes, per day, the distance from the volatility
// value to each tertile boundary, normalized by the boundary span.
// Positive lower distance means the value sits above the lower
// boundary; positive upper distance means it sits below the upper one.
func BoundaryDistances(vols []float64, boundaries models.RegimeBoundaries) (toLower, toUpper []float64, err error) {
	span := boundaries.Span()
	if span <= 0 {
		return nil, nil, fmt.Errorf("%w: boundary span is %.6g", ErrDegenerateDistribution, span)
	}

	toLower = make([]float64, len(vols))
	toUpper = make([]float64, len(vols))
	for i, v := range vols {
		toLower[i] = (v - boundaries.Lower) / span
		toUpper[i] = (boundaries.Upper - v) / span
	}

	return toLower, toUpper, nil
}
