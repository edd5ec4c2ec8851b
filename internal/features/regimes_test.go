package features

import (
	"errors"
	"testing"

	"github.com/selivandex/regime-lab/pkg/models"
)

func TestAssignRegimes_Partition(t *testing.T) {
	// 90 distinct values; tertiles should split them into near-equal thirds
	vols := make([]float64, 90)
	for i := range vols {
		vols[i] = 0.01 + 0.0005*float64((i*37)%90)
	}

	labels, boundaries, err := AssignRegimes(vols)
	if err != nil {
		t.Fatalf("Failed to assign regimes: %v", err)
	}

	if boundaries.Lower >= boundaries.Upper {
		t.Fatalf("Boundaries not ordered: %+v", boundaries)
	}

	counts := make(map[models.RegimeLabel]int)
	for _, label := range labels {
		if !label.Valid() {
			t.Fatalf("Invalid label %q", label)
		}
		counts[label]++
	}

	third := len(vols) / 3
	for _, regime := range models.RegimeLabels {
		if diff := counts[regime] - third; diff < -1 || diff > 1 {
			t.Errorf("Regime %s has %d members, want %d±1", regime, counts[regime], third)
		}
	}
}

func TestAssignRegimes_BoundaryTieGoesLower(t *testing.T) {
	// 7 values put the tertile boundaries exactly on 3 and 5
	vols := []float64{1, 2, 3, 4, 5, 6, 7}

	labels, boundaries, err := AssignRegimes(vols)
	if err != nil {
		t.Fatalf("Failed to assign regimes: %v", err)
	}

	if !almostEqual(boundaries.Lower, 3, 1e-12) || !almostEqual(boundaries.Upper, 5, 1e-12) {
		t.Fatalf("Boundaries = %+v, want {3 5}", boundaries)
	}

	for i, v := range vols {
		if v == boundaries.Lower && labels[i] != models.RegimeLow {
			t.Errorf("Value on lower boundary labeled %s, want low", labels[i])
		}
		if v == boundaries.Upper && labels[i] != models.RegimeMedium {
			t.Errorf("Value on upper boundary labeled %s, want medium", labels[i])
		}
	}
}

func TestTertileBoundaries_Degenerate(t *testing.T) {
	vols := []float64{0.02, 0.02, 0.02, 0.02, 0.02}

	_, err := TertileBoundaries(vols)
	if !errors.Is(err, ErrDegenerateDistribution) {
		t.Errorf("Expected ErrDegenerateDistribution, got %v", err)
	}
}

func TestTertileBoundaries_InsufficientData(t *testing.T) {
	_, err := TertileBoundaries([]float64{0.01, 0.02})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestEpisodes(t *testing.T) {
	labels := []models.RegimeLabel{
		models.RegimeLow, models.RegimeLow,
		models.RegimeHigh, models.RegimeHigh, models.RegimeHigh,
		models.RegimeMedium,
	}

	episodes := Episodes(labels)
	if len(episodes) != 3 {
		t.Fatalf("Expected 3 episodes, got %d", len(episodes))
	}

	total := 0
	for _, ep := range episodes {
		total += ep.Length
	}
	if total != len(labels) {
		t.Errorf("Episode lengths sum to %d, want %d", total, len(labels))
	}

	first := episodes[0]
	if first.Regime != models.RegimeLow || first.Length != 2 || first.Entered != "" || first.Exited != models.RegimeHigh {
		t.Errorf("Unexpected first episode: %+v", first)
	}

	mid := episodes[1]
	if mid.Regime != models.RegimeHigh || mid.StartIdx != 2 || mid.Length != 3 {
		t.Errorf("Unexpected middle episode: %+v", mid)
	}
	if mid.Entered != models.RegimeLow || mid.Exited != models.RegimeMedium {
		t.Errorf("Middle episode neighbors wrong: %+v", mid)
	}

	last := episodes[2]
	if last.Exited != "" {
		t.Errorf("Last episode should have no exit, got %+v", last)
	}
}

func TestMeanDurations(t *testing.T) {
	episodes := []models.RegimeEpisode{
		{Regime: models.RegimeLow, Length: 2},
		{Regime: models.RegimeLow, Length: 4},
		{Regime: models.RegimeHigh, Length: 5},
	}

	means := MeanDurations(episodes)
	if !almostEqual(means[models.RegimeLow], 3, 1e-12) {
		t.Errorf("Low mean duration = %v, want 3", means[models.RegimeLow])
	}
	if !almostEqual(means[models.RegimeHigh], 5, 1e-12) {
		t.Errorf("High mean duration = %v, want 5", means[models.RegimeHigh])
	}
	if _, ok := means[models.RegimeMedium]; ok {
		t.Error("Medium should be absent when never observed")
	}
}

func TestRegimeDurations(t *testing.T) {
	labels := []models.RegimeLabel{
		models.RegimeLow, models.RegimeLow, models.RegimeHigh, models.RegimeHigh, models.RegimeHigh,
	}

	durations := RegimeDurations(labels)
	want := []int{1, 2, 1, 2, 3}
	for i := range want {
		if durations[i] != want[i] {
			t.Errorf("durations[%d] = %d, want %d", i, durations[i], want[i])
		}
	}
}

func TestTransitionMatrix(t *testing.T) {
	labels := []models.RegimeLabel{
		models.RegimeLow, models.RegimeLow, models.RegimeMedium,
		models.RegimeLow, models.RegimeMedium, models.RegimeMedium,
	}

	matrix, err := TransitionMatrix(labels)
	if err != nil {
		t.Fatalf("Failed to compute transitions: %v", err)
	}

	// Observed regimes have rows summing to exactly 1
	for _, regime := range []models.RegimeLabel{models.RegimeLow, models.RegimeMedium} {
		if sum := matrix.RowSum(regime); !almostEqual(sum, 1, 1e-12) {
			t.Errorf("Row %s sums to %v, want 1", regime, sum)
		}
	}

	// High never appears, so its row stays zero
	if sum := matrix.RowSum(models.RegimeHigh); sum != 0 {
		t.Errorf("Unobserved regime row sums to %v, want 0", sum)
	}

	// low -> low once, low -> medium twice
	if p := matrix.Prob(models.RegimeLow, models.RegimeLow); !almostEqual(p, 1.0/3.0, 1e-12) {
		t.Errorf("P(low->low) = %v, want 1/3", p)
	}
	if p := matrix.Prob(models.RegimeLow, models.RegimeMedium); !almostEqual(p, 2.0/3.0, 1e-12) {
		t.Errorf("P(low->medium) = %v, want 2/3", p)
	}
}

func TestTransitionMatrix_InsufficientData(t *testing.T) {
	_, err := TransitionMatrix([]models.RegimeLabel{models.RegimeLow})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestBoundaryDistances(t *testing.T) {
	boundaries := models.RegimeBoundaries{Lower: 0.01, Upper: 0.03}
	vols := []float64{0.01, 0.02, 0.04}

	toLower, toUpper, err := BoundaryDistances(vols, boundaries)
	if err != nil {
		t.Fatalf("Failed to compute distances: %v", err)
	}

	// On the lower boundary
	if !almostEqual(toLower[0], 0, 1e-12) || !almostEqual(toUpper[0], 1, 1e-12) {
		t.Errorf("Boundary value distances = (%v, %v), want (0, 1)", toLower[0], toUpper[0])
	}

	// Midpoint
	if !almostEqual(toLower[1], 0.5, 1e-12) || !almostEqual(toUpper[1], 0.5, 1e-12) {
		t.Errorf("Midpoint distances = (%v, %v), want (0.5, 0.5)", toLower[1], toUpper[1])
	}

	// Above the upper boundary the upper distance goes negative
	if toUpper[2] >= 0 {
		t.Errorf("Value above upper boundary should have negative upper distance, got %v", toUpper[2])
	}
}

func TestBoundaryDistances_DegenerateSpan(t *testing.T) {
	_, _, err := BoundaryDistances([]float64{0.01}, models.RegimeBoundaries{Lower: 0.02, Upper: 0.02})
	if !errors.Is(err, ErrDegenerateDistribution) {
		t.Errorf("Expected ErrDegenerateDistribution, got %v", err)
	}
}
