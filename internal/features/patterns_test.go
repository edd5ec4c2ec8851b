package features

import (
	"errors"
	"math"
	"testing"

	"github.com/selivandex/regime-lab/pkg/models"
)

func TestReturnStreaks(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.01, -0.02, 0.03, -0.01, -0.02}

	streaks := ReturnStreaks(returns)
	want := []models.ReturnStreak{
		{Sign: models.StreakPositive, StartIdx: 0, Length: 2},
		{Sign: models.StreakNegative, StartIdx: 2, Length: 2},
		{Sign: models.StreakPositive, StartIdx: 4, Length: 1},
		{Sign: models.StreakNegative, StartIdx: 5, Length: 2},
	}

	if len(streaks) != len(want) {
		t.Fatalf("Expected %d streaks, got %d: %+v", len(want), len(streaks), streaks)
	}
	for i := range want {
		if streaks[i] != want[i] {
			t.Errorf("streaks[%d] = %+v, want %+v", i, streaks[i], want[i])
		}
	}
}

func TestReturnStreaks_AlternatingSigns(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.01, -0.01, 0.01}

	streaks := ReturnStreaks(returns)
	if len(streaks) != len(returns) {
		t.Fatalf("Alternating series should yield %d streaks, got %d", len(returns), len(streaks))
	}
	for i, streak := range streaks {
		if streak.Length != 1 {
			t.Errorf("streaks[%d].Length = %d, want 1", i, streak.Length)
		}
	}
}

func TestReturnStreaks_ZeroContinuesSign(t *testing.T) {
	returns := []float64{0.01, 0, 0.02, -0.01}

	streaks := ReturnStreaks(returns)
	if len(streaks) != 2 {
		t.Fatalf("Expected 2 streaks, got %d: %+v", len(streaks), streaks)
	}
	if streaks[0].Sign != models.StreakPositive || streaks[0].Length != 3 {
		t.Errorf("Zero return should extend the positive streak, got %+v", streaks[0])
	}
}

func TestReturnStreaks_LeadingZerosStayFlat(t *testing.T) {
	returns := []float64{0, 0, 0.01}

	streaks := ReturnStreaks(returns)
	if len(streaks) != 2 {
		t.Fatalf("Expected 2 streaks, got %d: %+v", len(streaks), streaks)
	}
	if streaks[0].Sign != models.StreakFlat || streaks[0].Length != 2 {
		t.Errorf("Leading zeros should form a flat run, got %+v", streaks[0])
	}
}

func TestStreakSeries(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.01, 0, -0.02}

	signs, lengths := StreakSeries(returns)

	wantSigns := []models.StreakSign{
		models.StreakPositive, models.StreakPositive,
		models.StreakNegative, models.StreakNegative, models.StreakNegative,
	}
	wantLengths := []int{1, 2, 1, 2, 3}

	for i := range returns {
		if signs[i] != wantSigns[i] {
			t.Errorf("signs[%d] = %d, want %d", i, signs[i], wantSigns[i])
		}
		if lengths[i] != wantLengths[i] {
			t.Errorf("lengths[%d] = %d, want %d", i, lengths[i], wantLengths[i])
		}
	}
}

func TestStreakStats(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.01, -0.02, 0.03, -0.01, -0.02}

	stats := StreakStats(ReturnStreaks(returns))

	pos := stats[models.StreakPositive]
	if pos.Count != 2 || pos.MaxLength != 2 || !almostEqual(pos.MeanLength, 1.5, 1e-12) {
		t.Errorf("Unexpected positive streak stats: %+v", pos)
	}

	neg := stats[models.StreakNegative]
	if neg.Count != 2 || neg.MaxLength != 2 || !almostEqual(neg.MeanLength, 2, 1e-12) {
		t.Errorf("Unexpected negative streak stats: %+v", neg)
	}
}

func TestMomentum(t *testing.T) {
	returns := []float64{0.01, 0.02, 0.03, -0.06, 0.03}

	momentum, err := Momentum(returns, 3)
	if err != nil {
		t.Fatalf("Failed to compute momentum: %v", err)
	}

	if !math.IsNaN(momentum[0]) || !math.IsNaN(momentum[1]) {
		t.Error("Warm-up entries should be NaN")
	}
	if !almostEqual(momentum[2], 0.02, 1e-12) {
		t.Errorf("momentum[2] = %v, want 0.02", momentum[2])
	}
	if !almostEqual(momentum[3], (0.02+0.03-0.06)/3, 1e-12) {
		t.Errorf("momentum[3] = %v", momentum[3])
	}
	if !almostEqual(momentum[4], 0, 1e-12) {
		t.Errorf("momentum[4] = %v, want 0", momentum[4])
	}
}

func TestAcceleration(t *testing.T) {
	returns := []float64{0.01, 0.02, 0.03, -0.06, 0.03}

	momentum, err := Momentum(returns, 3)
	if err != nil {
		t.Fatalf("Failed to compute momentum: %v", err)
	}

	accel := Acceleration(momentum)
	if len(accel) != len(momentum) {
		t.Fatalf("Acceleration length %d, want %d", len(accel), len(momentum))
	}

	// Acceleration needs two defined momentum days, so it lags momentum
	// by one more NaN entry
	for i := 0; i < 3; i++ {
		if !math.IsNaN(accel[i]) {
			t.Errorf("accel[%d] = %v, want NaN warm-up", i, accel[i])
		}
	}
	if !almostEqual(accel[3], momentum[3]-momentum[2], 1e-12) {
		t.Errorf("accel[3] = %v, want %v", accel[3], momentum[3]-momentum[2])
	}
	if !almostEqual(accel[4], momentum[4]-momentum[3], 1e-12) {
		t.Errorf("accel[4] = %v, want %v", accel[4], momentum[4]-momentum[3])
	}
}

func TestAsymmetry(t *testing.T) {
	// Mean gain 0.02, mean loss 0.01 -> ratio 2
	returns := []float64{0.02, -0.01, 0.02, -0.01}

	ratio, _, err := Asymmetry(returns)
	if err != nil {
		t.Fatalf("Failed to compute asymmetry: %v", err)
	}
	if !almostEqual(ratio, 2, 1e-12) {
		t.Errorf("ratio = %v, want 2", ratio)
	}
}

func TestAsymmetry_OneSided(t *testing.T) {
	_, _, err := Asymmetry([]float64{0.01, 0.02, 0.03})
	if !errors.Is(err, ErrDegenerateDistribution) {
		t.Errorf("Expected ErrDegenerateDistribution, got %v", err)
	}
}

func TestRollingAsymmetry(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.02, -0.01, 0.04, -0.02}

	ratios, skews, err := RollingAsymmetry(returns, 4)
	if err != nil {
		t.Fatalf("Failed to compute rolling asymmetry: %v", err)
	}

	for i := 0; i < 3; i++ {
		if !math.IsNaN(ratios[i]) || !math.IsNaN(skews[i]) {
			t.Errorf("Entry %d should be NaN during warm-up", i)
		}
	}
	if !almostEqual(ratios[3], 2, 1e-12) {
		t.Errorf("ratios[3] = %v, want 2", ratios[3])
	}
}

func TestAutocorrelation(t *testing.T) {
	t.Run("lag zero is one", func(t *testing.T) {
		returns := []float64{0.01, -0.02, 0.03, -0.01, 0.02}

		ac, err := Autocorrelation(returns, 0)
		if err != nil {
			t.Fatalf("Failed to compute autocorrelation: %v", err)
		}
		if !almostEqual(ac, 1, 1e-12) {
			t.Errorf("Lag-0 autocorrelation = %v, want 1", ac)
		}
	})

	t.Run("alternating series is anti-correlated at lag 1", func(t *testing.T) {
		returns := []float64{0.01, -0.01, 0.01, -0.01, 0.01, -0.01}

		ac, err := Autocorrelation(returns, 1)
		if err != nil {
			t.Fatalf("Failed to compute autocorrelation: %v", err)
		}
		if !almostEqual(ac, -1, 1e-9) {
			t.Errorf("Lag-1 autocorrelation = %v, want -1", ac)
		}
	})

	t.Run("constant series is degenerate", func(t *testing.T) {
		_, err := Autocorrelation([]float64{0.01, 0.01, 0.01, 0.01}, 1)
		if !errors.Is(err, ErrDegenerateDistribution) {
			t.Errorf("Expected ErrDegenerateDistribution, got %v", err)
		}
	})
}

func TestRollingAutocorrelation(t *testing.T) {
	bars := generateTestBars(40, 40000)
	returns, err := LogReturns(bars)
	if err != nil {
		t.Fatalf("Failed to compute returns: %v", err)
	}

	window, lag := 20, 5
	ac, err := RollingAutocorrelation(returns, window, lag)
	if err != nil {
		t.Fatalf("Failed to compute rolling autocorrelation: %v", err)
	}

	for i := 0; i < window+lag-1; i++ {
		if !math.IsNaN(ac[i]) {
			t.Errorf("ac[%d] should be NaN during warm-up, got %v", i, ac[i])
		}
	}

	for i := window + lag - 1; i < len(ac); i++ {
		if math.IsNaN(ac[i]) {
			t.Errorf("ac[%d] should be defined", i)
		}
		if ac[i] < -1-1e-9 || ac[i] > 1+1e-9 {
			t.Errorf("ac[%d] = %v outside [-1, 1]", i, ac[i])
		}
	}

	// Spot-check against the direct computation over the last window
	last := len(returns) - 1
	want, err := pearson(returns[last-window+1:last+1], returns[last-window+1-lag:last+1-lag])
	if err != nil {
		t.Fatalf("Direct pearson failed: %v", err)
	}
	if !almostEqual(ac[last], want, 1e-12) {
		t.Errorf("ac[last] = %v, want %v", ac[last], want)
	}
}
