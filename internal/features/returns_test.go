package features

import (
	"errors"
	"math"
	"testing"

	"github.com/selivandex/regime-lab/pkg/models"
)

func TestValidateBars(t *testing.T) {
	t.Run("valid series passes", func(t *testing.T) {
		bars := generateTestBars(10, 40000)
		if err := ValidateBars(bars); err != nil {
			t.Fatalf("Valid bars rejected: %v", err)
		}
	})

	t.Run("duplicate timestamp", func(t *testing.T) {
		bars := generateTestBars(5, 40000)
		bars[3].Timestamp = bars[2].Timestamp

		err := ValidateBars(bars)
		if !errors.Is(err, ErrMalformedInput) {
			t.Errorf("Expected ErrMalformedInput, got %v", err)
		}
	})

	t.Run("out of order timestamps", func(t *testing.T) {
		bars := generateTestBars(5, 40000)
		bars[1].Timestamp, bars[2].Timestamp = bars[2].Timestamp, bars[1].Timestamp

		err := ValidateBars(bars)
		if !errors.Is(err, ErrMalformedInput) {
			t.Errorf("Expected ErrMalformedInput, got %v", err)
		}
	})

	t.Run("non-positive close", func(t *testing.T) {
		bars := generateTestBars(5, 40000)
		bars[2].Close = models.NewDecimal(0)

		err := ValidateBars(bars)
		if !errors.Is(err, ErrMalformedInput) {
			t.Errorf("Expected ErrMalformedInput, got %v", err)
		}
	})

	t.Run("high below low", func(t *testing.T) {
		bars := generateTestBars(5, 40000)
		bars[2].High, bars[2].Low = bars[2].Low, bars[2].High

		err := ValidateBars(bars)
		if !errors.Is(err, ErrMalformedInput) {
			t.Errorf("Expected ErrMalformedInput, got %v", err)
		}
	})

	t.Run("negative volume", func(t *testing.T) {
		bars := generateTestBars(5, 40000)
		bars[4].Volume = models.NewDecimal(-1)

		err := ValidateBars(bars)
		if !errors.Is(err, ErrMalformedInput) {
			t.Errorf("Expected ErrMalformedInput, got %v", err)
		}
	})
}

func TestLogReturns(t *testing.T) {
	bars := barsFromCloses(100, 110, 99)

	returns, err := LogReturns(bars)
	if err != nil {
		t.Fatalf("Failed to compute returns: %v", err)
	}

	if len(returns) != 2 {
		t.Fatalf("Expected 2 returns, got %d", len(returns))
	}

	want0 := math.Log(110.0 / 100.0)
	want1 := math.Log(99.0 / 110.0)
	if !almostEqual(returns[0], want0, 1e-12) {
		t.Errorf("returns[0] = %v, want %v", returns[0], want0)
	}
	if !almostEqual(returns[1], want1, 1e-12) {
		t.Errorf("returns[1] = %v, want %v", returns[1], want1)
	}
}

func TestLogReturns_InsufficientData(t *testing.T) {
	_, err := LogReturns(barsFromCloses(100))
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestSimpleReturns(t *testing.T) {
	bars := barsFromCloses(100, 120)

	returns, err := SimpleReturns(bars)
	if err != nil {
		t.Fatalf("Failed to compute returns: %v", err)
	}

	if !almostEqual(returns[0], 0.2, 1e-12) {
		t.Errorf("returns[0] = %v, want 0.2", returns[0])
	}
}

func TestRollingVolatility(t *testing.T) {
	returns := []float64{0.01, -0.02, 0.03, -0.01, 0.02}

	vols, err := RollingVolatility(returns, 3)
	if err != nil {
		t.Fatalf("Failed to compute volatility: %v", err)
	}

	if len(vols) != len(returns) {
		t.Fatalf("Expected %d values, got %d", len(returns), len(vols))
	}

	for i := 0; i < 2; i++ {
		if !math.IsNaN(vols[i]) {
			t.Errorf("vols[%d] should be NaN during warm-up, got %v", i, vols[i])
		}
	}

	// First defined value is the sample std of the first 3 returns
	want := sampleStd(returns[:3])
	if !almostEqual(vols[2], want, 1e-12) {
		t.Errorf("vols[2] = %v, want %v", vols[2], want)
	}
}

func TestRollingVolatility_InsufficientData(t *testing.T) {
	_, err := RollingVolatility([]float64{0.01, 0.02}, 7)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}
