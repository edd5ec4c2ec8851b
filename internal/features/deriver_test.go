package features

import (
	"errors"
	"math"
	"testing"

	"github.com/selivandex/regime-lab/pkg/models"
)

func TestDeriver_Derive(t *testing.T) {
	deriver := NewDeriver(Config{})
	bars := generateTestBars(120, 40000)

	rows, summary, err := deriver.Derive(bars)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	warmup := deriver.warmupBars()
	if len(rows) != len(bars)-warmup {
		t.Fatalf("Expected %d rows after warm-up cut, got %d", len(bars)-warmup, len(rows))
	}

	// First row must belong to the first post-warm-up bar
	if !rows[0].Timestamp.Equal(bars[warmup].Timestamp) {
		t.Errorf("First row timestamp %s, want %s", rows[0].Timestamp, bars[warmup].Timestamp)
	}

	returns, _ := LogReturns(bars)
	for i, row := range rows {
		barIdx := warmup + i

		if !row.Close.Equal(bars[barIdx].Close) {
			t.Fatalf("Row %d close %s, want %s", i, row.Close, bars[barIdx].Close)
		}
		if !almostEqual(row.LogReturn, returns[barIdx-1], 1e-12) {
			t.Fatalf("Row %d log return %v, want %v", i, row.LogReturn, returns[barIdx-1])
		}

		if !row.Regime.Valid() {
			t.Fatalf("Row %d has invalid regime %q", i, row.Regime)
		}
		if row.RegimeDuration < 1 {
			t.Fatalf("Row %d regime duration %d, want >= 1", i, row.RegimeDuration)
		}
		if row.StreakLength < 1 {
			t.Fatalf("Row %d streak length %d, want >= 1", i, row.StreakLength)
		}

		// No NaN may survive the warm-up cut
		for name, v := range map[string]float64{
			"realized_vol":          row.RealizedVol,
			"momentum_5d":           row.Momentum5d,
			"momentum_10d":          row.Momentum10d,
			"momentum_20d":          row.Momentum20d,
			"return_accel_5d":       row.ReturnAccel5d,
			"return_accel_10d":      row.ReturnAccel10d,
			"return_accel_20d":      row.ReturnAccel20d,
			"asymmetry_ratio":       row.AsymmetryRatio,
			"return_skewness":       row.ReturnSkewness,
			"autocorr_1d":           row.Autocorr1d,
			"autocorr_5d":           row.Autocorr5d,
			"autocorr_10d":          row.Autocorr10d,
			"volume_change_1d":      row.VolumeChange1d,
			"volume_momentum_5d":    row.VolumeMom5d,
			"volume_momentum_10d":   row.VolumeMom10d,
			"volume_momentum_20d":   row.VolumeMom20d,
			"volume_trend_strength": row.VolumeTrend,
			"rsi_14":                row.RSI14,
			"atr_14":                row.ATR14,
		} {
			if math.IsNaN(v) {
				t.Fatalf("Row %d field %s is NaN", i, name)
			}
		}
	}

	// Acceleration is the difference of consecutive momentum values, and
	// consecutive rows see consecutive return days
	for i := 1; i < len(rows); i++ {
		want := rows[i].Momentum20d - rows[i-1].Momentum20d
		if !almostEqual(rows[i].ReturnAccel20d, want, 1e-12) {
			t.Fatalf("Row %d accel %v, want momentum diff %v", i, rows[i].ReturnAccel20d, want)
		}
	}

	// Volume change must match the raw bar volumes
	for i, row := range rows {
		barIdx := warmup + i
		prev := bars[barIdx-1].Volume.InexactFloat64()
		cur := bars[barIdx].Volume.InexactFloat64()
		if !almostEqual(row.VolumeChange1d, cur/prev-1, 1e-9) {
			t.Fatalf("Row %d volume change %v, want %v", i, row.VolumeChange1d, cur/prev-1)
		}
	}

	// Regime assignment against the summary boundaries must be consistent
	for i, row := range rows {
		var want models.RegimeLabel
		switch {
		case row.RealizedVol <= summary.Boundaries.Lower:
			want = models.RegimeLow
		case row.RealizedVol <= summary.Boundaries.Upper:
			want = models.RegimeMedium
		default:
			want = models.RegimeHigh
		}
		if row.Regime != want {
			t.Fatalf("Row %d regime %s, boundaries say %s (vol %v)", i, row.Regime, want, row.RealizedVol)
		}
	}
}

func TestDeriver_Summary(t *testing.T) {
	deriver := NewDeriver(Config{})
	bars := generateTestBars(150, 40000)

	rows, summary, err := deriver.Derive(bars)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	if summary.Symbol != "BTC/USDT" || summary.Timeframe != "1d" {
		t.Errorf("Summary identity wrong: %s %s", summary.Symbol, summary.Timeframe)
	}
	if summary.Bars != len(bars) || summary.FeatureRows != len(rows) {
		t.Errorf("Summary counts wrong: %d bars, %d rows", summary.Bars, summary.FeatureRows)
	}
	if !summary.PeriodStart.Equal(bars[0].Timestamp) || !summary.PeriodEnd.Equal(bars[len(bars)-1].Timestamp) {
		t.Errorf("Summary period wrong: %s..%s", summary.PeriodStart, summary.PeriodEnd)
	}

	// Regime counts cover the whole labeled sample, which starts at the
	// volatility warm-up, before the full feature warm-up cut
	total := 0
	for _, regime := range models.RegimeLabels {
		total += summary.RegimeCounts[regime]
	}
	if want := len(bars) - 1 - (deriver.cfg.VolWindow - 1); total != want {
		t.Errorf("Regime counts sum to %d, want %d", total, want)
	}

	for _, regime := range models.RegimeLabels {
		sum := summary.Transitions.RowSum(regime)
		if summary.RegimeCounts[regime] > 0 {
			if !almostEqual(sum, 1, 1e-9) && sum != 0 {
				t.Errorf("Transition row %s sums to %v, want 1", regime, sum)
			}
		}
	}

	for _, lag := range []int{1, 5, 10} {
		ac, ok := summary.Autocorr[lag]
		if !ok {
			t.Errorf("Summary missing autocorrelation for lag %d", lag)
			continue
		}
		if ac < -1 || ac > 1 {
			t.Errorf("Autocorrelation at lag %d = %v outside [-1, 1]", lag, ac)
		}
	}

	if summary.AsymmetryRatio <= 0 {
		t.Errorf("Asymmetry ratio = %v, want > 0", summary.AsymmetryRatio)
	}

	// Compounded simple returns telescope to last close over first close
	first := bars[0].Close.InexactFloat64()
	last := bars[len(bars)-1].Close.InexactFloat64()
	if !almostEqual(summary.TotalReturn, last/first-1, 1e-9) {
		t.Errorf("Total return = %v, want %v", summary.TotalReturn, last/first-1)
	}

	pos := summary.Streaks[models.StreakPositive]
	neg := summary.Streaks[models.StreakNegative]
	if pos.Count == 0 || neg.Count == 0 {
		t.Errorf("Mixed-sign series should produce both streak kinds: %+v / %+v", pos, neg)
	}
}

func TestDeriver_InsufficientData(t *testing.T) {
	deriver := NewDeriver(Config{})

	bars := generateTestBars(deriver.MinBars()-1, 40000)
	_, _, err := deriver.Derive(bars)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestDeriver_MalformedInput(t *testing.T) {
	deriver := NewDeriver(Config{})

	bars := generateTestBars(120, 40000)
	bars[50].Close = models.NewDecimal(-1)

	_, _, err := deriver.Derive(bars)
	if !errors.Is(err, ErrMalformedInput) {
		t.Errorf("Expected ErrMalformedInput, got %v", err)
	}
}

func TestDeriver_DegenerateDistribution(t *testing.T) {
	deriver := NewDeriver(Config{})

	// A flat price series has zero returns and zero volatility everywhere
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 40000
	}

	_, _, err := deriver.Derive(barsFromCloses(closes...))
	if !errors.Is(err, ErrDegenerateDistribution) {
		t.Errorf("Expected ErrDegenerateDistribution, got %v", err)
	}
}

func TestDeriver_CustomWindows(t *testing.T) {
	deriver := NewDeriver(Config{VolWindow: 14, RollingWindow: 30})

	// warm-up becomes rolling window + longest lag
	if got, want := deriver.warmupBars(), 40; got != want {
		t.Errorf("warmupBars() = %d, want %d", got, want)
	}

	bars := generateTestBars(100, 40000)
	rows, _, err := deriver.Derive(bars)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if len(rows) != 60 {
		t.Errorf("Expected 60 rows, got %d", len(rows))
	}
}
