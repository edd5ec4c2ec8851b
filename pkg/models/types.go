package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NewDecimal creates decimal from float64
func NewDecimal(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

// RegimeLabel represents categorical volatility state
type RegimeLabel string

const (
	RegimeLow    RegimeLabel = "low"
	RegimeMedium RegimeLabel = "medium"
	RegimeHigh   RegimeLabel = "high"
)

// RegimeLabels lists all regimes in ascending volatility order
var RegimeLabels = [3]RegimeLabel{RegimeLow, RegimeMedium, RegimeHigh}

// Index returns the ordinal position of the regime (low=0, medium=1, high=2)
func (r RegimeLabel) Index() int {
	switch r {
	case RegimeLow:
		return 0
	case RegimeMedium:
		return 1
	case RegimeHigh:
		return 2
	}
	return -1
}

// Valid reports whether the label is one of the three known regimes
func (r RegimeLabel) Valid() bool {
	return r.Index() >= 0
}

// StreakSign represents the direction of a return streak
type StreakSign int

const (
	StreakNegative StreakSign = -1
	StreakFlat     StreakSign = 0
	StreakPositive StreakSign = 1
)

// Bar represents one daily OHLCV candle
type Bar struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// RegimeBoundaries holds the tertile split points of the realized
// volatility distribution. Lower is the 33rd percentile, Upper the 66th.
type RegimeBoundaries struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Span returns the distance between the two boundaries
func (b RegimeBoundaries) Span() float64 {
	return b.Upper - b.Lower
}

// RegimeEpisode is a maximal run of consecutive days sharing one regime label
type RegimeEpisode struct {
	Regime   RegimeLabel `json:"regime"`
	StartIdx int         `json:"start_idx"`
	Length   int         `json:"length"`
	// Entered/Exited hold the adjacent regimes; empty at series edges
	Entered RegimeLabel `json:"entered_from,omitempty"`
	Exited  RegimeLabel `json:"exited_to,omitempty"`
}

// TransitionMatrix holds empirical next-day regime probabilities.
// Rows are conditioned on the current regime (low/medium/high order);
// a regime never observed produces a row of zeros.
type TransitionMatrix [3][3]float64

// Prob returns the probability of moving from one regime to another
func (m TransitionMatrix) Prob(from, to RegimeLabel) float64 {
	return m[from.Index()][to.Index()]
}

// RowSum returns the sum of one row (1.0 for observed regimes, 0 otherwise)
func (m TransitionMatrix) RowSum(from RegimeLabel) float64 {
	var sum float64
	for _, p := range m[from.Index()] {
		sum += p
	}
	return sum
}

// ReturnStreak is a maximal run of consecutive same-signed returns
type ReturnStreak struct {
	Sign     StreakSign `json:"sign"`
	StartIdx int        `json:"start_idx"`
	Length   int        `json:"length"`
}

// StreakStats summarizes streak lengths for one sign
type StreakStats struct {
	Count      int     `json:"count"`
	MeanLength float64 `json:"mean_length"`
	MaxLength  int     `json:"max_length"`
}

// FeatureRow aggregates all derived per-day features. One row per bar
// once enough history exists to fill every rolling window; warm-up
// rows are dropped, so the first row lags the first bar.
type FeatureRow struct {
	Symbol    string    `json:"symbol" db:"symbol"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	Close       decimal.Decimal `json:"close" db:"close"`
	LogReturn   float64         `json:"log_return" db:"log_return"`
	RealizedVol float64         `json:"realized_vol" db:"realized_vol"`

	Regime         RegimeLabel `json:"regime" db:"regime"`
	RegimeDuration int         `json:"regime_duration" db:"regime_duration"`
	DistLowerBound float64     `json:"dist_lower_bound" db:"dist_lower_bound"`
	DistUpperBound float64     `json:"dist_upper_bound" db:"dist_upper_bound"`
	StreakSign     StreakSign  `json:"streak_sign" db:"streak_sign"`
	StreakLength   int         `json:"streak_length" db:"streak_length"`
	Momentum5d     float64     `json:"momentum_5d" db:"momentum_5d"`
	Momentum10d    float64     `json:"momentum_10d" db:"momentum_10d"`
	Momentum20d    float64     `json:"momentum_20d" db:"momentum_20d"`
	ReturnAccel5d  float64     `json:"return_accel_5d" db:"return_accel_5d"`
	ReturnAccel10d float64     `json:"return_accel_10d" db:"return_accel_10d"`
	ReturnAccel20d float64     `json:"return_accel_20d" db:"return_accel_20d"`
	AsymmetryRatio float64     `json:"asymmetry_ratio" db:"asymmetry_ratio"`
	ReturnSkewness float64     `json:"return_skewness" db:"return_skewness"`
	Autocorr1d     float64     `json:"autocorr_1d" db:"autocorr_1d"`
	Autocorr5d     float64     `json:"autocorr_5d" db:"autocorr_5d"`
	Autocorr10d    float64     `json:"autocorr_10d" db:"autocorr_10d"`
	VolumeChange1d float64     `json:"volume_change_1d" db:"volume_change_1d"`
	VolumeMom5d    float64     `json:"volume_momentum_5d" db:"volume_momentum_5d"`
	VolumeMom10d   float64     `json:"volume_momentum_10d" db:"volume_momentum_10d"`
	VolumeMom20d   float64     `json:"volume_momentum_20d" db:"volume_momentum_20d"`
	VolumeTrend    float64     `json:"volume_trend_strength" db:"volume_trend_strength"`
	RSI14          float64     `json:"rsi_14" db:"rsi_14"`
	MACD           float64     `json:"macd" db:"macd"`
	MACDSignal     float64     `json:"macd_signal" db:"macd_signal"`
	BollingerWidth float64     `json:"bollinger_width" db:"bollinger_width"`
	ATR14          float64     `json:"atr_14" db:"atr_14"`
}

// DeriveSummary aggregates the dataset-level statistics of one derive run
type DeriveSummary struct {
	Symbol      string    `json:"symbol"`
	Timeframe   string    `json:"timeframe"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Bars        int       `json:"bars"`
	FeatureRows int       `json:"feature_rows"`

	Boundaries    RegimeBoundaries           `json:"boundaries"`
	RegimeCounts  map[RegimeLabel]int        `json:"regime_counts"`
	MeanDurations map[RegimeLabel]float64    `json:"mean_durations"`
	Transitions   TransitionMatrix           `json:"transitions"`
	Streaks       map[StreakSign]StreakStats `json:"streaks"`
	Autocorr      map[int]float64            `json:"autocorr_by_lag"`

	AsymmetryRatio float64 `json:"asymmetry_ratio"`
	Skewness       float64 `json:"skewness"`
	TotalReturn    float64 `json:"total_return"`

	GeneratedAt time.Time `json:"generated_at"`
}

// String renders a compact one-line summary for logs
func (s *DeriveSummary) String() string {
	return fmt.Sprintf("%s %s: %d bars -> %d rows, boundaries [%.6f, %.6f], regimes L/M/H %d/%d/%d",
		s.Symbol, s.Timeframe, s.Bars, s.FeatureRows,
		s.Boundaries.Lower, s.Boundaries.Upper,
		s.RegimeCounts[RegimeLow], s.RegimeCounts[RegimeMedium], s.RegimeCounts[RegimeHigh],
	)
}
