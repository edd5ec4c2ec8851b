package clickhouse

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/selivandex/regime-lab/pkg/logger"
	"github.com/selivandex/regime-lab/pkg/models"
)

// Repository handles ClickHouse data operations
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new ClickHouse repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the bar and feature tables if they are missing.
// ClickHouse schema lives here rather than in migrations since the
// store is append-only and ReplacingMergeTree handles re-ingestion.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS market_ohlcv (
			timestamp DateTime,
			symbol    LowCardinality(String),
			timeframe LowCardinality(String),
			open      Float64,
			high      Float64,
			low       Float64,
			close     Float64,
			volume    Float64
		) ENGINE = ReplacingMergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (symbol, timeframe, timestamp)`,

		`CREATE TABLE IF NOT EXISTS feature_rows (
			timestamp        DateTime,
			symbol           LowCardinality(String),
			close            Float64,
			log_return       Float64,
			realized_vol     Float64,
			regime           LowCardinality(String),
			regime_duration  UInt32,
			dist_lower_bound Float64,
			dist_upper_bound Float64,
			streak_sign      Int8,
			streak_length    UInt32,
			momentum_5d      Float64,
			momentum_10d     Float64,
			momentum_20d     Float64,
			return_accel_5d  Float64,
			return_accel_10d Float64,
			return_accel_20d Float64,
			asymmetry_ratio  Float64,
			return_skewness  Float64,
			autocorr_1d      Float64,
			autocorr_5d      Float64,
			autocorr_10d     Float64,
			volume_change_1d Float64,
			volume_momentum_5d    Float64,
			volume_momentum_10d   Float64,
			volume_momentum_20d   Float64,
			volume_trend_strength Float64,
			rsi_14           Float64,
			macd             Float64,
			macd_signal      Float64,
			bollinger_width  Float64,
			atr_14           Float64
		) ENGINE = ReplacingMergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (symbol, timestamp)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure clickhouse schema: %w", err)
		}
	}

	logger.Info("clickhouse schema ensured")
	return nil
}

// SaveBars saves OHLCV bars to ClickHouse
func (r *Repository) SaveBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	stmt, err := tx.Preparex(`
		INSERT INTO market_ohlcv
		(timestamp, symbol, timeframe, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		_, err = stmt.ExecContext(ctx,
			bar.Timestamp,
			bar.Symbol,
			bar.Timeframe,
			bar.Open.InexactFloat64(),
			bar.High.InexactFloat64(),
			bar.Low.InexactFloat64(),
			bar.Close.InexactFloat64(),
			bar.Volume.InexactFloat64(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert bar: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug("saved bars to ClickHouse",
		zap.String("symbol", bars[0].Symbol),
		zap.Int("count", len(bars)),
	)

	return nil
}

// SaveFeatureRows saves derived feature rows to ClickHouse
func (r *Repository) SaveFeatureRows(ctx context.Context, rows []models.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	stmt, err := tx.Preparex(`
		INSERT INTO feature_rows
		(timestamp, symbol, close, log_return, realized_vol, regime,
		 regime_duration, dist_lower_bound, dist_upper_bound, streak_sign,
		 streak_length, momentum_5d, momentum_10d, momentum_20d,
		 return_accel_5d, return_accel_10d, return_accel_20d,
		 asymmetry_ratio, return_skewness, autocorr_1d, autocorr_5d,
		 autocorr_10d, volume_change_1d, volume_momentum_5d,
		 volume_momentum_10d, volume_momentum_20d, volume_trend_strength,
		 rsi_14, macd, macd_signal, bollinger_width, atr_14)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err = stmt.ExecContext(ctx,
			row.Timestamp,
			row.Symbol,
			row.Close.InexactFloat64(),
			row.LogReturn,
			row.RealizedVol,
			string(row.Regime),
			row.RegimeDuration,
			row.DistLowerBound,
			row.DistUpperBound,
			int8(row.StreakSign),
			row.StreakLength,
			row.Momentum5d,
			row.Momentum10d,
			row.Momentum20d,
			row.ReturnAccel5d,
			row.ReturnAccel10d,
			row.ReturnAccel20d,
			row.AsymmetryRatio,
			row.ReturnSkewness,
			row.Autocorr1d,
			row.Autocorr5d,
			row.Autocorr10d,
			row.VolumeChange1d,
			row.VolumeMom5d,
			row.VolumeMom10d,
			row.VolumeMom20d,
			row.VolumeTrend,
			row.RSI14,
			row.MACD,
			row.MACDSignal,
			row.BollingerWidth,
			row.ATR14,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert feature row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug("saved feature rows to ClickHouse",
		zap.String("symbol", rows[0].Symbol),
		zap.Int("count", len(rows)),
	)

	return nil
}
