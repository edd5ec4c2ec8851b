package market

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/selivandex/regime-lab/pkg/models"
)

// Repository reads stored OHLCV bars from ClickHouse
type Repository struct {
	ch *sqlx.DB
}

// NewRepository creates new market repository
func NewRepository(ch *sqlx.DB) *Repository {
	return &Repository{ch: ch}
}

// GetBars retrieves up to limit most recent bars, oldest first. The
// deriver requires chronological order, so the DESC page is reversed
// before returning.
func (r *Repository) GetBars(ctx context.Context, symbol, timeframe string, limit int) ([]models.Bar, error) {
	query := `
		SELECT timestamp, symbol, timeframe, open, high, low, close, volume
		FROM market_ohlcv FINAL
		WHERE symbol = ? AND timeframe = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := r.ch.QueryxContext(ctx, query, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	bars := []models.Bar{}
	for rows.Next() {
		var bar models.Bar
		var open, high, low, close, volume float64

		err := rows.Scan(
			&bar.Timestamp,
			&bar.Symbol,
			&bar.Timeframe,
			&open,
			&high,
			&low,
			&close,
			&volume,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}

		bar.Open = models.NewDecimal(open)
		bar.High = models.NewDecimal(high)
		bar.Low = models.NewDecimal(low)
		bar.Close = models.NewDecimal(close)
		bar.Volume = models.NewDecimal(volume)

		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bars: %w", err)
	}

	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}

	return bars, nil
}

// GetBarCount returns number of stored bars for symbol/timeframe
func (r *Repository) GetBarCount(ctx context.Context, symbol, timeframe string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM market_ohlcv FINAL
		WHERE symbol = ? AND timeframe = ?
	`

	var count int
	err := r.ch.GetContext(ctx, &count, query, symbol, timeframe)
	return count, err
}

// GetLatestBar returns the most recent bar, or nil when none stored
func (r *Repository) GetLatestBar(ctx context.Context, symbol, timeframe string) (*models.Bar, error) {
	bars, err := r.GetBars(ctx, symbol, timeframe, 1)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, nil
	}
	return &bars[0], nil
}
