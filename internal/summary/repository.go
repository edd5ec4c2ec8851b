package summary

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/selivandex/regime-lab/pkg/models"
)

// Run is one recorded derive run
type Run struct {
	ID          string    `db:"id"`
	Symbol      string    `db:"symbol"`
	Timeframe   string    `db:"timeframe"`
	Status      string    `db:"status"`
	PeriodStart time.Time `db:"period_start"`
	PeriodEnd   time.Time `db:"period_end"`
	Bars        int       `db:"bars"`
	FeatureRows int       `db:"feature_rows"`
	Stats       []byte    `db:"stats"`
	Error       string    `db:"error"`
	StartedAt   time.Time `db:"started_at"`
	FinishedAt  time.Time `db:"finished_at"`
}

// Run status values
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Repository persists derive run records in PostgreSQL
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new summary repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// RecordSuccess stores a completed run with its full summary as JSONB
func (r *Repository) RecordSuccess(ctx context.Context, summary *models.DeriveSummary, startedAt time.Time) (string, error) {
	stats, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary stats: %w", err)
	}

	id := uuid.New().String()
	query := `
		INSERT INTO derive_runs
		(id, symbol, timeframe, status, period_start, period_end, bars, feature_rows, stats, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		id,
		summary.Symbol,
		summary.Timeframe,
		StatusCompleted,
		summary.PeriodStart,
		summary.PeriodEnd,
		summary.Bars,
		summary.FeatureRows,
		stats,
		startedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}

	return id, nil
}

// RecordFailure stores a failed run with the error message
func (r *Repository) RecordFailure(ctx context.Context, symbol, timeframe string, runErr error, startedAt time.Time) (string, error) {
	id := uuid.New().String()
	query := `
		INSERT INTO derive_runs
		(id, symbol, timeframe, status, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		id,
		symbol,
		timeframe,
		StatusFailed,
		runErr.Error(),
		startedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record failed run: %w", err)
	}

	return id, nil
}

// GetLatestRun returns the most recent run for a symbol, or nil
func (r *Repository) GetLatestRun(ctx context.Context, symbol string) (*Run, error) {
	query := `
		SELECT id, symbol, timeframe, status, period_start, period_end,
		       bars, feature_rows, stats, error, started_at, finished_at
		FROM derive_runs
		WHERE symbol = $1
		ORDER BY finished_at DESC
		LIMIT 1
	`

	var run Run
	err := r.db.GetContext(ctx, &run, query, symbol)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	return &run, nil
}

// ListRuns returns recent runs across all symbols, newest first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, symbol, timeframe, status, period_start, period_end,
		       bars, feature_rows, stats, error, started_at, finished_at
		FROM derive_runs
		ORDER BY finished_at DESC
		LIMIT $1
	`

	runs := []Run{}
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

// Summary decodes the stored JSONB stats back into a DeriveSummary
func (run *Run) Summary() (*models.DeriveSummary, error) {
	if len(run.Stats) == 0 {
		return nil, fmt.Errorf("run %s has no stats", run.ID)
	}

	var summary models.DeriveSummary
	if err := json.Unmarshal(run.Stats, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run stats: %w", err)
	}

	return &summary, nil
}
