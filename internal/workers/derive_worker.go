package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/regime-lab/internal/adapters/clickhouse"
	"github.com/selivandex/regime-lab/internal/adapters/market"
	"github.com/selivandex/regime-lab/internal/adapters/redis"
	"github.com/selivandex/regime-lab/internal/adapters/telegram"
	"github.com/selivandex/regime-lab/internal/features"
	"github.com/selivandex/regime-lab/internal/summary"
	"github.com/selivandex/regime-lab/pkg/logger"
)

// DeriveWorker recomputes the feature table per symbol. Each run loads
// the stored bar history, derives features, persists rows to
// ClickHouse, records the run in PostgreSQL and caches the summary.
// A Redis lock serializes runs per symbol across pods.
type DeriveWorker struct {
	deriver     *features.Deriver
	marketRepo  *market.Repository
	rowWriter   *clickhouse.FeatureRowBatchWriter
	summaryRepo *summary.Repository
	redisClient *redis.Client
	notifier    *telegram.Notifier
	symbols     []string
	timeframe   string
	historyBars int
}

// NewDeriveWorker creates new derive worker. The notifier may be nil
// when Telegram alerts are disabled.
func NewDeriveWorker(
	deriver *features.Deriver,
	marketRepo *market.Repository,
	rowWriter *clickhouse.FeatureRowBatchWriter,
	summaryRepo *summary.Repository,
	redisClient *redis.Client,
	notifier *telegram.Notifier,
	symbols []string,
	timeframe string,
	historyBars int,
) *DeriveWorker {
	return &DeriveWorker{
		deriver:     deriver,
		marketRepo:  marketRepo,
		rowWriter:   rowWriter,
		summaryRepo: summaryRepo,
		redisClient: redisClient,
		notifier:    notifier,
		symbols:     symbols,
		timeframe:   timeframe,
		historyBars: historyBars,
	}
}

// Name returns worker name
func (dw *DeriveWorker) Name() string {
	return "feature_deriver"
}

// Run executes one derive pass over all configured symbols
func (dw *DeriveWorker) Run(ctx context.Context) error {
	for _, symbol := range dw.symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		dw.deriveSymbol(ctx, symbol)
	}
	return nil
}

func (dw *DeriveWorker) deriveSymbol(ctx context.Context, symbol string) {
	lock := dw.redisClient.NewRunLock(symbol)
	acquired, err := lock.TryAcquire(ctx)
	if err != nil {
		logger.Error("failed to acquire derive lock",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return
	}
	if !acquired {
		logger.Info("derive run skipped, another pod holds the lock",
			zap.String("symbol", symbol),
		)
		return
	}
	defer lock.Release(ctx)

	startedAt := time.Now().UTC()

	bars, err := dw.marketRepo.GetBars(ctx, symbol, dw.timeframe, dw.historyBars)
	if err != nil {
		dw.recordFailure(ctx, symbol, err, startedAt)
		return
	}

	if len(bars) < dw.deriver.MinBars() {
		logger.Warn("not enough stored bars to derive features",
			zap.String("symbol", symbol),
			zap.Int("bars", len(bars)),
			zap.Int("required", dw.deriver.MinBars()),
		)
		return
	}

	rows, runSummary, err := dw.deriver.Derive(bars)
	if err != nil {
		dw.recordFailure(ctx, symbol, err, startedAt)
		return
	}

	for _, row := range rows {
		dw.rowWriter.AddRow(row)
	}

	runID, err := dw.summaryRepo.RecordSuccess(ctx, runSummary, startedAt)
	if err != nil {
		logger.Error("failed to record derive run",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
	}

	if err := dw.redisClient.CacheSummary(ctx, runSummary); err != nil {
		logger.Warn("failed to cache derive summary",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
	}

	if dw.notifier != nil {
		if err := dw.notifier.SendRunSummary(runSummary); err != nil {
			logger.Warn("failed to send run notification",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		}
	}

	logger.Info("derive run completed",
		zap.String("symbol", symbol),
		zap.String("run_id", runID),
		zap.String("summary", runSummary.String()),
		zap.Duration("took", time.Since(startedAt)),
	)
}

func (dw *DeriveWorker) recordFailure(ctx context.Context, symbol string, runErr error, startedAt time.Time) {
	logger.Error("derive run failed",
		zap.String("symbol", symbol),
		zap.Error(runErr),
	)

	if _, err := dw.summaryRepo.RecordFailure(ctx, symbol, dw.timeframe, runErr, startedAt); err != nil {
		logger.Error("failed to record run failure",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
	}

	if dw.notifier != nil {
		if err := dw.notifier.SendFailure(symbol, runErr); err != nil {
			logger.Warn("failed to send failure notification",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		}
	}
}
