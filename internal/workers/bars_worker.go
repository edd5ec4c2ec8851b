package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/regime-lab/internal/adapters/clickhouse"
	"github.com/selivandex/regime-lab/internal/adapters/exchange"
	"github.com/selivandex/regime-lab/pkg/logger"
)

// BarsWorker periodically fetches OHLCV bars from the exchange and
// buffers them into ClickHouse. ReplacingMergeTree deduplicates the
// overlap between consecutive fetches.
type BarsWorker struct {
	exchange   exchange.Exchange
	barWriter  *clickhouse.BarBatchWriter
	symbols    []string
	timeframe  string
	fetchLimit int
}

// NewBarsWorker creates new bars worker
func NewBarsWorker(
	ex exchange.Exchange,
	barWriter *clickhouse.BarBatchWriter,
	symbols []string,
	timeframe string,
	fetchLimit int,
) *BarsWorker {
	return &BarsWorker{
		exchange:   ex,
		barWriter:  barWriter,
		symbols:    symbols,
		timeframe:  timeframe,
		fetchLimit: fetchLimit,
	}
}

// Name returns worker name
func (bw *BarsWorker) Name() string {
	return "bars_poller"
}

// Run executes one fetch iteration across all configured symbols
func (bw *BarsWorker) Run(ctx context.Context) error {
	startTime := time.Now()
	totalFetched := 0

	for _, symbol := range bw.symbols {
		bars, err := bw.exchange.FetchOHLCV(ctx, symbol, bw.timeframe, bw.fetchLimit)
		if err != nil {
			logger.Warn("failed to fetch bars",
				zap.String("symbol", symbol),
				zap.String("timeframe", bw.timeframe),
				zap.Error(err),
			)
			continue
		}

		for _, bar := range bars {
			bw.barWriter.AddBar(bar)
		}

		totalFetched += len(bars)
	}

	logger.Info("bars fetched and buffered",
		zap.Int("total", totalFetched),
		zap.Duration("latency", time.Since(startTime)),
	)

	return nil
}
