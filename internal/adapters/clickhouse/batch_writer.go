package clickhouse

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/regime-lab/pkg/logger"
	"github.com/selivandex/regime-lab/pkg/models"
)

// BatchWriter buffers records and writes them via repository in batches
type BatchWriter struct {
	repo      *Repository
	buffer    []interface{}
	bufferMu  sync.Mutex
	maxBatch  int
	ticker    *time.Ticker
	flushFunc func(context.Context, *Repository, []interface{}) error
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewBatchWriter creates new batch writer
func NewBatchWriter(
	repo *Repository,
	maxBatch int,
	maxWait time.Duration,
	flushFunc func(context.Context, *Repository, []interface{}) error,
) *BatchWriter {
	ctx, cancel := context.WithCancel(context.Background())

	bw := &BatchWriter{
		repo:      repo,
		buffer:    make([]interface{}, 0, maxBatch),
		maxBatch:  maxBatch,
		ticker:    time.NewTicker(maxWait),
		flushFunc: flushFunc,
		ctx:       ctx,
		cancel:    cancel,
	}

	bw.wg.Add(1)
	go bw.autoFlush()

	return bw
}

// Add adds record to buffer
func (bw *BatchWriter) Add(record interface{}) {
	bw.bufferMu.Lock()
	bw.buffer = append(bw.buffer, record)
	shouldFlush := len(bw.buffer) >= bw.maxBatch
	bw.bufferMu.Unlock()

	if shouldFlush {
		bw.flush()
	}
}

func (bw *BatchWriter) autoFlush() {
	defer bw.wg.Done()

	for {
		select {
		case <-bw.ticker.C:
			bw.flush()
		case <-bw.ctx.Done():
			// Final flush before exit
			bw.flush()
			return
		}
	}
}

func (bw *BatchWriter) flush() {
	bw.bufferMu.Lock()
	if len(bw.buffer) == 0 {
		bw.bufferMu.Unlock()
		return
	}

	toWrite := make([]interface{}, len(bw.buffer))
	copy(toWrite, bw.buffer)
	bw.buffer = bw.buffer[:0]
	bw.bufferMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := bw.flushFunc(ctx, bw.repo, toWrite); err != nil {
		logger.Error("failed to flush batch to ClickHouse",
			zap.Int("records", len(toWrite)),
			zap.Error(err),
		)
		return
	}

	logger.Debug("flushed batch to ClickHouse",
		zap.Int("records", len(toWrite)),
	)
}

// Close stops the writer and flushes remaining data
func (bw *BatchWriter) Close() error {
	bw.ticker.Stop()
	bw.cancel()
	bw.wg.Wait()
	return nil
}

// BarBatchWriter specialized writer for OHLCV bars
type BarBatchWriter struct {
	*BatchWriter
}

// NewBarBatchWriter creates batch writer for bars
func NewBarBatchWriter(repo *Repository, maxBatch int, maxWait time.Duration) *BarBatchWriter {
	flushFunc := func(ctx context.Context, r *Repository, records []interface{}) error {
		bars := make([]models.Bar, len(records))
		for i, record := range records {
			bars[i] = record.(models.Bar)
		}
		return r.SaveBars(ctx, bars)
	}

	return &BarBatchWriter{BatchWriter: NewBatchWriter(repo, maxBatch, maxWait, flushFunc)}
}

// AddBar adds bar to buffer
func (bbw *BarBatchWriter) AddBar(bar models.Bar) {
	bbw.Add(bar)
}

// FeatureRowBatchWriter specialized writer for feature rows
type FeatureRowBatchWriter struct {
	*BatchWriter
}

// NewFeatureRowBatchWriter creates batch writer for feature rows
func NewFeatureRowBatchWriter(repo *Repository, maxBatch int, maxWait time.Duration) *FeatureRowBatchWriter {
	flushFunc := func(ctx context.Context, r *Repository, records []interface{}) error {
		rows := make([]models.FeatureRow, len(records))
		for i, record := range records {
			rows[i] = record.(models.FeatureRow)
		}
		return r.SaveFeatureRows(ctx, rows)
	}

	return &FeatureRowBatchWriter{BatchWriter: NewBatchWriter(repo, maxBatch, maxWait, flushFunc)}
}

// AddRow adds feature row to buffer
func (frw *FeatureRowBatchWriter) AddRow(row models.FeatureRow) {
	frw.Add(row)
}
