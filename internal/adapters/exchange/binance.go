package exchange

import (
	"context"
	"fmt"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"github.com/selivandex/regime-lab/internal/adapters/config"
	"github.com/selivandex/regime-lab/pkg/logger"
	"github.com/selivandex/regime-lab/pkg/models"
)

// BinanceAdapter wraps CCXT Binance for spot market data
type BinanceAdapter struct {
	exchange *ccxt.Binance
	config   *config.ExchangeConfig
}

// NewBinanceAdapter creates new Binance adapter. Public market data
// needs no credentials; keys are passed through when present so rate
// limits are account-scoped.
func NewBinanceAdapter(cfg *config.ExchangeConfig) (*BinanceAdapter, error) {
	options := map[string]interface{}{
		"apiKey": cfg.APIKey,
		"secret": cfg.Secret,
	}

	exchange := ccxt.NewBinance(options)
	exchange.SetOption("defaultType", "spot")
	exchange.SetOption("adjustForTimeDifference", true)

	if err := exchange.LoadMarkets(); err != nil {
		return nil, fmt.Errorf("failed to load Binance markets: %w", err)
	}

	logger.Info("Binance adapter initialized",
		zap.Int("markets_count", len(exchange.Markets)),
	)

	return &BinanceAdapter{
		exchange: exchange,
		config:   cfg,
	}, nil
}

func (b *BinanceAdapter) GetName() string {
	return "binance"
}

// FetchOHLCV fetches recent bars, oldest first
func (b *BinanceAdapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]models.Bar, error) {
	ohlcv, err := b.exchange.FetchOHLCV(
		symbol,
		ccxt.WithFetchOHLCVTimeframe(timeframe),
		ccxt.WithFetchOHLCVLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OHLCV: %w", err)
	}

	bars := make([]models.Bar, len(ohlcv))
	for i, row := range ohlcv {
		bars[i] = models.Bar{
			Symbol:    symbol,
			Timeframe: timeframe,
			Timestamp: time.UnixMilli(int64(row[0])).UTC(),
			Open:      models.NewDecimal(row[1]),
			High:      models.NewDecimal(row[2]),
			Low:       models.NewDecimal(row[3]),
			Close:     models.NewDecimal(row[4]),
			Volume:    models.NewDecimal(row[5]),
		}
	}

	return bars, nil
}

func (b *BinanceAdapter) Close() error {
	return nil
}
