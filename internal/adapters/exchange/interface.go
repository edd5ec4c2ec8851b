package exchange

import (
	"context"
	"fmt"

	"github.com/selivandex/regime-lab/internal/adapters/config"
	"github.com/selivandex/regime-lab/pkg/models"
)

// Exchange represents a market data source
type Exchange interface {
	// GetName returns exchange name
	GetName() string

	// FetchOHLCV fetches up to limit most recent bars for the symbol,
	// oldest first
	FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]models.Bar, error)

	// Close releases exchange resources
	Close() error
}

// New creates an exchange by configured name
func New(cfg *config.ExchangeConfig) (Exchange, error) {
	switch cfg.Name {
	case "binance":
		return NewBinanceAdapter(cfg)
	case "mock":
		return NewMockExchange("mock", 40000), nil
	default:
		return nil, fmt.Errorf("unsupported exchange: %s", cfg.Name)
	}
}
