package exchange

import (
	"context"
	"math"
	"time"

	"github.com/selivandex/regime-lab/pkg/models"
)

// MockExchange serves deterministic synthetic bars for tests and local
// runs without exchange access. The generated walk alternates gains and
// losses with drifting magnitude so derived features are non-trivial.
type MockExchange struct {
	name      string
	basePrice float64
}

// NewMockExchange creates new mock exchange
func NewMockExchange(name string, basePrice float64) *MockExchange {
	return &MockExchange{name: name, basePrice: basePrice}
}

func (m *MockExchange) GetName() string {
	return m.name
}

// FetchOHLCV generates limit daily bars ending yesterday, oldest first
func (m *MockExchange) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]models.Bar, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -limit)

	bars := make([]models.Bar, limit)
	price := m.basePrice
	for i := 0; i < limit; i++ {
		mag := 0.004 + 0.006*math.Abs(math.Sin(float64(i)*0.31))
		r := mag
		if i%2 == 0 {
			r = -mag
		}

		open := price
		price = price * math.Exp(r)

		high := math.Max(open, price) * 1.005
		low := math.Min(open, price) * 0.995

		bars[i] = models.Bar{
			Symbol:    symbol,
			Timeframe: timeframe,
			Timestamp: start.AddDate(0, 0, i),
			Open:      models.NewDecimal(open),
			High:      models.NewDecimal(high),
			Low:       models.NewDecimal(low),
			Close:     models.NewDecimal(price),
			Volume:    models.NewDecimal(1000 + 100*math.Abs(math.Sin(float64(i)))),
		}
	}

	return bars, nil
}

func (m *MockExchange) Close() error {
	return nil
}
