package features

import (
	"math"
	"time"

	"github.com/selivandex/regime-lab/pkg/models"
)

// barsFromCloses builds a daily bar series around the given closes
func barsFromCloses(closes ...float64) []models.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		volume := 1000 * (1 + 0.5*math.Sin(float64(i)*0.37))
		bars[i] = models.Bar{
			Symbol:    "BTC/USDT",
			Timeframe: "1d",
			Timestamp: start.AddDate(0, 0, i),
			Open:      models.NewDecimal(open),
			High:      models.NewDecimal(c * 1.01),
			Low:       models.NewDecimal(c * 0.99),
			Close:     models.NewDecimal(c),
			Volume:    models.NewDecimal(volume),
		}
	}

	return bars
}

// generateTestBars builds a deterministic price series with alternating
// return signs and slowly varying magnitude, so every rolling window
// contains both gains and losses and no window has constant returns.
func generateTestBars(n int, start float64) []models.Bar {
	closes := make([]float64, n)
	closes[0] = start
	for i := 1; i < n; i++ {
		mag := 0.005 + 0.004*math.Sin(float64(i)*0.7) + 0.01*math.Abs(math.Sin(float64(i)*0.13))
		r := mag
		if i%2 == 0 {
			r = -mag
		}
		closes[i] = closes[i-1] * math.Exp(r)
	}
	return barsFromCloses(closes...)
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
