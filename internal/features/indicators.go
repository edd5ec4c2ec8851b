package features

import (
	"fmt"

	"github.com/cinar/indicator"

	"github.com/selivandex/regime-lab/pkg/models"
)

// indicatorMinBars is the minimum history the slowest indicator (MACD,
// 26-period EMA) needs before its values stabilize.
const indicatorMinBars = 26

// IndicatorSeries holds per-day technical indicator values aligned to
// the bar series.
type IndicatorSeries struct {
	RSI14          []float64
	MACD           []float64
	MACDSignal     []float64
	BollingerWidth []float64
	ATR14          []float64
}

// Indicators computes RSI, MACD, Bollinger band width and ATR from the
// bar series. Values before indicatorMinBars are unreliable and must
// not leak into feature rows; the deriver's warm-up cut covers that.
func Indicators(bars []models.Bar) (*IndicatorSeries, error) {
	if len(bars) < indicatorMinBars {
		return nil, fmt.Errorf("%w: need at least %d bars for indicators, got %d",
			ErrInsufficientData, indicatorMinBars, len(bars))
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close.InexactFloat64()
		highs[i] = bar.High.InexactFloat64()
		lows[i] = bar.Low.InexactFloat64()
	}

	_, rsi := indicator.Rsi(closes)
	macdLine, signalLine := indicator.Macd(closes)
	bbMiddle, bbUpper, bbLower := indicator.BollingerBands(closes)
	_, atr := indicator.Atr(14, highs, lows, closes)

	width := make([]float64, len(bars))
	for i := range width {
		if bbMiddle[i] != 0 {
			width[i] = (bbUpper[i] - bbLower[i]) / bbMiddle[i]
		}
	}

	return &IndicatorSeries{
		RSI14:          rsi,
		MACD:           macdLine,
		MACDSignal:     signalLine,
		BollingerWidth: width,
		ATR14:          atr,
	}, nil
}
