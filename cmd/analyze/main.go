package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/selivandex/regime-lab/internal/adapters/config"
	"github.com/selivandex/regime-lab/internal/adapters/exchange"
	"github.com/selivandex/regime-lab/internal/features"
	"github.com/selivandex/regime-lab/pkg/logger"
	"github.com/selivandex/regime-lab/pkg/models"
)

func main() {
	var (
		csvPath       = flag.String("csv", "", "Load bars from CSV file (timestamp,open,high,low,close,volume)")
		symbol        = flag.String("symbol", "BTC/USDT", "Symbol to analyze")
		timeframe     = flag.String("timeframe", "1d", "Bar timeframe")
		bars          = flag.Int("bars", 730, "Number of bars to fetch when no CSV is given")
		exchangeName  = flag.String("exchange", "binance", "Exchange to fetch bars from (binance/mock)")
		volWindow     = flag.Int("vol-window", 7, "Realized volatility window in days")
		rollingWindow = flag.Int("rolling-window", 20, "Rolling window for asymmetry and autocorrelation")
		outPath       = flag.String("out", "", "Write the feature table to this CSV file")
	)

	flag.Parse()

	if err := logger.Init("warn", ""); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	barSeries, err := loadBars(*csvPath, *symbol, *timeframe, *exchangeName, *bars)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load bars: %v\n", err)
		os.Exit(1)
	}

	deriver := features.NewDeriver(features.Config{
		VolWindow:     *volWindow,
		RollingWindow: *rollingWindow,
	})

	rows, summary, err := deriver.Derive(barSeries)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Derive failed: %v\n", err)
		os.Exit(1)
	}

	printReport(summary)

	if *outPath != "" {
		if err := writeRowsCSV(*outPath, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write feature table: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nFeature table written to %s (%d rows)\n", *outPath, len(rows))
	}
}

func loadBars(csvPath, symbol, timeframe, exchangeName string, limit int) ([]models.Bar, error) {
	if csvPath != "" {
		return loadBarsCSV(csvPath, symbol, timeframe)
	}

	ex, err := exchange.New(&config.ExchangeConfig{
		Name:       exchangeName,
		FetchLimit: limit,
	})
	if err != nil {
		return nil, err
	}
	defer ex.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	return ex.FetchOHLCV(ctx, symbol, timeframe, limit)
}

// loadBarsCSV reads bars from a CSV with a header row. Timestamps are
// either RFC3339 or YYYY-MM-DD.
func loadBarsCSV(path, symbol, timeframe string) ([]models.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("csv has no data rows")
	}

	bars := make([]models.Bar, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) < 6 {
			return nil, fmt.Errorf("row %d: expected 6 columns, got %d", i+2, len(record))
		}

		ts, err := parseTimestamp(record[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}

		fields := make([]float64, 5)
		for j := 0; j < 5; j++ {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+2, j+2, err)
			}
			fields[j] = v
		}

		bars = append(bars, models.Bar{
			Symbol:    symbol,
			Timeframe: timeframe,
			Timestamp: ts,
			Open:      models.NewDecimal(fields[0]),
			High:      models.NewDecimal(fields[1]),
			Low:       models.NewDecimal(fields[2]),
			Close:     models.NewDecimal(fields[3]),
			Volume:    models.NewDecimal(fields[4]),
		})
	}

	return bars, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	}
	return ts, nil
}

func printReport(s *models.DeriveSummary) {
	fmt.Printf("\n=== Volatility regime analysis: %s %s ===\n", s.Symbol, s.Timeframe)
	fmt.Printf("Period: %s .. %s (%d bars, %d feature rows)\n",
		s.PeriodStart.Format("2006-01-02"), s.PeriodEnd.Format("2006-01-02"), s.Bars, s.FeatureRows)

	fmt.Printf("\nTertile boundaries: %.6f / %.6f\n", s.Boundaries.Lower, s.Boundaries.Upper)
	fmt.Println("\nRegime distribution:")
	for _, regime := range models.RegimeLabels {
		fmt.Printf("  %-8s %5d days  (mean episode %.1f days)\n",
			regime, s.RegimeCounts[regime], s.MeanDurations[regime])
	}

	fmt.Println("\nTransition matrix (rows: from, cols: to low/medium/high):")
	for _, from := range models.RegimeLabels {
		fmt.Printf("  %-8s", from)
		for _, to := range models.RegimeLabels {
			fmt.Printf("  %.3f", s.Transitions.Prob(from, to))
		}
		fmt.Println()
	}

	fmt.Println("\nReturn streaks:")
	for _, entry := range []struct {
		sign  models.StreakSign
		label string
	}{
		{models.StreakPositive, "positive"},
		{models.StreakNegative, "negative"},
	} {
		stats := s.Streaks[entry.sign]
		fmt.Printf("  %-8s count %d, mean %.2f, max %d\n",
			entry.label, stats.Count, stats.MeanLength, stats.MaxLength)
	}

	fmt.Println("\nAutocorrelation:")
	for _, lag := range []int{1, 5, 10} {
		fmt.Printf("  lag %2dd: %+.4f\n", lag, s.Autocorr[lag])
	}

	fmt.Printf("\nAsymmetry ratio (gain/loss magnitude): %.4f\n", s.AsymmetryRatio)
	fmt.Printf("Return skewness: %+.4f\n", s.Skewness)
	fmt.Printf("Total return over period: %+.2f%%\n", s.TotalReturn*100)
}

func writeRowsCSV(path string, rows []models.FeatureRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"timestamp", "symbol", "close", "log_return", "realized_vol",
		"regime", "regime_duration", "dist_lower_bound", "dist_upper_bound",
		"streak_sign", "streak_length", "momentum_5d", "momentum_10d",
		"momentum_20d", "return_accel_5d", "return_accel_10d",
		"return_accel_20d", "asymmetry_ratio", "return_skewness",
		"autocorr_1d", "autocorr_5d", "autocorr_10d", "volume_change_1d",
		"volume_momentum_5d", "volume_momentum_10d", "volume_momentum_20d",
		"volume_trend_strength", "rsi_14", "macd", "macd_signal",
		"bollinger_width", "atr_14",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

	for _, row := range rows {
		record := []string{
			row.Timestamp.Format(time.RFC3339),
			row.Symbol,
			row.Close.String(),
			ff(row.LogReturn),
			ff(row.RealizedVol),
			string(row.Regime),
			strconv.Itoa(row.RegimeDuration),
			ff(row.DistLowerBound),
			ff(row.DistUpperBound),
			strconv.Itoa(int(row.StreakSign)),
			strconv.Itoa(row.StreakLength),
			ff(row.Momentum5d),
			ff(row.Momentum10d),
			ff(row.Momentum20d),
			ff(row.ReturnAccel5d),
			ff(row.ReturnAccel10d),
			ff(row.ReturnAccel20d),
			ff(row.AsymmetryRatio),
			ff(row.ReturnSkewness),
			ff(row.Autocorr1d),
			ff(row.Autocorr5d),
			ff(row.Autocorr10d),
			ff(row.VolumeChange1d),
			ff(row.VolumeMom5d),
			ff(row.VolumeMom10d),
			ff(row.VolumeMom20d),
			ff(row.VolumeTrend),
			ff(row.RSI14),
			ff(row.MACD),
			ff(row.MACDSignal),
			ff(row.BollingerWidth),
			ff(row.ATR14),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	return w.Err()
}
