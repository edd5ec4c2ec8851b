package features

import (
	"fmt"
	"sync"
	"time"

	"github.com/selivandex/regime-lab/pkg/models"
)

// Canonical window sets, matching the analysis this pipeline feeds:
// momentum at 5/10/20 days and autocorrelation at 1/5/10 day lags.
var (
	momentumWindows = [3]int{5, 10, 20}
	autocorrLags    = [3]int{1, 5, 10}
)

// Config tunes the deriver's rolling windows
type Config struct {
	// VolWindow is the realized-volatility window in days
	VolWindow int
	// RollingWindow drives asymmetry, skewness and autocorrelation windows
	RollingWindow int
}

func (c Config) withDefaults() Config {
	if c.VolWindow == 0 {
		c.VolWindow = 7
	}
	if c.RollingWindow == 0 {
		c.RollingWindow = 20
	}
	return c
}

// Deriver turns an ordered bar series into a feature table plus
// dataset-level summary statistics. All computations are pure; a
// Deriver is safe for concurrent use.
type Deriver struct {
	cfg Config
}

// NewDeriver creates a deriver with the given windows (zero values
// fall back to 7-day volatility and 20-day rolling windows)
func NewDeriver(cfg Config) *Deriver {
	return &Deriver{cfg: cfg.withDefaults()}
}

// warmupBars returns the first bar index with every feature defined.
// Rows before it are dropped rather than null-filled.
func (d *Deriver) warmupBars() int {
	warmup := d.cfg.VolWindow
	if d.cfg.RollingWindow > warmup {
		warmup = d.cfg.RollingWindow
	}
	// Acceleration differentiates momentum, costing one extra day
	for _, w := range momentumWindows {
		if w+1 > warmup {
			warmup = w + 1
		}
	}
	maxLag := autocorrLags[len(autocorrLags)-1]
	if d.cfg.RollingWindow+maxLag > warmup {
		warmup = d.cfg.RollingWindow + maxLag
	}
	if indicatorMinBars > warmup {
		warmup = indicatorMinBars
	}
	return warmup
}

// MinBars returns the shortest bar series Derive accepts
func (d *Deriver) MinBars() int {
	return d.warmupBars() + 1
}

// derived collects the intermediate series produced by the parallel
// feature fan-out.
type derived struct {
	vols        []float64
	momentum    [3][]float64
	accel       [3][]float64
	asymRatios  []float64
	asymSkews   []float64
	autocorr    [3][]float64
	volChange   []float64
	volMomentum [3][]float64
	volTrend    []float64
	indicators  *IndicatorSeries

	sampleAutocorr map[int]float64
	sampleRatio    float64
	sampleSkew     float64
}

// Derive runs the full pipeline over the bar series. Input is rejected
// up front (ErrMalformedInput) and never mutated; independent feature
// computations run in parallel since none share state.
func (d *Deriver) Derive(bars []models.Bar) ([]models.FeatureRow, *models.DeriveSummary, error) {
	if err := ValidateBars(bars); err != nil {
		return nil, nil, err
	}

	warmup := d.warmupBars()
	if len(bars) <= warmup {
		return nil, nil, fmt.Errorf("%w: need more than %d bars to fill all rolling windows, got %d",
			ErrInsufficientData, warmup, len(bars))
	}

	returns, err := LogReturns(bars)
	if err != nil {
		return nil, nil, err
	}

	simpleRets, err := SimpleReturns(bars)
	if err != nil {
		return nil, nil, err
	}
	totalReturn := 1.0
	for _, r := range simpleRets {
		totalReturn *= 1 + r
	}
	totalReturn -= 1

	out, err := d.fanOut(bars, returns)
	if err != nil {
		return nil, nil, err
	}

	// Regime assignment needs the warm-up-free volatility sample; the
	// tertile split is static over the whole observed period.
	cleanVols := out.vols[d.cfg.VolWindow-1:]
	labels, boundaries, err := AssignRegimes(cleanVols)
	if err != nil {
		return nil, nil, err
	}

	toLower, toUpper, err := BoundaryDistances(cleanVols, boundaries)
	if err != nil {
		return nil, nil, err
	}

	transitions, err := TransitionMatrix(labels)
	if err != nil {
		return nil, nil, err
	}

	episodes := Episodes(labels)
	durations := RegimeDurations(labels)
	streakSigns, streakLengths := StreakSeries(returns)
	streaks := ReturnStreaks(returns)

	rows := d.assembleRows(bars, returns, out, labels, durations, toLower, toUpper, streakSigns, streakLengths, warmup)

	counts := make(map[models.RegimeLabel]int)
	for _, label := range labels {
		counts[label]++
	}

	summary := &models.DeriveSummary{
		Symbol:         bars[0].Symbol,
		Timeframe:      bars[0].Timeframe,
		PeriodStart:    bars[0].Timestamp,
		PeriodEnd:      bars[len(bars)-1].Timestamp,
		Bars:           len(bars),
		FeatureRows:    len(rows),
		Boundaries:     boundaries,
		RegimeCounts:   counts,
		MeanDurations:  MeanDurations(episodes),
		Transitions:    transitions,
		Streaks:        StreakStats(streaks),
		Autocorr:       out.sampleAutocorr,
		AsymmetryRatio: out.sampleRatio,
		Skewness:       out.sampleSkew,
		TotalReturn:    totalReturn,
		GeneratedAt:    time.Now().UTC(),
	}

	return rows, summary, nil
}

// fanOut runs the independent feature computations in parallel and
// joins the first error.
func (d *Deriver) fanOut(bars []models.Bar, returns []float64) (*derived, error) {
	out := &derived{}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	spawn := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}

	spawn(func() error {
		vols, err := RollingVolatility(returns, d.cfg.VolWindow)
		out.vols = vols
		return err
	})

	for i, w := range momentumWindows {
		i, w := i, w
		spawn(func() error {
			momentum, err := Momentum(returns, w)
			out.momentum[i] = momentum
			return err
		})
	}

	spawn(func() error {
		ratios, skews, err := RollingAsymmetry(returns, d.cfg.RollingWindow)
		out.asymRatios = ratios
		out.asymSkews = skews
		return err
	})

	for i, lag := range autocorrLags {
		i, lag := i, lag
		spawn(func() error {
			ac, err := RollingAutocorrelation(returns, d.cfg.RollingWindow, lag)
			out.autocorr[i] = ac
			return err
		})
	}

	volumes := make([]float64, len(bars))
	for i, bar := range bars {
		volumes[i] = bar.Volume.InexactFloat64()
	}

	spawn(func() error {
		change, err := VolumeChanges(volumes, 1)
		out.volChange = change
		return err
	})

	for i, w := range momentumWindows {
		i, w := i, w
		spawn(func() error {
			momentum, err := VolumeChanges(volumes, w)
			out.volMomentum[i] = momentum
			return err
		})
	}

	spawn(func() error {
		trend, err := VolumeTrendStrength(volumes, d.cfg.RollingWindow)
		out.volTrend = trend
		return err
	})

	spawn(func() error {
		ind, err := Indicators(bars)
		out.indicators = ind
		return err
	})

	spawn(func() error {
		sample := make(map[int]float64, len(autocorrLags))
		for _, lag := range autocorrLags {
			ac, err := Autocorrelation(returns, lag)
			if err != nil {
				return err
			}
			sample[lag] = ac
		}
		out.sampleAutocorr = sample
		return nil
	})

	spawn(func() error {
		ratio, skew, err := Asymmetry(returns)
		out.sampleRatio = ratio
		out.sampleSkew = skew
		return err
	})

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	// Acceleration differentiates the finished momentum series
	for i := range momentumWindows {
		out.accel[i] = Acceleration(out.momentum[i])
	}

	return out, nil
}

// assembleRows builds one feature row per bar past the warm-up cut.
// Index bookkeeping: returns[j] belongs to bars[j+1], and regime series
// start volWindow-1 entries into the return series.
func (d *Deriver) assembleRows(
	bars []models.Bar,
	returns []float64,
	out *derived,
	labels []models.RegimeLabel,
	durations []int,
	toLower, toUpper []float64,
	streakSigns []models.StreakSign,
	streakLengths []int,
	warmup int,
) []models.FeatureRow {
	rows := make([]models.FeatureRow, 0, len(bars)-warmup)

	for i := warmup; i < len(bars); i++ {
		j := i - 1                     // return-space index
		k := j - (d.cfg.VolWindow - 1) // regime-space index

		rows = append(rows, models.FeatureRow{
			Symbol:         bars[i].Symbol,
			Timestamp:      bars[i].Timestamp,
			Close:          bars[i].Close,
			LogReturn:      returns[j],
			RealizedVol:    out.vols[j],
			Regime:         labels[k],
			RegimeDuration: durations[k],
			DistLowerBound: toLower[k],
			DistUpperBound: toUpper[k],
			StreakSign:     streakSigns[j],
			StreakLength:   streakLengths[j],
			Momentum5d:     out.momentum[0][j],
			Momentum10d:    out.momentum[1][j],
			Momentum20d:    out.momentum[2][j],
			ReturnAccel5d:  out.accel[0][j],
			ReturnAccel10d: out.accel[1][j],
			ReturnAccel20d: out.accel[2][j],
			AsymmetryRatio: out.asymRatios[j],
			ReturnSkewness: out.asymSkews[j],
			Autocorr1d:     out.autocorr[0][j],
			Autocorr5d:     out.autocorr[1][j],
			Autocorr10d:    out.autocorr[2][j],
			VolumeChange1d: out.volChange[i],
			VolumeMom5d:    out.volMomentum[0][i],
			VolumeMom10d:   out.volMomentum[1][i],
			VolumeMom20d:   out.volMomentum[2][i],
			VolumeTrend:    out.volTrend[i],
			RSI14:          out.indicators.RSI14[i],
			MACD:           out.indicators.MACD[i],
			MACDSignal:     out.indicators.MACDSignal[i],
			BollingerWidth: out.indicators.BollingerWidth[i],
			ATR14:          out.indicators.ATR14[i],
		})
	}

	return rows
}
