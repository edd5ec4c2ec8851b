package features

import (
	"fmt"
	"math"
	"sort"
)

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// sampleStd returns the sample standard deviation (Bessel's correction)
func sampleStd(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	m := mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}

	return math.Sqrt(sumSq / float64(n-1))
}

// pearson computes the Pearson correlation coefficient between two
// equal-length series. Zero variance on either side is reported as
// ErrDegenerateDistribution rather than defaulted to zero.
func pearson(x, y []float64) (float64, error) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, fmt.Errorf("%w: need two series of equal length >= 2, got %d and %d", ErrInsufficientData, len(x), len(y))
	}

	meanX := mean(x)
	meanY := mean(y)

	var num, varX, varY float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		num += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return 0, fmt.Errorf("%w: zero variance in correlation window", ErrDegenerateDistribution)
	}

	return num / math.Sqrt(varX*varY), nil
}

// skewness returns the third standardized moment of the sample.
// Zero variance makes the moment undefined.
func skewness(values []float64) (float64, error) {
	n := len(values)
	if n < 3 {
		return 0, fmt.Errorf("%w: need at least 3 values for skewness, got %d", ErrInsufficientData, n)
	}

	m := mean(values)
	var m2, m3 float64
	for _, v := range values {
		d := v - m
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= float64(n)
	m3 /= float64(n)

	if m2 == 0 {
		return 0, fmt.Errorf("%w: zero variance in skewness window", ErrDegenerateDistribution)
	}

	return m3 / math.Pow(m2, 1.5), nil
}

// quantile returns the p-quantile of the sample using linear
// interpolation between closest ranks. The method is fixed so tertile
// boundaries are reproducible across runs.
func quantile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	h := p * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}

	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
