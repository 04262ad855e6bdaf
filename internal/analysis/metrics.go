package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Gain returns the mean of y/x over the samples where x is nonzero, the
// average transfer ratio of the series. It is 0 when the slices are empty,
// mismatched, or every x is zero.
func Gain(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	ratios := make([]float64, 0, len(x))
	for i := range x {
		if x[i] == 0 {
			continue
		}
		ratios = append(ratios, y[i]/x[i])
	}
	if len(ratios) == 0 {
		return 0
	}
	return stat.Mean(ratios, nil)
}

// RatioError returns the mean percentage deviation of y from x*ratio over
// the samples where x is nonzero. The denominator is the signed expected
// value x*ratio, so samples with a negative expectation contribute with a
// flipped sign. It is +Inf when the slices are empty or mismatched, or when
// every x is zero.
func RatioError(x, y []float64, ratio float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return math.Inf(1)
	}
	pcts := make([]float64, 0, len(x))
	for i := range x {
		if x[i] == 0 {
			continue
		}
		expected := x[i] * ratio
		pcts = append(pcts, math.Abs(y[i]-expected)/expected*100)
	}
	if len(pcts) == 0 {
		return math.Inf(1)
	}
	return stat.Mean(pcts, nil)
}
