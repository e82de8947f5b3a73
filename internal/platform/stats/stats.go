// Package stats provides the numeric primitives shared by the analytics
// subsystems. All functions are pure, never panic, and return defined
// zero/neutral results for degenerate input (empty or constant series).
package stats

import "math"

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Std returns the standard deviation of values with divisor n.
// Empty and singleton inputs yield 0.
func Std(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := Mean(values)
	var variance float64
	for _, v := range values {
		d := v - m
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// ZScore returns how many standard deviations value lies from mean.
// A zero std yields 0 rather than dividing by zero.
func ZScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (value - mean) / std
}

// Trend returns the least-squares slope of values over their indices
// (0, 1, 2, ...). Fewer than two points yield 0.
func Trend(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (fn*sumXY - sumX*sumY) / denom
}

// Volatility returns the population standard deviation of the series.
// It is the same computation as Std; the separate name documents intent at
// call sites where the series is time-ordered.
func Volatility(values []float64) float64 {
	return Std(values)
}
