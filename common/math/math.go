package math

import (
	"math"
)

// CalculatePercentageGainOrLoss returns the percentage rise over a certain
// period
func CalculatePercentageGainOrLoss(priceNow, priceThen float64) float64 {
	if priceThen == 0 {
		return 0
	}
	return (priceNow - priceThen) / priceThen * 100
}

// ArithmeticAverage is the basic form of calculating an average.
// Divide the sum of all values by the length of values
func ArithmeticAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumOfValues float64
	for x := range values {
		sumOfValues += values[x]
	}
	return sumOfValues / float64(len(values))
}

// PopulationStandardDeviation calculates standard deviation using population based calculation
func PopulationStandardDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := ArithmeticAverage(values)
	diffs := make([]float64, len(values))
	for x := range values {
		diffs[x] = math.Pow(values[x]-avg, 2)
	}
	return math.Sqrt(ArithmeticAverage(diffs))
}

// SampleStandardDeviation measures the dispersion of a dataset relative to
// its mean using n-1 degrees of freedom
func SampleStandardDeviation(vals []float64) float64 {
	if len(vals) <= 1 {
		return 0
	}
	mean := ArithmeticAverage(vals)
	var combined float64
	for i := range vals {
		combined += math.Pow(vals[i]-mean, 2)
	}
	return math.Sqrt(combined / float64(len(vals)-1))
}

// CalculateSharpeRatio returns the sharpe ratio of a return series compared to
// the risk-free rate per period
func CalculateSharpeRatio(returns []float64, riskFreeRate, average float64) float64 {
	if len(returns) <= 1 {
		return 0
	}
	excessReturns := make([]float64, len(returns))
	for i := range returns {
		excessReturns[i] = returns[i] - riskFreeRate
	}
	standardDeviation := SampleStandardDeviation(excessReturns)
	if standardDeviation == 0 {
		return 0
	}
	return (average - riskFreeRate) / standardDeviation
}

// CalculateSortinoRatio returns the sortino ratio of a return series compared
// to the risk-free rate per period. Only downside deviation is penalised
func CalculateSortinoRatio(returns []float64, riskFreeRate, average float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	totalNegativeResultsSquared := 0.0
	for x := range returns {
		if returns[x]-riskFreeRate < 0 {
			totalNegativeResultsSquared += math.Pow(returns[x]-riskFreeRate, 2)
		}
	}
	averageDownsideDeviation := math.Sqrt(totalNegativeResultsSquared / float64(len(returns)))
	if averageDownsideDeviation == 0 {
		return 0
	}
	return (average - riskFreeRate) / averageDownsideDeviation
}

// Annualise scales a per-period ratio by the square root of periods per year
func Annualise(ratio, periodsPerYear float64) float64 {
	if periodsPerYear <= 0 {
		return ratio
	}
	return ratio * math.Sqrt(periodsPerYear)
}

// MaxDrawdown returns the largest peak-to-trough fall of an equity curve as a
// positive fraction of the peak, along with the peak and trough indexes
func MaxDrawdown(curve []float64) (drawdown float64, peakIdx, troughIdx int) {
	if len(curve) == 0 {
		return 0, 0, 0
	}
	highest := 0
	for i := range curve {
		if curve[i] > curve[highest] {
			highest = i
			continue
		}
		if curve[highest] <= 0 {
			continue
		}
		dd := (curve[highest] - curve[i]) / curve[highest]
		if dd > drawdown {
			drawdown, peakIdx, troughIdx = dd, highest, i
		}
	}
	return drawdown, peakIdx, troughIdx
}

// Returns converts an equity curve into simple period returns
func Returns(curve []float64) []float64 {
	if len(curve) < 2 {
		return nil
	}
	resp := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1] == 0 {
			resp = append(resp, 0)
			continue
		}
		resp = append(resp, curve[i]/curve[i-1]-1)
	}
	return resp
}
