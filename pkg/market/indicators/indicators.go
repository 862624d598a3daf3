// Package indicators computes technical studies over candle closes. Every
// series is aligned with its input; positions without enough history hold NaN.
package indicators

import "math"

// Set is the indicator bundle served for one symbol.
type Set struct {
	SMA20 []float64
	SMA50 []float64
	RSI14 []float64
	EMA20 []float64
	MACD  []float64
}

// Compute builds the standard bundle from closing prices.
func Compute(closes []float64) Set {
	macd, _, _ := MACD(closes)
	return Set{
		SMA20: SMA(closes, 20),
		SMA50: SMA(closes, 50),
		RSI14: RSI(closes, 14),
		EMA20: EMA(closes, 20),
		MACD:  macd,
	}
}

// SMA is the simple rolling mean over period closes.
func SMA(prices []float64, period int) []float64 {
	out := nanSeries(len(prices))
	if period <= 0 {
		return out
	}
	var sum float64
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA seeds with the SMA of the first complete window and smooths with
// 2/(period+1). NaN inputs carry the previous value forward.
func EMA(prices []float64, period int) []float64 {
	out := nanSeries(len(prices))
	if period <= 0 {
		return out
	}
	start := firstCompleteWindow(prices, period)
	if start < 0 {
		return out
	}
	var seed float64
	for _, p := range prices[start-period+1 : start+1] {
		seed += p
	}
	out[start] = seed / float64(period)

	k := 2.0 / float64(period+1)
	for i := start + 1; i < len(prices); i++ {
		if math.IsNaN(prices[i]) {
			out[i] = out[i-1]
			continue
		}
		out[i] = (prices[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// MACD returns the 12/26 line, its 9-period signal and the histogram.
func MACD(prices []float64) (line, signal, hist []float64) {
	fast := EMA(prices, 12)
	slow := EMA(prices, 26)
	line = make([]float64, len(prices))
	for i := range prices {
		line[i] = fast[i] - slow[i]
	}
	signal = EMA(line, 9)
	hist = make([]float64, len(prices))
	for i := range prices {
		hist[i] = line[i] - signal[i]
	}
	return line, signal, hist
}

// RSI uses simple rolling means of gains and losses over period deltas, so
// the first value appears at index period.
func RSI(prices []float64, period int) []float64 {
	out := nanSeries(len(prices))
	if period <= 0 || len(prices) <= period {
		return out
	}
	gains := make([]float64, len(prices))
	losses := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}
	var gainSum, lossSum float64
	for i := 1; i < len(prices); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i >= period {
			out[i] = strength(gainSum/float64(period), lossSum/float64(period))
		}
	}
	return out
}

// Nullable converts NaN positions to nil for JSON output.
func Nullable(series []float64) []*float64 {
	out := make([]*float64, len(series))
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		val := v
		out[i] = &val
	}
	return out
}

func strength(avgGain, avgLoss float64) float64 {
	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50
	case avgLoss == 0:
		return 100
	default:
		return 100 - 100/(1+avgGain/avgLoss)
	}
}

func firstCompleteWindow(prices []float64, period int) int {
	run := 0
	for i, p := range prices {
		if math.IsNaN(p) {
			run = 0
			continue
		}
		run++
		if run >= period {
			return i
		}
	}
	return -1
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
