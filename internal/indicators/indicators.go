// Package indicators holds pure technical-indicator functions over trailing windows.
//
// Every function fails soft: short or degenerate input yields a documented
// neutral value instead of an error or a panic.
package indicators

import (
	"math"

	"github.com/Alias1177/trapfade/models"
)

// CalculateRSI returns the relative strength index over the last period deltas.
// Returns 50 with insufficient history and 100 when the average loss is zero.
func CalculateRSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50.0
	}

	var gains, losses float64
	for i := len(prices) - period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change >= 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// CalculateEMA returns the exponential moving average seeded with the oldest price.
// Returns the last price when the window is shorter than period, 0 for an empty window.
func CalculateEMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || len(prices) < period {
		return prices[len(prices)-1]
	}

	multiplier := 2.0 / float64(period+1)
	ema := prices[0]
	for i := 1; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
	}
	return ema
}

// MACD is EMA12-EMA26 with a synthetic signal line.
type MACD struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// CalculateMACD returns EMA12-EMA26; the signal line is macd*0.9, not an EMA of MACD.
func CalculateMACD(prices []float64) MACD {
	macd := CalculateEMA(prices, 12) - CalculateEMA(prices, 26)
	signal := macd * 0.9
	return MACD{MACD: macd, Signal: signal, Histogram: macd - signal}
}

// Bands is a Bollinger band triple.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// CalculateBollingerBands returns SMA +/- 2 standard deviations over period.
// A short window degrades to a +/-2% band around the last price.
func CalculateBollingerBands(prices []float64, period int) Bands {
	if len(prices) == 0 {
		return Bands{}
	}
	last := prices[len(prices)-1]
	if period <= 0 || len(prices) < period {
		return Bands{Upper: last * 1.02, Middle: last, Lower: last * 0.98}
	}

	window := prices[len(prices)-period:]
	middle := Mean(window)
	sd := StdDev(window)
	return Bands{Upper: middle + 2*sd, Middle: middle, Lower: middle - 2*sd}
}

// CalculateATR returns the mean true range over up to period bars.
// Falls back to 2% of the last close when fewer than two bars are available.
func CalculateATR(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if len(highs) < n {
		n = len(highs)
	}
	if len(lows) < n {
		n = len(lows)
	}
	if n == 0 {
		return 0
	}
	if n < 2 || period <= 0 {
		return closes[n-1] * 0.02
	}

	bars := period
	if bars > n-1 {
		bars = n - 1
	}

	var sum float64
	for i := n - bars; i < n; i++ {
		tr := highs[i] - lows[i]
		tr = math.Max(tr, math.Abs(highs[i]-closes[i-1]))
		tr = math.Max(tr, math.Abs(lows[i]-closes[i-1]))
		sum += tr
	}
	return sum / float64(bars)
}

// CalculateTrend compares the mean of the last 3 values with the mean of the 3 before.
// Returns 0 below 5 samples.
func CalculateTrend(prices []float64) float64 {
	n := len(prices)
	if n < 5 {
		return 0
	}
	recent := Mean(prices[n-3:])
	start := n - 6
	if start < 0 {
		start = 0
	}
	prior := Mean(prices[start : n-3])
	if prior == 0 {
		return 0
	}
	return (recent - prior) / prior
}

// CalculateVolatility returns the standard deviation of simple returns.
// Returns 0 below 10 samples.
func CalculateVolatility(prices []float64) float64 {
	if len(prices) < 10 {
		return 0
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	return StdDev(returns)
}

// CalculateSMA returns the simple average of the last period values, or of the whole
// window when it is shorter.
func CalculateSMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || period > len(prices) {
		return Mean(prices)
	}
	return Mean(prices[len(prices)-period:])
}

// Mean is the arithmetic average, 0 for an empty slice.
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

// StdDev is the population standard deviation, 0 below two samples.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)))
}

// Closes extracts close prices.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts high prices.
func Highs(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts low prices.
func Lows(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// Volumes extracts traded volume.
func Volumes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}

// ATRFromCandles is CalculateATR over a candle window.
func ATRFromCandles(candles []models.Candle, period int) float64 {
	return CalculateATR(Highs(candles), Lows(candles), Closes(candles), period)
}
