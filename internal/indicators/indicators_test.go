package indicators

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateRSI(t *testing.T) {
	tests := []struct {
		name     string
		prices   []float64
		period   int
		expected float64
	}{
		{"insufficient history", []float64{1, 2, 3}, 14, 50},
		{"all gains", []float64{1, 2, 3, 4, 5, 6}, 5, 100},
		{"flat series counts as no loss", []float64{5, 5, 5, 5}, 3, 100},
		{"all losses", []float64{6, 5, 4, 3, 2, 1}, 5, 0},
		{"balanced", []float64{10, 11, 10, 11, 10}, 4, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CalculateRSI(tt.prices, tt.period), 1e-9)
		})
	}
}

func TestRSIBoundedOnRandomWalk(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	prices := []float64{100}
	for i := 0; i < 500; i++ {
		prices = append(prices, prices[len(prices)-1]*(1+rng.NormFloat64()*0.01))
		rsi := CalculateRSI(prices, 14)
		if rsi < 0 || rsi > 100 {
			t.Fatalf("rsi out of range at %d: %v", i, rsi)
		}
	}
}

func TestCalculateEMA(t *testing.T) {
	assert.Equal(t, 0.0, CalculateEMA(nil, 5))
	assert.Equal(t, 3.0, CalculateEMA([]float64{1, 2, 3}, 5), "short window returns last price")

	// period 1 tracks the last price exactly
	assert.InDelta(t, 7.0, CalculateEMA([]float64{1, 4, 7}, 1), 1e-12)

	// seeded with the oldest value: 10 -> (20-10)*0.5+10 = 15 -> (30-15)*0.5+15 = 22.5
	assert.InDelta(t, 22.5, CalculateEMA([]float64{10, 20, 30}, 3), 1e-12)
}

func TestCalculateMACDSyntheticSignal(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	m := CalculateMACD(prices)
	assert.Greater(t, m.MACD, 0.0)
	assert.InDelta(t, m.MACD*0.9, m.Signal, 1e-12)
	assert.InDelta(t, m.MACD*0.1, m.Histogram, 1e-12)
}

func TestCalculateBollingerBands(t *testing.T) {
	short := CalculateBollingerBands([]float64{100, 101}, 20)
	assert.InDelta(t, 103.02, short.Upper, 1e-9)
	assert.InDelta(t, 101.0, short.Middle, 1e-9)
	assert.InDelta(t, 98.98, short.Lower, 1e-9)

	flat := CalculateBollingerBands([]float64{5, 5, 5, 5}, 4)
	assert.Equal(t, Bands{Upper: 5, Middle: 5, Lower: 5}, flat)

	b := CalculateBollingerBands([]float64{1, 2, 3, 4, 5}, 5)
	sd := math.Sqrt(2)
	assert.InDelta(t, 3+2*sd, b.Upper, 1e-9)
	assert.InDelta(t, 3-2*sd, b.Lower, 1e-9)
}

func TestCalculateATR(t *testing.T) {
	assert.InDelta(t, 2.0, CalculateATR([]float64{101}, []float64{99}, []float64{100}, 14), 1e-12,
		"single bar falls back to 2% of close")

	highs := []float64{10, 12, 13}
	lows := []float64{9, 10, 11}
	closes := []float64{9.5, 11, 12}
	// TR1 = max(2, |12-9.5|, |10-9.5|) = 2.5 ; TR2 = max(2, |13-11|, |11-11|) = 2
	assert.InDelta(t, 2.25, CalculateATR(highs, lows, closes, 14), 1e-12)
	assert.InDelta(t, 2.0, CalculateATR(highs, lows, closes, 1), 1e-12)
}

func TestCalculateTrend(t *testing.T) {
	assert.Equal(t, 0.0, CalculateTrend([]float64{1, 2, 3, 4}))
	assert.InDelta(t, (5.0-2.0)/2.0, CalculateTrend([]float64{1, 2, 3, 4, 5, 6}), 1e-12)
	assert.Less(t, CalculateTrend([]float64{6, 5, 4, 3, 2, 1}), 0.0)
}

func TestCalculateVolatility(t *testing.T) {
	assert.Equal(t, 0.0, CalculateVolatility([]float64{1, 2, 3}))

	flat := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100}
	assert.Equal(t, 0.0, CalculateVolatility(flat))

	alternating := []float64{100, 110, 100, 110, 100, 110, 100, 110, 100, 110}
	assert.Greater(t, CalculateVolatility(alternating), 0.05)
}

func TestMeanAndStdDev(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, StdDev([]float64{3}))
	assert.InDelta(t, 2.0, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
	assert.InDelta(t, 4.5, CalculateSMA([]float64{1, 2, 3, 4, 5}, 2), 1e-12)
	assert.InDelta(t, 3.0, CalculateSMA([]float64{1, 2, 3, 4, 5}, 50), 1e-12)
}
