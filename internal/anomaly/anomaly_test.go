package anomaly

import (
	"testing"

	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/internal/patterns"
	"github.com/Alias1177/trapfade/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestCandles(closes []float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{
			Timestamp: int64(i) * 60_000,
			Open:      c,
			High:      c * 1.001,
			Low:       c * 0.999,
			Close:     c,
			Volume:    1000,
		}
	}
	return candles
}

func TestClassifyRegime(t *testing.T) {
	cfg := config.Default().Regime

	flat := make([]float64, 20)
	rising := make([]float64, 20)
	wild := make([]float64, 20)
	for i := range flat {
		flat[i] = 100
		rising[i] = 100 * (1 + 0.005*float64(i))
		wild[i] = 100
		if i%2 == 1 {
			wild[i] = 106
		}
	}

	tests := []struct {
		name     string
		closes   []float64
		expected string
	}{
		{"flat", flat, models.RegimeSideways},
		{"steady climb", rising, models.RegimeTrending},
		{"whipsaw", wild, models.RegimeVolatile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candles := generateTestCandles(tt.closes)
			regime := ClassifyRegime(candles, len(candles)-1, cfg)
			assert.Equal(t, tt.expected, regime.Type)
			assert.GreaterOrEqual(t, regime.Strength, 0.0)
			assert.LessOrEqual(t, regime.Strength, 1.0)
		})
	}
}

func TestClassifyRegimeShortWindow(t *testing.T) {
	candles := generateTestCandles([]float64{1, 2, 3})
	regime := ClassifyRegime(candles, 2, config.Default().Regime)
	assert.Equal(t, models.RegimeUnknown, regime.Type)
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, SeverityLow, Severity(0.5))
	assert.Equal(t, SeverityMedium, Severity(0.7))
	assert.Equal(t, SeverityHigh, Severity(0.85))

	spike := models.DetectionResult{Confidence: 0.72, VolumeRatio: 4, Magnitude: 0.03}
	assert.InDelta(t, 0.87, Score(spike), 1e-9)

	capped := models.DetectionResult{Confidence: 0.95, VolumeRatio: 5, Magnitude: 0.05}
	assert.Equal(t, 1.0, Score(capped))
}

func TestEventsKeepOnlyManipulation(t *testing.T) {
	candle := models.Candle{Timestamp: 42, Close: 101}
	candidates := []patterns.Candidate{
		{Strategy: config.DetectorWickHunt, Result: models.DetectionResult{
			Detected: true, Type: models.PatternWickHunt, Direction: models.Long, Confidence: 0.6,
		}},
		{Strategy: config.DetectorMomentum, Result: models.DetectionResult{
			Detected: true, Type: models.PatternMomentum, Direction: models.Long, Confidence: 0.9,
		}},
	}

	events := Events(candle, 7, candidates)
	require.Len(t, events, 1)
	assert.Equal(t, models.PatternWickHunt, events[0].Type)
	assert.Equal(t, int64(42), events[0].Timestamp)
	assert.Equal(t, 7, events[0].Index)
	assert.Equal(t, 101.0, events[0].Price)
	assert.Equal(t, SeverityLow, events[0].Severity)

	assert.Equal(t, map[string]int{models.PatternWickHunt: 1}, CountByType(events))
}
