package patterns

import (
	"math"

	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/internal/indicators"
	"github.com/Alias1177/trapfade/models"
)

const (
	forecastMinBars  = 10
	forecastMaxBars  = 200
	forecastFullBars = 480
)

// Forecast is a lightweight directional forecaster: the distance of the last close from
// its 20-bar mean, in units of mean absolute bar change, squashed through a sigmoid.
// It fires only when both the confidence and the edge over a coin flip are large enough.
type Forecast struct {
	cfg config.ForecastConfig
}

func NewForecast(cfg config.ForecastConfig) *Forecast {
	return &Forecast{cfg: cfg}
}

func (d *Forecast) Name() string  { return config.DetectorForecast }
func (d *Forecast) Lookback() int { return forecastMinBars - 1 }
func (d *Forecast) Forward() int  { return 0 }

// Probability returns the probability of an up move and the forecast confidence at index.
func (d *Forecast) Probability(candles []models.Candle, index int) (float64, float64) {
	start := index + 1 - forecastMaxBars
	if start < 0 {
		start = 0
	}
	closes := indicators.Closes(candles[start : index+1])

	var moves float64
	for i := 1; i < len(closes); i++ {
		moves += math.Abs(closes[i] - closes[i-1])
	}
	step := moves / float64(len(closes)-1)
	if step == 0 {
		step = 1
	}

	slope := (closes[len(closes)-1] - indicators.CalculateSMA(closes, 20)) / step
	probUp := 1 / (1 + math.Exp(-slope))

	history := float64(index + 1)
	confidence := math.Min(0.9, 0.4+0.5*clamp01(math.Abs(slope)/3)+0.1*clamp01(history/forecastFullBars))
	return probUp, confidence
}

func (d *Forecast) Detect(candles []models.Candle, index int) models.DetectionResult {
	if !inBounds(candles, index, d.Lookback(), 0) {
		return none
	}

	probUp, confidence := d.Probability(candles, index)
	edge := math.Abs(probUp - 0.5)
	if confidence < d.cfg.MinConfidence || edge < d.cfg.MinEdge {
		return none
	}

	dir := models.Long
	if probUp < 0.5 {
		dir = models.Short
	}

	return models.DetectionResult{
		Detected:   true,
		Direction:  dir,
		Confidence: clipConfidence(confidence),
		Type:       models.PatternForecast,
		Magnitude:  edge,
		Price:      candles[index].Close,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
