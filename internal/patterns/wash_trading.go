package patterns

import (
	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/models"
)

// WashTrading flags a tight range with fading volume followed by a shallow break that
// closes back inside the range. The trade fades the break.
type WashTrading struct {
	cfg config.WashTradingConfig
}

func NewWashTrading(cfg config.WashTradingConfig) *WashTrading {
	return &WashTrading{cfg: cfg}
}

func (d *WashTrading) Name() string  { return config.DetectorWashTrading }
func (d *WashTrading) Lookback() int { return d.cfg.Window }
func (d *WashTrading) Forward() int  { return 0 }

func (d *WashTrading) Detect(candles []models.Candle, index int) models.DetectionResult {
	cfg := d.cfg
	if cfg.Window < 4 || !inBounds(candles, index, cfg.Window, 0) {
		return none
	}

	window := candles[index-cfg.Window : index]
	high, low, _ := referenceStats(candles, index, cfg.Window)

	var closes float64
	for _, c := range window {
		closes += c.Close
	}
	avgClose := closes / float64(len(window))
	if avgClose <= 0 || low <= 0 {
		return none
	}

	rangePct := (high - low) / avgClose
	if rangePct > cfg.MaxRange {
		return none
	}

	// Volume must be drying up inside the range
	half := len(window) / 2
	firstAvg := avgVolume(window[:half])
	if firstAvg <= 0 {
		return none
	}
	decline := avgVolume(window[half:]) / firstAvg
	if decline >= cfg.VolumeDecline {
		return none
	}

	c := candles[index]
	var dir models.Direction
	var breakout float64
	switch {
	case c.High > high && c.Close <= high && (c.High-high)/high <= cfg.MaxBreakout:
		dir, breakout = models.Short, (c.High-high)/high
	case c.Low < low && c.Close >= low && (low-c.Low)/low <= cfg.MaxBreakout:
		dir, breakout = models.Long, (low-c.Low)/low
	default:
		return none
	}

	rangeScore := 1.0
	if cfg.MaxRange > 0 {
		rangeScore = 1 - rangePct/cfg.MaxRange
	}
	confidence := 0.5 + 0.2*rangeScore + 0.2*(1-decline)

	return models.DetectionResult{
		Detected:    true,
		Direction:   dir,
		Confidence:  clipConfidence(confidence),
		Type:        models.PatternWashTrading,
		Magnitude:   breakout,
		VolumeRatio: volumeRatio(c.Volume, avgVolume(window)),
		Price:       c.Close,
	}
}

func avgVolume(candles []models.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	var sum float64
	for _, c := range candles {
		sum += c.Volume
	}
	return sum / float64(len(candles))
}
