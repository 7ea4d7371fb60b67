package patterns

import (
	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/models"
)

// WickHunt flags a small-bodied bar whose long wick sweeps the recent extreme and is
// rejected by the next bar, the footprint of a stop hunt.
type WickHunt struct {
	cfg config.WickHuntConfig
}

func NewWickHunt(cfg config.WickHuntConfig) *WickHunt {
	return &WickHunt{cfg: cfg}
}

func (d *WickHunt) Name() string  { return config.DetectorWickHunt }
func (d *WickHunt) Lookback() int { return d.cfg.Lookback }
func (d *WickHunt) Forward() int  { return 1 }

func (d *WickHunt) Detect(candles []models.Candle, index int) models.DetectionResult {
	cfg := d.cfg
	if cfg.Lookback <= 0 || !inBounds(candles, index, cfg.Lookback, 1) {
		return none
	}

	c := candles[index]
	rng := c.Range()
	if rng <= 0 {
		return none
	}
	bodyRatio := c.Body() / rng
	if bodyRatio > cfg.MaxBodyRatio {
		return none
	}

	high, low, avgVolume := referenceStats(candles, index, cfg.Lookback)
	vr := volumeRatio(c.Volume, avgVolume)
	next := candles[index+1]

	lowerRatio := c.LowerWick() / rng
	if lowerRatio >= cfg.MinWickRatio && c.Low < low && next.Low > c.Low && next.Close > c.Close {
		return d.result(models.Long, c, lowerRatio, bodyRatio, vr, (low-c.Low)/low)
	}

	upperRatio := c.UpperWick() / rng
	if upperRatio >= cfg.MinWickRatio && c.High > high && next.High < c.High && next.Close < c.Close {
		return d.result(models.Short, c, upperRatio, bodyRatio, vr, (c.High-high)/high)
	}

	return none
}

func (d *WickHunt) result(dir models.Direction, c models.Candle, wick, body, vr, sweep float64) models.DetectionResult {
	bodyScore := 1.0
	if d.cfg.MaxBodyRatio > 0 {
		bodyScore = 1 - body/d.cfg.MaxBodyRatio
	}
	confidence := 0.35 + 0.3*saturate(wick, 1) + 0.2*bodyScore + 0.1*saturate(vr, 2)

	return models.DetectionResult{
		Detected:    true,
		Direction:   dir,
		Confidence:  clipConfidence(confidence),
		Type:        models.PatternWickHunt,
		Magnitude:   sweep,
		WickRatio:   wick,
		BodyRatio:   body,
		VolumeRatio: vr,
		Price:       c.Close,
	}
}
