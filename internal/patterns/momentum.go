package patterns

import (
	"math"

	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/internal/indicators"
	"github.com/Alias1177/trapfade/models"
)

// Momentum fires when the short-horizon change is strong, the medium horizon agrees and
// recent volume is picking up.
type Momentum struct {
	cfg config.MomentumConfig
}

func NewMomentum(cfg config.MomentumConfig) *Momentum {
	return &Momentum{cfg: cfg}
}

func (d *Momentum) Name() string  { return config.DetectorMomentum }
func (d *Momentum) Lookback() int { return d.cfg.MediumWindow }
func (d *Momentum) Forward() int  { return 0 }

func (d *Momentum) Detect(candles []models.Candle, index int) models.DetectionResult {
	cfg := d.cfg
	if cfg.ShortWindow <= 0 || cfg.MediumWindow <= cfg.ShortWindow {
		return none
	}
	if !inBounds(candles, index, cfg.MediumWindow, 0) {
		return none
	}

	window := candles[index-cfg.MediumWindow : index+1]
	closes := indicators.Closes(window)
	last := closes[len(closes)-1]
	shortBase := closes[len(closes)-1-cfg.ShortWindow]
	if shortBase <= 0 || closes[0] <= 0 {
		return none
	}

	shortChange := (last - shortBase) / shortBase
	mediumChange := (last - closes[0]) / closes[0]

	volumes := indicators.Volumes(window)
	volumeMomentum := volumeRatio(
		indicators.CalculateSMA(volumes, cfg.ShortWindow),
		indicators.Mean(volumes),
	)
	if volumeMomentum < cfg.MinVolumeMomentum {
		return none
	}

	var dir models.Direction
	switch {
	case shortChange >= cfg.MinShortMomentum && mediumChange > 0:
		dir = models.Long
	case shortChange <= -cfg.MinShortMomentum && mediumChange < 0:
		dir = models.Short
	default:
		return none
	}

	confidence := 0.4 +
		math.Min(math.Abs(shortChange)*10, 0.3) +
		math.Min(math.Abs(mediumChange)*5, 0.15) +
		math.Min((volumeMomentum-1)*0.2, 0.1)

	return models.DetectionResult{
		Detected:    true,
		Direction:   dir,
		Confidence:  clipConfidence(confidence),
		Type:        models.PatternMomentum,
		Magnitude:   math.Abs(shortChange),
		VolumeRatio: volumeMomentum,
		Price:       last,
	}
}
