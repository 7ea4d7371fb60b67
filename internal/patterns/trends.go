package patterns

import (
	"math"

	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/internal/indicators"
	"github.com/Alias1177/trapfade/models"
)

// macdWindow is enough history for EMA26 to be a real average.
const macdWindow = 35

// TrendFollowing fires when short, medium and long moving averages are stacked in one
// direction, momentum and volume agree, and the MACD histogram has the same sign.
type TrendFollowing struct {
	cfg config.TrendFollowingConfig
}

func NewTrendFollowing(cfg config.TrendFollowingConfig) *TrendFollowing {
	return &TrendFollowing{cfg: cfg}
}

func (d *TrendFollowing) Name() string { return config.DetectorTrendFollowing }

func (d *TrendFollowing) Lookback() int {
	if d.cfg.LongWindow > macdWindow {
		return d.cfg.LongWindow
	}
	return macdWindow
}

func (d *TrendFollowing) Forward() int { return 0 }

func (d *TrendFollowing) Detect(candles []models.Candle, index int) models.DetectionResult {
	cfg := d.cfg
	if cfg.ShortWindow <= 0 || cfg.MediumWindow <= cfg.ShortWindow || cfg.LongWindow <= cfg.MediumWindow {
		return none
	}
	lookback := d.Lookback()
	if !inBounds(candles, index, lookback, 0) {
		return none
	}

	window := candles[index-lookback+1 : index+1]
	closes := indicators.Closes(window)
	long := closes[len(closes)-cfg.LongWindow:]

	// Moving-average stack
	short := indicators.CalculateSMA(long, cfg.ShortWindow)
	medium := indicators.CalculateSMA(long, cfg.MediumWindow)
	slow := indicators.CalculateSMA(long, cfg.LongWindow)

	if long[0] <= 0 {
		return none
	}
	momentum := (long[len(long)-1] - long[0]) / long[0]

	volumes := indicators.Volumes(window)
	vr := volumeRatio(
		indicators.CalculateSMA(volumes, cfg.ShortWindow),
		indicators.CalculateSMA(volumes, cfg.LongWindow),
	)
	if vr < cfg.VolumeMultiplier {
		return none
	}

	macd := indicators.CalculateMACD(closes)

	var dir models.Direction
	switch {
	case short > medium && medium > slow && momentum >= cfg.MinMomentum && macd.Histogram > 0:
		dir = models.Long
	case short < medium && medium < slow && momentum <= -cfg.MinMomentum && macd.Histogram < 0:
		dir = models.Short
	default:
		return none
	}

	confidence := 0.45 + math.Min(math.Abs(momentum)*10, 0.3) + math.Min((vr-1)*0.2, 0.15)

	return models.DetectionResult{
		Detected:    true,
		Direction:   dir,
		Confidence:  clipConfidence(confidence),
		Type:        models.PatternTrendFollowing,
		Magnitude:   math.Abs(momentum),
		VolumeRatio: vr,
		Price:       candles[index].Close,
	}
}
