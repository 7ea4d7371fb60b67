package patterns

import (
	"math"

	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/models"
)

// LiquidationHunt flags a sharp close-to-close spike on outsized volume that gives back
// a configured share of the move within a few bars. The trade fades the spike.
type LiquidationHunt struct {
	cfg config.LiquidationHuntConfig
}

func NewLiquidationHunt(cfg config.LiquidationHuntConfig) *LiquidationHunt {
	return &LiquidationHunt{cfg: cfg}
}

func (d *LiquidationHunt) Name() string { return config.DetectorLiquidationHunt }

func (d *LiquidationHunt) Lookback() int {
	if d.cfg.Lookback < 1 {
		return 1
	}
	return d.cfg.Lookback
}

func (d *LiquidationHunt) Forward() int { return d.cfg.ReversalBars }

func (d *LiquidationHunt) Detect(candles []models.Candle, index int) models.DetectionResult {
	cfg := d.cfg
	if cfg.ReversalBars <= 0 || !inBounds(candles, index, d.Lookback(), cfg.ReversalBars) {
		return none
	}

	prev := candles[index-1]
	c := candles[index]
	if prev.Close <= 0 {
		return none
	}

	move := (c.Close - prev.Close) / prev.Close
	if math.Abs(move) < cfg.SpikeThreshold {
		return none
	}

	_, _, avgVolume := referenceStats(candles, index, d.Lookback())
	vr := volumeRatio(c.Volume, avgVolume)
	if vr < cfg.VolumeMultiplier {
		return none
	}

	spike := models.Long
	if move < 0 {
		spike = models.Short
	}
	dir := spike.Opposite()

	// the reversal must retrace RecoveryRatio of the spike within ReversalBars
	after := candles[index+1 : index+1+cfg.ReversalBars]
	target := c.Close - spike.Sign()*cfg.RecoveryRatio*math.Abs(c.Close-prev.Close)
	if !anyClose(after, func(p float64) bool { return (p-target)*dir.Sign() >= 0 }) {
		return none
	}

	size := math.Abs(move)
	confidence := 0.4 +
		0.3*saturate(size, 2*cfg.SpikeThreshold) +
		0.25*saturate(vr, 2*cfg.VolumeMultiplier)

	var wick float64
	if rng := c.Range(); rng > 0 {
		if dir == models.Long {
			wick = c.LowerWick() / rng
		} else {
			wick = c.UpperWick() / rng
		}
	}

	return models.DetectionResult{
		Detected:    true,
		Direction:   dir,
		Confidence:  clipConfidence(confidence),
		Type:        models.PatternLiquidationHunt,
		Magnitude:   size,
		WickRatio:   wick,
		VolumeRatio: vr,
		Price:       c.Close,
	}
}
