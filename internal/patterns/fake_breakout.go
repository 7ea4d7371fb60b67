package patterns

import (
	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/models"
)

// FakeBreakout flags a bar that pierces the recent range on heavy volume, leaves a long
// wick and is closed back inside the range within the confirmation window.
// The trade fades the break.
type FakeBreakout struct {
	cfg config.FakeBreakoutConfig
}

func NewFakeBreakout(cfg config.FakeBreakoutConfig) *FakeBreakout {
	return &FakeBreakout{cfg: cfg}
}

func (d *FakeBreakout) Name() string  { return config.DetectorFakeBreakout }
func (d *FakeBreakout) Lookback() int { return d.cfg.Lookback }
func (d *FakeBreakout) Forward() int  { return d.cfg.ConfirmBars }

func (d *FakeBreakout) Detect(candles []models.Candle, index int) models.DetectionResult {
	cfg := d.cfg
	if cfg.Lookback <= 0 || !inBounds(candles, index, cfg.Lookback, cfg.ConfirmBars) {
		return none
	}

	c := candles[index]
	rng := c.Range()
	if rng <= 0 {
		return none
	}

	high, low, avgVolume := referenceStats(candles, index, cfg.Lookback)
	vr := volumeRatio(c.Volume, avgVolume)
	if vr < cfg.VolumeMultiplier {
		return none
	}
	confirm := candles[index+1 : index+1+cfg.ConfirmBars]

	// Upside break rejected back below the range high
	upperRatio := c.UpperWick() / rng
	if high > 0 && c.High > high*(1+cfg.MinBreakout) && upperRatio >= cfg.MinWickRatio {
		if anyClose(confirm, func(p float64) bool { return p < high }) {
			breakout := (c.High - high) / high
			return d.result(models.Short, c, upperRatio, vr, breakout)
		}
	}

	// Downside break reclaimed above the range low
	lowerRatio := c.LowerWick() / rng
	if low > 0 && c.Low < low*(1-cfg.MinBreakout) && lowerRatio >= cfg.MinWickRatio {
		if anyClose(confirm, func(p float64) bool { return p > low }) {
			breakout := (low - c.Low) / low
			return d.result(models.Long, c, lowerRatio, vr, breakout)
		}
	}

	return none
}

func (d *FakeBreakout) result(dir models.Direction, c models.Candle, wick, vr, breakout float64) models.DetectionResult {
	confidence := 0.4 +
		0.25*saturate(wick, 1) +
		0.15*saturate(vr, 2*d.cfg.VolumeMultiplier) +
		0.15*saturate(breakout, 0.02)

	return models.DetectionResult{
		Detected:    true,
		Direction:   dir,
		Confidence:  clipConfidence(confidence),
		Type:        models.PatternFakeBreakout,
		Magnitude:   breakout,
		WickRatio:   wick,
		BodyRatio:   c.Body() / c.Range(),
		VolumeRatio: vr,
		Price:       c.Close,
	}
}

func anyClose(candles []models.Candle, ok func(float64) bool) bool {
	for _, c := range candles {
		if ok(c.Close) {
			return true
		}
	}
	return false
}
