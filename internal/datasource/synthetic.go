package datasource

import (
	"context"
	"math"
	"time"

	"github.com/Alias1177/trapfade/models"
)

// RandSource is the randomness the generator needs. *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
	NormFloat64() float64
}

// GeneratorConfig shapes a synthetic random walk.
type GeneratorConfig struct {
	Count      int
	StartPrice float64
	StartTime  int64 // Unix ms
	Interval   time.Duration
	Volatility float64 // stdev of per-bar returns
	Drift      float64 // mean per-bar return
	BaseVolume float64

	// With SpikeProbability per bar, stretch one wick SpikeSize beyond the body on 3x volume.
	SpikeProbability float64
	SpikeSize        float64
}

// DefaultGeneratorConfig is an hourly BTC-like walk with occasional traps.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Count:            2000,
		StartPrice:       30000,
		StartTime:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
		Interval:         time.Hour,
		Volatility:       0.006,
		Drift:            0,
		BaseVolume:       1000,
		SpikeProbability: 0.02,
		SpikeSize:        0.02,
	}
}

// Generator produces reproducible candles: the same RandSource seed yields the same output.
type Generator struct {
	cfg GeneratorConfig
	rng RandSource
}

func NewGenerator(cfg GeneratorConfig, rng RandSource) *Generator {
	return &Generator{cfg: cfg, rng: rng}
}

// Candles implements models.CandleSource.
func (g *Generator) Candles(ctx context.Context) ([]models.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candles := g.Generate()
	if err := models.ValidateCandles(candles); err != nil {
		return nil, err
	}
	return candles, nil
}

// Generate walks Count bars from StartPrice.
func (g *Generator) Generate() []models.Candle {
	cfg := g.cfg
	if cfg.Count <= 0 || cfg.StartPrice <= 0 {
		return nil
	}
	interval := cfg.Interval.Milliseconds()
	if interval <= 0 {
		interval = time.Hour.Milliseconds()
	}
	baseVolume := cfg.BaseVolume
	if baseVolume <= 0 {
		baseVolume = 1000
	}

	candles := make([]models.Candle, cfg.Count)
	price := cfg.StartPrice
	for i := range candles {
		open := price
		ret := cfg.Drift + cfg.Volatility*g.rng.NormFloat64()
		// Keep prices positive under extreme draws
		ret = math.Max(ret, -0.5)
		closePrice := open * (1 + ret)

		wickUp := math.Abs(g.rng.NormFloat64()) * cfg.Volatility * 0.5
		wickDown := math.Abs(g.rng.NormFloat64()) * cfg.Volatility * 0.5
		high := math.Max(open, closePrice) * (1 + wickUp)
		low := math.Min(open, closePrice) * (1 - wickDown)
		volume := baseVolume * (0.5 + g.rng.Float64())

		if cfg.SpikeProbability > 0 && g.rng.Float64() < cfg.SpikeProbability {
			// Trap bar: long wick one side, heavy volume
			if g.rng.Float64() < 0.5 {
				high = math.Max(open, closePrice) * (1 + cfg.SpikeSize)
			} else {
				low = math.Min(open, closePrice) * (1 - cfg.SpikeSize)
			}
			volume *= 3
		}

		candles[i] = models.Candle{
			Timestamp: cfg.StartTime + int64(i)*interval,
			Open:      open,
			High:      high,
			Low:       math.Max(low, math.SmallestNonzeroFloat64),
			Close:     closePrice,
			Volume:    volume,
		}
		price = closePrice
	}
	return candles
}
