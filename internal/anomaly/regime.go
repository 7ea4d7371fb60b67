package anomaly

import (
	"math"

	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/internal/indicators"
	"github.com/Alias1177/trapfade/models"
)

// ClassifyRegime buckets the window ending at index into VOLATILE, TRENDING or SIDEWAYS.
// Volatility is checked first, so a fast trending market reads as VOLATILE.
func ClassifyRegime(candles []models.Candle, index int, cfg config.RegimeConfig) models.MarketRegime {
	if cfg.Window <= 0 || index < cfg.Window-1 || index >= len(candles) {
		return models.MarketRegime{Type: models.RegimeUnknown}
	}

	closes := indicators.Closes(candles[index-cfg.Window+1 : index+1])
	regime := models.MarketRegime{
		Type:       models.RegimeSideways,
		Trend:      indicators.CalculateTrend(closes),
		Volatility: indicators.CalculateVolatility(closes),
	}

	switch {
	case regime.Volatility > cfg.VolatilityThreshold:
		regime.Type = models.RegimeVolatile
		regime.Strength = ratio(regime.Volatility, 2*cfg.VolatilityThreshold)
	case math.Abs(regime.Trend) > cfg.TrendThreshold:
		regime.Type = models.RegimeTrending
		regime.Strength = ratio(math.Abs(regime.Trend), 2*cfg.TrendThreshold)
	default:
		// Strength inversely related to the trend
		regime.Strength = 1 - ratio(math.Abs(regime.Trend), cfg.TrendThreshold)
	}

	return regime
}

// ratio returns v/limit capped to [0,1]; a non-positive limit saturates.
func ratio(v, limit float64) float64 {
	if limit <= 0 {
		return 1
	}
	return math.Max(0, math.Min(v/limit, 1))
}
