package risk

import (
	"math"

	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/internal/indicators"
	"github.com/Alias1177/trapfade/models"
)

// Clamp applies the final max(min, min(max, v)) bound used for every sizing output.
func Clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}

// Leverage scales the base leverage with signal confidence.
func Leverage(cfg config.RiskConfig, confidence float64) float64 {
	return Clamp(cfg.BaseLeverage*(0.5+confidence), cfg.MinLeverage, cfg.MaxLeverage)
}

// PositionSize returns the fraction of current capital to commit.
// Losing streaks halve the size, winning streaks add 20%.
func PositionSize(cfg config.RiskConfig, confidence float64, state models.RunState) float64 {
	size := cfg.BasePositionSize * (0.5 + confidence)

	// Adjust for streaks
	if state.ConsecutiveLosses >= 2 {
		size *= 0.5
	} else if state.ConsecutiveWins >= 3 {
		size *= 1.2
	}

	return Clamp(size, cfg.MinPositionSize, cfg.MaxPositionSize)
}

// StopDistance returns the stop-loss distance as a fraction of price at index.
// With ATR stops enabled the distance widens to ATR*multiplier over price, never below
// the base stop and never above MaxStopLoss when that is set.
func StopDistance(cfg config.PositionConfig, candles []models.Candle, index int) float64 {
	if !cfg.UseATRStop || cfg.ATRPeriod <= 0 || index <= 0 || index >= len(candles) {
		return cfg.StopLoss
	}

	start := index - cfg.ATRPeriod
	if start < 0 {
		start = 0
	}
	price := candles[index].Close
	if price <= 0 {
		return cfg.StopLoss
	}

	atr := indicators.ATRFromCandles(candles[start:index+1], cfg.ATRPeriod)
	distance := math.Max(cfg.StopLoss, atr*cfg.ATRMultiplier/price)
	if cfg.MaxStopLoss > 0 {
		distance = math.Min(distance, cfg.MaxStopLoss)
	}
	return distance
}
