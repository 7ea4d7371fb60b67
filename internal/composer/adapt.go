package composer

import (
	"math"

	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/models"
)

const (
	minMultiplier = 0.5
	maxMultiplier = 2.0
)

// Adapt returns a tuned copy of state; the input is not modified.
//
// MinConfidence moves by cfg.Step against the win rate of the last cfg.Window trades,
// bounded to [cfg.MinConfidence, cfg.MaxConfidence]. Per-strategy correlations move
// +/-0.1 for each of the last cfg.EveryTrades trades and scale that strategy's
// multiplier by (1 + correlation*0.1), bounded to [0.5, 2].
func Adapt(state models.RunState, recent []models.Trade, cfg config.AdaptationConfig) models.RunState {
	next := state.Clone()
	if len(recent) == 0 {
		return next
	}

	window := tail(recent, cfg.Window)
	var wins int
	for _, t := range window {
		if t.IsWin() {
			wins++
		}
	}
	winRate := float64(wins) / float64(len(window))

	switch {
	case winRate < cfg.LowWinRate:
		next.MinConfidence += cfg.Step
	case winRate > cfg.HighWinRate:
		next.MinConfidence -= cfg.Step
	}
	next.MinConfidence = math.Max(cfg.MinConfidence, math.Min(cfg.MaxConfidence, next.MinConfidence))

	// Update correlation based on trade outcome
	for _, t := range tail(recent, cfg.EveryTrades) {
		corr := next.StrategyCorrelation[t.Strategy]
		if t.IsWin() {
			corr += 0.1
		} else {
			corr -= 0.1
		}
		corr = math.Max(-1.0, math.Min(1.0, corr))
		next.StrategyCorrelation[t.Strategy] = corr

		mult, ok := next.StrategyMultipliers[t.Strategy]
		if !ok {
			mult = 1
		}
		mult *= 1.0 + corr*0.1
		next.StrategyMultipliers[t.Strategy] = math.Max(minMultiplier, math.Min(maxMultiplier, mult))
	}

	return next
}

func tail(trades []models.Trade, n int) []models.Trade {
	if n <= 0 || n >= len(trades) {
		return trades
	}
	return trades[len(trades)-n:]
}
