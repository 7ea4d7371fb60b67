// Package composer reduces the detections fired on a bar to one signal and owns the
// explicit weight adaptation between runs of trades.
package composer

import (
	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/internal/patterns"
	"github.com/Alias1177/trapfade/models"
)

// Composer scores candidates as confidence x weight x regime x prior x learned multiplier.
type Composer struct {
	cfg   *config.StrategyConfig
	prior *ExperiencePrior
}

// New builds a composer. prior may be nil.
func New(cfg *config.StrategyConfig, prior *ExperiencePrior) *Composer {
	return &Composer{cfg: cfg, prior: prior}
}

// Compose returns the highest scoring candidate, or nil when nothing fired.
// On equal scores the earlier candidate wins, which keeps registration order.
func (c *Composer) Compose(candidates []patterns.Candidate, regime models.MarketRegime, state models.RunState) *models.Signal {
	var best *models.Signal
	for _, cand := range candidates {
		if !cand.Result.Detected {
			continue
		}
		weight := c.cfg.Weight(cand.Strategy)
		score := cand.Result.Confidence *
			weight *
			c.RegimeMultiplier(regime.Type, cand.Strategy) *
			c.prior.Multiplier(cand.Strategy) *
			learnedMultiplier(state, cand.Strategy)

		if best == nil || score > best.Score {
			best = &models.Signal{
				DetectionResult: cand.Result,
				Strategy:        cand.Strategy,
				Weight:          weight,
				Score:           score,
			}
		}
	}
	return best
}

// RegimeMultiplier is 1 unless regime weighting is enabled and configured for the pair.
func (c *Composer) RegimeMultiplier(regime, strategy string) float64 {
	if !c.cfg.Regime.Enabled {
		return 1
	}
	if m, ok := c.cfg.Regime.Multipliers[regime][strategy]; ok {
		return m
	}
	return 1
}

func learnedMultiplier(state models.RunState, strategy string) float64 {
	if m, ok := state.StrategyMultipliers[strategy]; ok && m > 0 {
		return m
	}
	return 1
}
