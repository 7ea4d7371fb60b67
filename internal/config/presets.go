package config

import (
	"fmt"
	"sort"
	"time"
)

var presets = map[string]func() StrategyConfig{
	"default": Default,

	"conservative": func() StrategyConfig {
		c := Default()
		c.Name = "conservative"
		c.MinConfidence = 0.7
		c.Risk.MaxLeverage = 5
		c.Risk.BaseLeverage = 2
		c.Risk.MaxPositionSize = 0.15
		c.Risk.BasePositionSize = 0.05
		c.Risk.MaxDrawdown = 0.08
		c.Risk.SoftDrawdown = 0.05
		c.Risk.MaxDailyTrades = 4
		c.Risk.CooldownAfterLoss = 2 * time.Hour
		return c
	},

	"aggressive": func() StrategyConfig {
		c := Default()
		c.Name = "aggressive"
		c.MinConfidence = 0.55
		c.Risk.MaxLeverage = 20
		c.Risk.BaseLeverage = 8
		c.Risk.MaxPositionSize = 0.5
		c.Risk.BasePositionSize = 0.2
		c.Risk.MaxDrawdown = 0.3
		c.Risk.SoftDrawdown = 0
		c.Risk.MaxDailyTrades = 30
		c.Risk.CooldownAfterWin = 0
		c.Risk.CooldownAfterLoss = 10 * time.Minute
		c.Position.UseATRStop = false
		c.Position.StopLoss = 0.008
		return c
	},

	"tiered": func() StrategyConfig {
		c := Default()
		c.Name = "tiered"
		c.Position.TakeProfits = []TakeProfitTier{
			{Distance: 0.015, Fraction: 0.3},
			{Distance: 0.03, Fraction: 0.3},
			{Distance: 0.05, Fraction: 0.4},
		}
		c.Position.ProportionalTrailing = true
		c.Position.MinHoldingTime = 10 * time.Minute
		c.Position.MaxHoldingTime = 48 * time.Hour
		return c
	},

	"manipulation_only": func() StrategyConfig {
		c := Default()
		c.Name = "manipulation_only"
		c.EnabledDetectors = []string{
			DetectorFakeBreakout,
			DetectorWickHunt,
			DetectorLiquidationHunt,
			DetectorWashTrading,
		}
		c.Regime.Enabled = true
		c.Regime.Multipliers = map[string]map[string]float64{
			"VOLATILE": {DetectorLiquidationHunt: 1.3, DetectorFakeBreakout: 1.1},
			"SIDEWAYS": {DetectorWashTrading: 1.2, DetectorWickHunt: 1.1},
			"TRENDING": {DetectorFakeBreakout: 0.8},
		}
		return c
	},

	"trend": func() StrategyConfig {
		c := Default()
		c.Name = "trend"
		c.EnabledDetectors = []string{DetectorTrendFollowing, DetectorMomentum, DetectorForecast}
		c.Position.TrailingActivation = 0.008
		c.Position.ProportionalTrailing = true
		c.Adaptation.Enabled = true
		return c
	},
}

// Presets returns the names of the built-in variants, sorted.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a fresh copy of a named variant.
func Preset(name string) (*StrategyConfig, error) {
	build, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, name)
	}
	cfg := build()
	return &cfg, nil
}
