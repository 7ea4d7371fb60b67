package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every strategy validation failure.
var ErrInvalidConfig = errors.New("invalid strategy config")

// Detector names, also used as strategy names in weights and breakdowns.
const (
	DetectorFakeBreakout    = "fake_breakout"
	DetectorWickHunt        = "wick_hunt"
	DetectorLiquidationHunt = "liquidation_hunt"
	DetectorWashTrading     = "wash_trading"
	DetectorTrendFollowing  = "trend_following"
	DetectorMeanReversion   = "mean_reversion"
	DetectorMomentum        = "momentum"
	DetectorForecast        = "forecast"
)

// AllDetectors lists every detector in registration order.
var AllDetectors = []string{
	DetectorFakeBreakout,
	DetectorWickHunt,
	DetectorLiquidationHunt,
	DetectorWashTrading,
	DetectorTrendFollowing,
	DetectorMeanReversion,
	DetectorMomentum,
	DetectorForecast,
}

// FakeBreakoutConfig tunes the fake-breakout / fake-move detector.
type FakeBreakoutConfig struct {
	Lookback         int     `yaml:"lookback"`
	MinWickRatio     float64 `yaml:"min_wick_ratio"`
	VolumeMultiplier float64 `yaml:"volume_multiplier"`
	MinBreakout      float64 `yaml:"min_breakout"`
	ConfirmBars      int     `yaml:"confirm_bars"`
}

// WickHuntConfig tunes the stop-hunt wick detector.
type WickHuntConfig struct {
	Lookback     int     `yaml:"lookback"`
	MaxBodyRatio float64 `yaml:"max_body_ratio"`
	MinWickRatio float64 `yaml:"min_wick_ratio"`
}

// LiquidationHuntConfig tunes the spike-and-reverse detector.
type LiquidationHuntConfig struct {
	Lookback         int     `yaml:"lookback"`
	SpikeThreshold   float64 `yaml:"spike_threshold"`
	VolumeMultiplier float64 `yaml:"volume_multiplier"`
	ReversalBars     int     `yaml:"reversal_bars"`
	RecoveryRatio    float64 `yaml:"recovery_ratio"`
}

// WashTradingConfig tunes the tight-range detector.
type WashTradingConfig struct {
	Window        int     `yaml:"window"`
	MaxRange      float64 `yaml:"max_range"`
	VolumeDecline float64 `yaml:"volume_decline"`
	MaxBreakout   float64 `yaml:"max_breakout"`
}

// TrendFollowingConfig tunes the moving-average alignment detector.
type TrendFollowingConfig struct {
	ShortWindow      int     `yaml:"short_window"`
	MediumWindow     int     `yaml:"medium_window"`
	LongWindow       int     `yaml:"long_window"`
	MinMomentum      float64 `yaml:"min_momentum"`
	VolumeMultiplier float64 `yaml:"volume_multiplier"`
}

// MeanReversionConfig tunes the RSI extreme detector.
type MeanReversionConfig struct {
	RSIPeriod      int     `yaml:"rsi_period"`
	SMAPeriod      int     `yaml:"sma_period"`
	Oversold       float64 `yaml:"oversold"`
	Overbought     float64 `yaml:"overbought"`
	BandMultiplier float64 `yaml:"band_multiplier"`
}

// MomentumConfig tunes the short vs medium horizon detector.
type MomentumConfig struct {
	ShortWindow       int     `yaml:"short_window"`
	MediumWindow      int     `yaml:"medium_window"`
	MinShortMomentum  float64 `yaml:"min_short_momentum"`
	MinVolumeMomentum float64 `yaml:"min_volume_momentum"`
}

// ForecastConfig tunes the slope-sigmoid forecaster.
type ForecastConfig struct {
	MinConfidence float64 `yaml:"min_confidence"`
	MinEdge       float64 `yaml:"min_edge"`
}

// DetectorConfig groups per-pattern thresholds.
type DetectorConfig struct {
	FakeBreakout    FakeBreakoutConfig    `yaml:"fake_breakout"`
	WickHunt        WickHuntConfig        `yaml:"wick_hunt"`
	LiquidationHunt LiquidationHuntConfig `yaml:"liquidation_hunt"`
	WashTrading     WashTradingConfig     `yaml:"wash_trading"`
	TrendFollowing  TrendFollowingConfig  `yaml:"trend_following"`
	MeanReversion   MeanReversionConfig   `yaml:"mean_reversion"`
	Momentum        MomentumConfig        `yaml:"momentum"`
	Forecast        ForecastConfig        `yaml:"forecast"`
}

// RiskConfig encodes guard-rails for sizing and the circuit breaker.
type RiskConfig struct {
	MinLeverage          float64       `yaml:"min_leverage"`
	MaxLeverage          float64       `yaml:"max_leverage"`
	BaseLeverage         float64       `yaml:"base_leverage"`
	MinPositionSize      float64       `yaml:"min_position_size"`
	MaxPositionSize      float64       `yaml:"max_position_size"`
	BasePositionSize     float64       `yaml:"base_position_size"`
	MaxDrawdown          float64       `yaml:"max_drawdown"`
	SoftDrawdown         float64       `yaml:"soft_drawdown"` // 0 disables
	MaxDailyTrades       int           `yaml:"max_daily_trades"`
	CooldownAfterWin     time.Duration `yaml:"cooldown_after_win"`
	CooldownAfterLoss    time.Duration `yaml:"cooldown_after_loss"`
	MaxConsecutiveLosses int           `yaml:"max_consecutive_losses"` // 0 disables escalation
	ExtendedCooldown     time.Duration `yaml:"extended_cooldown"`
}

// TakeProfitTier is one take-profit rung relative to the entry price.
type TakeProfitTier struct {
	Distance float64 `yaml:"distance"`
	Fraction float64 `yaml:"fraction"`
}

// PositionConfig controls entries and exits.
type PositionConfig struct {
	StopLoss             float64          `yaml:"stop_loss"`
	UseATRStop           bool             `yaml:"use_atr_stop"`
	ATRPeriod            int              `yaml:"atr_period"`
	ATRMultiplier        float64          `yaml:"atr_multiplier"`
	MaxStopLoss          float64          `yaml:"max_stop_loss"`
	TakeProfits          []TakeProfitTier `yaml:"take_profits"`
	TrailingActivation   float64          `yaml:"trailing_activation"` // 0 disables trailing
	TrailingDistance     float64          `yaml:"trailing_distance"`
	ProportionalTrailing bool             `yaml:"proportional_trailing"`
	TrailingGiveBack     float64          `yaml:"trailing_give_back"` // share of profit allowed back
	MaxHoldingTime       time.Duration    `yaml:"max_holding_time"`
	MinHoldingTime       time.Duration    `yaml:"min_holding_time"`
}

// RegimeConfig drives the optional market-regime multiplier.
type RegimeConfig struct {
	Enabled             bool                          `yaml:"enabled"`
	Window              int                           `yaml:"window"`
	TrendThreshold      float64                       `yaml:"trend_threshold"`
	VolatilityThreshold float64                       `yaml:"volatility_threshold"`
	Multipliers         map[string]map[string]float64 `yaml:"multipliers"` // regime -> strategy -> x
}

// AdaptationConfig drives the periodic self-tuning step.
type AdaptationConfig struct {
	Enabled         bool    `yaml:"enabled"`
	EveryTrades     int     `yaml:"every_trades"`
	Window          int     `yaml:"window"`
	Step            float64 `yaml:"step"`
	LowWinRate      float64 `yaml:"low_win_rate"`
	HighWinRate     float64 `yaml:"high_win_rate"`
	MinConfidence   float64 `yaml:"min_confidence"`
	MaxConfidence   float64 `yaml:"max_confidence"`
	PriorMinSamples int     `yaml:"prior_min_samples"`
}

// StrategyConfig is the full parameter set of one strategy variant.
type StrategyConfig struct {
	Name                 string             `yaml:"name"`
	InitialCapital       float64            `yaml:"initial_capital"`
	Fee                  float64            `yaml:"fee"`
	Slippage             float64            `yaml:"slippage"`
	MinConfidence        float64            `yaml:"min_confidence"`
	EquitySampleInterval int                `yaml:"equity_sample_interval"`
	EnabledDetectors     []string           `yaml:"enabled_detectors"`
	Weights              map[string]float64 `yaml:"weights"`
	Detectors            DetectorConfig     `yaml:"detectors"`
	Risk                 RiskConfig         `yaml:"risk"`
	Position             PositionConfig     `yaml:"position"`
	Regime               RegimeConfig       `yaml:"regime"`
	Adaptation           AdaptationConfig   `yaml:"adaptation"`
}

// Default returns the baseline variant.
func Default() StrategyConfig {
	return StrategyConfig{
		Name:                 "default",
		InitialCapital:       10000,
		Fee:                  0.0004,
		Slippage:             0.0002,
		MinConfidence:        0.6,
		EquitySampleInterval: 12,
		EnabledDetectors:     append([]string(nil), AllDetectors...),
		Weights: map[string]float64{
			DetectorFakeBreakout:    1.2,
			DetectorWickHunt:        1.1,
			DetectorLiquidationHunt: 1.3,
			DetectorWashTrading:     0.9,
			DetectorTrendFollowing:  1.0,
			DetectorMeanReversion:   0.8,
			DetectorMomentum:        0.9,
			DetectorForecast:        0.6,
		},
		Detectors: DetectorConfig{
			FakeBreakout: FakeBreakoutConfig{
				Lookback:         20,
				MinWickRatio:     0.6,
				VolumeMultiplier: 2.0,
				MinBreakout:      0.005,
				ConfirmBars:      2,
			},
			WickHunt: WickHuntConfig{
				Lookback:     20,
				MaxBodyRatio: 0.3,
				MinWickRatio: 0.6,
			},
			LiquidationHunt: LiquidationHuntConfig{
				Lookback:         20,
				SpikeThreshold:   0.015,
				VolumeMultiplier: 3.0,
				ReversalBars:     2,
				RecoveryRatio:    0.5,
			},
			WashTrading: WashTradingConfig{
				Window:        20,
				MaxRange:      0.01,
				VolumeDecline: 0.8,
				MaxBreakout:   0.005,
			},
			TrendFollowing: TrendFollowingConfig{
				ShortWindow:      5,
				MediumWindow:     10,
				LongWindow:       20,
				MinMomentum:      0.005,
				VolumeMultiplier: 1.2,
			},
			MeanReversion: MeanReversionConfig{
				RSIPeriod:      14,
				SMAPeriod:      20,
				Oversold:       30,
				Overbought:     70,
				BandMultiplier: 2.0,
			},
			Momentum: MomentumConfig{
				ShortWindow:       5,
				MediumWindow:      20,
				MinShortMomentum:  0.01,
				MinVolumeMomentum: 1.1,
			},
			Forecast: ForecastConfig{
				MinConfidence: 0.75,
				MinEdge:       0.3,
			},
		},
		Risk: RiskConfig{
			MinLeverage:          1,
			MaxLeverage:          10,
			BaseLeverage:         3,
			MinPositionSize:      0.05,
			MaxPositionSize:      0.3,
			BasePositionSize:     0.1,
			MaxDrawdown:          0.15,
			SoftDrawdown:         0.10,
			MaxDailyTrades:       10,
			CooldownAfterWin:     15 * time.Minute,
			CooldownAfterLoss:    45 * time.Minute,
			MaxConsecutiveLosses: 3,
			ExtendedCooldown:     4 * time.Hour,
		},
		Position: PositionConfig{
			StopLoss:      0.012,
			UseATRStop:    true,
			ATRPeriod:     14,
			ATRMultiplier: 1.5,
			MaxStopLoss:   0.03,
			TakeProfits: []TakeProfitTier{
				{Distance: 0.025, Fraction: 1.0},
			},
			TrailingActivation: 0.01,
			TrailingDistance:   0.005,
			TrailingGiveBack:   0.4,
			MaxHoldingTime:     24 * time.Hour,
		},
		Regime: RegimeConfig{
			Enabled:             false,
			Window:              20,
			TrendThreshold:      0.01,
			VolatilityThreshold: 0.02,
			Multipliers:         map[string]map[string]float64{},
		},
		Adaptation: AdaptationConfig{
			Enabled:         false,
			EveryTrades:     10,
			Window:          20,
			Step:            0.02,
			LowWinRate:      0.4,
			HighWinRate:     0.6,
			MinConfidence:   0.5,
			MaxConfidence:   0.85,
			PriorMinSamples: 20,
		},
	}
}

// LoadStrategy reads a YAML file and overlays it on the defaults.
func LoadStrategy(path string) (*StrategyConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open strategy: %w", err)
	}
	defer file.Close()

	cfg := Default()
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveStrategy persists a StrategyConfig to disk as YAML.
func SaveStrategy(path string, cfg *StrategyConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write strategy: %w", err)
	}
	return nil
}

// Weight returns the configured weight of a strategy, 1 when unset.
func (c *StrategyConfig) Weight(strategy string) float64 {
	if w, ok := c.Weights[strategy]; ok {
		return w
	}
	return 1.0
}

// Validate rejects inconsistent parameter sets.
func (c *StrategyConfig) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.InitialCapital <= 0 {
		return invalid("initial_capital must be positive, got %v", c.InitialCapital)
	}
	if c.Fee < 0 || c.Slippage < 0 {
		return invalid("fee and slippage must not be negative")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return invalid("min_confidence must be within [0,1], got %v", c.MinConfidence)
	}

	r := c.Risk
	if r.MinLeverage <= 0 || r.MinLeverage > r.MaxLeverage {
		return invalid("leverage bounds [%v,%v] are inconsistent", r.MinLeverage, r.MaxLeverage)
	}
	if r.MinPositionSize <= 0 || r.MinPositionSize > r.MaxPositionSize || r.MaxPositionSize > 1 {
		return invalid("position size bounds [%v,%v] are inconsistent", r.MinPositionSize, r.MaxPositionSize)
	}
	if r.MaxDrawdown <= 0 || r.MaxDrawdown >= 1 {
		return invalid("max_drawdown must be within (0,1), got %v", r.MaxDrawdown)
	}
	if r.SoftDrawdown < 0 || (r.SoftDrawdown > 0 && r.SoftDrawdown > r.MaxDrawdown) {
		return invalid("soft_drawdown %v must not exceed max_drawdown %v", r.SoftDrawdown, r.MaxDrawdown)
	}
	if r.MaxDailyTrades <= 0 {
		return invalid("max_daily_trades must be positive")
	}

	p := c.Position
	if p.StopLoss <= 0 {
		return invalid("stop_loss must be positive")
	}
	if len(p.TakeProfits) == 0 {
		return invalid("at least one take_profit tier is required")
	}
	var total, prev float64
	for i, tp := range p.TakeProfits {
		if tp.Distance <= 0 || tp.Fraction <= 0 {
			return invalid("take_profit tier %d must have positive distance and fraction", i)
		}
		if tp.Distance <= prev {
			return invalid("take_profit tiers must be ordered nearest to farthest")
		}
		prev = tp.Distance
		total += tp.Fraction
	}
	if total > 1+1e-9 {
		return invalid("take_profit fractions sum to %v, above 1", total)
	}
	if p.TrailingActivation > 0 && p.TrailingDistance <= 0 && !p.ProportionalTrailing {
		return invalid("trailing_distance must be positive when trailing is enabled")
	}

	known := make(map[string]bool, len(AllDetectors))
	for _, name := range AllDetectors {
		known[name] = true
	}
	for _, name := range c.EnabledDetectors {
		if !known[name] {
			return invalid("unknown detector %q", name)
		}
	}
	return nil
}
