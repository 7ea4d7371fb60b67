// Package backtest drives a single deterministic pass over a candle sequence.
package backtest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/trapfade/internal/anomaly"
	"github.com/Alias1177/trapfade/internal/composer"
	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/internal/patterns"
	"github.com/Alias1177/trapfade/internal/trading/position"
	"github.com/Alias1177/trapfade/internal/trading/risk"
	"github.com/Alias1177/trapfade/models"
)

// Observer receives engine events, typically a metrics.Recorder.
type Observer interface {
	PositionOpened(strategy, side string)
	TradeClosed(strategy, reason string)
	Rejected(reason string)
	Halted()
	Equity(capital, drawdown float64)
}

type nopObserver struct{}

func (nopObserver) PositionOpened(string, string) {}
func (nopObserver) TradeClosed(string, string)    {}
func (nopObserver) Rejected(string)               {}
func (nopObserver) Halted()                       {}
func (nopObserver) Equity(float64, float64)       {}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithDetectors replaces the configured detector bank.
func WithDetectors(detectors ...patterns.Detector) Option {
	return func(e *Engine) { e.bank = patterns.NewBankFrom(detectors...) }
}

// WithMetrics reports engine events to o.
func WithMetrics(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithPrior biases signal selection with an experience prior.
func WithPrior(p *composer.ExperiencePrior) Option {
	return func(e *Engine) { e.prior = p }
}

// Engine handles backtesting operations
type Engine struct {
	cfg       *config.StrategyConfig
	log       zerolog.Logger
	bank      *patterns.Bank
	prior     *composer.ExperiencePrior
	composer  *composer.Composer
	risk      *risk.Controller
	positions *position.Manager
	observer  Observer
}

// NewEngine validates cfg and wires the components.
func NewEngine(cfg *config.StrategyConfig, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil strategy", config.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		log:       log.With().Str("component", "backtest").Str("strategy", cfg.Name).Logger(),
		risk:      risk.NewController(cfg.Risk),
		positions: position.NewManager(cfg.Position, cfg.Fee, cfg.Slippage),
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.bank == nil {
		bank, err := patterns.NewBank(cfg)
		if err != nil {
			return nil, fmt.Errorf("build detectors: %w", err)
		}
		e.bank = bank
	}
	e.composer = composer.New(cfg, e.prior)

	return e, nil
}

// StartIndex is the first bar with enough history for every consumer.
func (e *Engine) StartIndex() int {
	start := e.bank.Lookback()
	if atr := e.cfg.Position.ATRPeriod + 1; atr > start {
		start = atr
	}
	if e.cfg.Regime.Window > start {
		start = e.cfg.Regime.Window
	}
	return start
}

// run holds the mutable state of one Run call.
type run struct {
	state       models.RunState
	trades      []models.Trade
	equity      []models.EquityPoint
	events      []models.ManipulationEvent
	position    *models.Position
	positionPnL float64
}

// Run replays candles and returns the in-memory results.
func (e *Engine) Run(ctx context.Context, candles []models.Candle) (*models.Results, error) {
	if err := models.ValidateCandles(candles); err != nil {
		return nil, fmt.Errorf("validate candles: %w", err)
	}

	r := &run{state: models.NewRunState(e.cfg.InitialCapital, e.cfg.MinConfidence)}
	results := &models.Results{Strategy: e.cfg.Name}

	start := e.StartIndex()
	end := len(candles) - e.bank.Forward()

	e.log.Info().
		Int("candles", len(candles)).
		Int("start", start).
		Int("end", end).
		Strs("detectors", e.bank.Names()).
		Msg("Starting backtest")

	if start >= end {
		e.log.Warn().Int("candles", len(candles)).Int("required", start+e.bank.Forward()+1).
			Msg("Not enough candles for the configured lookback")
		e.finish(results, r, candles, start, start)
		return results, nil
	}

	e.sample(r, candles[start].Timestamp)

	last := start
	for i := start; i < end; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest interrupted at bar %d: %w", i, err)
		}
		last = i
		candle := candles[i]

		e.risk.AdvanceDay(&r.state, candle.Timestamp)

		candidates := e.bank.Evaluate(candles, i)
		r.events = append(r.events, anomaly.Events(candle, i, candidates)...)

		if r.position.IsOpen() {
			for _, t := range e.positions.Tick(r.position, candle, i) {
				e.record(r, t)
			}
			if !r.position.IsOpen() {
				e.closed(r, candle.Timestamp)
			}

			if e.risk.ShouldHalt(r.state) {
				e.halt(results, r, candle, i)
				break
			}
		} else {
			e.tryOpen(r, candles, i, candidates)
		}

		if n := e.cfg.EquitySampleInterval; n > 0 && (i-start) > 0 && (i-start)%n == 0 {
			e.sample(r, candle.Timestamp)
		}
	}

	// Close any position still open at the last evaluated bar; bars after it only
	// serve as detector look-ahead and are never traded
	if r.position.IsOpen() {
		candle := candles[last]
		e.record(r, e.positions.Close(r.position, candle, last, candle.Close, models.ReasonForceClose))
		e.closed(r, candle.Timestamp)
	}

	e.sample(r, candles[last].Timestamp)
	e.finish(results, r, candles, start, last)

	perf := results.OverallPerformance
	e.log.Info().
		Int("trades", perf.TotalTrades).
		Float64("final_capital", perf.FinalCapital).
		Float64("total_return", perf.TotalReturn).
		Float64("win_rate", perf.WinRate).
		Float64("max_drawdown", perf.MaxDrawdown).
		Bool("halted", results.Halted).
		Msg("Backtest finished")

	return results, nil
}

func (e *Engine) tryOpen(r *run, candles []models.Candle, i int, candidates []patterns.Candidate) {
	candle := candles[i]

	if rejection := e.risk.CanOpen(r.state, candle.Timestamp); rejection != risk.Allowed {
		if len(candidates) == 0 {
			return
		}
		e.observer.Rejected(string(rejection))
		ev := e.log.Debug()
		if rejection == risk.RejectDrawdown {
			ev = e.log.Warn().Float64("drawdown", r.state.Drawdown())
		}
		ev.Str("reason", string(rejection)).
			Int("index", i).
			Dur("cooldown_remaining", e.risk.CooldownRemaining(r.state, candle.Timestamp)).
			Msg("Open rejected by risk gate")
		return
	}

	regime := models.MarketRegime{Type: models.RegimeUnknown}
	if e.cfg.Regime.Enabled {
		regime = anomaly.ClassifyRegime(candles, i, e.cfg.Regime)
	}

	signal := e.composer.Compose(candidates, regime, r.state)
	if signal == nil || signal.Confidence < r.state.MinConfidence {
		return
	}

	r.position = e.positions.Open(position.Entry{
		Signal:       *signal,
		Candle:       candle,
		Index:        i,
		Capital:      r.state.CurrentCapital,
		Leverage:     risk.Leverage(e.cfg.Risk, signal.Confidence),
		PositionSize: risk.PositionSize(e.cfg.Risk, signal.Confidence, r.state),
		StopDistance: risk.StopDistance(e.cfg.Position, candles, i),
	})
	r.positionPnL = 0
	e.risk.RecordOpen(&r.state)
	e.observer.PositionOpened(signal.Strategy, string(signal.Direction))

	e.log.Debug().
		Int("index", i).
		Str("strategy", signal.Strategy).
		Str("side", string(signal.Direction)).
		Float64("confidence", signal.Confidence).
		Float64("entry", r.position.EntryPrice).
		Float64("leverage", r.position.Leverage).
		Float64("size", r.position.PositionSize).
		Str("regime", regime.Type).
		Msg("Position opened")
}

// record books a trade against capital.
func (e *Engine) record(r *run, t models.Trade) {
	r.trades = append(r.trades, t)
	r.positionPnL += t.PnL
	r.state.CurrentCapital += t.PnL
	e.risk.UpdateEquity(&r.state)
	e.observer.TradeClosed(t.Strategy, string(t.Reason))
	e.sample(r, t.ExitTime)

	e.log.Debug().
		Int("index", t.ExitIndex).
		Str("strategy", t.Strategy).
		Str("reason", string(t.Reason)).
		Float64("exit", t.ExitPrice).
		Float64("pnl", t.PnL).
		Float64("capital", r.state.CurrentCapital).
		Msg("Trade closed")

	a := e.cfg.Adaptation
	if a.Enabled && a.EveryTrades > 0 && len(r.trades)%a.EveryTrades == 0 {
		before := r.state.MinConfidence
		r.state = composer.Adapt(r.state, r.trades, a)
		e.log.Debug().Float64("min_confidence_before", before).
			Float64("min_confidence", r.state.MinConfidence).Msg("Adapted strategy weights")
	}
}

// closed finalizes a fully closed position.
func (e *Engine) closed(r *run, exitTime int64) {
	if e.risk.RecordClose(&r.state, r.positionPnL, exitTime) {
		e.log.Debug().Int64("until", r.state.CooldownUntil).Msg("Loss streak, extended cooldown")
	}
	r.position = nil
	r.positionPnL = 0
}

func (e *Engine) halt(results *models.Results, r *run, candle models.Candle, i int) {
	if r.position.IsOpen() {
		e.record(r, e.positions.Close(r.position, candle, i, candle.Close, models.ReasonForceClose))
		e.closed(r, candle.Timestamp)
	}
	results.Halted = true
	results.HaltReason = fmt.Sprintf("drawdown %.2f%% exceeded max %.2f%% at bar %d",
		r.state.Drawdown()*100, e.cfg.Risk.MaxDrawdown*100, i)
	e.observer.Halted()
	e.log.Warn().Str("reason", results.HaltReason).Msg("Circuit breaker halted backtest")
}

func (e *Engine) sample(r *run, ts int64) {
	dd := r.state.Drawdown()
	r.equity = append(r.equity, models.EquityPoint{
		Timestamp: ts,
		Capital:   r.state.CurrentCapital,
		Drawdown:  dd,
	})
	e.observer.Equity(r.state.CurrentCapital, dd)
}

func (e *Engine) finish(results *models.Results, r *run, candles []models.Candle, start, last int) {
	var days float64
	if last > start && last < len(candles) {
		days = models.SpanDays(candles[start : last+1])
	}

	results.OverallPerformance = CalculatePerformance(r.trades, r.equity, e.cfg.InitialCapital, r.state.CurrentCapital, days)
	results.StrategyBreakdown = Breakdown(r.trades)
	results.ManipulationEvents = r.events
	if results.ManipulationEvents == nil {
		results.ManipulationEvents = []models.ManipulationEvent{}
	}
	results.EquityCurve = r.equity
	if results.EquityCurve == nil {
		results.EquityCurve = []models.EquityPoint{}
	}
	results.FinalState = r.state
}

// Breakdown groups the trade log by strategy.
func Breakdown(trades []models.Trade) map[string]models.StrategyStats {
	out := make(map[string]models.StrategyStats)
	for _, t := range trades {
		stats := out[t.Strategy]
		stats.Add(t)
		out[t.Strategy] = stats
	}
	return out
}
