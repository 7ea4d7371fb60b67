// Package position runs the lifecycle of the single open position:
// open, zero or more partial take-profits, then a full close.
package position

import (
	"math"
	"time"

	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/models"
)

// sizeEpsilon treats a residual below it as fully closed.
const sizeEpsilon = 1e-9

// Entry carries everything needed to open a position on a bar.
type Entry struct {
	Signal       models.Signal
	Candle       models.Candle
	Index        int
	Capital      float64
	Leverage     float64
	PositionSize float64
	StopDistance float64
}

// Manager applies PositionConfig to positions owned by the caller.
type Manager struct {
	cfg      config.PositionConfig
	fee      float64
	slippage float64
}

func NewManager(cfg config.PositionConfig, fee, slippage float64) *Manager {
	return &Manager{cfg: cfg, fee: fee, slippage: slippage}
}

// Open builds a new position at the bar close, adjusted against the trader by slippage.
func (m *Manager) Open(e Entry) *models.Position {
	side := e.Signal.Direction
	sign := side.Sign()
	entry := e.Candle.Close * (1 + sign*m.slippage)

	stop := e.StopDistance
	if stop <= 0 {
		stop = m.cfg.StopLoss
	}
	stopPrice := entry * (1 - sign*stop)

	levels := make([]models.TakeProfitLevel, len(m.cfg.TakeProfits))
	for i, tier := range m.cfg.TakeProfits {
		levels[i] = models.TakeProfitLevel{
			Price:    entry * (1 + sign*tier.Distance),
			Fraction: tier.Fraction,
		}
	}

	return &models.Position{
		Side:              side,
		EntryPrice:        entry,
		EntryTime:         e.Candle.Timestamp,
		EntryIndex:        e.Index,
		TradeAmount:       e.Capital * e.PositionSize,
		Leverage:          e.Leverage,
		PositionSize:      e.PositionSize,
		StopLossPrice:     stopPrice,
		TakeProfitLevels:  levels,
		TrailingStopPrice: stopPrice,
		Confidence:        e.Signal.Confidence,
		Strategy:          e.Signal.Strategy,
		MaxHoldingTime:    m.cfg.MaxHoldingTime,
		RemainingSize:     1,
		Fee:               m.fee,
	}
}

// Tick evaluates exits for one bar in fixed priority:
// trailing update, take-profit tiers, trailing breach, stop-loss, holding limit.
// It mutates p and returns the trades produced, if any.
func (m *Manager) Tick(p *models.Position, candle models.Candle, index int) []models.Trade {
	if !p.IsOpen() {
		return nil
	}

	held := time.Duration(candle.Timestamp-p.EntryTime) * time.Millisecond
	locked := m.cfg.MinHoldingTime > 0 && held < m.cfg.MinHoldingTime

	m.updateTrailing(p, candle.Close)

	var trades []models.Trade
	if !locked {
		for i := range p.TakeProfitLevels {
			level := &p.TakeProfitLevels[i]
			if level.Hit || !touched(p.Side, candle, level.Price) {
				continue
			}
			level.Hit = true

			fraction := math.Min(level.Fraction, p.RemainingSize)
			reason := models.ReasonPartialTakeProfit
			if p.RemainingSize-fraction <= sizeEpsilon {
				reason = models.ReasonTakeProfit
			}
			trades = append(trades, m.close(p, candle, index, level.Price, fraction, reason))
			if !p.IsOpen() {
				return trades
			}
		}

		if p.TrailingActive && breached(p.Side, candle.Close, p.TrailingStopPrice) {
			return append(trades, m.Close(p, candle, index, candle.Close, models.ReasonTrailingStop))
		}
	}

	if stopped(p.Side, candle, p.StopLossPrice) {
		return append(trades, m.Close(p, candle, index, p.StopLossPrice, models.ReasonStopLoss))
	}

	if !locked && p.MaxHoldingTime > 0 && held >= p.MaxHoldingTime {
		return append(trades, m.Close(p, candle, index, candle.Close, models.ReasonTimeLimit))
	}

	return trades
}

// Close exits the whole remaining size at price.
func (m *Manager) Close(p *models.Position, candle models.Candle, index int, price float64, reason models.ExitReason) models.Trade {
	return m.close(p, candle, index, price, p.RemainingSize, reason)
}

func (m *Manager) close(p *models.Position, candle models.Candle, index int, price, fraction float64, reason models.ExitReason) models.Trade {
	priceChange := p.UnrealizedReturn(price)
	returnRate := priceChange*p.Leverage - 2*p.Fee
	amount := p.TradeAmount * fraction

	p.RemainingSize -= fraction
	if p.RemainingSize <= sizeEpsilon {
		p.RemainingSize = 0
	}

	return models.Trade{
		Side:        p.Side,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   price,
		PnL:         amount * returnRate,
		ReturnRate:  returnRate,
		Reason:      reason,
		Strategy:    p.Strategy,
		HoldingTime: time.Duration(candle.Timestamp-p.EntryTime) * time.Millisecond,
		EntryTime:   p.EntryTime,
		ExitTime:    candle.Timestamp,
		EntryIndex:  p.EntryIndex,
		ExitIndex:   index,
		Leverage:    p.Leverage,
		Fee:         p.Fee,
		Amount:      amount,
		Fraction:    fraction,
		Partial:     p.RemainingSize > 0,
		Confidence:  p.Confidence,
	}
}

// updateTrailing ratchets the trailing stop once profit at close clears the activation level.
func (m *Manager) updateTrailing(p *models.Position, price float64) {
	if m.cfg.TrailingActivation <= 0 {
		return
	}
	profit := p.UnrealizedReturn(price)
	if profit < m.cfg.TrailingActivation {
		return
	}

	distance := m.cfg.TrailingDistance
	if m.cfg.ProportionalTrailing {
		distance = math.Max(distance, profit*m.cfg.TrailingGiveBack)
	}

	candidate := price * (1 - p.Side.Sign()*distance)
	p.TrailingStopPrice = betterStop(p.Side, p.TrailingStopPrice, candidate)
	p.TrailingActive = true
}

// betterStop keeps the stop that locks in more profit.
func betterStop(side models.Direction, current, candidate float64) float64 {
	if side == models.Short {
		return math.Min(current, candidate)
	}
	return math.Max(current, candidate)
}

func touched(side models.Direction, candle models.Candle, level float64) bool {
	if side == models.Short {
		return candle.Low <= level
	}
	return candle.High >= level
}

func stopped(side models.Direction, candle models.Candle, stop float64) bool {
	if side == models.Short {
		return candle.High >= stop
	}
	return candle.Low <= stop
}

func breached(side models.Direction, price, stop float64) bool {
	if side == models.Short {
		return price >= stop
	}
	return price <= stop
}
