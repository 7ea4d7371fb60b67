// Package risk gates new positions and sizes them.
package risk

import (
	"time"

	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/models"
)

// Rejection explains why the gate refused an open. The zero value means allowed.
type Rejection string

const (
	Allowed          Rejection = ""
	RejectDailyLimit Rejection = "daily_limit"
	RejectCooldown   Rejection = "cooldown"
	RejectDrawdown   Rejection = "soft_drawdown"
)

// Controller applies RiskConfig to a RunState. It holds no state of its own.
type Controller struct {
	cfg config.RiskConfig
}

func NewController(cfg config.RiskConfig) *Controller {
	return &Controller{cfg: cfg}
}

// AdvanceDay resets the daily counter when ts falls on a new UTC day.
func (c *Controller) AdvanceDay(state *models.RunState, ts int64) {
	day := models.DayIndex(ts)
	if day != state.LastTradeDay {
		state.LastTradeDay = day
		state.DailyTradeCount = 0
	}
}

// CanOpen evaluates the gate at ts.
func (c *Controller) CanOpen(state models.RunState, ts int64) Rejection {
	if state.DailyTradeCount >= c.cfg.MaxDailyTrades {
		return RejectDailyLimit
	}
	if ts < state.CooldownUntil {
		return RejectCooldown
	}
	if c.cfg.SoftDrawdown > 0 && state.Drawdown() > c.cfg.SoftDrawdown {
		return RejectDrawdown
	}
	return Allowed
}

// RecordOpen counts an open against the daily cap.
func (c *Controller) RecordOpen(state *models.RunState) {
	state.DailyTradeCount++
}

// RecordClose updates streaks and the cooldown once a position is fully closed.
// pnl is the total realized on the position. It reports whether the loss streak
// escalated into the extended cooldown.
func (c *Controller) RecordClose(state *models.RunState, pnl float64, exitTime int64) bool {
	cooldown := c.cfg.CooldownAfterLoss
	if pnl > 0 {
		state.ConsecutiveWins++
		state.ConsecutiveLosses = 0
		cooldown = c.cfg.CooldownAfterWin
	} else {
		state.ConsecutiveLosses++
		state.ConsecutiveWins = 0
	}

	escalated := false
	if c.cfg.MaxConsecutiveLosses > 0 && state.ConsecutiveLosses >= c.cfg.MaxConsecutiveLosses {
		cooldown = c.cfg.ExtendedCooldown
		state.ConsecutiveLosses = 0
		escalated = true
	}

	state.CooldownUntil = exitTime + cooldown.Milliseconds()
	return escalated
}

// UpdateEquity refreshes peak capital and the running max drawdown.
func (c *Controller) UpdateEquity(state *models.RunState) {
	if state.CurrentCapital > state.PeakCapital {
		state.PeakCapital = state.CurrentCapital
	}
	if dd := state.Drawdown(); dd > state.MaxDrawdown {
		state.MaxDrawdown = dd
	}
}

// ShouldHalt reports a hard drawdown breach.
func (c *Controller) ShouldHalt(state models.RunState) bool {
	return state.Drawdown() > c.cfg.MaxDrawdown
}

// CooldownRemaining is how long the gate stays closed after ts.
func (c *Controller) CooldownRemaining(state models.RunState, ts int64) time.Duration {
	if ts >= state.CooldownUntil {
		return 0
	}
	return time.Duration(state.CooldownUntil-ts) * time.Millisecond
}
