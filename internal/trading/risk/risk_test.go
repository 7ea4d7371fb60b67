package risk

import (
	"testing"
	"time"

	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/models"
	"github.com/stretchr/testify/assert"
)

const day = int64(86_400_000)

func TestLeverageClamp(t *testing.T) {
	cfg := config.Default().Risk

	tests := []struct {
		name       string
		confidence float64
		expected   float64
	}{
		{"scaled", 0.7, 3 * 1.2},
		{"floored", 0, 1.5},
		{"capped", 0.95, 4.35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Leverage(cfg, tt.confidence), 1e-12)
		})
	}

	cfg.MaxLeverage = 2
	assert.Equal(t, 2.0, Leverage(cfg, 0.9))
	cfg.MinLeverage = 5
	cfg.MaxLeverage = 5
	assert.Equal(t, 5.0, Leverage(cfg, 0.1))
}

func TestPositionSizeStreaks(t *testing.T) {
	cfg := config.Default().Risk
	state := models.NewRunState(1000, 0.6)

	assert.InDelta(t, 0.1*1.0, PositionSize(cfg, 0.5, state), 1e-12)

	state.ConsecutiveLosses = 2
	assert.InDelta(t, 0.05, PositionSize(cfg, 0.5, state), 1e-12)

	state.ConsecutiveLosses = 3
	assert.Equal(t, cfg.MinPositionSize, PositionSize(cfg, 0.1, state), "floored at min")

	state.ConsecutiveLosses = 0
	state.ConsecutiveWins = 3
	assert.InDelta(t, 0.12, PositionSize(cfg, 0.5, state), 1e-12)

	cfg.MaxPositionSize = 0.11
	assert.Equal(t, 0.11, PositionSize(cfg, 0.5, state))
}

func TestStopDistance(t *testing.T) {
	cfg := config.Default().Position
	candles := make([]models.Candle, 20)
	for i := range candles {
		candles[i] = models.Candle{Timestamp: int64(i), Open: 100, High: 102, Low: 98, Close: 100, Volume: 1}
	}

	// ATR 4 on price 100 with multiplier 1.5 -> 6%, capped at 3%
	assert.InDelta(t, 0.03, StopDistance(cfg, candles, 19), 1e-12)

	cfg.MaxStopLoss = 0
	assert.InDelta(t, 0.06, StopDistance(cfg, candles, 19), 1e-12)

	cfg.UseATRStop = false
	assert.Equal(t, cfg.StopLoss, StopDistance(cfg, candles, 19))

	// quiet market never tightens below the base stop
	cfg.UseATRStop = true
	for i := range candles {
		candles[i].High, candles[i].Low = 100.1, 99.9
	}
	assert.Equal(t, cfg.StopLoss, StopDistance(cfg, candles, 19))
}

func TestGateDailyLimitResetsOnNewDay(t *testing.T) {
	cfg := config.Default().Risk
	cfg.MaxDailyTrades = 2
	c := NewController(cfg)
	state := models.NewRunState(1000, 0.6)

	c.AdvanceDay(&state, 10)
	c.RecordOpen(&state)
	assert.Equal(t, Allowed, c.CanOpen(state, 20))
	c.RecordOpen(&state)
	assert.Equal(t, RejectDailyLimit, c.CanOpen(state, 30))

	c.AdvanceDay(&state, day+5)
	assert.Equal(t, 0, state.DailyTradeCount)
	assert.Equal(t, Allowed, c.CanOpen(state, day+5))
}

func TestCooldownIsAsymmetric(t *testing.T) {
	cfg := config.Default().Risk
	c := NewController(cfg)
	state := models.NewRunState(1000, 0.6)

	c.RecordClose(&state, 50, 0)
	assert.Equal(t, (15 * time.Minute).Milliseconds(), state.CooldownUntil)
	assert.Equal(t, RejectCooldown, c.CanOpen(state, 1000))
	assert.Equal(t, 14*time.Minute+59*time.Second, c.CooldownRemaining(state, 1000))
	assert.Equal(t, 1, state.ConsecutiveWins)

	c.RecordClose(&state, -50, 0)
	assert.Equal(t, (45 * time.Minute).Milliseconds(), state.CooldownUntil)
	assert.Equal(t, 0, state.ConsecutiveWins)
	assert.Equal(t, 1, state.ConsecutiveLosses)
	assert.Equal(t, Allowed, c.CanOpen(state, state.CooldownUntil))
}

func TestLossStreakEscalates(t *testing.T) {
	cfg := config.Default().Risk
	c := NewController(cfg)
	state := models.NewRunState(1000, 0.6)

	assert.False(t, c.RecordClose(&state, -1, 0))
	assert.False(t, c.RecordClose(&state, -1, 0))
	assert.True(t, c.RecordClose(&state, -1, 0))

	assert.Equal(t, 0, state.ConsecutiveLosses)
	assert.Equal(t, (4 * time.Hour).Milliseconds(), state.CooldownUntil)

	cfg.MaxConsecutiveLosses = 0
	c = NewController(cfg)
	for i := 0; i < 5; i++ {
		assert.False(t, c.RecordClose(&state, -1, 0))
	}
	assert.Equal(t, 5, state.ConsecutiveLosses)
}

func TestDrawdownGuards(t *testing.T) {
	cfg := config.Default().Risk
	c := NewController(cfg)
	state := models.NewRunState(1000, 0.6)

	state.CurrentCapital = 1200
	c.UpdateEquity(&state)
	assert.Equal(t, 1200.0, state.PeakCapital)

	state.CurrentCapital = 1090
	c.UpdateEquity(&state)
	assert.Equal(t, Allowed, c.CanOpen(state, 0))
	assert.False(t, c.ShouldHalt(state))

	// 12.5% below peak: soft limit blocks opens, hard limit not reached
	state.CurrentCapital = 1050
	c.UpdateEquity(&state)
	assert.Equal(t, RejectDrawdown, c.CanOpen(state, 0))
	assert.False(t, c.ShouldHalt(state))

	state.CurrentCapital = 1000
	c.UpdateEquity(&state)
	assert.True(t, c.ShouldHalt(state))
	assert.InDelta(t, 200.0/1200.0, state.MaxDrawdown, 1e-12)

	// recovery keeps the recorded max
	state.CurrentCapital = 1300
	c.UpdateEquity(&state)
	assert.InDelta(t, 200.0/1200.0, state.MaxDrawdown, 1e-12)
	assert.Equal(t, 0.0, state.Drawdown())
}
