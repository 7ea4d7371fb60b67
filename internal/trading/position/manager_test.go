package position

import (
	"testing"
	"time"

	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(hours int, open, high, low, close float64) models.Candle {
	return models.Candle{
		Timestamp: int64(hours) * time.Hour.Milliseconds(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    1000,
	}
}

func openAt(t *testing.T, m *Manager, side models.Direction, price float64) *models.Position {
	t.Helper()
	p := m.Open(Entry{
		Signal: models.Signal{
			DetectionResult: models.DetectionResult{Detected: true, Direction: side, Confidence: 0.7},
			Strategy:        "fake_breakout",
		},
		Candle:       bar(0, price, price, price, price),
		Index:        10,
		Capital:      10000,
		Leverage:     3,
		PositionSize: 0.1,
		StopDistance: 0.012,
	})
	require.True(t, p.IsOpen())
	return p
}

// expectedPnL recomputes pnl from the stored trade fields.
func expectedPnL(tr models.Trade) float64 {
	change := (tr.ExitPrice - tr.EntryPrice) / tr.EntryPrice * tr.Side.Sign()
	return tr.Amount * (change*tr.Leverage - 2*tr.Fee)
}

func TestOpenLevels(t *testing.T) {
	cfg := config.Default().Position
	m := NewManager(cfg, 0.0004, 0.001)

	long := openAt(t, m, models.Long, 2000)
	assert.InDelta(t, 2002, long.EntryPrice, 1e-9)
	assert.InDelta(t, 2002*0.988, long.StopLossPrice, 1e-9)
	assert.Equal(t, long.StopLossPrice, long.TrailingStopPrice)
	assert.InDelta(t, 2002*1.025, long.TakeProfitLevels[0].Price, 1e-9)
	assert.InDelta(t, 1000.0, long.TradeAmount, 1e-9)
	assert.Equal(t, 10, long.EntryIndex)
	assert.Equal(t, 1.0, long.RemainingSize)
	assert.Equal(t, 24*time.Hour, long.MaxHoldingTime)

	short := openAt(t, m, models.Short, 2000)
	assert.InDelta(t, 1998, short.EntryPrice, 1e-9)
	assert.Greater(t, short.StopLossPrice, short.EntryPrice)
	assert.Less(t, short.TakeProfitLevels[0].Price, short.EntryPrice)
}

func TestTakeProfitClosesFully(t *testing.T) {
	m := NewManager(config.Default().Position, 0.0004, 0)
	p := openAt(t, m, models.Long, 2000)

	trades := m.Tick(p, bar(1, 2010, 2051, 2005, 2040), 11)

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, models.ReasonTakeProfit, tr.Reason)
	assert.Greater(t, tr.PnL, 0.0)
	assert.InDelta(t, 2050, tr.ExitPrice, 1e-9)
	assert.InDelta(t, expectedPnL(tr), tr.PnL, 1e-9)
	assert.InDelta(t, 1000*(0.025*3-0.0008), tr.PnL, 1e-9)
	assert.False(t, tr.Partial)
	assert.Equal(t, time.Hour, tr.HoldingTime)
	assert.Equal(t, 11, tr.ExitIndex)
	assert.False(t, p.IsOpen())

	assert.Nil(t, m.Tick(p, bar(2, 2040, 2100, 2000, 2090), 12), "closed positions produce nothing")
}

func TestShortTakeProfit(t *testing.T) {
	m := NewManager(config.Default().Position, 0, 0)
	p := openAt(t, m, models.Short, 2000)

	trades := m.Tick(p, bar(1, 1990, 1995, 1949, 1960), 11)
	require.Len(t, trades, 1)
	assert.Equal(t, models.ReasonTakeProfit, trades[0].Reason)
	assert.InDelta(t, 1000*0.025*3, trades[0].PnL, 1e-9)
}

func TestTieredTakeProfits(t *testing.T) {
	cfg := config.Default().Position
	cfg.TrailingActivation = 0
	cfg.TakeProfits = []config.TakeProfitTier{
		{Distance: 0.015, Fraction: 0.3},
		{Distance: 0.03, Fraction: 0.3},
		{Distance: 0.05, Fraction: 0.4},
	}
	m := NewManager(cfg, 0, 0)
	p := openAt(t, m, models.Long, 100)

	first := m.Tick(p, bar(1, 100, 103.2, 99.5, 102), 11)
	require.Len(t, first, 2)
	for _, tr := range first {
		assert.Equal(t, models.ReasonPartialTakeProfit, tr.Reason)
		assert.True(t, tr.Partial)
		assert.InDelta(t, expectedPnL(tr), tr.PnL, 1e-9)
	}
	assert.InDelta(t, 0.4, p.RemainingSize, 1e-9)
	assert.True(t, p.IsOpen())

	// nothing new touched
	assert.Empty(t, m.Tick(p, bar(2, 102, 103.5, 101, 102.5), 12))
	assert.InDelta(t, 0.4, p.RemainingSize, 1e-9)

	last := m.Tick(p, bar(3, 102.5, 105.2, 102, 104), 13)
	require.Len(t, last, 1)
	assert.Equal(t, models.ReasonTakeProfit, last[0].Reason)
	assert.InDelta(t, 0.4, last[0].Fraction, 1e-9)
	assert.InDelta(t, 1000*0.4*0.05*3, last[0].PnL, 1e-9)
	assert.False(t, p.IsOpen())
}

func TestStopLoss(t *testing.T) {
	m := NewManager(config.Default().Position, 0.0004, 0)

	long := openAt(t, m, models.Long, 100)
	trades := m.Tick(long, bar(1, 100, 100.2, 98.5, 99), 11)
	require.Len(t, trades, 1)
	assert.Equal(t, models.ReasonStopLoss, trades[0].Reason)
	assert.InDelta(t, 98.8, trades[0].ExitPrice, 1e-9)
	assert.InDelta(t, 1000*(-0.012*3-0.0008), trades[0].PnL, 1e-9)

	short := openAt(t, m, models.Short, 100)
	trades = m.Tick(short, bar(1, 100, 101.5, 99.8, 101), 11)
	require.Len(t, trades, 1)
	assert.Equal(t, models.ReasonStopLoss, trades[0].Reason)
	assert.Less(t, trades[0].PnL, 0.0)
}

func TestTrailingStop(t *testing.T) {
	m := NewManager(config.Default().Position, 0, 0)
	p := openAt(t, m, models.Long, 100)

	assert.Empty(t, m.Tick(p, bar(1, 100, 102.2, 99.9, 102), 11))
	require.True(t, p.TrailingActive)
	assert.InDelta(t, 102*0.995, p.TrailingStopPrice, 1e-9)

	// a lower close never loosens the stop
	before := p.TrailingStopPrice
	assert.Empty(t, m.Tick(p, bar(2, 102, 102.3, 101.6, 101.7), 12))
	assert.Equal(t, before, p.TrailingStopPrice)

	trades := m.Tick(p, bar(3, 101.7, 101.8, 101.1, 101.2), 13)
	require.Len(t, trades, 1)
	assert.Equal(t, models.ReasonTrailingStop, trades[0].Reason)
	assert.InDelta(t, 101.2, trades[0].ExitPrice, 1e-9)
	assert.Greater(t, trades[0].PnL, 0.0)
}

func TestProportionalTrailing(t *testing.T) {
	cfg := config.Default().Position
	cfg.ProportionalTrailing = true
	cfg.TakeProfits = []config.TakeProfitTier{{Distance: 0.2, Fraction: 1}}
	m := NewManager(cfg, 0, 0)
	p := openAt(t, m, models.Long, 100)

	m.Tick(p, bar(1, 100, 110.5, 99.9, 110), 11)
	// profit 10%, give back 40% of it -> 4% below the close
	assert.InDelta(t, 110*0.96, p.TrailingStopPrice, 1e-9)
}

func TestTimeLimit(t *testing.T) {
	m := NewManager(config.Default().Position, 0, 0)
	p := openAt(t, m, models.Long, 100)

	assert.Empty(t, m.Tick(p, bar(23, 100, 100.4, 99.6, 100.1), 33))
	trades := m.Tick(p, bar(24, 100.1, 100.4, 99.6, 100.2), 34)
	require.Len(t, trades, 1)
	assert.Equal(t, models.ReasonTimeLimit, trades[0].Reason)
	assert.Equal(t, 24*time.Hour, trades[0].HoldingTime)
}

func TestMinHoldingSuppressesAllButStopLoss(t *testing.T) {
	cfg := config.Default().Position
	cfg.MinHoldingTime = 2 * time.Hour
	m := NewManager(cfg, 0, 0)

	p := openAt(t, m, models.Long, 100)
	assert.Empty(t, m.Tick(p, bar(1, 100, 103, 99.9, 102.5), 11), "take-profit held back")
	assert.False(t, p.TakeProfitLevels[0].Hit)

	trades := m.Tick(p, bar(2, 102.5, 103, 102, 102.8), 12)
	require.Len(t, trades, 1)
	assert.Equal(t, models.ReasonTakeProfit, trades[0].Reason)

	q := openAt(t, m, models.Long, 100)
	trades = m.Tick(q, bar(1, 100, 100.1, 98, 98.5), 11)
	require.Len(t, trades, 1)
	assert.Equal(t, models.ReasonStopLoss, trades[0].Reason)
}

func TestForceClose(t *testing.T) {
	m := NewManager(config.Default().Position, 0.0004, 0)
	p := openAt(t, m, models.Short, 100)

	tr := m.Close(p, bar(5, 99, 99.5, 98.5, 99), 15, 99, models.ReasonForceClose)
	assert.Equal(t, models.ReasonForceClose, tr.Reason)
	assert.Equal(t, 1.0, tr.Fraction)
	assert.InDelta(t, 1000*(0.01*3-0.0008), tr.PnL, 1e-9)
	assert.False(t, p.IsOpen())
}
