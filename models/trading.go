package models

import "time"

// ExitReason tags why a trade record was produced.
type ExitReason string

const (
	ReasonTakeProfit        ExitReason = "TAKE_PROFIT"
	ReasonPartialTakeProfit ExitReason = "PARTIAL_TAKE_PROFIT"
	ReasonTrailingStop      ExitReason = "TRAILING_STOP"
	ReasonStopLoss          ExitReason = "STOP_LOSS"
	ReasonTimeLimit         ExitReason = "TIME_LIMIT"
	ReasonForceClose        ExitReason = "FORCE_CLOSE"
)

// TakeProfitLevel is one rung of a tiered exit. Fraction is relative to the original size.
type TakeProfitLevel struct {
	Price    float64 `json:"price"`
	Fraction float64 `json:"fraction"`
	Hit      bool    `json:"hit"`
}

// Position is the single open position owned by the backtest loop.
type Position struct {
	Side              Direction         `json:"side"`
	EntryPrice        float64           `json:"entry_price"`
	EntryTime         int64             `json:"entry_time"`
	EntryIndex        int               `json:"entry_index"`
	TradeAmount       float64           `json:"trade_amount"` // margin committed, capital * positionSize
	Leverage          float64           `json:"leverage"`
	PositionSize      float64           `json:"position_size"` // fraction of capital
	StopLossPrice     float64           `json:"stop_loss_price"`
	TakeProfitLevels  []TakeProfitLevel `json:"take_profit_levels"`
	TrailingStopPrice float64           `json:"trailing_stop_price"`
	TrailingActive    bool              `json:"trailing_active"`
	Confidence        float64           `json:"confidence"`
	Strategy          string            `json:"strategy"`
	MaxHoldingTime    time.Duration     `json:"max_holding_time"`
	RemainingSize     float64           `json:"remaining_size"` // (0,1], 0 once fully closed
	Fee               float64           `json:"fee"`
}

// IsOpen reports whether any size is left.
func (p *Position) IsOpen() bool {
	return p != nil && p.RemainingSize > 0
}

// UnrealizedReturn is the directional price change at price, before leverage.
func (p *Position) UnrealizedReturn(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * p.Side.Sign()
}

// Trade is an immutable record of a full or partial close.
type Trade struct {
	Side        Direction     `json:"side"`
	EntryPrice  float64       `json:"entry_price"`
	ExitPrice   float64       `json:"exit_price"`
	PnL         float64       `json:"pnl"`
	ReturnRate  float64       `json:"return_rate"`
	Reason      ExitReason    `json:"reason"`
	Strategy    string        `json:"strategy"`
	HoldingTime time.Duration `json:"holding_time"`
	EntryTime   int64         `json:"entry_time"`
	ExitTime    int64         `json:"exit_time"`
	EntryIndex  int           `json:"entry_index"`
	ExitIndex   int           `json:"exit_index"`
	Leverage    float64       `json:"leverage"`
	Fee         float64       `json:"fee"`
	Amount      float64       `json:"amount"`   // effective trade amount for this close
	Fraction    float64       `json:"fraction"` // share of the original size closed
	Partial     bool          `json:"partial"`
	Confidence  float64       `json:"confidence"`
}

// IsWin reports a strictly positive pnl.
func (t Trade) IsWin() bool {
	return t.PnL > 0
}

// EquityPoint is a periodic capital sample.
type EquityPoint struct {
	Timestamp int64   `json:"timestamp"`
	Capital   float64 `json:"capital"`
	Drawdown  float64 `json:"drawdown"`
}

// RunState is the mutable bookkeeping of one backtest run. The loop is its only writer.
type RunState struct {
	CurrentCapital    float64 `json:"current_capital"`
	PeakCapital       float64 `json:"peak_capital"`
	MaxDrawdown       float64 `json:"max_drawdown"`
	DailyTradeCount   int     `json:"daily_trade_count"`
	LastTradeDay      int64   `json:"last_trade_day"`
	CooldownUntil     int64   `json:"cooldown_until"`
	ConsecutiveWins   int     `json:"consecutive_wins"`
	ConsecutiveLosses int     `json:"consecutive_losses"`

	// Self-tuning outputs, replaced wholesale by composer.Adapt
	MinConfidence       float64            `json:"min_confidence"`
	StrategyMultipliers map[string]float64 `json:"strategy_multipliers,omitempty"`
	StrategyCorrelation map[string]float64 `json:"strategy_correlation,omitempty"`
}

// NewRunState initializes the state for a run starting with capital.
func NewRunState(capital, minConfidence float64) RunState {
	return RunState{
		CurrentCapital:      capital,
		PeakCapital:         capital,
		LastTradeDay:        -1,
		MinConfidence:       minConfidence,
		StrategyMultipliers: map[string]float64{},
		StrategyCorrelation: map[string]float64{},
	}
}

// Drawdown is the current fractional decline from peak.
func (s RunState) Drawdown() float64 {
	if s.PeakCapital <= 0 {
		return 0
	}
	return (s.PeakCapital - s.CurrentCapital) / s.PeakCapital
}

// Clone returns a deep copy.
func (s RunState) Clone() RunState {
	out := s
	out.StrategyMultipliers = make(map[string]float64, len(s.StrategyMultipliers))
	for k, v := range s.StrategyMultipliers {
		out.StrategyMultipliers[k] = v
	}
	out.StrategyCorrelation = make(map[string]float64, len(s.StrategyCorrelation))
	for k, v := range s.StrategyCorrelation {
		out.StrategyCorrelation[k] = v
	}
	return out
}
