package models

import "time"

// Performance holds the aggregated statistics of a run
type Performance struct {
	InitialCapital   float64       `json:"initial_capital"`
	FinalCapital     float64       `json:"final_capital"`
	TotalReturn      float64       `json:"total_return"`
	AnnualizedReturn float64       `json:"annualized_return"`
	WinRate          float64       `json:"win_rate"`
	ProfitFactor     float64       `json:"profit_factor"`
	SharpeRatio      float64       `json:"sharpe_ratio"`
	MaxDrawdown      float64       `json:"max_drawdown"`
	TotalTrades      int           `json:"total_trades"`
	WinningTrades    int           `json:"winning_trades"`
	LosingTrades     int           `json:"losing_trades"`
	AvgWinReturn     float64       `json:"avg_win_return"`
	AvgLossReturn    float64       `json:"avg_loss_return"`
	AvgHoldingTime   time.Duration `json:"avg_holding_time"`
	BacktestDays     float64       `json:"backtest_days"`
	MaxConsecutive   struct {
		Wins   int `json:"wins"`
		Losses int `json:"losses"`
	} `json:"max_consecutive"`
	Trades []Trade `json:"trades"`
}

// StrategyStats is the per-strategy slice of the trade log.
type StrategyStats struct {
	Trades     int     `json:"trades"`
	Wins       int     `json:"wins"`
	WinRate    float64 `json:"win_rate"`
	TotalPnL   float64 `json:"total_pnl"`
	AvgReturn  float64 `json:"avg_return"`
	sumReturns float64
}

// Add folds a trade into the stats.
func (s *StrategyStats) Add(t Trade) {
	s.Trades++
	if t.IsWin() {
		s.Wins++
	}
	s.TotalPnL += t.PnL
	s.sumReturns += t.ReturnRate
	s.WinRate = float64(s.Wins) / float64(s.Trades)
	s.AvgReturn = s.sumReturns / float64(s.Trades)
}

// ManipulationEvent records a fired trap-pattern detection.
type ManipulationEvent struct {
	Timestamp   int64     `json:"timestamp"`
	Index       int       `json:"index"`
	Type        string    `json:"type"`
	Direction   Direction `json:"direction"`
	Confidence  float64   `json:"confidence"`
	Price       float64   `json:"price"`
	VolumeRatio float64   `json:"volume_ratio"`
	Severity    string    `json:"severity"` // LOW, MEDIUM, HIGH
}

// Results is the in-memory output of a backtest run
type Results struct {
	RunID              string                   `json:"run_id,omitempty"`
	Strategy           string                   `json:"strategy"`
	OverallPerformance Performance              `json:"overall_performance"`
	StrategyBreakdown  map[string]StrategyStats `json:"strategy_breakdown"`
	ManipulationEvents []ManipulationEvent      `json:"manipulation_events"`
	EquityCurve        []EquityPoint            `json:"equity_curve"`
	Halted             bool                     `json:"halted"`
	HaltReason         string                   `json:"halt_reason,omitempty"`
	FinalState         RunState                 `json:"final_state"`
}
