package backtest

import (
	"math"
	"time"

	"github.com/Alias1177/trapfade/models"
)

// periodsPerYear annualizes the Sharpe ratio over equity samples.
const periodsPerYear = 252.0

// CalculatePerformance aggregates the trade log and equity samples of a run.
// Every ratio degrades to 0 instead of NaN or Inf.
func CalculatePerformance(trades []models.Trade, equity []models.EquityPoint, initialCapital, finalCapital, days float64) models.Performance {
	perf := models.Performance{
		InitialCapital: initialCapital,
		FinalCapital:   finalCapital,
		TotalTrades:    len(trades),
		BacktestDays:   days,
		Trades:         trades,
	}
	if perf.Trades == nil {
		perf.Trades = []models.Trade{}
	}

	if initialCapital > 0 {
		perf.TotalReturn = finite((finalCapital - initialCapital) / initialCapital)
	}
	if days > 0 && 1+perf.TotalReturn > 0 {
		perf.AnnualizedReturn = finite(math.Pow(1+perf.TotalReturn, 365/days) - 1)
	}

	var winReturns, lossReturns []float64
	var holding time.Duration
	var winStreak, lossStreak int
	for _, t := range trades {
		holding += t.HoldingTime
		if t.IsWin() {
			perf.WinningTrades++
			winReturns = append(winReturns, t.ReturnRate)
			winStreak++
			lossStreak = 0
		} else {
			perf.LosingTrades++
			lossReturns = append(lossReturns, math.Abs(t.ReturnRate))
			lossStreak++
			winStreak = 0
		}

		// Update consecutive counters
		if winStreak > perf.MaxConsecutive.Wins {
			perf.MaxConsecutive.Wins = winStreak
		}
		if lossStreak > perf.MaxConsecutive.Losses {
			perf.MaxConsecutive.Losses = lossStreak
		}
	}

	if len(trades) > 0 {
		perf.WinRate = float64(perf.WinningTrades) / float64(len(trades))
		perf.AvgHoldingTime = holding / time.Duration(len(trades))
	}
	perf.AvgWinReturn = mean(winReturns)
	perf.AvgLossReturn = mean(lossReturns)
	if perf.AvgLossReturn > 0 {
		perf.ProfitFactor = finite(perf.AvgWinReturn / perf.AvgLossReturn)
	}

	perf.MaxDrawdown = MaxDrawdown(equity)
	perf.SharpeRatio = SharpeRatio(equity)

	return perf
}

// MaxDrawdown is the largest (peak-capital)/peak over the samples.
func MaxDrawdown(equity []models.EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}
	maxDrawdown := 0.0
	peak := equity[0].Capital
	for _, p := range equity {
		if p.Capital > peak {
			peak = p.Capital
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p.Capital) / peak; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// SharpeRatio annualizes mean/stdev of sample-to-sample equity returns.
func SharpeRatio(equity []models.EquityPoint) float64 {
	var returns []float64
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Capital
		if prev == 0 {
			continue
		}
		returns = append(returns, (equity[i].Capital-prev)/prev)
	}

	m := mean(returns)
	sd := stdDev(returns, m)
	if sd == 0 {
		return 0
	}
	return finite(m / sd * math.Sqrt(periodsPerYear))
}

// Helper functions
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func stdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}

	return math.Sqrt(sumSquaredDiff / float64(len(values)-1))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
