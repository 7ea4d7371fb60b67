// Package scoring ranks backtest runs with multi-objective scores used to compare
// strategy presets. Higher scores are better; Loss is the negated score.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Alias1177/trapfade/models"
)

// noTradesLoss is returned when a run produced nothing to judge.
const noTradesLoss = 100.0

// Metrics is the run summary every objective consumes.
type Metrics struct {
	TradeCount     int
	WinRate        float64 // 0-1
	AvgProfit      float64 // average winning return rate
	AvgLoss        float64 // average losing return rate, sign ignored
	ProfitFactor   float64
	BacktestDays   float64
	MaxDrawdown    float64 // 0-1
	TotalReturnPct float64 // percent
}

// Objective scores a run.
type Objective func(m Metrics) float64

var objectives = map[string]Objective{
	"balanced":     Balanced,
	"balanced_v2":  BalancedV2,
	"conservative": Conservative,
}

// Names lists the registered objectives, sorted.
func Names() []string {
	names := make([]string, 0, len(objectives))
	for name := range objectives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName looks up a registered objective.
func ByName(name string) (Objective, error) {
	obj, ok := objectives[name]
	if !ok {
		return nil, fmt.Errorf("unknown objective %q, want one of %s", name, strings.Join(Names(), ", "))
	}
	return obj, nil
}

// Loss converts an objective into a lower-is-better value. Runs without trades get 100.
func Loss(obj Objective, m Metrics) float64 {
	if m.TradeCount == 0 {
		return noTradesLoss
	}
	return -obj(m)
}

// FromResults extracts Metrics from a finished run.
func FromResults(perf models.Performance) Metrics {
	return Metrics{
		TradeCount:     perf.TotalTrades,
		WinRate:        perf.WinRate,
		AvgProfit:      perf.AvgWinReturn,
		AvgLoss:        perf.AvgLossReturn,
		ProfitFactor:   perf.ProfitFactor,
		BacktestDays:   perf.BacktestDays,
		MaxDrawdown:    perf.MaxDrawdown,
		TotalReturnPct: perf.TotalReturn * 100,
	}
}

func (m Metrics) tradesPerWeek() float64 {
	return float64(m.TradeCount) / math.Max(m.BacktestDays, 1) * 7
}

func (m Metrics) profitFactor() float64 {
	if math.IsNaN(m.ProfitFactor) || math.IsInf(m.ProfitFactor, 0) {
		return 0
	}
	return m.ProfitFactor
}

func (m Metrics) rewardRisk() float64 {
	if m.AvgLoss == 0 {
		return 0
	}
	return math.Abs(m.AvgProfit / m.AvgLoss)
}

// Balanced looks for a compromise between win rate, reward/risk, profit factor,
// return and drawdown, scaled by a trade-frequency bell curve.
func Balanced(m Metrics) float64 {
	if m.TradeCount == 0 {
		return -noTradesLoss
	}

	winRate := m.WinRate * 100
	rr := m.rewardRisk()
	if m.AvgLoss == 0 && m.AvgProfit > 0 {
		// no losing trades at all
		rr = 10
	}
	pf := m.profitFactor()
	maxDD := math.Abs(m.MaxDrawdown) * 100
	perWeek := m.tradesPerWeek()

	winRateScore := math.Min(winRate/55, 1.5)
	rrScore := math.Min(rr/1.2, 2.0)
	pfScore := math.Min(pf/1.3, 2.0)
	returnScore := math.Max(0, math.Min(m.TotalReturnPct/10, 1.5))
	drawdownScore := math.Max(0, 1-maxDD/20)
	freqScore := balancedFrequency(perWeek)

	scores := []float64{winRateScore, rrScore, pfScore, drawdownScore, freqScore}
	stabilityBonus := math.Max(0, 1-populationStdDev(scores)) * 0.1

	samplePenalty := 1.0
	switch {
	case m.TradeCount < 10:
		samplePenalty = 0.5
	case m.TradeCount < 30:
		samplePenalty = 0.7 + float64(m.TradeCount-10)*0.015
	}

	weighted := winRateScore*0.20 +
		rrScore*0.25 +
		pfScore*0.25 +
		returnScore*0.15 +
		drawdownScore*0.15

	score := (weighted + stabilityBonus) * freqScore * samplePenalty

	// Eliminations
	switch {
	case pf <= 0 || m.TotalReturnPct <= -10:
		score = 0.1
	case winRate < 20:
		score = 0.2
	case maxDD > 50:
		score = 0.2
	}
	return score
}

// balancedFrequency peaks at 5-15 trades a week.
func balancedFrequency(perWeek float64) float64 {
	switch {
	case perWeek < 1:
		return perWeek
	case perWeek > 20:
		return math.Max(0.3, 1-(perWeek-20)/30)
	case perWeek >= 5 && perWeek <= 15:
		return 1.0
	case perWeek < 5:
		return 0.8 + (perWeek-1)*0.05
	default:
		return 1.0 - (perWeek-15)*0.04
	}
}

// BalancedV2 penalizes deviation from fixed targets more strictly than Balanced.
func BalancedV2(m Metrics) float64 {
	if m.TradeCount == 0 {
		return -noTradesLoss
	}

	const (
		targetWinRate = 50.0
		targetRR      = 1.5
		targetPF      = 1.3
		targetReturn  = 15.0
		targetDD      = 15.0
	)

	winRate := m.WinRate * 100
	maxDD := math.Abs(m.MaxDrawdown) * 100
	perWeek := m.tradesPerWeek()

	winRateDev := math.Abs(winRate-targetWinRate) / targetWinRate
	rrDev := math.Abs(m.rewardRisk()-targetRR) / targetRR
	pfDev := math.Abs(m.profitFactor()-targetPF) / targetPF
	ddPenalty := math.Max(0, (maxDD-targetDD)/targetDD)

	balance := 1 / (1 + winRateDev + rrDev + pfDev + ddPenalty)
	performance := math.Min(1, math.Max(0, m.TotalReturnPct/targetReturn))

	freqScore := 1.0
	if perWeek < 3 || perWeek > 12 {
		freqScore = math.Max(0.3, 1-math.Abs(perWeek-7.5)/15)
	}

	score := balance*0.6 + performance*0.3 + freqScore*0.1
	if m.TradeCount < 20 {
		score *= 0.5
	}
	return score
}

// Conservative weights drawdown control above everything else.
func Conservative(m Metrics) float64 {
	if m.TradeCount == 0 {
		return -noTradesLoss
	}

	winRate := m.WinRate * 100
	pf := m.profitFactor()
	maxDD := math.Abs(m.MaxDrawdown) * 100

	riskScore := math.Max(0, 1-maxDD/10)
	stabilityScore := math.Min(winRate/60, 1)
	profitScore := math.Min(pf/1.2, 1.5)
	returnScore := math.Max(0, math.Min(m.TotalReturnPct/8, 1))

	score := riskScore*0.40 +
		stabilityScore*0.30 +
		profitScore*0.20 +
		returnScore*0.10

	if maxDD > 20 || winRate < 40 || pf < 1.0 {
		score *= 0.3
	}
	return score
}

func populationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)))
}
