// Package analyzer computes performance metrics from a simulator Result:
// P&L extraction, return-period derivation, a risk-metric pass, and a
// trade-analysis pass, in that order.
package analyzer

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/eddiefleurent/gridiron/internal/models"
)

const tradingDaysPerYear = 252

// MonthlyReturn is one calendar month's return, keyed by its month-end date
// ("ME" resampling; "M" is deprecated per the source material's own note).
type MonthlyReturn struct {
	MonthEnd time.Time
	Return   float64
}

// GreekSnapshot is the portfolio's aggregate Greeks as of one equity-curve
// date: sum of per-position Greeks × position sign × contracts × 100.
type GreekSnapshot struct {
	Date  time.Time
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
}

// Metrics is the full set of performance statistics computed from one
// backtest run.
type Metrics struct {
	TotalReturn     float64
	CAGR            float64
	MaxDrawdown     float64       // fraction of peak, positive
	MaxDrawdownDays int
	Sharpe          float64
	Sortino         float64
	Calmar          float64

	WinRate      float64
	AvgWin       float64
	AvgLoss      float64 // positive magnitude
	ProfitFactor float64
	PayoffRatio  float64

	TotalTrades   int
	WinningTrades int
	LosingTrades  int

	MonthlyReturns []MonthlyReturn
}

// Analyze computes Metrics from a closed trade list and the daily equity
// curve. The equity curve must be non-empty (an empty trade list is
// accepted) and sorted ascending by date (the simulator always produces it
// that way).
func Analyze(trades []models.TradeRecord, equityCurve []models.EquityPoint) (Metrics, error) {
	if len(equityCurve) == 0 {
		return Metrics{}, fmt.Errorf("analyzer: empty equity curve")
	}

	var m Metrics
	m.TotalTrades = len(trades)

	returns := dailyReturns(equityCurve)
	computeReturnMetrics(equityCurve, &m)
	computeRiskMetrics(returns, &m)
	computeTradeAnalysis(trades, &m)
	m.MonthlyReturns = monthlyReturns(equityCurve)

	return m, nil
}

// dailyReturns derives simple day-over-day returns from the equity curve's
// TotalValue series.
func dailyReturns(equityCurve []models.EquityPoint) []float64 {
	if len(equityCurve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equityCurve)-1)
	for i := 1; i < len(equityCurve); i++ {
		prev := equityCurve[i-1].TotalValue
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (equityCurve[i].TotalValue-prev)/prev)
	}
	return out
}

// computeReturnMetrics fills TotalReturn, CAGR, and the drawdown pair using
// the actual backtest span (spec: "CAGR using actual backtest span in years").
func computeReturnMetrics(equityCurve []models.EquityPoint, m *Metrics) {
	first := equityCurve[0]
	last := equityCurve[len(equityCurve)-1]

	if first.TotalValue > 0 {
		m.TotalReturn = (last.TotalValue - first.TotalValue) / first.TotalValue
	}

	years := last.Date.Sub(first.Date).Hours() / 24 / 365.25
	if years > 0 && 1+m.TotalReturn > 0 {
		m.CAGR = math.Pow(1+m.TotalReturn, 1/years) - 1
	}

	peak := first.TotalValue
	maxDD := 0.0
	ddStart := first.Date
	maxDDDays := 0
	inDrawdown := false
	var drawdownStart time.Time

	for _, pt := range equityCurve {
		if pt.TotalValue >= peak {
			peak = pt.TotalValue
			inDrawdown = false
			continue
		}
		if !inDrawdown {
			inDrawdown = true
			drawdownStart = pt.Date
		}
		dd := (peak - pt.TotalValue) / peak
		if dd > maxDD {
			maxDD = dd
			ddStart = drawdownStart
			maxDDDays = int(pt.Date.Sub(ddStart).Hours() / 24)
		}
	}
	m.MaxDrawdown = maxDD
	m.MaxDrawdownDays = maxDDDays
}

// computeRiskMetrics fills Sharpe, Sortino, and Calmar from daily returns.
func computeRiskMetrics(returns []float64, m *Metrics) {
	if len(returns) < 2 {
		return
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	downsideVariance := 0.0
	downsideN := 0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
		if r < 0 {
			downsideVariance += r * r
			downsideN++
		}
	}
	variance /= float64(len(returns) - 1)
	stdDev := math.Sqrt(variance)
	annualizedStdDev := stdDev * math.Sqrt(float64(tradingDaysPerYear))

	if annualizedStdDev > 0 {
		annualizedMeanReturn := mean * float64(tradingDaysPerYear)
		m.Sharpe = annualizedMeanReturn / annualizedStdDev
	}

	if downsideN > 0 {
		downsideStdDev := math.Sqrt(downsideVariance/float64(downsideN)) * math.Sqrt(float64(tradingDaysPerYear))
		if downsideStdDev > 0 {
			annualizedMeanReturn := mean * float64(tradingDaysPerYear)
			m.Sortino = annualizedMeanReturn / downsideStdDev
		}
	}

	if m.MaxDrawdown > 0 {
		m.Calmar = m.CAGR / m.MaxDrawdown
	}
}

// computeTradeAnalysis fills win rate, average win/loss, profit factor, and
// payoff ratio from each trade's realized NetPnL — no heuristic placeholder,
// every trade's actual outcome is classified.
func computeTradeAnalysis(trades []models.TradeRecord, m *Metrics) {
	grossProfit, grossLoss := 0.0, 0.0

	for _, t := range trades {
		switch {
		case t.NetPnL > 0:
			m.WinningTrades++
			grossProfit += t.NetPnL
		case t.NetPnL < 0:
			m.LosingTrades++
			grossLoss += -t.NetPnL
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	}
	if m.WinningTrades > 0 {
		m.AvgWin = grossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = grossLoss / float64(m.LosingTrades)
	}
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	}
	if m.AvgLoss > 0 {
		m.PayoffRatio = m.AvgWin / m.AvgLoss
	}
}

// monthlyReturns resamples the equity curve to month-end returns.
func monthlyReturns(equityCurve []models.EquityPoint) []MonthlyReturn {
	type bucket struct {
		first, last float64
		monthEnd    time.Time
	}
	buckets := make(map[string]*bucket)
	var order []string

	for _, pt := range equityCurve {
		key := pt.Date.Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{first: pt.TotalValue}
			buckets[key] = b
			order = append(order, key)
		}
		b.last = pt.TotalValue
		b.monthEnd = pt.Date
	}
	sort.Strings(order)

	out := make([]MonthlyReturn, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		var ret float64
		if b.first > 0 {
			ret = (b.last - b.first) / b.first
		}
		out = append(out, MonthlyReturn{MonthEnd: b.monthEnd, Return: ret})
	}
	return out
}

// PortfolioGreeks aggregates per-leg Greeks across every position open as
// of asOf, scaled by position sign, contracts, and the 100-share multiplier.
func PortfolioGreeks(positions []*models.Position, quotes func(leg models.Leg) (delta, gamma, theta, vega float64, ok bool), asOf time.Time) GreekSnapshot {
	snap := GreekSnapshot{Date: asOf}
	for _, pos := range positions {
		for _, leg := range pos.Legs {
			delta, gamma, theta, vega, ok := quotes(leg)
			if !ok {
				continue
			}
			scale := float64(leg.Position) * float64(pos.Contracts) * 100
			snap.Delta += delta * scale
			snap.Gamma += gamma * scale
			snap.Theta += theta * scale
			snap.Vega += vega * scale
		}
	}
	return snap
}
