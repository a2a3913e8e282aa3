// Package analytics derives the performance metrics shown on the analytics
// page from a user's full session/trade snapshot. Compute is pure and
// total: it never fails, and an empty trade list yields the neutral result.
package analytics

import (
	"fmt"
	"math"

	"trade-journal/internal/store"
)

// TradeDistribution breaks trades down by entry side
type TradeDistribution struct {
	LongTrades      int     `json:"long_trades"`
	ShortTrades     int     `json:"short_trades"`
	LongPercentage  float64 `json:"long_percentage"`
	ShortPercentage float64 `json:"short_percentage"`
}

// Drawdown is the worst decline from a running peak of cumulative P/L
type Drawdown struct {
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// Streaks holds the best winning and worst losing runs
type Streaks struct {
	BestStreak  int `json:"best_streak"`
	WorstStreak int `json:"worst_streak"` // absolute value of the worst losing run
}

// TimeAnalysis summarises holding periods
type TimeAnalysis struct {
	AvgHoldTime float64 `json:"avg_hold_time"` // hours
	BestTime    string  `json:"best_time"`     // "<hours> hours" or "N/A"
}

// RiskMetrics summarises capital at risk per trade
type RiskMetrics struct {
	AvgRiskPerTrade float64 `json:"avg_risk_per_trade"`
	MaxRisk         float64 `json:"max_risk"`
}

// UserAnalytics is the derived value object. It is recomputed from the
// current snapshot on every load and never stored.
type UserAnalytics struct {
	SuccessRate        float64           `json:"success_rate"`
	OverallPerformance float64           `json:"overall_performance"`
	ProfitFactor       float64           `json:"profit_factor"`
	TradeDistribution  TradeDistribution `json:"trade_distribution"`
	AverageRMultiple   float64           `json:"average_r_multiple"`
	MaxDrawdown        Drawdown          `json:"max_drawdown"`
	Streaks            Streaks           `json:"streaks"`
	SharpeRatio        float64           `json:"sharpe_ratio"`
	TimeAnalysis       TimeAnalysis      `json:"time_analysis"`
	RiskMetrics        RiskMetrics       `json:"risk_metrics"`
	ActiveCapital      float64           `json:"active_capital"`
	RiskLevel          string            `json:"risk_level"`
}

// ProfitFactorCap is reported when there are winners and no losers at all.
// It stands in for "undefined, extremely favorable" instead of dividing by
// zero.
const ProfitFactorCap = 999

// Compute aggregates metrics across every supplied session and trade. The
// trade slice is expected in storage order (creation-time descending,
// newest first); the drawdown and streak walks run in that order.
func Compute(sessions []*store.TradingSession, trades []*store.Trade) *UserAnalytics {
	out := &UserAnalytics{
		TimeAnalysis: TimeAnalysis{BestTime: "N/A"},
		RiskLevel:    "Low",
	}

	for _, s := range sessions {
		out.ActiveCapital += s.CurrentCapital
	}

	total := len(trades)
	if total == 0 {
		return out
	}

	var (
		wins, longs, shorts int
		grossWin, grossLoss float64
		marginSum, maxRisk  float64
	)

	for _, t := range trades {
		out.OverallPerformance += t.ProfitLoss
		if t.ProfitLoss > 0 {
			wins++
			grossWin += t.ProfitLoss
		} else if t.ProfitLoss < 0 {
			grossLoss += -t.ProfitLoss
		}

		switch t.EntrySide {
		case store.SideLong:
			longs++
		case store.SideShort:
			shorts++
		}

		marginSum += t.Margin
		if t.Margin > maxRisk {
			maxRisk = t.Margin
		}
	}

	out.SuccessRate = float64(wins) / float64(total) * 100

	switch {
	case grossLoss == 0 && grossWin > 0:
		out.ProfitFactor = ProfitFactorCap
	case grossLoss == 0:
		out.ProfitFactor = 0
	default:
		out.ProfitFactor = grossWin / grossLoss
	}

	out.TradeDistribution = TradeDistribution{
		LongTrades:      longs,
		ShortTrades:     shorts,
		LongPercentage:  float64(longs) / float64(total) * 100,
		ShortPercentage: float64(shorts) / float64(total) * 100,
	}

	out.AverageRMultiple = averageRMultiple(trades)
	out.MaxDrawdown = maxDrawdown(trades)
	out.Streaks = streaks(trades)
	out.SharpeRatio = sharpeRatio(trades)
	out.TimeAnalysis = timeAnalysis(trades)
	out.RiskMetrics = RiskMetrics{
		AvgRiskPerTrade: marginSum / float64(total),
		MaxRisk:         maxRisk,
	}
	out.RiskLevel = riskLevel(out.MaxDrawdown.Percentage, out.AverageRMultiple)

	return out
}

// averageRMultiple averages profit_loss over the initial risk distance.
// Trades missing a stop-loss or open price, or whose computed risk is not
// positive, are excluded entirely; they contribute neither to the sum nor
// to the count.
func averageRMultiple(trades []*store.Trade) float64 {
	var sum float64
	var n int

	for _, t := range trades {
		sl := t.StopLoss()
		open := t.OpenPrice()
		if sl == nil || open == nil {
			continue
		}

		var risk float64
		if t.EntrySide == store.SideShort {
			risk = *sl - *open
		} else {
			risk = *open - *sl
		}
		if risk <= 0 {
			continue
		}

		sum += t.ProfitLoss / risk
		n++
	}

	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// maxDrawdown walks the trades in the order given, tracking a running
// cumulative P/L and its monotone peak (starting at 0).
func maxDrawdown(trades []*store.Trade) Drawdown {
	var runningTotal, peak, maxDD float64

	for _, t := range trades {
		runningTotal += t.ProfitLoss
		if runningTotal > peak {
			peak = runningTotal
		}
		if dd := peak - runningTotal; dd > maxDD {
			maxDD = dd
		}
	}

	dd := Drawdown{Amount: maxDD}
	if peak > 0 {
		dd.Percentage = maxDD / peak * 100
	}
	return dd
}

// streaks walks the trades in the order given. The losing tracker resets
// to zero on every winning trade; the winning counter restarts at 1 after
// any negative state. The two branches are intentionally not symmetric.
func streaks(trades []*store.Trade) Streaks {
	var currentStreak, tempWorstStreak, best, worst int

	for _, t := range trades {
		if t.ProfitLoss > 0 {
			if currentStreak < 0 {
				currentStreak = 1
			} else {
				currentStreak++
			}
			if currentStreak > best {
				best = currentStreak
			}
			tempWorstStreak = 0
		} else {
			if currentStreak > 0 {
				currentStreak = -1
			} else {
				currentStreak--
			}
			if tempWorstStreak > 0 {
				tempWorstStreak = -1
			} else {
				tempWorstStreak--
			}
			if tempWorstStreak < worst {
				worst = tempWorstStreak
			}
		}
	}

	return Streaks{BestStreak: best, WorstStreak: -worst}
}

// sharpeRatio treats each trade's stored ROI percentage as one return
// sample: mean over population standard deviation, no risk-free rate, no
// annualization.
func sharpeRatio(trades []*store.Trade) float64 {
	n := float64(len(trades))

	var sum float64
	for _, t := range trades {
		sum += t.ROI
	}
	mean := sum / n

	var variance float64
	for _, t := range trades {
		d := t.ROI - mean
		variance += d * d
	}
	stdDev := math.Sqrt(variance / n)

	if stdDev == 0 {
		return 0
	}
	return mean / stdDev
}

func timeAnalysis(trades []*store.Trade) TimeAnalysis {
	var hours float64
	var n int

	for _, t := range trades {
		open := t.OpenTime()
		closed := t.CloseTime()
		if open == nil || closed == nil {
			continue
		}
		hours += closed.Sub(*open).Hours()
		n++
	}

	if n == 0 {
		return TimeAnalysis{BestTime: "N/A"}
	}
	avg := hours / float64(n)
	return TimeAnalysis{
		AvgHoldTime: avg,
		BestTime:    fmt.Sprintf("%.1f hours", avg),
	}
}

// riskLevel categorizes the account; the High check runs first.
func riskLevel(drawdownPct, avgR float64) string {
	switch {
	case drawdownPct > 20 || avgR < -1:
		return "High"
	case drawdownPct > 10 || avgR < 0:
		return "Moderate"
	default:
		return "Low"
	}
}
