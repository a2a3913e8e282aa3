package analytics

import (
	"math"
	"testing"
	"time"

	"trade-journal/internal/store"
)

func fptr(v float64) *float64 { return &v }

func tptr(t time.Time) *time.Time { return &t }

// trade builds a forex-style trade with the given P/L in stored order
func trade(pl float64) *store.Trade {
	return &store.Trade{
		EntrySide:  store.SideLong,
		ProfitLoss: pl,
		Forex:      &store.ForexLeg{},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCompute_EmptyTradeList(t *testing.T) {
	result := Compute(nil, nil)

	if result.SuccessRate != 0 {
		t.Errorf("expected successRate 0, got %f", result.SuccessRate)
	}
	if result.ProfitFactor != 0 {
		t.Errorf("expected profitFactor 0, got %f", result.ProfitFactor)
	}
	if result.RiskLevel != "Low" {
		t.Errorf("expected riskLevel Low, got %s", result.RiskLevel)
	}
	if result.TimeAnalysis.BestTime != "N/A" {
		t.Errorf("expected bestTime N/A, got %s", result.TimeAnalysis.BestTime)
	}
	if result.Streaks.BestStreak != 0 || result.Streaks.WorstStreak != 0 {
		t.Errorf("expected zero streaks, got %+v", result.Streaks)
	}
}

func TestCompute_WinRateZeroPLCountsInDenominator(t *testing.T) {
	trades := []*store.Trade{trade(100), trade(-50), trade(0), trade(30)}

	result := Compute(nil, trades)

	if !almostEqual(result.SuccessRate, 50) {
		t.Errorf("expected successRate 50, got %f", result.SuccessRate)
	}
	if !almostEqual(result.OverallPerformance, 80) {
		t.Errorf("expected overallPerformance 80, got %f", result.OverallPerformance)
	}
}

func TestCompute_ProfitFactor(t *testing.T) {
	tests := []struct {
		name string
		pls  []float64
		want float64
	}{
		{"no losers hits sentinel", []float64{100, 50}, 999},
		{"only losers", []float64{-100}, 0},
		{"no trades at all handled by empty path", nil, 0},
		{"mixed", []float64{200, -100}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var trades []*store.Trade
			for _, pl := range tt.pls {
				trades = append(trades, trade(pl))
			}
			result := Compute(nil, trades)
			if !almostEqual(result.ProfitFactor, tt.want) {
				t.Errorf("expected profitFactor %f, got %f", tt.want, result.ProfitFactor)
			}
		})
	}
}

func TestCompute_MaxDrawdown(t *testing.T) {
	// Stored order [+100, -150, +20]: running totals [100, -50, -30],
	// peak stays 100, drawdowns [0, 150, 130]
	trades := []*store.Trade{trade(100), trade(-150), trade(20)}

	result := Compute(nil, trades)

	if !almostEqual(result.MaxDrawdown.Amount, 150) {
		t.Errorf("expected drawdown amount 150, got %f", result.MaxDrawdown.Amount)
	}
	if !almostEqual(result.MaxDrawdown.Percentage, 150) {
		t.Errorf("expected drawdown percentage 150, got %f", result.MaxDrawdown.Percentage)
	}
}

func TestCompute_MaxDrawdownNeverPositivePeak(t *testing.T) {
	trades := []*store.Trade{trade(-10), trade(-20)}

	result := Compute(nil, trades)

	if !almostEqual(result.MaxDrawdown.Amount, 30) {
		t.Errorf("expected drawdown amount 30, got %f", result.MaxDrawdown.Amount)
	}
	// peak never went positive, percentage guards to 0
	if result.MaxDrawdown.Percentage != 0 {
		t.Errorf("expected drawdown percentage 0, got %f", result.MaxDrawdown.Percentage)
	}
}

func TestCompute_RMultipleExclusions(t *testing.T) {
	// Long with sl above open computes non-positive risk: excluded
	// entirely, not counted as zero
	invalid := &store.Trade{
		EntrySide:  store.SideLong,
		ProfitLoss: 50,
		Forex:      &store.ForexLeg{OpenPrice: fptr(1.1000), SL: fptr(1.1010)},
	}
	// Long risk 0.0010, pl 2 -> R = 2000
	valid := &store.Trade{
		EntrySide:  store.SideLong,
		ProfitLoss: 2,
		Forex:      &store.ForexLeg{OpenPrice: fptr(1.1000), SL: fptr(1.0990)},
	}
	// Missing stop loss: excluded
	missing := &store.Trade{
		EntrySide:  store.SideLong,
		ProfitLoss: 10,
		Forex:      &store.ForexLeg{OpenPrice: fptr(1.1000)},
	}

	result := Compute(nil, []*store.Trade{invalid, valid, missing})

	if !almostEqual(result.AverageRMultiple, 2000) {
		t.Errorf("expected averageRMultiple 2000, got %f", result.AverageRMultiple)
	}
}

func TestCompute_RMultipleShortSide(t *testing.T) {
	short := &store.Trade{
		EntrySide:  store.SideShort,
		ProfitLoss: 30,
		Forex:      &store.ForexLeg{OpenPrice: fptr(100), SL: fptr(110)},
	}

	result := Compute(nil, []*store.Trade{short})

	if !almostEqual(result.AverageRMultiple, 3) {
		t.Errorf("expected averageRMultiple 3, got %f", result.AverageRMultiple)
	}
}

func TestCompute_StreakAsymmetry(t *testing.T) {
	// [win, win, loss, win]: best run is 2; the losing tracker only ever
	// reaches -1 before the next win resets it
	trades := []*store.Trade{trade(10), trade(10), trade(-5), trade(10)}

	result := Compute(nil, trades)

	if result.Streaks.BestStreak != 2 {
		t.Errorf("expected bestStreak 2, got %d", result.Streaks.BestStreak)
	}
	if result.Streaks.WorstStreak != 1 {
		t.Errorf("expected worstStreak 1, got %d", result.Streaks.WorstStreak)
	}
}

func TestCompute_StreakZeroPLBreaksWinRun(t *testing.T) {
	// zero P/L counts as non-winning for streak purposes
	trades := []*store.Trade{trade(10), trade(0), trade(-5), trade(-5)}

	result := Compute(nil, trades)

	if result.Streaks.BestStreak != 1 {
		t.Errorf("expected bestStreak 1, got %d", result.Streaks.BestStreak)
	}
	if result.Streaks.WorstStreak != 3 {
		t.Errorf("expected worstStreak 3, got %d", result.Streaks.WorstStreak)
	}
}

func TestCompute_SharpeRatioUsesStoredROI(t *testing.T) {
	mk := func(roi float64) *store.Trade {
		return &store.Trade{EntrySide: store.SideLong, ROI: roi, Forex: &store.ForexLeg{}}
	}
	trades := []*store.Trade{mk(10), mk(20)}

	result := Compute(nil, trades)

	// mean 15, population stddev 5 -> 3
	if !almostEqual(result.SharpeRatio, 3) {
		t.Errorf("expected sharpeRatio 3, got %f", result.SharpeRatio)
	}
}

func TestCompute_SharpeRatioZeroStdDev(t *testing.T) {
	mk := func(roi float64) *store.Trade {
		return &store.Trade{EntrySide: store.SideLong, ROI: roi, Forex: &store.ForexLeg{}}
	}
	trades := []*store.Trade{mk(10), mk(10)}

	result := Compute(nil, trades)

	if result.SharpeRatio != 0 {
		t.Errorf("expected sharpeRatio 0, got %f", result.SharpeRatio)
	}
}

func TestCompute_TimeAnalysis(t *testing.T) {
	open := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	withTimes := &store.Trade{
		EntrySide:  store.SideLong,
		ProfitLoss: 5,
		Forex: &store.ForexLeg{
			OpenTime:  tptr(open),
			CloseTime: tptr(open.Add(3 * time.Hour)),
		},
	}
	withoutTimes := trade(5)

	result := Compute(nil, []*store.Trade{withTimes, withoutTimes})

	if !almostEqual(result.TimeAnalysis.AvgHoldTime, 3) {
		t.Errorf("expected avgHoldTime 3, got %f", result.TimeAnalysis.AvgHoldTime)
	}
	if result.TimeAnalysis.BestTime != "3.0 hours" {
		t.Errorf("expected bestTime '3.0 hours', got %q", result.TimeAnalysis.BestTime)
	}
}

func TestCompute_TradeDistributionAndRisk(t *testing.T) {
	long := &store.Trade{EntrySide: store.SideLong, Margin: 100, Forex: &store.ForexLeg{}}
	short := &store.Trade{EntrySide: store.SideShort, Margin: 300, Forex: &store.ForexLeg{}}

	result := Compute(nil, []*store.Trade{long, short})

	if result.TradeDistribution.LongTrades != 1 || result.TradeDistribution.ShortTrades != 1 {
		t.Errorf("unexpected distribution: %+v", result.TradeDistribution)
	}
	if !almostEqual(result.TradeDistribution.LongPercentage, 50) {
		t.Errorf("expected longPercentage 50, got %f", result.TradeDistribution.LongPercentage)
	}
	if !almostEqual(result.RiskMetrics.AvgRiskPerTrade, 200) {
		t.Errorf("expected avgRiskPerTrade 200, got %f", result.RiskMetrics.AvgRiskPerTrade)
	}
	if !almostEqual(result.RiskMetrics.MaxRisk, 300) {
		t.Errorf("expected maxRisk 300, got %f", result.RiskMetrics.MaxRisk)
	}
}

func TestCompute_ActiveCapitalSumsSessions(t *testing.T) {
	sessions := []*store.TradingSession{
		{CurrentCapital: 1000},
		{CurrentCapital: 2500},
	}

	result := Compute(sessions, nil)

	if !almostEqual(result.ActiveCapital, 3500) {
		t.Errorf("expected activeCapital 3500, got %f", result.ActiveCapital)
	}
}

func TestCompute_RiskLevelOrdering(t *testing.T) {
	tests := []struct {
		name        string
		drawdownPct float64
		avgR        float64
		want        string
	}{
		{"deep drawdown", 25, 1, "High"},
		{"bad r multiple", 0, -1.5, "High"},
		{"moderate drawdown", 15, 1, "Moderate"},
		{"slightly negative r", 0, -0.5, "Moderate"},
		{"healthy", 5, 1, "Low"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := riskLevel(tt.drawdownPct, tt.avgR); got != tt.want {
				t.Errorf("riskLevel(%f, %f) = %s, want %s", tt.drawdownPct, tt.avgR, got, tt.want)
			}
		})
	}
}

func TestCompute_CryptoLegHoldTime(t *testing.T) {
	open := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	crypto := &store.Trade{
		EntrySide:  store.SideShort,
		ProfitLoss: 12,
		Crypto: &store.CryptoLeg{
			OpenTime:  tptr(open),
			CloseTime: tptr(open.Add(90 * time.Minute)),
		},
	}

	result := Compute(nil, []*store.Trade{crypto})

	if !almostEqual(result.TimeAnalysis.AvgHoldTime, 1.5) {
		t.Errorf("expected avgHoldTime 1.5, got %f", result.TimeAnalysis.AvgHoldTime)
	}
}
