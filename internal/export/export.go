// Package export renders a session with its trades as structured JSON or
// as a spreadsheet, and re-imports the JSON form.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"trade-journal/internal/analytics"
	"trade-journal/internal/store"
)

// SessionExport is the structured export document. JSON import reproduces
// every field exactly; optional trade fields stay absent when they were
// absent.
type SessionExport struct {
	Version    int                      `json:"version"`
	ExportedAt time.Time                `json:"exported_at"`
	Session    *store.TradingSession    `json:"session"`
	Trades     []*store.Trade           `json:"trades"`
	Statistics *analytics.UserAnalytics `json:"statistics"`
}

const exportVersion = 1

// Build assembles the export document, computing statistics over the
// session's trades.
func Build(session *store.TradingSession, trades []*store.Trade) *SessionExport {
	return &SessionExport{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Session:    session,
		Trades:     trades,
		Statistics: analytics.Compute([]*store.TradingSession{session}, trades),
	}
}

// WriteJSON renders the document as indented JSON.
func (e *SessionExport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// ParseJSON reads an export document back.
func ParseJSON(r io.Reader) (*SessionExport, error) {
	var e SessionExport
	if err := json.NewDecoder(r).Decode(&e); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	if e.Session == nil {
		return nil, fmt.Errorf("export has no session")
	}
	return &e, nil
}

// Column order of the Trades sheet. Every optional field appears
// regardless of the session's instrument type; absent values render blank.
var tradeHeaders = []string{
	"ID", "Created At", "Entry Side", "Margin", "ROI %", "Profit/Loss", "Source", "Comments",
	"Symbol", "Volume (Lot)", "Open Price", "Close Price", "TP", "SL", "Position",
	"Open Time", "Close Time", "Reason", "Leverage", "Contract Size",
	"Futures Symbol", "Margin Mode", "Avg Entry Price", "Avg Close Price",
	"Margin Adjustments", "Closing Quantity", "Realized PnL",
}

// WriteXLSX renders the document as a workbook with a Summary sheet and a
// Trades sheet.
func (e *SessionExport) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}

	stats := e.Statistics
	summaryRows := [][]interface{}{
		{"Session", e.Session.Name},
		{"Type", string(e.Session.SessionType)},
		{"Initial Capital", e.Session.InitialCapital},
		{"Current Capital", e.Session.CurrentCapital},
		{"Created", e.Session.CreatedAt.Format(time.RFC3339)},
		{"Exported", e.ExportedAt.Format(time.RFC3339)},
		{},
		{"Trades", len(e.Trades)},
		{"Win Rate %", stats.SuccessRate},
		{"Total P/L", stats.OverallPerformance},
		{"Profit Factor", stats.ProfitFactor},
		{"Max Drawdown", stats.MaxDrawdown.Amount},
		{"Max Drawdown %", stats.MaxDrawdown.Percentage},
		{"Best Streak", stats.Streaks.BestStreak},
		{"Worst Streak", stats.Streaks.WorstStreak},
		{"Sharpe Ratio", stats.SharpeRatio},
		{"Risk Level", stats.RiskLevel},
	}
	for i, row := range summaryRows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	const sheet = "Trades"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create trades sheet: %w", err)
	}

	header := make([]interface{}, len(tradeHeaders))
	for i, h := range tradeHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write trade headers: %w", err)
	}

	for i, t := range e.Trades {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := tradeRow(t)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write trade row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func tradeRow(t *store.Trade) []interface{} {
	row := []interface{}{
		t.ID,
		t.CreatedAt.Format(time.RFC3339),
		string(t.EntrySide),
		t.Margin,
		t.ROI,
		t.ProfitLoss,
		t.Source,
		t.Comments,
	}

	fx := t.Forex
	if fx == nil {
		fx = &store.ForexLeg{}
	}
	row = append(row,
		strCell(fx.Symbol),
		numCell(fx.VolumeLot),
		numCell(fx.OpenPrice),
		numCell(fx.ClosePrice),
		numCell(fx.TP),
		numCell(fx.SL),
		positionCell(fx.Position),
		timeCell(fx.OpenTime),
		timeCell(fx.CloseTime),
		reasonCell(fx.Reason),
		numCell(fx.Leverage),
		numCell(fx.ContractSize),
	)

	cr := t.Crypto
	if cr == nil {
		cr = &store.CryptoLeg{}
	}
	row = append(row,
		strCell(cr.FuturesSymbol),
		strCell(cr.MarginMode),
		numCell(cr.AvgEntryPrice),
		numCell(cr.AvgClosePrice),
		strCell(cr.MarginAdjustmentHistory),
		numCell(cr.ClosingQuantity),
		numCell(cr.RealizedPnl),
	)

	// crypto legs keep their timestamps in the shared time columns
	if t.Crypto != nil {
		row[15] = timeCell(cr.OpenTime)
		row[16] = timeCell(cr.CloseTime)
	}

	return row
}

func strCell(v *string) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func numCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func timeCell(v *time.Time) interface{} {
	if v == nil {
		return ""
	}
	return v.Format(time.RFC3339)
}

func positionCell(v *store.PositionState) interface{} {
	if v == nil {
		return ""
	}
	return string(*v)
}

func reasonCell(v *store.CloseReason) interface{} {
	if v == nil {
		return ""
	}
	return string(*v)
}
