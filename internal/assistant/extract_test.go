package assistant

import (
	"errors"
	"testing"

	"trade-journal/internal/store"
)

func TestStripMarkdownCodeBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"surrounding whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripMarkdownCodeBlock(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseExtraction_RecoversEmbeddedJSON(t *testing.T) {
	response := `Sure! Here is the extracted trade:
{"symbol": "EURUSD", "pnlUsd": 12.5}
Let me know if you need anything else.`

	fields, err := parseExtraction(response)
	if err != nil {
		t.Fatalf("expected recovery to succeed: %v", err)
	}
	if fields["symbol"] != "EURUSD" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestParseExtraction_FailsExplicitly(t *testing.T) {
	_, err := parseExtraction("I cannot read this image, sorry.")
	if !errors.Is(err, ErrCouldNotExtract) {
		t.Errorf("expected ErrCouldNotExtract, got %v", err)
	}
}

func TestNormalizeForexExtraction(t *testing.T) {
	fields := map[string]interface{}{
		"symbol":     "XAUUSD",
		"type":       "Short",
		"volumeLot":  "0.50",
		"openPrice":  "3,401.188",
		"closePrice": 3395.2,
		"sl":         "3,410",
		"position":   "closed",
		"reason":     "stop loss",
		"pnlUsd":     "(29.94)",
		"openTime":   "2025-03-01T09:00:00Z",
	}

	trade := normalizeForexExtraction(fields)

	if trade.Source != store.TradeSourceExtracted {
		t.Errorf("expected extracted source, got %s", trade.Source)
	}
	if trade.EntrySide != store.SideShort {
		t.Errorf("expected Short, got %s", trade.EntrySide)
	}
	if trade.ProfitLoss != -29.94 {
		t.Errorf("expected P/L -29.94, got %f", trade.ProfitLoss)
	}
	if trade.Forex == nil {
		t.Fatal("expected forex leg")
	}
	if trade.Forex.OpenPrice == nil || *trade.Forex.OpenPrice != 3401.188 {
		t.Errorf("unexpected open price: %v", trade.Forex.OpenPrice)
	}
	if trade.Forex.Reason == nil || *trade.Forex.Reason != store.ReasonSL {
		t.Errorf("unexpected reason: %v", trade.Forex.Reason)
	}
	if trade.Forex.ClosePrice == nil || *trade.Forex.ClosePrice != 3395.2 {
		t.Errorf("unexpected close price: %v", trade.Forex.ClosePrice)
	}
	if trade.Crypto != nil {
		t.Error("crypto leg must be empty on a forex extraction")
	}
}

func TestNormalizeCryptoExtraction(t *testing.T) {
	fields := map[string]interface{}{
		"futuresSymbol":   "BTCUSDT",
		"marginMode":      "Cross",
		"direction":       "Long",
		"avgEntryPrice":   "95,120.5",
		"closingQuantity": "0.02",
		"realizedPnl":     "+41.20",
	}

	trade := normalizeCryptoExtraction(fields)

	if trade.Crypto == nil {
		t.Fatal("expected crypto leg")
	}
	if trade.EntrySide != store.SideLong {
		t.Errorf("expected Long, got %s", trade.EntrySide)
	}
	if trade.ProfitLoss != 41.20 {
		t.Errorf("expected P/L from realizedPnl, got %f", trade.ProfitLoss)
	}
	if trade.Crypto.AvgEntryPrice == nil || *trade.Crypto.AvgEntryPrice != 95120.5 {
		t.Errorf("unexpected entry price: %v", trade.Crypto.AvgEntryPrice)
	}
	if trade.Forex != nil {
		t.Error("forex leg must be empty on a crypto extraction")
	}
}
