// Package store defines the trading-journal data model and the Store
// interface implemented by the postgres and rest backends.
package store

import (
	"time"
)

// SessionType distinguishes the two instrument domains a session can hold
type SessionType string

const (
	SessionForex  SessionType = "Forex"
	SessionCrypto SessionType = "Crypto"
)

// EntrySide is the trade direction. Crypto-style records call this
// "direction" on the wire; the semantics are identical.
type EntrySide string

const (
	SideLong  EntrySide = "Long"
	SideShort EntrySide = "Short"
)

// PositionState marks whether a trade is still open
type PositionState string

const (
	PositionOpen   PositionState = "Open"
	PositionClosed PositionState = "Closed"
)

// CloseReason explains why a position was closed
type CloseReason string

const (
	ReasonTP         CloseReason = "TP"
	ReasonSL         CloseReason = "SL"
	ReasonEarlyClose CloseReason = "Early Close"
	ReasonOther      CloseReason = "Other"
)

// TradeSource constants
const (
	TradeSourceManual    = "manual"    // entered through the trade form
	TradeSourceExtracted = "extracted" // imported from a screenshot by the assistant
)

// TradingSession groups a user's trades under one capital pool.
// CurrentCapital is bookkept by the caller on trade mutations; the store
// never recomputes it.
type TradingSession struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Name           string      `json:"name"`
	InitialCapital float64     `json:"initial_capital"`
	CurrentCapital float64     `json:"current_capital"`
	SessionType    SessionType `json:"session_type"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// ForexLeg holds the descriptive fields of a forex-style trade
type ForexLeg struct {
	Symbol       *string        `json:"symbol,omitempty"`
	VolumeLot    *float64       `json:"volume_lot,omitempty"`
	OpenPrice    *float64       `json:"open_price,omitempty"`
	ClosePrice   *float64       `json:"close_price,omitempty"`
	TP           *float64       `json:"tp,omitempty"`
	SL           *float64       `json:"sl,omitempty"`
	Position     *PositionState `json:"position,omitempty"`
	OpenTime     *time.Time     `json:"open_time,omitempty"`
	CloseTime    *time.Time     `json:"close_time,omitempty"`
	Reason       *CloseReason   `json:"reason,omitempty"`
	Leverage     *float64       `json:"leverage,omitempty"`
	ContractSize *float64       `json:"contract_size,omitempty"`
}

// CryptoLeg holds the descriptive fields of a crypto-futures-style trade
type CryptoLeg struct {
	FuturesSymbol           *string    `json:"futures_symbol,omitempty"`
	MarginMode              *string    `json:"margin_mode,omitempty"`
	AvgEntryPrice           *float64   `json:"avg_entry_price,omitempty"`
	AvgClosePrice           *float64   `json:"avg_close_price,omitempty"`
	MarginAdjustmentHistory *string    `json:"margin_adjustment_history,omitempty"`
	ClosingQuantity         *float64   `json:"closing_quantity,omitempty"`
	RealizedPnl             *float64   `json:"realized_pnl,omitempty"`
	OpenTime                *time.Time `json:"open_time,omitempty"`
	CloseTime               *time.Time `json:"close_time,omitempty"`
}

// Trade is one journal entry. Exactly one of Forex or Crypto is populated,
// selected by the parent session's type. ROI is derived once at entry time
// (profit_loss / margin * 100) and never recomputed.
type Trade struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Margin     float64   `json:"margin"`
	ROI        float64   `json:"roi"`
	EntrySide  EntrySide `json:"entry_side"`
	ProfitLoss float64   `json:"profit_loss"`
	Comments   string    `json:"comments,omitempty"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`

	Forex  *ForexLeg  `json:"forex,omitempty"`
	Crypto *CryptoLeg `json:"crypto,omitempty"`
}

// OpenTime returns the open timestamp of whichever leg is populated.
func (t *Trade) OpenTime() *time.Time {
	if t.Forex != nil {
		return t.Forex.OpenTime
	}
	if t.Crypto != nil {
		return t.Crypto.OpenTime
	}
	return nil
}

// CloseTime returns the close timestamp of whichever leg is populated.
func (t *Trade) CloseTime() *time.Time {
	if t.Forex != nil {
		return t.Forex.CloseTime
	}
	if t.Crypto != nil {
		return t.Crypto.CloseTime
	}
	return nil
}

// OpenPrice returns the entry price used for risk computation. Only
// forex-style records carry one.
func (t *Trade) OpenPrice() *float64 {
	if t.Forex != nil {
		return t.Forex.OpenPrice
	}
	return nil
}

// StopLoss returns the stop-loss level, when set.
func (t *Trade) StopLoss() *float64 {
	if t.Forex != nil {
		return t.Forex.SL
	}
	return nil
}

// MessageType values for chat messages
const (
	MessageTypeUser = "user"
	MessageTypeAI   = "ai"
)

// ChatMessage is one side of one conversation turn. Messages are immutable;
// a user turn and the assistant reply are stored as two records.
type ChatMessage struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Message     string    `json:"message"`
	MessageType string    `json:"message_type"`
	CreatedAt   time.Time `json:"created_at"`
}
