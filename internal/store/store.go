package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested row does not exist or is not
// owned by the requesting user.
var ErrNotFound = errors.New("record not found")

// TradePatch is a partial trade update. Nil fields are left untouched.
// Leg structs replace the stored leg wholesale when present.
type TradePatch struct {
	Margin     *float64   `json:"margin,omitempty"`
	ROI        *float64   `json:"roi,omitempty"`
	EntrySide  *EntrySide `json:"entry_side,omitempty"`
	ProfitLoss *float64   `json:"profit_loss,omitempty"`
	Comments   *string    `json:"comments,omitempty"`
	Forex      *ForexLeg  `json:"forex,omitempty"`
	Crypto     *CryptoLeg `json:"crypto,omitempty"`
}

// Store is the CRUD facade over the session/trade/chat tables. Every method
// surfaces the backend's error verbatim (wrapped for context only); there is
// no retry and no local recovery. Capital bookkeeping is the caller's job.
type Store interface {
	// Sessions, newest-created-first
	ListSessions(ctx context.Context, userID string) ([]*TradingSession, error)
	CreateSession(ctx context.Context, session *TradingSession) error
	// DeleteSession cascades to the session's trades at the store level
	DeleteSession(ctx context.Context, userID, sessionID string) error
	// UpdateSessionCapital patches current_capital and bumps updated_at
	UpdateSessionCapital(ctx context.Context, userID, sessionID string, capital float64) error

	// Trades, newest-first
	ListTrades(ctx context.Context, userID, sessionID string) ([]*Trade, error)
	// ListTradesForUser returns every trade across the user's sessions,
	// newest-first, for the analytics aggregate
	ListTradesForUser(ctx context.Context, userID string) ([]*Trade, error)
	AddTrade(ctx context.Context, userID string, trade *Trade) error
	UpdateTrade(ctx context.Context, userID, tradeID string, patch *TradePatch) error
	DeleteTrade(ctx context.Context, userID, tradeID string) error

	// Chat history
	AppendChatMessage(ctx context.Context, msg *ChatMessage) error
	// ListChatMessages returns the user's most recent messages,
	// newest-first
	ListChatMessages(ctx context.Context, userID string, limit int) ([]*ChatMessage, error)

	HealthCheck(ctx context.Context) error
	Close()
}
