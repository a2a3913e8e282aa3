// Package rest implements the trade store against the hosted table store's
// generated REST endpoint (PostgREST-style). The service authenticates with
// its service key; row-level scoping is applied through query filters the
// same way the postgres backend scopes by user id.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/logging"
	"trade-journal/internal/store"
)

// Config holds REST store configuration
type Config struct {
	BaseURL    string
	ServiceKey string
	Timeout    time.Duration
}

// Client implements store.Store over HTTP
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new REST store client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.WithComponent("store-rest"),
	}
}

// sessionRow mirrors the trading_sessions wire shape
type sessionRow struct {
	ID             string    `json:"id,omitempty"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	InitialCapital float64   `json:"initial_capital"`
	CurrentCapital float64   `json:"current_capital"`
	SessionType    string    `json:"session_type"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// tradeRow mirrors the flat trades wire shape
type tradeRow struct {
	ID         string    `json:"id,omitempty"`
	SessionID  string    `json:"session_id"`
	Margin     float64   `json:"margin"`
	ROI        float64   `json:"roi"`
	EntrySide  string    `json:"entry_side"`
	ProfitLoss float64   `json:"profit_loss"`
	Comments   *string   `json:"comments,omitempty"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`

	Symbol       *string    `json:"symbol,omitempty"`
	VolumeLot    *float64   `json:"volume_lot,omitempty"`
	OpenPrice    *float64   `json:"open_price,omitempty"`
	ClosePrice   *float64   `json:"close_price,omitempty"`
	TP           *float64   `json:"tp,omitempty"`
	SL           *float64   `json:"sl,omitempty"`
	Position     *string    `json:"position,omitempty"`
	OpenTime     *time.Time `json:"open_time,omitempty"`
	CloseTime    *time.Time `json:"close_time,omitempty"`
	Reason       *string    `json:"reason,omitempty"`
	Leverage     *float64   `json:"leverage,omitempty"`
	ContractSize *float64   `json:"contract_size,omitempty"`

	FuturesSymbol           *string  `json:"futures_symbol,omitempty"`
	MarginMode              *string  `json:"margin_mode,omitempty"`
	AvgEntryPrice           *float64 `json:"avg_entry_price,omitempty"`
	AvgClosePrice           *float64 `json:"avg_close_price,omitempty"`
	MarginAdjustmentHistory *string  `json:"margin_adjustment_history,omitempty"`
	ClosingQuantity         *float64 `json:"closing_quantity,omitempty"`
	RealizedPnl             *float64 `json:"realized_pnl,omitempty"`
}

// do issues one request and decodes the response into out when non-nil.
// Errors from the store are surfaced verbatim in the error message.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if out != nil && (method == http.MethodPost || method == http.MethodPatch) {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read store response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("store returned %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode store response: %w", err)
		}
	}
	return nil
}

// ============================================================================
// SESSIONS
// ============================================================================

func (c *Client) ListSessions(ctx context.Context, userID string) ([]*store.TradingSession, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("order", "created_at.desc")

	var rows []sessionRow
	if err := c.do(ctx, http.MethodGet, "/trading_sessions", q, nil, &rows); err != nil {
		return nil, err
	}

	sessions := make([]*store.TradingSession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, &store.TradingSession{
			ID:             row.ID,
			UserID:         row.UserID,
			Name:           row.Name,
			InitialCapital: row.InitialCapital,
			CurrentCapital: row.CurrentCapital,
			SessionType:    store.SessionType(row.SessionType),
			CreatedAt:      row.CreatedAt,
			UpdatedAt:      row.UpdatedAt,
		})
	}
	return sessions, nil
}

func (c *Client) CreateSession(ctx context.Context, session *store.TradingSession) error {
	body := sessionRow{
		UserID:         session.UserID,
		Name:           session.Name,
		InitialCapital: session.InitialCapital,
		CurrentCapital: session.InitialCapital,
		SessionType:    string(session.SessionType),
	}

	var created []sessionRow
	if err := c.do(ctx, http.MethodPost, "/trading_sessions", nil, []sessionRow{body}, &created); err != nil {
		return err
	}
	if len(created) == 0 {
		return fmt.Errorf("store returned no created session")
	}
	session.ID = created[0].ID
	session.CurrentCapital = created[0].CurrentCapital
	session.CreatedAt = created[0].CreatedAt
	session.UpdatedAt = created[0].UpdatedAt
	return nil
}

func (c *Client) DeleteSession(ctx context.Context, userID, sessionID string) error {
	q := url.Values{}
	q.Set("id", "eq."+sessionID)
	q.Set("user_id", "eq."+userID)

	return c.do(ctx, http.MethodDelete, "/trading_sessions", q, nil, nil)
}

func (c *Client) UpdateSessionCapital(ctx context.Context, userID, sessionID string, capital float64) error {
	q := url.Values{}
	q.Set("id", "eq."+sessionID)
	q.Set("user_id", "eq."+userID)

	patch := map[string]interface{}{
		"current_capital": capital,
		"updated_at":      time.Now().UTC().Format(time.RFC3339),
	}
	var updated []sessionRow
	if err := c.do(ctx, http.MethodPatch, "/trading_sessions", q, patch, &updated); err != nil {
		return err
	}
	if len(updated) == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ============================================================================
// TRADES
// ============================================================================

func (c *Client) ListTrades(ctx context.Context, userID, sessionID string) ([]*store.Trade, error) {
	st, err := c.sessionType(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("session_id", "eq."+sessionID)
	q.Set("order", "created_at.desc")

	var rows []tradeRow
	if err := c.do(ctx, http.MethodGet, "/trades", q, nil, &rows); err != nil {
		return nil, err
	}

	return decodeTrades(rows, map[string]store.SessionType{sessionID: st}), nil
}

func (c *Client) ListTradesForUser(ctx context.Context, userID string) ([]*store.Trade, error) {
	sessions, err := c.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	types := make(map[string]store.SessionType, len(sessions))
	ids := ""
	for i, s := range sessions {
		types[s.ID] = s.SessionType
		if i > 0 {
			ids += ","
		}
		ids += s.ID
	}

	q := url.Values{}
	q.Set("session_id", "in.("+ids+")")
	q.Set("order", "created_at.desc")

	var rows []tradeRow
	if err := c.do(ctx, http.MethodGet, "/trades", q, nil, &rows); err != nil {
		return nil, err
	}
	return decodeTrades(rows, types), nil
}

func (c *Client) AddTrade(ctx context.Context, userID string, trade *store.Trade) error {
	if _, err := c.sessionType(ctx, userID, trade.SessionID); err != nil {
		return err
	}
	if trade.Source == "" {
		trade.Source = store.TradeSourceManual
	}

	row := encodeTrade(trade)
	var created []tradeRow
	if err := c.do(ctx, http.MethodPost, "/trades", nil, []tradeRow{row}, &created); err != nil {
		return err
	}
	if len(created) == 0 {
		return fmt.Errorf("store returned no created trade")
	}
	trade.ID = created[0].ID
	trade.CreatedAt = created[0].CreatedAt
	return nil
}

func (c *Client) UpdateTrade(ctx context.Context, userID, tradeID string, patch *store.TradePatch) error {
	sessionIDs, err := c.sessionIDs(ctx, userID)
	if err != nil {
		return err
	}
	if sessionIDs == "" {
		return store.ErrNotFound
	}

	q := url.Values{}
	q.Set("id", "eq."+tradeID)
	q.Set("session_id", "in.("+sessionIDs+")")

	body := map[string]interface{}{}
	if patch.Margin != nil {
		body["margin"] = *patch.Margin
	}
	if patch.ROI != nil {
		body["roi"] = *patch.ROI
	}
	if patch.EntrySide != nil {
		body["entry_side"] = *patch.EntrySide
	}
	if patch.ProfitLoss != nil {
		body["profit_loss"] = *patch.ProfitLoss
	}
	if patch.Comments != nil {
		body["comments"] = *patch.Comments
	}
	if patch.Forex != nil {
		fx := patch.Forex
		body["symbol"] = fx.Symbol
		body["volume_lot"] = fx.VolumeLot
		body["open_price"] = fx.OpenPrice
		body["close_price"] = fx.ClosePrice
		body["tp"] = fx.TP
		body["sl"] = fx.SL
		body["position"] = fx.Position
		body["open_time"] = fx.OpenTime
		body["close_time"] = fx.CloseTime
		body["reason"] = fx.Reason
		body["leverage"] = fx.Leverage
		body["contract_size"] = fx.ContractSize
	}
	if patch.Crypto != nil {
		cr := patch.Crypto
		body["futures_symbol"] = cr.FuturesSymbol
		body["margin_mode"] = cr.MarginMode
		body["avg_entry_price"] = cr.AvgEntryPrice
		body["avg_close_price"] = cr.AvgClosePrice
		body["margin_adjustment_history"] = cr.MarginAdjustmentHistory
		body["closing_quantity"] = cr.ClosingQuantity
		body["realized_pnl"] = cr.RealizedPnl
		body["open_time"] = cr.OpenTime
		body["close_time"] = cr.CloseTime
	}
	if len(body) == 0 {
		return nil
	}

	var updated []tradeRow
	if err := c.do(ctx, http.MethodPatch, "/trades", q, body, &updated); err != nil {
		return err
	}
	if len(updated) == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (c *Client) DeleteTrade(ctx context.Context, userID, tradeID string) error {
	sessionIDs, err := c.sessionIDs(ctx, userID)
	if err != nil {
		return err
	}
	if sessionIDs == "" {
		return store.ErrNotFound
	}

	q := url.Values{}
	q.Set("id", "eq."+tradeID)
	q.Set("session_id", "in.("+sessionIDs+")")
	return c.do(ctx, http.MethodDelete, "/trades", q, nil, nil)
}

// ============================================================================
// CHAT MESSAGES
// ============================================================================

type chatRow struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"user_id"`
	Message     string    `json:"message"`
	MessageType string    `json:"message_type"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

func (c *Client) AppendChatMessage(ctx context.Context, msg *store.ChatMessage) error {
	body := chatRow{UserID: msg.UserID, Message: msg.Message, MessageType: msg.MessageType}
	var created []chatRow
	if err := c.do(ctx, http.MethodPost, "/chat_messages", nil, []chatRow{body}, &created); err != nil {
		return err
	}
	if len(created) > 0 {
		msg.ID = created[0].ID
		msg.CreatedAt = created[0].CreatedAt
	}
	return nil
}

func (c *Client) ListChatMessages(ctx context.Context, userID string, limit int) ([]*store.ChatMessage, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("order", "created_at.desc")
	q.Set("limit", fmt.Sprintf("%d", limit))

	var rows []chatRow
	if err := c.do(ctx, http.MethodGet, "/chat_messages", q, nil, &rows); err != nil {
		return nil, err
	}

	msgs := make([]*store.ChatMessage, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, &store.ChatMessage{
			ID:          row.ID,
			UserID:      row.UserID,
			Message:     row.Message,
			MessageType: row.MessageType,
			CreatedAt:   row.CreatedAt,
		})
	}
	return msgs, nil
}

// HealthCheck verifies the store endpoint is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	q := url.Values{}
	q.Set("limit", "1")
	var rows []sessionRow
	return c.do(ctx, http.MethodGet, "/trading_sessions", q, nil, &rows)
}

// Close is a no-op; the HTTP client holds no resources worth releasing
func (c *Client) Close() {}

// ============================================================================
// helpers
// ============================================================================

func (c *Client) sessionType(ctx context.Context, userID, sessionID string) (store.SessionType, error) {
	q := url.Values{}
	q.Set("id", "eq."+sessionID)
	q.Set("user_id", "eq."+userID)
	q.Set("select", "id,session_type,user_id,name,initial_capital,current_capital")

	var rows []sessionRow
	if err := c.do(ctx, http.MethodGet, "/trading_sessions", q, nil, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", store.ErrNotFound
	}
	return store.SessionType(rows[0].SessionType), nil
}

func (c *Client) sessionIDs(ctx context.Context, userID string) (string, error) {
	sessions, err := c.ListSessions(ctx, userID)
	if err != nil {
		return "", err
	}
	ids := ""
	for i, s := range sessions {
		if i > 0 {
			ids += ","
		}
		ids += s.ID
	}
	return ids, nil
}

func encodeTrade(t *store.Trade) tradeRow {
	row := tradeRow{
		SessionID:  t.SessionID,
		Margin:     t.Margin,
		ROI:        t.ROI,
		EntrySide:  string(t.EntrySide),
		ProfitLoss: t.ProfitLoss,
		Source:     t.Source,
	}
	if t.Comments != "" {
		row.Comments = &t.Comments
	}
	if fx := t.Forex; fx != nil {
		row.Symbol = fx.Symbol
		row.VolumeLot = fx.VolumeLot
		row.OpenPrice = fx.OpenPrice
		row.ClosePrice = fx.ClosePrice
		row.TP = fx.TP
		row.SL = fx.SL
		if fx.Position != nil {
			p := string(*fx.Position)
			row.Position = &p
		}
		row.OpenTime = fx.OpenTime
		row.CloseTime = fx.CloseTime
		if fx.Reason != nil {
			rs := string(*fx.Reason)
			row.Reason = &rs
		}
		row.Leverage = fx.Leverage
		row.ContractSize = fx.ContractSize
	}
	if cr := t.Crypto; cr != nil {
		row.FuturesSymbol = cr.FuturesSymbol
		row.MarginMode = cr.MarginMode
		row.AvgEntryPrice = cr.AvgEntryPrice
		row.AvgClosePrice = cr.AvgClosePrice
		row.MarginAdjustmentHistory = cr.MarginAdjustmentHistory
		row.ClosingQuantity = cr.ClosingQuantity
		row.RealizedPnl = cr.RealizedPnl
		row.OpenTime = cr.OpenTime
		row.CloseTime = cr.CloseTime
	}
	return row
}

func decodeTrades(rows []tradeRow, types map[string]store.SessionType) []*store.Trade {
	trades := make([]*store.Trade, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		t := &store.Trade{
			ID:         row.ID,
			SessionID:  row.SessionID,
			Margin:     row.Margin,
			ROI:        row.ROI,
			EntrySide:  store.EntrySide(row.EntrySide),
			ProfitLoss: row.ProfitLoss,
			Source:     row.Source,
			CreatedAt:  row.CreatedAt,
		}
		if row.Comments != nil {
			t.Comments = *row.Comments
		}

		if types[row.SessionID] == store.SessionCrypto {
			t.Crypto = &store.CryptoLeg{
				FuturesSymbol:           row.FuturesSymbol,
				MarginMode:              row.MarginMode,
				AvgEntryPrice:           row.AvgEntryPrice,
				AvgClosePrice:           row.AvgClosePrice,
				MarginAdjustmentHistory: row.MarginAdjustmentHistory,
				ClosingQuantity:         row.ClosingQuantity,
				RealizedPnl:             row.RealizedPnl,
				OpenTime:                row.OpenTime,
				CloseTime:               row.CloseTime,
			}
		} else {
			leg := &store.ForexLeg{
				Symbol:       row.Symbol,
				VolumeLot:    row.VolumeLot,
				OpenPrice:    row.OpenPrice,
				ClosePrice:   row.ClosePrice,
				TP:           row.TP,
				SL:           row.SL,
				OpenTime:     row.OpenTime,
				CloseTime:    row.CloseTime,
				Leverage:     row.Leverage,
				ContractSize: row.ContractSize,
			}
			if row.Position != nil {
				p := store.PositionState(*row.Position)
				leg.Position = &p
			}
			if row.Reason != nil {
				rs := store.CloseReason(*row.Reason)
				leg.Reason = &rs
			}
			t.Forex = leg
		}
		trades = append(trades, t)
	}
	return trades
}
