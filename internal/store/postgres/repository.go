package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trade-journal/internal/store"
)

// Repository implements store.Store on top of pgx
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// Close closes the underlying pool
func (r *Repository) Close() {
	r.db.Close()
}

// ============================================================================
// SESSIONS
// ============================================================================

// ListSessions returns the user's sessions, newest-created-first
func (r *Repository) ListSessions(ctx context.Context, userID string) ([]*store.TradingSession, error) {
	query := `
		SELECT id, user_id, name, initial_capital, current_capital, session_type, created_at, updated_at
		FROM trading_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*store.TradingSession
	for rows.Next() {
		s := &store.TradingSession{}
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.Name, &s.InitialCapital, &s.CurrentCapital,
			&s.SessionType, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// CreateSession inserts a new session. Both capital fields start equal.
func (r *Repository) CreateSession(ctx context.Context, session *store.TradingSession) error {
	query := `
		INSERT INTO trading_sessions (user_id, name, initial_capital, current_capital, session_type)
		VALUES ($1, $2, $3, $3, $4)
		RETURNING id, current_capital, created_at, updated_at
	`
	err := r.db.Pool.QueryRow(
		ctx, query,
		session.UserID, session.Name, session.InitialCapital, session.SessionType,
	).Scan(&session.ID, &session.CurrentCapital, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// DeleteSession removes a session; its trades cascade at the schema level
func (r *Repository) DeleteSession(ctx context.Context, userID, sessionID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM trading_sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdateSessionCapital patches current_capital and bumps updated_at
func (r *Repository) UpdateSessionCapital(ctx context.Context, userID, sessionID string, capital float64) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE trading_sessions
		SET current_capital = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, sessionID, userID, capital)
	if err != nil {
		return fmt.Errorf("failed to update session capital: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ============================================================================
// TRADES
// ============================================================================

const tradeColumns = `
	t.id, t.session_id, t.margin, t.roi, t.entry_side, t.profit_loss, t.comments, t.source, t.created_at,
	s.session_type,
	t.symbol, t.volume_lot, t.open_price, t.close_price, t.tp, t.sl, t.position,
	t.open_time, t.close_time, t.reason, t.leverage, t.contract_size,
	t.futures_symbol, t.margin_mode, t.avg_entry_price, t.avg_close_price,
	t.margin_adjustment_history, t.closing_quantity, t.realized_pnl`

// ListTrades returns one session's trades, newest-first. Ownership is
// enforced through the session join.
func (r *Repository) ListTrades(ctx context.Context, userID, sessionID string) ([]*store.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades t
		JOIN trading_sessions s ON s.id = t.session_id
		WHERE t.session_id = $1 AND s.user_id = $2
		ORDER BY t.created_at DESC
	`
	return r.queryTrades(ctx, query, sessionID, userID)
}

// ListTradesForUser returns every trade across the user's sessions,
// newest-first
func (r *Repository) ListTradesForUser(ctx context.Context, userID string) ([]*store.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades t
		JOIN trading_sessions s ON s.id = t.session_id
		WHERE s.user_id = $1
		ORDER BY t.created_at DESC
	`
	return r.queryTrades(ctx, query, userID)
}

// AddTrade inserts a new trade under one of the user's sessions
func (r *Repository) AddTrade(ctx context.Context, userID string, trade *store.Trade) error {
	if trade.Source == "" {
		trade.Source = store.TradeSourceManual
	}

	fx := trade.Forex
	if fx == nil {
		fx = &store.ForexLeg{}
	}
	cr := trade.Crypto
	if cr == nil {
		cr = &store.CryptoLeg{}
	}

	query := `
		INSERT INTO trades (
			session_id, margin, roi, entry_side, profit_loss, comments, source,
			symbol, volume_lot, open_price, close_price, tp, sl, position,
			open_time, close_time, reason, leverage, contract_size,
			futures_symbol, margin_mode, avg_entry_price, avg_close_price,
			margin_adjustment_history, closing_quantity, realized_pnl
		)
		SELECT $1, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27
		WHERE EXISTS (SELECT 1 FROM trading_sessions WHERE id = $1 AND user_id = $2)
		RETURNING id, created_at
	`
	openTime, closeTime := fx.OpenTime, fx.CloseTime
	if trade.Crypto != nil {
		openTime, closeTime = cr.OpenTime, cr.CloseTime
	}

	err := r.db.Pool.QueryRow(ctx, query,
		trade.SessionID, userID,
		trade.Margin, trade.ROI, trade.EntrySide, trade.ProfitLoss, trade.Comments, trade.Source,
		fx.Symbol, fx.VolumeLot, fx.OpenPrice, fx.ClosePrice, fx.TP, fx.SL, fx.Position,
		openTime, closeTime, fx.Reason, fx.Leverage, fx.ContractSize,
		cr.FuturesSymbol, cr.MarginMode, cr.AvgEntryPrice, cr.AvgClosePrice,
		cr.MarginAdjustmentHistory, cr.ClosingQuantity, cr.RealizedPnl,
	).Scan(&trade.ID, &trade.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to add trade: %w", err)
	}
	return nil
}

// UpdateTrade applies a partial patch to one of the user's trades
func (r *Repository) UpdateTrade(ctx context.Context, userID, tradeID string, patch *store.TradePatch) error {
	query := `
		UPDATE trades t
		SET margin      = COALESCE($3, t.margin),
		    roi         = COALESCE($4, t.roi),
		    entry_side  = COALESCE($5, t.entry_side),
		    profit_loss = COALESCE($6, t.profit_loss),
		    comments    = COALESCE($7, t.comments)
		FROM trading_sessions s
		WHERE t.id = $1 AND s.id = t.session_id AND s.user_id = $2
	`
	tag, err := r.db.Pool.Exec(ctx, query,
		tradeID, userID,
		patch.Margin, patch.ROI, patch.EntrySide, patch.ProfitLoss, patch.Comments,
	)
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	// Leg structs replace the stored leg wholesale when present
	if patch.Forex != nil {
		fx := patch.Forex
		_, err = r.db.Pool.Exec(ctx, `
			UPDATE trades t
			SET symbol = $3, volume_lot = $4, open_price = $5, close_price = $6,
			    tp = $7, sl = $8, position = $9, open_time = $10, close_time = $11,
			    reason = $12, leverage = $13, contract_size = $14
			FROM trading_sessions s
			WHERE t.id = $1 AND s.id = t.session_id AND s.user_id = $2
		`, tradeID, userID,
			fx.Symbol, fx.VolumeLot, fx.OpenPrice, fx.ClosePrice,
			fx.TP, fx.SL, fx.Position, fx.OpenTime, fx.CloseTime,
			fx.Reason, fx.Leverage, fx.ContractSize)
		if err != nil {
			return fmt.Errorf("failed to update trade details: %w", err)
		}
	}
	if patch.Crypto != nil {
		cr := patch.Crypto
		_, err = r.db.Pool.Exec(ctx, `
			UPDATE trades t
			SET futures_symbol = $3, margin_mode = $4, avg_entry_price = $5,
			    avg_close_price = $6, margin_adjustment_history = $7,
			    closing_quantity = $8, realized_pnl = $9, open_time = $10, close_time = $11
			FROM trading_sessions s
			WHERE t.id = $1 AND s.id = t.session_id AND s.user_id = $2
		`, tradeID, userID,
			cr.FuturesSymbol, cr.MarginMode, cr.AvgEntryPrice,
			cr.AvgClosePrice, cr.MarginAdjustmentHistory,
			cr.ClosingQuantity, cr.RealizedPnl, cr.OpenTime, cr.CloseTime)
		if err != nil {
			return fmt.Errorf("failed to update trade details: %w", err)
		}
	}
	return nil
}

// DeleteTrade removes a single trade owned by the user
func (r *Repository) DeleteTrade(ctx context.Context, userID, tradeID string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM trades t
		USING trading_sessions s
		WHERE t.id = $1 AND s.id = t.session_id AND s.user_id = $2
	`, tradeID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) queryTrades(ctx context.Context, query string, args ...interface{}) ([]*store.Trade, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []*store.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	return trades, rows.Err()
}

// scanTrade maps a flat row into the tagged Trade shape, selecting the leg
// by the parent session's type
func scanTrade(rows pgx.Rows) (*store.Trade, error) {
	var (
		t           store.Trade
		sessionType store.SessionType
		comments    *string
		fx          store.ForexLeg
		cr          store.CryptoLeg
	)

	err := rows.Scan(
		&t.ID, &t.SessionID, &t.Margin, &t.ROI, &t.EntrySide, &t.ProfitLoss, &comments, &t.Source, &t.CreatedAt,
		&sessionType,
		&fx.Symbol, &fx.VolumeLot, &fx.OpenPrice, &fx.ClosePrice, &fx.TP, &fx.SL, &fx.Position,
		&fx.OpenTime, &fx.CloseTime, &fx.Reason, &fx.Leverage, &fx.ContractSize,
		&cr.FuturesSymbol, &cr.MarginMode, &cr.AvgEntryPrice, &cr.AvgClosePrice,
		&cr.MarginAdjustmentHistory, &cr.ClosingQuantity, &cr.RealizedPnl,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan trade: %w", err)
	}

	if comments != nil {
		t.Comments = *comments
	}

	switch sessionType {
	case store.SessionCrypto:
		cr.OpenTime, cr.CloseTime = fx.OpenTime, fx.CloseTime
		t.Crypto = &cr
	default:
		t.Forex = &fx
	}

	return &t, nil
}

// ============================================================================
// CHAT MESSAGES
// ============================================================================

// AppendChatMessage writes one immutable conversation record
func (r *Repository) AppendChatMessage(ctx context.Context, msg *store.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (user_id, message, message_type)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query, msg.UserID, msg.Message, msg.MessageType).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

// ListChatMessages returns the user's most recent messages, newest-first
func (r *Repository) ListChatMessages(ctx context.Context, userID string, limit int) ([]*store.ChatMessage, error) {
	query := `
		SELECT id, user_id, message, message_type, created_at
		FROM chat_messages
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var msgs []*store.ChatMessage
	for rows.Next() {
		m := &store.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.Message, &m.MessageType, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
