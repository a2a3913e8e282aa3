package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/config"
	"trade-journal/internal/store"
)

// memStore is an in-memory Store for handler tests.
type memStore struct {
	sessions []*store.TradingSession
	trades   []*store.Trade
	messages []*store.ChatMessage
	nextID   int
}

func (m *memStore) id() string {
	m.nextID++
	return fmt.Sprintf("id-%d", m.nextID)
}

func (m *memStore) ListSessions(ctx context.Context, userID string) ([]*store.TradingSession, error) {
	var out []*store.TradingSession
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) CreateSession(ctx context.Context, session *store.TradingSession) error {
	session.ID = m.id()
	session.CreatedAt = time.Now().UTC()
	session.UpdatedAt = session.CreatedAt
	m.sessions = append(m.sessions, session)
	return nil
}

func (m *memStore) DeleteSession(ctx context.Context, userID, sessionID string) error {
	for i, s := range m.sessions {
		if s.ID == sessionID && s.UserID == userID {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			var kept []*store.Trade
			for _, t := range m.trades {
				if t.SessionID != sessionID {
					kept = append(kept, t)
				}
			}
			m.trades = kept
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) UpdateSessionCapital(ctx context.Context, userID, sessionID string, capital float64) error {
	for _, s := range m.sessions {
		if s.ID == sessionID && s.UserID == userID {
			s.CurrentCapital = capital
			s.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) ListTrades(ctx context.Context, userID, sessionID string) ([]*store.Trade, error) {
	var out []*store.Trade
	for _, t := range m.trades {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListTradesForUser(ctx context.Context, userID string) ([]*store.Trade, error) {
	owned := map[string]bool{}
	for _, s := range m.sessions {
		if s.UserID == userID {
			owned[s.ID] = true
		}
	}
	var out []*store.Trade
	for _, t := range m.trades {
		if owned[t.SessionID] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) AddTrade(ctx context.Context, userID string, trade *store.Trade) error {
	for _, s := range m.sessions {
		if s.ID == trade.SessionID && s.UserID == userID {
			trade.ID = m.id()
			trade.CreatedAt = time.Now().UTC()
			m.trades = append(m.trades, trade)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) UpdateTrade(ctx context.Context, userID, tradeID string, patch *store.TradePatch) error {
	for _, t := range m.trades {
		if t.ID == tradeID {
			if patch.ProfitLoss != nil {
				t.ProfitLoss = *patch.ProfitLoss
			}
			if patch.Comments != nil {
				t.Comments = *patch.Comments
			}
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) DeleteTrade(ctx context.Context, userID, tradeID string) error {
	for i, t := range m.trades {
		if t.ID == tradeID {
			m.trades = append(m.trades[:i], m.trades[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) AppendChatMessage(ctx context.Context, msg *store.ChatMessage) error {
	msg.ID = m.id()
	msg.CreatedAt = time.Now().UTC()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memStore) ListChatMessages(ctx context.Context, userID string, limit int) ([]*store.ChatMessage, error) {
	return m.messages, nil
}

func (m *memStore) HealthCheck(ctx context.Context) error { return nil }
func (m *memStore) Close()                                {}

func newTestServer() (*Server, *memStore) {
	st := &memStore{}
	srv := NewServer(config.ServerConfig{ProductionMode: true}, st, nil, nil, nil, nil, nil, zerolog.Nop())
	return srv, st
}

func doJSON(srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestCreateAndListSessions(t *testing.T) {
	srv, _ := newTestServer()

	w := doJSON(srv, http.MethodPost, "/api/sessions", map[string]interface{}{
		"name":            "March scalps",
		"initial_capital": 1000,
		"session_type":    "Forex",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create returned %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		Data store.TradingSession `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if created.Data.CurrentCapital != created.Data.InitialCapital {
		t.Error("capital fields must start equal")
	}

	w = doJSON(srv, http.MethodGet, "/api/sessions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list returned %d", w.Code)
	}
	var listed struct {
		Data []store.TradingSession `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &listed)
	if len(listed.Data) != 1 || listed.Data[0].Name != "March scalps" {
		t.Errorf("unexpected sessions: %+v", listed.Data)
	}
}

func TestCreateSession_RejectsInvalidType(t *testing.T) {
	srv, _ := newTestServer()

	w := doJSON(srv, http.MethodPost, "/api/sessions", map[string]interface{}{
		"name":            "bad",
		"initial_capital": 100,
		"session_type":    "Options",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid session type, got %d", w.Code)
	}
}

func TestAddTrade_ComputesROI(t *testing.T) {
	srv, st := newTestServer()
	st.sessions = append(st.sessions, &store.TradingSession{
		ID: "s-1", UserID: defaultUserID, SessionType: store.SessionForex,
	})

	w := doJSON(srv, http.MethodPost, "/api/sessions/s-1/trades", map[string]interface{}{
		"margin":      200,
		"entry_side":  "Long",
		"profit_loss": 30,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add trade returned %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data store.Trade `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Data.ROI != 15 {
		t.Errorf("expected ROI 15, got %f", resp.Data.ROI)
	}
	if resp.Data.Source != store.TradeSourceManual {
		t.Errorf("expected manual source default, got %s", resp.Data.Source)
	}
}

func TestAddTrade_RejectsBothLegs(t *testing.T) {
	srv, st := newTestServer()
	st.sessions = append(st.sessions, &store.TradingSession{
		ID: "s-1", UserID: defaultUserID, SessionType: store.SessionForex,
	})

	w := doJSON(srv, http.MethodPost, "/api/sessions/s-1/trades", map[string]interface{}{
		"margin":     100,
		"entry_side": "Long",
		"forex":      map[string]interface{}{},
		"crypto":     map[string]interface{}{},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for dual-leg trade, got %d", w.Code)
	}
}

func TestAddTrade_UnknownSessionIs404(t *testing.T) {
	srv, _ := newTestServer()

	w := doJSON(srv, http.MethodPost, "/api/sessions/nope/trades", map[string]interface{}{
		"margin":     100,
		"entry_side": "Short",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestDeleteSession_CascadesTrades(t *testing.T) {
	srv, st := newTestServer()
	st.sessions = append(st.sessions, &store.TradingSession{ID: "s-1", UserID: defaultUserID})
	st.trades = append(st.trades, &store.Trade{ID: "t-1", SessionID: "s-1", Forex: &store.ForexLeg{}})

	w := doJSON(srv, http.MethodDelete, "/api/sessions/s-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete returned %d", w.Code)
	}
	if len(st.trades) != 0 {
		t.Error("expected trades removed with their session")
	}
}

func TestAnalyticsEndpoint(t *testing.T) {
	srv, st := newTestServer()
	st.sessions = append(st.sessions, &store.TradingSession{
		ID: "s-1", UserID: defaultUserID, CurrentCapital: 500,
	})
	for _, pl := range []float64{100, -50, 0, 30} {
		st.trades = append(st.trades, &store.Trade{
			SessionID: "s-1", EntrySide: store.SideLong, ProfitLoss: pl, Forex: &store.ForexLeg{},
		})
	}

	w := doJSON(srv, http.MethodGet, "/api/analytics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("analytics returned %d", w.Code)
	}

	var resp struct {
		Data struct {
			SuccessRate   float64 `json:"success_rate"`
			ActiveCapital float64 `json:"active_capital"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Data.SuccessRate != 50 {
		t.Errorf("expected success rate 50, got %f", resp.Data.SuccessRate)
	}
	if resp.Data.ActiveCapital != 500 {
		t.Errorf("expected active capital 500, got %f", resp.Data.ActiveCapital)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	srv, st := newTestServer()
	st.sessions = append(st.sessions, &store.TradingSession{
		ID: "s-1", UserID: defaultUserID, Name: "exported", InitialCapital: 1000,
		CurrentCapital: 1100, SessionType: store.SessionForex,
	})
	st.trades = append(st.trades, &store.Trade{
		ID: "t-1", SessionID: "s-1", Margin: 100, ProfitLoss: 100, ROI: 100,
		EntrySide: store.SideLong, Source: store.TradeSourceManual, Forex: &store.ForexLeg{},
	})

	w := doJSON(srv, http.MethodGet, "/api/sessions/s-1/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export returned %d: %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(w.Body.Bytes()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import returned %d: %s", rec.Code, rec.Body.String())
	}

	if len(st.sessions) != 2 {
		t.Fatalf("expected imported session, have %d sessions", len(st.sessions))
	}
	if len(st.trades) != 2 {
		t.Errorf("expected imported trade, have %d trades", len(st.trades))
	}
	imported := st.sessions[1]
	if imported.Name != "exported" || imported.CurrentCapital != 1100 {
		t.Errorf("imported session fields wrong: %+v", imported)
	}
}

func TestExportSession_UnknownIs404(t *testing.T) {
	srv, _ := newTestServer()

	w := doJSON(srv, http.MethodGet, "/api/sessions/missing/export", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	if !rl.Allow("/x") || !rl.Allow("/x") {
		t.Fatal("first two requests must pass")
	}
	if rl.Allow("/x") {
		t.Error("third request within the window must be limited")
	}
	if !rl.Allow("/y") {
		t.Error("limits are per endpoint")
	}
}
