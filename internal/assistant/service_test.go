package assistant

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"trade-journal/config"
	"trade-journal/internal/store"
)

// stubStore backs the service with fixed trades and records appended chat
// messages.
type stubStore struct {
	trades   []*store.Trade
	messages []*store.ChatMessage
	history  []*store.ChatMessage
}

func (s *stubStore) ListSessions(ctx context.Context, userID string) ([]*store.TradingSession, error) {
	return nil, nil
}
func (s *stubStore) CreateSession(ctx context.Context, session *store.TradingSession) error {
	return nil
}
func (s *stubStore) DeleteSession(ctx context.Context, userID, sessionID string) error { return nil }
func (s *stubStore) UpdateSessionCapital(ctx context.Context, userID, sessionID string, capital float64) error {
	return nil
}
func (s *stubStore) ListTrades(ctx context.Context, userID, sessionID string) ([]*store.Trade, error) {
	return s.trades, nil
}
func (s *stubStore) ListTradesForUser(ctx context.Context, userID string) ([]*store.Trade, error) {
	return s.trades, nil
}
func (s *stubStore) AddTrade(ctx context.Context, userID string, trade *store.Trade) error {
	return nil
}
func (s *stubStore) UpdateTrade(ctx context.Context, userID, tradeID string, patch *store.TradePatch) error {
	return nil
}
func (s *stubStore) DeleteTrade(ctx context.Context, userID, tradeID string) error { return nil }
func (s *stubStore) AppendChatMessage(ctx context.Context, msg *store.ChatMessage) error {
	s.messages = append(s.messages, msg)
	return nil
}
func (s *stubStore) ListChatMessages(ctx context.Context, userID string, limit int) ([]*store.ChatMessage, error) {
	return s.history, nil
}
func (s *stubStore) HealthCheck(ctx context.Context) error { return nil }
func (s *stubStore) Close()                                {}

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *stubStore, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)

	cfg := config.AIConfig{
		Enabled:    true,
		APIKey:     "test-key",
		Model:      "test-model",
		BaseURL:    srv.URL,
		Timeout:    2,
		MaxRetries: 1,
	}

	st := &stubStore{}
	svc := NewService(NewClient(cfg), st, nil, nil, nil, cfg, zerolog.Nop())
	return svc, st, srv.Close
}

func TestChat_ReturnsCompletionAndPersistsTurn(t *testing.T) {
	svc, st, done := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Your win rate looks solid."}]}}],"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":5,"totalTokenCount":15}}`))
	})
	defer done()

	result, err := svc.Chat(context.Background(), "user-1", "how am I doing?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Message != "Your win rate looks solid." {
		t.Errorf("unexpected reply: %q", result.Message)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 15 {
		t.Errorf("expected usage metadata, got %+v", result.Usage)
	}

	if len(st.messages) != 2 {
		t.Fatalf("expected both turn sides persisted, got %d", len(st.messages))
	}
	if st.messages[0].MessageType != store.MessageTypeUser || st.messages[1].MessageType != store.MessageTypeAI {
		t.Errorf("unexpected message types: %s, %s", st.messages[0].MessageType, st.messages[1].MessageType)
	}
}

func TestChat_QuotaTriggersCooldown(t *testing.T) {
	calls := 0
	svc, _, done := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"quota exceeded"}}`))
	})
	defer done()

	result, err := svc.Chat(context.Background(), "user-1", "question one")
	if err != nil {
		t.Fatalf("quota must not surface as an error: %v", err)
	}
	if result.Message != cooldownReply {
		t.Errorf("expected cooldown reply, got %q", result.Message)
	}
	if calls != 1 {
		t.Errorf("quota errors must not be retried, provider called %d times", calls)
	}

	// second turn during the cooldown never reaches the provider
	result, _ = svc.Chat(context.Background(), "user-1", "question two")
	if result.Message != cooldownReply {
		t.Errorf("expected cooldown reply during window, got %q", result.Message)
	}
	if calls != 1 {
		t.Errorf("cooldown must suppress further attempts, provider called %d times", calls)
	}
}

func TestChat_FallbackRotates(t *testing.T) {
	svc, _, done := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"bad request"}}`))
	})
	defer done()

	first, _ := svc.Chat(context.Background(), "user-1", "q1")
	second, _ := svc.Chat(context.Background(), "user-1", "q2")

	if first.Message == second.Message {
		t.Errorf("expected rotating fallbacks, got %q twice", first.Message)
	}
	for _, msg := range []string{first.Message, second.Message} {
		found := false
		for _, fb := range fallbackReplies {
			if msg == fb {
				found = true
			}
		}
		if !found {
			t.Errorf("reply %q is not a known fallback", msg)
		}
	}
}

func TestBuildChatPrompt(t *testing.T) {
	summary := TradingSummary{TradeCount: 4, WinRate: 50, TotalPL: 80}
	history := []ConversationTurn{
		{Role: "user", Text: "hello"},
		{Role: "ai", Text: "hi there"},
	}

	prompt := buildChatPrompt(summary, history, "[LIVE WEB DATA] BTC at 97k", "what now?")

	for _, want := range []string{
		"recorded 4 trades",
		"50.0% win rate",
		"User: hello",
		"Assistant: hi there",
		"[LIVE WEB DATA] BTC at 97k",
		"User: what now?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if !strings.HasSuffix(prompt, "Assistant:") {
		t.Error("prompt must end at the assistant cue")
	}
}

func TestChat_HistoryRehydratedFromStore(t *testing.T) {
	var gotPrompt string
	svc, st, done := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotPrompt = string(body)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	})
	defer done()

	// newest-first, as the store returns them
	st.history = []*store.ChatMessage{
		{Message: "earlier reply", MessageType: store.MessageTypeAI},
		{Message: "earlier question", MessageType: store.MessageTypeUser},
	}

	if _, err := svc.Chat(context.Background(), "user-1", "follow-up"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	qIdx := strings.Index(gotPrompt, "earlier question")
	rIdx := strings.Index(gotPrompt, "earlier reply")
	if qIdx == -1 || rIdx == -1 {
		t.Fatal("expected rehydrated history in the prompt")
	}
	if qIdx > rIdx {
		t.Error("history must appear in chronological order")
	}
}
