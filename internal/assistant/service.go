package assistant

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/config"
	"trade-journal/internal/cache"
	"trade-journal/internal/search"
	"trade-journal/internal/store"
)

// ConversationTurn is one side of one remembered exchange.
type ConversationTurn struct {
	Role string `json:"role"` // "user" or "ai"
	Text string `json:"text"`
}

// ChatResult is the outcome of a text turn.
type ChatResult struct {
	Message      string `json:"message"`
	Usage        *Usage `json:"usage,omitempty"`
	SearchUsed   bool   `json:"search_used"`
	LiveDataUsed bool   `json:"live_data_used"`
}

// Friendly strings served when the provider cannot answer. Rotated so
// repeated failures do not look frozen.
var fallbackReplies = []string{
	"I'm having trouble reaching my brain right now. Give me a moment and try again.",
	"Something went wrong on my end. Your journal is safe; please try that again shortly.",
	"I couldn't process that just now. Try rephrasing, or ask again in a minute.",
}

const cooldownReply = "I've hit my usage limit for the moment. I'll be back shortly; your trades and stats are unaffected."

// Service orchestrates text turns: conversation memory, search
// augmentation, retries and quota cooldown.
type Service struct {
	client   *Client
	store    store.Store
	cache    *cache.CacheService
	search   *search.Client
	trigger  search.Trigger
	cfg     config.AIConfig
	logger  zerolog.Logger

	mu          sync.Mutex
	fallbackIdx int
	// in-process cooldown deadline, used when Redis is unavailable
	cooldownUntil time.Time
}

// NewService creates the assistant service. The cache and search client
// may be nil; the service degrades to memory-less, non-augmented turns.
func NewService(client *Client, st store.Store, cs *cache.CacheService, sc *search.Client, trigger search.Trigger, cfg config.AIConfig, logger zerolog.Logger) *Service {
	if trigger == nil {
		trigger = search.NewDefaultTrigger()
	}
	return &Service{
		client:  client,
		store:   st,
		cache:   cs,
		search:  sc,
		trigger: trigger,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *Service) historyWindow() int {
	if s.cfg.HistoryWindow > 0 {
		return s.cfg.HistoryWindow
	}
	return 20
}

func (s *Service) maxRetries() int {
	if s.cfg.MaxRetries > 0 {
		return s.cfg.MaxRetries
	}
	return 3
}

func (s *Service) cooldownWindow() time.Duration {
	if s.cfg.CooldownMinutes > 0 {
		return time.Duration(s.cfg.CooldownMinutes) * time.Minute
	}
	return 5 * time.Minute
}

func (s *Service) inCooldown(ctx context.Context) bool {
	if s.cache != nil && s.cache.InCooldown(ctx) {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().Before(s.cooldownUntil)
}

func (s *Service) startCooldown(ctx context.Context) {
	window := s.cooldownWindow()

	s.mu.Lock()
	s.cooldownUntil = time.Now().Add(window)
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.SetCooldown(ctx, window); err != nil {
			s.logger.Debug().Err(err).Msg("cooldown flag not persisted")
		}
	}
	s.logger.Warn().Dur("window", window).Msg("provider quota hit, cooling down")
}

func (s *Service) nextFallback() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	reply := fallbackReplies[s.fallbackIdx%len(fallbackReplies)]
	s.fallbackIdx++
	return reply
}

// loadHistory returns the user's recent conversation window, oldest first.
// The Redis copy is authoritative; on a miss it is rehydrated from the
// persisted chat messages.
func (s *Service) loadHistory(ctx context.Context, userID string) []ConversationTurn {
	window := s.historyWindow()

	if s.cache != nil {
		var turns []ConversationTurn
		if err := s.cache.GetJSON(ctx, cache.ConversationKey(userID), &turns); err == nil {
			return turns
		}
	}

	msgs, err := s.store.ListChatMessages(ctx, userID, window)
	if err != nil {
		s.logger.Warn().Err(err).Msg("chat history rehydration failed")
		return nil
	}

	// store returns newest first; the prompt wants chronological order
	turns := make([]ConversationTurn, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		turns = append(turns, ConversationTurn{
			Role: msgs[i].MessageType,
			Text: msgs[i].Message,
		})
	}
	s.saveHistory(ctx, userID, turns)
	return turns
}

func (s *Service) saveHistory(ctx context.Context, userID string, turns []ConversationTurn) {
	if s.cache == nil {
		return
	}
	if window := s.historyWindow(); len(turns) > window {
		turns = turns[len(turns)-window:]
	}
	if err := s.cache.SetJSON(ctx, cache.ConversationKey(userID), turns, cache.DefaultConversationTTL); err != nil {
		s.logger.Debug().Err(err).Msg("conversation window not cached")
	}
}

// summarize computes the headline stats block from the user's trades.
func (s *Service) summarize(ctx context.Context, userID string) TradingSummary {
	trades, err := s.store.ListTradesForUser(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("trading summary unavailable")
		return TradingSummary{}
	}

	summary := TradingSummary{TradeCount: len(trades)}
	if len(trades) == 0 {
		return summary
	}

	wins := 0
	for _, t := range trades {
		summary.TotalPL += t.ProfitLoss
		if t.ProfitLoss > 0 {
			wins++
		}
	}
	summary.WinRate = float64(wins) / float64(len(trades)) * 100
	return summary
}

// Chat runs one text turn: assemble the prompt, call the provider with
// bounded retries, persist both sides of the exchange. Quota conditions
// and exhausted retries both produce a friendly reply rather than an
// error; the assistant path never blocks the rest of the application.
func (s *Service) Chat(ctx context.Context, userID, message string) (*ChatResult, error) {
	if s.inCooldown(ctx) {
		return &ChatResult{Message: cooldownReply}, nil
	}

	summary := s.summarize(ctx, userID)
	history := s.loadHistory(ctx, userID)

	var searchBlock string
	searchUsed := false
	if s.search != nil && s.trigger.ShouldSearch(message) {
		result := s.search.Search(ctx, message)
		searchBlock = result.Text
		searchUsed = result.Used
	}

	prompt := buildChatPrompt(summary, history, searchBlock, message)

	reply, usage, err := s.generateWithRetry(ctx, prompt)
	if err != nil {
		if isQuotaError(err) {
			s.startCooldown(ctx)
			reply = cooldownReply
		} else {
			s.logger.Error().Err(err).Msg("text turn failed after retries")
			reply = s.nextFallback()
		}
		usage = nil
	}

	s.persistTurn(ctx, userID, message, reply)
	s.saveHistory(ctx, userID, append(history,
		ConversationTurn{Role: store.MessageTypeUser, Text: message},
		ConversationTurn{Role: store.MessageTypeAI, Text: reply},
	))

	return &ChatResult{
		Message:      reply,
		Usage:        usage,
		SearchUsed:   searchUsed,
		LiveDataUsed: searchUsed,
	}, nil
}

// generateWithRetry retries transient failures with exponential backoff
// plus jitter. Quota errors short-circuit immediately.
func (s *Service) generateWithRetry(ctx context.Context, prompt string) (string, *Usage, error) {
	var lastErr error

	for attempt := 0; attempt < s.maxRetries(); attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
			select {
			case <-time.After(backoff + jitter):
			case <-ctx.Done():
				return "", nil, ctx.Err()
			}
		}

		reply, usage, err := s.client.GenerateText(ctx, prompt)
		if err == nil {
			return reply, usage, nil
		}

		lastErr = err
		if isQuotaError(err) {
			return "", nil, err
		}
		if !isRetryable(err) {
			return "", nil, err
		}
		s.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("text generation retrying")
	}

	return "", nil, fmt.Errorf("text generation exhausted retries: %w", lastErr)
}

// persistTurn stores both sides of the exchange. Persistence failures are
// logged, not surfaced; the reply still reaches the user.
func (s *Service) persistTurn(ctx context.Context, userID, message, reply string) {
	userMsg := &store.ChatMessage{
		UserID:      userID,
		Message:     message,
		MessageType: store.MessageTypeUser,
	}
	if err := s.store.AppendChatMessage(ctx, userMsg); err != nil {
		s.logger.Warn().Err(err).Msg("user chat message not persisted")
		return
	}

	aiMsg := &store.ChatMessage{
		UserID:      userID,
		Message:     reply,
		MessageType: store.MessageTypeAI,
	}
	if err := s.store.AppendChatMessage(ctx, aiMsg); err != nil {
		s.logger.Warn().Err(err).Msg("assistant chat message not persisted")
	}
}
