// Package search decides when the assistant needs live web results and
// fetches them from a Serper-style provider.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/config"
)

// Trigger decides whether a user message warrants a web search before the
// assistant prompt is composed.
type Trigger interface {
	ShouldSearch(message string) bool
}

// greetingTrigger skips search only for exact greeting and acknowledgement
// messages; everything else searches.
type greetingTrigger struct {
	skip map[string]struct{}
}

// NewDefaultTrigger returns the standard trigger.
func NewDefaultTrigger() Trigger {
	patterns := []string{
		"hi", "hello", "hey", "yo", "sup",
		"good morning", "good afternoon", "good evening",
		"thanks", "thank you", "thx", "ty",
		"ok", "okay", "cool", "nice", "great",
		"yes", "no", "yep", "nope",
		"bye", "goodbye", "see you",
	}
	skip := make(map[string]struct{}, len(patterns))
	for _, p := range patterns {
		skip[p] = struct{}{}
	}
	return &greetingTrigger{skip: skip}
}

func (t *greetingTrigger) ShouldSearch(message string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = strings.TrimRight(normalized, "!.?")
	_, isGreeting := t.skip[normalized]
	return !isGreeting
}

// Result is the formatted search output ready for prompt embedding.
// Empty Text means search was skipped or failed.
type Result struct {
	Text string
	Used bool
}

// Client queries the search provider.
type Client struct {
	httpClient *http.Client
	cfg        config.SearchConfig
	logger     zerolog.Logger
}

// NewClient creates a search client.
func NewClient(cfg config.SearchConfig, logger zerolog.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		logger:     logger,
	}
}

type searchRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
	KnowledgeGraph struct {
		Title       string `json:"title"`
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"knowledgeGraph"`
	AnswerBox struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
	} `json:"answerBox"`
}

// Search fetches and formats results for the query. Provider failures are
// logged and return an empty result; the assistant degrades to the
// non-augmented prompt.
func (c *Client) Search(ctx context.Context, query string) Result {
	if !c.cfg.Enabled || c.cfg.APIKey == "" {
		return Result{}
	}

	maxResults := c.cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	payload, err := json.Marshal(searchRequest{Query: query, Num: maxResults})
	if err != nil {
		c.logger.Warn().Err(err).Msg("search request marshal failed")
		return Result{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		c.logger.Warn().Err(err).Msg("search request build failed")
		return Result{}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("search request failed")
		return Result{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("search provider returned non-OK status")
		return Result{}
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.logger.Warn().Err(err).Msg("search response decode failed")
		return Result{}
	}

	text := formatResults(query, &body, maxResults)
	if text == "" {
		return Result{}
	}
	return Result{Text: text, Used: true}
}

// formatResults merges the answer box, knowledge panel and organic results
// into a marker-prefixed plain-text block.
func formatResults(query string, body *searchResponse, maxResults int) string {
	var b strings.Builder

	if body.AnswerBox.Answer != "" {
		b.WriteString("Direct answer: " + body.AnswerBox.Answer + "\n")
	} else if body.AnswerBox.Snippet != "" {
		b.WriteString("Direct answer: " + body.AnswerBox.Snippet + "\n")
	}

	if body.KnowledgeGraph.Title != "" {
		b.WriteString(body.KnowledgeGraph.Title)
		if body.KnowledgeGraph.Type != "" {
			b.WriteString(" (" + body.KnowledgeGraph.Type + ")")
		}
		if body.KnowledgeGraph.Description != "" {
			b.WriteString(": " + body.KnowledgeGraph.Description)
		}
		b.WriteString("\n")
	}

	count := 0
	for _, r := range body.Organic {
		if count == maxResults {
			break
		}
		if r.Title == "" && r.Snippet == "" {
			continue
		}
		count++
		fmt.Fprintf(&b, "%d. %s: %s (%s)\n", count, r.Title, r.Snippet, r.Link)
	}

	if b.Len() == 0 {
		return ""
	}

	return fmt.Sprintf("[LIVE WEB DATA, retrieved %s] Results for %q:\n%s",
		time.Now().UTC().Format("2006-01-02"), query, b.String())
}
