package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"trade-journal/config"
)

func TestTrigger_SkipsOnlyExactGreetings(t *testing.T) {
	trigger := NewDefaultTrigger()

	tests := []struct {
		message string
		want    bool
	}{
		{"hi", false},
		{"  Hello  ", false},
		{"thanks!", false},
		{"OK", false},
		{"good morning", false},
		{"hi, what is the BTC price today", true},
		{"what moved gold this week", true},
		{"should I close my EURUSD short", true},
		{"", true},
	}

	for _, tt := range tests {
		if got := trigger.ShouldSearch(tt.message); got != tt.want {
			t.Errorf("ShouldSearch(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestSearch_FormatsOrganicResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "key" {
			t.Errorf("missing api key header")
		}
		w.Write([]byte(`{
			"organic": [
				{"title": "BTC hits high", "link": "https://a.example", "snippet": "Bitcoin rallied"},
				{"title": "ETH follows", "link": "https://b.example", "snippet": "Ether gained"}
			],
			"answerBox": {"answer": "BTC is at $97,000"}
		}`))
	}))
	defer srv.Close()

	c := NewClient(config.SearchConfig{
		Enabled:    true,
		APIKey:     "key",
		BaseURL:    srv.URL,
		MaxResults: 5,
		Timeout:    2,
	}, zerolog.Nop())

	result := c.Search(context.Background(), "btc price")

	if !result.Used {
		t.Fatal("expected search to be used")
	}
	if !strings.HasPrefix(result.Text, "[LIVE WEB DATA") {
		t.Errorf("expected live data marker, got %q", result.Text)
	}
	if !strings.Contains(result.Text, "Direct answer: BTC is at $97,000") {
		t.Errorf("expected answer box in output: %q", result.Text)
	}
	if !strings.Contains(result.Text, "1. BTC hits high: Bitcoin rallied (https://a.example)") {
		t.Errorf("expected numbered organic result: %q", result.Text)
	}
}

func TestSearch_ProviderFailureReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(config.SearchConfig{
		Enabled: true,
		APIKey:  "key",
		BaseURL: srv.URL,
		Timeout: 2,
	}, zerolog.Nop())

	result := c.Search(context.Background(), "anything")

	if result.Used || result.Text != "" {
		t.Errorf("expected empty result on provider failure, got %+v", result)
	}
}

func TestSearch_DisabledReturnsEmpty(t *testing.T) {
	c := NewClient(config.SearchConfig{Enabled: false}, zerolog.Nop())

	if result := c.Search(context.Background(), "btc"); result.Used {
		t.Error("disabled client must not search")
	}
}

func TestSearch_CapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic": [
			{"title": "a", "snippet": "1"},
			{"title": "b", "snippet": "2"},
			{"title": "c", "snippet": "3"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(config.SearchConfig{
		Enabled:    true,
		APIKey:     "key",
		BaseURL:    srv.URL,
		MaxResults: 2,
		Timeout:    2,
	}, zerolog.Nop())

	result := c.Search(context.Background(), "q")

	if strings.Contains(result.Text, "3. ") {
		t.Errorf("expected at most 2 results, got %q", result.Text)
	}
}
