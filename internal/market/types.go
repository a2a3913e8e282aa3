// Package market fetches crypto prices, gold spot, market sentiment and
// news from public providers. Every fetch degrades to a static default on
// failure so the aggregate snapshot always resolves.
package market

import "time"

// Source labels where a snapshot section came from.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

// CoinPrice is one coin's spot price with its 24h percentage change.
type CoinPrice struct {
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
}

// CryptoPrices holds the tracked coins.
type CryptoPrices struct {
	BTC    CoinPrice `json:"btc"`
	ETH    CoinPrice `json:"eth"`
	Source string    `json:"source"`
}

// GoldPrice is the precious-metal spot quote.
type GoldPrice struct {
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
	Source    string  `json:"source"`
}

// Sentiment is the fear-greed index on a 0-100 scale.
type Sentiment struct {
	Value  int    `json:"value"`
	Label  string `json:"label"`
	Source string `json:"source"`
}

// NewsItem is one market news headline.
type NewsItem struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Link        string    `json:"link"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	ImageURL    string    `json:"image_url,omitempty"`
}

// NewsList wraps the headlines with their source label.
type NewsList struct {
	Items  []NewsItem `json:"items"`
	Source string     `json:"source"`
}

// Snapshot is the aggregate of all four market fetches.
type Snapshot struct {
	Crypto    CryptoPrices `json:"crypto"`
	Gold      GoldPrice    `json:"gold"`
	Sentiment Sentiment    `json:"sentiment"`
	News      NewsList     `json:"news"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// Static defaults served when a provider is unreachable. Values are
// deliberately round and slightly stale-looking so a fallback snapshot is
// recognizable in the UI next to its source label.
func fallbackCrypto() CryptoPrices {
	return CryptoPrices{
		BTC:    CoinPrice{Price: 97000, Change24h: 0},
		ETH:    CoinPrice{Price: 3400, Change24h: 0},
		Source: SourceFallback,
	}
}

func fallbackGold() GoldPrice {
	return GoldPrice{Price: 2650, Change24h: 0, Source: SourceFallback}
}

func fallbackSentiment() Sentiment {
	return Sentiment{Value: 50, Label: "Neutral", Source: SourceFallback}
}

func fallbackNews() NewsList {
	return NewsList{
		Items: []NewsItem{
			{
				Title:   "Market data temporarily unavailable",
				Summary: "Live news could not be fetched. Showing placeholder content.",
				Source:  "system",
			},
		},
		Source: SourceFallback,
	}
}
