package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/config"
)

// Client fetches the four market data sections. Every public method
// returns a usable value; provider failures are logged and replaced with
// the static fallback, never returned to the caller.
type Client struct {
	httpClient *http.Client
	cfg        config.MarketConfig
	logger     zerolog.Logger
}

// NewClient creates a market data client.
func NewClient(cfg config.MarketConfig, logger zerolog.Logger) *Client {
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

// FetchAll fetches all four sections concurrently and always resolves.
func (c *Client) FetchAll(ctx context.Context) *Snapshot {
	snap := &Snapshot{FetchedAt: time.Now().UTC()}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		snap.Crypto = c.FetchCryptoPrices(ctx)
	}()
	go func() {
		defer wg.Done()
		snap.Gold = c.FetchGoldPrice(ctx)
	}()
	go func() {
		defer wg.Done()
		snap.Sentiment = c.FetchSentiment(ctx)
	}()
	go func() {
		defer wg.Done()
		snap.News = c.FetchNews(ctx)
	}()

	wg.Wait()
	return snap
}

// getJSON issues a GET and decodes the body; non-2xx is an error.
func (c *Client) getJSON(ctx context.Context, url string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type coinGeckoPrice struct {
	USD       float64 `json:"usd"`
	USDChange float64 `json:"usd_24h_change"`
}

// FetchCryptoPrices returns BTC and ETH spot prices with 24h change.
func (c *Client) FetchCryptoPrices(ctx context.Context) CryptoPrices {
	var body map[string]coinGeckoPrice
	if err := c.getJSON(ctx, c.cfg.CryptoURL, &body); err != nil {
		c.logger.Warn().Err(err).Msg("crypto price fetch failed, using fallback")
		return fallbackCrypto()
	}

	btc, okBTC := body["bitcoin"]
	eth, okETH := body["ethereum"]
	if !okBTC || !okETH {
		c.logger.Warn().Msg("crypto price response missing coins, using fallback")
		return fallbackCrypto()
	}

	return CryptoPrices{
		BTC:    CoinPrice{Price: btc.USD, Change24h: btc.USDChange},
		ETH:    CoinPrice{Price: eth.USD, Change24h: eth.USDChange},
		Source: SourceLive,
	}
}

type goldAPIResponse struct {
	Price     float64 `json:"price"`
	Change24h float64 `json:"chp"`
}

// FetchGoldPrice returns the XAU spot quote.
func (c *Client) FetchGoldPrice(ctx context.Context) GoldPrice {
	var body goldAPIResponse
	if err := c.getJSON(ctx, c.cfg.GoldURL, &body); err != nil {
		c.logger.Warn().Err(err).Msg("gold price fetch failed, using fallback")
		return fallbackGold()
	}
	if body.Price <= 0 {
		c.logger.Warn().Msg("gold price response empty, using fallback")
		return fallbackGold()
	}

	return GoldPrice{Price: body.Price, Change24h: body.Change24h, Source: SourceLive}
}

type fearGreedResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
	} `json:"data"`
}

// FetchSentiment returns the fear-greed index.
func (c *Client) FetchSentiment(ctx context.Context) Sentiment {
	var body fearGreedResponse
	if err := c.getJSON(ctx, c.cfg.SentimentURL, &body); err != nil {
		c.logger.Warn().Err(err).Msg("sentiment fetch failed, using fallback")
		return fallbackSentiment()
	}
	if len(body.Data) == 0 {
		c.logger.Warn().Msg("sentiment response empty, using fallback")
		return fallbackSentiment()
	}

	var value int
	if _, err := fmt.Sscanf(body.Data[0].Value, "%d", &value); err != nil {
		c.logger.Warn().Err(err).Msg("sentiment value not numeric, using fallback")
		return fallbackSentiment()
	}

	return Sentiment{
		Value:  value,
		Label:  body.Data[0].Classification,
		Source: SourceLive,
	}
}

type newsResponse struct {
	Data []struct {
		Title       string `json:"title"`
		Body        string `json:"body"`
		URL         string `json:"url"`
		Source      string `json:"source"`
		PublishedOn int64  `json:"published_on"`
		ImageURL    string `json:"imageurl"`
	} `json:"Data"`
}

const maxNewsItems = 6

// FetchNews returns the latest market headlines.
func (c *Client) FetchNews(ctx context.Context) NewsList {
	var body newsResponse
	if err := c.getJSON(ctx, c.cfg.NewsURL, &body); err != nil {
		c.logger.Warn().Err(err).Msg("news fetch failed, using fallback")
		return fallbackNews()
	}
	if len(body.Data) == 0 {
		c.logger.Warn().Msg("news response empty, using fallback")
		return fallbackNews()
	}

	items := make([]NewsItem, 0, maxNewsItems)
	for _, n := range body.Data {
		if len(items) == maxNewsItems {
			break
		}
		summary := n.Body
		if len(summary) > 240 {
			summary = summary[:240] + "..."
		}
		items = append(items, NewsItem{
			Title:       n.Title,
			Summary:     summary,
			Link:        n.URL,
			Source:      n.Source,
			PublishedAt: time.Unix(n.PublishedOn, 0).UTC(),
			ImageURL:    n.ImageURL,
		})
	}

	return NewsList{Items: items, Source: SourceLive}
}
