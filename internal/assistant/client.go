// Package assistant wraps the generative-AI provider behind two
// operations: conversational text turns and screenshot trade extraction.
package assistant

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"trade-journal/config"
)

// ErrQuotaExceeded marks a rate-limit or quota failure from the provider.
// Callers treat it as a distinct user-visible condition and never retry it.
var ErrQuotaExceeded = errors.New("provider quota exceeded")

// Usage is token accounting reported by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Client is the generative-AI API client.
type Client struct {
	cfg        config.AIConfig
	httpClient *http.Client
}

// NewClient creates a provider client.
func NewClient(cfg config.AIConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// IsConfigured checks if the client has an API key.
func (c *Client) IsConfigured() bool {
	return c.cfg.APIKey != ""
}

type generatePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *generateInline `json:"inline_data,omitempty"`
}

type generateInline struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
		Temperature     float64 `json:"temperature,omitempty"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateText sends a single text-generation request and returns the
// completion verbatim.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, *Usage, error) {
	req := generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	}
	return c.generate(ctx, c.cfg.Model, &req)
}

// GenerateVision sends an image plus prompt to the multimodal endpoint.
func (c *Client) GenerateVision(ctx context.Context, prompt string, image []byte, mimeType string) (string, *Usage, error) {
	req := generateRequest{
		Contents: []generateContent{{Parts: []generatePart{
			{Text: prompt},
			{InlineData: &generateInline{
				MimeType: mimeType,
				Data:     base64.StdEncoding.EncodeToString(image),
			}},
		}}},
	}

	model := c.cfg.VisionModel
	if model == "" {
		model = c.cfg.Model
	}
	return c.generate(ctx, model, &req)
}

func (c *Client) generate(ctx context.Context, model string, req *generateRequest) (string, *Usage, error) {
	if !c.IsConfigured() {
		return "", nil, fmt.Errorf("AI provider not configured")
	}

	req.GenerationConfig.MaxOutputTokens = c.cfg.MaxTokens
	req.GenerationConfig.Temperature = c.cfg.Temperature

	body, err := json.Marshal(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), model, c.cfg.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", nil, fmt.Errorf("%w: status 429", ErrQuotaExceeded)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if genResp.Error != nil {
		apiErr := fmt.Errorf("API error: %s - %s", genResp.Error.Status, genResp.Error.Message)
		if isQuotaError(apiErr) || genResp.Error.Code == http.StatusTooManyRequests {
			return "", nil, fmt.Errorf("%w: %s", ErrQuotaExceeded, genResp.Error.Message)
		}
		return "", nil, apiErr
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", nil, fmt.Errorf("empty response from provider")
	}

	usage := &Usage{
		PromptTokens:     genResp.UsageMetadata.PromptTokenCount,
		CompletionTokens: genResp.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      genResp.UsageMetadata.TotalTokenCount,
	}

	var text strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), usage, nil
}

// isQuotaError detects rate-limit and quota conditions by keyword.
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	quotaPatterns := []string{
		"quota",
		"rate limit",
		"resource_exhausted",
		"resource exhausted",
		"too many requests",
		"429",
	}
	for _, pattern := range quotaPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// isRetryable determines if a generation error should trigger a retry.
// Quota errors are never retried; they short-circuit to the cooldown path.
func isRetryable(err error) bool {
	if err == nil || isQuotaError(err) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"service unavailable",
		"gateway timeout",
		"503",
		"504",
		"unavailable",
		"internal",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
