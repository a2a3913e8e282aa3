package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"trade-journal/internal/store"
)

// ErrCouldNotExtract marks a screenshot the provider could not turn into a
// parseable trade record. The caller falls back to manual entry.
var ErrCouldNotExtract = errors.New("could not extract trade data from image")

// stripMarkdownCodeBlock removes markdown code block formatting from
// provider responses. Handles ```json\n{...}\n``` and ```\n{...}\n```.
func stripMarkdownCodeBlock(response string) string {
	response = strings.TrimSpace(response)

	re := regexp.MustCompile("(?s)^```(?:json)?\\s*\\n?(.*?)\\n?```$")
	if matches := re.FindStringSubmatch(response); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	return response
}

// jsonObjectPattern grabs the outermost JSON-looking substring for the one
// recovery attempt after a direct parse failure.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseExtraction decodes the provider's response text into a raw field
// map, recovering once from surrounding prose.
func parseExtraction(response string) (map[string]interface{}, error) {
	clean := stripMarkdownCodeBlock(response)

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &fields); err == nil {
		return fields, nil
	}

	if match := jsonObjectPattern.FindString(clean); match != "" {
		if err := json.Unmarshal([]byte(match), &fields); err == nil {
			return fields, nil
		}
	}

	return nil, ErrCouldNotExtract
}

// ExtractTradeFromImage sends the screenshot through the multimodal
// endpoint with the instrument-appropriate template and normalizes the
// result into a trade record. The returned trade has no session or margin
// assigned; the caller supplies those before storing. No retry on the
// parse-recovery path.
func (s *Service) ExtractTradeFromImage(ctx context.Context, image []byte, mimeType string, sessionType store.SessionType) (*store.Trade, error) {
	if s.cache != nil && s.cache.InCooldown(ctx) {
		return nil, ErrQuotaExceeded
	}

	prompt := PromptForexExtraction
	if sessionType == store.SessionCrypto {
		prompt = PromptCryptoExtraction
	}

	response, _, err := s.client.GenerateVision(ctx, prompt, image, mimeType)
	if err != nil {
		if isQuotaError(err) {
			s.startCooldown(ctx)
			return nil, fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return nil, fmt.Errorf("image extraction failed: %w", err)
	}

	fields, err := parseExtraction(response)
	if err != nil {
		s.logger.Warn().Str("response", truncate(response, 200)).Msg("extraction parse failed")
		return nil, err
	}

	if sessionType == store.SessionCrypto {
		return normalizeCryptoExtraction(fields), nil
	}
	return normalizeForexExtraction(fields), nil
}

func normalizeForexExtraction(fields map[string]interface{}) *store.Trade {
	position := normalizePosition(fields["position"])
	reason := normalizeReason(fields["reason"])

	trade := &store.Trade{
		EntrySide: normalizeSide(fields["type"]),
		Source:    store.TradeSourceExtracted,
		Forex: &store.ForexLeg{
			Symbol:       parseString(fields["symbol"]),
			VolumeLot:    parseNumber(fields["volumeLot"]),
			OpenPrice:    parseNumber(fields["openPrice"]),
			ClosePrice:   parseNumber(fields["closePrice"]),
			TP:           parseNumber(fields["tp"]),
			SL:           parseNumber(fields["sl"]),
			Position:     &position,
			OpenTime:     parseDateTime(fields["openTime"]),
			CloseTime:    parseDateTime(fields["closeTime"]),
			Reason:       &reason,
			Leverage:     parseNumber(fields["leverage"]),
			ContractSize: parseNumber(fields["contractSize"]),
		},
	}

	if pnl := parseNumber(fields["pnlUsd"]); pnl != nil {
		trade.ProfitLoss = *pnl
	}
	return trade
}

func normalizeCryptoExtraction(fields map[string]interface{}) *store.Trade {
	trade := &store.Trade{
		EntrySide: normalizeSide(fields["direction"]),
		Source:    store.TradeSourceExtracted,
		Crypto: &store.CryptoLeg{
			FuturesSymbol:           parseString(fields["futuresSymbol"]),
			MarginMode:              parseString(fields["marginMode"]),
			AvgEntryPrice:           parseNumber(fields["avgEntryPrice"]),
			AvgClosePrice:           parseNumber(fields["avgClosePrice"]),
			MarginAdjustmentHistory: parseString(fields["marginAdjustmentHistory"]),
			ClosingQuantity:         parseNumber(fields["closingQuantity"]),
			RealizedPnl:             parseNumber(fields["realizedPnl"]),
			OpenTime:                parseDateTime(fields["openTime"]),
			CloseTime:               parseDateTime(fields["closeTime"]),
		},
	}

	if pnl := trade.Crypto.RealizedPnl; pnl != nil {
		trade.ProfitLoss = *pnl
	}
	return trade
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
