package assistant

import (
	"fmt"
	"strings"
)

// Prompt templates for the two assistant operations
const (
	// PersonaPreamble frames every conversational turn
	PersonaPreamble = `You are a friendly, knowledgeable trading-journal assistant. You help the user reflect on their trading performance, answer market questions, and keep them disciplined about risk.

Guidelines:
- Be concise and conversational; plain text, no markdown headings.
- Ground your answers in the trading summary when the question is about the user's own performance.
- When a live data block is present, prefer it over your general knowledge and say the data is current.
- Never invent trades or statistics that are not in the summary.
- Do not give financial advice framed as a guarantee; talk in terms of risk and probability.`

	// PromptForexExtraction asks for a forex-style tabular screenshot
	PromptForexExtraction = `You are given a screenshot of a forex trading platform's closed-positions table. Extract the single most prominent trade row.

Your response must be valid JSON only, no prose, with this structure:
{
  "symbol": string or null,
  "type": "Long" | "Short" | null,
  "volumeLot": number or null,
  "openPrice": number or null,
  "closePrice": number or null,
  "tp": number or null,
  "sl": number or null,
  "position": "Open" | "Closed" | null,
  "openTime": string or null,
  "closeTime": string or null,
  "reason": "TP" | "SL" | "Early Close" | "Other" | null,
  "pnlUsd": number or null,
  "leverage": number or null,
  "contractSize": number or null
}

Use null for any field you cannot read. Times may be copied exactly as shown.`

	// PromptCryptoExtraction asks for a crypto-futures-style screenshot
	PromptCryptoExtraction = `You are given a screenshot of a crypto futures platform's position-history view. Extract the single most prominent closed position.

Your response must be valid JSON only, no prose, with this structure:
{
  "futuresSymbol": string or null,
  "marginMode": "Cross" | "Isolated" | null,
  "avgEntryPrice": number or null,
  "avgClosePrice": number or null,
  "direction": "Long" | "Short" | null,
  "marginAdjustmentHistory": string or null,
  "openTime": string or null,
  "closeTime": string or null,
  "closingQuantity": number or null,
  "realizedPnl": number or null
}

Use null for any field you cannot read. Times may be copied exactly as shown.`
)

// TradingSummary carries the headline stats embedded in every chat prompt.
type TradingSummary struct {
	TradeCount int
	WinRate    float64
	TotalPL    float64
}

func (s TradingSummary) String() string {
	if s.TradeCount == 0 {
		return "The user has not recorded any trades yet."
	}
	return fmt.Sprintf("The user has recorded %d trades with a %.1f%% win rate and a total P/L of %.2f USD.",
		s.TradeCount, s.WinRate, s.TotalPL)
}

// buildChatPrompt assembles the single prompt string for a text turn:
// persona, trading summary, recent conversation, optional search block,
// then the running message.
func buildChatPrompt(summary TradingSummary, history []ConversationTurn, searchBlock, message string) string {
	var b strings.Builder

	b.WriteString(PersonaPreamble)
	b.WriteString("\n\nTrading summary: ")
	b.WriteString(summary.String())

	if len(history) > 0 {
		b.WriteString("\n\nRecent conversation:\n")
		for _, turn := range history {
			switch turn.Role {
			case "user":
				b.WriteString("User: ")
			default:
				b.WriteString("Assistant: ")
			}
			b.WriteString(turn.Text)
			b.WriteString("\n")
		}
	}

	if searchBlock != "" {
		b.WriteString("\n\n")
		b.WriteString(searchBlock)
	}

	b.WriteString("\n\nUser: ")
	b.WriteString(message)
	b.WriteString("\nAssistant:")

	return b.String()
}
