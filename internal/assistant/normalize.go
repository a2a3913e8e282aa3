package assistant

import (
	"strconv"
	"strings"
	"time"

	"trade-journal/internal/store"
)

// parseNumber coerces an extracted numeric field into a float. Providers
// echo what they see on screen: thousands separators, currency symbols,
// parenthesized negatives. Returns nil for absent or unparseable values.
func parseNumber(v interface{}) *float64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case string:
		s := strings.TrimSpace(n)
		if s == "" || s == "-" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
			return nil
		}

		negative := false
		if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
			negative = true
			s = s[1 : len(s)-1]
		}

		s = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", "%", "", " ", "", "+", "").Replace(s)

		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		if negative {
			f = -f
		}
		return &f
	default:
		return nil
	}
}

// Textual timestamp layouts seen in platform screenshots. The year-less
// forms assume the current year.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var yearlessLayouts = []string{
	"Jan 2, 3:04:05 PM",
	"Jan 2, 15:04:05",
	"Jan 2 3:04:05 PM",
}

// parseDateTime coerces an extracted timestamp into UTC time. ISO 8601
// passes through; "Mon D, h:mm:ss AM/PM" forms get the current year.
// Returns nil when the value cannot be interpreted.
func parseDateTime(v interface{}) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}

	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}

	for _, layout := range yearlessLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = time.Date(time.Now().Year(), t.Month(), t.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
			return &t
		}
	}

	return nil
}

func parseString(v interface{}) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

// normalizeSide maps an extracted direction to a valid entry side.
// Unrecognized values default to Long so the record satisfies the store
// constraint; the user can correct it in the form.
func normalizeSide(v interface{}) store.EntrySide {
	s, ok := v.(string)
	if !ok {
		return store.SideLong
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short", "sell":
		return store.SideShort
	default:
		return store.SideLong
	}
}

// normalizePosition maps an extracted position state, defaulting to Closed
// since screenshots are almost always of completed trades.
func normalizePosition(v interface{}) store.PositionState {
	s, ok := v.(string)
	if !ok {
		return store.PositionClosed
	}
	if strings.EqualFold(strings.TrimSpace(s), "open") {
		return store.PositionOpen
	}
	return store.PositionClosed
}

// normalizeReason maps an extracted close reason to one of the stored
// values, defaulting to Other.
func normalizeReason(v interface{}) store.CloseReason {
	s, ok := v.(string)
	if !ok {
		return store.ReasonOther
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tp", "take profit", "take-profit", "takeprofit":
		return store.ReasonTP
	case "sl", "stop loss", "stop-loss", "stoploss":
		return store.ReasonSL
	case "early close", "early-close", "manual", "manual close", "closed early":
		return store.ReasonEarlyClose
	default:
		return store.ReasonOther
	}
}
