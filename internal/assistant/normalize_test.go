package assistant

import (
	"testing"
	"time"

	"trade-journal/internal/store"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want *float64
	}{
		{"plain float", 12.5, f(12.5)},
		{"thousands separators", "3,401.188", f(3401.188)},
		{"currency symbol", "$1,200", f(1200)},
		{"parenthesized negative", "(12.50)", f(-12.50)},
		{"explicit plus", "+45.3", f(45.3)},
		{"percent suffix", "82.1%", f(82.1)},
		{"dash placeholder", "-", nil},
		{"empty string", "", nil},
		{"null string", "null", nil},
		{"nil", nil, nil},
		{"garbage", "abc", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseNumber(tt.in)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("parseNumber(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("parseNumber(%v) = %f, want %f", tt.in, *got, *tt.want)
			}
		})
	}
}

func f(v float64) *float64 { return &v }

func TestParseDateTime(t *testing.T) {
	t.Run("ISO passthrough", func(t *testing.T) {
		got := parseDateTime("2025-03-01T10:30:00Z")
		if got == nil {
			t.Fatal("expected parse to succeed")
		}
		want := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("textual format assumes current year", func(t *testing.T) {
		got := parseDateTime("Mar 5, 2:15:30 PM")
		if got == nil {
			t.Fatal("expected parse to succeed")
		}
		if got.Year() != time.Now().Year() {
			t.Errorf("expected current year, got %d", got.Year())
		}
		if got.Month() != time.March || got.Day() != 5 || got.Hour() != 14 || got.Minute() != 15 {
			t.Errorf("unexpected timestamp: %v", got)
		}
	})

	t.Run("unparseable", func(t *testing.T) {
		if got := parseDateTime("yesterday-ish"); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("non string", func(t *testing.T) {
		if got := parseDateTime(42.0); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})
}

func TestNormalizeCategoricalDefaults(t *testing.T) {
	if got := normalizeSide("SELL"); got != store.SideShort {
		t.Errorf("expected Short for sell, got %s", got)
	}
	if got := normalizeSide("weird value"); got != store.SideLong {
		t.Errorf("expected Long default, got %s", got)
	}

	if got := normalizePosition("open"); got != store.PositionOpen {
		t.Errorf("expected Open, got %s", got)
	}
	if got := normalizePosition("whatever"); got != store.PositionClosed {
		t.Errorf("expected Closed default, got %s", got)
	}

	if got := normalizeReason("take profit"); got != store.ReasonTP {
		t.Errorf("expected TP, got %s", got)
	}
	if got := normalizeReason("liquidation"); got != store.ReasonOther {
		t.Errorf("expected Other default, got %s", got)
	}
}
