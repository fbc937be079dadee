package formula

import (
	"testing"

	"github.com/lngdesk/cargo-engine/internal/model"
)

func TestDetectUnit(t *testing.T) {
	tests := []struct {
		formula string
		want    model.Unit
	}{
		{"13% Brent + 0.8", model.UnitBarrel},
		{"BRIPE - 1.2", model.UnitBarrel},
		{"105% JCC (n)", model.UnitBarrel},
		{"JKM + 0.2", model.UnitMMBtu},
		{"95% NBP - 0.25", model.UnitMMBtu},
		{"", model.UnitMMBtu},
	}
	for _, tt := range tests {
		if got := DetectUnit(tt.formula); got != tt.want {
			t.Errorf("DetectUnit(%q) = %s, want %s", tt.formula, got, tt.want)
		}
	}
}

func TestMonthKey_ISOSlicedDirectly(t *testing.T) {
	// First-of-month ISO dates must never drift a day across time zones:
	// the month key is sliced from the string, not round-tripped through
	// a time.Time.
	tests := []struct{ in, want string }{
		{"2025-11-01", "2025-11"},
		{"2025-08-25", "2025-08"},
		{"2025-01-31", "2025-01"},
		{"2025-08", "2025-08"},
	}
	for _, tt := range tests {
		if got := MonthKey(tt.in); got != tt.want {
			t.Errorf("MonthKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMonthKey_FallbackParsing(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2025-08-25T10:30:00Z", "2025-08"},
		{"11/05/2025", "2025-11"},
		{"not a date", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := MonthKey(tt.in); got != tt.want {
			t.Errorf("MonthKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMonthLabel(t *testing.T) {
	if got := MonthLabel("2025-11-15"); got != "Nov 2025" {
		t.Errorf("MonthLabel = %q, want %q", got, "Nov 2025")
	}
	if got := MonthLabel("garbage"); got != "" {
		t.Errorf("MonthLabel(garbage) = %q, want empty", got)
	}
}
