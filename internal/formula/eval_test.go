package formula

import (
	"errors"
	"testing"
)

func TestEvalArithmetic_Precedence(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"2 + 3 * 4", 14},
		{"2 * 3 + 4", 10},
		{"(2 + 3) * 4", 20},
		{"10 - 4 / 2", 8},
		{"3 * (1 + 20/100)", 3.6},
		{"(95/100) * 11.5 - 0.25", 10.675},
		{"100 / 4 / 5", 5}, // left-to-right
		{"10 - 2 - 3", 5},
	}
	for _, tt := range tests {
		got, err := EvalArithmetic(tt.expr)
		if err != nil {
			t.Errorf("EvalArithmetic(%q) error: %v", tt.expr, err)
			continue
		}
		if !got.Equal(d(tt.want)) {
			t.Errorf("EvalArithmetic(%q) = %s, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvalArithmetic_UnarySign(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"-5", -5},
		{"- 5 + 8", 3},
		{"+5", 5},
		{"2 * -3", -6},
		{"-(2 + 3)", -5},
	}
	for _, tt := range tests {
		got, err := EvalArithmetic(tt.expr)
		if err != nil {
			t.Errorf("EvalArithmetic(%q) error: %v", tt.expr, err)
			continue
		}
		if !got.Equal(d(tt.want)) {
			t.Errorf("EvalArithmetic(%q) = %s, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvalArithmetic_DivisionByZero(t *testing.T) {
	for _, expr := range []string{"1 / 0", "5 / (3 - 3)"} {
		_, err := EvalArithmetic(expr)
		if !errors.Is(err, ErrEval) {
			t.Errorf("EvalArithmetic(%q): expected ErrEval, got %v", expr, err)
		}
	}
}

func TestEvalArithmetic_Malformed(t *testing.T) {
	tests := []string{
		"",
		"5 +",
		"* 5",
		"(5",
		"5)",
		"1.2.3",
		".",
		"5 5",
	}
	for _, expr := range tests {
		if _, err := EvalArithmetic(expr); !errors.Is(err, ErrEval) {
			t.Errorf("EvalArithmetic(%q): expected ErrEval, got %v", expr, err)
		}
	}
}
