package pricing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lngdesk/cargo-engine/internal/model"
	"github.com/lngdesk/cargo-engine/internal/pricing"
	"github.com/lngdesk/cargo-engine/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// newQuoter creates a quoter over an in-memory store seeded with spot prices.
func newQuoter(t *testing.T, spot map[string]decimal.Decimal) (*pricing.Quoter, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	if err := ms.SetSpotPrices(context.Background(), spot); err != nil {
		t.Fatalf("failed to seed spot prices: %v", err)
	}
	return pricing.NewQuoter(ms), ms
}

func TestEvaluate_PercentageEscalator(t *testing.T) {
	q, _ := newQuoter(t, map[string]decimal.Decimal{"HH": d(3.00)})

	price, err := q.Evaluate(context.Background(), "HH + 20%", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(d(3.6)) {
		t.Errorf("expected 3.600, got %s", price)
	}
}

func TestEvaluate_AliasResolution(t *testing.T) {
	q, _ := newQuoter(t, map[string]decimal.Decimal{"HH": d(3.10)})

	price, err := q.Evaluate(context.Background(), "Henry Hub + 2.5", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(d(5.6)) {
		t.Errorf("expected 5.600, got %s", price)
	}
}

func TestEvaluate_LeadingPercentFactor(t *testing.T) {
	q, _ := newQuoter(t, map[string]decimal.Decimal{"NBP": d(11.5)})

	price, err := q.Evaluate(context.Background(), "95% NBP - 0.25", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(d(10.675)) {
		t.Errorf("expected 10.675, got %s", price)
	}
}

func TestEvaluate_ForwardCurveOverride(t *testing.T) {
	q, ms := newQuoter(t, map[string]decimal.Decimal{"TTF": d(12.00)})

	curve := []model.ForwardCurveRow{
		{Month: "2025-08", Prices: map[string]decimal.Decimal{"TTF": d(14.50)}},
	}
	if err := ms.SaveForwardCurve(context.Background(), "2025-07-01", curve); err != nil {
		t.Fatalf("failed to save curve: %v", err)
	}

	// Reference date inside the curve month: forward value wins.
	price, err := q.Evaluate(context.Background(), "TTF - 0.50", "2025-08-25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(d(14.00)) {
		t.Errorf("expected 14.000, got %s", price)
	}

	// Month absent from the curve: transparent fallback to spot.
	price, err = q.Evaluate(context.Background(), "TTF - 0.50", "2025-09-25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(d(11.50)) {
		t.Errorf("expected 11.500, got %s", price)
	}
}

func TestEvaluate_OnlyLatestSnapshotConsulted(t *testing.T) {
	q, ms := newQuoter(t, map[string]decimal.Decimal{"TTF": d(12.00)})

	older := []model.ForwardCurveRow{
		{Month: "2025-08", Prices: map[string]decimal.Decimal{"TTF": d(14.50)}},
	}
	newer := []model.ForwardCurveRow{
		{Month: "2025-08", Prices: map[string]decimal.Decimal{"TTF": d(15.25)}},
	}
	ctx := context.Background()
	if err := ms.SaveForwardCurve(ctx, "2025-07-01", older); err != nil {
		t.Fatal(err)
	}
	if err := ms.SaveForwardCurve(ctx, "2025-07-15", newer); err != nil {
		t.Fatal(err)
	}

	price, err := q.Evaluate(ctx, "TTF", "2025-08-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(d(15.25)) {
		t.Errorf("expected latest snapshot value 15.250, got %s", price)
	}
}

func TestEvaluate_WholeWordSafety(t *testing.T) {
	q, _ := newQuoter(t, map[string]decimal.Decimal{
		"NBP":     d(10),
		"ZEE NBP": d(20),
	})

	price, err := q.Evaluate(context.Background(), "ZEE NBP + NBP", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(d(30)) {
		t.Errorf("expected 30, got %s", price)
	}
}

func TestEvaluate_BlankFormula(t *testing.T) {
	q, _ := newQuoter(t, map[string]decimal.Decimal{"HH": d(3)})

	for _, f := range []string{"", "   ", "\t\n"} {
		_, err := q.Evaluate(context.Background(), f, "")
		if !errors.Is(err, pricing.ErrNoPrice) {
			t.Errorf("Evaluate(%q): expected ErrNoPrice, got %v", f, err)
		}
	}
}

func TestEvaluate_UnresolvableReturnsNoPrice(t *testing.T) {
	q, _ := newQuoter(t, map[string]decimal.Decimal{"HH": d(3)})

	_, err := q.Evaluate(context.Background(), "Alpha + Beta", "")
	if !errors.Is(err, pricing.ErrNoPrice) {
		t.Errorf("expected ErrNoPrice, got %v", err)
	}
}

func TestEvaluate_DivisionByZeroReturnsNoPrice(t *testing.T) {
	q, _ := newQuoter(t, map[string]decimal.Decimal{"HH": d(3)})

	_, err := q.Evaluate(context.Background(), "HH / 0", "")
	if !errors.Is(err, pricing.ErrNoPrice) {
		t.Errorf("expected ErrNoPrice, got %v", err)
	}
}

func TestEvaluate_RoundsToThreeDecimals(t *testing.T) {
	q, _ := newQuoter(t, map[string]decimal.Decimal{"HH": d(3)})

	price, err := q.Evaluate(context.Background(), "HH / 7", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(d(0.429)) {
		t.Errorf("expected 0.429, got %s", price)
	}
}
