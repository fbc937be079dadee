// Package pricing resolves free-text pricing formulas to numeric prices by
// binding index codes against a pricing context: current spot values, with
// forward-curve values overlaid for a specific delivery month.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lngdesk/cargo-engine/internal/formula"
	"github.com/lngdesk/cargo-engine/internal/metrics"
	"github.com/lngdesk/cargo-engine/internal/model"
	"github.com/lngdesk/cargo-engine/internal/store"
)

// ErrNoPrice signals that no price could be derived from a formula. It is
// the expected outcome for blank, unresolvable, or non-finite formulas —
// callers must leave any previously-set price field untouched, never zero it.
var ErrNoPrice = errors.New("pricing: no derivable price")

// PriceScale is the number of decimal places prices are rounded to.
const PriceScale int32 = 3

// Quoter evaluates pricing formulas against market data held in a Store.
type Quoter struct {
	store store.Store
}

// NewQuoter creates a quoter backed by the given store.
func NewQuoter(st store.Store) *Quoter {
	return &Quoter{store: st}
}

// Evaluate resolves a formula to a price, rounded to PriceScale decimals.
//
// When refDate is non-empty and the latest forward-curve snapshot has a row
// for its month, that row's values override spot for those indices only; all
// other indices keep their spot value. A missing curve month falls back to
// spot transparently.
//
// Expected failures (blank formula, unresolvable text, division by zero)
// return ErrNoPrice. Store errors are returned as-is.
func (q *Quoter) Evaluate(ctx context.Context, rawFormula, refDate string) (decimal.Decimal, error) {
	if isBlank(rawFormula) {
		return decimal.Zero, ErrNoPrice
	}

	priceCtx, err := q.buildContext(ctx, refDate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build pricing context: %w", err)
	}

	normalized, err := formula.Normalize(rawFormula, priceCtx)
	if err != nil {
		metrics.FormulaEvaluations.WithLabelValues("normalize_failed").Inc()
		return decimal.Zero, ErrNoPrice
	}

	value, err := formula.EvalArithmetic(normalized)
	if err != nil {
		metrics.FormulaEvaluations.WithLabelValues("eval_failed").Inc()
		return decimal.Zero, ErrNoPrice
	}

	metrics.FormulaEvaluations.WithLabelValues("ok").Inc()
	return value.Round(PriceScale), nil
}

// buildContext merges spot prices with the forward-curve row for the
// reference month, forward values taking precedence.
func (q *Quoter) buildContext(ctx context.Context, refDate string) (map[string]decimal.Decimal, error) {
	spot, err := q.store.GetSpotPrices(ctx)
	if err != nil {
		return nil, err
	}

	priceCtx := make(map[string]decimal.Decimal, len(spot))
	for code, price := range spot {
		priceCtx[code] = price
	}

	if refDate == "" {
		return priceCtx, nil
	}
	month := formula.MonthKey(refDate)
	if month == "" {
		return priceCtx, nil
	}

	curve, err := q.store.GetForwardCurve(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range curve {
		if row.Month != month {
			continue
		}
		for code, price := range row.Prices {
			priceCtx[code] = price
		}
		break
	}
	return priceCtx, nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// DetectUnit re-exports unit inference so dashboard callers depend on one
// pricing surface.
func DetectUnit(rawFormula string) model.Unit {
	return formula.DetectUnit(rawFormula)
}
