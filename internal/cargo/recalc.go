// Package cargo provides the profile recalculation pipeline, actualization,
// bulk import, trade matching, and the HTTP handlers around them.
//
// All monetary values use shopspring/decimal — never float64 for money.
package cargo

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lngdesk/cargo-engine/internal/formula"
	"github.com/lngdesk/cargo-engine/internal/metrics"
	"github.com/lngdesk/cargo-engine/internal/model"
	"github.com/lngdesk/cargo-engine/internal/pricing"
)

// Recalculator re-derives a profile's prices, revenue, cost, and P&L from
// its formulas and the current market data.
type Recalculator struct {
	quoter *pricing.Quoter
}

// NewRecalculator creates a recalculator backed by the given quoter.
func NewRecalculator(q *pricing.Quoter) *Recalculator {
	return &Recalculator{quoter: q}
}

// Recalculate applies the pricing pipeline to p in place. The steps are
// idempotent: reapplying without changing inputs yields the same profile.
//
// Formula-driven price derivation is skipped for Realized profiles unless
// force is set — a Realized cargo's economics never move on routine market
// refresh. A formula that yields no price leaves the existing absolute price
// untouched. The two P&L fields are recomputed unconditionally so the P&L
// invariant holds after every call.
func (r *Recalculator) Recalculate(ctx context.Context, p *model.CargoProfile, force bool) error {
	// 1. Price derivation. Sell prices off the delivery month; buy prices
	// off the loading month (falling back to delivery), since that is when
	// the physical purchase typically fixes.
	if !p.Realized() || force {
		if err := r.derivePrice(ctx, p.SellFormula, p.DeliveryDate, &p.AbsoluteSellPrice); err != nil {
			return err
		}
		buyDate := p.LoadingDate
		if buyDate == "" {
			buyDate = p.DeliveryDate
		}
		if err := r.derivePrice(ctx, p.BuyFormula, buyDate, &p.AbsoluteBuyPrice); err != nil {
			return err
		}
	}

	// 2. Revenue.
	if !p.DeliveredVolume.IsZero() && !p.AbsoluteSellPrice.IsZero() {
		p.SalesRevenue = p.DeliveredVolume.Mul(p.AbsoluteSellPrice)
	}

	// 3. Cost. A manually reconciled cost on a Realized profile is kept
	// unless force is set.
	if !p.LoadedVolume.IsZero() && !p.AbsoluteBuyPrice.IsZero() {
		if p.ReconciledPurchaseCost.IsZero() || !p.Realized() || force {
			p.ReconciledPurchaseCost = p.LoadedVolume.Mul(p.AbsoluteBuyPrice)
		}
	}

	// 4. Defaulting cascade. Each default fires only while the target is
	// unset; a manually entered value is never overwritten.
	if p.FinalSalesRevenue.IsZero() {
		p.FinalSalesRevenue = p.SalesRevenue
	}
	if p.ReconciledSalesRevenue.IsZero() {
		p.ReconciledSalesRevenue = p.FinalSalesRevenue
	}
	if p.FinalTotalCost.IsZero() {
		p.FinalTotalCost = p.ReconciledPurchaseCost
	}

	// 5–6. P&L, unconditionally.
	p.FinalPhysicalPnL = p.FinalSalesRevenue.Sub(p.FinalTotalCost)
	p.FinalTotalPnL = p.FinalPhysicalPnL.Add(p.TotalHedgingPnL)

	// Derived display fields.
	if p.VolumeUnit == "" {
		ref := p.SellFormula
		if ref == "" {
			ref = p.BuyFormula
		}
		p.VolumeUnit = formula.DetectUnit(ref)
	}
	if p.DeliveryDate != "" {
		p.DeliveryMonth = formula.MonthLabel(p.DeliveryDate)
	}

	return nil
}

// derivePrice evaluates one formula and overwrites dst on success. The
// ErrNoPrice sentinel leaves dst untouched; anything else is a store fault
// and propagates.
func (r *Recalculator) derivePrice(ctx context.Context, f, refDate string, dst *decimal.Decimal) error {
	price, err := r.quoter.Evaluate(ctx, f, refDate)
	if err != nil {
		if errors.Is(err, pricing.ErrNoPrice) {
			return nil
		}
		return fmt.Errorf("derive price: %w", err)
	}
	*dst = price
	return nil
}

// Actualize irrevocably moves a profile to the Realized bucket, backfilling
// the reconciled/final fields from their upstream values so the economics
// are locked in before formula-driven repricing is switched off. There is no
// reverse transition.
func (r *Recalculator) Actualize(ctx context.Context, p *model.CargoProfile) error {
	if p.ReconciledSalesRevenue.IsZero() {
		p.ReconciledSalesRevenue = p.SalesRevenue
	}
	if p.FinalSalesRevenue.IsZero() {
		p.FinalSalesRevenue = p.ReconciledSalesRevenue
	}
	if p.ReconciledPurchaseCost.IsZero() && !p.LoadedVolume.IsZero() && !p.AbsoluteBuyPrice.IsZero() {
		p.ReconciledPurchaseCost = p.LoadedVolume.Mul(p.AbsoluteBuyPrice)
	}
	if p.FinalTotalCost.IsZero() {
		p.FinalTotalCost = p.ReconciledPurchaseCost
	}

	p.PnLBucket = model.BucketRealized
	metrics.Actualizations.Inc()

	// Re-derive P&L from the now-frozen inputs.
	return r.Recalculate(ctx, p, false)
}
