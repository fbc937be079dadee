package pricing

import (
	"context"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/lngdesk/cargo-engine/internal/metrics"
	"github.com/lngdesk/cargo-engine/internal/store"
)

// RefreshSpotPrices applies a bounded random perturbation of at most ±2% to
// every spot index price, rounded to 2 decimals, and writes the result back.
// This simulates a market tick for environments without a live feed. The
// caller is responsible for recalculating non-Realized profiles afterwards.
func RefreshSpotPrices(ctx context.Context, st store.Store, rng *rand.Rand) (map[string]decimal.Decimal, error) {
	spot, err := st.GetSpotPrices(ctx)
	if err != nil {
		return nil, err
	}

	perturbed := make(map[string]decimal.Decimal, len(spot))
	for code, price := range spot {
		// factor in [0.98, 1.02]
		factor := decimal.NewFromFloat(1 + (rng.Float64()*2-1)*0.02)
		perturbed[code] = price.Mul(factor).Round(2)
	}

	if err := st.SetSpotPrices(ctx, perturbed); err != nil {
		return nil, err
	}
	metrics.MarketRefreshes.Inc()
	return perturbed, nil
}
