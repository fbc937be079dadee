package cargo

import (
	"github.com/lngdesk/cargo-engine/internal/model"
)

// ApplyPartial overlays a partially-populated profile (e.g. fields extracted
// from an uploaded document) onto dst. Only non-empty / non-zero source
// fields override; the rest of dst is preserved. Identity, bucket, and the
// derived financials are never taken from the partial — the caller
// recalculates afterwards.
func ApplyPartial(dst *model.CargoProfile, src *model.CargoProfile) {
	if src.Counterparty != "" {
		dst.Counterparty = src.Counterparty
	}
	if src.Vessel != "" {
		dst.Vessel = src.Vessel
	}
	if src.Source != "" {
		dst.Source = src.Source
	}
	if src.Destination != "" {
		dst.Destination = src.Destination
	}
	if src.Commodity != "" {
		dst.Commodity = src.Commodity
	}
	if src.SellFormula != "" {
		dst.SellFormula = src.SellFormula
	}
	if src.BuyFormula != "" {
		dst.BuyFormula = src.BuyFormula
	}
	if !src.AbsoluteSellPrice.IsZero() {
		dst.AbsoluteSellPrice = src.AbsoluteSellPrice
	}
	if !src.AbsoluteBuyPrice.IsZero() {
		dst.AbsoluteBuyPrice = src.AbsoluteBuyPrice
	}
	if !src.DeliveredVolume.IsZero() {
		dst.DeliveredVolume = src.DeliveredVolume
	}
	if !src.LoadedVolume.IsZero() {
		dst.LoadedVolume = src.LoadedVolume
	}
	if src.VolumeUnit != "" {
		dst.VolumeUnit = src.VolumeUnit
	}
	if src.DeliveryDate != "" {
		dst.DeliveryDate = src.DeliveryDate
	}
	if src.DeliveryWindowStart != "" {
		dst.DeliveryWindowStart = src.DeliveryWindowStart
	}
	if src.DeliveryWindowEnd != "" {
		dst.DeliveryWindowEnd = src.DeliveryWindowEnd
	}
	if src.LoadingDate != "" {
		dst.LoadingDate = src.LoadingDate
	}
	if src.LoadingWindowStart != "" {
		dst.LoadingWindowStart = src.LoadingWindowStart
	}
	if src.LoadingWindowEnd != "" {
		dst.LoadingWindowEnd = src.LoadingWindowEnd
	}
	if !src.TotalHedgingPnL.IsZero() {
		dst.TotalHedgingPnL = src.TotalHedgingPnL
	}
}

// MergeMatchedTrade merges a buy-side profile into a sell-side profile, producing
// one combined cargo. The sell side keeps its identity and sell terms; the
// buy side contributes purchase terms, loading dates, and load-port fields
// wherever the sell side has none. The caller must recalculate the merged
// profile exactly once.
func MergeMatchedTrade(sell, buy *model.CargoProfile) *model.CargoProfile {
	merged := *sell

	if merged.BuyFormula == "" {
		merged.BuyFormula = buy.BuyFormula
	}
	if merged.AbsoluteBuyPrice.IsZero() {
		merged.AbsoluteBuyPrice = buy.AbsoluteBuyPrice
	}
	if merged.LoadedVolume.IsZero() {
		merged.LoadedVolume = buy.LoadedVolume
	}
	if merged.LoadingDate == "" {
		merged.LoadingDate = buy.LoadingDate
		merged.LoadingWindowStart = buy.LoadingWindowStart
		merged.LoadingWindowEnd = buy.LoadingWindowEnd
	}
	if merged.Source == "" {
		merged.Source = buy.Source
	}
	if merged.Counterparty == "" {
		merged.Counterparty = buy.Counterparty
	}
	if merged.Vessel == "" {
		merged.Vessel = buy.Vessel
	}
	if merged.ReconciledPurchaseCost.IsZero() {
		merged.ReconciledPurchaseCost = buy.ReconciledPurchaseCost
	}
	merged.TotalHedgingPnL = merged.TotalHedgingPnL.Add(buy.TotalHedgingPnL)

	return &merged
}
