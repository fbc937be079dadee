// Package model defines the core domain types shared across the cargo engine.
// All monetary and volumetric values use shopspring/decimal — never float64
// for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bucket classifies a cargo's P&L state. It governs whether formula-driven
// recalculation still applies: Unrealized and Unspecified cargoes reprice on
// every market change, Realized cargoes are frozen.
type Bucket string

const (
	BucketRealized    Bucket = "Realized"
	BucketUnrealized  Bucket = "Unrealized"
	BucketUnspecified Bucket = "Unspecified"
)

// Unit is the volume unit of a cargo.
type Unit string

const (
	UnitMMBtu  Unit = "MMBtu"
	UnitCubicM Unit = "m3"
	UnitMT     Unit = "MT"
	UnitBarrel Unit = "bbl"
)

// ForwardCurveRow holds projected index prices for one delivery month.
// Month is a "YYYY-MM" key, unique within a curve snapshot.
type ForwardCurveRow struct {
	Month  string                     `json:"month" db:"month"`
	Prices map[string]decimal.Decimal `json:"prices" db:"prices"`
}

// CargoProfile is the central business entity: one physical cargo deal with
// its commercial terms, volumes, dates, and derived financials.
//
// The derived fields obey two invariants after every recalculation:
//
//	FinalPhysicalPnL = FinalSalesRevenue - FinalTotalCost
//	FinalTotalPnL    = FinalPhysicalPnL + TotalHedgingPnL
//
// A zero decimal means "unset" for the derived fields; the defaulting
// cascade never overwrites a non-zero value.
type CargoProfile struct {
	ID           string `json:"id" db:"id"`
	Counterparty string `json:"counterparty" db:"counterparty"`
	Vessel       string `json:"vessel" db:"vessel"`
	Source       string `json:"source" db:"source"`           // load port
	Destination  string `json:"destination" db:"destination"` // discharge port
	Commodity    string `json:"commodity" db:"commodity"`

	PnLBucket Bucket `json:"pnl_bucket" db:"pnl_bucket"`

	SellFormula       string          `json:"sell_formula" db:"sell_formula"`
	BuyFormula        string          `json:"buy_formula" db:"buy_formula"`
	AbsoluteSellPrice decimal.Decimal `json:"absolute_sell_price" db:"absolute_sell_price"`
	AbsoluteBuyPrice  decimal.Decimal `json:"absolute_buy_price" db:"absolute_buy_price"`

	DeliveredVolume decimal.Decimal `json:"delivered_volume" db:"delivered_volume"`
	LoadedVolume    decimal.Decimal `json:"loaded_volume" db:"loaded_volume"`
	VolumeUnit      Unit            `json:"volume_unit" db:"volume_unit"`

	DeliveryDate        string `json:"delivery_date" db:"delivery_date"` // ISO YYYY-MM-DD
	DeliveryWindowStart string `json:"delivery_window_start" db:"delivery_window_start"`
	DeliveryWindowEnd   string `json:"delivery_window_end" db:"delivery_window_end"`
	LoadingDate         string `json:"loading_date" db:"loading_date"`
	LoadingWindowStart  string `json:"loading_window_start" db:"loading_window_start"`
	LoadingWindowEnd    string `json:"loading_window_end" db:"loading_window_end"`
	DeliveryMonth       string `json:"delivery_month" db:"delivery_month"` // derived label, e.g. "Nov 2025"

	SalesRevenue           decimal.Decimal `json:"sales_revenue" db:"sales_revenue"`
	ReconciledPurchaseCost decimal.Decimal `json:"reconciled_purchase_cost" db:"reconciled_purchase_cost"`
	FinalSalesRevenue      decimal.Decimal `json:"final_sales_revenue" db:"final_sales_revenue"`
	ReconciledSalesRevenue decimal.Decimal `json:"reconciled_sales_revenue" db:"reconciled_sales_revenue"`
	FinalTotalCost         decimal.Decimal `json:"final_total_cost" db:"final_total_cost"`
	FinalPhysicalPnL       decimal.Decimal `json:"final_physical_pnl" db:"final_physical_pnl"`
	TotalHedgingPnL        decimal.Decimal `json:"total_hedging_pnl" db:"total_hedging_pnl"`
	FinalTotalPnL          decimal.Decimal `json:"final_total_pnl" db:"final_total_pnl"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Realized reports whether the cargo's financials are frozen.
func (p *CargoProfile) Realized() bool {
	return p.PnLBucket == BucketRealized
}
