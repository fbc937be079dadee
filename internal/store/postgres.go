package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lngdesk/cargo-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision;
// curve rows store their index→price map as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const profileColumns = `id, counterparty, vessel, source, destination, commodity, pnl_bucket,
	sell_formula, buy_formula,
	absolute_sell_price::TEXT, absolute_buy_price::TEXT,
	delivered_volume::TEXT, loaded_volume::TEXT, volume_unit,
	delivery_date, delivery_window_start, delivery_window_end,
	loading_date, loading_window_start, loading_window_end, delivery_month,
	sales_revenue::TEXT, reconciled_purchase_cost::TEXT,
	final_sales_revenue::TEXT, reconciled_sales_revenue::TEXT,
	final_total_cost::TEXT, final_physical_pnl::TEXT,
	total_hedging_pnl::TEXT, final_total_pnl::TEXT,
	created_at, updated_at`

const profileInsert = `INSERT INTO cargo_profiles (
	id, counterparty, vessel, source, destination, commodity, pnl_bucket,
	sell_formula, buy_formula, absolute_sell_price, absolute_buy_price,
	delivered_volume, loaded_volume, volume_unit,
	delivery_date, delivery_window_start, delivery_window_end,
	loading_date, loading_window_start, loading_window_end, delivery_month,
	sales_revenue, reconciled_purchase_cost, final_sales_revenue,
	reconciled_sales_revenue, final_total_cost, final_physical_pnl,
	total_hedging_pnl, final_total_pnl, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9,
	$10::NUMERIC, $11::NUMERIC, $12::NUMERIC, $13::NUMERIC, $14,
	$15, $16, $17, $18, $19, $20, $21,
	$22::NUMERIC, $23::NUMERIC, $24::NUMERIC, $25::NUMERIC,
	$26::NUMERIC, $27::NUMERIC, $28::NUMERIC, $29::NUMERIC, $30, $31
)`

func profileArgs(p *model.CargoProfile) []any {
	return []any{
		p.ID, p.Counterparty, p.Vessel, p.Source, p.Destination, p.Commodity,
		string(p.PnLBucket), p.SellFormula, p.BuyFormula,
		p.AbsoluteSellPrice.String(), p.AbsoluteBuyPrice.String(),
		p.DeliveredVolume.String(), p.LoadedVolume.String(), string(p.VolumeUnit),
		p.DeliveryDate, p.DeliveryWindowStart, p.DeliveryWindowEnd,
		p.LoadingDate, p.LoadingWindowStart, p.LoadingWindowEnd, p.DeliveryMonth,
		p.SalesRevenue.String(), p.ReconciledPurchaseCost.String(),
		p.FinalSalesRevenue.String(), p.ReconciledSalesRevenue.String(),
		p.FinalTotalCost.String(), p.FinalPhysicalPnL.String(),
		p.TotalHedgingPnL.String(), p.FinalTotalPnL.String(),
		p.CreatedAt, p.UpdatedAt,
	}
}

func (s *PostgresStore) CreateProfile(ctx context.Context, p *model.CargoProfile) error {
	_, err := s.pool.Exec(ctx, profileInsert, profileArgs(p)...)
	return err
}

func (s *PostgresStore) UpsertProfile(ctx context.Context, p *model.CargoProfile) error {
	query := profileInsert + ` ON CONFLICT (id) DO UPDATE SET
		counterparty = EXCLUDED.counterparty, vessel = EXCLUDED.vessel,
		source = EXCLUDED.source, destination = EXCLUDED.destination,
		commodity = EXCLUDED.commodity, pnl_bucket = EXCLUDED.pnl_bucket,
		sell_formula = EXCLUDED.sell_formula, buy_formula = EXCLUDED.buy_formula,
		absolute_sell_price = EXCLUDED.absolute_sell_price,
		absolute_buy_price = EXCLUDED.absolute_buy_price,
		delivered_volume = EXCLUDED.delivered_volume,
		loaded_volume = EXCLUDED.loaded_volume, volume_unit = EXCLUDED.volume_unit,
		delivery_date = EXCLUDED.delivery_date,
		delivery_window_start = EXCLUDED.delivery_window_start,
		delivery_window_end = EXCLUDED.delivery_window_end,
		loading_date = EXCLUDED.loading_date,
		loading_window_start = EXCLUDED.loading_window_start,
		loading_window_end = EXCLUDED.loading_window_end,
		delivery_month = EXCLUDED.delivery_month,
		sales_revenue = EXCLUDED.sales_revenue,
		reconciled_purchase_cost = EXCLUDED.reconciled_purchase_cost,
		final_sales_revenue = EXCLUDED.final_sales_revenue,
		reconciled_sales_revenue = EXCLUDED.reconciled_sales_revenue,
		final_total_cost = EXCLUDED.final_total_cost,
		final_physical_pnl = EXCLUDED.final_physical_pnl,
		total_hedging_pnl = EXCLUDED.total_hedging_pnl,
		final_total_pnl = EXCLUDED.final_total_pnl,
		updated_at = EXCLUDED.updated_at`
	_, err := s.pool.Exec(ctx, query, profileArgs(p)...)
	return err
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*model.CargoProfile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM cargo_profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: profile %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get profile %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) ListProfiles(ctx context.Context) ([]model.CargoProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM cargo_profiles ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []model.CargoProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func (s *PostgresStore) DeleteProfile(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cargo_profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: profile %s", ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) GetSpotPrices(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := s.pool.Query(ctx, `SELECT code, price::TEXT FROM spot_prices`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make(map[string]decimal.Decimal)
	for rows.Next() {
		var code, priceS string
		if err := rows.Scan(&code, &priceS); err != nil {
			return nil, err
		}
		prices[code], _ = decimal.NewFromString(priceS)
	}
	return prices, rows.Err()
}

func (s *PostgresStore) SetSpotPrices(ctx context.Context, prices map[string]decimal.Decimal) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM spot_prices`); err != nil {
		return err
	}
	for code, price := range prices {
		if _, err := tx.Exec(ctx,
			`INSERT INTO spot_prices (code, price) VALUES ($1, $2::NUMERIC)`,
			code, price.String()); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) MergeSpotPrices(ctx context.Context, prices map[string]decimal.Decimal) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for code, price := range prices {
		if _, err := tx.Exec(ctx,
			`INSERT INTO spot_prices (code, price) VALUES ($1, $2::NUMERIC)
			 ON CONFLICT (code) DO UPDATE SET price = EXCLUDED.price`,
			code, price.String()); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) SaveForwardCurve(ctx context.Context, asOf string, rows []model.ForwardCurveRow) error {
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if seen[row.Month] {
			return fmt.Errorf("duplicate curve month %s in snapshot %s", row.Month, asOf)
		}
		seen[row.Month] = true
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Re-saving an as-of date replaces the snapshot and promotes it to latest.
	if _, err := tx.Exec(ctx, `DELETE FROM forward_curves WHERE as_of = $1`, asOf); err != nil {
		return err
	}
	for _, row := range rows {
		pricesJSON, err := json.Marshal(row.Prices)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO forward_curves (as_of, month, prices, saved_at)
			 VALUES ($1, $2, $3::JSONB, NOW())`,
			asOf, row.Month, pricesJSON); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetForwardCurve(ctx context.Context) ([]model.ForwardCurveRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT month, prices
		 FROM forward_curves
		 WHERE as_of = (SELECT as_of FROM forward_curves ORDER BY saved_at DESC LIMIT 1)
		 ORDER BY month`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	curve := []model.ForwardCurveRow{}
	for rows.Next() {
		var row model.ForwardCurveRow
		var pricesJSON []byte
		if err := rows.Scan(&row.Month, &pricesJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(pricesJSON, &row.Prices); err != nil {
			return nil, err
		}
		curve = append(curve, row)
	}
	return curve, rows.Err()
}

func (s *PostgresStore) ListCurveDates(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT as_of FROM forward_curves GROUP BY as_of ORDER BY MIN(saved_at)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// rowScanner abstracts pgx.Row and pgx.Rows for shared profile scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*model.CargoProfile, error) {
	var p model.CargoProfile
	var bucket, unit string
	var sellPrice, buyPrice, delivered, loaded string
	var salesRev, reconCost, finalRev, reconRev, finalCost, physPnL, hedgePnL, totalPnL string

	if err := row.Scan(
		&p.ID, &p.Counterparty, &p.Vessel, &p.Source, &p.Destination, &p.Commodity,
		&bucket, &p.SellFormula, &p.BuyFormula,
		&sellPrice, &buyPrice, &delivered, &loaded, &unit,
		&p.DeliveryDate, &p.DeliveryWindowStart, &p.DeliveryWindowEnd,
		&p.LoadingDate, &p.LoadingWindowStart, &p.LoadingWindowEnd, &p.DeliveryMonth,
		&salesRev, &reconCost, &finalRev, &reconRev,
		&finalCost, &physPnL, &hedgePnL, &totalPnL,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.PnLBucket = model.Bucket(bucket)
	p.VolumeUnit = model.Unit(unit)
	p.AbsoluteSellPrice, _ = decimal.NewFromString(sellPrice)
	p.AbsoluteBuyPrice, _ = decimal.NewFromString(buyPrice)
	p.DeliveredVolume, _ = decimal.NewFromString(delivered)
	p.LoadedVolume, _ = decimal.NewFromString(loaded)
	p.SalesRevenue, _ = decimal.NewFromString(salesRev)
	p.ReconciledPurchaseCost, _ = decimal.NewFromString(reconCost)
	p.FinalSalesRevenue, _ = decimal.NewFromString(finalRev)
	p.ReconciledSalesRevenue, _ = decimal.NewFromString(reconRev)
	p.FinalTotalCost, _ = decimal.NewFromString(finalCost)
	p.FinalPhysicalPnL, _ = decimal.NewFromString(physPnL)
	p.TotalHedgingPnL, _ = decimal.NewFromString(hedgePnL)
	p.FinalTotalPnL, _ = decimal.NewFromString(totalPnL)

	return &p, nil
}
