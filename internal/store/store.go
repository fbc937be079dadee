// Package store defines the persistence interface for the cargo engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/lngdesk/cargo-engine/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
//
// Forward curves are stored as full snapshot history keyed by as-of date,
// but reads consult only the most-recently-saved snapshot — the engine never
// averages or interpolates across snapshots.
type Store interface {
	// --- Cargo profiles ---

	// CreateProfile persists a new cargo profile. Fails if the ID exists.
	CreateProfile(ctx context.Context, p *model.CargoProfile) error

	// GetProfile retrieves a profile by its ID.
	GetProfile(ctx context.Context, id string) (*model.CargoProfile, error)

	// ListProfiles returns all profiles.
	ListProfiles(ctx context.Context) ([]model.CargoProfile, error)

	// UpsertProfile writes a profile, replacing any existing record with
	// the same ID (last-write-wins, used by bulk import/merge).
	UpsertProfile(ctx context.Context, p *model.CargoProfile) error

	// DeleteProfile removes a profile by ID.
	DeleteProfile(ctx context.Context, id string) error

	// --- Spot market data ---

	// GetSpotPrices returns the current spot value per index code.
	GetSpotPrices(ctx context.Context) (map[string]decimal.Decimal, error)

	// SetSpotPrices replaces the spot index set wholesale.
	SetSpotPrices(ctx context.Context, prices map[string]decimal.Decimal) error

	// MergeSpotPrices overlays the given prices onto the spot index set.
	MergeSpotPrices(ctx context.Context, prices map[string]decimal.Decimal) error

	// --- Forward curves ---

	// SaveForwardCurve stores a curve snapshot under an as-of date and
	// marks it the latest. Months must be unique within the snapshot.
	SaveForwardCurve(ctx context.Context, asOf string, rows []model.ForwardCurveRow) error

	// GetForwardCurve returns the most-recently-saved snapshot, ordered
	// by month. An empty slice means no curve has been saved.
	GetForwardCurve(ctx context.Context) ([]model.ForwardCurveRow, error)

	// ListCurveDates returns the as-of dates of all stored snapshots,
	// oldest first.
	ListCurveDates(ctx context.Context) ([]string, error)
}
