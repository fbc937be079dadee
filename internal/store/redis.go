package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/lngdesk/cargo-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateProfile(ctx context.Context, p *model.CargoProfile) error {
	if err := s.primary.CreateProfile(ctx, p); err != nil {
		return err
	}
	s.cacheProfile(ctx, p)
	return nil
}

func (s *CachedStore) UpsertProfile(ctx context.Context, p *model.CargoProfile) error {
	if err := s.primary.UpsertProfile(ctx, p); err != nil {
		return err
	}
	s.cacheProfile(ctx, p)
	return nil
}

func (s *CachedStore) DeleteProfile(ctx context.Context, id string) error {
	if err := s.primary.DeleteProfile(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, profileKey(id))
	return nil
}

func (s *CachedStore) SetSpotPrices(ctx context.Context, prices map[string]decimal.Decimal) error {
	if err := s.primary.SetSpotPrices(ctx, prices); err != nil {
		return err
	}
	s.rdb.Del(ctx, spotKey)
	return nil
}

func (s *CachedStore) MergeSpotPrices(ctx context.Context, prices map[string]decimal.Decimal) error {
	if err := s.primary.MergeSpotPrices(ctx, prices); err != nil {
		return err
	}
	s.rdb.Del(ctx, spotKey)
	return nil
}

func (s *CachedStore) SaveForwardCurve(ctx context.Context, asOf string, rows []model.ForwardCurveRow) error {
	if err := s.primary.SaveForwardCurve(ctx, asOf, rows); err != nil {
		return err
	}
	s.rdb.Del(ctx, curveKey)
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetProfile(ctx context.Context, id string) (*model.CargoProfile, error) {
	data, err := s.rdb.Get(ctx, profileKey(id)).Bytes()
	if err == nil {
		var p model.CargoProfile
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	p, err := s.primary.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheProfile(ctx, p)
	return p, nil
}

func (s *CachedStore) GetSpotPrices(ctx context.Context) (map[string]decimal.Decimal, error) {
	data, err := s.rdb.Get(ctx, spotKey).Bytes()
	if err == nil {
		var prices map[string]decimal.Decimal
		if json.Unmarshal(data, &prices) == nil {
			return prices, nil
		}
	}

	prices, err := s.primary.GetSpotPrices(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(prices); err == nil {
		s.rdb.Set(ctx, spotKey, data, s.ttl)
	}
	return prices, nil
}

func (s *CachedStore) GetForwardCurve(ctx context.Context) ([]model.ForwardCurveRow, error) {
	data, err := s.rdb.Get(ctx, curveKey).Bytes()
	if err == nil {
		var curve []model.ForwardCurveRow
		if json.Unmarshal(data, &curve) == nil {
			return curve, nil
		}
	}

	curve, err := s.primary.GetForwardCurve(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(curve); err == nil {
		s.rdb.Set(ctx, curveKey, data, s.ttl)
	}
	return curve, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListProfiles(ctx context.Context) ([]model.CargoProfile, error) {
	return s.primary.ListProfiles(ctx)
}

func (s *CachedStore) ListCurveDates(ctx context.Context) ([]string, error) {
	return s.primary.ListCurveDates(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) cacheProfile(ctx context.Context, p *model.CargoProfile) {
	if data, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, profileKey(p.ID), data, s.ttl)
	}
}

const (
	spotKey  = "market:spot"
	curveKey = "market:curve:latest"
)

func profileKey(id string) string { return fmt.Sprintf("profile:%s", id) }
