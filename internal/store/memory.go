package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/lngdesk/cargo-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*model.CargoProfile
	spot     map[string]decimal.Decimal
	curves   map[string][]model.ForwardCurveRow
	curveLog []string // as-of dates in save order; last entry is latest
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*model.CargoProfile),
		spot:     make(map[string]decimal.Decimal),
		curves:   make(map[string][]model.ForwardCurveRow),
	}
}

func (s *MemoryStore) CreateProfile(_ context.Context, p *model.CargoProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[p.ID]; exists {
		return fmt.Errorf("profile %s already exists", p.ID)
	}

	// Store a copy to avoid external mutation.
	copy := *p
	s.profiles[p.ID] = &copy
	return nil
}

func (s *MemoryStore) GetProfile(_ context.Context, id string) (*model.CargoProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("%w: profile %s", ErrNotFound, id)
	}
	copy := *p
	return &copy, nil
}

func (s *MemoryStore) ListProfiles(_ context.Context) ([]model.CargoProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]model.CargoProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, *p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].CreatedAt.Before(profiles[j].CreatedAt)
	})
	return profiles, nil
}

func (s *MemoryStore) UpsertProfile(_ context.Context, p *model.CargoProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *p
	s.profiles[p.ID] = &copy
	return nil
}

func (s *MemoryStore) DeleteProfile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[id]; !ok {
		return fmt.Errorf("%w: profile %s", ErrNotFound, id)
	}
	delete(s.profiles, id)
	return nil
}

func (s *MemoryStore) GetSpotPrices(_ context.Context) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copySpot(s.spot), nil
}

func (s *MemoryStore) SetSpotPrices(_ context.Context, prices map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spot = copySpot(prices)
	return nil
}

func (s *MemoryStore) MergeSpotPrices(_ context.Context, prices map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for code, price := range prices {
		s.spot[code] = price
	}
	return nil
}

func (s *MemoryStore) SaveForwardCurve(_ context.Context, asOf string, rows []model.ForwardCurveRow) error {
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if seen[row.Month] {
			return fmt.Errorf("duplicate curve month %s in snapshot %s", row.Month, asOf)
		}
		seen[row.Month] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]model.ForwardCurveRow, len(rows))
	for i, row := range rows {
		snapshot[i] = model.ForwardCurveRow{Month: row.Month, Prices: copySpot(row.Prices)}
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Month < snapshot[j].Month })

	if _, exists := s.curves[asOf]; !exists {
		s.curveLog = append(s.curveLog, asOf)
	} else {
		// Re-saving an existing as-of date promotes it back to latest.
		for i, d := range s.curveLog {
			if d == asOf {
				s.curveLog = append(s.curveLog[:i], s.curveLog[i+1:]...)
				break
			}
		}
		s.curveLog = append(s.curveLog, asOf)
	}
	s.curves[asOf] = snapshot
	return nil
}

func (s *MemoryStore) GetForwardCurve(_ context.Context) ([]model.ForwardCurveRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.curveLog) == 0 {
		return []model.ForwardCurveRow{}, nil
	}
	latest := s.curves[s.curveLog[len(s.curveLog)-1]]

	rows := make([]model.ForwardCurveRow, len(latest))
	for i, row := range latest {
		rows[i] = model.ForwardCurveRow{Month: row.Month, Prices: copySpot(row.Prices)}
	}
	return rows, nil
}

func (s *MemoryStore) ListCurveDates(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dates := make([]string, len(s.curveLog))
	copy(dates, s.curveLog)
	return dates, nil
}

func copySpot(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
