package cargo

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lngdesk/cargo-engine/internal/metrics"
	"github.com/lngdesk/cargo-engine/internal/model"
	"github.com/lngdesk/cargo-engine/internal/pricing"
	"github.com/lngdesk/cargo-engine/internal/store"
)

// Service handles profile and market-data operations. A mutex serializes
// market mutations against reprice sweeps (single-instance): a recalculation
// must never observe a half-applied market update.
type Service struct {
	store  store.Store
	recalc *Recalculator
	quoter *pricing.Quoter
	hub    *WSHub // optional WebSocket hub for reprice broadcasts
	rng    *rand.Rand
	mu     sync.Mutex
}

// NewService creates a new cargo service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, recalc *Recalculator, quoter *pricing.Quoter, hub *WSHub) *Service {
	return &Service{
		store:  st,
		recalc: recalc,
		quoter: quoter,
		hub:    hub,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// --- Request/Response types ---

// ImportRequest is the JSON body for POST /profiles/import.
type ImportRequest struct {
	Data string `json:"data"` // tabular paste, first row headers
}

// ImportResponse reports the outcome of a bulk import.
type ImportResponse struct {
	Imported int                  `json:"imported"`
	Profiles []model.CargoProfile `json:"profiles"`
}

// MatchRequest is the JSON body for POST /profiles/match.
type MatchRequest struct {
	SellID string `json:"sell_id"`
	BuyID  string `json:"buy_id"`
}

// QuoteResponse is the JSON body for GET /quote.
type QuoteResponse struct {
	Formula string           `json:"formula"`
	Date    string           `json:"date,omitempty"`
	Price   *decimal.Decimal `json:"price"` // null when no price is derivable
	Unit    model.Unit       `json:"unit"`
}

// CurveSaveRequest is the JSON body for POST /market/curve.
type CurveSaveRequest struct {
	AsOf string                  `json:"as_of"`
	Rows []model.ForwardCurveRow `json:"rows"`
}

// --- Profile handlers ---

// ListProfiles handles GET /api/v1/profiles
func (s *Service) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.ListProfiles(r.Context())
	if err != nil {
		writeError(w, "failed to list profiles", http.StatusInternalServerError)
		return
	}
	if profiles == nil {
		profiles = []model.CargoProfile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

// CreateProfile handles POST /api/v1/profiles
func (s *Service) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var p model.CargoProfile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.PnLBucket == "" {
		p.PnLBucket = model.BucketUnrealized
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	ctx := r.Context()
	if err := s.recalc.Recalculate(ctx, &p, false); err != nil {
		writeError(w, "recalculation failed", http.StatusInternalServerError)
		return
	}
	metrics.Recalculations.WithLabelValues("create").Inc()

	if err := s.store.CreateProfile(ctx, &p); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	slog.Info("profile created",
		"id", p.ID,
		"bucket", string(p.PnLBucket),
		"sell_formula", p.SellFormula,
		"delivery_date", p.DeliveryDate,
	)

	writeJSON(w, http.StatusCreated, p)
}

// GetProfile handles GET /api/v1/profiles/{profileID}
func (s *Service) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "profileID")

	p, err := s.store.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, "profile not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProfile handles PUT /api/v1/profiles/{profileID}
// The edited profile is recalculated before it is stored. A Realized
// profile never leaves the Realized bucket through an ordinary edit.
func (s *Service) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "profileID")
	ctx := r.Context()

	existing, err := s.store.GetProfile(ctx, id)
	if err != nil {
		writeError(w, "profile not found", http.StatusNotFound)
		return
	}

	var p model.CargoProfile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	if existing.Realized() {
		p.PnLBucket = model.BucketRealized
	}
	if p.PnLBucket == "" {
		p.PnLBucket = existing.PnLBucket
	}

	if err := s.recalc.Recalculate(ctx, &p, false); err != nil {
		writeError(w, "recalculation failed", http.StatusInternalServerError)
		return
	}
	metrics.Recalculations.WithLabelValues("edit").Inc()

	if err := s.store.UpsertProfile(ctx, &p); err != nil {
		writeError(w, "failed to store profile", http.StatusInternalServerError)
		return
	}

	s.broadcastProfile(&p, "edit")
	writeJSON(w, http.StatusOK, p)
}

// DeleteProfile handles DELETE /api/v1/profiles/{profileID}
func (s *Service) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "profileID")

	if err := s.store.DeleteProfile(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "profile not found", http.StatusNotFound)
			return
		}
		writeError(w, "failed to delete profile", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActualizeProfile handles POST /api/v1/profiles/{profileID}/actualize
// One-way transition: the profile's financials are backfilled and frozen.
func (s *Service) ActualizeProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "profileID")
	ctx := r.Context()

	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		writeError(w, "profile not found", http.StatusNotFound)
		return
	}
	if p.Realized() {
		writeError(w, "profile is already realized", http.StatusConflict)
		return
	}

	if err := s.recalc.Actualize(ctx, p); err != nil {
		writeError(w, "actualization failed", http.StatusInternalServerError)
		return
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.store.UpsertProfile(ctx, p); err != nil {
		writeError(w, "failed to store profile", http.StatusInternalServerError)
		return
	}

	slog.Info("profile actualized",
		"id", p.ID,
		"final_total_pnl", p.FinalTotalPnL.String(),
	)

	s.broadcastProfile(p, "actualize")
	writeJSON(w, http.StatusOK, p)
}

// ExtractMerge handles POST /api/v1/profiles/{profileID}/extract
// Merges a partially-extracted profile (only non-empty fields override)
// onto the stored one, then recalculates.
func (s *Service) ExtractMerge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "profileID")
	ctx := r.Context()

	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		writeError(w, "profile not found", http.StatusNotFound)
		return
	}

	var partial model.CargoProfile
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ApplyPartial(p, &partial)
	p.UpdatedAt = time.Now().UTC()

	if err := s.recalc.Recalculate(ctx, p, false); err != nil {
		writeError(w, "recalculation failed", http.StatusInternalServerError)
		return
	}
	metrics.Recalculations.WithLabelValues("extract").Inc()

	if err := s.store.UpsertProfile(ctx, p); err != nil {
		writeError(w, "failed to store profile", http.StatusInternalServerError)
		return
	}

	s.broadcastProfile(p, "extract")
	writeJSON(w, http.StatusOK, p)
}

// ImportProfiles handles POST /api/v1/profiles/import
// Parses tabular paste data into candidate profiles, recalculates each with
// forceCalc for non-Realized rows, and merges by id (last-write-wins).
func (s *Service) ImportProfiles(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	candidates, err := ParseProfiles(req.Data)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	imported := make([]model.CargoProfile, 0, len(candidates))
	for _, c := range candidates {
		force := !c.Realized()
		if err := s.recalc.Recalculate(ctx, &c, force); err != nil {
			writeError(w, "recalculation failed", http.StatusInternalServerError)
			return
		}
		if err := s.store.UpsertProfile(ctx, &c); err != nil {
			writeError(w, "failed to store profile", http.StatusInternalServerError)
			return
		}
		metrics.ImportedProfiles.Inc()
		imported = append(imported, c)
	}
	metrics.Recalculations.WithLabelValues("import").Add(float64(len(imported)))

	slog.Info("bulk import merged", "count", len(imported))
	writeJSON(w, http.StatusOK, ImportResponse{Imported: len(imported), Profiles: imported})
}

// MatchTrade handles POST /api/v1/profiles/match
// Merges a buy-side profile into a sell-side one as a single combined
// operation: merge fields, then recalculate once.
func (s *Service) MatchTrade(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SellID == "" || req.BuyID == "" || req.SellID == req.BuyID {
		writeError(w, "sell_id and buy_id must be distinct and non-empty", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Sequence the merge as one operation relative to market mutations.
	s.mu.Lock()
	defer s.mu.Unlock()

	sell, err := s.store.GetProfile(ctx, req.SellID)
	if err != nil {
		writeError(w, "sell profile not found", http.StatusNotFound)
		return
	}
	buy, err := s.store.GetProfile(ctx, req.BuyID)
	if err != nil {
		writeError(w, "buy profile not found", http.StatusNotFound)
		return
	}

	merged := MergeMatchedTrade(sell, buy)
	merged.UpdatedAt = time.Now().UTC()

	if err := s.recalc.Recalculate(ctx, merged, false); err != nil {
		writeError(w, "recalculation failed", http.StatusInternalServerError)
		return
	}
	metrics.Recalculations.WithLabelValues("match").Inc()

	if err := s.store.UpsertProfile(ctx, merged); err != nil {
		writeError(w, "failed to store merged profile", http.StatusInternalServerError)
		return
	}
	if err := s.store.DeleteProfile(ctx, buy.ID); err != nil {
		writeError(w, "failed to remove buy-side profile", http.StatusInternalServerError)
		return
	}

	slog.Info("trades matched",
		"sell_id", sell.ID,
		"buy_id", buy.ID,
		"final_total_pnl", merged.FinalTotalPnL.String(),
	)

	s.broadcastProfile(merged, "match")
	writeJSON(w, http.StatusOK, merged)
}

// --- Market data handlers ---

// GetSpotPrices handles GET /api/v1/market/spot
func (s *Service) GetSpotPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := s.store.GetSpotPrices(r.Context())
	if err != nil {
		writeError(w, "failed to load spot prices", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

// PutSpotPrices handles PUT /api/v1/market/spot
// Replaces the spot index set wholesale, or overlays it when ?merge=true.
// All non-Realized profiles reprice afterwards.
func (s *Service) PutSpotPrices(w http.ResponseWriter, r *http.Request) {
	var prices map[string]decimal.Decimal
	if err := json.NewDecoder(r.Body).Decode(&prices); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if r.URL.Query().Get("merge") == "true" {
		err = s.store.MergeSpotPrices(ctx, prices)
	} else {
		err = s.store.SetSpotPrices(ctx, prices)
	}
	if err != nil {
		writeError(w, "failed to store spot prices", http.StatusInternalServerError)
		return
	}

	if err := s.repriceAll(ctx, "spot_update"); err != nil {
		writeError(w, "repricing failed", http.StatusInternalServerError)
		return
	}

	updated, err := s.store.GetSpotPrices(ctx)
	if err != nil {
		writeError(w, "failed to load spot prices", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// RefreshMarket handles POST /api/v1/market/refresh
// Applies the simulated ±2% perturbation and reprices non-Realized profiles.
func (s *Service) RefreshMarket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	prices, err := pricing.RefreshSpotPrices(ctx, s.store, s.rng)
	if err != nil {
		writeError(w, "market refresh failed", http.StatusInternalServerError)
		return
	}

	if err := s.repriceAll(ctx, "market_refresh"); err != nil {
		writeError(w, "repricing failed", http.StatusInternalServerError)
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(WSMessage{Type: "market_refreshed", Trigger: "refresh"})
	}
	writeJSON(w, http.StatusOK, prices)
}

// GetForwardCurve handles GET /api/v1/market/curve
func (s *Service) GetForwardCurve(w http.ResponseWriter, r *http.Request) {
	curve, err := s.store.GetForwardCurve(r.Context())
	if err != nil {
		writeError(w, "failed to load forward curve", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, curve)
}

// SaveForwardCurve handles POST /api/v1/market/curve
// Stores a snapshot keyed by as-of date and reprices non-Realized profiles.
func (s *Service) SaveForwardCurve(w http.ResponseWriter, r *http.Request) {
	var req CurveSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AsOf == "" {
		writeError(w, "as_of is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveForwardCurve(ctx, req.AsOf, req.Rows); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	if err := s.repriceAll(ctx, "curve_save"); err != nil {
		writeError(w, "repricing failed", http.StatusInternalServerError)
		return
	}

	slog.Info("forward curve saved", "as_of", req.AsOf, "months", len(req.Rows))
	w.WriteHeader(http.StatusCreated)
}

// ListCurveDates handles GET /api/v1/market/curve/dates
func (s *Service) ListCurveDates(w http.ResponseWriter, r *http.Request) {
	dates, err := s.store.ListCurveDates(r.Context())
	if err != nil {
		writeError(w, "failed to list curve dates", http.StatusInternalServerError)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, dates)
}

// Quote handles GET /api/v1/quote?formula=...&date=...
// Ad-hoc formula evaluation; price is null when no price is derivable.
func (s *Service) Quote(w http.ResponseWriter, r *http.Request) {
	f := r.URL.Query().Get("formula")
	date := r.URL.Query().Get("date")
	if f == "" {
		writeError(w, "formula is required", http.StatusBadRequest)
		return
	}

	resp := QuoteResponse{
		Formula: f,
		Date:    date,
		Unit:    pricing.DetectUnit(f),
	}

	price, err := s.quoter.Evaluate(r.Context(), f, date)
	switch {
	case err == nil:
		resp.Price = &price
	case errors.Is(err, pricing.ErrNoPrice):
		// Price stays null.
	default:
		writeError(w, "quote failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RepriceAll recalculates every non-Realized profile against current market
// data. Exposed for the cron-scheduled refresh in main.
func (s *Service) RepriceAll(ctx context.Context, trigger string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repriceAll(ctx, trigger)
}

// RefreshAndReprice runs the simulated market refresh followed by a reprice
// sweep as one serialized operation. Used by the scheduler.
func (s *Service) RefreshAndReprice(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := pricing.RefreshSpotPrices(ctx, s.store, s.rng); err != nil {
		return err
	}
	if err := s.repriceAll(ctx, "scheduled_refresh"); err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.Broadcast(WSMessage{Type: "market_refreshed", Trigger: "scheduled"})
	}
	return nil
}

// repriceAll must be called with s.mu held.
func (s *Service) repriceAll(ctx context.Context, trigger string) error {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return err
	}

	for i := range profiles {
		p := &profiles[i]
		if p.Realized() {
			continue
		}
		if err := s.recalc.Recalculate(ctx, p, false); err != nil {
			return err
		}
		p.UpdatedAt = time.Now().UTC()
		if err := s.store.UpsertProfile(ctx, p); err != nil {
			return err
		}
		metrics.Recalculations.WithLabelValues(trigger).Inc()
		s.broadcastProfile(p, trigger)
	}
	return nil
}

func (s *Service) broadcastProfile(p *model.CargoProfile, trigger string) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(WSMessage{
		Type:          "profile_repriced",
		ProfileID:     p.ID,
		SellPrice:     p.AbsoluteSellPrice.String(),
		BuyPrice:      p.AbsoluteBuyPrice.String(),
		TotalPnL:      p.FinalTotalPnL.String(),
		DeliveryMonth: p.DeliveryMonth,
		Trigger:       trigger,
	})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
