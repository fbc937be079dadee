package cargo

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lngdesk/cargo-engine/internal/model"
	"github.com/lngdesk/cargo-engine/internal/pricing"
	"github.com/lngdesk/cargo-engine/internal/store"
)

type testEnv struct {
	svc    *Service
	store  *store.MemoryStore
	router *chi.Mux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ms := store.NewMemoryStore()
	err := ms.SetSpotPrices(context.Background(), map[string]decimal.Decimal{
		"HH":  decimal.NewFromFloat(3.00),
		"TTF": decimal.NewFromFloat(12.00),
	})
	require.NoError(t, err)

	quoter := pricing.NewQuoter(ms)
	svc := NewService(ms, NewRecalculator(quoter), quoter, nil)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", svc.ListProfiles)
			r.Post("/", svc.CreateProfile)
			r.Post("/import", svc.ImportProfiles)
			r.Post("/match", svc.MatchTrade)
			r.Route("/{profileID}", func(r chi.Router) {
				r.Get("/", svc.GetProfile)
				r.Put("/", svc.UpdateProfile)
				r.Delete("/", svc.DeleteProfile)
				r.Post("/actualize", svc.ActualizeProfile)
				r.Post("/extract", svc.ExtractMerge)
			})
		})
		r.Route("/market", func(r chi.Router) {
			r.Get("/spot", svc.GetSpotPrices)
			r.Put("/spot", svc.PutSpotPrices)
			r.Post("/refresh", svc.RefreshMarket)
			r.Get("/curve", svc.GetForwardCurve)
			r.Post("/curve", svc.SaveForwardCurve)
			r.Get("/curve/dates", svc.ListCurveDates)
		})
		r.Get("/quote", svc.Quote)
	})

	return &testEnv{svc: svc, store: ms, router: r}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeProfile(t *testing.T, rec *httptest.ResponseRecorder) model.CargoProfile {
	t.Helper()
	var p model.CargoProfile
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	return p
}

func TestCreateProfile_RecalculatesBeforeStoring(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/profiles", model.CargoProfile{
		SellFormula:     "TTF + 0.50",
		DeliveryDate:    "2025-08-15",
		DeliveredVolume: decimal.NewFromInt(100),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	p := decodeProfile(t, rec)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, model.BucketUnrealized, p.PnLBucket)
	assert.True(t, p.AbsoluteSellPrice.Equal(decimal.NewFromFloat(12.5)))
	assert.True(t, p.SalesRevenue.Equal(decimal.NewFromInt(1250)))
	assert.Equal(t, "Aug 2025", p.DeliveryMonth)
}

func TestGetProfile_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/profiles/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProfile_RealizedBucketIsSticky(t *testing.T) {
	env := newTestEnv(t)

	created := decodeProfile(t, env.do(t, http.MethodPost, "/api/v1/profiles", model.CargoProfile{
		SellFormula:  "TTF",
		DeliveryDate: "2025-08-15",
	}))
	rec := env.do(t, http.MethodPost, "/api/v1/profiles/"+created.ID+"/actualize", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// An ordinary edit cannot move the profile back out of Realized.
	rec = env.do(t, http.MethodPut, "/api/v1/profiles/"+created.ID, model.CargoProfile{
		PnLBucket:   model.BucketUnrealized,
		SellFormula: "TTF",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.BucketRealized, decodeProfile(t, rec).PnLBucket)
}

func TestActualizeProfile_SecondCallConflicts(t *testing.T) {
	env := newTestEnv(t)

	created := decodeProfile(t, env.do(t, http.MethodPost, "/api/v1/profiles", model.CargoProfile{
		SellFormula:     "TTF",
		DeliveryDate:    "2025-08-15",
		DeliveredVolume: decimal.NewFromInt(100),
	}))

	rec := env.do(t, http.MethodPost, "/api/v1/profiles/"+created.ID+"/actualize", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decodeProfile(t, rec)
	assert.Equal(t, model.BucketRealized, p.PnLBucket)
	assert.True(t, p.ReconciledSalesRevenue.Equal(decimal.NewFromInt(1200)))

	rec = env.do(t, http.MethodPost, "/api/v1/profiles/"+created.ID+"/actualize", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteProfile(t *testing.T) {
	env := newTestEnv(t)

	created := decodeProfile(t, env.do(t, http.MethodPost, "/api/v1/profiles", model.CargoProfile{Vessel: "Arctic Lady"}))

	rec := env.do(t, http.MethodDelete, "/api/v1/profiles/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/profiles/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMatchTrade_MergesAndRemovesBuySide(t *testing.T) {
	env := newTestEnv(t)

	sell := decodeProfile(t, env.do(t, http.MethodPost, "/api/v1/profiles", model.CargoProfile{
		SellFormula:     "TTF + 0.50",
		DeliveryDate:    "2025-08-15",
		DeliveredVolume: decimal.NewFromInt(100),
	}))
	buy := decodeProfile(t, env.do(t, http.MethodPost, "/api/v1/profiles", model.CargoProfile{
		BuyFormula:   "HH",
		LoadingDate:  "2025-07-10",
		LoadedVolume: decimal.NewFromInt(110),
	}))

	rec := env.do(t, http.MethodPost, "/api/v1/profiles/match", MatchRequest{SellID: sell.ID, BuyID: buy.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	merged := decodeProfile(t, rec)
	assert.Equal(t, sell.ID, merged.ID)
	assert.Equal(t, "HH", merged.BuyFormula)
	assert.True(t, merged.ReconciledPurchaseCost.Equal(decimal.NewFromInt(330)))
	assert.True(t, merged.FinalTotalPnL.Equal(decimal.NewFromInt(920)))

	rec = env.do(t, http.MethodGet, "/api/v1/profiles/"+buy.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMatchTrade_RejectsSameID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/profiles/match", MatchRequest{SellID: "x", BuyID: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportProfiles(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/profiles/import", ImportRequest{
		Data: "id,sell formula,delivered volume,delivery date\nd-1,TTF,100,2025-08-15\n",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ImportResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 1, resp.Imported)
	assert.True(t, resp.Profiles[0].AbsoluteSellPrice.Equal(decimal.NewFromInt(12)))
}

func TestPutSpotPrices_RepricesUnrealizedOnly(t *testing.T) {
	env := newTestEnv(t)

	open := decodeProfile(t, env.do(t, http.MethodPost, "/api/v1/profiles", model.CargoProfile{
		SellFormula:  "TTF",
		DeliveryDate: "2025-08-15",
	}))
	frozen := decodeProfile(t, env.do(t, http.MethodPost, "/api/v1/profiles", model.CargoProfile{
		SellFormula:  "TTF",
		DeliveryDate: "2025-08-15",
	}))
	require.Equal(t, http.StatusOK,
		env.do(t, http.MethodPost, "/api/v1/profiles/"+frozen.ID+"/actualize", nil).Code)

	rec := env.do(t, http.MethodPut, "/api/v1/market/spot", map[string]decimal.Decimal{
		"TTF": decimal.NewFromFloat(13.00),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeProfile(t, env.do(t, http.MethodGet, "/api/v1/profiles/"+open.ID, nil))
	assert.True(t, got.AbsoluteSellPrice.Equal(decimal.NewFromInt(13)), "open profile repriced: %s", got.AbsoluteSellPrice)

	got = decodeProfile(t, env.do(t, http.MethodGet, "/api/v1/profiles/"+frozen.ID, nil))
	assert.True(t, got.AbsoluteSellPrice.Equal(decimal.NewFromInt(12)), "realized profile untouched: %s", got.AbsoluteSellPrice)
}

func TestPutSpotPrices_MergeOverlays(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/market/spot?merge=true", map[string]decimal.Decimal{
		"JKM": decimal.NewFromFloat(13.80),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var prices map[string]decimal.Decimal
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&prices))
	assert.Len(t, prices, 3)
	assert.True(t, prices["TTF"].Equal(decimal.NewFromInt(12)), "existing indices survive a merge")
}

func TestSaveForwardCurve(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/market/curve", CurveSaveRequest{
		AsOf: "2025-07-01",
		Rows: []model.ForwardCurveRow{
			{Month: "2025-08", Prices: map[string]decimal.Decimal{"TTF": decimal.NewFromFloat(14.50)}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/market/curve/dates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dates []string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dates))
	assert.Equal(t, []string{"2025-07-01"}, dates)

	rec = env.do(t, http.MethodPost, "/api/v1/market/curve", CurveSaveRequest{AsOf: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuote(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/quote?formula=HH%20%2B%2020%25", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp QuoteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Price)
	assert.True(t, resp.Price.Equal(decimal.NewFromFloat(3.6)))
	assert.Equal(t, model.UnitMMBtu, resp.Unit)

	// Unresolvable formulas answer with a null price, not an error.
	rec = env.do(t, http.MethodGet, "/api/v1/quote?formula=Alpha", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = QuoteResponse{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Nil(t, resp.Price)

	rec = env.do(t, http.MethodGet, "/api/v1/quote", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshMarket_StaysWithinBand(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/market/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var prices map[string]decimal.Decimal
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&prices))
	require.Len(t, prices, 2)

	lo := decimal.NewFromFloat(0.98)
	hi := decimal.NewFromFloat(1.02)
	base := map[string]decimal.Decimal{
		"HH":  decimal.NewFromFloat(3.00),
		"TTF": decimal.NewFromFloat(12.00),
	}
	for idx, p := range prices {
		assert.True(t, p.GreaterThanOrEqual(base[idx].Mul(lo)), "%s below band: %s", idx, p)
		assert.True(t, p.LessThanOrEqual(base[idx].Mul(hi)), "%s above band: %s", idx, p)
	}
}
