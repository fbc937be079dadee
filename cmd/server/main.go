package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/lngdesk/cargo-engine/internal/cargo"
	"github.com/lngdesk/cargo-engine/internal/metrics"
	"github.com/lngdesk/cargo-engine/internal/pricing"
	"github.com/lngdesk/cargo-engine/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Pricing + recalculation ---
	quoter := pricing.NewQuoter(st)
	recalc := cargo.NewRecalculator(quoter)

	// --- WebSocket hub ---
	wsHub := cargo.NewWSHub()
	go wsHub.Run()

	// --- Cargo service ---
	cargoSvc := cargo.NewService(st, recalc, quoter, wsHub)

	// --- Scheduled market refresh ---
	// Simulated spot-price tick plus a reprice sweep of non-Realized cargoes.
	if spec := os.Getenv("MARKET_REFRESH_CRON"); spec != "" {
		c := cron.New()
		_, err := c.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := cargoSvc.RefreshAndReprice(ctx); err != nil {
				slog.Error("scheduled market refresh failed", "err", err)
			}
		})
		if err != nil {
			slog.Error("invalid MARKET_REFRESH_CRON", "spec", spec, "err", err)
			os.Exit(1)
		}
		c.Start()
		cleanup = append(cleanup, func() { c.Stop() })
		slog.Info("market refresh scheduled", "cron", spec)
	}

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"cargo-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time reprice updates.
		r.Get("/ws", wsHub.HandleWS)

		// Cargo profiles.
		r.Get("/profiles", cargoSvc.ListProfiles)
		r.Post("/profiles", cargoSvc.CreateProfile)
		r.Post("/profiles/import", cargoSvc.ImportProfiles)
		r.Post("/profiles/match", cargoSvc.MatchTrade)
		r.Get("/profiles/{profileID}", cargoSvc.GetProfile)
		r.Put("/profiles/{profileID}", cargoSvc.UpdateProfile)
		r.Delete("/profiles/{profileID}", cargoSvc.DeleteProfile)
		r.Post("/profiles/{profileID}/actualize", cargoSvc.ActualizeProfile)
		r.Post("/profiles/{profileID}/extract", cargoSvc.ExtractMerge)

		// Market data.
		r.Get("/market/spot", cargoSvc.GetSpotPrices)
		r.Put("/market/spot", cargoSvc.PutSpotPrices)
		r.Post("/market/refresh", cargoSvc.RefreshMarket)
		r.Get("/market/curve", cargoSvc.GetForwardCurve)
		r.Post("/market/curve", cargoSvc.SaveForwardCurve)
		r.Get("/market/curve/dates", cargoSvc.ListCurveDates)

		// Ad-hoc quoting.
		r.Get("/quote", cargoSvc.Quote)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("cargo-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down cargo-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("cargo-engine stopped")
}
