package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/zts/round-engine/internal/config"
	"github.com/zts/round-engine/internal/ledger"
	"github.com/zts/round-engine/internal/metrics"
	"github.com/zts/round-engine/internal/payoff"
	"github.com/zts/round-engine/internal/session"
	"github.com/zts/round-engine/internal/store"
	"github.com/zts/round-engine/internal/timeseries"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Session configuration ---
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("configuration load failed", "path", cfgPath, "err", err)
		os.Exit(1)
	}
	slog.Info("session configured",
		"name", cfg.Name,
		"rounds", cfg.NumRounds(),
		"random_round_payoff", cfg.RandomRoundPayoff,
		"training_round", cfg.TrainingRound,
	)

	// --- Timeseries (scripted per-round markets) ---
	series := make(map[int]*timeseries.Series, cfg.NumRounds())
	for i, name := range cfg.TimeseriesFilenames {
		s, err := timeseries.Load(filepath.Join(cfg.TimeseriesFilepath, name))
		if err != nil {
			slog.Error("timeseries load failed", "file", name, "err", err)
			os.Exit(1)
		}
		series[i+1] = s
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

	// --- Payoff resolver ---
	resolver, err := payoff.NewResolver(cfg.NumRounds(), cfg.RandomRoundPayoff, cfg.TrainingRound, nil)
	if err != nil {
		slog.Error("payoff setup failed", "err", err)
		os.Exit(1)
	}

	// --- Account ledger ---
	l := ledger.New(st, resolver, cfg.Name, cfg.RiskFreeAnnual, cfg.PeriodsPerYear)

	// --- WebSocket hub ---
	wsHub := session.NewWSHub()
	go wsHub.Run()

	// --- Session service ---
	svc := session.NewService(st, l, wsHub)

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
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
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
		w.Write([]byte(`{"status":"ok","service":"round-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoints: participants stream events, observers
		// receive round completion broadcasts.
		r.Get("/ws/trade", svc.HandleTradeWS)
		r.Get("/ws", wsHub.HandleObserverWS)

		// Event ingestion over plain HTTP.
		r.Post("/events", svc.SubmitEvent)

		// Account and summary queries.
		r.Get("/players/{playerID}/state", svc.GetPlayerState)
		r.Get("/players/{playerID}/rounds/{round}/summary", svc.GetRoundSummary)

		// Trade action export.
		r.Get("/export/actions", svc.ExportActions)

		// Scripted market data for a round.
		r.Get("/rounds/{round}/timeseries", func(w http.ResponseWriter, r *http.Request) {
			round, err := strconv.Atoi(chi.URLParam(r, "round"))
			s, ok := series[round]
			if err != nil || !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":"round not found"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"asset":  s.Asset,
				"prices": s.Prices,
				"news":   s.News,
			})
		})
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
		slog.Info("round-engine listening", "port", port)
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

	slog.Info("shutting down round-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("round-engine stopped")
}
