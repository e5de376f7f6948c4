package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credvault/internal/credential/cache"
	"credvault/internal/credential/handler"
	credmetrics "credvault/internal/credential/metrics"
	"credvault/internal/credential/service"
	"credvault/internal/credential/store"
	"credvault/internal/platform/config"
	"credvault/internal/platform/database"
	"credvault/internal/platform/health"
	"credvault/internal/platform/httpserver"
	"credvault/internal/platform/logger"
	httpmetrics "credvault/internal/platform/metrics"
	"credvault/internal/platform/middleware"
	"credvault/internal/platform/redis"
	"credvault/internal/platform/tracer"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/credential.
func main() {
	cfg := config.FromEnv("ISSUANCE_ADDR", ":3001")
	log := logger.New("issuance", cfg.WorkerID)

	log.Info("initializing issuance service",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}

	var credStore store.Store
	if pool != nil {
		credStore = store.NewPostgres(pool.DB())
	} else {
		// Local development fallback; the durable store is mandatory in production.
		if cfg.IsProduction() {
			log.Error("DATABASE_URL is required in production")
			os.Exit(1)
		}
		log.Warn("DATABASE_URL not set, using in-memory credential store")
		credStore = store.New()
	}

	redisClient, err := redis.New(cfg.Redis())
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}

	m := credmetrics.New()
	opts := []service.Option{
		service.WithMetrics(m),
		service.WithTracer(tracer.NewOTel()),
	}
	if redisClient != nil {
		opts = append(opts, service.WithCache(cache.New(redisClient.Client, cfg.CacheTTL, m)))
	}
	svc := service.NewService(credStore, cfg.WorkerID, log, opts...)

	h := handler.New(svc, log)

	healthHandler := health.New("Issuance", cfg.Environment, cfg.WorkerID)
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	}
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
	}

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.CORS(corsOrigins(cfg)))
	router.Use(middleware.Latency(httpmetrics.New("issuance")))
	router.Use(middleware.Timeout(cfg.RequestTimeout))
	router.Use(middleware.ContentTypeJSON)
	router.NotFound(handler.NotFound)

	h.RegisterIssuance(router)
	healthHandler.Register(router)
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("redis close failed", "error", err)
		}
	}
	if pool != nil {
		if err := pool.Close(); err != nil {
			log.Error("database close failed", "error", err)
		}
	}

	log.Info("server stopped")
}

func corsOrigins(cfg config.Service) []string {
	return []string{
		cfg.FrontendOrigin,
		"http://localhost:5173",
		"http://127.0.0.1:5173",
	}
}
