package config

import (
	"os"
	"strconv"
	"time"
)

// DefaultWorkerID is used when WORKER_ID is not set. In Kubernetes the
// deployment injects the pod name via the downward API instead.
const DefaultWorkerID = "worker-1"

// Service captures process level configuration shared by both services.
type Service struct {
	Addr           string
	WorkerID       string
	Environment    string
	DatabaseURL    string
	RedisURL       string
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	FrontendOrigin string
}

// RedisConfig holds Redis connection tuning.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Redis derives Redis connection settings from the service configuration.
func (s Service) Redis() RedisConfig {
	return RedisConfig{
		URL:          s.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// IsProduction reports whether the process runs in a production environment.
// The in-memory store fallback is refused there.
func (s Service) IsProduction() bool {
	return s.Environment == "production"
}

// FromEnv builds a Service config from environment variables so main stays lean.
// addrEnv names the per-service listen address variable (e.g. ISSUANCE_ADDR).
func FromEnv(addrEnv, defaultAddr string) Service {
	addr := os.Getenv(addrEnv)
	if addr == "" {
		addr = defaultAddr
	}

	workerID := os.Getenv("WORKER_ID")
	if workerID == "" {
		workerID = DefaultWorkerID
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	cacheTTL := 5 * time.Minute
	if raw := os.Getenv("CACHE_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cacheTTL = d
		}
	}

	requestTimeout := 30 * time.Second
	if raw := os.Getenv("REQUEST_TIMEOUT_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			requestTimeout = time.Duration(secs) * time.Second
		}
	}

	return Service{
		Addr:           addr,
		WorkerID:       workerID,
		Environment:    environment,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		CacheTTL:       cacheTTL,
		RequestTimeout: requestTimeout,
		FrontendOrigin: os.Getenv("FRONTEND_ORIGIN"),
	}
}
