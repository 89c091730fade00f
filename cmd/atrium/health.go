package main

import (
	"database/sql"
	"net/http"

	"github.com/go-redis/redis/v8"

	"github.com/openlearnhq/atrium/pkg/config"
	"github.com/openlearnhq/atrium/pkg/observability"
)

// newHealthServer builds the sidecar server exposing probes and metrics
// on the health port.
func newHealthServer(cfg *config.Config, db *sql.DB, redisClient *redis.Client, metrics *observability.Metrics) *http.Server {
	checker := observability.NewHealthChecker(db, redisClient)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", checker.Liveness)
	mux.HandleFunc("/readyz", checker.Readiness)
	if cfg.Observability.MetricsEnabled {
		mux.Handle("/metrics", metrics.Handler())
	}

	return &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
