package bootstrap

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"ipsentry/internal/config"
	"ipsentry/internal/database"
	"ipsentry/internal/geo"
	"ipsentry/internal/ingress"
	"ipsentry/internal/jobs/scanner"
	"ipsentry/internal/support"
)

// Setup wires the store, cache, resolver, pipeline and background scan
// routine. Redis is optional; without it the cache and rate counters run
// in-process and the scanner skips leader election.
func Setup(ctx context.Context) (*ingress.Pipeline, *ingress.Limiter) {
	config.ReadSettings()

	if _, err := database.SetupDB(); err != nil {
		log.Fatalf("failed to set up database: %v", err)
	}
	config.SetIntervals()

	var (
		geoCache     geo.Cache
		counterStore ingress.CounterStore
	)

	redisClient, err := support.GetRedisClient()
	if err != nil {
		log.Warn("Redis unavailable, using in-process geo cache and rate counters", "error", err)
		geoCache = geo.NewMemoryCache()
		counterStore = ingress.NewMemoryCounterStore()
	} else {
		config.EnableRedisSynchronization(ctx, redisClient)
		geoCache = geo.NewRedisCache(redisClient)
		counterStore = ingress.NewRedisCounterStore(redisClient)
	}

	cfg := config.GetConfig()

	resolver := geo.NewResolver(geoCache,
		geo.WithProviderURL(cfg.Geo.ProviderURL),
		geo.WithTimeout(time.Duration(cfg.Geo.TimeoutSeconds)*time.Second),
		geo.WithTTL(config.GetGeoCacheTTL),
		geo.WithLocalDatabase(cfg.Geo.MMDBPath),
	)

	pipeline := ingress.NewPipeline(ingress.StoreGuard{}, resolver, ingress.StoreRecorder{})

	limiter := ingress.NewLimiter(counterStore)

	go scanner.StartAnomalyScanRoutine(ctx)

	return pipeline, limiter
}
