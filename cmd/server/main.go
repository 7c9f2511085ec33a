/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the availability ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config (.env, environment, flags)
  2. Open the availability store (sqlite, postgres or memory)
  3. Wire metrics, report cache and snapshot loader
  4. Import the configured snapshot once, start periodic sync
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop snapshot sync
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/warp/availability-engine/api"
	"github.com/warp/availability-engine/availability"
	"github.com/warp/availability-engine/config"
	"github.com/warp/availability-engine/loader"
	"github.com/warp/availability-engine/logging"
	"github.com/warp/availability-engine/metrics"
	"github.com/warp/availability-engine/reportcache"
	"github.com/warp/availability-engine/store/memory"
	"github.com/warp/availability-engine/store/postgres"
	"github.com/warp/availability-engine/store/sqlite"
	"github.com/warp/availability-engine/store/sqlstore"
)

// lifecycleStore is a TxStore with explicit open/close.
type lifecycleStore interface {
	availability.TxStore
	Open(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath

	logging.Init(logging.Environment(cfg.Environment))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx := context.Background()

	// Initialize store
	store := newStore(cfg, m)
	if err := store.Open(ctx); err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to initialize database")
	}
	defer store.Close()

	importer := availability.NewImporter(store,
		availability.WithImportLogger(logging.Component("importer")),
		availability.WithImportObserver(m),
	)

	// Initialize handler
	handler := api.NewHandler(store, importer)
	handler.Metrics = m
	handler.Log = logging.Component("api")

	if cfg.RedisURL != "" {
		cache, err := reportcache.NewRedis(ctx, cfg.RedisURL, cfg.ReportCacheTTL)
		if err != nil {
			log.Warn().Err(err).Msg("report cache disabled")
		} else {
			defer cache.Close()
			handler.Cache = cache
		}
	}

	var syncer *api.SnapshotSyncer
	if cfg.Snapshot.Configured() {
		l, err := newLoader(ctx, cfg.Snapshot)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure snapshot source")
		}
		handler.Loader = l

		syncer = api.NewSnapshotSyncer(handler, availability.ResourceID(cfg.DefaultResource), cfg.Snapshot.SyncInterval)
		syncer.Timeout = cfg.Snapshot.Timeout
		if _, err := syncer.RunOnce(ctx); err != nil && !errors.Is(err, availability.ErrSnapshotNotFound) {
			log.Warn().Err(err).Msg("startup import failed")
		}
		syncer.Start()
		defer syncer.Stop()
	}

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Port).Str("driver", cfg.DBDriver).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	if syncer != nil {
		syncer.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func newStore(cfg config.Config, m *metrics.Collectors) lifecycleStore {
	opts := []sqlstore.Option{
		sqlstore.WithLogger(logging.Component("store")),
		sqlstore.WithObserver(m),
	}
	switch cfg.DBDriver {
	case "postgres":
		return postgres.New(cfg.PostgresDSN, opts...)
	case "memory":
		return memory.NewMemory(
			memory.WithLogger(logging.Component("store")),
			memory.WithObserver(m),
		)
	default:
		return sqlite.New(cfg.DBPath, opts...)
	}
}

func newLoader(ctx context.Context, sc config.SnapshotConfig) (loader.Loader, error) {
	if sc.S3Bucket != "" {
		return loader.NewS3(ctx, loader.S3Config{
			Bucket:   sc.S3Bucket,
			Key:      sc.S3Key,
			Region:   sc.S3Region,
			Endpoint: sc.S3Endpoint,
		})
	}
	return loader.NewFile(sc.Path), nil
}
