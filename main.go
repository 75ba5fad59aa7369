package main

import (
	"context"
	"flag"
	"time"

	"github.com/gdownersigma/c21-commodities/config"
	"github.com/gdownersigma/c21-commodities/database"
	"github.com/gdownersigma/c21-commodities/fmp"
	"github.com/gdownersigma/c21-commodities/logger"
	"github.com/gdownersigma/c21-commodities/metrics"
	"github.com/gdownersigma/c21-commodities/pipeline"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var historicalFlag = flag.Bool("historical", false, "Backfill end-of-day records instead of fetching current quotes")

func main() {
	if err := run(context.Background()); err != nil {
		logger.Fatal("Fatal error: %s", err)
	}
}

func run(ctx context.Context) error {
	// A .env file is optional; the scheduler usually injects the secrets.
	_ = godotenv.Load()
	flag.Parse()

	cfg, err := config.BuildConfig()
	if err != nil {
		return errors.Wrap(err, "config error")
	}

	config.GlobalConfigCallback.Call(cfg)

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration error")
	}

	db, err := connectWithRetry(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "database connect and initialize errors")
	}

	store := database.NewStore(db)
	client := fmp.NewClient(&cfg.API, cfg.Pipeline.NumWorkers)
	registry := pipeline.NewSymbolRegistry(cfg.Pipeline.DefaultSymbols, store)
	loader := pipeline.NewLoader(store, cfg.Pipeline.ChunkSize)
	p := pipeline.New(registry, client, store, loader)

	if cfg.Monitoring.Enabled {
		server := metrics.StartServer(cfg.Monitoring.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	var summary *pipeline.Summary
	if *historicalFlag {
		summary = p.RunHistorical(ctx, client, cfg.Pipeline.HistoricalDays)
	} else {
		summary = p.Run(ctx)
	}

	for _, runErr := range summary.Errors {
		logger.Warn("Run %s: %s error at %s stage (%s): %s",
			summary.RunID, runErr.Kind, runErr.Stage, runErr.Symbol, runErr.Err)
	}

	if summary.State == pipeline.StateFailed {
		return errors.Errorf("run %s failed with %d errors", summary.RunID, len(summary.Errors))
	}

	return nil
}

// connectWithRetry wraps the initial connection in the shared backoff policy
// so a briefly unavailable database does not kill a scheduled run outright.
func connectWithRetry(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	var db *gorm.DB

	bOff := backoff.NewExponentialBackOff()
	bOff.MaxElapsedTime = config.BackoffMaxElapsedTime

	err := backoff.RetryNotify(
		func() (err error) {
			db, err = database.ConnectAndInitialize(ctx, &cfg.DB, cfg.Pipeline.DefaultSymbols)
			return err
		},
		bOff,
		func(err error, d time.Duration) {
			logger.Error("Database connect error: %s. Will retry after %s", err, d)
		},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
