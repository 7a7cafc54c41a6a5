// Command housekeeper removes access-token denylist rows whose tokens have
// expired. Run it periodically, e.g. from cron.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ecosort/recycle-assistant/internal/config"
	"github.com/ecosort/recycle-assistant/internal/logging"
	"github.com/ecosort/recycle-assistant/internal/repository/postgres"
	"github.com/ecosort/recycle-assistant/internal/service"
)

func main() {
	timeout := flag.Duration("timeout", time.Minute, "maximum run time")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	err = run(ctx, cfg, time.Now())
	cancel()
	if err != nil {
		logging.Error().Err(err).Msg("housekeeping failed")
		os.Exit(1)
	}
}

// run purges denylist rows that expired before now minus the configured
// retention. The database connection is closed before it returns.
func run(ctx context.Context, cfg *config.Config, now time.Time) error {
	db, err := postgres.NewConnection(cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	tokens := service.NewTokenLedger(postgres.NewRepositories(db), cfg)

	cutoff := now.Add(-cfg.DenylistRetention)
	purged, err := tokens.PurgeExpiredDenylist(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge denylist: %w", err)
	}
	logging.Info().Int64("purged", purged).Time("cutoff", cutoff).Msg("denylist purged")
	return nil
}
