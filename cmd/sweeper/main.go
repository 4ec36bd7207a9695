package main

// Periodic maintenance: expires stale download tokens, expires queued
// pending transfers past their horizon and purges old processed-event
// rows. Run continuously, or once with -once for cron-style scheduling:
//   go run ./cmd/sweeper -once

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pixelmart-backend/internal/downloads"
	"pixelmart-backend/internal/ledger"
	"pixelmart-backend/internal/payments"
	"pixelmart-backend/internal/shared/config"
	"pixelmart-backend/internal/shared/storage/db"
	"pixelmart-backend/internal/shared/telemetry"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	tokens := &downloads.PGRepo{DB: sqlDB}
	pending := &ledger.PGRepo{DB: sqlDB}
	events := &payments.PGEventRepo{DB: sqlDB}

	if *once {
		sweep(ctx, tokens, pending, events)
		return
	}

	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	stop, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("sweeper running every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep(stop, tokens, pending, events)
	for {
		select {
		case <-stop.Done():
			log.Printf("sweeper shutting down")
			return
		case <-ticker.C:
			sweep(stop, tokens, pending, events)
		}
	}
}

func sweep(ctx context.Context, tokens *downloads.PGRepo, pending *ledger.PGRepo, events *payments.PGEventRepo) {
	now := time.Now().UTC()

	expiredTokens, err := tokens.ExpireStale(ctx, now)
	if err != nil {
		telemetry.Error("sweep.tokens_failed", map[string]any{"error": err.Error()})
	}

	expiredPending, err := pending.ExpireStale(ctx, now)
	if err != nil {
		telemetry.Error("sweep.pending_failed", map[string]any{"error": err.Error()})
	}

	purgedEvents, err := events.PurgeExpired(ctx, now)
	if err != nil {
		telemetry.Error("sweep.events_failed", map[string]any{"error": err.Error()})
	}

	telemetry.Info("sweep.completed", map[string]any{
		"expired_tokens":  expiredTokens,
		"expired_pending": expiredPending,
		"purged_events":   purgedEvents,
		"duration_ms":     time.Since(now).Milliseconds(),
	})
}
