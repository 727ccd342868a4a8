// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/adiadia/idempotent-payments/internal/config"
	"github.com/adiadia/idempotent-payments/internal/logging"
	"github.com/adiadia/idempotent-payments/internal/persistence/postgres"
	"github.com/adiadia/idempotent-payments/internal/reaper"
	"github.com/adiadia/idempotent-payments/internal/repository"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	logger := logging.NewLogger(cfg.Env, "payments-reaper")

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if err := postgres.SchemaReady(ctx, pool); err != nil {
		log.Fatalf("schema not ready: %v", err)
	}

	r := reaper.New(reaper.Deps{
		Reclaimer:  repository.NewIdempotencyRepository(pool, logger),
		Logger:     logger,
		StaleAfter: cfg.StaleAfter,
		Interval:   cfg.ReapInterval,
	})

	if err := r.Run(ctx); err != nil {
		logger.Error("reaper failed", "error", err)
		os.Exit(1)
	}
}
