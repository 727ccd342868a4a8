// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adiadia/idempotent-payments/internal/config"
	"github.com/adiadia/idempotent-payments/internal/logging"
	"github.com/adiadia/idempotent-payments/internal/payment"
	"github.com/adiadia/idempotent-payments/internal/persistence/postgres"
	"github.com/adiadia/idempotent-payments/internal/repository"
	"github.com/adiadia/idempotent-payments/internal/repository/memory"
	httptransport "github.com/adiadia/idempotent-payments/internal/transport/http"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	logger := logging.NewLogger(cfg.Env, "payments-api")

	var (
		ledger payment.Ledger
		store  payment.TxRunner
		reader httptransport.TransactionReader
		health httptransport.HealthChecker
	)

	switch cfg.StoreBackend {
	case config.BackendMemory:
		mem := memory.New()
		ledger, store, reader = mem, mem, mem
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect failed: %v", err)
		}
		defer pool.Close()

		if cfg.AutoMigrate {
			if err := postgres.EnsureSchema(ctx, pool, logger); err != nil {
				log.Fatalf("schema bootstrap failed: %v", err)
			}
		}

		txns := repository.NewTransactionRepository(pool, logger)
		ledger = repository.NewIdempotencyRepository(pool, logger)
		store, reader = txns, txns
		health = postgres.NewSchemaHealthChecker(pool)
	}

	pipeline := payment.New(payment.Deps{
		Ledger:        ledger,
		Store:         store,
		Logger:        logger,
		CommitTimeout: cfg.CommitTimeout,
	})

	handler := httptransport.NewRouter(httptransport.Deps{
		Payments:     pipeline,
		Transactions: reader,
		Health:       health,
		Logger:       logger,
		Version:      Version,
		Commit:       Commit,
		BuildDate:    BuildDate,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api listening",
			"addr", cfg.HTTPAddr,
			"backend", cfg.StoreBackend,
			"version", Version,
			"commit", Commit,
			"build_date", BuildDate,
		)

		if err := srv.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.CommitTimeout+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
}
