// SPDX-License-Identifier: Apache-2.0

// Package payment creates transactions exactly once per idempotency key.
//
// A key moves Unseen -> Processing -> Completed. The ledger admit is the
// only point where two requests can race; the loser observes the winner's
// record. The transaction insert and the ledger completion are committed in
// one storage transaction, so a Transaction never exists without its cached
// response.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adiadia/idempotent-payments/internal/domain"
	"github.com/adiadia/idempotent-payments/internal/fingerprint"
	"github.com/adiadia/idempotent-payments/internal/metrics"
	"github.com/google/uuid"
)

const MaxIdempotencyKeyLength = 255

const defaultCommitTimeout = 10 * time.Second

type Ledger interface {
	Lookup(ctx context.Context, key string) (domain.IdempotencyRecord, bool, error)
	Begin(ctx context.Context, key string, fingerprint string, attemptID uuid.UUID) (domain.BeginResult, error)
}

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(domain.TxStore) error) error
}

type Deps struct {
	Ledger Ledger
	Store  TxRunner
	Logger *slog.Logger
	// CommitTimeout bounds the create-and-complete unit, which keeps running
	// after the caller's context is canceled.
	CommitTimeout time.Duration
}

type Pipeline struct {
	ledger        Ledger
	store         TxRunner
	logger        *slog.Logger
	commitTimeout time.Duration
	newAttemptID  func() uuid.UUID
}

// Result is a successful creation. Response holds the exact bytes cached in
// the ledger; Replayed reports whether they came from an earlier request.
type Result struct {
	Transaction domain.Transaction
	Response    json.RawMessage
	Replayed    bool
}

func New(deps Deps) *Pipeline {
	if deps.Ledger == nil {
		panic("payment.New requires a ledger")
	}
	if deps.Store == nil {
		panic("payment.New requires a store")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := deps.CommitTimeout
	if timeout <= 0 {
		timeout = defaultCommitTimeout
	}

	return &Pipeline{
		ledger:        deps.Ledger,
		store:         deps.Store,
		logger:        logger,
		commitTimeout: timeout,
		newAttemptID:  uuid.New,
	}
}

// CreatePayment answers one creation request for key. It never waits or
// retries: a key held by another in-flight attempt fails immediately with
// domain.ErrRequestInProgress.
func (p *Pipeline) CreatePayment(ctx context.Context, key string, params domain.CreateTransactionParams) (Result, error) {
	started := time.Now()

	res, outcome, err := p.create(ctx, key, params)

	metrics.IncPaymentOutcome(outcome)
	metrics.ObservePipelineDuration(time.Since(started))
	return res, err
}

func (p *Pipeline) create(ctx context.Context, key string, params domain.CreateTransactionParams) (Result, string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Result{}, metrics.OutcomeMissingKey, domain.ErrMissingIdempotencyKey
	}
	if len(key) > MaxIdempotencyKeyLength {
		return Result{}, metrics.OutcomeInvalidRequest, domain.ErrInvalidIdempotencyKey
	}

	fp := fingerprint.Of(params)

	rec, found, err := p.ledger.Lookup(ctx, key)
	if err != nil {
		p.logger.Error("idempotency lookup failed", "idempotency_key", key, "error", err)
		return Result{}, metrics.OutcomeError, fmt.Errorf("%w: lookup idempotency record: %w", domain.ErrStorage, err)
	}

	if !found {
		attemptID := p.newAttemptID()
		begun, err := p.ledger.Begin(ctx, key, fp, attemptID)
		if err != nil {
			p.logger.Error("idempotency admit failed", "idempotency_key", key, "error", err)
			return Result{}, metrics.OutcomeError, fmt.Errorf("%w: admit idempotency key: %w", domain.ErrStorage, err)
		}
		if begun.Admitted {
			return p.commit(ctx, key, attemptID, params)
		}

		metrics.IncAdmitRaces()
		rec = begun.Existing
	}

	return p.resolveExisting(key, rec, fp)
}

func (p *Pipeline) resolveExisting(key string, rec domain.IdempotencyRecord, fp string) (Result, string, error) {
	if rec.Fingerprint != fp {
		p.logger.Warn("idempotency key reused with different payload", "idempotency_key", key)
		return Result{}, metrics.OutcomeConflict, domain.ErrIdempotencyConflict
	}

	if rec.State() != domain.IdempotencyCompleted {
		p.logger.Info("idempotency key in progress", "idempotency_key", key, "attempt_id", rec.AttemptID)
		return Result{}, metrics.OutcomeInProgress, domain.ErrRequestInProgress
	}

	res := Result{Response: rec.Response, Replayed: true}
	if err := json.Unmarshal(rec.Response, &res.Transaction); err != nil {
		// The cached bytes are still what the client must receive.
		p.logger.Warn("cached response is not a transaction", "idempotency_key", key, "error", err)
	}

	p.logger.Info("payment replayed",
		"idempotency_key", key,
		"transaction_id", res.Transaction.ID,
	)
	return res, metrics.OutcomeReplayed, nil
}

func (p *Pipeline) commit(ctx context.Context, key string, attemptID uuid.UUID, params domain.CreateTransactionParams) (Result, string, error) {
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.commitTimeout)
	defer cancel()

	var res Result
	err := p.store.WithinTx(commitCtx, func(tx domain.TxStore) error {
		txn, err := tx.InsertTransaction(commitCtx, domain.NewTransaction{
			CorrelationID:           attemptID,
			CreateTransactionParams: params,
		})
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		body, err := json.Marshal(txn)
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}

		if err := tx.CompleteIdempotencyRecord(commitCtx, key, attemptID, body); err != nil {
			return fmt.Errorf("complete idempotency record: %w", err)
		}

		res = Result{Transaction: txn, Response: body}
		return nil
	})
	if err != nil {
		attrs := []any{"idempotency_key", key, "attempt_id", attemptID, "error", err}
		if errors.Is(err, domain.ErrRecordNotFound) {
			attrs = append(attrs, "reason", "attempt no longer in flight")
		}
		p.logger.Error("payment commit failed", attrs...)
		return Result{}, metrics.OutcomeError, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}

	p.logger.Info("payment created",
		"idempotency_key", key,
		"transaction_id", res.Transaction.ID,
		"correlation_id", attemptID,
	)
	return res, metrics.OutcomeCreated, nil
}
