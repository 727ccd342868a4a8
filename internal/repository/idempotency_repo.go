// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/adiadia/idempotent-payments/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectIdempotencyRecord = `
	SELECT key, fingerprint, attempt_id, response, created_at, updated_at
	FROM idempotency_records
	WHERE key=$1`

// IdempotencyRepository is the durable ledger of idempotency keys. Key
// uniqueness is enforced by the idempotency_records_key_unique constraint.
type IdempotencyRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewIdempotencyRepository(pool *pgxpool.Pool, logger *slog.Logger) *IdempotencyRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &IdempotencyRepository{
		pool:   pool,
		logger: logger,
	}
}

func (r *IdempotencyRepository) Lookup(ctx context.Context, key string) (domain.IdempotencyRecord, bool, error) {
	rec, err := scanIdempotencyRecord(r.pool.QueryRow(ctx, selectIdempotencyRecord, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.IdempotencyRecord{}, false, nil
		}
		r.logger.Error("lookup idempotency record failed", "idempotency_key", key, "error", err)
		return domain.IdempotencyRecord{}, false, err
	}
	return rec, true, nil
}

// Begin inserts a Processing record for key. Losing the insert race is not
// an error: the winner's record is returned with Admitted=false.
func (r *IdempotencyRepository) Begin(
	ctx context.Context,
	key string,
	fingerprint string,
	attemptID uuid.UUID,
) (domain.BeginResult, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_records (key, fingerprint, attempt_id)
		VALUES ($1, $2, $3)
	`, key, fingerprint, attemptID)
	if err == nil {
		r.logger.Debug("idempotency key admitted", "idempotency_key", key, "attempt_id", attemptID)
		return domain.BeginResult{Admitted: true}, nil
	}
	if !isUniqueViolation(err) {
		r.logger.Error("admit idempotency key failed", "idempotency_key", key, "error", err)
		return domain.BeginResult{}, err
	}

	existing, err := scanIdempotencyRecord(r.pool.QueryRow(ctx, selectIdempotencyRecord, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Reclaimed between the conflicting insert and this read.
			return domain.BeginResult{}, domain.ErrRecordNotFound
		}
		r.logger.Error("read conflicting idempotency record failed", "idempotency_key", key, "error", err)
		return domain.BeginResult{}, err
	}

	r.logger.Info("idempotency key admit lost race", "idempotency_key", key)
	return domain.BeginResult{Existing: existing}, nil
}

// Complete stores response for the in-flight attempt on key outside of any
// spanning transaction.
func (r *IdempotencyRepository) Complete(ctx context.Context, key string, attemptID uuid.UUID, response []byte) error {
	return completeIdempotencyRecord(ctx, r.pool, key, attemptID, response)
}

// ReclaimStale deletes Processing records admitted before now-olderThan so
// their keys can be admitted again.
func (r *IdempotencyRepository) ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM idempotency_records
		WHERE response IS NULL
		  AND created_at < $1
	`, time.Now().Add(-olderThan))
	if err != nil {
		r.logger.Error("reclaim stale idempotency records failed", "error", err)
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func completeIdempotencyRecord(ctx context.Context, db dbtx, key string, attemptID uuid.UUID, response []byte) error {
	tag, err := db.Exec(ctx, `
		UPDATE idempotency_records
		SET response=$3, updated_at=NOW()
		WHERE key=$1
		  AND attempt_id=$2
		  AND response IS NULL
	`, key, attemptID, response)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func scanIdempotencyRecord(row pgx.Row) (domain.IdempotencyRecord, error) {
	var (
		rec      domain.IdempotencyRecord
		response []byte
	)
	if err := row.Scan(
		&rec.Key,
		&rec.Fingerprint,
		&rec.AttemptID,
		&response,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return domain.IdempotencyRecord{}, err
	}
	if response != nil {
		rec.Response = response
	}
	return rec, nil
}
