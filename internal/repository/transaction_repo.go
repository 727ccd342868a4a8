// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/adiadia/idempotent-payments/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `id, correlation_id, name, amount, email, description, created_at, updated_at`

type TransactionRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewTransactionRepository(pool *pgxpool.Pool, logger *slog.Logger) *TransactionRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &TransactionRepository{
		pool:   pool,
		logger: logger,
	}
}

// WithinTx runs fn against a single database transaction and commits only
// if fn returns nil.
func (r *TransactionRepository) WithinTx(ctx context.Context, fn func(domain.TxStore) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error("begin tx failed", "error", err)
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("commit failed", "error", err)
		return err
	}
	return nil
}

func (r *TransactionRepository) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		ORDER BY created_at DESC
	`)
	if err != nil {
		r.logger.Error("list transactions query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	txns := make([]domain.Transaction, 0, 32)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return txns, nil
}

func (r *TransactionRepository) GetTransaction(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id=$1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transaction{}, domain.ErrTransactionNotFound
		}
		r.logger.Error("get transaction failed", "transaction_id", id, "error", err)
		return domain.Transaction{}, err
	}
	return t, nil
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) InsertTransaction(ctx context.Context, params domain.NewTransaction) (domain.Transaction, error) {
	return insertTransaction(ctx, s.tx, params)
}

func (s *txStore) CompleteIdempotencyRecord(ctx context.Context, key string, attemptID uuid.UUID, response []byte) error {
	return completeIdempotencyRecord(ctx, s.tx, key, attemptID, response)
}

func insertTransaction(ctx context.Context, db dbtx, params domain.NewTransaction) (domain.Transaction, error) {
	return scanTransaction(db.QueryRow(ctx, `
		INSERT INTO transactions (id, correlation_id, name, amount, email, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+transactionColumns,
		uuid.New(),
		params.CorrelationID,
		params.Name,
		params.Amount,
		params.Email,
		params.Description,
	))
}

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID,
		&t.CorrelationID,
		&t.Name,
		&t.Amount,
		&t.Email,
		&t.Description,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}
