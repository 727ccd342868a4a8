// SPDX-License-Identifier: Apache-2.0

// Package memory implements the idempotency ledger and transaction store in
// process memory. It honors the same contracts as the Postgres repositories
// and is meant for local runs and tests, not for multi-instance deployments.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/adiadia/idempotent-payments/internal/domain"
	"github.com/google/uuid"
)

type Store struct {
	mu      sync.Mutex
	records map[string]domain.IdempotencyRecord
	txns    map[uuid.UUID]domain.Transaction
	byCorr  map[uuid.UUID]uuid.UUID
	now     func() time.Time
}

func New() *Store {
	return &Store{
		records: make(map[string]domain.IdempotencyRecord, 64),
		txns:    make(map[uuid.UUID]domain.Transaction, 64),
		byCorr:  make(map[uuid.UUID]uuid.UUID, 64),
		now:     time.Now,
	}
}

// SetClock replaces the time source; used by tests that age records.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Lookup(ctx context.Context, key string) (domain.IdempotencyRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.IdempotencyRecord{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return domain.IdempotencyRecord{}, false, nil
	}
	return copyRecord(rec), true, nil
}

func (s *Store) Begin(ctx context.Context, key string, fingerprint string, attemptID uuid.UUID) (domain.BeginResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.BeginResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[key]; ok {
		return domain.BeginResult{Existing: copyRecord(existing)}, nil
	}

	now := s.now()
	s.records[key] = domain.IdempotencyRecord{
		Key:         key,
		Fingerprint: fingerprint,
		AttemptID:   attemptID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return domain.BeginResult{Admitted: true}, nil
}

func (s *Store) Complete(ctx context.Context, key string, attemptID uuid.UUID, response []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inFlightLocked(key, attemptID) {
		return domain.ErrRecordNotFound
	}
	s.completeLocked(key, response)
	return nil
}

func (s *Store) ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	var reclaimed int64
	for key, rec := range s.records {
		if rec.Response == nil && rec.CreatedAt.Before(cutoff) {
			delete(s.records, key)
			reclaimed++
		}
	}
	return reclaimed, nil
}

// WithinTx stages the writes made by fn and applies them together once fn
// returns nil. Completion of an attempt that was reclaimed in the meantime
// discards every staged write.
func (s *Store) WithinTx(ctx context.Context, fn func(domain.TxStore) error) error {
	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range tx.completions {
		if !s.inFlightLocked(c.key, c.attemptID) {
			return domain.ErrRecordNotFound
		}
	}
	for _, t := range tx.inserts {
		if _, dup := s.byCorr[t.CorrelationID]; dup {
			return domain.ErrStorage
		}
	}

	for _, t := range tx.inserts {
		s.txns[t.ID] = t
		s.byCorr[t.CorrelationID] = t.ID
	}
	for _, c := range tx.completions {
		s.completeLocked(c.key, c.response)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txns := make([]domain.Transaction, 0, len(s.txns))
	for _, t := range s.txns {
		txns = append(txns, t)
	}
	sort.Slice(txns, func(i, j int) bool {
		return txns[i].CreatedAt.After(txns[j].CreatedAt)
	})
	return txns, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.txns[id]
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}
	return t, nil
}

func (s *Store) inFlightLocked(key string, attemptID uuid.UUID) bool {
	rec, ok := s.records[key]
	return ok && rec.AttemptID == attemptID && rec.Response == nil
}

func (s *Store) completeLocked(key string, response []byte) {
	rec := s.records[key]
	rec.Response = bytes.Clone(response)
	if rec.Response == nil {
		rec.Response = []byte{}
	}
	rec.UpdatedAt = s.now()
	s.records[key] = rec
}

type pendingCompletion struct {
	key       string
	attemptID uuid.UUID
	response  []byte
}

type memTx struct {
	store       *Store
	inserts     []domain.Transaction
	completions []pendingCompletion
}

func (t *memTx) InsertTransaction(ctx context.Context, params domain.NewTransaction) (domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Transaction{}, err
	}

	t.store.mu.Lock()
	now := t.store.now()
	t.store.mu.Unlock()

	txn := domain.Transaction{
		ID:            uuid.New(),
		CorrelationID: params.CorrelationID,
		Name:          params.Name,
		Amount:        params.Amount,
		Email:         params.Email,
		Description:   params.Description,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	t.inserts = append(t.inserts, txn)
	return txn, nil
}

func (t *memTx) CompleteIdempotencyRecord(ctx context.Context, key string, attemptID uuid.UUID, response []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.store.mu.Lock()
	inFlight := t.store.inFlightLocked(key, attemptID)
	t.store.mu.Unlock()
	if !inFlight {
		return domain.ErrRecordNotFound
	}

	t.completions = append(t.completions, pendingCompletion{
		key:       key,
		attemptID: attemptID,
		response:  bytes.Clone(response),
	})
	return nil
}

func copyRecord(rec domain.IdempotencyRecord) domain.IdempotencyRecord {
	if rec.Response != nil {
		rec.Response = bytes.Clone(rec.Response)
	}
	return rec
}
