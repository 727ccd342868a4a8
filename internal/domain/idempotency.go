// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type IdempotencyState string

const (
	IdempotencyUnseen     IdempotencyState = "UNSEEN"
	IdempotencyProcessing IdempotencyState = "PROCESSING"
	IdempotencyCompleted  IdempotencyState = "COMPLETED"
)

// IdempotencyRecord is the ledger entry for one idempotency key. Response is
// nil while the attempt identified by AttemptID is in flight.
type IdempotencyRecord struct {
	Key         string
	Fingerprint string
	AttemptID   uuid.UUID
	Response    json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r IdempotencyRecord) State() IdempotencyState {
	if r.Key == "" {
		return IdempotencyUnseen
	}
	if r.Response == nil {
		return IdempotencyProcessing
	}
	return IdempotencyCompleted
}

// BeginResult reports whether an admit call won the key. When Admitted is
// false, Existing holds the record that was already present.
type BeginResult struct {
	Admitted bool
	Existing IdempotencyRecord
}

// TxStore is the write surface available inside one storage transaction.
// Both writes become visible together or not at all.
type TxStore interface {
	InsertTransaction(ctx context.Context, params NewTransaction) (Transaction, error)
	CompleteIdempotencyRecord(ctx context.Context, key string, attemptID uuid.UUID, response []byte) error
}
