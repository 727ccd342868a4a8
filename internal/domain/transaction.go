// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"time"

	"github.com/google/uuid"
)

// CreateTransactionParams is the client-supplied payload of a payment.
type CreateTransactionParams struct {
	Name        string
	Amount      float64
	Email       string
	Description string
}

type NewTransaction struct {
	CorrelationID uuid.UUID
	CreateTransactionParams
}

type Transaction struct {
	ID            uuid.UUID `json:"id"`
	CorrelationID uuid.UUID `json:"correlation_id"`
	Name          string    `json:"name"`
	Amount        float64   `json:"amount"`
	Email         string    `json:"email"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
