// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"context"

	"github.com/adiadia/idempotent-payments/internal/domain"
	"github.com/adiadia/idempotent-payments/internal/payment"
	"github.com/google/uuid"
)

type PaymentCreator interface {
	CreatePayment(ctx context.Context, key string, params domain.CreateTransactionParams) (payment.Result, error)
}

type TransactionReader interface {
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (domain.Transaction, error)
}

type HealthChecker interface {
	Check(ctx context.Context) error
}
