// SPDX-License-Identifier: Apache-2.0

package domain

import "errors"

var ErrMissingIdempotencyKey = errors.New("missing idempotency key")
var ErrInvalidIdempotencyKey = errors.New("invalid idempotency key")
var ErrInvalidPayload = errors.New("invalid payment payload")
var ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")
var ErrRequestInProgress = errors.New("request with this idempotency key is in progress")

// ErrRecordNotFound is returned when completing a key that has no matching
// in-flight attempt.
var ErrRecordNotFound = errors.New("idempotency record not found")
var ErrTransactionNotFound = errors.New("transaction not found")
var ErrStorage = errors.New("storage failure")
