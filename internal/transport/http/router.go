// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/adiadia/idempotent-payments/internal/domain"
	"github.com/adiadia/idempotent-payments/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	headerIdempotencyKey     = "Idempotency-Key"
	headerIdempotentReplayed = "Idempotent-Replayed"
	headerRetryAfter         = "Retry-After"
)

// maxRequestBodyBytes caps the create payment body.
const maxRequestBodyBytes = 64 << 10

type createPaymentRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Email       string  `json:"email" validate:"required,email,max=320"`
	Description string  `json:"description" validate:"max=1024"`
}

type Deps struct {
	Payments     PaymentCreator
	Transactions TransactionReader
	Health       HealthChecker
	Logger       *slog.Logger
	Version      string
	Commit       string
	BuildDate    string
}

func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics.Init()
	version := valueOrDefault(deps.Version, "dev")
	commit := valueOrDefault(deps.Commit, "none")
	buildDate := valueOrDefault(deps.BuildDate, "unknown")

	r := chi.NewRouter()
	r.Use(requestIDMiddleware())
	r.Use(requestLoggingMiddleware(logger))

	// ---------------- HEALTH ----------------

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Health != nil {
			if err := deps.Health.Check(r.Context()); err != nil {
				logger.Error("health check failed", "error", err)
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// ---------------- METRICS ----------------

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// ---------------- VERSION ----------------

	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version":    version,
			"commit":     commit,
			"build_date": buildDate,
		})
	})

	// ---------------- CREATE PAYMENT ----------------

	r.Post("/payments", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
		if key == "" {
			metrics.IncPaymentOutcome(metrics.OutcomeMissingKey)
			http.Error(w, "missing Idempotency-Key header", http.StatusBadRequest)
			return
		}

		reqBody, err := decodeCreatePaymentRequest(w, r)
		if err != nil {
			metrics.IncPaymentOutcome(metrics.OutcomeInvalidRequest)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		res, err := deps.Payments.CreatePayment(r.Context(), key, domain.CreateTransactionParams{
			Name:        reqBody.Name,
			Amount:      reqBody.Amount,
			Email:       reqBody.Email,
			Description: reqBody.Description,
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrMissingIdempotencyKey):
				http.Error(w, "missing Idempotency-Key header", http.StatusBadRequest)
			case errors.Is(err, domain.ErrInvalidIdempotencyKey):
				http.Error(w, "invalid Idempotency-Key header", http.StatusBadRequest)
			case errors.Is(err, domain.ErrIdempotencyConflict):
				http.Error(w, "idempotency key already used with a different request", http.StatusConflict)
			case errors.Is(err, domain.ErrRequestInProgress):
				if w.Header().Get(headerRetryAfter) == "" {
					w.Header().Set(headerRetryAfter, "1")
				}
				http.Error(w, "request with this idempotency key is in progress", http.StatusTooManyRequests)
			default:
				logger.Error("create payment failed", "idempotency_key", key, "error", err)
				http.Error(w, "failed to create payment", http.StatusInternalServerError)
			}
			return
		}

		if res.Replayed {
			w.Header().Set(headerIdempotentReplayed, "true")
			writeRawJSON(w, http.StatusOK, res.Response)
			return
		}

		logger.Info("payment created via API", "transaction_id", res.Transaction.ID)
		writeRawJSON(w, http.StatusCreated, res.Response)
	})

	// ---------------- LIST PAYMENTS ----------------

	r.Get("/payments", func(w http.ResponseWriter, r *http.Request) {
		txns, err := deps.Transactions.ListTransactions(r.Context())
		if err != nil {
			logger.Error("list payments failed", "error", err)
			http.Error(w, "failed to fetch payments", http.StatusInternalServerError)
			return
		}
		if txns == nil {
			txns = []domain.Transaction{}
		}
		writeJSON(w, http.StatusOK, txns)
	})

	// ---------------- GET PAYMENT ----------------

	r.Get("/payments/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid payment ID", http.StatusBadRequest)
			return
		}

		txn, err := deps.Transactions.GetTransaction(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrTransactionNotFound) {
				logger.Warn("payment not found", "transaction_id", id)
				http.Error(w, "payment not found", http.StatusNotFound)
				return
			}

			logger.Error("get payment failed", "transaction_id", id, "error", err)
			http.Error(w, "failed to get payment", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, txn)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRawJSON writes an already encoded body unchanged.
func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func decodeCreatePaymentRequest(w http.ResponseWriter, r *http.Request) (createPaymentRequest, error) {
	if r == nil || r.Body == nil || r.Body == http.NoBody {
		return createPaymentRequest{}, invalidPayload("request body is required")
	}

	var req createPaymentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return createPaymentRequest{}, invalidPayload("request body is required")
		}
		return createPaymentRequest{}, invalidPayload(err.Error())
	}

	// Ensure there is only one JSON object.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return createPaymentRequest{}, invalidPayload("request body must contain exactly one JSON object")
	}

	if err := validate.Struct(req); err != nil {
		return createPaymentRequest{}, invalidPayload(validationMessage(err))
	}

	return req, nil
}

func invalidPayload(reason string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidPayload, reason)
}

func valueOrDefault(value, defaultValue string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return defaultValue
	}
	return trimmed
}
