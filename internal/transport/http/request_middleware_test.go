// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDMiddlewareGeneratesAndPropagatesRequestID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var gotRequestID string
	h := requestIDMiddleware()(requestLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID, ok := requestIDFromContext(r.Context())
		if !ok {
			t.Fatal("expected request_id in context")
		}
		gotRequestID = requestID
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	respRequestID := rec.Header().Get(headerRequestID)
	if respRequestID == "" {
		t.Fatal("expected X-Request-Id response header")
	}
	if gotRequestID != respRequestID {
		t.Fatalf("expected context request_id %q got %q", respRequestID, gotRequestID)
	}
}

func TestRequestIDMiddlewarePreservesIncomingRequestID(t *testing.T) {
	h := requestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID, ok := requestIDFromContext(r.Context())
		if !ok {
			t.Fatal("expected request_id in context")
		}
		if requestID != "req-fixed-id" {
			t.Fatalf("expected request_id req-fixed-id got %q", requestID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/payments", nil)
	req.Header.Set(headerRequestID, "req-fixed-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if got := rec.Header().Get(headerRequestID); got != "req-fixed-id" {
		t.Fatalf("expected X-Request-Id req-fixed-id got %q", got)
	}
}

func TestRequestLoggingMiddlewareRecordsIdempotencyAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := requestIDMiddleware()(requestLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerIdempotentReplayed, "true")
		_, _ = w.Write([]byte("{}"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader("{}"))
	req.Header.Set(headerIdempotencyKey, "abc123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	line := buf.String()
	for _, want := range []string{"idempotency_key=abc123", "replayed=true", "status=200", "path=/payments"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected log line to contain %q, got %q", want, line)
		}
	}
}

func TestRequestLoggingMiddlewareCapturesFirstStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := requestLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodPost, "/payments", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "status=409") {
		t.Fatalf("expected logged status 409, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "idempotency_key") {
		t.Fatalf("expected no idempotency_key attr without header, got %q", buf.String())
	}
}
