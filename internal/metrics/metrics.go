// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for payment_requests_total.
const (
	OutcomeCreated        = "created"
	OutcomeReplayed       = "replayed"
	OutcomeConflict       = "conflict"
	OutcomeInProgress     = "in_progress"
	OutcomeMissingKey     = "missing_key"
	OutcomeInvalidRequest = "invalid_request"
	OutcomeError          = "error"
)

var (
	initOnce sync.Once

	paymentRequestsCounter  *prometheus.CounterVec
	pipelineDurationMetric  prometheus.Histogram
	recordsReclaimedCounter prometheus.Counter
	admitRacesCounter       prometheus.Counter
)

// Init registers metrics on the default Prometheus registry exactly once.
func Init() {
	initOnce.Do(func() {
		paymentRequestsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_requests_total",
				Help: "Total number of payment creation requests by idempotency outcome.",
			},
			[]string{"outcome"},
		)

		pipelineDurationMetric = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "payment_pipeline_duration_seconds",
				Help:    "Duration of idempotent payment creation in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		)

		recordsReclaimedCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "idempotency_records_reclaimed_total",
				Help: "Total number of stale processing idempotency records reclaimed.",
			},
		)

		admitRacesCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "idempotency_admit_races_total",
				Help: "Total number of admits that lost the race to a concurrent request.",
			},
		)

		prometheus.MustRegister(
			paymentRequestsCounter,
			pipelineDurationMetric,
			recordsReclaimedCounter,
			admitRacesCounter,
		)

		// Ensure counter vectors are visible at /metrics before first increment.
		for _, outcome := range []string{
			OutcomeCreated,
			OutcomeReplayed,
			OutcomeConflict,
			OutcomeInProgress,
			OutcomeMissingKey,
			OutcomeInvalidRequest,
			OutcomeError,
		} {
			paymentRequestsCounter.WithLabelValues(outcome)
		}
	})
}

func IncPaymentOutcome(outcome string) {
	Init()
	paymentRequestsCounter.WithLabelValues(outcome).Inc()
}

func ObservePipelineDuration(d time.Duration) {
	Init()
	pipelineDurationMetric.Observe(d.Seconds())
}

func AddRecordsReclaimed(n int64) {
	Init()
	recordsReclaimedCounter.Add(float64(n))
}

func IncAdmitRaces() {
	Init()
	admitRacesCounter.Inc()
}
