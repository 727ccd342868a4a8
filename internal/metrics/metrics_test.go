// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncPaymentOutcome(t *testing.T) {
	Init()
	before := testutil.ToFloat64(paymentRequestsCounter.WithLabelValues(OutcomeReplayed))

	IncPaymentOutcome(OutcomeReplayed)

	after := testutil.ToFloat64(paymentRequestsCounter.WithLabelValues(OutcomeReplayed))
	if after != before+1 {
		t.Fatalf("expected replayed counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestAddRecordsReclaimed(t *testing.T) {
	Init()
	before := testutil.ToFloat64(recordsReclaimedCounter)

	AddRecordsReclaimed(3)

	if got := testutil.ToFloat64(recordsReclaimedCounter); got != before+3 {
		t.Fatalf("expected reclaimed counter to increase by 3, got %v -> %v", before, got)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
	ObservePipelineDuration(10 * time.Millisecond)
	IncAdmitRaces()
}
