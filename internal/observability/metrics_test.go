package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"multichain-distributor/internal/orchestrator"
)

func TestRecordCycleHealthGauge(t *testing.T) {
	// promauto registers on the default registry; a unique namespace keeps
	// this test independent of other registrations.
	m := NewMetrics("observability_test")

	failed := &orchestrator.CycleResult{
		StartedAt:  1_000,
		FinishedAt: 2_000,
		Networks:   map[string]*orchestrator.NetworkOutcome{},
		Errors:     []string{"network ethereum: wallet balance: connection refused"},
	}
	m.RecordCycle(failed)

	if got := testutil.ToFloat64(m.LastSuccessfulCycle); got != 0 {
		t.Fatalf("errored cycle advanced the health gauge to %v", got)
	}
	if got := testutil.ToFloat64(m.CycleErrors); got != 1 {
		t.Errorf("expected 1 cycle error counted, got %v", got)
	}

	clean := &orchestrator.CycleResult{
		StartedAt:  3_000,
		FinishedAt: 4_000,
		Networks:   map[string]*orchestrator.NetworkOutcome{},
	}
	m.RecordCycle(clean)

	if got := testutil.ToFloat64(m.LastSuccessfulCycle); got != 4.0 {
		t.Errorf("expected health gauge at 4.0 (4000ms in seconds), got %v", got)
	}
}
