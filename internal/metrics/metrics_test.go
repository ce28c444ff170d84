package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Draw("completed")
	m.Draw("completed")
	m.Draw("conflict")
	m.Transition("invite")
	m.ObserveRPC("/santa.v1.DrawService/RunDraw", "ok", 20*time.Millisecond)

	if got := testutil.ToFloat64(m.draws.WithLabelValues("completed")); got != 2 {
		t.Errorf("completed draws: expected 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.draws.WithLabelValues("conflict")); got != 1 {
		t.Errorf("conflict draws: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("invite")); got != 1 {
		t.Errorf("invites: expected 1, got %v", got)
	}
	if got := testutil.CollectAndCount(m.rpcDuration); got != 1 {
		t.Errorf("rpc series: expected 1, got %d", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) != 3 {
		t.Errorf("expected 3 metric families, got %d", len(families))
	}
}
