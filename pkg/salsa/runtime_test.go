package salsa

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRevisionAdvancesOnEffectiveSetOnly(t *testing.T) {
	rt := NewRuntime()
	h := rt.Handle()
	in := NewInput[string, int](rt, "n")

	if got := rt.CurrentRevision(); got != 0 {
		t.Errorf("fresh runtime revision = %d, want 0", got)
	}
	if err := in.Set(h, "k", 1, Low); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := rt.CurrentRevision(); got != 1 {
		t.Errorf("revision = %d, want 1", got)
	}
	// Equal value: no revision.
	if err := in.Set(h, "k", 1, Low); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := rt.CurrentRevision(); got != 1 {
		t.Errorf("revision after no-op set = %d, want 1", got)
	}
	if err := in.Set(h, "k", 2, High); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := rt.CurrentRevision(); got != 2 {
		t.Errorf("revision = %d, want 2", got)
	}
}

func TestReleasedSnapshotPanics(t *testing.T) {
	rt := NewRuntime()
	h := rt.Handle()
	q := NewQuery(rt, "q", func(h *Handle, _ unit) int { return 1 })

	s := h.Snapshot()
	s.Release()
	s.Release() // double release is a no-op

	defer func() {
		if recover() == nil {
			t.Errorf("query on released snapshot did not panic")
		}
	}()
	q.Get(s, u)
}

func TestUnsetInputPanics(t *testing.T) {
	rt := NewRuntime()
	h := rt.Handle()
	in := NewInput[string, int](rt, "n")
	defer func() {
		if recover() == nil {
			t.Errorf("reading an unset input did not panic")
		}
	}()
	in.Get(h, "missing")
}

func TestMetricsRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithMetricsRegistry(reg))
	rt := NewRuntime(WithMetrics(m))
	h := rt.Handle()
	in := NewInput[string, int](rt, "n")
	if err := in.Set(h, "k", 1, Low); err != nil {
		t.Fatalf("set: %v", err)
	}

	q := NewQuery(rt, "metered", func(h *Handle, _ unit) int {
		return in.Get(h, "k")
	})
	q.Get(h, u)
	q.Get(h, u)

	if got := testutil.ToFloat64(m.executions.WithLabelValues("metered")); got != 1 {
		t.Errorf("executions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.hits.WithLabelValues("metered")); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}

	s := h.Snapshot()
	if got := testutil.ToFloat64(m.snapshots); got != 1 {
		t.Errorf("active snapshots = %v, want 1", got)
	}
	s.Release()
	if got := testutil.ToFloat64(m.snapshots); got != 0 {
		t.Errorf("active snapshots = %v, want 0", got)
	}
}

func TestDefaultEquals(t *testing.T) {
	if !defaultEquals(3, 3) || defaultEquals(3, 4) {
		t.Errorf("int equality misbehaved")
	}
	if !defaultEquals("a", "a") || defaultEquals("a", "b") {
		t.Errorf("string equality misbehaved")
	}
	type pair struct{ a, b int }
	if !defaultEquals(pair{1, 2}, pair{1, 2}) || defaultEquals(pair{1, 2}, pair{2, 1}) {
		t.Errorf("struct equality misbehaved")
	}
	if !defaultEquals([]int{1, 2}, []int{1, 2}) || defaultEquals([]int{1}, []int{2}) {
		t.Errorf("slice equality misbehaved")
	}
}
