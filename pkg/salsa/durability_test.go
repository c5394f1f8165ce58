package salsa

import "testing"

// peekMemo reads an entry's memo without going through fetch, for white-box
// assertions about verification behavior.
func peekMemo[K comparable, V any](q *Query[K, V], k K) *memo[V] {
	kid := q.keyID(k)
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.entries[kid].memo
}

// A memo whose durability exceeds everything changed since its verification
// is confirmed fresh without walking its edges: the inner query underneath it
// is never even consulted.
func TestDurabilityShortCircuitSkipsEdgeWalk(t *testing.T) {
	rt := NewRuntime()
	h := rt.Handle()
	stdlib := NewInput[string, string](rt, "stdlib")
	scratch := NewInput[string, string](rt, "scratch")
	if err := stdlib.Set(h, "core", "fn main", High); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := scratch.Set(h, "buf", "x", Low); err != nil {
		t.Fatalf("set: %v", err)
	}

	inner := NewQuery(rt, "inner", func(h *Handle, _ unit) int {
		return len(stdlib.Get(h, "core"))
	})
	outer := NewQuery(rt, "outer", func(h *Handle, _ unit) int {
		return inner.Get(h, u) * 2
	})

	if got := outer.Get(h, u); got != 14 {
		t.Errorf("outer = %d, want 14", got)
	}
	innerVerified := peekMemo(inner, u).verifiedAt

	// A LOW change cannot affect a HIGH memo; outer revalidates without
	// touching inner at all.
	if err := scratch.Set(h, "buf", "y", Low); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := outer.Get(h, u); got != 14 {
		t.Errorf("outer = %d, want 14", got)
	}
	if m := peekMemo(outer, u); m.verifiedAt != rt.CurrentRevision() {
		t.Errorf("outer verifiedAt = %d, want %d", m.verifiedAt, rt.CurrentRevision())
	}
	if m := peekMemo(inner, u); m.verifiedAt != innerVerified {
		t.Errorf("inner verifiedAt moved to %d: edge walk was not skipped", m.verifiedAt)
	}
}

// One volatile dependency taints the whole entry: a memo that read both HIGH
// and LOW inputs carries LOW durability and must re-examine its edges on a
// LOW change.
func TestDurabilityIsMinimumOverEdges(t *testing.T) {
	rt := NewRuntime()
	h := rt.Handle()
	stable := NewInput[string, int](rt, "stable")
	volatileIn := NewInput[string, int](rt, "volatile")
	if err := stable.Set(h, "k", 100, High); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := volatileIn.Set(h, "k", 1, Low); err != nil {
		t.Fatalf("set: %v", err)
	}

	execs := 0
	sum := NewQuery(rt, "sum", func(h *Handle, _ unit) int {
		execs++
		return stable.Get(h, "k") + volatileIn.Get(h, "k")
	})

	if got := sum.Get(h, u); got != 101 {
		t.Errorf("sum = %d, want 101", got)
	}
	if m := peekMemo(sum, u); m.durability != Low {
		t.Errorf("durability = %v, want LOW", m.durability)
	}

	if err := volatileIn.Set(h, "k", 2, Low); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := sum.Get(h, u); got != 102 {
		t.Errorf("sum = %d, want 102", got)
	}
	if execs != 2 {
		t.Errorf("executions = %d, want 2", execs)
	}
}

// A HIGH change must still invalidate LOW memos that read the HIGH input:
// the per-level change revisions cascade downward.
func TestHighChangeInvalidatesLowerMemos(t *testing.T) {
	rt := NewRuntime()
	h := rt.Handle()
	stable := NewInput[string, int](rt, "stable")
	volatileIn := NewInput[string, int](rt, "volatile")
	if err := stable.Set(h, "k", 1, High); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := volatileIn.Set(h, "k", 10, Low); err != nil {
		t.Fatalf("set: %v", err)
	}

	sum := NewQuery(rt, "sum", func(h *Handle, _ unit) int {
		return stable.Get(h, "k") + volatileIn.Get(h, "k")
	})
	if got := sum.Get(h, u); got != 11 {
		t.Errorf("sum = %d, want 11", got)
	}

	if err := stable.Set(h, "k", 2, High); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := sum.Get(h, u); got != 12 {
		t.Errorf("sum = %d, want 12 after HIGH change", got)
	}
}

func TestDurabilityString(t *testing.T) {
	cases := map[Durability]string{Low: "LOW", Medium: "MEDIUM", High: "HIGH", Durability(9): "INVALID"}
	for d, want := range cases {
		if got := d.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(d), got, want)
		}
	}
}
