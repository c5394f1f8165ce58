package salsa

import (
	"strings"
	"testing"
)

func TestMemoization(t *testing.T) {
	rt := NewRuntime()
	h := rt.Handle()
	in := NewInput[string, int](rt, "n")
	if err := in.Set(h, "k", 5, Low); err != nil {
		t.Fatalf("set: %v", err)
	}

	execs := 0
	doubled := NewQuery(rt, "doubled", func(h *Handle, _ unit) int {
		execs++
		return in.Get(h, "k") * 2
	})

	if got := doubled.Get(h, u); got != 10 {
		t.Errorf("value = %d, want 10", got)
	}
	if got := doubled.Get(h, u); got != 10 {
		t.Errorf("value = %d, want 10", got)
	}
	if execs != 1 {
		t.Errorf("executions = %d, want 1 (second read memoized)", execs)
	}
}

func TestInputChangeRevalidation(t *testing.T) {
	rt := NewRuntime()
	h := rt.Handle()
	in := NewInput[string, int](rt, "n")
	if err := in.Set(h, "a", 1, Low); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := in.Set(h, "b", 2, Low); err != nil {
		t.Fatalf("set: %v", err)
	}

	execsA, execsB := 0, 0
	readsA := NewQuery(rt, "reads_a", func(h *Handle, _ unit) int {
		execsA++
		return in.Get(h, "a") + 10
	})
	readsB := NewQuery(rt, "reads_b", func(h *Handle, _ unit) int {
		execsB++
		return in.Get(h, "b") + 10
	})

	readsA.Get(h, u)
	readsB.Get(h, u)

	if err := in.Set(h, "a", 100, Low); err != nil {
		t.Fatalf("set: %v", err)
	}

	// The query reading the changed key re-executes; the other does not.
	if got := readsA.Get(h, u); got != 110 {
		t.Errorf("reads_a = %d, want 110", got)
	}
	if got := readsB.Get(h, u); got != 12 {
		t.Errorf("reads_b = %d, want 12", got)
	}
	if execsA != 2 {
		t.Errorf("reads_a executions = %d, want 2", execsA)
	}
	if execsB != 1 {
		t.Errorf("reads_b executions = %d, want 1", execsB)
	}
}

// When a re-executed query produces an equal value, its direct dependents
// revalidate through the recorded edge without running their own bodies.
func TestEqualityShortCircuit(t *testing.T) {
	rt := NewRuntime()
	h := rt.Handle()
	text := NewInput[string, string](rt, "text")
	if err := text.Set(h, "f", "  hello", Low); err != nil {
		t.Fatalf("set: %v", err)
	}

	trimExecs, lenExecs := 0, 0
	trimmed := NewQuery(rt, "trimmed", func(h *Handle, _ unit) string {
		trimExecs++
		return strings.TrimSpace(text.Get(h, "f"))
	})
	length := NewQuery(rt, "length", func(h *Handle, _ unit) int {
		lenExecs++
		return len(trimmed.Get(h, u))
	})

	if got := length.Get(h, u); got != 5 {
		t.Errorf("length = %d, want 5", got)
	}

	// Different raw text, same trimmed value.
	if err := text.Set(h, "f", "hello   ", Low); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := length.Get(h, u); got != 5 {
		t.Errorf("length = %d, want 5", got)
	}
	if trimExecs != 2 {
		t.Errorf("trimmed executions = %d, want 2", trimExecs)
	}
	if lenExecs != 1 {
		t.Errorf("length executions = %d, want 1 (revalidated, not re-executed)", lenExecs)
	}
}

func TestCustomEquality(t *testing.T) {
	rt := NewRuntime()
	h := rt.Handle()
	in := NewInput[string, int](rt, "n")
	if err := in.Set(h, "k", 3, Low); err != nil {
		t.Fatalf("set: %v", err)
	}

	parityExecs, depExecs := 0, 0
	// Values compare equal when their parity matches.
	parity := NewQuery(rt, "parity", func(h *Handle, _ unit) int {
		parityExecs++
		return in.Get(h, "k")
	}, WithEquals[unit, int](func(a, b int) bool { return a%2 == b%2 }))
	dep := NewQuery(rt, "dep", func(h *Handle, _ unit) int {
		depExecs++
		return parity.Get(h, u) % 2
	})

	if got := dep.Get(h, u); got != 1 {
		t.Errorf("dep = %d, want 1", got)
	}
	if err := in.Set(h, "k", 5, Low); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := dep.Get(h, u); got != 1 {
		t.Errorf("dep = %d, want 1", got)
	}
	if parityExecs != 2 {
		t.Errorf("parity executions = %d, want 2", parityExecs)
	}
	if depExecs != 1 {
		t.Errorf("dep executions = %d, want 1 (3 and 5 compare equal)", depExecs)
	}
}

func TestUntrackedReadForcesReExecution(t *testing.T) {
	rt := NewRuntime()
	h := rt.Handle()
	in := NewInput[string, int](rt, "n")
	if err := in.Set(h, "k", 1, Low); err != nil {
		t.Fatalf("set: %v", err)
	}

	external := 100
	execs := 0
	vol := NewQuery(rt, "volatile", func(h *Handle, _ unit) int {
		execs++
		h.ReportUntrackedRead()
		return external
	})

	if got := vol.Get(h, u); got != 100 {
		t.Errorf("value = %d, want 100", got)
	}
	// Within one revision the memo is reused.
	if got := vol.Get(h, u); got != 100 {
		t.Errorf("value = %d, want 100", got)
	}
	if execs != 1 {
		t.Errorf("executions = %d, want 1", execs)
	}

	// Any new revision re-executes the untracked query, even though the
	// changed input is unrelated.
	external = 200
	if err := in.Set(h, "k", 2, Low); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := vol.Get(h, u); got != 200 {
		t.Errorf("value = %d, want 200", got)
	}
	if execs != 2 {
		t.Errorf("executions = %d, want 2", execs)
	}
}

func TestNestedQueriesRecordEdges(t *testing.T) {
	rt := NewRuntime()
	h := rt.Handle()
	in := NewInput[string, int](rt, "n")
	if err := in.Set(h, "k", 2, Low); err != nil {
		t.Fatalf("set: %v", err)
	}

	squareExecs, quadExecs := 0, 0
	square := NewQuery(rt, "square", func(h *Handle, _ unit) int {
		squareExecs++
		v := in.Get(h, "k")
		return v * v
	})
	quad := NewQuery(rt, "quad", func(h *Handle, _ unit) int {
		quadExecs++
		s := square.Get(h, u)
		return s * s
	})

	if got := quad.Get(h, u); got != 16 {
		t.Errorf("quad = %d, want 16", got)
	}
	if err := in.Set(h, "k", 3, Low); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := quad.Get(h, u); got != 81 {
		t.Errorf("quad = %d, want 81", got)
	}
	if squareExecs != 2 || quadExecs != 2 {
		t.Errorf("executions = %d/%d, want 2/2", squareExecs, quadExecs)
	}
}
