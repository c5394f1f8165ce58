package salsa

import (
	"context"
)

// Handle is the per-goroutine view of a runtime. It carries the active-query
// stack, so it must not be shared between goroutines; derive one handle per
// goroutine with Snapshot.
//
// The master handle (from Runtime.Handle) can both mutate inputs and run
// queries. Snapshot handles are read-only: they run queries concurrently with
// other snapshots, and while any snapshot is live no mutation can succeed.
type Handle struct {
	rt *Runtime
	id uint64

	// ctx is the base context for tracing spans. Nil means background.
	ctx context.Context

	// stack is the active-query stack. Dependency edges are recorded
	// against the top frame.
	stack []*frame

	snapshot bool
	released bool
}

// Snapshot derives a read-only handle for use on another goroutine. The
// runtime stays in shared mode until every snapshot is released; release
// promptly, typically with defer on the goroutine that uses the snapshot:
//
//	snap := h.Snapshot()
//	go func() {
//	    defer snap.Release()
//	    worker(snap)
//	}()
func (h *Handle) Snapshot() *Handle {
	rt := h.rt
	rt.stateMu.Lock()
	rt.snapshots++
	rt.stateMu.Unlock()
	rt.countSnapshot(1)

	return &Handle{
		rt:       rt,
		id:       rt.handleSeq.Add(1),
		ctx:      h.ctx,
		snapshot: true,
	}
}

// Release returns a snapshot handle to the runtime. Releasing the master
// handle or releasing twice is a no-op.
func (h *Handle) Release() {
	if !h.snapshot || h.released {
		return
	}
	h.released = true
	rt := h.rt
	rt.stateMu.Lock()
	rt.snapshots--
	if rt.snapshots == 0 {
		rt.cond.Broadcast()
	}
	rt.stateMu.Unlock()
	rt.countSnapshot(-1)
}

// WithContext returns a handle whose query executions trace under ctx.
func (h *Handle) WithContext(ctx context.Context) *Handle {
	h.ctx = ctx
	return h
}

func (h *Handle) context() context.Context {
	if h.ctx != nil {
		return h.ctx
	}
	return context.Background()
}

// Runtime returns the runtime this handle was derived from.
func (h *Handle) Runtime() *Runtime {
	return h.rt
}

// ReportUntrackedRead declares that the current query read state outside the
// engine's tracking. The query's memo is treated as out of date at every
// revision and re-executes on each access after a revision change. Outside a
// query this is a no-op.
func (h *Handle) ReportUntrackedRead() {
	fr := h.top()
	if fr == nil {
		return
	}
	fr.recordUntracked()
}

// checkCancelled polls the runtime cancellation flag and unwinds when it is
// raised. Called at every nested query read.
func (h *Handle) checkCancelled() {
	if h.rt.cancelled.Load() {
		h.rt.countCancellation()
		panic(cancelThrow{})
	}
}

func (h *Handle) checkUsable() {
	if h.released {
		panic("salsa: use of released snapshot handle")
	}
}

func (h *Handle) top() *frame {
	if len(h.stack) == 0 {
		return nil
	}
	return h.stack[len(h.stack)-1]
}

func (h *Handle) push(fr *frame) {
	h.rt.enterFrame()
	h.stack = append(h.stack, fr)
}

func (h *Handle) pop(fr *frame) {
	if len(h.stack) == 0 || h.stack[len(h.stack)-1] != fr {
		panic("salsa: active-query stack corrupted")
	}
	h.stack = h.stack[:len(h.stack)-1]
	h.rt.exitFrame()
}

// frameIndex returns the stack index of the frame executing (q, k), or -1.
func (h *Handle) frameIndex(q QueryID, k KeyID) int {
	for i, fr := range h.stack {
		if fr.q == q && fr.k == k {
			return i
		}
	}
	return -1
}

// recordEdge appends a dependency edge to the current frame, if any. Reading
// a query from inside another always records the edge, even on a memo hit.
func (h *Handle) recordEdge(q QueryID, k KeyID, changedAt Revision, d Durability) {
	fr := h.top()
	if fr == nil {
		return
	}
	fr.recordEdge(q, k, changedAt, d)
}
