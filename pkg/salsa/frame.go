package salsa

// edge is one recorded dependency: the target's (query, key) pair and the
// target's change revision as observed at read time. Edges are values, never
// pointers into other entries, so the dependency graph carries no ownership.
type edge struct {
	q         QueryID
	k         KeyID
	changedAt Revision
}

// frame is one entry on a handle's active-query stack. It exists only while
// the query body (or its revalidation walk) is running and accumulates the
// dependency edges that will be frozen into the memo on completion.
type frame struct {
	q      QueryID
	k      KeyID
	handle *Handle

	// edges is append-only for the duration of one execution and replaces
	// the memo's list wholesale when the execution completes.
	edges []edge

	// durability is the running minimum over the recorded edges.
	durability Durability

	// cycle is set by the cycle detector when this frame participates in a
	// cycle and its query declares a recovery. Guarded by the runtime's
	// wait-graph lock, since frames of blocked goroutines are marked by
	// the detecting goroutine.
	cycle *Cycle
}

func newFrame(h *Handle, q QueryID, k KeyID) *frame {
	return &frame{
		q:          q,
		k:          k,
		handle:     h,
		durability: High,
	}
}

// recordEdge appends a dependency edge, deduplicating exact repeats. The
// first read's observed revision is the one that matters for revalidation.
func (fr *frame) recordEdge(q QueryID, k KeyID, changedAt Revision, d Durability) {
	fr.durability = minDurability(fr.durability, d)
	for _, e := range fr.edges {
		if e.q == q && e.k == k {
			return
		}
	}
	fr.edges = append(fr.edges, edge{q: q, k: k, changedAt: changedAt})
}

// recordUntracked appends the untracked-read sentinel edge and drops the
// frame's durability to Low: an untracked read can change at any time.
func (fr *frame) recordUntracked() {
	fr.durability = Low
	for _, e := range fr.edges {
		if e.q == untrackedQuery {
			return
		}
	}
	fr.edges = append(fr.edges, edge{q: untrackedQuery})
}

// markCycle records cycle participation. Caller holds the wait-graph lock.
func (fr *frame) markCycle(c *Cycle) {
	fr.cycle = c
}

// marked reports whether the frame currently carries a participation mark.
func (fr *frame) marked() bool {
	wg := &fr.handle.rt.wg
	wg.mu.Lock()
	c := fr.cycle
	wg.mu.Unlock()
	return c != nil
}

// takeCycle returns and clears the participation mark, under the wait-graph
// lock so it cannot race with a detector on another goroutine.
func (fr *frame) takeCycle() *Cycle {
	wg := &fr.handle.rt.wg
	wg.mu.Lock()
	c := fr.cycle
	fr.cycle = nil
	wg.mu.Unlock()
	return c
}
