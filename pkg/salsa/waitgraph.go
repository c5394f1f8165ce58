package salsa

import "sync"

// waitGraph tracks which handle is blocked on which in-progress frame, and
// who owns that frame. A cycle in this graph is a distributed query cycle:
// detection follows the same rules as the intra-goroutine case, with the
// participant list aggregated across the blocked handles' stacks.
//
// A handle publishes its active-query stack into its wait edge while blocked;
// the stack is frozen for that span, so the detecting goroutine can walk and
// mark it safely under the graph lock.
type waitGraph struct {
	mu    sync.Mutex
	edges map[uint64]*waitEdge
}

// waitEdge records one blocked handle.
type waitEdge struct {
	h     *Handle
	onQ   QueryID
	onK   KeyID
	owner *Handle

	// cl is the claim being awaited. A claim owner always resolves the
	// claim before it can park again, so an edge whose claim is done is
	// stale: its holder is about to wake, and no cycle runs through it.
	cl *claim

	// stack is the waiter's active-query stack, published for the
	// lifetime of the block.
	stack []*frame

	// wake delivers a detected cycle to the parked goroutine, telling it
	// to unwind instead of waiting for the frame to complete.
	wake chan *Cycle
}

// blockOn parks the handle until the claim completes or a cycle involving it
// is detected. Returns normally when the claim was resolved (the caller
// re-reads the entry); unwinds with a cycleThrow when this wait would close a
// loop in the wait graph, or when another goroutine's detection named one of
// our frames a participant.
func (rt *Runtime) blockOn(h *Handle, q QueryID, k KeyID, cl *claim) {
	rt.wg.mu.Lock()

	// The claim may have completed between the table lookup and here; if
	// so there is nothing to wait for.
	select {
	case <-cl.done:
		rt.wg.mu.Unlock()
		return
	default:
	}

	if c := rt.detectWaitCycle(h, q, k, cl.owner); c != nil {
		rt.wg.mu.Unlock()
		h.recordEdge(q, k, rt.clock.current(), c.durability)
		rt.countCycle()
		rt.logger.Debug("cross-thread cycle detected", "participants", c.ids)
		panic(&cycleThrow{c})
	}

	e := &waitEdge{
		h:     h,
		onQ:   q,
		onK:   k,
		owner: cl.owner,
		cl:    cl,
		stack: h.stack,
		wake:  make(chan *Cycle, 1),
	}
	rt.wg.edges[h.id] = e
	rt.wg.mu.Unlock()

	select {
	case <-cl.done:
		rt.wg.mu.Lock()
		delete(rt.wg.edges, h.id)
		// A detector may have raced the completion and named us a
		// participant; honor the unwind.
		select {
		case c := <-e.wake:
			rt.wg.mu.Unlock()
			h.recordEdge(q, k, rt.clock.current(), c.durability)
			panic(&cycleThrow{c})
		default:
		}
		rt.wg.mu.Unlock()
	case c := <-e.wake:
		rt.wg.mu.Lock()
		delete(rt.wg.edges, h.id)
		rt.wg.mu.Unlock()
		h.recordEdge(q, k, rt.clock.current(), c.durability)
		panic(&cycleThrow{c})
	}
}

// detectWaitCycle checks whether h blocking on a frame owned by owner would
// close a loop. If so it builds the aggregated cycle, marks every
// recovery-capable participant frame, and wakes the blocked handles on the
// loop; the caller unwinds itself. Caller holds wg.mu.
func (rt *Runtime) detectWaitCycle(h *Handle, q QueryID, k KeyID, owner *Handle) *Cycle {
	// Follow owner links until the chain dead-ends (no cycle) or returns
	// to h (cycle). Every handle on the loop except h is blocked, so its
	// stack is frozen and published on its edge.
	var hops []*waitEdge
	cur := owner
	for cur != h {
		e, ok := rt.wg.edges[cur.id]
		if !ok {
			return nil
		}
		// A stale edge (awaited claim already resolved) means its
		// holder is waking, not waiting; no cycle runs through it.
		select {
		case <-e.cl.done:
			return nil
		default:
		}
		hops = append(hops, e)
		cur = e.owner
	}

	// Aggregate participants. Each stack contributes the suffix from the
	// frame producing the awaited key to its top: the direct owner's
	// stack starting at (q, k), each further hop's stack starting at what
	// the previous handle was waiting on, and finally our own stack
	// starting at what the last hop waits on.
	var frames []*frame
	awaitQ, awaitK := q, k
	collect := func(stack []*frame) {
		for i, fr := range stack {
			if fr.q == awaitQ && fr.k == awaitK {
				frames = append(frames, stack[i:]...)
				return
			}
		}
	}
	for _, e := range hops {
		collect(e.stack)
		awaitQ, awaitK = e.onQ, e.onK
	}
	collect(h.stack)

	c := newCycle(rt, frames)
	for _, fr := range frames {
		if rt.dispatch(fr.q).hasRecovery() {
			fr.markCycle(c)
		}
	}
	for _, e := range hops {
		select {
		case e.wake <- c:
		default:
		}
	}
	return c
}
