package salsa

import (
	"sort"
	"strings"
)

// participant names one frame on a detected cycle.
type participant struct {
	q QueryID
	k KeyID
}

// Cycle describes a detected dependency cycle: a query that transitively
// depends on itself, within one goroutine or across several.
//
// The participant list is canonical: every caller that observes the same
// cycle sees the identical ordering, no matter which participant it entered
// through. Cycle implements error and is what Try returns when a cycle
// escapes recovery.
type Cycle struct {
	keys []participant
	ids  []string

	// durability is the minimum accumulated durability across the
	// participant frames at detection time. Recovered memos fold it in, so
	// a high-durability participant cannot outlive the low-durability
	// input that created the cycle.
	durability Durability
}

// newCycle builds the canonical cycle record from the participating frames.
// Participants sort by their rendered identity.
func newCycle(rt *Runtime, frames []*frame) *Cycle {
	c := &Cycle{durability: High}
	seen := make(map[participant]bool, len(frames))
	type namedKey struct {
		key participant
		id  string
	}
	named := make([]namedKey, 0, len(frames))
	for _, fr := range frames {
		key := participant{q: fr.q, k: fr.k}
		if seen[key] {
			continue
		}
		seen[key] = true
		named = append(named, namedKey{key: key, id: rt.dispatch(fr.q).identity(fr.k)})
		c.durability = minDurability(c.durability, fr.durability)
	}
	sort.Slice(named, func(i, j int) bool { return named[i].id < named[j].id })
	for _, n := range named {
		c.keys = append(c.keys, n.key)
		c.ids = append(c.ids, n.id)
	}
	return c
}

// Participants returns the ordered participant identities, rendered as
// "name(key)".
func (c *Cycle) Participants() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Error implements error.
func (c *Cycle) Error() string {
	return "salsa: dependency cycle among: " + strings.Join(c.ids, ", ")
}

func (c *Cycle) participates(q QueryID, k KeyID) bool {
	for _, key := range c.keys {
		if key.q == q && key.k == k {
			return true
		}
	}
	return false
}

// raiseCycle handles a back-edge into a frame executing on the same handle:
// the contiguous stack suffix from that frame to the top is the participant
// set. Participant frames whose query declares a recovery are marked so they
// convert the unwind to their fallback value at their own frame boundary;
// everything else lets it pass. The attempted edge is recorded on the current
// top frame before unwinding so the recovered memo revalidates through it.
func (rt *Runtime) raiseCycle(h *Handle, q QueryID, k KeyID) {
	idx := h.frameIndex(q, k)
	if idx < 0 {
		panic("salsa: cycle raised without a conflicting frame")
	}

	rt.wg.mu.Lock()
	c := newCycle(rt, h.stack[idx:])
	for _, fr := range h.stack[idx:] {
		if rt.dispatch(fr.q).hasRecovery() {
			fr.markCycle(c)
		}
	}
	rt.wg.mu.Unlock()

	h.recordEdge(q, k, rt.clock.current(), c.durability)
	rt.countCycle()
	rt.logger.Debug("cycle detected", "participants", c.ids)
	panic(&cycleThrow{c})
}
