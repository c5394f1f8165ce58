package salsa

import "sync/atomic"

// clock is the runtime's revision counter. Besides the current revision it
// tracks, per durability level, the most recent revision at which an input of
// that durability or higher was set to a new value: a change at durability d
// writes every level up to d, so changed[d] alone answers "did anything that
// could affect a memo of durability d change?". The levels are monotonic in
// d: changed[Low] >= changed[Medium] >= changed[High].
//
// Reads use atomics so queries can consult the clock without taking the
// runtime lock. Bumps happen only under the runtime's state lock while no
// query is executing, which totally orders every bump with respect to every
// read that observes it.
type clock struct {
	now     atomic.Uint64
	changed [numDurabilities]atomic.Uint64
}

// current returns the current revision.
func (c *clock) current() Revision {
	return Revision(c.now.Load())
}

// bumpFor advances the clock for a mutation at durability d and returns the
// new current revision. Caller must hold the runtime state lock with no
// active frames or snapshots.
func (c *clock) bumpFor(d Durability) Revision {
	r := c.now.Add(1)
	for lvl := Low; lvl <= d; lvl++ {
		c.changed[lvl].Store(r)
	}
	return Revision(r)
}

// changedSince reports whether any input that could affect a memo of
// durability d has changed after revision r. A memo's durability is the
// minimum over its inputs' durabilities, so all of its inputs sit at level d
// or higher, and changed[d] covers every one of them. This is the durability
// short-circuit: when it reports false, the memo is fresh without walking its
// dependency edges.
func (c *clock) changedSince(d Durability, r Revision) bool {
	return Revision(c.changed[d].Load()) > r
}
