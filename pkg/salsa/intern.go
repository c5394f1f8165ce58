package salsa

import (
	"fmt"
	"sync"
)

// Interner maps values to dense, nonzero numeric IDs so large keys become
// cheap to hash and compare. Two IDs are equal iff the underlying values are
// equal, IDs are allocated monotonically and never reused, and re-interning
// the same value always yields the same ID — including during revalidation,
// which is what keeps interned keys from causing invalidation storms.
//
// An interned read records a dependency edge whose change revision is the
// revision at which the ID was first created, so an ID's mere existence never
// spuriously invalidates a reader.
type Interner[V comparable] struct {
	rt    *Runtime
	id    QueryID
	qname string

	mu        sync.Mutex
	ids       map[V]ID
	values    []V
	firstSeen []Revision
}

// NewInterner registers an interning table under a stable name.
func NewInterner[V comparable](rt *Runtime, name string) *Interner[V] {
	it := &Interner[V]{
		rt:    rt,
		qname: name,
		ids:   make(map[V]ID),
	}
	it.id = rt.register(it)
	return it
}

// Intern returns the ID for v, allocating one in the current revision on
// first sight. Records a dependency edge on the active frame, if any.
// Interning is permitted while queries run; it never bumps the clock.
func (it *Interner[V]) Intern(h *Handle, v V) ID {
	h.checkUsable()

	it.mu.Lock()
	id, ok := it.ids[v]
	if !ok {
		id = ID(len(it.values) + 1)
		it.ids[v] = id
		it.values = append(it.values, v)
		it.firstSeen = append(it.firstSeen, it.rt.clock.current())
	}
	created := it.firstSeen[id-1]
	it.mu.Unlock()

	// Interned data never changes once allocated, so reads are High.
	h.recordEdge(it.id, KeyID(id-1), created, High)
	return id
}

// Lookup returns the value behind a live ID, recording a dependency edge.
// Panics on an ID this interner never allocated.
func (it *Interner[V]) Lookup(h *Handle, id ID) V {
	h.checkUsable()

	it.mu.Lock()
	if id == 0 || int(id) > len(it.values) {
		it.mu.Unlock()
		panic(fmt.Sprintf("salsa: lookup of dead id %d in interner %s", id, it.qname))
	}
	v := it.values[id-1]
	created := it.firstSeen[id-1]
	it.mu.Unlock()

	h.recordEdge(it.id, KeyID(id-1), created, High)
	return v
}

// dispatcher implementation.

func (it *Interner[V]) name() string { return it.qname }

func (it *Interner[V]) identity(kid KeyID) string {
	it.mu.Lock()
	defer it.mu.Unlock()
	return fmt.Sprintf("%s(%v)", it.qname, it.values[kid])
}

func (it *Interner[V]) hasRecovery() bool { return false }

func (it *Interner[V]) maybeChangedAfter(_ *Handle, kid KeyID, rev Revision) bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.firstSeen[kid] > rev
}

// sweep is a no-op: interned IDs are valid for the runtime's lifetime.
func (it *Interner[V]) sweep(Revision) {}
