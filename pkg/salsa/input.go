package salsa

import (
	"fmt"
	"sync"
)

// Input is a keyed slot of driver-provided values. Setting an input is the
// only way the world changes: every effective Set bumps the revision clock at
// the slot's durability, which is what drives downstream revalidation.
//
// Reads inside a query record a dependency edge on the slot. Reading a key
// that was never set is a programmer error and panics.
type Input[K comparable, V any] struct {
	rt    *Runtime
	id    QueryID
	qname string

	equals func(V, V) bool

	mu      sync.Mutex
	keys    map[K]KeyID
	keyList []K
	slots   []inputSlot[V]
}

type inputSlot[V any] struct {
	value      V
	durability Durability
	changedAt  Revision
	set        bool
}

// NewInput registers an input slot family under a stable name.
func NewInput[K comparable, V any](rt *Runtime, name string) *Input[K, V] {
	in := &Input[K, V]{
		rt:     rt,
		qname:  name,
		equals: defaultEquals[V],
		keys:   make(map[K]KeyID),
	}
	in.id = rt.register(in)
	return in
}

// Get returns the stored value for k and records a dependency edge on the
// active frame, if any. Panics if the key was never set.
func (in *Input[K, V]) Get(h *Handle, k K) V {
	h.checkUsable()
	kid := in.keyID(k)

	in.mu.Lock()
	slot := in.slots[kid]
	in.mu.Unlock()
	if !slot.set {
		panic(fmt.Sprintf("salsa: input %s(%v) read before it was set", in.qname, k))
	}

	h.recordEdge(in.id, kid, slot.changedAt, slot.durability)
	return slot.value
}

// Set stores a value for k at durability d. A value equal to the stored one
// is a no-op; otherwise the revision clock is bumped for d and the slot's
// change revision moves to the new current revision.
//
// Set requires exclusive mode: it returns ErrMutationDuringQuery (wrapped)
// while any query frame is active on any goroutine or any snapshot is live.
func (in *Input[K, V]) Set(h *Handle, k K, v V, d Durability) error {
	h.checkUsable()
	if h.snapshot {
		return fmt.Errorf("set %s(%v) on snapshot handle: %w", in.qname, k, ErrMutationDuringQuery)
	}
	kid := in.keyID(k)

	rt := in.rt
	if err := rt.beginMutation(); err != nil {
		return fmt.Errorf("set %s(%v): %w", in.qname, k, err)
	}
	defer rt.endMutation()

	in.mu.Lock()
	defer in.mu.Unlock()
	slot := &in.slots[kid]
	if slot.set && in.equals(slot.value, v) {
		return nil
	}
	rev := rt.clock.bumpFor(d)
	slot.value = v
	slot.durability = d
	slot.changedAt = rev
	slot.set = true
	rt.logger.Debug("input set",
		"input", in.qname,
		"revision", uint64(rev),
		"durability", d.String(),
	)
	return nil
}

func (in *Input[K, V]) keyID(k K) KeyID {
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.keys[k]; ok {
		return id
	}
	id := KeyID(len(in.keyList))
	in.keys[k] = id
	in.keyList = append(in.keyList, k)
	in.slots = append(in.slots, inputSlot[V]{})
	return id
}

// dispatcher implementation.

func (in *Input[K, V]) name() string { return in.qname }

func (in *Input[K, V]) identity(kid KeyID) string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return fmt.Sprintf("%s(%v)", in.qname, in.keyList[kid])
}

func (in *Input[K, V]) hasRecovery() bool { return false }

func (in *Input[K, V]) maybeChangedAfter(_ *Handle, kid KeyID, rev Revision) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.slots[kid].changedAt > rev
}

// sweep is a no-op: inputs live until the runtime is dropped.
func (in *Input[K, V]) sweep(Revision) {}
