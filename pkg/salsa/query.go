package salsa

import (
	"fmt"
	"sync"
)

// Query is a memoized pure function from K to V, registered with a runtime.
// The body's dependencies — inputs, interned values, and other queries read
// while it runs — are tracked automatically and drive revalidation when
// inputs change.
//
// Bodies must be deterministic functions of their key and of the values they
// read through the handle. User-level failures are ordinary values: store an
// error inside V and compare it like any other result.
type Query[K comparable, V any] struct {
	rt    *Runtime
	id    QueryID
	qname string
	body  func(*Handle, K) V

	equals   func(V, V) bool
	recovery func(*Handle, *Cycle, K) V

	// mu guards the key table and the entry slots.
	mu      sync.Mutex
	keys    map[K]KeyID
	keyList []K
	entries []*entry[V]
}

// QueryOption configures a query at registration time.
type QueryOption[K comparable, V any] func(*Query[K, V])

// WithEquals sets the equality predicate used to decide whether a re-executed
// query produced a new value. When the new value is equal to the old, direct
// dependents revalidate without re-executing. Defaults to defaultEquals.
func WithEquals[K comparable, V any](eq func(V, V) bool) QueryOption[K, V] {
	return func(q *Query[K, V]) {
		q.equals = eq
	}
}

// WithRecovery opts the query into cycle fallback. When the query
// participates in a dependency cycle, f receives the cycle (with its ordered
// participant list) and the key, and its return value is memoized in place of
// a computed one. Without a recovery, cycle participation unwinds as a *Cycle
// failure.
func WithRecovery[K comparable, V any](f func(h *Handle, c *Cycle, k K) V) QueryOption[K, V] {
	return func(q *Query[K, V]) {
		q.recovery = f
	}
}

// NewQuery registers a query under a stable name. The name appears in cycle
// reports as "name(key)" and in metrics and trace spans.
func NewQuery[K comparable, V any](rt *Runtime, name string, body func(*Handle, K) V, opts ...QueryOption[K, V]) *Query[K, V] {
	q := &Query[K, V]{
		rt:    rt,
		qname: name,
		body:  body,
		keys:  make(map[K]KeyID),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.equals == nil {
		q.equals = defaultEquals[V]
	}
	q.id = rt.register(q)
	return q
}

// Get returns the query's value for k, computing or revalidating as needed.
// Inside another query it records a dependency edge, even on a memo hit.
//
// Get is for use inside query bodies and other engine callbacks: engine
// failures (cycles without full recovery, cancellation) unwind through it.
// Top-level callers should prefer Try.
func (q *Query[K, V]) Get(h *Handle, k K) V {
	h.checkUsable()
	h.checkCancelled()
	kid := q.keyID(k)
	m := q.fetchMemo(h, kid)
	h.recordEdge(q.id, kid, m.changedAt, m.durability)
	return m.value
}

// Try is the top-level form of Get: engine unwinds are converted to errors.
// A cycle that escaped recovery comes back as a *Cycle; cancellation comes
// back as ErrCancelled. User panics keep propagating.
func (q *Query[K, V]) Try(h *Handle, k K) (v V, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch t := r.(type) {
		case *cycleThrow:
			err = t.c
		case cancelThrow:
			err = ErrCancelled
		default:
			panic(r)
		}
	}()
	return q.Get(h, k), nil
}

// keyID interns k into the query's dense key space.
func (q *Query[K, V]) keyID(k K) KeyID {
	q.mu.Lock()
	defer q.mu.Unlock()
	if id, ok := q.keys[k]; ok {
		return id
	}
	id := KeyID(len(q.keyList))
	q.keys[k] = id
	q.keyList = append(q.keyList, k)
	q.entries = append(q.entries, &entry[V]{})
	return id
}

func (q *Query[K, V]) keyFor(kid KeyID) K {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.keyList[kid]
}

// dispatcher implementation.

func (q *Query[K, V]) name() string { return q.qname }

func (q *Query[K, V]) identity(kid KeyID) string {
	return fmt.Sprintf("%s(%v)", q.qname, q.keyFor(kid))
}

func (q *Query[K, V]) hasRecovery() bool { return q.recovery != nil }

// maybeChangedAfter reports whether the value at the current revision differs
// from the value at rev. It brings the entry fully up to date, executing the
// body if revalidation demands it.
func (q *Query[K, V]) maybeChangedAfter(h *Handle, kid KeyID, rev Revision) bool {
	m := q.fetchMemo(h, kid)
	return m.changedAt > rev
}

func (q *Query[K, V]) sweep(keep Revision) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.claim == nil && e.memo != nil && e.memo.verifiedAt < keep {
			e.memo = nil
		}
	}
}
