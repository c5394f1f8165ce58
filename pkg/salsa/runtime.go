package salsa

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Runtime owns the revision clock, the registered query tables, and the
// coordination state shared by every handle: the snapshot count, the active
// frame count, the cancellation flag, and the cross-goroutine wait graph.
//
// A Runtime has two modes. In exclusive mode the driver may mutate inputs and
// no query is executing. In shared mode any number of snapshots may run
// queries concurrently and no mutation is allowed. Transitions to exclusive
// mode require all outstanding snapshots to be released.
//
// Create one with NewRuntime and derive handles from it; the Runtime itself
// has no query methods.
type Runtime struct {
	id      uuid.UUID
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	clock clock

	// stateMu guards the exclusive/shared mode accounting. cond is
	// broadcast whenever snapshots or activeFrames drops to zero so
	// CancelAndWait can observe the transition.
	stateMu      sync.Mutex
	cond         *sync.Cond
	snapshots    int
	activeFrames int
	cancelled    atomic.Bool

	// regMu guards the dispatch table. Slot 0 is the untracked sentinel.
	regMu   sync.Mutex
	queries []dispatcher

	wg waitGraph

	handleSeq atomic.Uint64
}

// dispatcher is the uniform record behind every registered query, input, and
// interner. A single table of these over numeric IDs replaces virtual
// dispatch: edges name their target by QueryID and the revalidation engine
// routes through here.
type dispatcher interface {
	// name returns the registration name.
	name() string

	// identity renders the stable "name(key)" string used in cycle
	// reports.
	identity(k KeyID) string

	// hasRecovery reports whether the query declared a cycle fallback.
	hasRecovery() bool

	// maybeChangedAfter reports whether the value of key k at the current
	// revision differs from its value at revision rev. It may execute the
	// query body.
	maybeChangedAfter(h *Handle, k KeyID, rev Revision) bool

	// sweep drops memoized entries not verified since the keep revision.
	// Inputs and interners keep everything.
	sweep(keep Revision)
}

// NewRuntime creates an empty runtime. Register inputs, interners, and
// queries against it before deriving handles and running queries.
func NewRuntime(opts ...Option) *Runtime {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	rt := &Runtime{
		id:      uuid.New(),
		metrics: cfg.metrics,
		tracer:  cfg.tracer,
	}
	rt.logger = cfg.logger.With("runtime", rt.id.String())
	rt.cond = sync.NewCond(&rt.stateMu)
	rt.wg.edges = make(map[uint64]*waitEdge)

	// Slot 0: the untracked-read sentinel. Edges against it are always
	// out of date.
	rt.queries = []dispatcher{untrackedDep{}}
	return rt
}

// Handle returns the runtime's master handle. The master handle may mutate
// inputs (when no snapshots are live) and run queries; it is bound to a
// single goroutine at a time.
func (rt *Runtime) Handle() *Handle {
	return &Handle{
		rt: rt,
		id: rt.handleSeq.Add(1),
	}
}

// CurrentRevision returns the revision the runtime is at. It advances on
// every effective input mutation.
func (rt *Runtime) CurrentRevision() Revision {
	return rt.clock.current()
}

// CancelAndWait raises the cancellation flag, then blocks until every active
// query frame has unwound and every snapshot has been released. On return the
// runtime is in exclusive mode and the flag is cleared, so mutation is
// permitted and subsequent reads run normally.
//
// Queries observe cancellation at each nested query call and unwind without
// installing memo entries; from a caller's viewpoint the unwind has the same
// shape as a panic.
func (rt *Runtime) CancelAndWait() {
	rt.cancelled.Store(true)
	rt.logger.Debug("cancellation requested")

	rt.stateMu.Lock()
	for rt.activeFrames > 0 || rt.snapshots > 0 {
		rt.cond.Wait()
	}
	rt.cancelled.Store(false)
	rt.stateMu.Unlock()
}

// register adds a dispatcher to the table and returns its QueryID.
// Registration happens at setup time, before queries run.
func (rt *Runtime) register(d dispatcher) QueryID {
	rt.regMu.Lock()
	defer rt.regMu.Unlock()
	id := QueryID(len(rt.queries))
	rt.queries = append(rt.queries, d)
	return id
}

// dispatch returns the dispatcher registered under q.
func (rt *Runtime) dispatch(q QueryID) dispatcher {
	rt.regMu.Lock()
	defer rt.regMu.Unlock()
	return rt.queries[q]
}

// beginMutation checks that the runtime is in exclusive mode: no snapshot is
// live and no query frame is active anywhere. It leaves stateMu held on
// success so the clock bump and the slot write are ordered before any
// subsequent read; the caller must call endMutation.
func (rt *Runtime) beginMutation() error {
	rt.stateMu.Lock()
	if rt.snapshots > 0 || rt.activeFrames > 0 {
		rt.stateMu.Unlock()
		return ErrMutationDuringQuery
	}
	return nil
}

func (rt *Runtime) endMutation() {
	rt.stateMu.Unlock()
}

// enterFrame and exitFrame maintain the global active-frame count used by the
// mutation guard and by CancelAndWait.
func (rt *Runtime) enterFrame() {
	rt.stateMu.Lock()
	rt.activeFrames++
	rt.stateMu.Unlock()
}

func (rt *Runtime) exitFrame() {
	rt.stateMu.Lock()
	rt.activeFrames--
	if rt.activeFrames == 0 {
		rt.cond.Broadcast()
	}
	rt.stateMu.Unlock()
}

// untrackedDep is the dispatcher behind the sentinel edge recorded by
// Handle.ReportUntrackedRead. Its value is unknowable to the engine, so it is
// treated as changed at every revision.
type untrackedDep struct{}

func (untrackedDep) name() string          { return "untracked" }
func (untrackedDep) identity(KeyID) string { return "untracked" }
func (untrackedDep) hasRecovery() bool     { return false }
func (untrackedDep) sweep(Revision)        {}

func (untrackedDep) maybeChangedAfter(*Handle, KeyID, Revision) bool { return true }
