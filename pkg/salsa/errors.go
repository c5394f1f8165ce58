package salsa

import "errors"

// ErrCancelled is returned by Try when the runtime's cancellation flag was
// raised while the query (or one of its dependencies) was running. Queries
// poll the flag at each nested call; the unwind discards partial dependency
// lists and installs no memo entries.
var ErrCancelled = errors.New("salsa: query execution cancelled")

// ErrMutationDuringQuery is returned by Input.Set when a mutation is attempted
// while any query frame is active on any goroutine, or while a snapshot is
// live. Mutations require exclusive access to the runtime.
var ErrMutationDuringQuery = errors.New("salsa: input mutation while queries are active")

// cancelThrow is the internal unwinding payload for cancellation. It is
// panicked from the cancellation poll and converted to ErrCancelled at the
// Try boundary; it never escapes to callers that use Try.
type cancelThrow struct{}

// cycleThrow is the internal unwinding payload for a detected dependency
// cycle. Participant frames whose query declares a recovery convert it to
// their fallback value at their own frame boundary; everywhere else it
// propagates, surfacing as the carried *Cycle at the Try boundary.
type cycleThrow struct {
	c *Cycle
}
