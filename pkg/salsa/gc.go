package salsa

import "fmt"

// Sweep drops memoized entries that have not been verified at or after the
// keep revision. Sweeping is coarse, requires exclusive mode (so no live
// frame can reference a dropped entry), and never touches inputs or interned
// values. Entries evicted here are simply recomputed on next demand.
//
// Returns a wrapped ErrMutationDuringQuery if any query frame is active or
// any snapshot is live.
func (rt *Runtime) Sweep(keep Revision) error {
	rt.stateMu.Lock()
	defer rt.stateMu.Unlock()
	if rt.snapshots > 0 || rt.activeFrames > 0 {
		return fmt.Errorf("sweep at revision %d: %w", uint64(keep), ErrMutationDuringQuery)
	}

	rt.regMu.Lock()
	tables := make([]dispatcher, len(rt.queries))
	copy(tables, rt.queries)
	rt.regMu.Unlock()

	for _, d := range tables {
		d.sweep(keep)
	}
	rt.logger.Debug("sweep complete", "keep", uint64(keep), "revision", uint64(rt.clock.current()))
	return nil
}
