package salsa

// Revision is a tick of the runtime's logical clock. Revisions are strictly
// monotonic and advance only on input mutation.
type Revision uint64

// QueryID identifies a registered query, input, or interner within one
// runtime. IDs are dense indexes into the runtime's dispatch table.
// ID zero is reserved for the untracked-read sentinel.
type QueryID uint32

// KeyID is a dense per-query key index. Edges in a memo's dependency list are
// (QueryID, KeyID) pairs, so the dependency graph is represented by values
// rather than by ownership.
type KeyID uint32

// ID is an interned-value identifier. IDs are nonzero, allocated
// monotonically, and never reused within a runtime's lifetime: re-interning
// the same value always yields the same ID.
type ID uint32

// untrackedQuery is the dispatch slot for untracked reads. An edge on this
// slot reports "changed" at every revision, forcing its holder to re-execute.
const untrackedQuery QueryID = 0
