// Package salsa provides an incremental, demand-driven computation engine.
//
// The engine memoizes the results of pure functions ("queries") over a set of
// mutable inputs, tracks fine-grained dependencies between computations at
// runtime, and re-validates cached results across revisions of the input set.
// Reading a query after an input change always returns a value equal to what a
// from-scratch computation would produce, while re-executing only the queries
// whose transitive inputs actually changed.
//
// # Core Types
//
// Runtime owns the revision clock, the memo stores, and the cross-goroutine
// coordination state. Every operation goes through a Handle derived from it:
//
//	rt := salsa.NewRuntime()
//	h := rt.Handle()
//
// Input[K, V] is a keyed value slot set by the driver:
//
//	text := salsa.NewInput[string, string](rt, "source_text")
//	err := text.Set(h, "main", "print 1 + 2", salsa.Low)
//	v := text.Get(h, "main") // records a dependency edge when read in a query
//
// Query[K, V] is a memoized pure function of its key and of the values it
// reads. Dependencies are tracked automatically as the body runs:
//
//	parse := salsa.NewQuery(rt, "parse", func(h *salsa.Handle, file string) Ast {
//	    return parseText(text.Get(h, file))
//	})
//	ast := parse.Get(h, "main")
//
// Interner[V] maps values to stable numeric IDs so large keys become cheap to
// hash and compare. IDs are never reused within a runtime's lifetime.
//
// # Revisions and Durability
//
// Every input mutation advances the runtime's revision. Inputs carry a
// Durability chosen by the setter; a memoized query's durability is the
// minimum over the inputs it transitively observed. When nothing at or above
// a memo's durability has changed since it was last verified, the memo is
// known fresh without walking its dependency edges.
//
// # Concurrency
//
// A Handle is bound to a single goroutine. Additional goroutines obtain
// read-only handles via Snapshot; mutation requires all snapshots to be
// released. Concurrent readers of the same (query, key) block on the first
// executor rather than duplicating work. The engine detects dependency cycles
// within and across goroutines; queries opt in to cycle recovery with
// WithRecovery, otherwise a cycle surfaces as a *Cycle failure from Try.
package salsa
