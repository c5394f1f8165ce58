package calc

import (
	"github.com/macovedj/salsa/pkg/salsa"
)

// DB is the calculator's query database: source text inputs, identifier
// interners, and the parse and eval queries, all registered on one runtime.
type DB struct {
	rt *salsa.Runtime
	h  *salsa.Handle

	Text  *salsa.Input[string, string]
	Vars  *salsa.Interner[string]
	Funcs *salsa.Interner[string]

	Parse *salsa.Query[string, Program]
	Eval  *salsa.Query[string, Result]
}

// NewDB builds a database on a fresh runtime. Engine options (logging,
// metrics, tracing) pass through.
func NewDB(opts ...salsa.Option) *DB {
	rt := salsa.NewRuntime(opts...)
	db := &DB{
		rt:    rt,
		h:     rt.Handle(),
		Text:  salsa.NewInput[string, string](rt, "source_text"),
		Vars:  salsa.NewInterner[string](rt, "variable"),
		Funcs: salsa.NewInterner[string](rt, "function"),
	}
	db.Parse = salsa.NewQuery(rt, "parse", func(h *salsa.Handle, file string) Program {
		return parse(&handleInterner{db: db, h: h}, db.Text.Get(h, file))
	})
	db.Eval = salsa.NewQuery(rt, "eval", func(h *salsa.Handle, file string) Result {
		return evaluate(db, h, db.Parse.Get(h, file))
	})
	return db
}

// Runtime exposes the underlying engine runtime.
func (db *DB) Runtime() *salsa.Runtime { return db.rt }

// Handle returns the master handle for driving the database.
func (db *DB) Handle() *salsa.Handle { return db.h }

// SetText installs the source text for a file at LOW durability — the text
// being edited is the most volatile input there is.
func (db *DB) SetText(file, text string) error {
	return db.Text.Set(db.h, file, text, salsa.Low)
}

// VarName and FnName resolve interned identifiers for rendering.
func (db *DB) VarName(h *salsa.Handle, id VarID) string {
	return db.Vars.Lookup(h, salsa.ID(id))
}

func (db *DB) FnName(h *salsa.Handle, id FnID) string {
	return db.Funcs.Lookup(h, salsa.ID(id))
}

// handleInterner bundles the engine handle with the DB's interners so the
// parser can allocate identifier IDs as it goes.
type handleInterner struct {
	db *DB
	h  *salsa.Handle
}

func (hi *handleInterner) varID(name string) VarID {
	return VarID(hi.db.Vars.Intern(hi.h, name))
}

func (hi *handleInterner) fnID(name string) FnID {
	return FnID(hi.db.Funcs.Intern(hi.h, name))
}
