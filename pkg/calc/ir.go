// Package calc is a small calculator language built on the salsa engine. It
// demonstrates the intended shape of an embedding application: source text is
// a low-durability input, identifiers are interned, and parsing and
// evaluation are memoized queries that revalidate incrementally as the text
// changes.
package calc

import "github.com/macovedj/salsa/pkg/salsa"

// VarID and FnID are interned identifier handles. Two IDs are equal iff the
// identifier text is equal, which keeps the IR cheap to compare when the
// engine decides whether a reparse actually changed anything.
type (
	VarID salsa.ID
	FnID  salsa.ID
)

// Span is a half-open byte range into the source text.
type Span struct {
	Start int
	End   int
}

// Op is a binary arithmetic operator.
type Op int

const (
	OpAdd Op = iota
	OpSubtract
	OpMultiply
	OpDivide
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	default:
		return "?"
	}
}

// Expr is an expression node. Concrete types: Number, Variable, Call, Binary.
type Expr interface {
	Span() Span
	expr()
}

// Number is a literal.
type Number struct {
	At    Span
	Value float64
}

// Variable references an interned variable name.
type Variable struct {
	At  Span
	Var VarID
}

// Call invokes an interned function name with argument expressions.
type Call struct {
	At   Span
	Fn   FnID
	Args []Expr
}

// Binary applies Op to two sub-expressions.
type Binary struct {
	At       Span
	Op       Op
	Lhs, Rhs Expr
}

func (n Number) Span() Span   { return n.At }
func (v Variable) Span() Span { return v.At }
func (c Call) Span() Span     { return c.At }
func (b Binary) Span() Span   { return b.At }

func (Number) expr()   {}
func (Variable) expr() {}
func (Call) expr()     {}
func (Binary) expr()   {}

// Statement is one top-level item. Concrete types: Function, Print.
type Statement interface {
	Span() Span
	stmt()
}

// Function defines `fn <name>(<params>) = <body>`.
type Function struct {
	At     Span
	Name   FnID
	Params []VarID
	Body   Expr
}

// Print defines `print <expr>`.
type Print struct {
	At   Span
	Expr Expr
}

func (f Function) Span() Span { return f.At }
func (p Print) Span() Span    { return p.At }

func (Function) stmt() {}
func (Print) stmt()    {}

// Program is the parse of one source file: its statements plus any
// diagnostics. Programs compare with reflect-style deep equality, so an edit
// that reparses to the identical program does not re-run evaluation.
type Program struct {
	Statements []Statement
	Diags      []Diag
}
