package calc

import (
	"strconv"

	"github.com/macovedj/salsa/pkg/salsa"
)

// Result is the evaluation of one file: the output of its print statements,
// in order, plus parse and evaluation diagnostics.
type Result struct {
	Outputs []string
	Diags   []Diag
}

// Failed reports whether any diagnostics were produced.
func (r Result) Failed() bool { return len(r.Diags) > 0 }

// maxCallDepth bounds recursive function calls so a recursive definition
// produces a diagnostic instead of a runaway evaluation.
const maxCallDepth = 64

type evaluator struct {
	db    *DB
	h     *salsa.Handle
	funcs map[FnID]Function
	diags []Diag
	depth int
}

// evaluate runs a parsed program. It is deterministic: diagnostics and
// outputs depend only on the program, so the eval query memoizes cleanly on
// top of the parse query.
func evaluate(db *DB, h *salsa.Handle, prog Program) Result {
	ev := &evaluator{
		db:    db,
		h:     h,
		funcs: make(map[FnID]Function),
	}
	ev.diags = append(ev.diags, prog.Diags...)

	for _, st := range prog.Statements {
		if fn, ok := st.(Function); ok {
			if _, dup := ev.funcs[fn.Name]; dup {
				ev.errorf("E004", fn.At, "function %q defined twice", db.FnName(h, fn.Name))
			}
			ev.funcs[fn.Name] = fn
		}
	}

	var outputs []string
	for _, st := range prog.Statements {
		pr, ok := st.(Print)
		if !ok {
			continue
		}
		v, ok := ev.eval(pr.Expr, nil)
		if ok {
			outputs = append(outputs, strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	return Result{Outputs: outputs, Diags: ev.diags}
}

func (ev *evaluator) eval(e Expr, env map[VarID]float64) (float64, bool) {
	switch n := e.(type) {
	case Number:
		return n.Value, true

	case Variable:
		v, ok := env[n.Var]
		if !ok {
			ev.errorf("E001", n.At, "undefined variable %q", ev.db.VarName(ev.h, n.Var))
			return 0, false
		}
		return v, true

	case Binary:
		lhs, ok := ev.eval(n.Lhs, env)
		if !ok {
			return 0, false
		}
		rhs, ok := ev.eval(n.Rhs, env)
		if !ok {
			return 0, false
		}
		switch n.Op {
		case OpAdd:
			return lhs + rhs, true
		case OpSubtract:
			return lhs - rhs, true
		case OpMultiply:
			return lhs * rhs, true
		case OpDivide:
			if rhs == 0 {
				ev.errorf("E005", n.At, "division by zero")
				return 0, false
			}
			return lhs / rhs, true
		default:
			return 0, false
		}

	case Call:
		fn, ok := ev.funcs[n.Fn]
		if !ok {
			ev.errorf("E002", n.At, "undefined function %q", ev.db.FnName(ev.h, n.Fn))
			return 0, false
		}
		if len(n.Args) != len(fn.Params) {
			ev.errorf("E003", n.At, "function %q takes %d argument(s), got %d",
				ev.db.FnName(ev.h, n.Fn), len(fn.Params), len(n.Args))
			return 0, false
		}
		if ev.depth >= maxCallDepth {
			ev.errorf("E006", n.At, "call depth limit exceeded in %q", ev.db.FnName(ev.h, n.Fn))
			return 0, false
		}
		callEnv := make(map[VarID]float64, len(fn.Params))
		for i, param := range fn.Params {
			v, ok := ev.eval(n.Args[i], env)
			if !ok {
				return 0, false
			}
			callEnv[param] = v
		}
		ev.depth++
		v, ok := ev.eval(fn.Body, callEnv)
		ev.depth--
		return v, ok

	default:
		return 0, false
	}
}

func (ev *evaluator) errorf(code string, at Span, format string, args ...any) {
	ev.diags = append(ev.diags, diagf(code, at, format, args...))
}

// RenderDiags formats diagnostics against the file's current text.
func RenderDiags(src string, diags []Diag) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Render(src)
	}
	return out
}
