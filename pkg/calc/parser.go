package calc

import (
	"strconv"
	"strings"
)

// parser is a single-pass recursive-descent parser. Parse errors become
// diagnostics and the parser resynchronizes at the next line, so one bad
// statement does not hide the rest of the program.
type parser struct {
	h     *handleInterner
	src   string
	pos   int
	diags []Diag
}

func parse(hi *handleInterner, src string) Program {
	p := &parser{h: hi, src: src}
	var stmts []Statement
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			break
		}
		start := p.pos
		st, ok := p.statement()
		if ok {
			stmts = append(stmts, st)
			continue
		}
		// Resynchronize: drop everything to the end of the line.
		if p.pos == start {
			p.pos++
		}
		for p.pos < len(p.src) && p.src[p.pos] != '\n' {
			p.pos++
		}
	}
	return Program{Statements: stmts, Diags: p.diags}
}

func (p *parser) statement() (Statement, bool) {
	start := p.pos
	word := p.peekWord()
	switch word {
	case "fn":
		return p.functionDef(start)
	case "print":
		p.takeWord()
		expr, ok := p.expression()
		if !ok {
			return nil, false
		}
		return Print{At: Span{Start: start, End: p.pos}, Expr: expr}, true
	default:
		p.errorf("P001", Span{Start: start, End: start + len(word)},
			"expected 'fn' or 'print', found %q", word)
		return nil, false
	}
}

func (p *parser) functionDef(start int) (Statement, bool) {
	p.takeWord() // fn
	name, _, ok := p.identifier()
	if !ok {
		p.errorf("P002", Span{Start: p.pos, End: p.pos}, "expected function name after 'fn'")
		return nil, false
	}
	if !p.expect('(') {
		return nil, false
	}
	var params []VarID
	p.skipSpace()
	if !p.at(')') {
		for {
			param, _, ok := p.identifier()
			if !ok {
				p.errorf("P003", Span{Start: p.pos, End: p.pos}, "expected parameter name")
				return nil, false
			}
			params = append(params, p.h.varID(param))
			p.skipSpace()
			if p.at(',') {
				p.pos++
				p.skipSpace()
				continue
			}
			break
		}
	}
	if !p.expect(')') {
		return nil, false
	}
	if !p.expect('=') {
		return nil, false
	}
	body, ok := p.expression()
	if !ok {
		return nil, false
	}
	return Function{
		At:     Span{Start: start, End: p.pos},
		Name:   p.h.fnID(name),
		Params: params,
		Body:   body,
	}, true
}

func (p *parser) expression() (Expr, bool) {
	lhs, ok := p.term()
	if !ok {
		return nil, false
	}
	for {
		p.skipInline()
		var op Op
		switch {
		case p.at('+'):
			op = OpAdd
		case p.at('-'):
			op = OpSubtract
		default:
			return lhs, true
		}
		p.pos++
		rhs, ok := p.term()
		if !ok {
			return nil, false
		}
		lhs = Binary{
			At:  Span{Start: lhs.Span().Start, End: rhs.Span().End},
			Op:  op,
			Lhs: lhs,
			Rhs: rhs,
		}
	}
}

func (p *parser) term() (Expr, bool) {
	lhs, ok := p.factor()
	if !ok {
		return nil, false
	}
	for {
		p.skipInline()
		var op Op
		switch {
		case p.at('*'):
			op = OpMultiply
		case p.at('/'):
			op = OpDivide
		default:
			return lhs, true
		}
		p.pos++
		rhs, ok := p.factor()
		if !ok {
			return nil, false
		}
		lhs = Binary{
			At:  Span{Start: lhs.Span().Start, End: rhs.Span().End},
			Op:  op,
			Lhs: lhs,
			Rhs: rhs,
		}
	}
}

func (p *parser) factor() (Expr, bool) {
	p.skipInline()
	start := p.pos
	switch {
	case p.at('('):
		p.pos++
		e, ok := p.expression()
		if !ok {
			return nil, false
		}
		if !p.expect(')') {
			return nil, false
		}
		return e, true

	case p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.'):
		end := p.pos
		for end < len(p.src) && (isDigit(p.src[end]) || p.src[end] == '.') {
			end++
		}
		text := p.src[p.pos:end]
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.errorf("P004", Span{Start: start, End: end}, "malformed number %q", text)
			return nil, false
		}
		p.pos = end
		return Number{At: Span{Start: start, End: end}, Value: v}, true

	default:
		name, span, ok := p.identifier()
		if !ok {
			p.errorf("P005", Span{Start: start, End: start}, "expected expression")
			return nil, false
		}
		p.skipInline()
		if p.at('(') {
			p.pos++
			var args []Expr
			p.skipSpace()
			if !p.at(')') {
				for {
					arg, ok := p.expression()
					if !ok {
						return nil, false
					}
					args = append(args, arg)
					p.skipInline()
					if p.at(',') {
						p.pos++
						continue
					}
					break
				}
			}
			if !p.expect(')') {
				return nil, false
			}
			return Call{
				At:   Span{Start: start, End: p.pos},
				Fn:   p.h.fnID(name),
				Args: args,
			}, true
		}
		return Variable{At: span, Var: p.h.varID(name)}, true
	}
}

func (p *parser) identifier() (string, Span, bool) {
	p.skipInline()
	start := p.pos
	end := start
	for end < len(p.src) && (isAlpha(p.src[end]) || (end > start && isDigit(p.src[end]))) {
		end++
	}
	if end == start {
		return "", Span{}, false
	}
	p.pos = end
	return p.src[start:end], Span{Start: start, End: end}, true
}

func (p *parser) peekWord() string {
	save := p.pos
	w, _, ok := p.identifier()
	p.pos = save
	if !ok {
		return ""
	}
	return w
}

func (p *parser) takeWord() {
	p.identifier()
}

func (p *parser) at(c byte) bool {
	return p.pos < len(p.src) && p.src[p.pos] == c
}

func (p *parser) expect(c byte) bool {
	p.skipInline()
	if p.at(c) {
		p.pos++
		return true
	}
	p.errorf("P006", Span{Start: p.pos, End: p.pos}, "expected %q", string(c))
	return false
}

// skipInline skips spaces and tabs but not newlines, which terminate
// statements implicitly during resynchronization.
func (p *parser) skipInline() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && strings.ContainsRune(" \t\r\n", rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *parser) errorf(code string, at Span, format string, args ...any) {
	p.diags = append(p.diags, diagf(code, at, format, args...))
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
