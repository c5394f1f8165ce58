package calc

import (
	"fmt"
	"strings"
)

// Diag is a structured diagnostic with a stable code and a source span.
// Diagnostics are values carried inside query results, never engine errors:
// a program that fails to parse still parses deterministically.
type Diag struct {
	// Code is a stable identifier, e.g. "P001" for parse errors and
	// "E001" for evaluation errors.
	Code string

	// Message is a short description of the problem.
	Message string

	// At is the source span the diagnostic points to.
	At Span
}

// Error implements error.
func (d Diag) Error() string {
	if d.Code != "" {
		return fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return d.Message
}

// Render formats the diagnostic against the source text as
// "line:col: CODE: message".
func (d Diag) Render(src string) string {
	line, col := position(src, d.At.Start)
	return fmt.Sprintf("%d:%d: %s", line, col, d.Error())
}

func diagf(code string, at Span, format string, args ...any) Diag {
	return Diag{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		At:      at,
	}
}

// position converts a byte offset to 1-based line and column.
func position(src string, offset int) (line, col int) {
	if offset > len(src) {
		offset = len(src)
	}
	before := src[:offset]
	line = 1 + strings.Count(before, "\n")
	if i := strings.LastIndexByte(before, '\n'); i >= 0 {
		col = offset - i
	} else {
		col = offset + 1
	}
	return line, col
}
