// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

// Package diag implements the compiler's diagnostic model: four error
// kinds, each carrying a source position, the originating BASIC line
// number via the line mapping, and an optional fix-it hint. Grounded
// in a sentinel-error style (ErrDivideByZero/ErrNotNumber tested with
// errors.Is) generalized from a single error value per failure mode to
// a structured, accumulating diagnostic list, since the compiler must
// report many errors per run rather than fail fast on the first one.
package diag

import (
	"fmt"

	"github.com/thistle-lang/thistle/internal/token"
)

// Kind classifies a diagnostic.
type Kind int

const (
	LexError Kind = iota
	SyntaxError
	SemanticError
	Warning
	CompilerBug
)

func (k Kind) String() string {
	switch k {
	case LexError:
		return "lex error"
	case SyntaxError:
		return "syntax error"
	case SemanticError:
		return "semantic error"
	case Warning:
		return "warning"
	case CompilerBug:
		return "compiler bug"
	default:
		return "error"
	}
}

// Diagnostic is one compiler-produced message.
type Diagnostic struct {
	Kind      Kind
	Message   string
	Pos       token.Position
	BasicLine int // 0 if the source had no line numbers at Pos
	FixIt     string
}

func (d Diagnostic) String() string {
	loc := d.Pos.String()
	if d.BasicLine > 0 {
		loc = fmt.Sprintf("line %d", d.BasicLine)
	}
	s := fmt.Sprintf("%s: %s: %s", loc, d.Kind, d.Message)
	if d.FixIt != "" {
		s += " (" + d.FixIt + ")"
	}
	return s
}

// List accumulates diagnostics across a phase, matching §9's
// "central diagnostic list" design: phases return collections of
// errors and a best-effort artifact rather than raising exceptions for
// control flow.
type List struct {
	items []Diagnostic
}

// Add appends a diagnostic, resolving its BASIC line from lm if pos
// falls within a mapped source line.
func (l *List) Add(kind Kind, lm *token.LineMap, pos token.Position, format string, args ...any) {
	d := Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos}
	if lm != nil {
		d.BasicLine = lm.BasicLine(pos.Line)
	}
	l.items = append(l.items, d)
}

// AddFixIt is like Add but also records a fix-it hint.
func (l *List) AddFixIt(kind Kind, lm *token.LineMap, pos token.Position, fixIt string, format string, args ...any) {
	d := Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), FixIt: fixIt}
	if lm != nil {
		d.BasicLine = lm.BasicLine(pos.Line)
	}
	d.Pos = pos
	l.items = append(l.items, d)
}

// All returns every diagnostic added so far, in order.
func (l *List) All() []Diagnostic { return l.items }

// HasErrors reports whether any diagnostic of kind LexError, SyntaxError,
// SemanticError, or CompilerBug has been added (Warning does not count).
func (l *List) HasErrors() bool {
	for _, d := range l.items {
		if d.Kind != Warning {
			return true
		}
	}
	return false
}

// Errors returns only the non-warning diagnostics.
func (l *List) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range l.items {
		if d.Kind != Warning {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the Warning-kind diagnostics.
func (l *List) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range l.items {
		if d.Kind == Warning {
			out = append(out, d)
		}
	}
	return out
}

// Len reports the total number of diagnostics recorded.
func (l *List) Len() int { return len(l.items) }
