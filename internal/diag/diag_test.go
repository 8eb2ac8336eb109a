// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package diag

import (
	"strings"
	"testing"

	"github.com/thistle-lang/thistle/internal/token"
)

func TestAddResolvesBasicLineFromLineMap(t *testing.T) {
	lm := token.NewLineMap(3)
	lm.Set(1, 10)
	lm.Set(2, 20)
	lm.Set(3, 30)

	var l List
	l.Add(SemanticError, lm, token.Position{Line: 2, Column: 1}, "bad thing: %s", "X")
	if l.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", l.Len())
	}
	d := l.All()[0]
	if d.BasicLine != 20 {
		t.Errorf("BasicLine = %d; want 20", d.BasicLine)
	}
	if d.Message != "bad thing: X" {
		t.Errorf("Message = %q; want %q", d.Message, "bad thing: X")
	}
}

func TestHasErrorsIgnoresWarnings(t *testing.T) {
	var l List
	l.Add(Warning, nil, token.Position{}, "just a warning")
	if l.HasErrors() {
		t.Error("HasErrors() = true with only a Warning present")
	}
	l.Add(SyntaxError, nil, token.Position{}, "real problem")
	if !l.HasErrors() {
		t.Error("HasErrors() = false with a SyntaxError present")
	}
}

func TestErrorsAndWarningsPartitionList(t *testing.T) {
	var l List
	l.Add(Warning, nil, token.Position{}, "w1")
	l.Add(LexError, nil, token.Position{}, "e1")
	l.Add(Warning, nil, token.Position{}, "w2")

	if len(l.Warnings()) != 2 {
		t.Errorf("Warnings() len = %d; want 2", len(l.Warnings()))
	}
	if len(l.Errors()) != 1 {
		t.Errorf("Errors() len = %d; want 1", len(l.Errors()))
	}
}

func TestAddFixItRecordsHint(t *testing.T) {
	var l List
	l.AddFixIt(SyntaxError, nil, token.Position{}, "add ENDIF", "missing ENDIF")
	d := l.All()[0]
	if d.FixIt != "add ENDIF" {
		t.Errorf("FixIt = %q; want %q", d.FixIt, "add ENDIF")
	}
	if !strings.Contains(d.String(), "(add ENDIF)") {
		t.Errorf("String() = %q; want it to include the fix-it hint", d.String())
	}
}

func TestDiagnosticStringPrefersBasicLineOverPosition(t *testing.T) {
	d := Diagnostic{Kind: SemanticError, Message: "oops", BasicLine: 50, Pos: token.Position{Line: 7, Column: 3}}
	s := d.String()
	if !strings.Contains(s, "line 50") {
		t.Errorf("String() = %q; want it to cite BasicLine 50", s)
	}
}
