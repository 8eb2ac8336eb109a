// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package lex

import (
	"testing"

	"github.com/thistle-lang/thistle/internal/registry"
	"github.com/thistle-lang/thistle/internal/token"
)

func scanKinds(t *testing.T, src string) []token.Token {
	t.Helper()
	s := New(src, registry.NewBuiltins())
	toks, errs := s.ScanAll()
	if len(errs) != 0 {
		t.Fatalf("ScanAll(%q) errors = %v", src, errs)
	}
	return toks
}

func TestCompoundKeywords(t *testing.T) {
	tests := []struct {
		src  string
		want token.Kind
	}{
		{"END IF", token.KwEndIf},
		{"EXIT FOR", token.KwExitFor},
		{"GO TO", token.KwGoToCompound},
		{"END SELECT", token.KwEndSelect},
		{"END SUB", token.KwEndSub},
		{"END FUNCTION", token.KwEndFunction},
	}
	for _, test := range tests {
		toks := scanKinds(t, test.src)
		if len(toks) < 1 || toks[0].Kind != test.want {
			t.Errorf("scan(%q)[0].Kind = %v; want %v", test.src, toks[0].Kind, test.want)
		}
	}
}

func TestTypeSuffixIdentifiers(t *testing.T) {
	tests := []struct {
		src        string
		wantSuffix token.Suffix
	}{
		{"NAME$", token.StringSuffix},
		{"COUNT%", token.IntSuffix},
		{"TOTAL#", token.DoubleSuffix},
		{"RATE!", token.SingleSuffix},
		{"PLAIN", token.NoSuffix},
	}
	for _, test := range tests {
		toks := scanKinds(t, test.src)
		if toks[0].Kind != token.Identifier {
			t.Fatalf("scan(%q)[0].Kind = %v; want Identifier", test.src, toks[0].Kind)
		}
		if toks[0].Suffix != test.wantSuffix {
			t.Errorf("scan(%q)[0].Suffix = %v; want %v", test.src, toks[0].Suffix, test.wantSuffix)
		}
	}
}

func TestCaseInsensitiveKeyword(t *testing.T) {
	for _, src := range []string{"if", "If", "IF", "iF"} {
		toks := scanKinds(t, src)
		if toks[0].Kind != token.KwIf {
			t.Errorf("scan(%q)[0].Kind = %v; want KwIf", src, toks[0].Kind)
		}
	}
}

func TestNumericLiterals(t *testing.T) {
	tests := []struct {
		src       string
		wantKind  token.Kind
		wantValue string
	}{
		{"42", token.IntLiteral, "42"},
		{"3.14", token.RealLiteral, "3.14"},
		{"6.02e23", token.RealLiteral, "6.02e+23"},
		{"0xFF", token.IntLiteral, "255"},
		{"0o17", token.IntLiteral, "15"},
		{"0b101", token.IntLiteral, "5"},
	}
	for _, test := range tests {
		toks := scanKinds(t, test.src)
		if toks[0].Kind != test.wantKind {
			t.Errorf("scan(%q)[0].Kind = %v; want %v", test.src, toks[0].Kind, test.wantKind)
		}
		if toks[0].Value != test.wantValue {
			t.Errorf("scan(%q)[0].Value = %q; want %q", test.src, toks[0].Value, test.wantValue)
		}
	}
}

func TestStringLiteral(t *testing.T) {
	toks := scanKinds(t, `"hello world"`)
	if toks[0].Kind != token.StringLiteral {
		t.Fatalf("Kind = %v; want StringLiteral", toks[0].Kind)
	}
	if toks[0].Value != "hello world" {
		t.Errorf("Value = %q; want %q", toks[0].Value, "hello world")
	}
}

func TestDoubledQuotesAreTwoLiterals(t *testing.T) {
	// On read (not write), "" is an empty string literal immediately
	// followed by a new literal, not an escaped embedded quote.
	toks := scanKinds(t, `"a""b"`)
	if toks[0].Kind != token.StringLiteral || toks[0].Value != "a" {
		t.Fatalf("scan(%q)[0] = %+v; want StringLiteral %q", `"a""b"`, toks[0], "a")
	}
	if toks[1].Kind != token.StringLiteral || toks[1].Value != "b" {
		t.Fatalf("scan(%q)[1] = %+v; want StringLiteral %q", `"a""b"`, toks[1], "b")
	}
}

func TestUnterminatedStringYieldsError(t *testing.T) {
	s := New(`"unterminated`, registry.NewBuiltins())
	_, errs := s.ScanAll()
	if len(errs) == 0 {
		t.Fatal("expected a lex error for an unterminated string")
	}
}

func TestLexerContinuesAfterError(t *testing.T) {
	// The lexer never halts on error: it records and keeps scanning,
	// up to MaxErrors.
	s := New("10 PRINT @ : PRINT \"OK\"\n", registry.NewBuiltins())
	toks, errs := s.ScanAll()
	if len(errs) == 0 {
		t.Fatal("expected a lex error for '@'")
	}
	foundOK := false
	for _, tok := range toks {
		if tok.Kind == token.StringLiteral && tok.Value == "OK" {
			foundOK = true
		}
	}
	if !foundOK {
		t.Error("lexer stopped before reaching the string literal after the bad character")
	}
}

func TestEndOfLineToken(t *testing.T) {
	toks := scanKinds(t, "X = 1\nY = 2\n")
	var eolCount int
	for _, tok := range toks {
		if tok.Kind == token.EOL {
			eolCount++
		}
	}
	if eolCount != 2 {
		t.Errorf("EOL count = %d; want 2", eolCount)
	}
}

func TestRegisteredCommandRecognizedAsCommandToken(t *testing.T) {
	s := New("CLS", registry.NewBuiltins())
	toks, errs := s.ScanAll()
	if len(errs) != 0 {
		t.Fatalf("errors = %v", errs)
	}
	if toks[0].Kind != token.Command {
		t.Errorf("Kind = %v; want Command (CLS is a registered built-in)", toks[0].Kind)
	}
}
