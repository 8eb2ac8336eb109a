// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package parser

import (
	"testing"

	"github.com/thistle-lang/thistle/internal/ast"
	"github.com/thistle-lang/thistle/internal/constants"
	"github.com/thistle-lang/thistle/internal/lex"
	"github.com/thistle-lang/thistle/internal/preprocess"
	"github.com/thistle-lang/thistle/internal/registry"
	"github.com/thistle-lang/thistle/internal/token"
)

// parse runs the same preprocess -> lex -> parse pipeline thistle.Compile
// uses, returning the resulting statement list.
func parse(t *testing.T, src string) []ast.Statement {
	t.Helper()
	pre := preprocess.Run(src)
	reg := registry.NewBuiltins()
	scanner := lex.New(pre.Source, reg)
	toks, lexErrs := scanner.ScanAll()
	if len(lexErrs) != 0 {
		t.Fatalf("lex(%q) errors = %v", src, lexErrs)
	}
	p := New(toks, reg, constants.New(), pre.LineMap)
	prog, ok := p.Parse()
	if !ok {
		t.Fatalf("Parse(%q) diagnostics = %v", src, p.Diagnostics())
	}
	return prog.Statements
}

func TestParseAssignWithTypeSuffix(t *testing.T) {
	stmts := parse(t, "10 A% = 5\n")
	if len(stmts) != 1 {
		t.Fatalf("got %d statements; want 1", len(stmts))
	}
	assign, ok := stmts[0].(*ast.Assign)
	if !ok {
		t.Fatalf("stmts[0] = %T; want *ast.Assign", stmts[0])
	}
	v, ok := assign.Target.(*ast.Var)
	if !ok {
		t.Fatalf("Target = %T; want *ast.Var", assign.Target)
	}
	if v.Name != "A" || v.Suffix != token.IntSuffix {
		t.Errorf("Target = %+v; want Name A, Suffix %%", v)
	}
	lit, ok := assign.Value.(*ast.IntLit)
	if !ok || lit.Value != 5 {
		t.Errorf("Value = %#v; want IntLit(5)", assign.Value)
	}
}

func TestParseArrayAssignmentMarksDimmed(t *testing.T) {
	stmts := parse(t, "10 A(I) = 1\n")
	assign, ok := stmts[0].(*ast.Assign)
	if !ok {
		t.Fatalf("stmts[0] = %T; want *ast.Assign", stmts[0])
	}
	ref, ok := assign.Target.(*ast.ArrayRef)
	if !ok {
		t.Fatalf("Target = %T; want *ast.ArrayRef", assign.Target)
	}
	if ref.Name != "A" || len(ref.Indices) != 1 {
		t.Errorf("Target = %+v; want Name A with one index", ref)
	}
}

func TestParsePrintItemSeparators(t *testing.T) {
	stmts := parse(t, `10 PRINT "A", "B"; "C"`+"\n")
	p, ok := stmts[0].(*ast.Print)
	if !ok {
		t.Fatalf("stmts[0] = %T; want *ast.Print", stmts[0])
	}
	if len(p.Items) != 3 {
		t.Fatalf("got %d print items; want 3", len(p.Items))
	}
	if p.Items[0].Sep != ',' {
		t.Errorf("Items[0].Sep = %q; want ','", p.Items[0].Sep)
	}
	if p.Items[1].Sep != ';' {
		t.Errorf("Items[1].Sep = %q; want ';'", p.Items[1].Sep)
	}
	if p.Items[2].Sep != 0 {
		t.Errorf("Items[2].Sep = %q; want 0 (last item)", p.Items[2].Sep)
	}
}

func TestParseBlockIfElseIf(t *testing.T) {
	src := `10 IF X = 1 THEN
20   PRINT "ONE"
30 ELSEIF X = 2 THEN
40   PRINT "TWO"
50 ELSE
60   PRINT "OTHER"
70 END IF
`
	stmts := parse(t, src)
	ifStmt, ok := stmts[0].(*ast.If)
	if !ok {
		t.Fatalf("stmts[0] = %T; want *ast.If", stmts[0])
	}
	if ifStmt.SingleLine {
		t.Error("SingleLine = true; want false for a block IF")
	}
	if len(ifStmt.Arms) != 3 {
		t.Fatalf("got %d arms; want 3 (IF, ELSEIF, ELSE)", len(ifStmt.Arms))
	}
	if ifStmt.Arms[2].Cond != nil {
		t.Error("trailing ELSE arm has a non-nil Cond")
	}
}

func TestParseForNextWithStep(t *testing.T) {
	stmts := parse(t, "10 FOR I = 1 TO 10 STEP 2\n20 NEXT I\n")
	forStmt, ok := stmts[0].(*ast.For)
	if !ok {
		t.Fatalf("stmts[0] = %T; want *ast.For", stmts[0])
	}
	if forStmt.Var.Name != "I" {
		t.Errorf("Var.Name = %q; want I", forStmt.Var.Name)
	}
	if forStmt.Step == nil {
		t.Fatal("Step = nil; want STEP 2 expression")
	}
	if forStmt.NextVar != "I" {
		t.Errorf("NextVar = %q; want I", forStmt.NextVar)
	}
}

func TestParseLabelDefinition(t *testing.T) {
	stmts := parse(t, "START: PRINT \"HI\"\n")
	label, ok := stmts[0].(*ast.Label)
	if !ok {
		t.Fatalf("stmts[0] = %T; want *ast.Label", stmts[0])
	}
	if label.Name != "START" {
		t.Errorf("Label.Name = %q; want START", label.Name)
	}
}

func TestParseSyntaxErrorRecordsDiagnostic(t *testing.T) {
	pre := preprocess.Run("10 IF X = 1\n")
	reg := registry.NewBuiltins()
	scanner := lex.New(pre.Source, reg)
	toks, _ := scanner.ScanAll()
	p := New(toks, reg, constants.New(), pre.LineMap)
	_, ok := p.Parse()
	if ok {
		t.Fatal("Parse succeeded on an IF with no THEN")
	}
	if len(p.Diagnostics()) == 0 {
		t.Error("expected at least one syntax diagnostic")
	}
}
