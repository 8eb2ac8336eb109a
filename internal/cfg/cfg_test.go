// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package cfg

import (
	"testing"

	"github.com/thistle-lang/thistle/internal/ast"
	"github.com/thistle-lang/thistle/internal/constants"
	"github.com/thistle-lang/thistle/internal/lex"
	"github.com/thistle-lang/thistle/internal/parser"
	"github.com/thistle-lang/thistle/internal/preprocess"
	"github.com/thistle-lang/thistle/internal/registry"
)

func buildGraph(t *testing.T, src string) *Graph {
	t.Helper()
	pre := preprocess.Run(src)
	reg := registry.NewBuiltins()
	scanner := lex.New(pre.Source, reg)
	toks, lexErrs := scanner.ScanAll()
	if len(lexErrs) != 0 {
		t.Fatalf("lex(%q) errors = %v", src, lexErrs)
	}
	p := parser.New(toks, reg, constants.New(), pre.LineMap)
	prog, ok := p.Parse()
	if !ok {
		t.Fatalf("parse(%q) diagnostics = %v", src, p.Diagnostics())
	}
	return Build(prog.Statements)
}

func TestBuildStraightLineEndsInExit(t *testing.T) {
	g := buildGraph(t, "10 A = 1\n20 B = 2\n")
	entry := g.Block(g.Entry)
	if len(entry.Stmts) != 2 {
		t.Fatalf("entry block has %d statements; want 2", len(entry.Stmts))
	}
	if entry.Term.Kind != TermExit {
		t.Errorf("Term.Kind = %v; want TermExit", entry.Term.Kind)
	}
}

func TestBuildGotoForwardLabelResolves(t *testing.T) {
	g := buildGraph(t, "10 GOTO DONE\n20 A = 1\n30 DONE:\n40 B = 2\n")
	entry := g.Block(g.Entry)
	if entry.Term.Kind != TermJump {
		t.Fatalf("entry Term.Kind = %v; want TermJump", entry.Term.Kind)
	}
	target := g.Block(entry.Term.Next)
	if target.Label != "DONE" {
		t.Errorf("jump target Label = %q; want DONE", target.Label)
	}
	if len(target.Stmts) != 1 {
		t.Fatalf("target block has %d statements; want 1 (B = 2)", len(target.Stmts))
	}
}

func TestBuildIfProducesBranchWithJoin(t *testing.T) {
	src := "10 IF X = 1 THEN\n20 A = 1\n30 ELSE\n40 A = 2\n50 END IF\n60 A = 3\n"
	g := buildGraph(t, src)
	entry := g.Block(g.Entry)
	if entry.Term.Kind != TermBranch {
		t.Fatalf("entry Term.Kind = %v; want TermBranch", entry.Term.Kind)
	}
	thenBlock := g.Block(entry.Term.Next)
	elseBlock := g.Block(entry.Term.Else)
	if thenBlock.Term.Kind != TermJump || elseBlock.Term.Kind != TermJump {
		t.Fatalf("then/else blocks should both jump to the join: then=%v else=%v",
			thenBlock.Term.Kind, elseBlock.Term.Kind)
	}
	if thenBlock.Term.Next != elseBlock.Term.Next {
		t.Error("then and else arms do not converge on the same join block")
	}
	join := g.Block(thenBlock.Term.Next)
	if len(join.Stmts) != 1 {
		t.Fatalf("join block has %d statements; want 1 (A = 3)", len(join.Stmts))
	}
}

func TestBuildForLowersToHeaderBodyBackEdge(t *testing.T) {
	g := buildGraph(t, "10 FOR I = 1 TO 3\n20 A = I\n30 NEXT I\n")
	entry := g.Block(g.Entry)
	if entry.Term.Kind != TermJump {
		t.Fatalf("entry Term.Kind = %v; want TermJump to the loop header", entry.Term.Kind)
	}
	if _, ok := entry.Stmts[len(entry.Stmts)-1].(*ForInit); !ok {
		t.Fatalf("entry's last statement = %T; want *ForInit", entry.Stmts[len(entry.Stmts)-1])
	}
	header := g.Block(entry.Term.Next)
	if header.Term.Kind != TermBranch {
		t.Fatalf("header Term.Kind = %v; want TermBranch", header.Term.Kind)
	}
	body := g.Block(header.Term.Next)
	if !body.Term.IsBackEdge {
		t.Error("loop body's terminator is not marked IsBackEdge")
	}
	if body.Term.Next != header.ID {
		t.Error("loop body does not jump back to its own header")
	}
}

func TestBuildOnGotoDispatchTargets(t *testing.T) {
	src := "10 ON E GOTO A, B\n20 A: PRINT \"A\"\n30 B: PRINT \"B\"\n"
	g := buildGraph(t, src)
	entry := g.Block(g.Entry)
	if entry.Term.Kind != TermDispatch {
		t.Fatalf("entry Term.Kind = %v; want TermDispatch", entry.Term.Kind)
	}
	if len(entry.Term.Targets) != 2 {
		t.Fatalf("got %d dispatch targets; want 2", len(entry.Term.Targets))
	}
	if g.Block(entry.Term.Targets[0]).Label != "A" || g.Block(entry.Term.Targets[1]).Label != "B" {
		t.Errorf("dispatch targets = %v; want labels A then B", entry.Term.Targets)
	}
}

func TestBuildExitForJumpsToLoopAfterBlock(t *testing.T) {
	src := "10 FOR I = 1 TO 3\n20 IF I = 2 THEN EXIT FOR\n30 NEXT I\n40 PRINT \"DONE\"\n"
	g := buildGraph(t, src)
	entry := g.Block(g.Entry)
	header := g.Block(entry.Term.Next)
	body := g.Block(header.Term.Next)
	after := g.Block(header.Term.Else)

	// Inside the body, the single-line IF guarding EXIT FOR branches to
	// a block whose terminator jumps straight to the loop's after-block
	// (bypassing the FOR header's back-edge entirely).
	if body.Term.Kind != TermBranch {
		t.Fatalf("IF-guarded body Term.Kind = %v; want TermBranch", body.Term.Kind)
	}
	exitArm := g.Block(body.Term.Next)
	if exitArm.Term.Kind != TermJump || exitArm.Term.Next != after.ID {
		t.Errorf("EXIT FOR arm terminator = %+v; want an unconditional jump to the after-block %v",
			exitArm.Term, after.ID)
	}
}

func TestAstFieldUsed(t *testing.T) {
	// Guards the caseCondition helper's reliance on ast.OpEq/OpOr by
	// exercising a SELECT CASE with two values in one clause.
	src := "10 SELECT CASE X\n20 CASE 1, 2\n30 PRINT \"LOW\"\n40 CASE ELSE\n50 PRINT \"HIGH\"\n60 END SELECT\n"
	g := buildGraph(t, src)
	entry := g.Block(g.Entry)
	if entry.Term.Kind != TermBranch {
		t.Fatalf("entry Term.Kind = %v; want TermBranch", entry.Term.Kind)
	}
	cond, ok := entry.Term.Cond.(*ast.Binary)
	if !ok || cond.Op != ast.OpOr {
		t.Errorf("multi-value CASE condition = %#v; want a top-level OR of equality tests", entry.Term.Cond)
	}
}
