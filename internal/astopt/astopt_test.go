// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package astopt

import (
	"testing"

	"github.com/thistle-lang/thistle/internal/ast"
	"github.com/thistle-lang/thistle/internal/token"
)

var noPos token.Position

func TestOptimizeConstantFolding(t *testing.T) {
	// 2 + 3 => 5
	bin := ast.NewBinary(noPos, ast.OpAdd, ast.NewIntLit(noPos, 2), ast.NewIntLit(noPos, 3))
	prog := &ast.Program{Statements: []ast.Statement{
		ast.NewAssign(noPos, ast.NewVar(noPos, "X", token.NoSuffix), bin),
	}}

	stats := Optimize(prog, Options{Fold: true})

	assign := prog.Statements[0].(*ast.Assign)
	lit, ok := assign.Value.(*ast.IntLit)
	if !ok || lit.Value != 5 {
		t.Fatalf("Value = %#v; want IntLit(5)", assign.Value)
	}
	if stats.ConstantsFolded != 1 {
		t.Errorf("ConstantsFolded = %d; want 1", stats.ConstantsFolded)
	}
}

func TestOptimizeIdentities(t *testing.T) {
	tests := []struct {
		name string
		expr ast.Expression
		want int64
	}{
		{"x+0", ast.NewBinary(noPos, ast.OpAdd, ast.NewVar(noPos, "X", token.NoSuffix), ast.NewIntLit(noPos, 0)), 0},
		{"x*1", ast.NewBinary(noPos, ast.OpMul, ast.NewVar(noPos, "X", token.NoSuffix), ast.NewIntLit(noPos, 1)), 0},
		{"not-not-x", ast.NewUnary(noPos, ast.UnaryNot, ast.NewUnary(noPos, ast.UnaryNot, ast.NewVar(noPos, "X", token.NoSuffix))), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := &ast.Program{Statements: []ast.Statement{
				ast.NewAssign(noPos, ast.NewVar(noPos, "Y", token.NoSuffix), tt.expr),
			}}
			stats := Optimize(prog, Options{Fold: true})
			assign := prog.Statements[0].(*ast.Assign)
			if _, ok := assign.Value.(*ast.Var); !ok {
				t.Fatalf("Value = %#v; want *ast.Var (identity folded away the binary/unary)", assign.Value)
			}
			if stats.IdentitiesFolded == 0 {
				t.Errorf("IdentitiesFolded = 0; want at least 1")
			}
		})
	}
}

func TestOptimizeDeadIfBranch(t *testing.T) {
	live := ast.NewAssign(noPos, ast.NewVar(noPos, "X", token.NoSuffix), ast.NewIntLit(noPos, 1))
	ifStmt := &ast.If{
		Arms: []ast.IfArm{
			{Cond: ast.NewIntLit(noPos, 0), Body: []ast.Statement{live}},
		},
	}
	prog := &ast.Program{Statements: []ast.Statement{ifStmt}}

	stats := Optimize(prog, Options{DeadCode: true})

	if len(prog.Statements) != 0 {
		t.Fatalf("Statements = %#v; want empty (the only arm was always-false)", prog.Statements)
	}
	if stats.DeadStatements == 0 {
		t.Errorf("DeadStatements = 0; want at least 1")
	}
}

func TestOptimizeRemRemoval(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{
		ast.NewRem(noPos),
		ast.NewAssign(noPos, ast.NewVar(noPos, "X", token.NoSuffix), ast.NewIntLit(noPos, 1)),
	}}

	Optimize(prog, Options{DeadCode: true})

	if len(prog.Statements) != 1 {
		t.Fatalf("Statements = %#v; want only the Assign to survive", prog.Statements)
	}
	if _, ok := prog.Statements[0].(*ast.Assign); !ok {
		t.Errorf("surviving statement = %T; want *ast.Assign", prog.Statements[0])
	}
}

func TestOptimizeDisabledLeavesTreeAlone(t *testing.T) {
	bin := ast.NewBinary(noPos, ast.OpAdd, ast.NewIntLit(noPos, 2), ast.NewIntLit(noPos, 3))
	prog := &ast.Program{Statements: []ast.Statement{
		ast.NewAssign(noPos, ast.NewVar(noPos, "X", token.NoSuffix), bin),
	}}

	stats := Optimize(prog, Options{})

	assign := prog.Statements[0].(*ast.Assign)
	if _, ok := assign.Value.(*ast.Binary); !ok {
		t.Errorf("Value = %#v; want untouched *ast.Binary since Fold was off", assign.Value)
	}
	if stats != (Stats{}) {
		t.Errorf("stats = %#v; want zero value when no rule families are enabled", stats)
	}
}
