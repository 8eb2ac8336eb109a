// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package peephole

import (
	"testing"

	"github.com/thistle-lang/thistle/internal/ast"
	"github.com/thistle-lang/thistle/internal/ir"
)

func TestOptimizeConstantFolding(t *testing.T) {
	prog := &ir.Program{Instrs: []ir.Instr{
		{Op: ir.OpPushInt, I: 2},
		{Op: ir.OpPushInt, I: 3},
		{Op: ir.OpBinOp, BOp: ast.OpAdd},
	}}

	stats := Optimize(prog, Options{})

	want := []ir.Instr{{Op: ir.OpPushInt, I: 5}}
	if len(prog.Instrs) != 1 || prog.Instrs[0].Op != ir.OpPushInt || prog.Instrs[0].I != 5 {
		t.Fatalf("Instrs = %#v; want %#v", prog.Instrs, want)
	}
	if stats.ConstFolded != 1 {
		t.Errorf("ConstFolded = %d; want 1", stats.ConstFolded)
	}
}

func TestOptimizeZeroAddRemoved(t *testing.T) {
	prog := &ir.Program{Instrs: []ir.Instr{
		{Op: ir.OpPushInt, I: 0},
		{Op: ir.OpBinOp, BOp: ast.OpAdd},
	}}

	stats := Optimize(prog, Options{})

	if len(prog.Instrs) != 0 {
		t.Fatalf("Instrs = %#v; want empty (push 0; add is a no-op)", prog.Instrs)
	}
	if stats.ZeroAddRemoved != 1 {
		t.Errorf("ZeroAddRemoved = %d; want 1", stats.ZeroAddRemoved)
	}
}

func TestOptimizeOneMulRemoved(t *testing.T) {
	prog := &ir.Program{Instrs: []ir.Instr{
		{Op: ir.OpPushInt, I: 1},
		{Op: ir.OpBinOp, BOp: ast.OpMul},
	}}

	stats := Optimize(prog, Options{})

	if len(prog.Instrs) != 0 {
		t.Fatalf("Instrs = %#v; want empty (push 1; mul is a no-op)", prog.Instrs)
	}
	if stats.OneMulRemoved != 1 {
		t.Errorf("OneMulRemoved = %d; want 1", stats.OneMulRemoved)
	}
}

func TestOptimizeJumpChainFolded(t *testing.T) {
	prog := &ir.Program{Instrs: []ir.Instr{
		{Op: ir.OpJump, I: 1},
		{Op: ir.OpLabel, I: 1},
	}}

	stats := Optimize(prog, Options{})

	if len(prog.Instrs) != 1 || prog.Instrs[0].Op != ir.OpLabel {
		t.Fatalf("Instrs = %#v; want just the label (the jump to its own fallthrough is redundant)", prog.Instrs)
	}
	if stats.JumpChainsFolded != 1 {
		t.Errorf("JumpChainsFolded = %d; want 1", stats.JumpChainsFolded)
	}
}

func TestOptimizeDeadAfterJump(t *testing.T) {
	prog := &ir.Program{Instrs: []ir.Instr{
		{Op: ir.OpJump, I: 5},
		{Op: ir.OpPushInt, I: 42}, // unreachable: nothing jumps into the middle
		{Op: ir.OpLabel, I: 5},
	}}

	stats := Optimize(prog, Options{})

	if len(prog.Instrs) != 2 {
		t.Fatalf("Instrs = %#v; want the jump and the label only", prog.Instrs)
	}
	if stats.DeadAfterJump != 1 {
		t.Errorf("DeadAfterJump = %d; want 1", stats.DeadAfterJump)
	}
}

// TestOptimizeKeepsProcedureBoundaries: the dead-after-exit rule must
// not swallow the SUB/FUNCTION segment markers that follow the main
// program's halt, or every procedure body would be stripped.
func TestOptimizeKeepsProcedureBoundaries(t *testing.T) {
	prog := &ir.Program{Instrs: []ir.Instr{
		{Op: ir.OpEnd},
		{Op: ir.OpSubEnter, S: "GREET"},
		{Op: ir.OpLabel, I: 1},
		{Op: ir.OpCallCommand, S: "terminal_beep"},
		{Op: ir.OpSubReturn},
		{Op: ir.OpFunctionEnter, S: "F"},
		{Op: ir.OpLabel, I: 2},
		{Op: ir.OpPushInt, I: 1},
		{Op: ir.OpFunctionExit},
	}}

	Optimize(prog, Options{})

	var enters int
	for _, in := range prog.Instrs {
		if in.Op == ir.OpSubEnter || in.Op == ir.OpFunctionEnter {
			enters++
		}
	}
	if enters != 2 {
		t.Fatalf("procedure boundaries after optimize = %d; want 2\n%#v", enters, prog.Instrs)
	}
	if len(prog.Instrs) != 9 {
		t.Errorf("len(Instrs) = %d; want all 9 reachable instructions kept", len(prog.Instrs))
	}
}

func TestOptimizeFixpointBound(t *testing.T) {
	// Dropping the dead push exposes "jmp 5; 5:", which only a second
	// pass folds; MaxPasses: 1 should stop after the first rewrite.
	prog := &ir.Program{Instrs: []ir.Instr{
		{Op: ir.OpJump, I: 5},
		{Op: ir.OpPushInt, I: 42}, // removed by the first pass
		{Op: ir.OpLabel, I: 5},
	}}

	Optimize(prog, Options{MaxPasses: 1})

	if len(prog.Instrs) == 1 {
		t.Fatalf("a single pass folded everything down to one instruction; expected it to need a second pass")
	}
}

func TestFoldIntOp(t *testing.T) {
	tests := []struct {
		op      ast.BinaryOp
		l, r, v int64
	}{
		{ast.OpAdd, 2, 3, 5},
		{ast.OpSub, 5, 3, 2},
		{ast.OpMul, 4, 3, 12},
	}
	for _, tt := range tests {
		got, ok := foldIntOp(tt.op, tt.l, tt.r)
		if !ok || got != tt.v {
			t.Errorf("foldIntOp(%v, %d, %d) = (%d, %v); want (%d, true)", tt.op, tt.l, tt.r, got, ok, tt.v)
		}
	}
	if _, ok := foldIntOp(ast.OpDiv, 4, 2); ok {
		t.Errorf("foldIntOp(OpDiv, ...) folded; want unsupported (division needs zero-check semantics the IR level doesn't have)")
	}
}
