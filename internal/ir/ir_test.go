// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"testing"

	"github.com/thistle-lang/thistle/internal/ast"
	"github.com/thistle-lang/thistle/internal/cfg"
	"github.com/thistle-lang/thistle/internal/constants"
	"github.com/thistle-lang/thistle/internal/data"
	"github.com/thistle-lang/thistle/internal/diag"
	"github.com/thistle-lang/thistle/internal/lex"
	"github.com/thistle-lang/thistle/internal/parser"
	"github.com/thistle-lang/thistle/internal/preprocess"
	"github.com/thistle-lang/thistle/internal/registry"
	"github.com/thistle-lang/thistle/internal/sema"
)

// generate runs the front half of the pipeline over src and lowers the
// result to IR, the same sequence thistle.Compile uses.
func generate(t *testing.T, src string) *Program {
	t.Helper()
	pre := preprocess.Run(src)
	reg := registry.NewBuiltins()
	consts := constants.NewPreloaded()
	scanner := lex.New(pre.Source, reg)
	toks, lexErrs := scanner.ScanAll()
	if len(lexErrs) != 0 {
		t.Fatalf("lex(%q) errors = %v", src, lexErrs)
	}
	p := parser.New(toks, reg, consts, pre.LineMap)
	prog, ok := p.Parse()
	if !ok {
		t.Fatalf("parse(%q) diagnostics = %v", src, p.Diagnostics())
	}
	diags := &diag.List{}
	syms := sema.New(reg, pre.LineMap, diags).Analyze(prog)
	if len(diags.Errors()) != 0 {
		t.Fatalf("analyze(%q) errors = %v", src, diags.Errors())
	}
	graph := cfg.Build(prog.Statements)
	seg := data.New(pre.Data, pre.LineRestore, pre.LabelRestore)
	return New(consts, syms).GenerateProgram(graph, seg)
}

// stackEffect returns how in changes the operand stack depth.
func stackEffect(in Instr) int {
	switch in.Op {
	case OpPushInt, OpPushReal, OpPushStr, OpPushConst, OpLoadVar:
		return 1
	case OpLoadArray:
		return 1 - in.A
	case OpStoreVar, OpBinOp, OpPop, OpJumpIfFalse, OpDispatch, OpTimerRegister:
		return -1
	case OpStoreArray:
		return -(1 + in.A)
	case OpCallFunc:
		return 1 - in.A
	case OpCallCommand, OpCallSub, OpClose, OpDim:
		return -in.A
	case OpPrint:
		return -(in.A + int(in.I))
	case OpInput, OpLineInput:
		return -int(in.I)
	case OpOpen:
		return -2
	case OpStopTimer:
		if s, ok := in.Aux.(*ast.StopTimer); ok && s != nil && s.ID != nil {
			return -1
		}
		return 0
	default:
		return 0
	}
}

const loopyProgram = `10 DIM A(3)
20 FOR I = 0 TO 3
30 A(I) = I * 2
40 NEXT I
50 GOSUB 100
60 IF A(2) > 3 THEN PRINT "BIG" ELSE PRINT "SMALL"
70 ON A(0) + 1 GOTO 80, 90
80 PRINT "ZERO"
90 END
100 PRINT A(1)
110 RETURN
`

// TestLabelsResolveUniquely checks that every label id referenced by a
// jump, branch, gosub, or dispatch exists exactly once as an OpLabel.
func TestLabelsResolveUniquely(t *testing.T) {
	prog := generate(t, loopyProgram)

	defined := map[int64]int{}
	for _, in := range prog.Instrs {
		if in.Op == OpLabel {
			defined[in.I]++
		}
	}
	for id, n := range defined {
		if n != 1 {
			t.Errorf("label %d defined %d times; want exactly 1", id, n)
		}
	}

	check := func(id int64, what string) {
		if defined[id] != 1 {
			t.Errorf("%s references label %d, which is not defined exactly once", what, id)
		}
	}
	for _, in := range prog.Instrs {
		switch in.Op {
		case OpJump, OpJumpIfFalse:
			check(in.I, "jump")
		case OpGosub:
			check(in.I, "gosub target")
			check(int64(in.A), "gosub resume point")
		case OpDispatch:
			check(in.I, "dispatch default")
			for _, target := range in.Aux.([]int64) {
				check(target, "dispatch target")
			}
		}
	}
}

// TestStackBalancedAtBlockBoundaries checks the static stack-effect
// invariant: depth returns to zero at every label and jump, and never
// goes negative mid-block.
func TestStackBalancedAtBlockBoundaries(t *testing.T) {
	srcs := map[string]string{
		"loopy": loopyProgram,
		"while": "10 X = 0\n20 WHILE X < 5\n30 X = X + 1\n40 WEND\n50 PRINT X\n",
		"data":  "10 DATA 1, 2.5, \"s\"\n20 READ A%, B, C$\n30 RESTORE\n40 READ A%\n",
		"sub":   "10 CALL GREET\n20 END\n30 SUB GREET\n40 PRINT \"HI\"\n50 ENDSUB\n",
	}
	for name, src := range srcs {
		t.Run(name, func(t *testing.T) {
			prog := generate(t, src)
			depth := 0
			for i, in := range prog.Instrs {
				switch in.Op {
				case OpLabel, OpJump:
					if depth != 0 {
						t.Fatalf("instr %d (%v): depth %d at block boundary; want 0", i, in.Op, depth)
					}
				case OpSubEnter, OpFunctionEnter:
					depth = 0
					continue
				case OpFunctionExit:
					if depth != 0 && depth != 1 {
						t.Fatalf("instr %d: depth %d at function exit; want 0 or 1", i, depth)
					}
					depth = 0
					continue
				}
				depth += stackEffect(in)
				if depth < 0 {
					t.Fatalf("instr %d (%v): stack under-run (depth %d)", i, in.Op, depth)
				}
			}
		})
	}
}

// TestEndLowersToHaltInstruction: a mid-program END emits an explicit
// OpEnd rather than falling through to the next block's statements.
func TestEndLowersToHaltInstruction(t *testing.T) {
	prog := generate(t, "10 PRINT 1\n20 END\n30 PRINT 2\n")
	found := false
	for _, in := range prog.Instrs {
		if in.Op == OpEnd {
			found = true
		}
	}
	if !found {
		t.Error("no OpEnd emitted for END statement")
	}
}

// TestLoopBackEdgeEmitsYieldProbe: every loop back-edge carries the
// cooperative check_should_stop invocation, and straight-line code
// does not.
func TestLoopBackEdgeEmitsYieldProbe(t *testing.T) {
	prog := generate(t, "10 X = 0\n20 WHILE X < 3\n30 X = X + 1\n40 WEND\n")
	probes := 0
	for _, in := range prog.Instrs {
		if in.Op == OpCallCommand && in.S == checkStopCommand {
			probes++
		}
	}
	if probes != 1 {
		t.Errorf("emitted %d yield probes; want 1 (the WHILE back-edge)", probes)
	}

	straight := generate(t, "10 X = 1\n20 PRINT X\n")
	for _, in := range straight.Instrs {
		if in.Op == OpCallCommand && in.S == checkStopCommand {
			t.Error("straight-line program emitted a yield probe")
		}
	}
}

// TestDataSegmentCarriedThrough: the preprocessor's DATA values and
// restore points ride along on the generated Program.
func TestDataSegmentCarriedThrough(t *testing.T) {
	prog := generate(t, "10 DATA 1, 2\n20 HERE: DATA \"x\"\n30 READ A%, B%, C$\n")
	if prog.Data == nil {
		t.Fatal("Program.Data is nil")
	}
	if got := prog.Data.Len(); got != 3 {
		t.Errorf("Data.Len() = %d; want 3", got)
	}
	if _, ok := prog.Data.RestoreLabel("HERE"); !ok {
		t.Error("label restore point HERE missing")
	}
}

// TestProcsRecorded: SUB and FUNCTION bodies each become one Proc with
// its calling convention.
func TestProcsRecorded(t *testing.T) {
	src := `10 CALL GREET
20 X = DOUBLEIT(21)
30 END
40 SUB GREET
50 PRINT "HI"
60 ENDSUB
70 FUNCTION DOUBLEIT(N)
80 RETURN N * 2
90 ENDFUNCTION
`
	prog := generate(t, src)
	if len(prog.Procs) != 2 {
		t.Fatalf("len(Procs) = %d; want 2", len(prog.Procs))
	}
	byName := map[string]Proc{}
	for _, p := range prog.Procs {
		byName[p.Name] = p
	}
	if p, ok := byName["GREET"]; !ok || p.IsFunction {
		t.Errorf("GREET = %+v; want a non-function SUB proc", p)
	}
	if p, ok := byName["DOUBLEIT"]; !ok || !p.IsFunction || len(p.Params) != 1 {
		t.Errorf("DOUBLEIT = %+v; want a 1-parameter function proc", p)
	}
}
