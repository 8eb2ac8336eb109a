// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package luaemit

import (
	"strings"
	"testing"

	"github.com/thistle-lang/thistle/internal/cfg"
	"github.com/thistle-lang/thistle/internal/constants"
	"github.com/thistle-lang/thistle/internal/data"
	"github.com/thistle-lang/thistle/internal/diag"
	"github.com/thistle-lang/thistle/internal/ir"
	"github.com/thistle-lang/thistle/internal/lex"
	"github.com/thistle-lang/thistle/internal/parser"
	"github.com/thistle-lang/thistle/internal/preprocess"
	"github.com/thistle-lang/thistle/internal/registry"
	"github.com/thistle-lang/thistle/internal/sema"
)

// emit runs src through the front half of the pipeline and renders it
// as Lua, the same sequence thistle.Compile uses minus the optimizers
// (so assertions see the unoptimized shapes).
func emit(t *testing.T, src string) string {
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
	irProg := ir.New(consts, syms).GenerateProgram(graph, seg)

	e := New(reg, Options{Base: prog.Options.Base, Bitwise: prog.Options.Bitwise})
	lua, err := e.Emit(irProg)
	if err != nil {
		t.Fatalf("Emit(%q): %v", src, err)
	}
	return lua
}

func TestMangle(t *testing.T) {
	tests := []struct{ in, want string }{
		{"A$", "A_STRING"},
		{"count%", "COUNT_INT"},
		{"X#", "X_DOUBLE"},
		{"y!", "Y_SINGLE"},
		{"Total", "TOTAL"},
		{"print", "PRINT"}, // upper-casing avoids Lua stdlib collisions
	}
	for _, tt := range tests {
		if got := mangle(tt.in); got != tt.want {
			t.Errorf("mangle(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatFloatKeepsLuaFloatSubtype(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{3.0, "3.0"},
		{-2.0, "-2.0"},
		{0.5, "0.5"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.in); got != tt.want {
			t.Errorf("formatFloat(%v) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

// TestPureChainReconstructsInline: a pure expression tree collapses
// back into one direct Lua assignment with no stack traffic and no
// named temporaries.
func TestPureChainReconstructsInline(t *testing.T) {
	lua := emit(t, "10 A = 2\n20 B = 3\n30 X = A + B * 3\n")
	if !strings.Contains(lua, "X = (A + (B * 3))") {
		t.Errorf("emitted Lua lacks the reconstructed assignment:\n%s", lua)
	}
	if strings.Contains(lua, "__t1") {
		t.Errorf("pure chain spilled into a temporary:\n%s", lua)
	}
}

// TestImpureCallMaterializesTemporary: a call the registry marks
// impure is routed through a one-shot local rather than inlined.
func TestImpureCallMaterializesTemporary(t *testing.T) {
	lua := emit(t, "10 X = RND\n")
	if !strings.Contains(lua, "local __t1 = math.random()") {
		t.Errorf("impure call was not materialized into a temporary:\n%s", lua)
	}
	if !strings.Contains(lua, "X = __t1") {
		t.Errorf("store does not consume the temporary:\n%s", lua)
	}
}

// TestOptionBaseIndexAdjustment is the spec's array-base property: the
// emitted Lua index always equals the BASIC index minus the base plus
// one.
func TestOptionBaseIndexAdjustment(t *testing.T) {
	base0 := emit(t, "10 DIM A(3)\n20 A(0) = 7\n")
	if !strings.Contains(base0, "A[(0 + 1)] = 7") {
		t.Errorf("OPTION BASE 0 store not adjusted:\n%s", base0)
	}

	base1 := emit(t, "10 OPTION BASE 1\n20 DIM A(3)\n30 A(1) = 7\n")
	if !strings.Contains(base1, "A[1] = 7") {
		t.Errorf("OPTION BASE 1 store should use the raw index:\n%s", base1)
	}
	if strings.Contains(base1, "A[(1 + 1)]") {
		t.Errorf("OPTION BASE 1 store was double-adjusted:\n%s", base1)
	}
}

// TestOnGotoTruncatesSelector: the ON...GOTO dispatch truncates its
// selector to an integer before comparing against the 1-based target
// positions.
func TestOnGotoTruncatesSelector(t *testing.T) {
	lua := emit(t, "10 X# = 2.7\n20 ON X# GOTO 100, 200\n100 PRINT 1\n110 END\n200 PRINT 2\n")
	if !strings.Contains(lua, "__sel = math.tointeger(__sel) or math.floor(__sel)") {
		t.Errorf("dispatch selector is not truncated to an integer:\n%s", lua)
	}
}

// TestGosubReturnsThroughResumeDispatch: RETURN renders as a dispatch
// over every resume label a GOSUB in the same segment could have
// pushed.
func TestGosubReturnsThroughResumeDispatch(t *testing.T) {
	lua := emit(t, "10 GOSUB 100\n20 END\n100 PRINT 1\n110 RETURN\n")
	if !strings.Contains(lua, "table.insert(__gosub_stack,") {
		t.Errorf("GOSUB does not push a resume point:\n%s", lua)
	}
	if !strings.Contains(lua, "local __dest = table.remove(__gosub_stack)") {
		t.Errorf("RETURN does not pop the resume stack:\n%s", lua)
	}
}

// TestDataSegmentSerialized: DATA values and restore maps are written
// as the host wire format and handed to data_init.
func TestDataSegmentSerialized(t *testing.T) {
	lua := emit(t, "10 DATA 1, 2.5, \"s\"\n20 HERE: DATA 9\n30 READ A%\n")
	for _, want := range []string{
		"{0, 1},",
		"{1, 2.5},",
		"{2, \"s\"},",
		"[\"HERE\"] = 3,",
		"data_init(__DATA, __DATA_LINE_RESTORE, __DATA_LABEL_RESTORE)",
	} {
		if !strings.Contains(lua, want) {
			t.Errorf("emitted Lua lacks %q:\n%s", want, lua)
		}
	}
}

// TestReadPicksTypedHostCall: READ targets select data_read_int/
// data_read_double/data_read_string by the target's type suffix.
func TestReadPicksTypedHostCall(t *testing.T) {
	lua := emit(t, "10 DATA 1, 2.5, \"s\"\n20 READ A%, B, C$\n")
	for _, want := range []string{
		"A_INT = data_read_int()",
		"B = data_read_double()",
		"C_STRING = data_read_string()",
	} {
		if !strings.Contains(lua, want) {
			t.Errorf("emitted Lua lacks %q:\n%s", want, lua)
		}
	}
}

// TestProcBecomesLuaFunction: a SUB renders as a named global Lua
// function with mangled parameters, called directly.
func TestProcBecomesLuaFunction(t *testing.T) {
	lua := emit(t, "10 CALL GREET\n20 END\n30 SUB GREET\n40 PRINT \"HI\"\n50 ENDSUB\n")
	if !strings.Contains(lua, "function GREET()") {
		t.Errorf("SUB did not become a Lua function:\n%s", lua)
	}
	if !strings.Contains(lua, "\tGREET()") {
		t.Errorf("CALL did not become a direct invocation:\n%s", lua)
	}
}

// TestBitwiseOptionSelectsOperators: OPTION BITWISE renders AND as
// Lua's integer & instead of boolean logic.
func TestBitwiseOptionSelectsOperators(t *testing.T) {
	lua := emit(t, "10 OPTION BITWISE\n20 X = 6 AND 3\n")
	if !strings.Contains(lua, "(6 & 3)") {
		t.Errorf("OPTION BITWISE did not select the bitwise operator:\n%s", lua)
	}

	logical := emit(t, "10 X = 6 AND 3\n")
	if !strings.Contains(logical, "__truthy(6) and __truthy(3)") {
		t.Errorf("default logical AND shape missing:\n%s", logical)
	}
}
