// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

// Package luaemit implements the Lua source emitter: the final
// compiler phase, turning an [ir.Program] into a runnable Lua 5.4
// chunk that calls back into host operations for terminal/file/timer/
// DATA/constants access and the check_should_stop yield probe.
//
// Emission combines two complementary strategies: direct translation
// (every opcode has a fixed Lua shape) and symbolic expression
// reconstruction, in the style of a Lua compiler's expression
// descriptor (exp_desc). See [pendingExpr] for how the two
// strategies end up as one code path here: because IR generation always
// produces expressions in strict postorder with no control flow
// interleaved mid-expression, every pushed value is consumed by the
// very next consuming instruction, so direct inlining is always safe.
// Impure results (registry calls the registry marks impure, or
// user-defined calls not named in a purity whitelist) are still routed
// through a one-shot named temporary rather than inlined, so the
// emitted Lua visibly distinguishes a reconstructed pure expression
// chain from one built from a call with side effects: pure chains
// reconstruct inline, impure ones fall back to a named temporary.
package luaemit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thistle-lang/thistle/internal/ast"
	"github.com/thistle-lang/thistle/internal/ir"
	"github.com/thistle-lang/thistle/internal/registry"
	"github.com/thistle-lang/thistle/sets"
)

// Options configures emission.
type Options struct {
	// Base is the active OPTION BASE (0 or 1), used to adjust every
	// array index to Lua's 1-based tables.
	Base int
	// Bitwise mirrors CompilerOptions.Bitwise: true renders AND/OR/XOR/
	// EQV/IMP as Lua's bitwise operators instead of boolean logic.
	Bitwise bool
	// Comments carries the driver's -c flag. Emit does not read it and
	// writes no BASIC-line annotations into the emitted Lua.
	Comments bool
	// PurityWhitelist names user-defined FUNCTIONs/DEF FNs considered
	// free of observable side effects for expression reconstruction
	// purposes. Empty by default: an unlisted call is always impure.
	PurityWhitelist map[string]bool
}

// Emitter renders one ir.Program as Lua source.
type Emitter struct {
	regs *registry.Registry
	opts Options
	out  strings.Builder
	st   stack
	tmp  int
}

// New returns an Emitter using regs to resolve registry call targets.
func New(regs *registry.Registry, opts Options) *Emitter {
	if opts.PurityWhitelist == nil {
		opts.PurityWhitelist = map[string]bool{}
	}
	return &Emitter{regs: regs, opts: opts}
}

// Emit renders prog as a complete Lua chunk.
func (e *Emitter) Emit(prog *ir.Program) (string, error) {
	var final strings.Builder
	final.WriteString(prelude)
	final.WriteString("\n")
	emitDataSegment(&final, prog.Data)

	segments := splitSegments(prog.Instrs)
	if len(segments) == 0 {
		segments = [][]ir.Instr{nil}
	}
	resumeLabels := collectResumeLabels(segments)

	// Every procedure is a global Lua function; Lua resolves globals at
	// call time rather than definition time, so ordering them ahead of
	// __main's definition is a readability choice, not a requirement.
	for i := 1; i < len(segments); i++ {
		proc := prog.Procs[i-1]
		final.WriteString(e.renderSegment(segments[i], &proc, resumeLabels[i]))
	}
	final.WriteString(e.renderSegment(segments[0], nil, resumeLabels[0]))
	final.WriteString("__main()\n")

	return final.String(), nil
}

// renderSegment renders one segment (the main program when proc is
// nil, otherwise one SUB/FUNCTION/DEF FN body) as a standalone Lua
// function, resetting the emitter's operand stack and temp counter
// first since nothing carries across a procedure boundary.
func (e *Emitter) renderSegment(instrs []ir.Instr, proc *ir.Proc, resume []int64) string {
	e.out.Reset()
	e.st = stack{}
	e.tmp = 0

	e.walk(instrs, resume)
	body := e.out.String()

	var header string
	switch {
	case proc == nil:
		header = "local function __main()\n"
	default:
		header = fmt.Sprintf("function %s(%s)\n", mangle(proc.Name), paramList(proc.Params))
	}
	return header + body + "end\n\n"
}

// splitSegments partitions a flat instruction stream at every
// OpSubEnter/OpFunctionEnter boundary. Segment 0 is the top-level
// program; segment i (i>=1) corresponds to prog.Procs[i-1], in the
// same order ir.Generator appended them.
func splitSegments(instrs []ir.Instr) [][]ir.Instr {
	var segments [][]ir.Instr
	cur := []ir.Instr{}
	for _, in := range instrs {
		if in.Op == ir.OpSubEnter || in.Op == ir.OpFunctionEnter {
			segments = append(segments, cur)
			cur = []ir.Instr{}
			continue
		}
		cur = append(cur, in)
	}
	segments = append(segments, cur)
	return segments
}

// collectResumeLabels returns, per segment, the sorted set of label ids
// any OpGosub within that segment recorded as its resume point. RETURN
// has no statically known destination (GOSUB/RETURN is a dynamic
// call), so the emitter must enumerate every resume point GOSUB could
// have pushed within the same procedure and dispatch on whichever one
// comes back off the stack at runtime.
func collectResumeLabels(segments [][]ir.Instr) [][]int64 {
	out := make([][]int64, len(segments))
	for i, seg := range segments {
		seen := sets.NewSorted[int64]()
		for _, in := range seg {
			if in.Op == ir.OpGosub {
				seen.Add(int64(in.A))
			}
			if in.Op == ir.OpDispatch && in.A != 0 {
				seen.Add(in.I)
			}
		}
		ids := make([]int64, seen.Len())
		for j, id := range seen.All() {
			ids[j] = id
		}
		out[i] = ids
	}
	return out
}

func paramList(params []ast.Param) string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = mangle(p.FullName())
	}
	return strings.Join(names, ", ")
}

func upper(s string) string {
	return strings.ToUpper(s)
}

func (e *Emitter) writeLine(line string) {
	e.out.WriteString("\t")
	e.out.WriteString(line)
	e.out.WriteString("\n")
}

func (e *Emitter) materialize(p pendingExpr) string {
	if p.pure {
		return p.text
	}
	e.tmp++
	name := fmt.Sprintf("__t%d", e.tmp)
	e.writeLine(fmt.Sprintf("local %s = %s", name, p.text))
	return name
}

func (e *Emitter) lookupCall(name string) (target string, pure bool, isRegistry bool) {
	if e.regs != nil {
		if entry, ok := e.regs.Lookup(name); ok {
			return entry.Target, entry.Pure, true
		}
	}
	return mangle(name), e.opts.PurityWhitelist[upper(name)], false
}

func adjustIndex(base int, text string) string {
	off := 1 - base
	if off == 0 {
		return text
	}
	return fmt.Sprintf("(%s + %d)", text, off)
}

func joinTexts(items []pendingExpr) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.text
	}
	return strings.Join(parts, ", ")
}

// walk renders one segment's instructions: a flat stream of labels,
// jumps, and statement-shaped opcodes, maintaining e.st as the
// compile-time operand stack described by [pendingExpr].
func (e *Emitter) walk(instrs []ir.Instr, resume []int64) {
	for _, in := range instrs {
		e.instr(in, resume)
	}
}

func (e *Emitter) instr(in ir.Instr, resume []int64) {
	switch in.Op {
	case ir.OpPushInt:
		e.st.push(literalExpr(formatInt(in.I)))
	case ir.OpPushReal:
		e.st.push(literalExpr(formatFloat(in.F)))
	case ir.OpPushStr:
		e.st.push(literalExpr(luaQuote(in.S)))
	case ir.OpPushConst:
		e.st.push(literalExpr(fmt.Sprintf("constants_get(%d)", in.I)))
	case ir.OpLoadVar:
		e.st.push(literalExpr(mangle(in.S)))
	case ir.OpLoadArray:
		idxs := e.st.popN(in.A)
		text := mangle(in.S)
		for _, idx := range idxs {
			text += "[" + adjustIndex(e.opts.Base, idx.text) + "]"
		}
		e.st.push(pendingExpr{text: text, pure: false})
	case ir.OpStoreVar:
		v := e.st.pop()
		e.writeLine(fmt.Sprintf("%s = %s", mangle(in.S), e.materialize(v)))
	case ir.OpStoreArray:
		idxs := e.st.popN(in.A)
		v := e.st.pop()
		lhs := mangle(in.S)
		for _, idx := range idxs {
			lhs += "[" + adjustIndex(e.opts.Base, idx.text) + "]"
		}
		e.writeLine(fmt.Sprintf("%s = %s", lhs, e.materialize(v)))
	case ir.OpBinOp:
		r := e.st.pop()
		l := e.st.pop()
		e.st.push(pendingExpr{text: binOpText(in.BOp, l.text, r.text, e.opts.Bitwise), pure: l.pure && r.pure})
	case ir.OpUnOp:
		v := e.st.pop()
		e.st.push(pendingExpr{text: unOpText(in.UOp, v.text, e.opts.Bitwise), pure: v.pure})
	case ir.OpCallFunc:
		args := e.st.popN(in.A)
		target, calleePure, _ := e.lookupCall(in.S)
		argsPure := true
		for _, a := range args {
			if !a.pure {
				argsPure = false
			}
		}
		text := fmt.Sprintf("%s(%s)", target, joinTexts(args))
		e.st.push(pendingExpr{text: text, pure: argsPure && calleePure})
	case ir.OpCallCommand:
		args := e.st.popN(in.A)
		target, _, _ := e.lookupCall(in.S)
		e.writeLine(fmt.Sprintf("%s(%s)", target, joinTexts(args)))
	case ir.OpCallSub:
		args := e.st.popN(in.A)
		e.writeLine(fmt.Sprintf("%s(%s)", mangle(in.S), joinTexts(args)))
	case ir.OpPop:
		v := e.st.pop()
		if !v.pure {
			e.writeLine(fmt.Sprintf("local _ = %s", v.text))
		}
	case ir.OpLabel:
		e.out.WriteString(fmt.Sprintf("\t::L%d::\n", in.I))
	case ir.OpJump:
		e.writeLine(fmt.Sprintf("goto L%d", in.I))
	case ir.OpJumpIfFalse:
		cond := e.st.pop()
		e.writeLine(fmt.Sprintf("if not __truthy(%s) then goto L%d end", cond.text, in.I))
	case ir.OpGosub:
		e.writeLine(fmt.Sprintf("table.insert(__gosub_stack, %d)", in.A))
		e.writeLine(fmt.Sprintf("goto L%d", in.I))
	case ir.OpReturn:
		e.emitGosubReturn(resume)
	case ir.OpDispatch:
		e.emitDispatch(in)
	case ir.OpPrint:
		e.emitPrint(in)
	case ir.OpInput:
		e.emitInput(in)
	case ir.OpLineInput:
		e.emitLineInput(in)
	case ir.OpRead:
		e.emitRead(in)
	case ir.OpRestore:
		e.emitRestore(in)
	case ir.OpDim:
		e.emitDim(in)
	case ir.OpOpen:
		channel := e.st.pop()
		path := e.st.pop()
		e.writeLine(fmt.Sprintf("file_open(%s, %d, %s)", path.text, in.I, channel.text))
	case ir.OpClose:
		channels := e.st.popN(in.A)
		if in.A == 0 {
			e.writeLine("file_close_all()")
			return
		}
		for _, c := range channels {
			e.writeLine(fmt.Sprintf("file_close(%s)", c.text))
		}
	case ir.OpTimerRegister:
		dur := e.st.pop()
		repeating := "false"
		if in.A != 0 {
			repeating = "true"
		}
		// The handler travels by name: the host looks the global up at
		// fire time, so a SUB defined after the registration still
		// resolves.
		e.writeLine(fmt.Sprintf("basic_timer_register(%s, %d, %s, %s)", dur.text, in.I, repeating, luaQuote(mangle(in.S))))
	case ir.OpStopTimer:
		e.emitStopTimer(in)
	case ir.OpEnd:
		e.writeLine("do return end")
	case ir.OpSubReturn:
		e.writeLine("do return end")
	case ir.OpFunctionExit:
		if e.st.empty() {
			e.writeLine("do return end")
			return
		}
		v := e.st.pop()
		e.writeLine(fmt.Sprintf("do return %s end", v.text))
	case ir.OpSubEnter, ir.OpFunctionEnter:
		// Segment boundaries; splitSegments already consumed these.
	default:
		panic(fmt.Sprintf("luaemit: unhandled opcode %v", in.Op))
	}
}

func (e *Emitter) emitGosubReturn(resume []int64) {
	if len(resume) == 0 {
		e.writeLine("error(\"RETURN without GOSUB\")")
		return
	}
	e.writeLine("do")
	e.writeLine("\tlocal __dest = table.remove(__gosub_stack)")
	for i, id := range resume {
		kw := "if"
		if i > 0 {
			kw = "elseif"
		}
		e.writeLine(fmt.Sprintf("\t%s __dest == %d then goto L%d", kw, id, id))
	}
	e.writeLine("\tend")
	e.writeLine("end")
}

func (e *Emitter) emitDispatch(in ir.Instr) {
	sel := e.st.pop()
	targets, _ := in.Aux.([]int64)
	if in.A != 0 {
		e.writeLine(fmt.Sprintf("table.insert(__gosub_stack, %d)", in.I))
	}
	e.writeLine("do")
	e.writeLine(fmt.Sprintf("\tlocal __sel = %s", sel.text))
	// The selector truncates to an integer before dispatch, so a
	// fractional 2.7 still takes the second target.
	e.writeLine("\t__sel = math.tointeger(__sel) or math.floor(__sel)")
	for i, target := range targets {
		kw := "if"
		if i > 0 {
			kw = "elseif"
		}
		e.writeLine(fmt.Sprintf("\t%s __sel == %d then goto L%d", kw, i+1, target))
	}
	if len(targets) > 0 {
		e.writeLine(fmt.Sprintf("\telse goto L%d", in.I))
		e.writeLine("\tend")
	} else {
		e.writeLine(fmt.Sprintf("\tgoto L%d", in.I))
	}
	e.writeLine("end")
}

func (e *Emitter) emitPrint(in ir.Instr) {
	items, _ := in.Aux.([]ast.PrintItem)
	values := e.st.popN(in.A)
	var channel pendingExpr
	hasChannel := in.I != 0
	if hasChannel {
		channel = e.st.pop()
	}
	valTexts := make([]string, len(values))
	sepTexts := make([]string, len(values))
	for i, v := range values {
		valTexts[i] = v.text
		sep := byte(0)
		if i < len(items) {
			sep = items[i].Sep
		}
		sepTexts[i] = strconv.Itoa(int(sep))
	}
	valsTable := "{" + strings.Join(valTexts, ", ") + "}"
	sepsTable := "{" + strings.Join(sepTexts, ", ") + "}"
	if hasChannel {
		e.writeLine(fmt.Sprintf("file_print(%s, %s, %s)", channel.text, valsTable, sepsTable))
		return
	}
	e.writeLine(fmt.Sprintf("terminal_print(%s, %s)", valsTable, sepsTable))
}

func (e *Emitter) emitInput(in ir.Instr) {
	targets, _ := in.Aux.([]ast.Expression)
	var channel pendingExpr
	hasChannel := in.I != 0
	if hasChannel {
		channel = e.st.pop()
	}
	lvalues := make([]string, len(targets))
	for i, t := range targets {
		lvalues[i] = renderLValue(e.opts.Base, t)
	}
	lhs := strings.Join(lvalues, ", ")
	if hasChannel {
		e.writeLine(fmt.Sprintf("%s = file_input(%s, %d)", lhs, channel.text, len(targets)))
		return
	}
	e.writeLine(fmt.Sprintf("%s = terminal_input(%s, %d)", lhs, luaQuote(in.S), len(targets)))
}

func (e *Emitter) emitLineInput(in ir.Instr) {
	target, _ := in.Aux.(ast.Expression)
	var channel pendingExpr
	hasChannel := in.I != 0
	if hasChannel {
		channel = e.st.pop()
	}
	lv := renderLValue(e.opts.Base, target)
	if hasChannel {
		e.writeLine(fmt.Sprintf("%s = file_line_input(%s)", lv, channel.text))
		return
	}
	e.writeLine(fmt.Sprintf("%s = terminal_line_input(%s)", lv, luaQuote(in.S)))
}

func (e *Emitter) emitRead(in ir.Instr) {
	targets, _ := in.Aux.([]ast.Expression)
	for _, t := range targets {
		fn := "data_read_double"
		switch suffixOf(t) {
		case '$':
			fn = "data_read_string"
		case '%':
			fn = "data_read_int"
		}
		e.writeLine(fmt.Sprintf("%s = %s()", renderLValue(e.opts.Base, t), fn))
	}
}

func suffixOf(e ast.Expression) byte {
	switch t := e.(type) {
	case *ast.Var:
		return byte(t.Suffix)
	case *ast.ArrayRef:
		return byte(t.Suffix)
	default:
		return 0
	}
}

func (e *Emitter) emitRestore(in ir.Instr) {
	r, _ := in.Aux.(*ast.Restore)
	if r == nil {
		e.writeLine("data_restore()")
		return
	}
	switch r.Kind {
	case ast.RestoreToLine:
		e.writeLine(fmt.Sprintf("data_restore_to_line(%d)", r.Line))
	case ast.RestoreToLabel:
		e.writeLine(fmt.Sprintf("data_restore_to_label(%s)", luaQuote(r.Label)))
	default:
		e.writeLine("data_restore()")
	}
}

func (e *Emitter) emitDim(in ir.Instr) {
	d, _ := in.Aux.(*ast.Dim)
	uppers := e.st.popN(in.A)
	name := mangle(in.S)
	if d != nil && d.Kind == ast.DimErase {
		e.writeLine(fmt.Sprintf("%s = nil", name))
		return
	}
	dims := make([]string, len(uppers))
	for i, u := range uppers {
		dims[i] = adjustIndex(e.opts.Base, u.text)
	}
	fill := "0"
	if d != nil && d.Suffix == '$' {
		fill = `""`
	}
	e.writeLine(fmt.Sprintf("%s = __make_nd_array({%s}, nil, %s)", name, strings.Join(dims, ", "), fill))
}

func (e *Emitter) emitStopTimer(in ir.Instr) {
	s, _ := in.Aux.(*ast.StopTimer)
	if s == nil {
		e.writeLine("basic_timer_stop_all()")
		return
	}
	switch s.Kind {
	case ast.StopTimerByID:
		id := e.st.pop()
		e.writeLine(fmt.Sprintf("basic_timer_stop(%s)", id.text))
	case ast.StopTimerByName:
		e.writeLine(fmt.Sprintf("basic_timer_stop_by_name(%s)", luaQuote(s.Name)))
	default:
		e.writeLine("basic_timer_stop_all()")
	}
}

// renderLValue renders an assignment target that IR generation left as
// a raw AST expression rather than a pushed value (READ/INPUT/LINE
// INPUT targets): always a *ast.Var or *ast.ArrayRef, whose index
// expressions are rendered directly since they were never lowered
// through the IR's postorder push sequence.
func renderLValue(base int, e ast.Expression) string {
	switch t := e.(type) {
	case *ast.Var:
		return mangle(t.FullName())
	case *ast.ArrayRef:
		text := mangle(t.FullName())
		for _, idx := range t.Indices {
			text += "[" + adjustIndex(base, renderASTExpr(base, idx)) + "]"
		}
		return text
	default:
		return "nil"
	}
}

// renderASTExpr renders a raw AST expression directly to Lua text,
// independent of the IR-driven pendingExpr machinery, for the rare
// spots (array index expressions inside a READ/INPUT target) IR
// generation doesn't push through the operand stack.
func renderASTExpr(base int, e ast.Expression) string {
	switch n := e.(type) {
	case *ast.IntLit:
		return formatInt(n.Value)
	case *ast.RealLit:
		return formatFloat(n.Value)
	case *ast.StrLit:
		return luaQuote(n.Value)
	case *ast.Var:
		return mangle(n.FullName())
	case *ast.ArrayRef:
		return renderLValue(base, n)
	case *ast.Unary:
		return unOpText(n.Op, renderASTExpr(base, n.Expr), false)
	case *ast.Binary:
		return binOpText(n.Op, renderASTExpr(base, n.Left), renderASTExpr(base, n.Right), false)
	case *ast.ConstRef:
		return fmt.Sprintf("constants_get(%d)", n.Index)
	default:
		return "nil"
	}
}

func binOpText(op ast.BinaryOp, l, r string, bitwise bool) string {
	switch op {
	case ast.OpAdd:
		return fmt.Sprintf("(%s + %s)", l, r)
	case ast.OpSub:
		return fmt.Sprintf("(%s - %s)", l, r)
	case ast.OpMul:
		return fmt.Sprintf("(%s * %s)", l, r)
	case ast.OpDiv:
		return fmt.Sprintf("(%s / %s)", l, r)
	case ast.OpIntDiv:
		return fmt.Sprintf("(%s // %s)", l, r)
	case ast.OpMod:
		return fmt.Sprintf("(%s %% %s)", l, r)
	case ast.OpPow:
		return fmt.Sprintf("(%s ^ %s)", l, r)
	case ast.OpEq:
		return fmt.Sprintf("__bool(%s == %s)", l, r)
	case ast.OpNe:
		return fmt.Sprintf("__bool(%s ~= %s)", l, r)
	case ast.OpLt:
		return fmt.Sprintf("__bool(%s < %s)", l, r)
	case ast.OpLe:
		return fmt.Sprintf("__bool(%s <= %s)", l, r)
	case ast.OpGt:
		return fmt.Sprintf("__bool(%s > %s)", l, r)
	case ast.OpGe:
		return fmt.Sprintf("__bool(%s >= %s)", l, r)
	case ast.OpAnd:
		if bitwise {
			return fmt.Sprintf("(%s & %s)", l, r)
		}
		return fmt.Sprintf("__bool(__truthy(%s) and __truthy(%s))", l, r)
	case ast.OpOr:
		if bitwise {
			return fmt.Sprintf("(%s | %s)", l, r)
		}
		return fmt.Sprintf("__bool(__truthy(%s) or __truthy(%s))", l, r)
	case ast.OpXor:
		if bitwise {
			return fmt.Sprintf("(%s ~ %s)", l, r)
		}
		return fmt.Sprintf("__bool(__truthy(%s) ~= __truthy(%s))", l, r)
	case ast.OpEqv:
		if bitwise {
			return fmt.Sprintf("(~(%s ~ %s))", l, r)
		}
		return fmt.Sprintf("__bool(__truthy(%s) == __truthy(%s))", l, r)
	case ast.OpImp:
		if bitwise {
			return fmt.Sprintf("(~%s | %s)", l, r)
		}
		return fmt.Sprintf("__bool((not __truthy(%s)) or __truthy(%s))", l, r)
	default:
		return fmt.Sprintf("(%s %s %s)", l, op, r)
	}
}

func unOpText(op ast.UnaryOp, v string, bitwise bool) string {
	switch op {
	case ast.UnaryNeg:
		return fmt.Sprintf("(-%s)", v)
	case ast.UnaryNot:
		if bitwise {
			return fmt.Sprintf("(~%s)", v)
		}
		return fmt.Sprintf("__bool(not __truthy(%s))", v)
	default:
		return v
	}
}
