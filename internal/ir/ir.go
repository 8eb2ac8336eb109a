// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

// Package ir implements the stack-machine intermediate representation:
// a flat, linear instruction list with explicit labels, generated by
// walking a [cfg.Graph] block by block and an expression tree in
// postorder (operands pushed before the operator that consumes them).
// This mirrors a Lua compiler's instruction encoding (register-free
// stack opcodes addressed by program counter) closely enough that the
// peephole pass and Lua emission both operate on the same
// flat-slice-plus-label-map shape an assembler does, rather than
// re-walking the AST.
package ir

import (
	"fmt"
	"sort"

	"github.com/thistle-lang/thistle/internal/ast"
	"github.com/thistle-lang/thistle/internal/cfg"
	"github.com/thistle-lang/thistle/internal/constants"
	"github.com/thistle-lang/thistle/internal/data"
	"github.com/thistle-lang/thistle/internal/sema"
)

// Op enumerates the stack-machine operations.
type Op int

const (
	OpPushInt Op = iota
	OpPushReal
	OpPushStr
	OpPushConst
	OpLoadVar
	OpLoadArray // Indices operands already pushed; A carries the index count
	OpStoreVar
	OpStoreArray
	OpBinOp
	OpUnOp
	OpCallFunc    // expression-position call: pushes its result
	OpCallCommand // statement-position call: no pushed result
	OpCallSub
	OpPop
	OpLabel
	OpJump
	OpJumpIfFalse
	OpGosub
	OpReturn    // RETURN from a GOSUB: pop the gosub return stack and resume there
	OpSubReturn // exit a SUB body (no value): distinct from OpReturn since the
	// two resume completely differently at the Lua level (computed
	// goto vs. a plain Lua `return`)
	OpDispatch
	OpPrint
	OpInput
	OpLineInput
	OpRead
	OpRestore
	OpDim
	OpOpen
	OpClose
	OpTimerRegister
	OpStopTimer
	OpEnd
	OpSubEnter
	OpFunctionEnter
	OpFunctionExit
)

// Instr is one IR instruction. Not every field is meaningful for every
// Op; see the Op constant's comment for which operands it reads.
type Instr struct {
	Op   Op
	I    int64           // OpPushInt, OpLabel/jump target label id, small operand tags (counts go in A)
	F    float64         // OpPushReal
	S    string          // OpPushStr, var/array/sub/function/command name, label name
	Node ast.Node        // originating AST node, for diagnostics and luaemit fallback
	BOp  ast.BinaryOp
	UOp  ast.UnaryOp
	A    int // auxiliary count (array index count, arg count, print item count)
	Aux  any // Op-specific structured payload (e.g. []ast.PrintItem separators)
}

// Proc describes one user-defined SUB/FUNCTION/DEF FN carried alongside
// the main instruction stream: the name callers reference (OpCallSub/
// OpCallFunc's S field), its formal parameters, and whether it returns
// a value, so the Lua emitter can render a real Lua function header
// instead of threading parameters through the virtual stack.
type Proc struct {
	Name       string
	Params     []ast.Param
	IsFunction bool // false for SUB (no return value expected)
}

// Program is a complete compiled unit's IR: the flat instruction stream
// plus the DATA segment and restore tables materialized by the
// preprocessor, ready for peephole optimization and Lua emission. Every
// SUB/FUNCTION/DEF FN body is appended to the same Instrs stream,
// bounded by OpSubEnter/OpFunctionEnter and OpSubReturn/OpFunctionExit,
// as one linear instruction sequence; Procs records each one's calling
// convention, not its position in Instrs.
type Program struct {
	Instrs []Instr
	Data   *data.Segment
	Consts *constants.Store
	Procs  []Proc
}

// Generator lowers one cfg.Graph (plus its originating symbol table) to
// a linear Program.
type Generator struct {
	consts   *constants.Store
	syms     *sema.Symbols
	instrs   []Instr
	labelSeq int64
	procs    []Proc

	// inProc/inFunction select what a block's TermExit terminator lowers
	// to: OpEnd at top level, OpSubReturn inside a SUB body, OpFunctionExit
	// inside a FUNCTION/DEF FN body.
	inProc     bool
	inFunction bool
	// justExited is set once a block's own *ast.Return-with-value
	// statement has already emitted the procedure-exit instruction, so
	// the block's TermExit terminator does not emit a second one.
	justExited bool
}

// New returns a Generator over consts (used to resolve ConstRef values)
// and syms (used to classify calls already resolved by sema).
func New(consts *constants.Store, syms *sema.Symbols) *Generator {
	return &Generator{consts: consts, syms: syms}
}

// Generate lowers g into a Program. seg is the DATA segment extracted by
// the preprocessor, carried through unmodified since IR generation only
// emits READ/RESTORE instructions that reference it by index. Generate
// lowers the top-level program; use [Generator.GenerateProgram] to also
// append every SUB/FUNCTION/DEF FN body from the symbol table.
func (gen *Generator) Generate(g *cfg.Graph, seg *data.Segment) *Program {
	gen.generateGraph(g)
	return &Program{Instrs: gen.instrs, Data: seg, Consts: gen.consts, Procs: gen.procs}
}

// GenerateProgram lowers the top-level program graph plus every
// procedure declared in syms, in a deterministic name order, into one
// Program sharing a single label namespace (labelSeq is monotonic
// across every call, so GOTO/GOSUB targets across different procedure
// bodies can never collide even though each procedure gets its own
// cfg.Graph).
func (gen *Generator) GenerateProgram(mainGraph *cfg.Graph, seg *data.Segment) *Program {
	gen.generateGraph(mainGraph)

	for _, name := range sortedKeys(gen.syms.Subs) {
		sub := gen.syms.Subs[name]
		gen.generateProc(Proc{Name: sub.Name, Params: sub.Params, IsFunction: false}, sub.Body)
	}
	for _, name := range sortedKeys(gen.syms.Functions) {
		fn := gen.syms.Functions[name]
		gen.generateProc(Proc{Name: fn.Name, Params: fn.Params, IsFunction: true}, fn.Body)
	}
	for _, name := range sortedKeys(gen.syms.DefFns) {
		def := gen.syms.DefFns[name]
		gen.generateDefFn(def)
	}

	return &Program{Instrs: gen.instrs, Data: seg, Consts: gen.consts, Procs: gen.procs}
}

func (gen *Generator) generateGraph(g *cfg.Graph) {
	// blockLabel maps every block id to a stable IR label id so forward
	// references (the common case: GOTO to a line defined later) can be
	// emitted before the target block has been visited.
	blockLabel := make(map[cfg.BlockID]int64, len(g.Blocks))
	for _, b := range g.Blocks {
		blockLabel[b.ID] = gen.nextLabel()
	}

	for _, b := range g.Blocks {
		gen.emit(Instr{Op: OpLabel, I: blockLabel[b.ID]})
		gen.justExited = false
		for _, s := range b.Stmts {
			gen.stmt(s)
		}
		gen.terminator(b.Term, blockLabel)
	}
}

// generateProc lowers one SUB/FUNCTION body, wrapping its instructions
// with OpSubEnter/OpFunctionEnter and recording it in gen.procs.
func (gen *Generator) generateProc(p Proc, body []ast.Statement) {
	gen.procs = append(gen.procs, p)
	op := OpSubEnter
	if p.IsFunction {
		op = OpFunctionEnter
	}
	gen.emit(Instr{Op: op, S: p.Name, A: len(p.Params), Aux: p.Params})

	prevInProc, prevInFunction := gen.inProc, gen.inFunction
	gen.inProc, gen.inFunction = true, p.IsFunction
	gen.generateGraph(cfg.Build(body))
	gen.inProc, gen.inFunction = prevInProc, prevInFunction
}

// generateDefFn lowers a single-line DEF FN, which has no statement
// body to build a CFG from: just the one expression, evaluated and
// returned directly.
func (gen *Generator) generateDefFn(def *ast.DefFn) {
	p := Proc{Name: def.Name, Params: def.Params, IsFunction: true}
	gen.procs = append(gen.procs, p)
	gen.emit(Instr{Op: OpFunctionEnter, S: p.Name, A: len(p.Params), Aux: p.Params})
	gen.expr(def.Body)
	gen.emit(Instr{Op: OpFunctionExit})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (gen *Generator) nextLabel() int64 {
	gen.labelSeq++
	return gen.labelSeq
}

func (gen *Generator) emit(i Instr) { gen.instrs = append(gen.instrs, i) }

func (gen *Generator) procExitInstr() Instr {
	if gen.inFunction {
		return Instr{Op: OpFunctionExit}
	}
	return Instr{Op: OpSubReturn}
}

// checkStopCommand is the name the Lua emitter's prelude recognizes as
// the cooperative yield/interrupt probe: invoked at every loop
// back-edge and after every WAIT* statement, nowhere else.
const checkStopCommand = "check_should_stop"

// Timer unit encoding on OpTimerRegister.I, shared with the host
// runtime's basic_timer_register: 0 frames, 1 milliseconds. SECS
// registrations are scaled to milliseconds during lowering.
const (
	timerWireFrames int64 = 0
	timerWireMs     int64 = 1
)

func (gen *Generator) terminator(t cfg.Terminator, labels map[cfg.BlockID]int64) {
	if t.Kind == cfg.TermExit && gen.justExited {
		return
	}
	if t.IsBackEdge {
		gen.emit(Instr{Op: OpCallCommand, S: checkStopCommand})
	}
	switch t.Kind {
	case cfg.TermFallthrough, cfg.TermJump:
		gen.emit(Instr{Op: OpJump, I: labels[t.Next]})
	case cfg.TermBranch:
		if t.Cond != nil {
			gen.expr(t.Cond)
		}
		gen.emit(Instr{Op: OpJumpIfFalse, I: labels[t.Else]})
		gen.emit(Instr{Op: OpJump, I: labels[t.Next]})
	case cfg.TermGosub:
		gen.emit(Instr{Op: OpGosub, I: labels[t.Next], A: int(labels[t.Resume])})
	case cfg.TermReturn:
		gen.emit(Instr{Op: OpReturn})
	case cfg.TermDispatch:
		gen.expr(t.Selector)
		targets := make([]int64, len(t.Targets))
		for i, tg := range t.Targets {
			targets[i] = labels[tg]
		}
		gen.emit(Instr{Op: OpDispatch, A: boolToInt(t.IsGosubDispatch), Aux: targets, I: labels[t.Next]})
	case cfg.TermExit:
		if gen.inProc {
			gen.emit(gen.procExitInstr())
		} else {
			gen.emit(Instr{Op: OpEnd})
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (gen *Generator) stmt(s ast.Statement) {
	switch n := s.(type) {
	case *cfg.ForInit:
		gen.expr(n.For.From)
		gen.emit(Instr{Op: OpStoreVar, S: n.For.Var.FullName(), Node: n})
	case *cfg.ForTest:
		gen.emit(Instr{Op: OpLoadVar, S: n.For.Var.FullName()})
		gen.expr(n.For.To)
		op := ast.OpLe
		if isNegativeStep(n.For.Step) {
			op = ast.OpGe
		}
		gen.emit(Instr{Op: OpBinOp, BOp: op, Node: n})
	case *cfg.ForStep:
		step := n.For.Step
		if step == nil {
			step = ast.NewIntLit(n.Position(), 1)
		}
		gen.emit(Instr{Op: OpLoadVar, S: n.For.Var.FullName()})
		gen.expr(step)
		gen.emit(Instr{Op: OpBinOp, BOp: ast.OpAdd})
		gen.emit(Instr{Op: OpStoreVar, S: n.For.Var.FullName()})
	case *ast.Assign:
		gen.expr(n.Value)
		gen.storeTo(n.Target)
	case *ast.Print:
		if n.Channel != nil {
			gen.expr(n.Channel)
		}
		for _, item := range n.Items {
			gen.expr(item.Expr)
		}
		gen.emit(Instr{Op: OpPrint, A: len(n.Items), Aux: n.Items, I: boolToInt64(n.Channel != nil)})
	case *ast.Input:
		if n.Channel != nil {
			gen.expr(n.Channel)
		}
		gen.emit(Instr{Op: OpInput, A: len(n.Targets), Aux: n.Targets, S: n.Prompt, I: boolToInt64(n.Channel != nil)})
	case *ast.LineInput:
		if n.Channel != nil {
			gen.expr(n.Channel)
		}
		gen.emit(Instr{Op: OpLineInput, Aux: n.Target, S: n.Prompt, I: boolToInt64(n.Channel != nil)})
	case *ast.Read:
		gen.emit(Instr{Op: OpRead, Aux: n.Targets})
	case *ast.Restore:
		gen.emit(Instr{Op: OpRestore, Aux: n})
	case *ast.Dim:
		for _, ax := range n.Axes {
			gen.expr(ax.Upper)
		}
		gen.emit(Instr{Op: OpDim, S: n.FullName(), A: len(n.Axes), Aux: n})
	case *ast.Call:
		for _, a := range n.Args {
			gen.expr(a)
		}
		gen.emit(gen.callInstr(n.Name, len(n.Args)))
		gen.maybeCheckStop(n.Name)
	case *ast.CommandInvocation:
		for _, a := range n.Args {
			gen.expr(a)
		}
		gen.emit(Instr{Op: OpCallCommand, S: n.Name, A: len(n.Args)})
		gen.maybeCheckStop(n.Name)
	case *ast.Open:
		gen.expr(n.Path)
		gen.expr(n.Channel)
		gen.emit(Instr{Op: OpOpen, I: int64(n.Mode)})
	case *ast.Close:
		for _, c := range n.Channels {
			gen.expr(c)
		}
		gen.emit(Instr{Op: OpClose, A: len(n.Channels)})
	case *ast.TimerRegister:
		gen.expr(n.Duration)
		unit := timerWireMs
		switch n.Unit {
		case ast.TimerSecs:
			// The host only understands frames and milliseconds;
			// SECS scales here.
			gen.emit(Instr{Op: OpPushInt, I: 1000})
			gen.emit(Instr{Op: OpBinOp, BOp: ast.OpMul})
		case ast.TimerFrames:
			unit = timerWireFrames
		}
		gen.emit(Instr{Op: OpTimerRegister, S: n.Handler, I: unit, A: boolToInt(n.Repeating)})
	case *ast.StopTimer:
		if n.ID != nil {
			gen.expr(n.ID)
		}
		gen.emit(Instr{Op: OpStopTimer, Aux: n})
	case *ast.Return:
		// A value-carrying RETURN inside a FUNCTION/DEF FN body exits
		// the procedure outright (cfg.Build gives it a TermExit rather
		// than resuming a GOSUB caller); emit the value and the matching
		// exit instruction here so terminator() doesn't also need to
		// evaluate an expression.
		if n.Value != nil {
			gen.expr(n.Value)
			gen.emit(gen.procExitInstr())
			gen.justExited = true
		}
	case *ast.End:
		gen.emit(Instr{Op: OpEnd, Node: n})
		gen.justExited = true
	case *ast.SubDecl, *ast.FunctionDecl, *ast.DefFn, *ast.Rem, *ast.Option, *ast.Label:
		// SubDecl/FunctionDecl/DefFn bodies are lowered separately by
		// GenerateProgram (each procedure gets its own
		// block graph); Rem/Option/Label carry no runtime
		// behavior at this point (labels already became block
		// boundaries in cfg.Build).
	default:
		panic(fmt.Sprintf("ir: unhandled statement %T", s))
	}
}

// maybeCheckStop emits the cooperative yield probe after a WAIT_FRAMES
// or WAIT_MS statement: the only two statement forms besides a loop
// back-edge that ever trigger one.
func (gen *Generator) maybeCheckStop(name string) {
	switch upper(name) {
	case "WAIT_FRAMES", "WAIT_MS":
		gen.emit(Instr{Op: OpCallCommand, S: checkStopCommand})
	}
}

func isNegativeStep(step ast.Expression) bool {
	switch v := step.(type) {
	case *ast.IntLit:
		return v.Value < 0
	case *ast.RealLit:
		return v.Value < 0
	case *ast.Unary:
		return v.Op == ast.UnaryNeg
	}
	return false
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (gen *Generator) callInstr(name string, argc int) Instr {
	key := upper(name)
	if gen.syms != nil {
		if _, ok := gen.syms.Subs[key]; ok {
			return Instr{Op: OpCallSub, S: name, A: argc}
		}
	}
	return Instr{Op: OpCallCommand, S: name, A: argc}
}

func (gen *Generator) storeTo(target ast.Expression) {
	switch t := target.(type) {
	case *ast.Var:
		gen.emit(Instr{Op: OpStoreVar, S: t.FullName()})
	case *ast.ArrayRef:
		for _, idx := range t.Indices {
			gen.expr(idx)
		}
		gen.emit(Instr{Op: OpStoreArray, S: t.FullName(), A: len(t.Indices)})
	}
}

// expr emits e in postorder: by the time this call returns, exactly one
// value has been pushed for non-void expressions.
func (gen *Generator) expr(e ast.Expression) {
	switch n := e.(type) {
	case *ast.IntLit:
		gen.emit(Instr{Op: OpPushInt, I: n.Value, Node: n})
	case *ast.RealLit:
		gen.emit(Instr{Op: OpPushReal, F: n.Value, Node: n})
	case *ast.StrLit:
		gen.emit(Instr{Op: OpPushStr, S: n.Value, Node: n})
	case *ast.ConstRef:
		gen.emit(Instr{Op: OpPushConst, I: int64(n.Index), S: n.Name, Node: n})
	case *ast.Var:
		gen.emit(Instr{Op: OpLoadVar, S: n.FullName(), Node: n})
	case *ast.ArrayRef:
		for _, idx := range n.Indices {
			gen.expr(idx)
		}
		gen.emit(Instr{Op: OpLoadArray, S: n.FullName(), A: len(n.Indices), Node: n})
	case *ast.Unary:
		gen.expr(n.Expr)
		gen.emit(Instr{Op: OpUnOp, UOp: n.Op, Node: n})
	case *ast.Binary:
		gen.expr(n.Left)
		gen.expr(n.Right)
		gen.emit(Instr{Op: OpBinOp, BOp: n.Op, Node: n})
	case *ast.FnCall:
		for _, a := range n.Args {
			gen.expr(a)
		}
		switch n.Resolved {
		case ast.FnCallArray:
			gen.emit(Instr{Op: OpLoadArray, S: upper(n.Name), A: len(n.Args), Node: n})
		default:
			gen.emit(Instr{Op: OpCallFunc, S: n.Name, A: len(n.Args), Node: n})
		}
	default:
		panic(fmt.Sprintf("ir: unhandled expression %T", e))
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
