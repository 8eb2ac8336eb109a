// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

// Package peephole implements the optional IR-level optimization pass:
// local pattern rewrites applied to a flat [ir.Program]'s instruction
// slice, iterated to a fixpoint bounded by [Options.MaxPasses].
//
// Grounded in a Lua code generator's peephole rules (codeNil's "adjust
// the previous instruction instead of emitting a new one" pattern, and
// jump-to-jump folding in finalJump/jumpDestination) ported from
// register-bytecode patching to rewrites over our opcode slice.
package peephole

import (
	"github.com/thistle-lang/thistle/internal/ast"
	"github.com/thistle-lang/thistle/internal/ir"
)

// Options bounds how aggressively the pass runs.
type Options struct {
	// MaxPasses caps how many fixpoint iterations run before giving up;
	// zero means the default of 8.
	MaxPasses int
}

// Stats counts how many times each rule fired, surfaced by the
// --opt-stats driver flag alongside [astopt.Stats].
type Stats struct {
	ZeroAddRemoved   int
	OneMulRemoved    int
	JumpChainsFolded int
	DeadAfterJump    int
	ConstFolded      int
}

// Optimize rewrites prog.Instrs in place, returning how many times each
// rule fired. It never touches prog.Data or prog.Consts.
func Optimize(prog *ir.Program, opts Options) Stats {
	maxPasses := opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = 8
	}
	var stats Stats
	for pass := 0; pass < maxPasses; pass++ {
		var changed bool
		prog.Instrs, changed = rewriteOnce(prog.Instrs, &stats)
		if !changed {
			break
		}
	}
	return stats
}

// rewriteOnce applies every rule left-to-right over in, returning the
// rewritten slice and whether anything changed.
func rewriteOnce(in []ir.Instr, stats *Stats) ([]ir.Instr, bool) {
	out := make([]ir.Instr, 0, len(in))
	changed := false

	i := 0
	for i < len(in) {
		cur := in[i]

		// Rule: push_int 0; add / push_real 0.0; add -> (drop the push).
		if cur.Op == ir.OpBinOp && cur.BOp == ast.OpAdd && isZeroPush(out, len(out)-1) {
			out = out[:len(out)-1]
			stats.ZeroAddRemoved++
			changed = true
			i++
			continue
		}

		// Rule: push_int 1; mul / push_real 1.0; mul -> (drop the push).
		if cur.Op == ir.OpBinOp && cur.BOp == ast.OpMul && isOnePush(out, len(out)-1) {
			out = out[:len(out)-1]
			stats.OneMulRemoved++
			changed = true
			i++
			continue
		}

		// Rule: push_int a; push_int b; <binop> -> push_int (a <binop> b)
		// for binops total over the two literal operands.
		if cur.Op == ir.OpBinOp && len(out) >= 2 {
			a, aok := asIntLiteral(out[len(out)-2])
			b, bok := asIntLiteral(out[len(out)-1])
			if aok && bok {
				if v, ok := foldIntOp(cur.BOp, a, b); ok {
					out = out[:len(out)-2]
					out = append(out, ir.Instr{Op: ir.OpPushInt, I: v})
					stats.ConstFolded++
					changed = true
					i++
					continue
				}
			}
		}

		// Rule: jmp L; L: -> L: (the jump is redundant with its own
		// fallthrough target).
		if cur.Op == ir.OpJump && i+1 < len(in) && in[i+1].Op == ir.OpLabel && in[i+1].I == cur.I {
			stats.JumpChainsFolded++
			changed = true
			i++
			continue
		}

		// Rule: drop unreachable instructions strictly between an
		// unconditional exit and the next label, since nothing can jump
		// into the middle of that run. Labels stay (they are jump
		// targets), and so do the segment markers that open each
		// SUB/FUNCTION body: the instruction after a procedure boundary
		// is reachable by call, not by fallthrough.
		if len(out) > 0 && isUnconditionalExit(out[len(out)-1]) &&
			cur.Op != ir.OpLabel && cur.Op != ir.OpSubEnter && cur.Op != ir.OpFunctionEnter {
			stats.DeadAfterJump++
			changed = true
			i++
			continue
		}

		out = append(out, cur)
		i++
	}
	return out, changed
}

func isUnconditionalExit(in ir.Instr) bool {
	switch in.Op {
	case ir.OpJump, ir.OpReturn, ir.OpSubReturn, ir.OpEnd, ir.OpFunctionExit:
		return true
	default:
		return false
	}
}

func isZeroPush(instrs []ir.Instr, idx int) bool {
	if idx < 0 || idx >= len(instrs) {
		return false
	}
	switch instrs[idx].Op {
	case ir.OpPushInt:
		return instrs[idx].I == 0
	case ir.OpPushReal:
		return instrs[idx].F == 0
	}
	return false
}

func isOnePush(instrs []ir.Instr, idx int) bool {
	if idx < 0 || idx >= len(instrs) {
		return false
	}
	switch instrs[idx].Op {
	case ir.OpPushInt:
		return instrs[idx].I == 1
	case ir.OpPushReal:
		return instrs[idx].F == 1
	}
	return false
}

func asIntLiteral(in ir.Instr) (int64, bool) {
	if in.Op == ir.OpPushInt {
		return in.I, true
	}
	return 0, false
}

// foldIntOp mirrors astopt's integer constant folding at the IR
// level, for literal pairs astopt never saw (e.g. array-index
// arithmetic introduced during IR generation, or operands exposed by an
// earlier peephole rewrite in the same fixpoint run).
func foldIntOp(op ast.BinaryOp, l, r int64) (int64, bool) {
	switch op {
	case ast.OpAdd:
		return l + r, true
	case ast.OpSub:
		return l - r, true
	case ast.OpMul:
		return l * r, true
	default:
		return 0, false
	}
}
