// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

// Package astopt implements the optional AST-level optimization pass:
// constant folding of literal arithmetic/comparison/logical
// expressions, algebraic identity simplification (x+0, x*1, x*0, NOT
// NOT x), and removal of statements made dead by folding (IF FALSE THEN
// ... branches, REM statements). Grounded in a Lua code generator's
// constant-folding helpers (foldArith/foldBitwise), generalized from
// Lua's arithmetic/bitwise set to BASIC's arithmetic/comparison/
// logical operator family and lifted from "fold while emitting" to a
// standalone tree rewrite so it can run
// independently of code generation and report how many rules fired.
package astopt

import (
	"math"

	"github.com/thistle-lang/thistle/internal/ast"
)

// Stats counts how many times each optimization rule fired, surfaced by
// the --opt-stats driver flag.
type Stats struct {
	ConstantsFolded int
	IdentitiesFolded int
	DeadStatements  int
}

// Options selects which rule families run.
type Options struct {
	Fold     bool // constant folding + algebraic identities
	DeadCode bool // dead branch/statement elimination
}

// Optimize rewrites prog's statement tree in place per opts, returning
// how many times each rule fired.
func Optimize(prog *ast.Program, opts Options) Stats {
	o := &optimizer{opts: opts}
	prog.Statements = o.stmts(prog.Statements)
	return o.stats
}

type optimizer struct {
	opts  Options
	stats Stats
}

func (o *optimizer) stmts(in []ast.Statement) []ast.Statement {
	out := make([]ast.Statement, 0, len(in))
	for _, s := range in {
		s = o.stmt(s)
		if s == nil {
			o.stats.DeadStatements++
			continue
		}
		out = append(out, s)
	}
	return out
}

func (o *optimizer) stmt(s ast.Statement) ast.Statement {
	switch n := s.(type) {
	case *ast.Rem:
		if o.opts.DeadCode {
			return nil
		}
		return n
	case *ast.Assign:
		n.Target = o.expr(n.Target)
		n.Value = o.expr(n.Value)
		return n
	case *ast.Print:
		if n.Channel != nil {
			n.Channel = o.expr(n.Channel)
		}
		for i := range n.Items {
			n.Items[i].Expr = o.expr(n.Items[i].Expr)
		}
		return n
	case *ast.Input:
		for i := range n.Targets {
			n.Targets[i] = o.expr(n.Targets[i])
		}
		return n
	case *ast.LineInput:
		n.Target = o.expr(n.Target)
		return n
	case *ast.If:
		return o.ifStmt(n)
	case *ast.For:
		n.From = o.expr(n.From)
		n.To = o.expr(n.To)
		if n.Step != nil {
			n.Step = o.expr(n.Step)
		}
		n.Body = o.stmts(n.Body)
		return n
	case *ast.While:
		n.Cond = o.expr(n.Cond)
		if o.opts.DeadCode {
			if lit, ok := n.Cond.(*ast.IntLit); ok && lit.Value == 0 {
				o.stats.DeadStatements++
				return nil
			}
		}
		n.Body = o.stmts(n.Body)
		return n
	case *ast.RepeatLoop:
		n.Body = o.stmts(n.Body)
		n.Cond = o.expr(n.Cond)
		return n
	case *ast.Do:
		if n.Cond != nil {
			n.Cond = o.expr(n.Cond)
		}
		n.Body = o.stmts(n.Body)
		return n
	case *ast.Select:
		n.Selector = o.expr(n.Selector)
		for i := range n.Cases {
			for j := range n.Cases[i].Values {
				n.Cases[i].Values[j] = o.expr(n.Cases[i].Values[j])
			}
			if n.Cases[i].IsRangeOp {
				n.Cases[i].RangeVal = o.expr(n.Cases[i].RangeVal)
			}
			n.Cases[i].Body = o.stmts(n.Cases[i].Body)
		}
		return n
	case *ast.Read:
		for i := range n.Targets {
			n.Targets[i] = o.expr(n.Targets[i])
		}
		return n
	case *ast.SubDecl:
		n.Body = o.stmts(n.Body)
		return n
	case *ast.FunctionDecl:
		n.Body = o.stmts(n.Body)
		return n
	case *ast.DefFn:
		n.Body = o.expr(n.Body)
		return n
	case *ast.Call:
		for i := range n.Args {
			n.Args[i] = o.expr(n.Args[i])
		}
		return n
	case *ast.CommandInvocation:
		for i := range n.Args {
			n.Args[i] = o.expr(n.Args[i])
		}
		return n
	case *ast.Open:
		n.Path = o.expr(n.Path)
		n.Channel = o.expr(n.Channel)
		return n
	case *ast.Close:
		for i := range n.Channels {
			n.Channels[i] = o.expr(n.Channels[i])
		}
		return n
	case *ast.TimerRegister:
		n.Duration = o.expr(n.Duration)
		return n
	case *ast.StopTimer:
		if n.ID != nil {
			n.ID = o.expr(n.ID)
		}
		return n
	default:
		return s
	}
}

// ifStmt folds each arm's condition and, under dead-code elimination,
// drops arms whose condition constant-folds to false and, once an arm's
// condition folds to true, drops every arm after it. The If statement
// itself is kept (with the earlier arms and the always-true arm); it is
// removed only when every arm was dropped.
func (o *optimizer) ifStmt(n *ast.If) ast.Statement {
	var arms []ast.IfArm
	for _, arm := range n.Arms {
		if arm.Cond != nil {
			arm.Cond = o.expr(arm.Cond)
		}
		arm.Body = o.stmts(arm.Body)
		if o.opts.DeadCode && arm.Cond != nil {
			if lit, ok := arm.Cond.(*ast.IntLit); ok {
				if lit.Value == 0 {
					o.stats.DeadStatements++
					continue
				}
				// Always-true arm: every later arm is unreachable.
				arms = append(arms, arm)
				n.Arms = arms
				return n
			}
		}
		arms = append(arms, arm)
	}
	n.Arms = arms
	if o.opts.DeadCode && len(arms) == 0 {
		return nil
	}
	return n
}

// expr rewrites e bottom-up, applying constant folding and algebraic
// identities when enabled.
func (o *optimizer) expr(e ast.Expression) ast.Expression {
	switch n := e.(type) {
	case *ast.Unary:
		n.Expr = o.expr(n.Expr)
		if !o.opts.Fold {
			return n
		}
		return o.foldUnary(n)
	case *ast.Binary:
		n.Left = o.expr(n.Left)
		n.Right = o.expr(n.Right)
		if !o.opts.Fold {
			return n
		}
		return o.foldBinary(n)
	case *ast.ArrayRef:
		for i := range n.Indices {
			n.Indices[i] = o.expr(n.Indices[i])
		}
		return n
	case *ast.FnCall:
		for i := range n.Args {
			n.Args[i] = o.expr(n.Args[i])
		}
		return n
	default:
		return e
	}
}

func (o *optimizer) foldUnary(n *ast.Unary) ast.Expression {
	switch n.Op {
	case ast.UnaryNeg:
		switch v := n.Expr.(type) {
		case *ast.IntLit:
			o.stats.ConstantsFolded++
			return ast.NewIntLit(n.Position(), -v.Value)
		case *ast.RealLit:
			o.stats.ConstantsFolded++
			return ast.NewRealLit(n.Position(), -v.Value, v.Single)
		}
		// --x => x (double negation)
		if inner, ok := n.Expr.(*ast.Unary); ok && inner.Op == ast.UnaryNeg {
			o.stats.IdentitiesFolded++
			return inner.Expr
		}
	case ast.UnaryNot:
		// NOT NOT x => x
		if inner, ok := n.Expr.(*ast.Unary); ok && inner.Op == ast.UnaryNot {
			o.stats.IdentitiesFolded++
			return inner.Expr
		}
		if v, ok := n.Expr.(*ast.IntLit); ok {
			o.stats.ConstantsFolded++
			if v.Value == 0 {
				return ast.NewIntLit(n.Position(), 1)
			}
			return ast.NewIntLit(n.Position(), 0)
		}
	}
	return n
}

func (o *optimizer) foldBinary(n *ast.Binary) ast.Expression {
	if id := o.identity(n); id != nil {
		o.stats.IdentitiesFolded++
		return id
	}

	li, lIsInt := n.Left.(*ast.IntLit)
	ri, rIsInt := n.Right.(*ast.IntLit)
	if lIsInt && rIsInt {
		if v, ok := foldIntOp(n.Op, li.Value, ri.Value); ok {
			o.stats.ConstantsFolded++
			return ast.NewIntLit(n.Position(), v)
		}
	}

	lf, lok := numericValue(n.Left)
	rf, rok := numericValue(n.Right)
	if lok && rok && !n.Op.IsLogicalFamily() {
		if v, ok := foldFloatOp(n.Op, lf, rf); ok {
			o.stats.ConstantsFolded++
			return ast.NewRealLit(n.Position(), v, false)
		}
	}

	ls, lIsStr := n.Left.(*ast.StrLit)
	rs, rIsStr := n.Right.(*ast.StrLit)
	if n.Op == ast.OpAdd && lIsStr && rIsStr {
		o.stats.ConstantsFolded++
		return ast.NewStrLit(n.Position(), ls.Value+rs.Value)
	}

	return n
}

// identity recognizes algebraic simplifications that don't require both
// operands to be constant: x+0, 0+x, x-0, x*1, 1*x, x*0, 0*x, x/1.
func (o *optimizer) identity(n *ast.Binary) ast.Expression {
	switch n.Op {
	case ast.OpAdd:
		if isZero(n.Right) {
			return n.Left
		}
		if isZero(n.Left) {
			return n.Right
		}
	case ast.OpSub:
		if isZero(n.Right) {
			return n.Left
		}
	case ast.OpMul:
		if isOne(n.Right) {
			return n.Left
		}
		if isOne(n.Left) {
			return n.Right
		}
		if isZero(n.Right) || isZero(n.Left) {
			return ast.NewIntLit(n.Position(), 0)
		}
	case ast.OpDiv, ast.OpIntDiv:
		if isOne(n.Right) {
			return n.Left
		}
	}
	return nil
}

func isZero(e ast.Expression) bool {
	switch v := e.(type) {
	case *ast.IntLit:
		return v.Value == 0
	case *ast.RealLit:
		return v.Value == 0
	}
	return false
}

func isOne(e ast.Expression) bool {
	switch v := e.(type) {
	case *ast.IntLit:
		return v.Value == 1
	case *ast.RealLit:
		return v.Value == 1
	}
	return false
}

func numericValue(e ast.Expression) (float64, bool) {
	switch v := e.(type) {
	case *ast.IntLit:
		return float64(v.Value), true
	case *ast.RealLit:
		return v.Value, true
	}
	return 0, false
}

func foldIntOp(op ast.BinaryOp, l, r int64) (int64, bool) {
	switch op {
	case ast.OpAdd:
		return l + r, true
	case ast.OpSub:
		return l - r, true
	case ast.OpMul:
		return l * r, true
	case ast.OpIntDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case ast.OpMod:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case ast.OpAnd:
		return l & r, true
	case ast.OpOr:
		return l | r, true
	case ast.OpXor:
		return l ^ r, true
	case ast.OpEq:
		return boolInt(l == r), true
	case ast.OpNe:
		return boolInt(l != r), true
	case ast.OpLt:
		return boolInt(l < r), true
	case ast.OpLe:
		return boolInt(l <= r), true
	case ast.OpGt:
		return boolInt(l > r), true
	case ast.OpGe:
		return boolInt(l >= r), true
	default:
		return 0, false
	}
}

func foldFloatOp(op ast.BinaryOp, l, r float64) (float64, bool) {
	switch op {
	case ast.OpAdd:
		return l + r, true
	case ast.OpSub:
		return l - r, true
	case ast.OpMul:
		return l * r, true
	case ast.OpDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case ast.OpPow:
		return math.Pow(l, r), true
	default:
		return 0, false
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
