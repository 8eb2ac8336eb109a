// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package ast

import "github.com/thistle-lang/thistle/internal/token"

// BinaryOp enumerates binary operators, spanning arithmetic, comparison,
// and the logical/bitwise family whose meaning is governed by
// CompilerOptions.Bitwise.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpIntDiv // '\' integer division
	OpMod
	OpPow

	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	OpAnd
	OpOr
	OpNot // unary, listed here for precedence-table symmetry only
	OpXor
	OpEqv
	OpImp
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpIntDiv:
		return "\\"
	case OpMod:
		return "MOD"
	case OpPow:
		return "^"
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpNot:
		return "NOT"
	case OpXor:
		return "XOR"
	case OpEqv:
		return "EQV"
	case OpImp:
		return "IMP"
	default:
		return "?"
	}
}

// IsComparison reports whether op is one of the six comparison operators.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// IsLogicalFamily reports whether op is one of AND/OR/XOR/EQV/IMP, whose
// meaning (bitwise vs. boolean) depends on CompilerOptions.Bitwise.
func (op BinaryOp) IsLogicalFamily() bool {
	return op == OpAnd || op == OpOr || op == OpXor || op == OpEqv || op == OpImp
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

// IntLit is an integer literal.
type IntLit struct {
	ExprBase
	Value int64
}

// RealLit is a floating-point literal.
type RealLit struct {
	ExprBase
	Value  float64
	Single bool // carries a '!' suffix in source, e.g. 1.5!
}

// StrLit is a string literal.
type StrLit struct {
	ExprBase
	Value string
}

// Var is a reference to a scalar variable.
type Var struct {
	ExprBase
	Name   string // identifier without suffix
	Suffix token.Suffix
}

// FullName returns the identifier including its type suffix, the form
// used as the symbol table key.
func (v *Var) FullName() string {
	if v.Suffix == token.NoSuffix {
		return v.Name
	}
	return v.Name + v.Suffix.String()
}

// ArrayRef is a reference to one element of an array variable.
type ArrayRef struct {
	ExprBase
	Name    string
	Suffix  token.Suffix
	Indices []Expression
}

func (a *ArrayRef) FullName() string {
	if a.Suffix == token.NoSuffix {
		return a.Name
	}
	return a.Name + a.Suffix.String()
}

// Unary is a unary operator expression.
type Unary struct {
	ExprBase
	Op   UnaryOp
	Expr Expression
}

// Binary is a binary operator expression.
type Binary struct {
	ExprBase
	Op          BinaryOp
	Left, Right Expression
}

// FnCallKind classifies what a call-shaped expression `name(args)`
// ultimately resolves to. The parser cannot always tell an array
// reference from a function call without seeing every DIM in the
// program (BASIC permits array use before its DIM), so it resolves the
// easy case (name was already DIM'd earlier in the same parse) to
// [ArrayRef] directly and leaves everything else as FnCall with
// Resolved == FnCallUnresolved; the semantic analyzer's pass 2 fills
// in Resolved once the full symbol table (built in pass 1) is
// available, re-routing genuine forward-declared array uses to array
// IR generation without needing to replace the node.
type FnCallKind int

const (
	FnCallUnresolved FnCallKind = iota
	FnCallUserSub
	FnCallUserFunction
	FnCallRegistry
	FnCallArray // name actually names an array; Args are indices
)

// FnCall is a call to either a user-defined SUB/FUNCTION/DEF FN or a
// registered command/function used in expression position.
type FnCall struct {
	ExprBase
	Name     string
	Args     []Expression
	Resolved FnCallKind
}

// ConstRef is a reference to a resolved compile-time constant, replacing
// an identifier token whose name matched the constants store during
// parsing.
type ConstRef struct {
	ExprBase
	Name  string
	Index int
}
