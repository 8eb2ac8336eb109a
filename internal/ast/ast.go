// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

// Package ast defines the abstract syntax tree produced by the
// parser: tagged-variant Statement and Expression families and a
// containing Program, modeling inheritance as closed sum types (an
// interface with an unexported marker method) dispatched by type switch
// rather than by virtual methods. The
// node layout is grounded in a Lua compiler's Prototype/Instruction
// enumerated-kind shape, adapted from bytecode instructions to a
// syntax tree.
package ast

import "github.com/thistle-lang/thistle/internal/token"

// Program is the root of an AST: a flat, ordered statement sequence.
// BASIC line structure (line numbers, colon-separated clauses) only
// matters for diagnostics, which cite BASIC lines via the preprocessor's
// line mapping rather than via AST shape; [Label] statements mark the
// positions numeric branch targets and named labels resolve to.
type Program struct {
	Statements []Statement
	Options    CompilerOptions
}

// CompilerOptions records the OPTION directives collected while
// parsing. These are consulted by semantic analysis and every
// downstream phase.
type CompilerOptions struct {
	Base     int // OPTION BASE 0 or 1; defaults to 0.
	Explicit bool
	Unicode  bool
	Bitwise  bool // true: OPTION BITWISE; false (default): OPTION LOGICAL.
}

// Node is implemented by every AST node, statement or expression.
type Node interface {
	Position() token.Position
}

// Base embeds the source position common to every node.
type Base struct {
	Pos token.Position
}

func (b Base) Position() token.Position { return b.Pos }

// Statement is implemented by every statement variant. The unexported
// statementNode marker closes the set of variants to this package;
// callers dispatch on the concrete type with a type switch.
type Statement interface {
	Node
	statementNode()
}

// Expression is implemented by every expression variant.
type Expression interface {
	Node
	expressionNode()
	// Type returns the statically known type of the expression if one
	// has been resolved by semantic analysis, or ValueUnknown before
	// that pass runs.
	Type() ValueType
	SetType(ValueType)
}

// ValueType is the type a BASIC expression or variable carries. This is
// deliberately coarser than registry.ParamType: it distinguishes
// concrete scalar types plus Unknown (pre-analysis) and Array.
type ValueType int

const (
	ValueUnknown ValueType = iota
	ValueInteger
	ValueDouble
	ValueSingle
	ValueString
	ValueArray
)

func (t ValueType) String() string {
	switch t {
	case ValueInteger:
		return "integer"
	case ValueDouble:
		return "double"
	case ValueSingle:
		return "single"
	case ValueString:
		return "string"
	case ValueArray:
		return "array"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether t is one of the numeric scalar types.
func (t ValueType) IsNumeric() bool {
	return t == ValueInteger || t == ValueDouble || t == ValueSingle
}

// ExprBase is embedded by every Expression implementation to carry
// position and resolved type. Construct one with [NewExprBase]; the
// type tag stays unexported so every mutation goes through SetType.
type ExprBase struct {
	Base
	typ ValueType
}

// NewExprBase returns an ExprBase at pos with initial type t.
func NewExprBase(pos token.Position, t ValueType) ExprBase {
	return ExprBase{Base: Base{Pos: pos}, typ: t}
}

func (e *ExprBase) expressionNode()     {}
func (e *ExprBase) Type() ValueType     { return e.typ }
func (e *ExprBase) SetType(t ValueType) { e.typ = t }

// StmtBase is embedded by every Statement implementation.
type StmtBase struct {
	Base
}

// NewStmtBase returns a StmtBase at pos.
func NewStmtBase(pos token.Position) StmtBase {
	return StmtBase{Base: Base{Pos: pos}}
}

func (s StmtBase) statementNode() {}
