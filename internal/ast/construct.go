// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package ast

import "github.com/thistle-lang/thistle/internal/token"

// Constructors for expression nodes. ExprBase's type tag stays
// unexported so every mutation goes through SetType; these constructors
// are how the parser and the AST optimizer build or rebuild nodes from
// outside the package.

func NewIntLit(pos token.Position, v int64) *IntLit {
	return &IntLit{ExprBase: NewExprBase(pos, ValueInteger), Value: v}
}

func NewRealLit(pos token.Position, v float64, single bool) *RealLit {
	t := ValueDouble
	if single {
		t = ValueSingle
	}
	return &RealLit{ExprBase: NewExprBase(pos, t), Value: v, Single: single}
}

func NewStrLit(pos token.Position, v string) *StrLit {
	return &StrLit{ExprBase: NewExprBase(pos, ValueString), Value: v}
}

func NewVar(pos token.Position, name string, suffix token.Suffix) *Var {
	return &Var{ExprBase: NewExprBase(pos, suffixType(suffix)), Name: name, Suffix: suffix}
}

func NewArrayRef(pos token.Position, name string, suffix token.Suffix, indices []Expression) *ArrayRef {
	return &ArrayRef{ExprBase: NewExprBase(pos, suffixType(suffix)), Name: name, Suffix: suffix, Indices: indices}
}

func NewUnary(pos token.Position, op UnaryOp, expr Expression) *Unary {
	return &Unary{ExprBase: NewExprBase(pos, ValueUnknown), Op: op, Expr: expr}
}

func NewBinary(pos token.Position, op BinaryOp, left, right Expression) *Binary {
	return &Binary{ExprBase: NewExprBase(pos, ValueUnknown), Op: op, Left: left, Right: right}
}

func NewFnCall(pos token.Position, name string, args []Expression, resolved FnCallKind) *FnCall {
	return &FnCall{ExprBase: NewExprBase(pos, ValueUnknown), Name: name, Args: args, Resolved: resolved}
}

func NewConstRef(pos token.Position, name string, index int) *ConstRef {
	return &ConstRef{ExprBase: NewExprBase(pos, ValueUnknown), Name: name, Index: index}
}

// suffixType infers the default type implied by a type-suffix
// character, used before semantic analysis has run: first use
// implicitly declares a variable with a type inferred from its
// identifier suffix.
func suffixType(s token.Suffix) ValueType {
	switch s {
	case token.StringSuffix:
		return ValueString
	case token.IntSuffix:
		return ValueInteger
	case token.DoubleSuffix:
		return ValueDouble
	case token.SingleSuffix:
		return ValueSingle
	default:
		return ValueUnknown
	}
}

// Statement constructors. Simple statements get one here; statements
// with many optional fields (If, For, Select, SubDecl, ...) are built
// by the parser as struct literals directly using the exported
// StmtBase field and NewStmtBase.

func NewLabel(pos token.Position, name string) *Label {
	return &Label{StmtBase: NewStmtBase(pos), Name: name}
}

func NewAssign(pos token.Position, target, value Expression) *Assign {
	return &Assign{StmtBase: NewStmtBase(pos), Target: target, Value: value}
}

func NewGoto(pos token.Position, label string) *Goto {
	return &Goto{StmtBase: NewStmtBase(pos), Label: label}
}

func NewGosub(pos token.Position, label string) *Gosub {
	return &Gosub{StmtBase: NewStmtBase(pos), Label: label}
}

func NewReturn(pos token.Position, value Expression) *Return {
	return &Return{StmtBase: NewStmtBase(pos), Value: value}
}

func NewExit(pos token.Position, kind ExitKind) *Exit {
	return &Exit{StmtBase: NewStmtBase(pos), Kind: kind}
}

func NewRem(pos token.Position) *Rem {
	return &Rem{StmtBase: NewStmtBase(pos)}
}

func NewEnd(pos token.Position) *End {
	return &End{StmtBase: NewStmtBase(pos)}
}

func NewCall(pos token.Position, name string, args []Expression) *Call {
	return &Call{StmtBase: NewStmtBase(pos), Name: name, Args: args}
}

func NewCommandInvocation(pos token.Position, name string, args []Expression) *CommandInvocation {
	return &CommandInvocation{StmtBase: NewStmtBase(pos), Name: name, Args: args}
}
