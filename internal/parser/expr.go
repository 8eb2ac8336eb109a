// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package parser

import (
	"strconv"
	"strings"

	"github.com/thistle-lang/thistle/internal/ast"
	"github.com/thistle-lang/thistle/internal/token"
)

// parseExpression is the entry point of the precedence-climbing
// ladder, grounded in a Lua parser's operatorPrecedence table (adapted
// from Lua's arithmetic/relational/concat ladder to BASIC's
// IMP/EQV/OR/XOR/AND/NOT/comparison/additive/multiplicative/power
// ladder).
func (p *Parser) parseExpression() ast.Expression {
	return p.parseImp()
}

func (p *Parser) parseImp() ast.Expression {
	left := p.parseEqv()
	for p.at(token.KwImp) {
		pos := p.advance().Pos
		right := p.parseEqv()
		left = ast.NewBinary(pos, ast.OpImp, left, right)
	}
	return left
}

func (p *Parser) parseEqv() ast.Expression {
	left := p.parseOr()
	for p.at(token.KwEqv) {
		pos := p.advance().Pos
		right := p.parseOr()
		left = ast.NewBinary(pos, ast.OpEqv, left, right)
	}
	return left
}

func (p *Parser) parseOr() ast.Expression {
	left := p.parseAnd()
	for p.atAny(token.KwOr, token.KwXor) {
		op := ast.OpOr
		if p.at(token.KwXor) {
			op = ast.OpXor
		}
		pos := p.advance().Pos
		right := p.parseAnd()
		left = ast.NewBinary(pos, op, left, right)
	}
	return left
}

func (p *Parser) parseAnd() ast.Expression {
	left := p.parseNot()
	for p.at(token.KwAnd) {
		pos := p.advance().Pos
		right := p.parseNot()
		left = ast.NewBinary(pos, ast.OpAnd, left, right)
	}
	return left
}

// parseNot handles the prefix NOT operator, which binds tighter than
// AND but looser than comparisons, so `NOT a = b` parses as
// `NOT (a = b)`.
func (p *Parser) parseNot() ast.Expression {
	if p.at(token.KwNot) {
		pos := p.advance().Pos
		operand := p.parseNot()
		return ast.NewUnary(pos, ast.UnaryNot, operand)
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() ast.Expression {
	left := p.parseAdditive()
	for {
		var op ast.BinaryOp
		switch p.cur().Kind {
		case token.Equal:
			op = ast.OpEq
		case token.NotEqual:
			op = ast.OpNe
		case token.Less:
			op = ast.OpLt
		case token.LessEqual:
			op = ast.OpLe
		case token.Greater:
			op = ast.OpGt
		case token.GreaterEqual:
			op = ast.OpGe
		default:
			return left
		}
		pos := p.advance().Pos
		right := p.parseAdditive()
		left = ast.NewBinary(pos, op, left, right)
	}
}

func (p *Parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for p.atAny(token.Plus, token.Minus) {
		op := ast.OpAdd
		if p.at(token.Minus) {
			op = ast.OpSub
		}
		pos := p.advance().Pos
		right := p.parseMultiplicative()
		left = ast.NewBinary(pos, op, left, right)
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expression {
	left := p.parsePower()
	for p.atAny(token.Star, token.Slash, token.KwMod, token.Backslash) {
		var op ast.BinaryOp
		switch p.cur().Kind {
		case token.Star:
			op = ast.OpMul
		case token.Slash:
			op = ast.OpDiv
		case token.KwMod:
			op = ast.OpMod
		case token.Backslash:
			op = ast.OpIntDiv
		}
		pos := p.advance().Pos
		right := p.parsePower()
		left = ast.NewBinary(pos, op, left, right)
	}
	return left
}

// parsePower binds unary-minus operands (via parseUnary) with '^' being
// right-associative; note that unary minus binds tighter than power,
// so `-2^2` parses as `(-2)^2`.
func (p *Parser) parsePower() ast.Expression {
	left := p.parseUnary()
	if p.at(token.Caret) {
		pos := p.advance().Pos
		right := p.parsePower()
		return ast.NewBinary(pos, ast.OpPow, left, right)
	}
	return left
}

func (p *Parser) parseUnary() ast.Expression {
	if p.at(token.Minus) {
		pos := p.advance().Pos
		operand := p.parseUnary()
		return ast.NewUnary(pos, ast.UnaryNeg, operand)
	}
	if p.at(token.Plus) {
		p.advance()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Expression {
	t := p.cur()
	switch t.Kind {
	case token.IntLiteral:
		p.advance()
		n, _ := strconv.ParseInt(t.Value, 10, 64)
		return ast.NewIntLit(t.Pos, n)
	case token.RealLiteral:
		p.advance()
		f, _ := strconv.ParseFloat(t.Value, 64)
		return ast.NewRealLit(t.Pos, f, false)
	case token.StringLiteral:
		p.advance()
		return ast.NewStrLit(t.Pos, t.Value)
	case token.LParen:
		p.advance()
		e := p.parseExpression()
		p.expect(token.RParen, "')'")
		return e
	case token.Identifier:
		return p.parseIdentifierExpr()
	case token.Command:
		return p.parseCommandExpr()
	default:
		p.errorf("expected expression")
		p.recover()
		return ast.NewIntLit(t.Pos, 0)
	}
}

// parseIdentifierExpr parses a bare identifier, a constant reference, a
// Var, an ArrayRef (for already-DIM'd names), or a forward-referenced
// FnCall (array or function, resolved later by semantic analysis).
func (p *Parser) parseIdentifierExpr() ast.Expression {
	t := p.advance()
	name := t.Value
	suffix := t.Suffix

	if idx, ok := p.consts.Lookup(name); ok && suffix == token.NoSuffix {
		return ast.NewConstRef(t.Pos, strings.ToUpper(name), idx)
	}

	if !p.at(token.LParen) {
		return ast.NewVar(t.Pos, name, suffix)
	}

	p.advance() // '('
	var args []ast.Expression
	if !p.at(token.RParen) {
		args = append(args, p.parseExpression())
		for p.at(token.Comma) {
			p.advance()
			args = append(args, p.parseExpression())
		}
	}
	p.expect(token.RParen, "')'")

	full := name + suffix.String()
	if p.dimmed.Has(strings.ToUpper(full)) {
		return ast.NewArrayRef(t.Pos, name, suffix, args)
	}
	return ast.NewFnCall(t.Pos, name, args, ast.FnCallUnresolved)
}

// parseCommandExpr parses a registered-function call in expression
// position, e.g. CHR$(65). The arguments are kept as written: omitted
// optional arguments are not filled in with their registry defaults.
func (p *Parser) parseCommandExpr() ast.Expression {
	t := p.advance()
	name := t.Value
	var args []ast.Expression
	if p.at(token.LParen) {
		p.advance()
		if !p.at(token.RParen) {
			args = append(args, p.parseExpression())
			for p.at(token.Comma) {
				p.advance()
				args = append(args, p.parseExpression())
			}
		}
		p.expect(token.RParen, "')'")
	}
	return ast.NewFnCall(t.Pos, name, args, ast.FnCallRegistry)
}
