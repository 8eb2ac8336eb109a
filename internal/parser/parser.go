// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

// Package parser implements the recursive-descent, precedence-climbing
// parser: tokens to a typed [ast.Program]. The parser consults the
// command registry to resolve call-position names and the constants
// store to replace identifier tokens naming a constant with an
// [ast.ConstRef]. The scope/struct discipline —
// a single parser struct carrying position plus explicit open/close
// around nested constructs — is grounded in a Lua parser's
// openFunction/closeFunction pairing around SUB/FUNCTION/DEF FN
// bodies, here standing in for Lua function bodies.
package parser

import (
	"strings"

	"github.com/thistle-lang/thistle/internal/ast"
	"github.com/thistle-lang/thistle/internal/constants"
	"github.com/thistle-lang/thistle/internal/diag"
	"github.com/thistle-lang/thistle/internal/registry"
	"github.com/thistle-lang/thistle/internal/token"
	"github.com/thistle-lang/thistle/internal/xsets"
)

// Parser holds all state needed to parse one token stream into an AST.
type Parser struct {
	toks []token.Token
	pos  int

	reg    *registry.Registry
	consts *constants.Store
	lm     *token.LineMap
	diags  *diag.List

	opts ast.CompilerOptions

	dimmed  xsets.Set[string] // names seen in a DIM/REDIM so far
	include xsets.Set[string] // INCLUDE ONCE visited set

	// loadInclude resolves an INCLUDE "path" directive to source text.
	// nil disables INCLUDE support (the default driver wires a real
	// filesystem loader; tests typically leave this nil).
	loadInclude func(path string) (string, error)
}

// New returns a Parser over toks.
func New(toks []token.Token, reg *registry.Registry, consts *constants.Store, lm *token.LineMap) *Parser {
	return &Parser{
		toks:    toks,
		reg:     reg,
		consts:  consts,
		lm:      lm,
		diags:   &diag.List{},
		dimmed:  xsets.New[string](),
		include: xsets.New[string](),
	}
}

// SetIncludeLoader installs the callback used to resolve INCLUDE "path"
// directives. Without one, INCLUDE is a syntax error.
func (p *Parser) SetIncludeLoader(f func(path string) (string, error)) {
	p.loadInclude = f
}

// Parse parses the entire token stream. It returns the best-effort AST
// always, and ok == true only when no syntax errors were recorded: the
// caller gets the AST either way but is told whether to trust it.
func (p *Parser) Parse() (*ast.Program, bool) {
	prog := &ast.Program{}
	stmts, _ := p.parseStatementList()
	prog.Statements = stmts
	prog.Options = p.opts
	return prog, !p.diags.HasErrors()
}

// Diagnostics returns every diagnostic recorded while parsing.
func (p *Parser) Diagnostics() []diag.Diagnostic { return p.diags.All() }

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peek(n int) token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[i]
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) atAny(ks ...token.Kind) bool {
	c := p.cur().Kind
	for _, k := range ks {
		if c == k {
			return true
		}
	}
	return false
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) errorf(format string, args ...any) {
	p.diags.Add(diag.SyntaxError, p.lm, p.cur().Pos, format, args...)
}

// expect consumes a token of kind k, recording a syntax error and
// leaving the cursor in place if the current token does not match.
func (p *Parser) expect(k token.Kind, what string) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.errorf("expected %s", what)
	return token.Token{}, false
}

// recover advances past tokens until the next statement separator
// (Colon), line boundary (EOL), or EOF.
func (p *Parser) recover() {
	for !p.atAny(token.Colon, token.EOL, token.EOF) {
		p.advance()
	}
}

// parseStatementList parses statements across lines until a token
// matching one of terms is seen at statement-start position (which is
// then consumed), or EOF is reached (returned as token.EOF).
func (p *Parser) parseStatementList(terms ...token.Kind) ([]ast.Statement, token.Kind) {
	var stmts []ast.Statement
	for {
		for p.at(token.EOL) {
			p.advance()
		}
		if p.at(token.EOF) {
			return stmts, token.EOF
		}
		p.consumeLineHeader(&stmts)
		if p.atAny(terms...) {
			term := p.cur().Kind
			p.advance()
			return stmts, term
		}
		for {
			if p.atAny(terms...) {
				term := p.cur().Kind
				p.advance()
				return stmts, term
			}
			if p.at(token.EOL) || p.at(token.EOF) {
				break
			}
			before := p.pos
			stmts = append(stmts, p.parseStatement()...)
			if p.pos == before {
				// Guard against infinite loops on unparseable input.
				p.advance()
			}
			if p.at(token.Colon) {
				p.advance()
				continue
			}
			break
		}
	}
}

// consumeLineHeader consumes a leading BASIC line-number literal (lexed
// as a plain IntLiteral at the start of a logical line) and/or a
// `name:` label definition, appending an [ast.Label] statement for the
// latter.
func (p *Parser) consumeLineHeader(stmts *[]ast.Statement) {
	if p.at(token.IntLiteral) && (p.peek(1).Kind == token.Identifier || p.peek(1).Kind == token.Command ||
		isLineHeaderFollower(p.peek(1).Kind)) {
		p.advance()
	}
	if p.at(token.Identifier) && p.peek(1).Kind == token.Colon {
		t := p.advance()
		p.advance() // ':'
		*stmts = append(*stmts, ast.NewLabel(t.Pos, strings.ToUpper(t.Value)))
	}
}

// atStatementEnd reports whether the cursor sits at a statement
// boundary: a colon-separated clause end, a line end, or EOF.
func (p *Parser) atStatementEnd() bool {
	return p.atAny(token.Colon, token.EOL, token.EOF)
}

// parseInlineStatements parses colon-separated statements on the current
// logical line only, stopping (without crossing EOL) at EOF, EOL, or the
// first token matching one of stops, which is consumed. The stop kind
// reached is returned as token.EOF when none of stops matched (i.e. the
// line simply ended).
func (p *Parser) parseInlineStatements(stops ...token.Kind) ([]ast.Statement, token.Kind) {
	var stmts []ast.Statement
	for {
		if p.atAny(stops...) {
			k := p.cur().Kind
			p.advance()
			return stmts, k
		}
		if p.at(token.EOL) || p.at(token.EOF) {
			return stmts, token.EOF
		}
		before := p.pos
		stmts = append(stmts, p.parseStatement()...)
		if p.pos == before {
			p.advance()
		}
		if p.at(token.Colon) {
			p.advance()
			continue
		}
		if p.atAny(stops...) {
			continue
		}
		return stmts, token.EOF
	}
}

// parseExprList parses a non-empty comma-separated expression list.
func (p *Parser) parseExprList() []ast.Expression {
	args := []ast.Expression{p.parseExpression()}
	for p.at(token.Comma) {
		p.advance()
		args = append(args, p.parseExpression())
	}
	return args
}

// parseLValue parses an assignment/READ/INPUT target: a scalar Var or,
// when followed by an index list, an ArrayRef. Seeing an index list here
// is treated as sufficient evidence the name is an array, same as a DIM.
func (p *Parser) parseLValue() ast.Expression {
	t, ok := p.expect(token.Identifier, "variable")
	if !ok {
		return ast.NewVar(t.Pos, "", token.NoSuffix)
	}
	if !p.at(token.LParen) {
		return ast.NewVar(t.Pos, t.Value, t.Suffix)
	}
	p.advance()
	var args []ast.Expression
	if !p.at(token.RParen) {
		args = p.parseExprList()
	}
	p.expect(token.RParen, "')'")
	p.dimmed.Add(strings.ToUpper(t.Value + t.Suffix.String()))
	return ast.NewArrayRef(t.Pos, t.Value, t.Suffix, args)
}

// parseCompareOp consumes one comparison operator token, used by CASE IS.
func (p *Parser) parseCompareOp() ast.BinaryOp {
	switch p.cur().Kind {
	case token.Equal:
		p.advance()
		return ast.OpEq
	case token.NotEqual:
		p.advance()
		return ast.OpNe
	case token.Less:
		p.advance()
		return ast.OpLt
	case token.LessEqual:
		p.advance()
		return ast.OpLe
	case token.Greater:
		p.advance()
		return ast.OpGt
	case token.GreaterEqual:
		p.advance()
		return ast.OpGe
	default:
		p.errorf("expected comparison operator")
		return ast.OpEq
	}
}

// generatedLabelLineNumber reports whether name is a label the
// preprocessor generated for a numeric branch target (form "L<n>"),
// returning the encoded line number.
func generatedLabelLineNumber(name string) (int, bool) {
	if len(name) < 2 || (name[0] != 'L' && name[0] != 'l') {
		return 0, false
	}
	n := 0
	for i := 1; i < len(name); i++ {
		c := name[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// isLineHeaderFollower reports whether k is a token kind that may
// legitimately follow a bare line number at the start of a line (i.e.
// essentially any statement-starting keyword). We accept broadly here
// since the alternative (a numeral used as a standalone expression
// statement) is not valid BASIC.
func isLineHeaderFollower(k token.Kind) bool {
	return k != token.EOL && k != token.EOF
}
