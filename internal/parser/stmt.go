// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package parser

import (
	"strings"

	"github.com/thistle-lang/thistle/internal/ast"
	"github.com/thistle-lang/thistle/internal/diag"
	"github.com/thistle-lang/thistle/internal/lex"
	"github.com/thistle-lang/thistle/internal/token"
)

// parseStatement parses one statement at the current position, dispatched
// on the leading token kind. Most statements are one-to-one with a
// single returned node; DIM/REDIM/ERASE may declare several names at
// once and so return more than one. A parse error leaves a best-effort
// node in place and recovers to the next statement boundary.
func (p *Parser) parseStatement() []ast.Statement {
	switch p.cur().Kind {
	case token.KwRem:
		pos := p.advance().Pos
		return []ast.Statement{ast.NewRem(pos)}
	case token.KwEnd:
		pos := p.advance().Pos
		return []ast.Statement{ast.NewEnd(pos)}
	case token.KwLet:
		p.advance()
		return []ast.Statement{p.parseAssignOrCall()}
	case token.Identifier:
		return []ast.Statement{p.parseAssignOrCall()}
	case token.Command:
		return []ast.Statement{p.parseCommandStatement()}
	case token.KwCall:
		return []ast.Statement{p.parseCall()}
	case token.KwPrint:
		return []ast.Statement{p.parsePrint()}
	case token.KwInput:
		return []ast.Statement{p.parseInput()}
	case token.KwLineInput:
		return []ast.Statement{p.parseLineInput()}
	case token.KwIf:
		return []ast.Statement{p.parseIf()}
	case token.KwFor:
		return []ast.Statement{p.parseFor()}
	case token.KwWhile:
		return []ast.Statement{p.parseWhile()}
	case token.KwRepeat:
		return []ast.Statement{p.parseRepeat()}
	case token.KwDo:
		return []ast.Statement{p.parseDo()}
	case token.KwSelect:
		return []ast.Statement{p.parseSelect()}
	case token.KwGoto, token.KwGoToCompound:
		pos := p.advance().Pos
		t, _ := p.expect(token.Identifier, "label")
		return []ast.Statement{ast.NewGoto(pos, strings.ToUpper(t.Value))}
	case token.KwGoSub:
		pos := p.advance().Pos
		t, _ := p.expect(token.Identifier, "label")
		return []ast.Statement{ast.NewGosub(pos, strings.ToUpper(t.Value))}
	case token.KwReturn:
		pos := p.advance().Pos
		var val ast.Expression
		if !p.atStatementEnd() {
			val = p.parseExpression()
		}
		return []ast.Statement{ast.NewReturn(pos, val)}
	case token.KwOn:
		return []ast.Statement{p.parseOnGoto()}
	case token.KwRead:
		return []ast.Statement{p.parseRead()}
	case token.KwRestore:
		return []ast.Statement{p.parseRestore()}
	case token.KwDim, token.KwRedim, token.KwErase:
		return p.parseDim()
	case token.KwSub:
		return []ast.Statement{p.parseSubDecl()}
	case token.KwFunction:
		return []ast.Statement{p.parseFunctionDecl()}
	case token.KwDefFn:
		return []ast.Statement{p.parseDefFn()}
	case token.KwOpen:
		return []ast.Statement{p.parseOpen()}
	case token.KwClose:
		return []ast.Statement{p.parseClose()}
	case token.KwAfter, token.KwEvery:
		return []ast.Statement{p.parseTimerRegister()}
	case token.KwStopTimer:
		return []ast.Statement{p.parseStopTimer()}
	case token.KwExitFor:
		pos := p.advance().Pos
		return []ast.Statement{ast.NewExit(pos, ast.ExitFor)}
	case token.KwExitDo:
		pos := p.advance().Pos
		return []ast.Statement{ast.NewExit(pos, ast.ExitDo)}
	case token.KwExitWhile:
		pos := p.advance().Pos
		return []ast.Statement{ast.NewExit(pos, ast.ExitWhile)}
	case token.KwExitSub:
		pos := p.advance().Pos
		return []ast.Statement{ast.NewExit(pos, ast.ExitSub)}
	case token.KwExitFunction:
		pos := p.advance().Pos
		return []ast.Statement{ast.NewExit(pos, ast.ExitFunction)}
	case token.KwOption:
		return []ast.Statement{p.parseOption()}
	case token.KwBase:
		// "OPTION BASE n" lexes as a single compound KwBase token (the
		// lexer's compoundKeywords table folds OPTION away entirely),
		// unlike OPTION EXPLICIT/UNICODE/BITWISE/LOGICAL which stay two
		// tokens, so it needs its own entry point here.
		return []ast.Statement{p.parseOptionBase()}
	case token.KwInclude:
		return p.parseInclude()
	default:
		p.errorf("unexpected token in statement")
		p.recover()
		return nil
	}
}

// parseAssignOrCall disambiguates a statement starting with a bare
// identifier: an assignment (scalar or array element) if '=' follows
// (possibly after an index list), otherwise a call to a user SUB written
// without the CALL keyword, BASIC's classic command-invocation style.
func (p *Parser) parseAssignOrCall() ast.Statement {
	t := p.advance()
	name, suffix := t.Value, t.Suffix

	if p.at(token.LParen) {
		p.advance()
		var args []ast.Expression
		if !p.at(token.RParen) {
			args = p.parseExprList()
		}
		p.expect(token.RParen, "')'")
		if p.at(token.Equal) {
			p.advance()
			p.dimmed.Add(strings.ToUpper(name + suffix.String()))
			target := ast.NewArrayRef(t.Pos, name, suffix, args)
			value := p.parseExpression()
			return ast.NewAssign(t.Pos, target, value)
		}
		return ast.NewCall(t.Pos, name, args)
	}

	if p.at(token.Equal) {
		p.advance()
		value := p.parseExpression()
		return ast.NewAssign(t.Pos, ast.NewVar(t.Pos, name, suffix), value)
	}

	var args []ast.Expression
	if !p.atStatementEnd() {
		args = p.parseExprList()
	}
	return ast.NewCall(t.Pos, name, args)
}

// parseCommandStatement parses a registered-command invocation in
// statement position, accepting either parenthesized or bare
// space/comma-separated arguments.
func (p *Parser) parseCommandStatement() ast.Statement {
	t := p.advance()
	var args []ast.Expression
	if p.at(token.LParen) {
		p.advance()
		if !p.at(token.RParen) {
			args = p.parseExprList()
		}
		p.expect(token.RParen, "')'")
	} else if !p.atStatementEnd() {
		args = p.parseExprList()
	}
	return ast.NewCommandInvocation(t.Pos, t.Value, args)
}

func (p *Parser) parseCall() ast.Statement {
	pos := p.advance().Pos
	var name string
	switch p.cur().Kind {
	case token.Identifier, token.Command:
		name = p.advance().Value
	default:
		p.errorf("expected name after CALL")
	}
	var args []ast.Expression
	if p.at(token.LParen) {
		p.advance()
		if !p.at(token.RParen) {
			args = p.parseExprList()
		}
		p.expect(token.RParen, "')'")
	}
	return ast.NewCall(pos, name, args)
}

func (p *Parser) parsePrint() ast.Statement {
	pos := p.advance().Pos
	stmt := &ast.Print{StmtBase: ast.NewStmtBase(pos)}
	if p.at(token.Hash) {
		p.advance()
		stmt.Channel = p.parseExpression()
		if p.at(token.Comma) {
			p.advance()
		}
	}
	for !p.atStatementEnd() {
		e := p.parseExpression()
		var sep byte
		switch p.cur().Kind {
		case token.Semicolon:
			sep = ';'
			p.advance()
		case token.Comma:
			sep = ','
			p.advance()
		}
		stmt.Items = append(stmt.Items, ast.PrintItem{Expr: e, Sep: sep})
		if sep == 0 {
			break
		}
		if p.atStatementEnd() {
			break
		}
	}
	return stmt
}

func (p *Parser) parseInput() ast.Statement {
	pos := p.advance().Pos
	stmt := &ast.Input{StmtBase: ast.NewStmtBase(pos)}
	if p.at(token.Hash) {
		p.advance()
		stmt.Channel = p.parseExpression()
		if p.at(token.Comma) {
			p.advance()
		}
	} else if p.at(token.StringLiteral) {
		prompt := p.cur().Value
		if p.peek(1).Kind == token.Semicolon || p.peek(1).Kind == token.Comma {
			stmt.Prompt = prompt
			p.advance()
			p.advance()
		}
	}
	stmt.Targets = append(stmt.Targets, p.parseLValue())
	for p.at(token.Comma) {
		p.advance()
		stmt.Targets = append(stmt.Targets, p.parseLValue())
	}
	return stmt
}

func (p *Parser) parseLineInput() ast.Statement {
	pos := p.advance().Pos
	stmt := &ast.LineInput{StmtBase: ast.NewStmtBase(pos)}
	if p.at(token.Hash) {
		p.advance()
		stmt.Channel = p.parseExpression()
		if p.at(token.Comma) {
			p.advance()
		}
	} else if p.at(token.StringLiteral) {
		prompt := p.cur().Value
		if p.peek(1).Kind == token.Semicolon {
			stmt.Prompt = prompt
			p.advance()
			p.advance()
		}
	}
	stmt.Target = p.parseLValue()
	return stmt
}

// isGeneratedLabelToken reports whether the current token is an
// identifier spelling a preprocessor-generated branch label ("L<n>").
func (p *Parser) isGeneratedLabelToken() (int, bool) {
	if !p.at(token.Identifier) {
		return 0, false
	}
	return generatedLabelLineNumber(p.cur().Value)
}

// parseIf parses both the single-line `IF e THEN s [ELSE s]` form and
// the block `IF...ELSEIF...ELSE...ENDIF` form, plus the implicit-GOTO
// shorthand the preprocessor's label rewrite produces for `IF e THEN
// <line>`: the rewritten generated label, seen bare before end of
// clause, means GOTO that label.
func (p *Parser) parseIf() ast.Statement {
	pos := p.advance().Pos
	cond := p.parseExpression()
	p.expect(token.KwThen, "'THEN'")

	if _, ok := p.isGeneratedLabelToken(); ok {
		next := p.peek(1).Kind
		if next == token.EOL || next == token.EOF || next == token.Colon {
			label := strings.ToUpper(p.advance().Value)
			arm := ast.IfArm{Cond: cond, Body: []ast.Statement{ast.NewGoto(pos, label)}}
			return &ast.If{StmtBase: ast.NewStmtBase(pos), Arms: []ast.IfArm{arm}, SingleLine: true}
		}
	}

	if p.at(token.EOL) || p.at(token.EOF) {
		return p.parseBlockIf(pos, cond)
	}

	thenBody, stop := p.parseInlineStatements(token.KwElse)
	arms := []ast.IfArm{{Cond: cond, Body: thenBody}}
	if stop == token.KwElse {
		elseBody, _ := p.parseInlineStatements()
		arms = append(arms, ast.IfArm{Cond: nil, Body: elseBody})
	}
	return &ast.If{StmtBase: ast.NewStmtBase(pos), Arms: arms, SingleLine: true}
}

func (p *Parser) parseBlockIf(pos token.Position, firstCond ast.Expression) ast.Statement {
	var arms []ast.IfArm
	cond := firstCond
	for {
		body, term := p.parseStatementList(token.KwElseif, token.KwElse, token.KwEndIf)
		arms = append(arms, ast.IfArm{Cond: cond, Body: body})
		switch term {
		case token.KwElseif:
			cond = p.parseExpression()
			p.expect(token.KwThen, "'THEN'")
			continue
		case token.KwElse:
			body2, term2 := p.parseStatementList(token.KwEndIf)
			arms = append(arms, ast.IfArm{Cond: nil, Body: body2})
			if term2 != token.KwEndIf {
				p.errorf("expected ENDIF")
			}
			return &ast.If{StmtBase: ast.NewStmtBase(pos), Arms: arms}
		default:
			if term != token.KwEndIf {
				p.errorf("expected ENDIF")
			}
			return &ast.If{StmtBase: ast.NewStmtBase(pos), Arms: arms}
		}
	}
}

func (p *Parser) parseFor() ast.Statement {
	pos := p.advance().Pos
	vt, _ := p.expect(token.Identifier, "loop variable")
	loopVar := ast.NewVar(vt.Pos, vt.Value, vt.Suffix)
	p.expect(token.Equal, "'='")
	from := p.parseExpression()
	p.expect(token.KwTo, "'TO'")
	to := p.parseExpression()
	var step ast.Expression
	if p.at(token.KwStep) {
		p.advance()
		step = p.parseExpression()
	}
	body, term := p.parseStatementList(token.KwNext)
	nextVar := ""
	if term == token.KwNext && p.at(token.Identifier) {
		nextVar = p.advance().Value
	}
	return &ast.For{StmtBase: ast.NewStmtBase(pos), Var: loopVar, From: from, To: to, Step: step, Body: body, NextVar: nextVar}
}

func (p *Parser) parseWhile() ast.Statement {
	pos := p.advance().Pos
	cond := p.parseExpression()
	body, _ := p.parseStatementList(token.KwWend)
	return &ast.While{StmtBase: ast.NewStmtBase(pos), Cond: cond, Body: body}
}

func (p *Parser) parseRepeat() ast.Statement {
	pos := p.advance().Pos
	body, _ := p.parseStatementList(token.KwUntil)
	cond := p.parseExpression()
	return &ast.RepeatLoop{StmtBase: ast.NewStmtBase(pos), Body: body, Cond: cond}
}

func (p *Parser) parseDo() ast.Statement {
	pos := p.advance().Pos
	kind := ast.DoPlain
	var cond ast.Expression
	switch p.cur().Kind {
	case token.KwWhile:
		p.advance()
		cond = p.parseExpression()
		kind = ast.DoPreWhile
	case token.KwUntil:
		p.advance()
		cond = p.parseExpression()
		kind = ast.DoPreUntil
	}
	body, _ := p.parseStatementList(token.KwLoop)
	if kind == ast.DoPlain {
		switch p.cur().Kind {
		case token.KwWhile:
			p.advance()
			cond = p.parseExpression()
			kind = ast.DoPostWhile
		case token.KwUntil:
			p.advance()
			cond = p.parseExpression()
			kind = ast.DoPostUntil
		}
	}
	return &ast.Do{StmtBase: ast.NewStmtBase(pos), Kind: kind, Cond: cond, Body: body}
}

func (p *Parser) parseSelect() ast.Statement {
	pos := p.advance().Pos
	selector := p.parseExpression()

	var cases []ast.CaseClause
	_, term := p.parseStatementList(token.KwCase, token.KwEndSelect)
	for term == token.KwCase {
		cc := ast.CaseClause{}
		switch {
		case p.at(token.KwElse):
			p.advance()
			cc.IsElse = true
		case p.at(token.KwIs):
			p.advance()
			cc.IsRangeOp = true
			cc.RangeOp = p.parseCompareOp()
			cc.RangeVal = p.parseExpression()
		default:
			cc.Values = append(cc.Values, p.parseExpression())
			for p.at(token.Comma) {
				p.advance()
				cc.Values = append(cc.Values, p.parseExpression())
			}
		}
		body, term2 := p.parseStatementList(token.KwCase, token.KwEndSelect)
		cc.Body = body
		cases = append(cases, cc)
		term = term2
	}
	if term != token.KwEndSelect {
		p.errorf("expected END SELECT")
	}
	return &ast.Select{StmtBase: ast.NewStmtBase(pos), Selector: selector, Cases: cases}
}

func (p *Parser) parseOnGoto() ast.Statement {
	pos := p.advance().Pos
	selector := p.parseExpression()
	kind := ast.OnGotoGoto
	switch p.cur().Kind {
	case token.KwGoto, token.KwGoToCompound:
		p.advance()
		kind = ast.OnGotoGoto
	case token.KwGoSub:
		p.advance()
		kind = ast.OnGotoGosub
	default:
		p.errorf("expected GOTO or GOSUB")
	}
	var labels []string
	for {
		t, ok := p.expect(token.Identifier, "label")
		if !ok {
			break
		}
		labels = append(labels, strings.ToUpper(t.Value))
		if !p.at(token.Comma) {
			break
		}
		p.advance()
	}
	return &ast.OnGoto{StmtBase: ast.NewStmtBase(pos), Kind: kind, Selector: selector, Labels: labels}
}

func (p *Parser) parseRead() ast.Statement {
	pos := p.advance().Pos
	targets := []ast.Expression{p.parseLValue()}
	for p.at(token.Comma) {
		p.advance()
		targets = append(targets, p.parseLValue())
	}
	return &ast.Read{StmtBase: ast.NewStmtBase(pos), Targets: targets}
}

func (p *Parser) parseRestore() ast.Statement {
	pos := p.advance().Pos
	if p.atStatementEnd() {
		return &ast.Restore{StmtBase: ast.NewStmtBase(pos), Kind: ast.RestoreDefault}
	}
	if line, ok := p.isGeneratedLabelToken(); ok {
		p.advance()
		return &ast.Restore{StmtBase: ast.NewStmtBase(pos), Kind: ast.RestoreToLine, Line: line}
	}
	t, ok := p.expect(token.Identifier, "label")
	if !ok {
		return &ast.Restore{StmtBase: ast.NewStmtBase(pos), Kind: ast.RestoreDefault}
	}
	return &ast.Restore{StmtBase: ast.NewStmtBase(pos), Kind: ast.RestoreToLabel, Label: strings.ToUpper(t.Value)}
}

func (p *Parser) parseDim() []ast.Statement {
	kind := ast.DimDeclare
	switch p.cur().Kind {
	case token.KwDim:
		p.advance()
	case token.KwRedim:
		p.advance()
		kind = ast.DimRedim
		if p.at(token.KwPreserve) {
			p.advance()
			kind = ast.DimRedimPreserve
		}
	case token.KwErase:
		p.advance()
		kind = ast.DimErase
	}

	var out []ast.Statement
	for {
		t, ok := p.expect(token.Identifier, "array name")
		if !ok {
			break
		}
		d := &ast.Dim{StmtBase: ast.NewStmtBase(t.Pos), Kind: kind, Name: t.Value, Suffix: t.Suffix}
		if kind != ast.DimErase && p.at(token.LParen) {
			p.advance()
			if !p.at(token.RParen) {
				d.Axes = append(d.Axes, ast.DimAxis{Upper: p.parseExpression()})
				for p.at(token.Comma) {
					p.advance()
					d.Axes = append(d.Axes, ast.DimAxis{Upper: p.parseExpression()})
				}
			}
			p.expect(token.RParen, "')'")
		}
		p.dimmed.Add(strings.ToUpper(d.FullName()))
		out = append(out, d)
		if !p.at(token.Comma) {
			break
		}
		p.advance()
	}
	return out
}

func (p *Parser) parseParamList() []ast.Param {
	var params []ast.Param
	if !p.at(token.LParen) {
		return params
	}
	p.advance()
	if !p.at(token.RParen) {
		params = append(params, p.parseParam())
		for p.at(token.Comma) {
			p.advance()
			params = append(params, p.parseParam())
		}
	}
	p.expect(token.RParen, "')'")
	return params
}

func (p *Parser) parseParam() ast.Param {
	t, _ := p.expect(token.Identifier, "parameter name")
	param := ast.Param{Name: t.Value, Suffix: t.Suffix}
	if p.at(token.LParen) {
		p.advance()
		p.expect(token.RParen, "')'")
		param.IsArray = true
	}
	p.dimmed.Add(strings.ToUpper(param.FullName()))
	return param
}

func (p *Parser) parseSubDecl() ast.Statement {
	pos := p.advance().Pos
	t, _ := p.expect(token.Identifier, "SUB name")
	params := p.parseParamList()
	body, term := p.parseStatementList(token.KwEndSub)
	if term != token.KwEndSub {
		p.errorf("expected END SUB")
	}
	return &ast.SubDecl{StmtBase: ast.NewStmtBase(pos), Name: t.Value, Params: params, Body: body}
}

func (p *Parser) parseFunctionDecl() ast.Statement {
	pos := p.advance().Pos
	t, _ := p.expect(token.Identifier, "FUNCTION name")
	params := p.parseParamList()
	body, term := p.parseStatementList(token.KwEndFunction)
	if term != token.KwEndFunction {
		p.errorf("expected END FUNCTION")
	}
	return &ast.FunctionDecl{StmtBase: ast.NewStmtBase(pos), Name: t.Value, Suffix: t.Suffix, Params: params, Body: body}
}

func (p *Parser) parseDefFn() ast.Statement {
	pos := p.advance().Pos
	t, _ := p.expect(token.Identifier, "function name")
	params := p.parseParamList()
	p.expect(token.Equal, "'='")
	body := p.parseExpression()
	return &ast.DefFn{StmtBase: ast.NewStmtBase(pos), Name: t.Value, Suffix: t.Suffix, Params: params, Body: body}
}

func (p *Parser) parseOpen() ast.Statement {
	pos := p.advance().Pos
	path := p.parseExpression()
	p.expect(token.KwFor, "'FOR'")
	mode := ast.OpenInput
	switch p.cur().Kind {
	case token.KwInput:
		p.advance()
		mode = ast.OpenInput
	case token.KwOutput:
		p.advance()
		mode = ast.OpenOutput
	case token.KwAppend:
		p.advance()
		mode = ast.OpenAppend
	case token.KwRandom:
		p.advance()
		mode = ast.OpenRandom
	default:
		p.errorf("expected INPUT, OUTPUT, APPEND, or RANDOM")
	}
	p.expect(token.KwAs, "'AS'")
	if p.at(token.Hash) {
		p.advance()
	}
	channel := p.parseExpression()
	return &ast.Open{StmtBase: ast.NewStmtBase(pos), Path: path, Mode: mode, Channel: channel}
}

func (p *Parser) parseClose() ast.Statement {
	pos := p.advance().Pos
	stmt := &ast.Close{StmtBase: ast.NewStmtBase(pos)}
	if p.atStatementEnd() {
		return stmt
	}
	if p.at(token.Hash) {
		p.advance()
	}
	stmt.Channels = append(stmt.Channels, p.parseExpression())
	for p.at(token.Comma) {
		p.advance()
		if p.at(token.Hash) {
			p.advance()
		}
		stmt.Channels = append(stmt.Channels, p.parseExpression())
	}
	return stmt
}

func (p *Parser) parseTimerRegister() ast.Statement {
	repeating := p.at(token.KwEvery)
	pos := p.advance().Pos
	dur := p.parseExpression()
	unit := ast.TimerMs
	switch p.cur().Kind {
	case token.KwMs:
		p.advance()
		unit = ast.TimerMs
	case token.KwSecs:
		p.advance()
		unit = ast.TimerSecs
	case token.KwFrames:
		p.advance()
		unit = ast.TimerFrames
	default:
		p.errorf("expected MS, SECS, or FRAMES")
	}
	t, _ := p.expect(token.Identifier, "handler SUB name")
	return &ast.TimerRegister{StmtBase: ast.NewStmtBase(pos), Repeating: repeating, Duration: dur, Unit: unit, Handler: t.Value}
}

func (p *Parser) parseStopTimer() ast.Statement {
	pos := p.advance().Pos
	if p.at(token.KwAll) {
		p.advance()
		return &ast.StopTimer{StmtBase: ast.NewStmtBase(pos), Kind: ast.StopTimerAll}
	}
	if p.at(token.Identifier) && p.atStatementEndAfterPeek() {
		t := p.advance()
		return &ast.StopTimer{StmtBase: ast.NewStmtBase(pos), Kind: ast.StopTimerByName, Name: t.Value}
	}
	id := p.parseExpression()
	return &ast.StopTimer{StmtBase: ast.NewStmtBase(pos), Kind: ast.StopTimerByID, ID: id}
}

// atStatementEndAfterPeek reports whether the token following the
// current one ends the statement, used by STOP TIMER to tell a bare
// handler name (STOP TIMER MYTIMER) from a numeric id expression (STOP
// TIMER n + 1).
func (p *Parser) atStatementEndAfterPeek() bool {
	k := p.peek(1).Kind
	return k == token.Colon || k == token.EOL || k == token.EOF
}

// parseOptionBase parses the BASE-less "OPTION BASE n" directive, which
// the lexer has already collapsed to a single KwBase token.
func (p *Parser) parseOptionBase() ast.Statement {
	pos := p.advance().Pos
	t, _ := p.expect(token.IntLiteral, "0 or 1")
	if t.Value == "1" {
		p.opts.Base = 1
	}
	return &ast.Option{StmtBase: ast.NewStmtBase(pos), Text: "BASE " + t.Value}
}

func (p *Parser) parseOption() ast.Statement {
	pos := p.advance().Pos
	text := ""
	switch p.cur().Kind {
	case token.KwExplicit:
		p.advance()
		p.opts.Explicit = true
		text = "EXPLICIT"
	case token.KwUnicode:
		p.advance()
		p.opts.Unicode = true
		text = "UNICODE"
	case token.KwBitwise:
		p.advance()
		p.opts.Bitwise = true
		text = "BITWISE"
	case token.KwLogical:
		p.advance()
		p.opts.Bitwise = false
		text = "LOGICAL"
	default:
		p.errorf("unrecognized OPTION directive")
	}
	return &ast.Option{StmtBase: ast.NewStmtBase(pos), Text: text}
}

// parseInclude handles `INCLUDE "path" [ONCE]` by lexing the referenced
// file's tokens and splicing them directly into the current stream,
// a single-pass-over-a-token-slice parsing model rather than
// recursing into a nested Parser. Included files are plain
// token text: they do not go through line-number/REM/DATA preprocessing,
// so an included file is expected to hold only structured (non-numbered)
// BASIC, the common case for a shared library of SUBs/FUNCTIONs.
func (p *Parser) parseInclude() []ast.Statement {
	p.advance() // INCLUDE
	pathTok, ok := p.expect(token.StringLiteral, "include path")
	if !ok {
		return nil
	}
	once := false
	if p.at(token.KwOnce) {
		p.advance()
		once = true
	}
	if p.loadInclude == nil {
		p.errorf("INCLUDE is not supported in this context")
		return nil
	}
	if once && p.include.Has(pathTok.Value) {
		return nil
	}
	p.include.Add(pathTok.Value)
	src, err := p.loadInclude(pathTok.Value)
	if err != nil {
		p.errorf("cannot include %q: %v", pathTok.Value, err)
		return nil
	}
	toks, errs := lex.New(src, p.reg).ScanAll()
	for _, e := range errs {
		p.diags.Add(diag.LexError, p.lm, pathTok.Pos, "%v", e)
	}
	// Drop the trailing EOF so the spliced stream continues into
	// whatever followed the INCLUDE directive in the including file.
	if len(toks) > 0 && toks[len(toks)-1].Kind == token.EOF {
		toks = toks[:len(toks)-1]
	}
	rest := make([]token.Token, len(p.toks)-p.pos)
	copy(rest, p.toks[p.pos:])
	p.toks = append(p.toks[:p.pos:p.pos], append(toks, rest...)...)
	return nil
}
