// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

// Package format implements the BASIC source formatter: keyword and
// command case normalization (consulting the command registry and the
// constants store), block indentation, and optional renumbering with
// branch-target rewriting. It operates on raw source text ahead of the
// compiler proper, so it accepts anything the preprocessor would --
// including programs that do not parse -- and formats what it can.
package format

import (
	"strconv"
	"strings"

	"github.com/thistle-lang/thistle/internal/constants"
	"github.com/thistle-lang/thistle/internal/lex"
	"github.com/thistle-lang/thistle/internal/registry"
)

// Options configures one Format call. The zero value uppercases
// keywords but neither renumbers nor indents.
type Options struct {
	// Renumber rewrites every line number, starting at StartLine and
	// stepping by Step, and updates numeric branch targets after
	// GOTO/GOSUB/RESTORE/THEN/ELSE and in ON ... GOTO/GOSUB lists.
	Renumber  bool
	StartLine int // first new line number; 10 if zero
	Step      int // line number increment; 10 if zero

	// IndentWidth is the number of spaces per block-nesting level.
	// 0 disables indentation.
	IndentWidth int
}

// Formatter normalizes BASIC source. The registry decides which
// identifiers are commands or functions (uppercased); the constants
// store decides which are named constants (left as written).
type Formatter struct {
	reg    *registry.Registry
	consts *constants.Store
	opts   Options
}

// New returns a Formatter over reg and consts. Either may be nil, in
// which case only the reserved keyword table drives case folding.
func New(reg *registry.Registry, consts *constants.Store, opts Options) *Formatter {
	if opts.StartLine == 0 {
		opts.StartLine = 10
	}
	if opts.Step == 0 {
		opts.Step = 10
	}
	return &Formatter{reg: reg, consts: consts, opts: opts}
}

// basicLine is one source line split into its number and content.
type basicLine struct {
	num     int // original line number; 0 when the line had none
	newNum  int
	content string
	indent  int
}

// Format returns src with keywords uppercased, blocks indented, and
// (under Options.Renumber) lines renumbered with branch targets
// updated. Blank lines are dropped; unnumbered lines keep their
// position but are assigned numbers only when renumbering.
func (f *Formatter) Format(src string) string {
	lines := f.splitLines(src)

	var mapping map[int]int
	if f.opts.Renumber {
		mapping = make(map[int]int, len(lines))
		n := f.opts.StartLine
		for i := range lines {
			if lines[i].num != 0 {
				mapping[lines[i].num] = n
			}
			lines[i].newNum = n
			n += f.opts.Step
		}
	}

	var out strings.Builder
	for _, ln := range lines {
		content := ln.content
		if mapping != nil {
			content = replaceLineRefs(content, mapping)
		}
		content = f.normalizeCase(content)

		switch {
		case mapping != nil:
			out.WriteString(strconv.Itoa(ln.newNum))
			out.WriteByte(' ')
		case ln.num != 0:
			out.WriteString(strconv.Itoa(ln.num))
			out.WriteByte(' ')
		}
		if f.opts.IndentWidth > 0 {
			out.WriteString(strings.Repeat(" ", ln.indent*f.opts.IndentWidth))
		}
		out.WriteString(content)
		out.WriteByte('\n')
	}
	return out.String()
}

// splitLines parses src into numbered lines and computes each line's
// indentation level from the running block structure.
func (f *Formatter) splitLines(src string) []basicLine {
	var lines []basicLine
	depth := 0
	for _, raw := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if trimmed == "" {
			continue
		}

		num := 0
		content := trimmed
		i := 0
		for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
			num = num*10 + int(trimmed[i]-'0')
			i++
		}
		if i > 0 && (i == len(trimmed) || trimmed[i] == ' ' || trimmed[i] == '\t') {
			content = strings.TrimLeft(trimmed[i:], " \t")
		} else {
			num = 0
		}

		before, after := indentDelta(content)
		depth += before
		if depth < 0 {
			depth = 0
		}
		lines = append(lines, basicLine{num: num, content: content, indent: depth})
		depth += after
		if depth < 0 {
			depth = 0
		}
	}
	return lines
}

// blockOpeners start a nesting level on their own; IF and DO are
// handled separately (single-line IF does not nest, DO WHILE/UNTIL is
// one construct).
var blockOpeners = map[string]bool{
	"FOR": true, "WHILE": true, "REPEAT": true, "DO": true,
	"SUB": true, "FUNCTION": true, "SELECT": true,
}

var blockClosers = map[string]bool{
	"NEXT": true, "WEND": true, "LOOP": true,
	"ENDIF": true, "ENDSUB": true, "ENDFUNCTION": true, "ENDSELECT": true,
}

// blockMiddles dedent their own line and re-indent what follows.
var blockMiddles = map[string]bool{
	"ELSE": true, "ELSEIF": true, "CASE": true,
}

// indentDelta computes how content shifts the indentation level:
// before applies to the line itself, after to the lines following it.
func indentDelta(content string) (before, after int) {
	words := scanWords(content)
	for i := 0; i < len(words); i++ {
		w := strings.ToUpper(words[i])
		next := ""
		if i+1 < len(words) {
			next = strings.ToUpper(words[i+1])
		}

		switch {
		case w == "EXIT" && (next == "FOR" || next == "DO" || next == "WHILE" ||
			next == "SUB" || next == "FUNCTION"):
			// EXIT FOR and friends are indentation-neutral.
			i++
		case w == "END" && (next == "IF" || next == "SUB" || next == "FUNCTION" || next == "SELECT"):
			before--
			after--
			i++
		case w == "SELECT" && next == "CASE":
			after++
			i++
		case w == "DO" && (next == "WHILE" || next == "UNTIL"):
			after++
			i++
		case w == "UNTIL" && i == 0:
			// REPEAT ... UNTIL closes the block; UNTIL after LOOP was
			// consumed with the LOOP below.
			before--
			after--
		case w == "LOOP":
			before--
			after--
			if next == "WHILE" || next == "UNTIL" {
				i++
			}
		case blockClosers[w]:
			before--
			after--
		case blockMiddles[w]:
			before--
			after++
		case w == "IF":
			if isBlockIf(words[i:]) {
				after++
			}
			return before, after
		case blockOpeners[w]:
			after++
		}
	}
	return before, after
}

// isBlockIf reports whether an IF's THEN ends the clause (multi-line
// form) rather than being followed by an inline statement.
func isBlockIf(words []string) bool {
	for i, w := range words {
		if strings.ToUpper(w) == "THEN" {
			return i == len(words)-1
		}
	}
	return false
}

// scanWords splits content into bare words, skipping string literals
// and everything after a REM or ' comment marker.
func scanWords(content string) []string {
	var words []string
	var cur strings.Builder
	inString := false
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(content); i++ {
		c := content[i]
		if c == '"' {
			inString = !inString
			flush()
			continue
		}
		if inString {
			continue
		}
		if c == '\'' {
			break
		}
		if isWordByte(c) {
			cur.WriteByte(c)
			continue
		}
		flush()
		if len(words) > 0 && strings.EqualFold(words[len(words)-1], "REM") {
			break
		}
	}
	flush()
	if len(words) >= 2 && strings.EqualFold(words[len(words)-2], "REM") {
		words = words[:len(words)-1]
	}
	return words
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func isSuffixByte(c byte) bool {
	return c == '$' || c == '%' || c == '#' || c == '!'
}

// normalizeCase lowercases everything outside strings and comments,
// then uppercases reserved keywords and registered command/function
// names. Named constants are left lowercase so they read as values,
// not commands. A word's trailing type suffix is checked both ways:
// CHR$ is a registered function and uppercases with its suffix, A$ is
// a variable and keeps the suffix as part of its (lowercased) name.
func (f *Formatter) normalizeCase(content string) string {
	var out strings.Builder
	var word strings.Builder
	inString := false

	flush := func(suffix byte) {
		if word.Len() == 0 {
			if suffix != 0 {
				out.WriteByte(suffix)
			}
			return
		}
		w := word.String()
		word.Reset()
		upper := strings.ToUpper(w)
		withSuffix := upper
		if suffix != 0 {
			withSuffix += string(suffix)
		}
		switch {
		case f.isConstant(w):
			out.WriteString(strings.ToLower(w))
			if suffix != 0 {
				out.WriteByte(suffix)
			}
		case suffix != 0 && f.isCommandWord(withSuffix):
			out.WriteString(withSuffix)
		case lex.IsKeyword(upper) || f.isCommandWord(upper):
			out.WriteString(upper)
			if suffix != 0 {
				out.WriteByte(suffix)
			}
		default:
			out.WriteString(strings.ToLower(w))
			if suffix != 0 {
				out.WriteByte(suffix)
			}
		}
	}

	for i := 0; i < len(content); i++ {
		c := content[i]
		if c == '"' {
			flush(0)
			inString = !inString
			out.WriteByte(c)
			continue
		}
		if inString {
			out.WriteByte(c)
			continue
		}
		if c == '\'' {
			flush(0)
			out.WriteString(content[i:])
			return out.String()
		}
		if isWordByte(c) {
			word.WriteByte(c)
			continue
		}
		if isSuffixByte(c) && word.Len() > 0 {
			flush(c)
			continue
		}
		if strings.EqualFold(word.String(), "REM") {
			out.WriteString("REM")
			word.Reset()
			out.WriteString(content[i:])
			return out.String()
		}
		flush(0)
		out.WriteByte(c)
	}
	if strings.EqualFold(word.String(), "REM") {
		out.WriteString("REM")
		return out.String()
	}
	flush(0)
	return out.String()
}

func (f *Formatter) isCommandWord(upper string) bool {
	return f.reg != nil && f.reg.IsRegistered(upper)
}

func (f *Formatter) isConstant(word string) bool {
	if f.consts == nil {
		return false
	}
	_, ok := f.consts.Lookup(word)
	return ok
}

// replaceLineRefs rewrites numeric branch targets through mapping:
// the number after GOTO/GOSUB/RESTORE/THEN/ELSE, and every number in
// an ON ... GOTO/GOSUB target list. Numbers anywhere else (array
// indices, arithmetic) are left alone.
func replaceLineRefs(content string, mapping map[int]int) string {
	var out strings.Builder
	var word strings.Builder
	inString := false
	prevKeyword := ""
	sawOn := false       // an ON keyword opened this statement's selector
	inTargetList := false // inside an ON ... GOTO/GOSUB target list

	flushWord := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		word.Reset()

		if n, err := strconv.Atoi(w); err == nil {
			ok := false
			switch strings.ToUpper(prevKeyword) {
			case "GOTO", "GOSUB", "RESTORE", "THEN", "ELSE":
				ok = true
			}
			if ok || inTargetList {
				if mapped, found := mapping[n]; found {
					out.WriteString(strconv.Itoa(mapped))
					prevKeyword = ""
					return
				}
			}
			out.WriteString(w)
			prevKeyword = ""
			return
		}

		switch strings.ToUpper(w) {
		case "GOTO", "GOSUB":
			if sawOn {
				inTargetList = true
				sawOn = false
			}
		case "ON":
			sawOn = true
		default:
			inTargetList = false
		}
		prevKeyword = w
		out.WriteString(w)
	}

	for i := 0; i < len(content); i++ {
		c := content[i]
		if c == '"' {
			flushWord()
			inString = !inString
			out.WriteByte(c)
			continue
		}
		if inString {
			out.WriteByte(c)
			continue
		}
		if c == '\'' {
			flushWord()
			out.WriteString(content[i:])
			return out.String()
		}
		if isWordByte(c) {
			word.WriteByte(c)
			continue
		}
		flushWord()
		switch {
		case c == ':':
			prevKeyword = ""
			sawOn = false
			inTargetList = false
		case c != ',' && c != ' ' && c != '\t':
			inTargetList = false
		}
		out.WriteByte(c)
	}
	flushWord()
	return out.String()
}

// Renumbered is a convenience wrapper: format src with renumbering on,
// starting at start and stepping by step.
func Renumbered(reg *registry.Registry, consts *constants.Store, src string, start, step int) string {
	f := New(reg, consts, Options{Renumber: true, StartLine: start, Step: step})
	return f.Format(src)
}
