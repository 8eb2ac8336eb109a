// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

// Package preprocess implements three source-to-source passes: REM
// normalization, DATA extraction, and line-number-to-label rewriting.
// All three operate on raw text before lexing.
//
// The scanning style (quote-aware, byte-at-a-time with explicit state)
// is grounded in a Lua scanner, adapted from a token-producing scan to
// a line-oriented rewrite.
package preprocess

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/thistle-lang/thistle/internal/constants"
	"github.com/thistle-lang/thistle/internal/token"
	"github.com/thistle-lang/thistle/internal/xsets"
)

// Result is the output of [Run]: the rewritten source, the line mapping
// needed to cite BASIC line numbers in later diagnostics, the DATA
// segment, and the restore tables. The preprocessor never fails; at
// worst it warns and passes text through unchanged.
type Result struct {
	Source string
	// RemStripped is the source after REM normalization and DATA
	// extraction but before line-number-to-label rewriting -- the
	// driver's -p flag writes this stage out.
	RemStripped  string
	LineMap      *token.LineMap
	Data         []constants.Value
	LineRestore  map[int]int
	LabelRestore map[string]int
	Warnings     []string
}

// Run executes all three preprocessing passes over src in order: REM
// normalization, DATA extraction, then line-number-to-label rewriting.
func Run(src string) *Result {
	r := &Result{
		LineRestore:  make(map[int]int),
		LabelRestore: make(map[string]int),
	}

	lines := splitLines(src)
	lines, warnings := stripREM(lines)
	r.Warnings = append(r.Warnings, warnings...)

	lines = r.extractData(lines)
	r.RemStripped = strings.Join(lines, "\n")

	lines = rewriteLabels(lines)

	r.Source = strings.Join(lines, "\n")
	r.LineMap = token.NewLineMap(len(lines))
	for i, ln := range lines {
		if n, ok := leadingLineNumber(ln); ok {
			r.LineMap.Set(i+1, n)
			continue
		}
		// rewriteLabels replaces a target line's leading line number
		// with a generated "L<n>:" label, so the number no longer
		// leads the line; recover it from the label text itself so
		// diagnostics on these lines still cite a BASIC line.
		if n, ok := generatedLabelLineNumber(ln); ok {
			r.LineMap.Set(i+1, n)
		}
	}
	return r
}

func splitLines(src string) []string {
	return strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
}

var leadingLineNumberRE = regexp.MustCompile(`^\s*(\d+)`)
var generatedLabelRE = regexp.MustCompile(`^\s*L(\d+):`)

// generatedLabelLineNumber recovers the BASIC line number encoded in a
// label [rewriteLabels] generated for a numeric branch target.
func generatedLabelLineNumber(line string) (int, bool) {
	m := generatedLabelRE.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func leadingLineNumber(line string) (int, bool) {
	m := leadingLineNumberRE.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// clause is one ':'-delimited, quote-aware segment of a line, plus the
// byte offset in the original line where it starts.
type clause struct {
	text  string
	start int
}

// splitClauses splits line on top-level colons, i.e. colons outside of
// double- or single-quoted strings.
func splitClauses(line string) []clause {
	var out []clause
	start := 0
	inQuote := byte(0)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
		case c == ':':
			out = append(out, clause{text: line[start:i], start: start})
			start = i + 1
		}
	}
	out = append(out, clause{text: line[start:], start: start})
	return out
}

var remRE = regexp.MustCompile(`(?i)^(\s*)REM\b`)

// stripREM replaces the text of any REM clause with a bare "REM",
// preserving everything before it (line number, label, prior
// statements and their colon separators).
func stripREM(lines []string) ([]string, []string) {
	var warnings []string
	out := make([]string, len(lines))
	for i, line := range lines {
		if !hasBalancedQuotes(line) {
			warnings = append(warnings, "unmatched quote on source line "+strconv.Itoa(i+1))
		}
		clauses := splitClauses(line)
		for ci, cl := range clauses {
			if remRE.MatchString(stripLeadingLineNumberAndLabel(cl.text, ci == 0)) {
				clauses[ci].text = remReplacement(cl.text)
			}
		}
		var b strings.Builder
		for ci, cl := range clauses {
			if ci > 0 {
				b.WriteByte(':')
			}
			b.WriteString(cl.text)
		}
		out[i] = b.String()
	}
	return out, warnings
}

// stripLeadingLineNumberAndLabel removes a leading line number (only
// meaningful for the first clause of a line) so that REM matching
// starts at the statement keyword.
func stripLeadingLineNumberAndLabel(clauseText string, isFirst bool) string {
	s := clauseText
	if isFirst {
		if m := leadingLineNumberRE.FindString(s); m != "" {
			s = s[len(m):]
		}
	}
	return strings.TrimLeft(s, " \t")
}

// remReplacement keeps any text preceding the REM keyword within the
// clause (e.g. a label) and replaces the rest with a bare REM.
func remReplacement(clauseText string) string {
	idx := caseInsensitiveIndexWord(clauseText, "REM")
	if idx < 0 {
		return clauseText
	}
	return clauseText[:idx] + "REM"
}

func caseInsensitiveIndexWord(s, word string) int {
	lower := strings.ToLower(s)
	w := strings.ToLower(word)
	for i := 0; i+len(w) <= len(lower); i++ {
		if lower[i:i+len(w)] != w {
			continue
		}
		if i > 0 && isIdentByte(lower[i-1]) {
			continue
		}
		return i
	}
	return -1
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func hasBalancedQuotes(line string) bool {
	inQuote := byte(0)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
		}
	}
	return inQuote == 0
}

var dataRE = regexp.MustCompile(`(?i)^\s*DATA\b\s*(.*)$`)
var labelDefRE = regexp.MustCompile(`^\s*(\d+)?\s*([A-Za-z_][A-Za-z0-9_]*)\s*:`)

// extractData removes DATA statements from lines, appending their
// parsed values to r.Data and recording restore points by line number
// and by any label on the same line.
func (r *Result) extractData(lines []string) []string {
	var out []string
	var pendingLabel string
	for _, line := range lines {
		n, hasNum := leadingLineNumber(line)
		rest := line
		if hasNum {
			rest = leadingLineNumberRE.ReplaceAllString(rest, "")
		}
		label := ""
		if m := labelDefRE.FindStringSubmatch(line); m != nil && m[2] != "" {
			// Only treat as a label if it's not itself a DATA/REM/keyword
			// line being misparsed; a trailing ':' after a bare
			// identifier at clause start is a label by construction.
			label = m[2]
		}

		clauses := splitClauses(rest)
		var keep []string
		dataFound := false
		for _, cl := range clauses {
			m := dataRE.FindStringSubmatch(trimmedOrSelf(cl.text, label))
			if m == nil {
				keep = append(keep, cl.text)
				continue
			}
			dataFound = true
			startIdx := len(r.Data)
			for _, raw := range splitDataValues(m[1]) {
				r.Data = append(r.Data, parseDataValue(raw))
			}
			if hasNum {
				r.LineRestore[n] = startIdx
			}
			if label != "" {
				r.LabelRestore[label] = startIdx
			} else if pendingLabel != "" {
				r.LabelRestore[pendingLabel] = startIdx
				pendingLabel = ""
			}
		}

		if !dataFound {
			if label != "" && strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), label+":")) == "" {
				pendingLabel = label
			} else {
				pendingLabel = ""
			}
			out = append(out, line)
			continue
		}
		// A lone preceding label binds to the first DATA statement after
		// it and no further; later unlabeled DATA lines must not move
		// its restore point.
		pendingLabel = ""

		if len(keep) == 0 {
			// Whole line was DATA (plus perhaps a line number/label that
			// has no further use once the restore tables are recorded):
			// drop it entirely.
			continue
		}
		var b strings.Builder
		if hasNum {
			b.WriteString(strconv.Itoa(n))
			b.WriteByte(' ')
		}
		for i, k := range keep {
			if i > 0 {
				b.WriteByte(':')
			}
			b.WriteString(k)
		}
		// Rejoining with ':' restores every separator except one after a
		// trailing clause, so a label whose DATA clause was extracted
		// ("RESET: DATA 1, 2") needs its defining colon put back or it
		// would re-parse as a bare call statement.
		if label != "" && strings.TrimSpace(keep[len(keep)-1]) == label {
			b.WriteByte(':')
		}
		out = append(out, b.String())
	}
	return out
}

func trimmedOrSelf(text, label string) string {
	t := strings.TrimSpace(text)
	if label != "" && strings.HasPrefix(t, label+":") {
		return strings.TrimSpace(strings.TrimPrefix(t, label+":"))
	}
	return t
}

func splitDataValues(s string) []string {
	var vals []string
	var b strings.Builder
	inQuote := byte(0)
	flush := func() {
		vals = append(vals, b.String())
		b.Reset()
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			b.WriteByte(c)
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
			b.WriteByte(c)
		case c == ',':
			flush()
		default:
			b.WriteByte(c)
		}
	}
	flush()
	return vals
}

// parseDataValue applies the typed-value ladder DATA literals use:
// quoted strings stay strings, otherwise a numeric parse is tried
// before falling back to an unquoted string.
func parseDataValue(raw string) constants.Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return constants.StringValue("")
	}
	if len(trimmed) >= 2 {
		q := trimmed[0]
		if (q == '"' || q == '\'') && trimmed[len(trimmed)-1] == q {
			return constants.StringValue(trimmed[1 : len(trimmed)-1])
		}
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil &&
		!strings.ContainsAny(trimmed, ".eE") {
		return constants.IntValue(i)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return constants.DoubleValue(f)
	}
	return constants.StringValue(trimmed)
}

var targetKeywordRE = regexp.MustCompile(`(?i)\b(GOTO|GOSUB|GO\s+TO|RESTORE|THEN)\b\s*([0-9][0-9,\s]*)`)

// rewriteLabels performs pass A (collect numeric targets) then pass B
// (prepend "L<n>:" to target lines and rewrite the keyword-following
// numeric targets to "L<n>"), using a whitelist of the keywords that
// can precede a line-number target so that unrelated numeric literals
// are never rewritten.
func rewriteLabels(lines []string) []string {
	targets := xsets.New[int]()
	for _, line := range lines {
		for _, m := range targetKeywordRE.FindAllStringSubmatch(line, -1) {
			for _, numStr := range strings.FieldsFunc(m[2], func(r rune) bool { return r == ',' || r == ' ' }) {
				if n, err := strconv.Atoi(numStr); err == nil {
					targets.Add(n)
				}
			}
		}
	}
	if targets.Len() == 0 {
		return lines
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		rewritten := targetKeywordRE.ReplaceAllStringFunc(line, func(m string) string {
			sub := targetKeywordRE.FindStringSubmatch(m)
			kw := sub[1]
			nums := strings.FieldsFunc(sub[2], func(r rune) bool { return r == ',' || r == ' ' })
			labeled := make([]string, len(nums))
			for i, numStr := range nums {
				n, err := strconv.Atoi(numStr)
				if err != nil || !targets.Has(n) {
					labeled[i] = numStr
					continue
				}
				labeled[i] = "L" + numStr
			}
			return kw + " " + strings.Join(labeled, ", ")
		})

		if n, ok := leadingLineNumber(rewritten); ok && targets.Has(n) {
			rest := leadingLineNumberRE.ReplaceAllString(rewritten, "")
			rewritten = "L" + strconv.Itoa(n) + ":" + rest
		}
		out[i] = rewritten
	}
	return out
}
