// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package luaemit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// mangle maps a BASIC identifier (as returned by FullName, suffix
// character included) to a Lua identifier via a total function: the
// suffix becomes a name segment (`$` -> `_STRING`,
// `%` -> `_INT`, `#` -> `_DOUBLE`, `!` -> `_SINGLE`) and the base name is
// upper-cased, since BASIC identifiers are case-insensitive. Upper-casing
// the whole identifier is also what keeps a mangled name from ever
// colliding with a Lua keyword or a lower-case stdlib name (`print`,
// `string`, `math`): Lua identifiers are case-sensitive, so an all-upper
// name can never equal one of those.
func mangle(name string) string {
	base := name
	var suffix string
	if n := len(name); n > 0 {
		switch name[n-1] {
		case '$':
			base, suffix = name[:n-1], "_STRING"
		case '%':
			base, suffix = name[:n-1], "_INT"
		case '#':
			base, suffix = name[:n-1], "_DOUBLE"
		case '!':
			base, suffix = name[:n-1], "_SINGLE"
		}
	}
	return strings.ToUpper(base) + suffix
}

// luaQuote renders s as a double-quoted Lua string literal. Go and Lua
// share the same core escape vocabulary (\\, \", \n, \t, \xXX), so
// strconv.Quote's output is valid Lua source.
func luaQuote(s string) string {
	return strconv.Quote(s)
}

// formatInt renders i as a Lua integer literal.
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatFloat renders f as a Lua float literal. Lua 5.3+ tracks integer
// vs. float subtypes, so a whole-valued float needs an explicit ".0" to
// keep its type across the host boundary (e.g. DOUBLE variables that
// happen to hold a round number).
func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		if math.IsNaN(f) {
			return "(0/0)"
		}
		if f > 0 {
			return "math.huge"
		}
		return "(-math.huge)"
	}
	if f == math.Trunc(f) {
		return fmt.Sprintf("%d.0", int64(f))
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
