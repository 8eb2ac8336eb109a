// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

// Package data implements the DATA segment model: an ordered,
// immutable-after-preprocessing vector of typed values plus two
// restore-point maps (by BASIC line number and by label name). The
// preprocessor populates a segment while scanning DATA statements; IR
// generation carries it through untouched so the Lua emitter can
// serialize it as the wire format the host runtime expects.
//
// Grounded in a Lua compiler's Prototype Constants table: an
// append-only value vector addressed by stable integer index, here
// additionally indexed by two name maps instead of being referenced
// purely positionally.
package data

import "github.com/thistle-lang/thistle/internal/constants"

// Segment is the DATA segment materialized by the preprocessor:
// read-only from the moment IR generation receives it. RESTORE only
// ever moves the host runtime's read cursor; it never mutates Values.
type Segment struct {
	Values       []constants.Value
	LineRestore  map[int]int
	LabelRestore map[string]int
}

// New returns a Segment built from the preprocessor's extracted values
// and restore tables. The caller must not mutate lineRestore/
// labelRestore afterward; New takes ownership of the maps as given
// (the preprocessor does not reuse them after calling New).
func New(values []constants.Value, lineRestore map[int]int, labelRestore map[string]int) *Segment {
	if lineRestore == nil {
		lineRestore = map[int]int{}
	}
	if labelRestore == nil {
		labelRestore = map[string]int{}
	}
	return &Segment{Values: values, LineRestore: lineRestore, LabelRestore: labelRestore}
}

// Len returns the number of values in the segment.
func (s *Segment) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Values)
}

// At returns the value at idx. At panics if idx is out of range; the
// host runtime's data_read_* operations are responsible for
// bounds-checking a read cursor and raising "OUT OF DATA" before ever
// calling At with an out-of-range index.
func (s *Segment) At(idx int) constants.Value {
	return s.Values[idx]
}

// RestoreLine returns the starting index recorded for BASIC line n, or
// (0, false) if no restore point was recorded for exactly that line; a
// later line's DATA is not searched.
func (s *Segment) RestoreLine(n int) (int, bool) {
	idx, ok := s.LineRestore[n]
	return idx, ok
}

// RestoreLabel returns the starting index for label name, or (0, false)
// if name has no associated DATA.
func (s *Segment) RestoreLabel(name string) (int, bool) {
	idx, ok := s.LabelRestore[name]
	return idx, ok
}
