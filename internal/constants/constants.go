// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

// Package constants implements the compile-time constants store: an
// append-only vector of tagged values with a case-insensitive name
// index. Entries are monotonically appended and indices are stable,
// mirroring how a Lua compiler keeps a stable constant pool per
// function prototype (internal/luacode's Prototype.Constants) that
// expression descriptors reference by index rather than by value.
package constants

import (
	"fmt"
	"math"
	"strings"
)

// Kind tags the payload carried by a [Value].
type Kind int

const (
	IntKind Kind = iota
	DoubleKind
	StringKind
)

// Value is a tagged union of the three constant payload types BASIC
// DATA and named constants can carry.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

func IntValue(i int64) Value      { return Value{kind: IntKind, i: i} }
func DoubleValue(f float64) Value { return Value{kind: DoubleKind, f: f} }
func StringValue(s string) Value  { return Value{kind: StringKind, s: s} }

func (v Value) Kind() Kind { return v.kind }

// Int coerces v to an integer, truncating doubles and parsing numeric
// strings. ok is false if a string cannot be parsed as a number.
func (v Value) Int() (int64, bool) {
	switch v.kind {
	case IntKind:
		return v.i, true
	case DoubleKind:
		return int64(v.f), true
	default:
		f, ok := parseFloat(v.s)
		return int64(f), ok
	}
}

// Double coerces v to a float64.
func (v Value) Double() (float64, bool) {
	switch v.kind {
	case IntKind:
		return float64(v.i), true
	case DoubleKind:
		return v.f, true
	default:
		return parseFloat(v.s)
	}
}

// String coerces v to its textual representation.
func (v Value) String() string {
	switch v.kind {
	case IntKind:
		return fmt.Sprintf("%d", v.i)
	case DoubleKind:
		return formatDouble(v.f)
	default:
		return v.s
	}
}

func formatDouble(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%g", f)
}

func parseFloat(s string) (float64, bool) {
	var f float64
	n, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &f)
	return f, err == nil && n == 1
}

// Store is the append-only constants pool. The zero value is an empty,
// writable store.
type Store struct {
	values []Value
	index  map[string]int
}

// New returns an empty Store.
func New() *Store {
	return &Store{index: make(map[string]int)}
}

// ErrRedeclared is returned by [Store.Define] when name already names a
// constant: constants are never shadowed.
var ErrRedeclared = fmt.Errorf("constants: redeclared")

// Define appends v under name, case-insensitively, returning its stable
// index. It is an error to redefine an existing name.
func (s *Store) Define(name string, v Value) (int, error) {
	key := strings.ToLower(name)
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, exists := s.index[key]; exists {
		return 0, fmt.Errorf("%w: %s", ErrRedeclared, name)
	}
	idx := len(s.values)
	s.values = append(s.values, v)
	s.index[key] = idx
	return idx, nil
}

// Lookup returns the index of the constant named name (case-insensitive)
// and whether it exists.
func (s *Store) Lookup(name string) (int, bool) {
	idx, ok := s.index[strings.ToLower(name)]
	return idx, ok
}

// At returns the value at idx. At panics if idx is out of range, since
// every valid AST ConstRef carries an index produced by Define or
// Lookup on this same store.
func (s *Store) At(idx int) Value {
	return s.values[idx]
}

// Len returns the number of defined constants.
func (s *Store) Len() int {
	return len(s.values)
}

// NewPreloaded returns a Store seeded with the predefined constant set:
// mathematical constants, booleans, and the color and waveform
// enumerations the host runtime understands. No pattern or gradient
// constants are defined.
func NewPreloaded() *Store {
	s := New()
	must := func(name string, v Value) {
		if _, err := s.Define(name, v); err != nil {
			panic(err)
		}
	}

	must("PI", DoubleValue(math.Pi))
	must("TWOPI", DoubleValue(2*math.Pi))
	must("E", DoubleValue(math.E))

	must("TRUE", IntValue(1))
	must("FALSE", IntValue(0))

	colors := []string{
		"BLACK", "BLUE", "GREEN", "CYAN", "RED", "MAGENTA", "YELLOW", "WHITE",
		"BRIGHTBLACK", "BRIGHTBLUE", "BRIGHTGREEN", "BRIGHTCYAN",
		"BRIGHTRED", "BRIGHTMAGENTA", "BRIGHTYELLOW", "BRIGHTWHITE",
	}
	for i, name := range colors {
		must(name, IntValue(int64(i)))
	}

	waveforms := []string{"SINE", "SQUARE", "TRIANGLE", "SAWTOOTH", "NOISE"}
	for i, name := range waveforms {
		must(name, IntValue(int64(i)))
	}

	return s
}
