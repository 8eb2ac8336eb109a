// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package token

import "testing"

func TestLineMap(t *testing.T) {
	m := NewLineMap(3)
	m.Set(1, 10)
	m.Set(3, 30)

	tests := []struct {
		sourceLine, want int
	}{
		{1, 10},
		{2, 0}, // no BASIC line number recorded
		{3, 30},
		{0, 0},  // out of range low
		{99, 0}, // out of range high
	}
	for _, tt := range tests {
		if got := m.BasicLine(tt.sourceLine); got != tt.want {
			t.Errorf("BasicLine(%d) = %d; want %d", tt.sourceLine, got, tt.want)
		}
	}
}

func TestPositionString(t *testing.T) {
	if got, want := (Position{Line: 4, Column: 7}).String(), "4:7"; got != want {
		t.Errorf("String() = %q; want %q", got, want)
	}
	if got, want := (Position{Line: 4}).String(), "line 4"; got != want {
		t.Errorf("String() = %q; want %q", got, want)
	}
}

func TestSuffixString(t *testing.T) {
	tests := []struct {
		s    Suffix
		want string
	}{
		{NoSuffix, ""},
		{StringSuffix, "$"},
		{IntSuffix, "%"},
		{DoubleSuffix, "#"},
		{SingleSuffix, "!"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Suffix(%d).String() = %q; want %q", tt.s, got, tt.want)
		}
	}
}
