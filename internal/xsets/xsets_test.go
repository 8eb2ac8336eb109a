// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package xsets

import (
	"slices"
	"testing"
)

func TestSetBasics(t *testing.T) {
	s := New(10, 20)
	if !s.Has(10) || !s.Has(20) {
		t.Errorf("New(10, 20) missing elements: %v", s)
	}
	if s.Has(30) {
		t.Error("Has(30) = true on a set without 30")
	}
	s.Add(30)
	if got := s.Len(); got != 3 {
		t.Errorf("Len() = %d; want 3", got)
	}
	s.Delete(10)
	if s.Has(10) {
		t.Error("Has(10) = true after Delete(10)")
	}
}

func TestSetAll(t *testing.T) {
	s := New("a", "b")
	var got []string
	for x := range s.All() {
		got = append(got, x)
	}
	slices.Sort(got)
	if want := []string{"a", "b"}; !slices.Equal(got, want) {
		t.Errorf("All() yielded %v; want %v", got, want)
	}
}

func TestSetClone(t *testing.T) {
	s := New(1)
	c := s.Clone()
	c.Add(2)
	if s.Has(2) {
		t.Error("mutating a clone leaked into the original")
	}
	var nilSet Set[int]
	if got := nilSet.Clone(); got == nil || got.Len() != 0 {
		t.Errorf("Clone of nil set = %v; want empty non-nil set", got)
	}
}
