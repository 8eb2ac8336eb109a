// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package constants

import (
	"errors"
	"testing"
)

func TestValueCoercion(t *testing.T) {
	tests := []struct {
		name     string
		v        Value
		wantInt  int64
		wantF    float64
		wantStr  string
	}{
		{"int", IntValue(42), 42, 42, "42"},
		{"double-whole", DoubleValue(3), 3, 3, "3"},
		{"double-frac", DoubleValue(3.5), 3, 3.5, "3.5"},
		{"numeric-string", StringValue("7"), 7, 7, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if i, ok := tt.v.Int(); !ok || i != tt.wantInt {
				t.Errorf("Int() = (%d, %v); want (%d, true)", i, ok, tt.wantInt)
			}
			if f, ok := tt.v.Double(); !ok || f != tt.wantF {
				t.Errorf("Double() = (%g, %v); want (%g, true)", f, ok, tt.wantF)
			}
			if s := tt.v.String(); s != tt.wantStr {
				t.Errorf("String() = %q; want %q", s, tt.wantStr)
			}
		})
	}
}

func TestValueStringCoercionFailure(t *testing.T) {
	v := StringValue("hello")
	if _, ok := v.Int(); ok {
		t.Errorf("Int() on non-numeric string succeeded; want ok=false")
	}
	if _, ok := v.Double(); ok {
		t.Errorf("Double() on non-numeric string succeeded; want ok=false")
	}
	if v.Kind() != StringKind {
		t.Errorf("Kind() = %v; want StringKind", v.Kind())
	}
}

func TestStoreDefineAndLookup(t *testing.T) {
	s := New()

	idx, err := s.Define("PI", DoubleValue(3.14159))
	if err != nil {
		t.Fatalf("Define() error = %v", err)
	}
	if idx != 0 {
		t.Fatalf("Define() index = %d; want 0", idx)
	}

	got, ok := s.Lookup("pi") // case-insensitive
	if !ok || got != idx {
		t.Errorf("Lookup(%q) = (%d, %v); want (%d, true)", "pi", got, ok, idx)
	}

	if s.At(idx).Kind() != DoubleKind {
		t.Errorf("At(%d).Kind() = %v; want DoubleKind", idx, s.At(idx).Kind())
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d; want 1", s.Len())
	}
}

func TestStoreRedeclareRejected(t *testing.T) {
	s := New()
	if _, err := s.Define("MAX", IntValue(100)); err != nil {
		t.Fatalf("first Define() error = %v", err)
	}
	if _, err := s.Define("MAX", IntValue(200)); !errors.Is(err, ErrRedeclared) {
		t.Fatalf("second Define() error = %v; want ErrRedeclared", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d; want 1 (the failed redefine must not append)", s.Len())
	}
}

func TestStoreLookupMissing(t *testing.T) {
	s := New()
	if _, ok := s.Lookup("NOPE"); ok {
		t.Errorf("Lookup on empty store returned ok=true")
	}
}
