// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package data

import (
	"testing"

	"github.com/thistle-lang/thistle/internal/constants"
)

func TestSegmentRestorePoints(t *testing.T) {
	values := []constants.Value{
		constants.IntValue(1),
		constants.IntValue(2),
		constants.StringValue("three"),
	}
	seg := New(values, map[int]int{10: 0, 20: 2}, map[string]int{"LOOP": 2})

	if seg.Len() != 3 {
		t.Fatalf("Len() = %d; want 3", seg.Len())
	}
	if v := seg.At(1); v.Kind() != constants.IntKind {
		t.Errorf("At(1).Kind() = %v; want IntKind", v.Kind())
	}

	if idx, ok := seg.RestoreLine(10); !ok || idx != 0 {
		t.Errorf("RestoreLine(10) = (%d, %v); want (0, true)", idx, ok)
	}
	if idx, ok := seg.RestoreLine(20); !ok || idx != 2 {
		t.Errorf("RestoreLine(20) = (%d, %v); want (2, true)", idx, ok)
	}
	if _, ok := seg.RestoreLine(99); ok {
		t.Errorf("RestoreLine(99) = ok=true; want false (no DATA at that line)")
	}

	if idx, ok := seg.RestoreLabel("LOOP"); !ok || idx != 2 {
		t.Errorf("RestoreLabel(LOOP) = (%d, %v); want (2, true)", idx, ok)
	}
	if _, ok := seg.RestoreLabel("NOPE"); ok {
		t.Errorf("RestoreLabel(NOPE) = ok=true; want false")
	}
}

func TestSegmentNilMapsDefaulted(t *testing.T) {
	seg := New([]constants.Value{constants.IntValue(5)}, nil, nil)
	if _, ok := seg.RestoreLine(1); ok {
		t.Errorf("RestoreLine on a nil-constructed segment returned ok=true")
	}
	if _, ok := seg.RestoreLabel("X"); ok {
		t.Errorf("RestoreLabel on a nil-constructed segment returned ok=true")
	}
}

func TestNilSegmentLen(t *testing.T) {
	var seg *Segment
	if got := seg.Len(); got != 0 {
		t.Errorf("(*Segment)(nil).Len() = %d; want 0", got)
	}
}
