// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package cache

import (
	"path/filepath"
	"testing"

	"github.com/thistle-lang/thistle/internal/testcontext"
)

func TestStoreAndLookup(t *testing.T) {
	ctx, cancel := testcontext.New(t)
	defer cancel()

	dbPath := filepath.Join(t.TempDir(), "compile-cache.db")
	c, err := Open(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	key := NewKey(`10 PRINT "HI"`, "base=0;explicit=false")
	if _, ok, err := c.Lookup(key); err != nil {
		t.Fatal(err)
	} else if ok {
		t.Fatal("Lookup on empty cache returned ok = true")
	}

	if err := c.Store(key, "print(\"HI\")\n", 1); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Lookup(key)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Lookup after Store returned ok = false")
	}
	if want := "print(\"HI\")\n"; got != want {
		t.Errorf("Lookup() = %q; want %q", got, want)
	}
}

func TestStoreOverwritesExistingKey(t *testing.T) {
	ctx, cancel := testcontext.New(t)
	defer cancel()

	dbPath := filepath.Join(t.TempDir(), "compile-cache.db")
	c, err := Open(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	key := NewKey(`10 PRINT "HI"`, "base=0;explicit=false")
	if err := c.Store(key, "print(\"HI\")\n", 1); err != nil {
		t.Fatal(err)
	}
	if err := c.Store(key, "print(\"BYE\")\n", 2); err != nil {
		t.Fatal(err)
	}

	got, ok, err := c.Lookup(key)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Lookup after second Store returned ok = false")
	}
	if want := "print(\"BYE\")\n"; got != want {
		t.Errorf("Lookup() = %q; want %q (reverted source should overwrite, not wedge on a stale miss count)", got, want)
	}
}

func TestCompileIDIsContentDerived(t *testing.T) {
	src := `10 PRINT "HI"`
	a := NewKey(src, "base=0;explicit=false").CompileID()
	b := NewKey(src, "base=0;explicit=false").CompileID()
	if a != b {
		t.Errorf("CompileID differs across identical keys: %v vs %v", a, b)
	}
	c := NewKey(src, "base=1;explicit=false").CompileID()
	if a == c {
		t.Errorf("CompileID collides across distinct option keys: %v", a)
	}
	d := NewKey(`10 PRINT "BYE"`, "base=0;explicit=false").CompileID()
	if a == d {
		t.Errorf("CompileID collides across distinct sources: %v", a)
	}
}

func TestDistinctOptionKeysDoNotCollide(t *testing.T) {
	ctx, cancel := testcontext.New(t)
	defer cancel()

	dbPath := filepath.Join(t.TempDir(), "compile-cache.db")
	c, err := Open(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	src := `10 PRINT "HI"`
	keyA := NewKey(src, "base=0;explicit=false")
	keyB := NewKey(src, "base=1;explicit=false")

	if err := c.Store(keyA, "print(\"A\")\n", 1); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Lookup(keyB); err != nil {
		t.Fatal(err)
	} else if ok {
		t.Fatal("Lookup(keyB) found an entry stored under keyA's option key")
	}
}
