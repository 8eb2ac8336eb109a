// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

// Package cache implements whole-program compile memoization: a
// sqlite-backed store keyed by a hash of the BASIC source plus the
// active [thistle.Options], so repeated compiles of unchanged source
// skip the pipeline entirely and return the previously emitted Lua
// chunk.
//
// A WAL-mode sqlite connection is opened once per process and migrated
// with zombiezen.com/go/sqlite/sqlitemigration, with statements
// executed via sqlitex rather than database/sql.
package cache

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitemigration"
	"zombiezen.com/go/sqlite/sqlitex"
)

//go:embed schema
var schemaFiles embed.FS

// Cache is a single sqlite connection holding compiled Lua chunks keyed
// by source hash and compiler option set. Cache is not safe for
// concurrent use by multiple goroutines; the driver opens one per
// invocation.
type Cache struct {
	conn *sqlite.Conn
}

// Open opens (creating if necessary) the cache database at path,
// applying pragmas and schema migrations.
func Open(ctx context.Context, path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o777); err != nil {
			return nil, fmt.Errorf("open compile cache: %v", err)
		}
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("open compile cache: %v", err)
	}
	conn.SetInterrupt(ctx.Done())

	if err := sqlitex.ExecuteTransient(conn, "PRAGMA journal_mode=wal;", nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open compile cache %s: enable write-ahead logging: %v", path, err)
	}

	var schema sqlitemigration.Schema
	for i := 1; ; i++ {
		migration, err := fs.ReadFile(schemaFiles, fmt.Sprintf("schema/%02d.sql", i))
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("open compile cache %s: read migrations: %v", path, err)
		}
		schema.Migrations = append(schema.Migrations, string(migration))
		if i >= 99 {
			break
		}
	}
	if err := sqlitemigration.Migrate(ctx, conn, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open compile cache %s: %v", path, err)
	}

	return &Cache{conn: conn}, nil
}

// Close releases the underlying sqlite connection.
func (c *Cache) Close() error {
	return c.conn.Close()
}

// Key identifies one memoized compilation: the source text's digest
// plus a string summarizing the active [thistle.Options] (so -c/--opt-*
// flag combinations never collide in the cache).
type Key struct {
	SourceHash string
	OptionKey  string
}

// NewKey hashes src and pairs it with optionKey.
func NewKey(src, optionKey string) Key {
	sum := sha256.Sum256([]byte(src))
	return Key{SourceHash: hex.EncodeToString(sum[:]), OptionKey: optionKey}
}

// nsCompile is the UUID namespace for compile identities. Generated
// once; never changes, or every cached row's id would.
var nsCompile = uuid.MustParse("8e1f4a02-79c3-4f5d-9b16-5d3a0c42e7b9")

// CompileID returns the content-derived UUID naming this compilation:
// the same source text and option set always map to the same id, so a
// log line or a --json consumer can correlate runs across processes
// without a counter.
func (k Key) CompileID() uuid.UUID {
	return uuid.NewSHA1(nsCompile, []byte(k.SourceHash+"\x00"+k.OptionKey))
}

// Lookup returns the previously cached Lua chunk for key, if any.
func (c *Cache) Lookup(key Key) (luaSource string, ok bool, err error) {
	err = sqlitex.ExecuteTransient(c.conn,
		`SELECT lua_source FROM compiled_programs WHERE source_hash = :source_hash AND option_key = :option_key;`,
		&sqlitex.ExecOptions{
			Named: map[string]any{
				":source_hash": key.SourceHash,
				":option_key":  key.OptionKey,
			},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				luaSource = stmt.ColumnText(0)
				ok = true
				return nil
			},
		})
	if err != nil {
		return "", false, fmt.Errorf("compile cache lookup: %v", err)
	}
	return luaSource, ok, nil
}

// Store records the compiled luaSource for key, overwriting any
// previous entry (a source file edited and reverted should not wedge
// the cache on a stale miss count).
func (c *Cache) Store(key Key, luaSource string, nowUnix int64) error {
	err := sqlitex.ExecuteTransient(c.conn,
		`INSERT INTO compiled_programs (id, source_hash, option_key, lua_source, created_at)
		 VALUES (:id, :source_hash, :option_key, :lua_source, :created_at)
		 ON CONFLICT (source_hash, option_key) DO UPDATE SET
		   lua_source = excluded.lua_source, created_at = excluded.created_at;`,
		&sqlitex.ExecOptions{
			Named: map[string]any{
				":id":          key.CompileID().String(),
				":source_hash": key.SourceHash,
				":option_key":  key.OptionKey,
				":lua_source":  luaSource,
				":created_at":  nowUnix,
			},
		})
	if err != nil {
		return fmt.Errorf("compile cache store: %v", err)
	}
	return nil
}
