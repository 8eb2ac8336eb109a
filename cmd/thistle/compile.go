// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/thistle-lang/thistle"
	"github.com/thistle-lang/thistle/internal/cache"
	"github.com/thistle-lang/thistle/internal/constants"
	"github.com/thistle-lang/thistle/internal/diag"
	"github.com/thistle-lang/thistle/internal/format"
	"github.com/thistle-lang/thistle/internal/preprocess"
	"github.com/thistle-lang/thistle/internal/registry"
	"zombiezen.com/go/log"
)

// run dispatches to whichever driver mode opts selects: -p/-l write an
// intermediate source stage and exit; -o compiles to a Lua file without
// executing; with neither, the default is compile then execute.
func run(ctx context.Context, opts *driverOptions) error {
	src, err := os.ReadFile(opts.source)
	if err != nil {
		return err
	}

	switch {
	case opts.preprocessOut != "":
		return writePreprocessStage(string(src), opts.preprocessOut, false)
	case opts.labelOut != "":
		return writePreprocessStage(string(src), opts.labelOut, true)
	case opts.formatOut != "":
		f := format.New(registry.NewBuiltins(), constants.NewPreloaded(), format.Options{IndentWidth: 2})
		return os.WriteFile(opts.formatOut, []byte(f.Format(string(src))), 0o644)
	}

	// The compile-memoization cache only ever stores emitted Lua text, so
	// it only shortcuts the -o (compile-to-file, no execute) path: a
	// cache hit has no constants.Store or data.Segment to hand execute,
	// which an actual run needs for constants_get/DATA support.
	if opts.outputLua != "" && opts.cacheDB != "" {
		return compileToFileCached(ctx, string(src), opts)
	}

	out, diags := timedCompile(ctx, string(src), opts)
	if out == nil {
		reportResult(diags, nil, opts)
		return fmt.Errorf("compilation failed")
	}
	reportResult(diags, out, opts)

	if opts.outputLua != "" {
		return os.WriteFile(opts.outputLua, []byte(out.Lua), 0o644)
	}
	return execute(ctx, out, opts)
}

// reportResult prints diagnostics and, if requested, optimizer
// statistics in whichever format --json selects.
func reportResult(diags []diag.Diagnostic, out *thistle.Output, opts *driverOptions) {
	if opts.json {
		if err := printDiagnosticsJSON(diags, out); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		return
	}
	printDiagnostics(diags)
	if opts.optStats && out != nil {
		printOptStats(out)
	}
}

// compileToFileCached serves a -o compile-only request from the
// compile cache when available, falling back to a full compile and
// populating the cache entry on a miss.
func compileToFileCached(ctx context.Context, src string, opts *driverOptions) error {
	c, err := cache.Open(ctx, opts.cacheDB)
	if err != nil {
		log.Errorf(ctx, "compile cache unavailable, compiling without it: %v", err)
		out, diags := timedCompile(ctx, src, opts)
		if out == nil {
			reportResult(diags, nil, opts)
			return fmt.Errorf("compilation failed")
		}
		reportResult(diags, out, opts)
		return os.WriteFile(opts.outputLua, []byte(out.Lua), 0o644)
	}
	defer c.Close()

	key := cache.NewKey(src, optionKey(opts))
	if luaSrc, ok, err := c.Lookup(key); err == nil && ok {
		if opts.profile {
			log.Infof(ctx, "compile %v: cache hit", key.CompileID())
		}
		return os.WriteFile(opts.outputLua, []byte(luaSrc), 0o644)
	}
	log.Debugf(ctx, "compile %v: cache miss", key.CompileID())

	out, diags := timedCompile(ctx, src, opts)
	if out == nil {
		reportResult(diags, nil, opts)
		return fmt.Errorf("compilation failed")
	}
	reportResult(diags, out, opts)
	if err := c.Store(key, out.Lua, time.Now().Unix()); err != nil {
		log.Errorf(ctx, "compile cache store: %v", err)
	}
	return os.WriteFile(opts.outputLua, []byte(out.Lua), 0o644)
}

// optionKey summarizes the compiler options affecting emitted Lua text,
// so differing flag combinations never collide in the cache.
func optionKey(opts *driverOptions) string {
	return fmt.Sprintf("ast=%v,peep=%v,comments=%v", !opts.skipASTOpt, !opts.skipPeephole, opts.comments)
}

// writePreprocessStage writes either the REM-stripped stage (-p) or the
// label-rewritten stage (-l) and exits without compiling further.
func writePreprocessStage(src, dest string, labels bool) error {
	pre := preprocess.Run(src)
	text := pre.RemStripped
	if labels {
		text = pre.Source
	}
	return os.WriteFile(dest, []byte(text), 0o644)
}

func timedCompile(ctx context.Context, src string, opts *driverOptions) (*thistle.Output, []diag.Diagnostic) {
	start := time.Now()
	out, diags := thistle.Compile(src, thistle.Options{
		SkipASTOpt:   opts.skipASTOpt,
		SkipPeephole: opts.skipPeephole,
		Comments:     opts.comments,
		IncludeLoader: func(path string) (string, error) {
			resolved := filepath.Join(filepath.Dir(opts.source), path)
			b, err := os.ReadFile(resolved)
			return string(b), err
		},
	})
	if opts.profile {
		log.Infof(ctx, "compile: %s", time.Since(start))
	}
	return out, diags
}

func printDiagnostics(diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.String())
	}
}

func printOptStats(out *thistle.Output) {
	fmt.Fprintf(os.Stderr, "ast: %d constants folded, %d identities folded, %d dead statements removed\n",
		out.AST.ConstantsFolded, out.AST.IdentitiesFolded, out.AST.DeadStatements)
	fmt.Fprintf(os.Stderr, "peephole: %d zero-add, %d one-mul, %d jump chains, %d dead-after-jump, %d const-folded\n",
		out.Peephole.ZeroAddRemoved, out.Peephole.OneMulRemoved, out.Peephole.JumpChainsFolded,
		out.Peephole.DeadAfterJump, out.Peephole.ConstFolded)
}
