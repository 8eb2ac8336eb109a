// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

// Package thistle compiles BASIC source to Lua. Compile runs every
// phase in order -- preprocessing, lexing, parsing, semantic analysis,
// AST optimization, control-flow construction, IR generation, peephole
// optimization, and Lua emission -- returning the emitted chunk or the
// diagnostics that stopped it.
//
// Grounded in a single-entry-point pipeline glue pattern (NewEval/
// eval.go), adapted from "build one Eval and call methods on it" to a
// one-shot functional Compile, since nothing about BASIC-to-Lua
// compilation needs a long-lived cache connection at the call site
// (that lives in internal/cache instead).
package thistle

import (
	"github.com/thistle-lang/thistle/internal/astopt"
	"github.com/thistle-lang/thistle/internal/cfg"
	"github.com/thistle-lang/thistle/internal/constants"
	"github.com/thistle-lang/thistle/internal/data"
	"github.com/thistle-lang/thistle/internal/diag"
	"github.com/thistle-lang/thistle/internal/ir"
	"github.com/thistle-lang/thistle/internal/lex"
	"github.com/thistle-lang/thistle/internal/luaemit"
	"github.com/thistle-lang/thistle/internal/parser"
	"github.com/thistle-lang/thistle/internal/peephole"
	"github.com/thistle-lang/thistle/internal/preprocess"
	"github.com/thistle-lang/thistle/internal/registry"
	"github.com/thistle-lang/thistle/internal/sema"
	"github.com/thistle-lang/thistle/internal/token"
)

// Options configures a Compile call. The zero value compiles with
// OPTION BASE 0, boolean (non-bitwise) logical operators, and every
// optimization pass enabled.
type Options struct {
	// SkipASTOpt/SkipPeephole disable the two optional optimization
	// passes (the driver's --opt-ast/--opt-peep/--opt-all flags), for
	// comparing optimized and unoptimized output.
	SkipASTOpt   bool
	SkipPeephole bool
	// Comments carries the driver's -c flag through to
	// luaemit.Options.Comments; the emitter does not read it, so the
	// emitted Lua has no BASIC-line annotations.
	Comments bool
	// IncludeLoader resolves an INCLUDE directive's path to source
	// text; nil disables INCLUDE.
	IncludeLoader func(path string) (string, error)
	// Registry supplies the command/function registry, letting a host
	// register plugin commands before compilation begins. Nil means the
	// built-in set alone. Compile marks the registry initialized, so
	// registration attempts made while a compile is running fail loudly.
	Registry *registry.Registry
}

// Output is everything a successful Compile produces.
type Output struct {
	Lua       string
	AST       astopt.Stats
	Peephole  peephole.Stats
	Warnings  []string
	Constants *constants.Store
	Data      *data.Segment
}

// Compile runs the full pipeline over src and returns the emitted Lua
// chunk, or nil and the diagnostics that stopped compilation. Compile
// never panics on malformed BASIC source; a [diag.Diagnostic] of kind
// [diag.CompilerBug] reports anything the earlier phases should have
// caught but didn't.
func Compile(src string, opts Options) (*Output, []diag.Diagnostic) {
	pre := preprocess.Run(src)

	consts := constants.NewPreloaded()
	reg := opts.Registry
	if reg == nil {
		reg = registry.NewBuiltins()
	}
	reg.MarkInitialized()

	diags := &diag.List{}
	scanner := lex.New(pre.Source, reg)
	toks, lexErrs := scanner.ScanAll()
	for _, e := range lexErrs {
		diags.Add(diag.LexError, pre.LineMap, token.Position{}, "%v", e)
	}

	p := parser.New(toks, reg, consts, pre.LineMap)
	if opts.IncludeLoader != nil {
		p.SetIncludeLoader(opts.IncludeLoader)
	}
	prog, ok := p.Parse()
	all := append(diags.All(), p.Diagnostics()...)
	if !ok || hasErrors(all) {
		return nil, all
	}

	analyzer := sema.New(reg, pre.LineMap, diags)
	syms := analyzer.Analyze(prog)
	all = append(diags.All(), p.Diagnostics()...)
	if hasErrors(all) {
		return nil, all
	}

	var astStats astopt.Stats
	if !opts.SkipASTOpt {
		astStats = astopt.Optimize(prog, astopt.Options{Fold: true, DeadCode: true})
	}

	graph := cfg.Build(prog.Statements)
	seg := data.New(pre.Data, pre.LineRestore, pre.LabelRestore)

	gen := ir.New(consts, syms)
	irProg := gen.GenerateProgram(graph, seg)

	var peepStats peephole.Stats
	if !opts.SkipPeephole {
		peepStats = peephole.Optimize(irProg, peephole.Options{})
	}

	emitter := luaemit.New(reg, luaemit.Options{
		Base:     prog.Options.Base,
		Bitwise:  prog.Options.Bitwise,
		Comments: opts.Comments,
	})
	luaSrc, err := emitter.Emit(irProg)
	if err != nil {
		diags.Add(diag.CompilerBug, pre.LineMap, token.Position{}, "emit: %v", err)
		return nil, append(diags.All(), p.Diagnostics()...)
	}

	return &Output{
		Lua:       luaSrc,
		AST:       astStats,
		Peephole:  peepStats,
		Warnings:  pre.Warnings,
		Constants: consts,
		Data:      seg,
	}, append(diags.All(), p.Diagnostics()...)
}

// hasErrors reports whether ds contains any diagnostic more severe
// than a warning.
func hasErrors(ds []diag.Diagnostic) bool {
	for _, d := range ds {
		if d.Kind != diag.Warning {
			return true
		}
	}
	return false
}
