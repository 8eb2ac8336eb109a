// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package main

import "github.com/spf13/cobra"

// driverOptions collects every flag the driver recognizes. The zero
// value matches the default behavior: compile and execute, no tracing.
type driverOptions struct {
	source string

	outputLua    string // -o
	preprocessOut string // -p
	labelOut     string // -l
	formatOut    string // --fmt

	timeExecution bool // -t
	comments      bool // -c
	verbose       bool // -v/--verbose
	profile       bool // --profile

	skipASTOpt   bool // --opt-ast disables AST folding (inverted below)
	skipPeephole bool // --opt-peep disables peephole passes (inverted below)
	optStats     bool // --opt-stats

	cacheDB string // --cache, path to the compile memoization database
	json    bool   // --json, structured diagnostics/stats on stdout
}

func registerFlags(c *cobra.Command, opts *driverOptions) {
	f := c.Flags()
	f.StringVarP(&opts.outputLua, "output", "o", "", "compile to Lua `file` only, do not execute")
	f.StringVarP(&opts.preprocessOut, "preprocess", "p", "", "write REM-stripped source to `file` and exit")
	f.StringVarP(&opts.labelOut, "labels", "l", "", "write label-rewritten source to `file` and exit")
	f.StringVar(&opts.formatOut, "fmt", "", "write case-normalized, indented source to `file` and exit")
	f.BoolVarP(&opts.timeExecution, "time", "t", false, "time execution")
	f.BoolVarP(&opts.comments, "comments", "c", false, "emit comments in generated Lua")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "show debugging output")
	f.BoolVar(&opts.profile, "profile", false, "log phase timings")
	f.StringVar(&opts.cacheDB, "cache", defaultCacheDB(), "`path` to the compile memoization database, empty disables caching")
	f.BoolVar(&opts.json, "json", false, "print diagnostics and optimizer statistics as JSON instead of text")

	var disableASTOpt, disablePeephole, disableAll bool
	f.BoolVar(&disableASTOpt, "opt-ast", false, "disable the AST optimizer (constant folding, dead code)")
	f.BoolVar(&disablePeephole, "opt-peep", false, "disable the peephole optimizer")
	f.BoolVar(&disableAll, "opt-all", false, "disable every optimization pass")
	f.BoolVar(&opts.optStats, "opt-stats", false, "print optimizer statistics")

	c.PreRunE = chainPreRunE(c.PreRunE, func(*cobra.Command, []string) error {
		opts.skipASTOpt = disableASTOpt || disableAll
		opts.skipPeephole = disablePeephole || disableAll
		return nil
	})
}

func chainPreRunE(first, second func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if first != nil {
			if err := first(cmd, args); err != nil {
				return err
			}
		}
		return second(cmd, args)
	}
}
