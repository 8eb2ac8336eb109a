// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

// Command thistle compiles and runs BASIC programs. It is a single
// cobra.Command with no subcommands: the root command itself carries
// every flag, since the driver has exactly one job (compile, optionally
// execute).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"go4.org/xdgdir"
	"zombiezen.com/go/log"
)

// defaultCacheDB picks an XDG cache directory, namespaced by program
// name, the way a well-behaved CLI tool defaults a cache location.
func defaultCacheDB() string {
	return filepath.Join(xdgdir.Cache.Path(), "thistle", "compile-cache.db")
}

// thistleVersion is filled in by the linker (e.g. -ldflags "-X main.thistleVersion=1.2.3").
var thistleVersion string

func main() {
	opts := new(driverOptions)

	rootCommand := &cobra.Command{
		Use:                   "thistle [options] SOURCE",
		Short:                 "compile and run BASIC programs via Lua",
		DisableFlagsInUseLine: true,
		Args:                  cobra.MaximumNArgs(1),
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	registerFlags(rootCommand, opts)

	showVersion := false
	rootCommand.Flags().BoolVar(&showVersion, "version", false, "print version information and exit")

	rootCommand.RunE = func(cmd *cobra.Command, args []string) error {
		initLogging(opts.verbose)
		if showVersion {
			printVersion()
			return nil
		}
		if len(args) == 0 {
			return fmt.Errorf("thistle: missing source file")
		}
		opts.source = args[0]
		return run(cmd.Context(), opts)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCommand.ExecuteContext(ctx)
	cancel()
	if err != nil {
		if isInterrupted(err) {
			// A Ctrl+C interrupt is an expected exit path, not a
			// reported failure.
			os.Exit(1)
		}
		initLogging(opts.verbose)
		log.Errorf(context.Background(), "%v", err)
		os.Exit(1)
	}
}

func printVersion() {
	if thistleVersion == "" {
		fmt.Println("thistle (version unknown)")
		return
	}
	fmt.Println("thistle version " + thistleVersion)
}

var initLogOnce sync.Once

func initLogging(verbose bool) {
	initLogOnce.Do(func() {
		minLevel := log.Info
		if verbose {
			minLevel = log.Debug
		}
		log.SetDefault(&log.LevelFilter{
			Min:    minLevel,
			Output: log.New(os.Stderr, "thistle: ", log.StdFlags, nil),
		})
	})
}
