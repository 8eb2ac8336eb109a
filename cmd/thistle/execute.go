// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/thistle-lang/thistle"
	"github.com/thistle-lang/thistle/internal/hostrt"
	"golang.org/x/sync/errgroup"
	"zombiezen.com/go/log"
	"zombiezen.com/go/lua"
)

// execute loads out.Lua into a fresh Lua state with every host
// operation registered, then runs it to completion. Due ON TIMER
// handlers fire from inside wait_frame/WAIT_FRAMES/wait_ms themselves
// (see internal/hostrt), since those are the only points execution
// returns to Go during a run.
//
// The run and the interrupt watcher are coordinated with an
// errgroup: Ctrl+C cancels the group context, the watcher flips the
// host's stop flag, and the running chunk raises at its next yield
// site. The Lua state itself is only ever touched from the run
// goroutine.
func execute(ctx context.Context, out *thistle.Output, opts *driverOptions) error {
	start := time.Now()

	l := new(lua.State)
	if err := lua.OpenLibraries(l); err != nil {
		return fmt.Errorf("open Lua libraries: %w", err)
	}

	host := hostrt.New()
	host.LoadConstants(out.Constants)
	if err := host.Register(l); err != nil {
		return fmt.Errorf("register host runtime: %w", err)
	}

	stopCtx, stopListening := signal.NotifyContext(ctx, os.Interrupt)
	defer stopListening()

	grp, grpCtx := errgroup.WithContext(stopCtx)
	done := make(chan struct{})
	grp.Go(func() error {
		select {
		case <-grpCtx.Done():
			host.Stop()
		case <-done:
		}
		return nil
	})
	grp.Go(func() error {
		defer close(done)
		if err := l.LoadString(out.Lua, opts.source, "t"); err != nil {
			return fmt.Errorf("load compiled chunk: %w", err)
		}
		return l.Call(0, 0, 0)
	})
	runErr := grp.Wait()

	if opts.timeExecution || opts.profile {
		log.Infof(ctx, "execute: %s", time.Since(start))
	}
	if runErr != nil {
		if hostrt.IsStop(runErr) {
			return errInterrupted
		}
		return fmt.Errorf("runtime error: %w", runErr)
	}
	return nil
}

var errInterrupted = fmt.Errorf("interrupted by user")

func isInterrupted(err error) bool {
	return err == errInterrupted
}
