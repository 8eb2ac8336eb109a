// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

// Package hostrt implements the host operations the emitted Lua chunk
// calls back into: terminal I/O, file I/O, timers, the DATA segment
// reader, the constant pool accessor, and the cooperative
// check_should_stop yield probe. Nothing here is emitted Lua text --
// luaemit only ever writes the call site; hostrt supplies what answers
// it.
//
// Host-backed globals are registered into a *lua.State with
// lua.SetFuncs and a closure receiver: Host plays the role of the
// receiver whose bound methods become the registered Function values.
package hostrt

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/thistle-lang/thistle/sets"
	"zombiezen.com/go/lua"
)

// Host holds every piece of state the registered host functions close
// over: open file channels, active timers, the DATA cursor, the
// constant pool, and the stop flag the driver sets to interrupt a
// running program cooperatively.
type Host struct {
	term    *terminalState
	files   *fileTable
	timers  *timerTable
	data    *dataState
	consts  []constValue
	openCh  sets.Bit
	stopped bool
	frame   int64

	// Now, when non-nil, replaces time.Now for WAIT_MS/basic_sleep
	// timing in tests.
	Now func() time.Time
}

// New returns a Host ready to [Host.Register] into a fresh *lua.State,
// wired to the process's real stdin/stdout.
func New() *Host {
	return NewWithIO(os.Stdin, os.Stdout)
}

// NewWithIO is [New], but with terminal_* I/O directed at stdin/stdout
// instead of the process's own -- tests use this to exercise PRINT/
// INPUT without touching the real console.
func NewWithIO(stdin io.Reader, stdout io.Writer) *Host {
	return &Host{
		term:   newTerminalState(stdin, stdout),
		files:  newFileTable(),
		timers: newTimerTable(),
		data:   newDataState(),
	}
}

// Stop requests that the next check_should_stop call return true,
// causing the emitted WAIT*/loop-back-edge probe to raise the
// sentinel stopError the driver recognizes as a clean interrupt.
func (h *Host) Stop() {
	h.stopped = true
}

// stopError is the error check_should_stop raises to unwind the Lua
// call stack when the host has asked the program to stop. The driver
// (cmd/thistle) recognizes it and exits cleanly rather than reporting
// a runtime fault: Ctrl+C sets the interrupt flag, and the next yield
// site raises "interrupted by user".
type stopError struct{}

func (stopError) Error() string { return "interrupted by user" }

// IsStop reports whether err is (or, having been round-tripped through
// a Lua error object, carries the message of) the sentinel
// check_should_stop raises. A message-based check is needed because
// Call returns the error object Lua caught, not necessarily the
// original Go error value.
func IsStop(err error) bool {
	if _, ok := err.(stopError); ok {
		return true
	}
	return err != nil && strings.Contains(err.Error(), stopError{}.Error())
}

func (h *Host) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Register installs every host function into l's globals; the constant
// pool itself is not copied into globals. l must already have the standard libraries loaded (the
// driver calls lua.OpenLibraries first, matching eval.go's sequence).
func (h *Host) Register(l *lua.State) error {
	fns := map[string]lua.Function{
		"check_should_stop": h.checkShouldStop,
		"constants_get":     h.constantsGet,

		"wait_frame":  h.waitFrame,
		"WAIT_FRAMES": h.waitFrames,
		"wait_ms":     h.waitMs,
		"basic_sleep": h.basicSleep,

		"CHR_STRING": chrString,
		"ASC":        asc,
		"STR_STRING": strString,
		"VAL":        val,
		"HEX_STRING": hexString,
		"BIN_STRING": binString,
		"OCT_STRING": octString,

		"basic_timer_register":   h.timerRegister,
		"basic_timer_stop":       h.timerStop,
		"basic_timer_stop_by_name": h.timerStopByName,
		"basic_timer_stop_all":   h.timerStopAll,

		"terminal_cls":           h.terminalCls,
		"terminal_locate":        h.terminalLocate,
		"terminal_print":         h.terminalPrint,
		"terminal_input":         h.terminalInput,
		"terminal_line_input":    h.terminalLineInput,
		"terminal_inkey":         h.terminalInkey,
		"terminal_key":           h.terminalKey,
		"terminal_beep":          h.terminalBeep,
		"terminal_set_color":     h.terminalSetColor,
		"terminal_reset_colors":  h.terminalResetColors,
		"terminal_width":         h.terminalWidth,
		"terminal_height":        h.terminalHeight,

		"file_open":       h.fileOpen,
		"file_close":      h.fileClose,
		"file_close_all":  h.fileCloseAll,
		"file_line_input": h.fileLineInput,
		"file_input":      h.fileInput,
		"file_print":      h.filePrint,
		"file_bget":       h.fileBget,
		"file_bput":       h.fileBput,
		"file_write":      h.fileWrite,
		"file_eof":        h.fileEof,
		"file_loc":        h.fileLoc,
		"file_lof":        h.fileLof,
		"file_ptr":        h.filePtr,

		"data_init":             h.dataInit,
		"data_read_int":         h.dataReadInt,
		"data_read_double":      h.dataReadDouble,
		"data_read_string":      h.dataReadString,
		"data_restore":          h.dataRestore,
		"data_restore_to_line":  h.dataRestoreToLine,
		"data_restore_to_label": h.dataRestoreToLabel,
	}
	return lua.SetFuncs(l, 0, fns)
}

// checkShouldStop is the cooperative yield probe the IR generator
// emits at every loop back-edge and WAIT* statement. It never blocks;
// it only reports a host-initiated stop request.
func (h *Host) checkShouldStop(l *lua.State) (int, error) {
	if h.stopped {
		return 0, stopError{}
	}
	return 0, nil
}
