// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package hostrt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"zombiezen.com/go/lua"
)

// terminalState holds the console's cursor position and color state
// for the terminal_* call family, plus a buffered stdin reader for
// terminal_input/terminal_line_input/terminal_inkey.
type terminalState struct {
	out   *bufio.Writer
	in    *bufio.Reader
	row   int
	col   int
	fg    int
	bg    int
	keyed map[int]string
}

func newTerminalState(stdin io.Reader, stdout io.Writer) *terminalState {
	return &terminalState{
		out:   bufio.NewWriter(stdout),
		in:    bufio.NewReader(stdin),
		keyed: map[int]string{},
	}
}

func (h *Host) terminalCls(l *lua.State) (int, error) {
	h.term.out.WriteString("\x1b[2J\x1b[H")
	h.term.row, h.term.col = 0, 0
	return 0, h.term.out.Flush()
}

func (h *Host) terminalLocate(l *lua.State) (int, error) {
	row, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	col, err := lua.CheckInteger(l, 2)
	if err != nil {
		return 0, err
	}
	h.term.row, h.term.col = int(row), int(col)
	fmt.Fprintf(h.term.out, "\x1b[%d;%dH", row, col)
	return 0, h.term.out.Flush()
}

func (h *Host) terminalPrint(l *lua.State) (int, error) {
	text, err := printText(l, 1, 2)
	if err != nil {
		return 0, err
	}
	h.term.out.WriteString(text)
	return 0, h.term.out.Flush()
}

func (h *Host) terminalInput(l *lua.State) (int, error) {
	prompt, err := lua.CheckString(l, 1)
	if err != nil {
		return 0, err
	}
	n, err := lua.CheckInteger(l, 2)
	if err != nil {
		return 0, err
	}
	if prompt != "" {
		h.term.out.WriteString(prompt)
		h.term.out.Flush()
	}
	line, err := h.term.in.ReadString('\n')
	if err != nil && line == "" {
		return 0, err
	}
	line = strings.TrimRight(line, "\r\n")
	return pushCSVFields(l, line, int(n)), nil
}

func (h *Host) terminalLineInput(l *lua.State) (int, error) {
	prompt, err := lua.CheckString(l, 1)
	if err != nil {
		return 0, err
	}
	if prompt != "" {
		h.term.out.WriteString(prompt)
		h.term.out.Flush()
	}
	line, err := h.term.in.ReadString('\n')
	if err != nil && line == "" {
		return 0, err
	}
	l.PushString(strings.TrimRight(line, "\r\n"))
	return 1, nil
}

func (h *Host) terminalInkey(l *lua.State) (int, error) {
	if h.term.in.Buffered() == 0 {
		l.PushString("")
		return 1, nil
	}
	b, err := h.term.in.ReadByte()
	if err != nil {
		l.PushString("")
		return 1, nil
	}
	l.PushString(string(rune(b)))
	return 1, nil
}

func (h *Host) terminalKey(l *lua.State) (int, error) {
	n, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	text, err := lua.CheckString(l, 2)
	if err != nil {
		return 0, err
	}
	h.term.keyed[int(n)] = text
	return 0, nil
}

func (h *Host) terminalBeep(l *lua.State) (int, error) {
	h.term.out.WriteString("\a")
	return 0, h.term.out.Flush()
}

func (h *Host) terminalSetColor(l *lua.State) (int, error) {
	fg, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	bg, err := lua.CheckInteger(l, 2)
	if err != nil {
		return 0, err
	}
	h.term.fg, h.term.bg = int(fg), int(bg)
	fmt.Fprintf(h.term.out, "\x1b[%d;%dm", 30+fg%8, 40+bg%8)
	return 0, h.term.out.Flush()
}

func (h *Host) terminalResetColors(l *lua.State) (int, error) {
	h.term.out.WriteString("\x1b[0m")
	h.term.fg, h.term.bg = 0, 0
	return 0, h.term.out.Flush()
}

func (h *Host) terminalWidth(l *lua.State) (int, error) {
	l.PushInteger(80)
	return 1, nil
}

func (h *Host) terminalHeight(l *lua.State) (int, error) {
	l.PushInteger(24)
	return 1, nil
}
