// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package hostrt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"zombiezen.com/go/lua"
)

// chrString implements CHR$: integer character code to a one-byte
// string. BASIC's CHR$ operates on byte values, not runes.
func chrString(l *lua.State) (int, error) {
	n, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("CHR$: illegal function call")
	}
	l.PushString(string([]byte{byte(n)}))
	return 1, nil
}

// asc implements ASC: first byte of a string as an integer.
func asc(l *lua.State) (int, error) {
	s, err := lua.CheckString(l, 1)
	if err != nil {
		return 0, err
	}
	if s == "" {
		return 0, fmt.Errorf("ASC: illegal function call")
	}
	l.PushInteger(int64(s[0]))
	return 1, nil
}

// strString implements STR$: numeric to string, with BASIC's
// leading-space-for-non-negative convention.
func strString(l *lua.State) (int, error) {
	if l.IsInteger(1) {
		n, _ := l.ToInteger(1)
		if n >= 0 {
			l.PushString(" " + strconv.FormatInt(n, 10))
		} else {
			l.PushString(strconv.FormatInt(n, 10))
		}
		return 1, nil
	}
	n, ok := l.ToNumber(1)
	if !ok {
		return 0, fmt.Errorf("STR$: argument must be a number")
	}
	s := strconv.FormatFloat(n, 'g', -1, 64)
	if n >= 0 {
		s = " " + s
	}
	l.PushString(s)
	return 1, nil
}

// val implements VAL: leading numeric prefix of a string parsed as a
// number, 0 if no prefix parses.
func val(l *lua.State) (int, error) {
	s, err := lua.CheckString(l, 1)
	if err != nil {
		return 0, err
	}
	s = strings.TrimLeft(s, " \t")
	end := 0
	seenDot, seenDigit := false, false
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case c == '.' && !seenDot:
			seenDot = true
		case (c == '+' || c == '-') && end == 0:
		default:
			goto done
		}
		end++
	}
done:
	if !seenDigit {
		l.PushNumber(0)
		return 1, nil
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		l.PushNumber(0)
		return 1, nil
	}
	l.PushNumber(n)
	return 1, nil
}

// hexString implements HEX$: integer to uppercase hexadecimal text.
func hexString(l *lua.State) (int, error) {
	n, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	l.PushString(strings.ToUpper(strconv.FormatInt(n, 16)))
	return 1, nil
}

// binString implements BIN$: integer to binary text.
func binString(l *lua.State) (int, error) {
	n, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	l.PushString(strconv.FormatInt(n, 2))
	return 1, nil
}

// octString implements OCT$: integer to octal text.
func octString(l *lua.State) (int, error) {
	n, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	l.PushString(strconv.FormatInt(n, 8))
	return 1, nil
}

// waitFrame/waitFrames/waitMs/basicSleep are the yield primitives the
// emitter's WAIT_FRAMES/WAIT_MS statements call immediately before
// their cooperative check_should_stop probe; the host actually
// performs the wait here since Lua has no native sleep.

func (h *Host) waitFrame(l *lua.State) (int, error) {
	h.frame++
	return 0, fireHandlers(l, h.dueFrameTimers())
}

func (h *Host) waitFrames(l *lua.State) (int, error) {
	n, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	for i := int64(0); i < n; i++ {
		if h.stopped {
			return 0, stopError{}
		}
		h.frame++
		if err := fireHandlers(l, h.dueFrameTimers()); err != nil {
			return 0, err
		}
	}
	return 0, nil
}

func (h *Host) waitMs(l *lua.State) (int, error) {
	ms, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
	return 0, fireHandlers(l, h.DueTimers(h.now()))
}

func (h *Host) basicSleep(l *lua.State) (int, error) {
	return h.waitMs(l)
}
