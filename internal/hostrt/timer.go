// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package hostrt

import (
	"fmt"
	"time"

	"zombiezen.com/go/lua"
)

// Timer unit wire encoding shared with the compiler's timer lowering
// (0 frames, 1 milliseconds); SECS registrations arrive pre-scaled to
// milliseconds.
const (
	timerUnitFrames = iota
	timerUnitMs
)

type activeTimer struct {
	id            int64
	name          string
	repeating     bool
	duration      float64
	unit          int
	deadline      time.Time
	deadlineFrame int64
	handler       string
}

// timerTable tracks every registered ON TIMER handler. Firing happens
// only inside waitMs/waitFrame/waitFrames; no other host function
// fires handlers.
type timerTable struct {
	next   int64
	byID   map[int64]*activeTimer
	byName map[string]*activeTimer
}

func newTimerTable() *timerTable {
	return &timerTable{byID: map[int64]*activeTimer{}, byName: map[string]*activeTimer{}}
}

func (h *Host) timerRegister(l *lua.State) (int, error) {
	dur, ok := l.ToNumber(1)
	if !ok {
		return 0, fmt.Errorf("basic_timer_register: duration must be a number")
	}
	unit, err := lua.CheckInteger(l, 2)
	if err != nil {
		return 0, err
	}
	repeating := l.ToBoolean(3)
	handler, err := lua.CheckString(l, 4)
	if err != nil {
		return 0, err
	}

	h.timers.next++
	t := &activeTimer{
		id:        h.timers.next,
		name:      handler,
		repeating: repeating,
		duration:  dur,
		unit:      int(unit),
		handler:   handler,
	}
	if unit == timerUnitMs {
		t.deadline = h.now().Add(time.Duration(dur * float64(time.Millisecond)))
	} else {
		t.deadlineFrame = h.frame + int64(dur)
	}
	h.timers.byID[t.id] = t
	h.timers.byName[handler] = t

	l.PushInteger(t.id)
	return 1, nil
}

func (h *Host) timerStop(l *lua.State) (int, error) {
	id, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	if t, ok := h.timers.byID[id]; ok {
		delete(h.timers.byID, id)
		delete(h.timers.byName, t.name)
	}
	return 0, nil
}

func (h *Host) timerStopByName(l *lua.State) (int, error) {
	name, err := lua.CheckString(l, 1)
	if err != nil {
		return 0, err
	}
	if t, ok := h.timers.byName[name]; ok {
		delete(h.timers.byID, t.id)
		delete(h.timers.byName, name)
	}
	return 0, nil
}

func (h *Host) timerStopAll(l *lua.State) (int, error) {
	h.timers.byID = map[int64]*activeTimer{}
	h.timers.byName = map[string]*activeTimer{}
	return 0, nil
}

// DueTimers returns the Lua global handler names of every ms-unit
// timer whose deadline has passed as of now, advancing repeating
// timers' deadlines and removing one-shot timers. waitMs calls this
// after sleeping and invokes each returned name as a zero-argument
// Lua call.
func (h *Host) DueTimers(now time.Time) []string {
	var due []string
	for _, t := range h.timers.byID {
		if t.unit != timerUnitMs || t.deadline.After(now) {
			continue
		}
		due = append(due, t.handler)
		if t.repeating {
			t.deadline = now.Add(time.Duration(t.duration * float64(time.Millisecond)))
		} else {
			delete(h.timers.byID, t.id)
			delete(h.timers.byName, t.name)
		}
	}
	return due
}

// dueFrameTimers returns the handler names of every frame-unit timer
// due at the current frame count, advancing repeating timers and
// removing one-shot ones. waitFrame/waitFrames call this after
// incrementing h.frame.
func (h *Host) dueFrameTimers() []string {
	var due []string
	for _, t := range h.timers.byID {
		if t.unit != timerUnitFrames || t.deadlineFrame > h.frame {
			continue
		}
		due = append(due, t.handler)
		if t.repeating {
			t.deadlineFrame = h.frame + int64(t.duration)
		} else {
			delete(h.timers.byID, t.id)
			delete(h.timers.byName, t.name)
		}
	}
	return due
}

// fireHandlers invokes each named Lua global as a zero-argument,
// zero-result call, skipping any name that is not (or is no longer) a
// function global.
func fireHandlers(l *lua.State, names []string) error {
	for _, name := range names {
		tp, err := l.Global(name, 0)
		if err != nil {
			return err
		}
		if tp != lua.TypeFunction {
			l.Pop(1)
			continue
		}
		if err := l.Call(0, 0, 0); err != nil {
			return err
		}
	}
	return nil
}
