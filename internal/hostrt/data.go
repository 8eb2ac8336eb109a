// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package hostrt

import (
	"fmt"

	"github.com/thistle-lang/thistle/internal/constants"
	"zombiezen.com/go/lua"
)

// dataSectionKind mirrors the tag luaemit's emitDataSegment writes as
// the first element of every __DATA row (dataSectionKind in
// internal/luaemit/prelude.go): 0 int, 1 double, 2 string.
const (
	dataKindInt = iota
	dataKindDouble
	dataKindString
)

type dataValue struct {
	kind int
	i    int64
	f    float64
	s    string
}

// dataState is the host-side mirror of the emitted __DATA tables: a
// read cursor over an ordered value vector plus the two restore-point
// maps, matching the wire format the Lua emitter serializes.
type dataState struct {
	values       []dataValue
	lineRestore  map[int64]int64
	labelRestore map[string]int64
	cursor       int
}

func newDataState() *dataState {
	return &dataState{lineRestore: map[int64]int64{}, labelRestore: map[string]int64{}}
}

// dataInit parses the three Lua tables data_init receives (__DATA,
// __DATA_LINE_RESTORE, __DATA_LABEL_RESTORE) into the host's dataState.
func (h *Host) dataInit(l *lua.State) (int, error) {
	values, err := readDataValues(l, 1)
	if err != nil {
		return 0, err
	}
	lineRestore, err := readIntKeyedTable(l, 2)
	if err != nil {
		return 0, err
	}
	labelRestore, err := readStringKeyedTable(l, 3)
	if err != nil {
		return 0, err
	}
	h.data = &dataState{values: values, lineRestore: lineRestore, labelRestore: labelRestore}
	return 0, nil
}

func readDataValues(l *lua.State, idx int) ([]dataValue, error) {
	n, err := lua.Len(l, idx)
	if err != nil {
		return nil, err
	}
	out := make([]dataValue, 0, n)
	for i := int64(1); i <= n; i++ {
		l.RawIndex(idx, i)
		row := l.AbsIndex(-1)
		l.RawIndex(row, 1)
		kind, _ := l.ToInteger(-1)
		l.Pop(1)
		l.RawIndex(row, 2)
		var v dataValue
		v.kind = int(kind)
		switch v.kind {
		case dataKindString:
			v.s, _ = l.ToString(-1)
		case dataKindDouble:
			v.f, _ = l.ToNumber(-1)
		default:
			v.i, _ = l.ToInteger(-1)
		}
		l.Pop(2) // value, row
		out = append(out, v)
	}
	return out, nil
}

func readIntKeyedTable(l *lua.State, idx int) (map[int64]int64, error) {
	out := map[int64]int64{}
	l.PushNil()
	for l.Next(idx) {
		k, _ := l.ToInteger(-2)
		v, _ := l.ToInteger(-1)
		out[k] = v
		l.Pop(1)
	}
	return out, nil
}

func readStringKeyedTable(l *lua.State, idx int) (map[string]int64, error) {
	out := map[string]int64{}
	l.PushNil()
	for l.Next(idx) {
		k, _ := l.ToString(-2)
		v, _ := l.ToInteger(-1)
		out[k] = v
		l.Pop(1)
	}
	return out, nil
}

func (h *Host) dataReadNext(l *lua.State) (dataValue, error) {
	if h.data.cursor >= len(h.data.values) {
		return dataValue{}, fmt.Errorf("OUT OF DATA")
	}
	v := h.data.values[h.data.cursor]
	h.data.cursor++
	return v, nil
}

func (h *Host) dataReadInt(l *lua.State) (int, error) {
	v, err := h.dataReadNext(l)
	if err != nil {
		return 0, err
	}
	switch v.kind {
	case dataKindDouble:
		l.PushInteger(int64(v.f))
	case dataKindString:
		return 0, fmt.Errorf("type mismatch reading DATA as INTEGER")
	default:
		l.PushInteger(v.i)
	}
	return 1, nil
}

func (h *Host) dataReadDouble(l *lua.State) (int, error) {
	v, err := h.dataReadNext(l)
	if err != nil {
		return 0, err
	}
	switch v.kind {
	case dataKindInt:
		l.PushNumber(float64(v.i))
	case dataKindString:
		return 0, fmt.Errorf("type mismatch reading DATA as DOUBLE")
	default:
		l.PushNumber(v.f)
	}
	return 1, nil
}

func (h *Host) dataReadString(l *lua.State) (int, error) {
	v, err := h.dataReadNext(l)
	if err != nil {
		return 0, err
	}
	switch v.kind {
	case dataKindInt:
		l.PushString(fmt.Sprintf("%d", v.i))
	case dataKindDouble:
		l.PushString(fmt.Sprintf("%g", v.f))
	default:
		l.PushString(v.s)
	}
	return 1, nil
}

func (h *Host) dataRestore(l *lua.State) (int, error) {
	h.data.cursor = 0
	return 0, nil
}

func (h *Host) dataRestoreToLine(l *lua.State) (int, error) {
	n, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	idx, ok := h.data.lineRestore[n]
	if !ok {
		return 0, fmt.Errorf("RESTORE to undefined line %d", n)
	}
	h.data.cursor = int(idx)
	return 0, nil
}

func (h *Host) dataRestoreToLabel(l *lua.State) (int, error) {
	name, err := lua.CheckString(l, 1)
	if err != nil {
		return 0, err
	}
	idx, ok := h.data.labelRestore[name]
	if !ok {
		return 0, fmt.Errorf("RESTORE to undefined label %q", name)
	}
	h.data.cursor = int(idx)
	return 0, nil
}

func (h *Host) constantsGet(l *lua.State) (int, error) {
	idx, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	if idx < 0 || int(idx) >= len(h.consts) {
		return 0, fmt.Errorf("constants_get: index %d out of range", idx)
	}
	c := h.consts[idx]
	switch c.kind {
	case dataKindString:
		l.PushString(c.s)
	case dataKindDouble:
		l.PushNumber(c.f)
	default:
		l.PushInteger(c.i)
	}
	return 1, nil
}

// constValue is the host-side constant pool entry, set by the driver
// from the compiler's constants.Store before running the program.
type constValue = dataValue

// LoadConstants installs the constant pool the compiler resolved
// (constants.Store) so constants_get can answer calls the emitted
// OpPushConst instruction makes. The driver calls this once,
// after a successful Compile and before running the emitted chunk.
func (h *Host) LoadConstants(store *constants.Store) {
	values := make([]dataValue, store.Len())
	for i := range values {
		v := store.At(i)
		switch v.Kind() {
		case constants.StringKind:
			values[i] = dataValue{kind: dataKindString, s: v.String()}
		case constants.DoubleKind:
			f, _ := v.Double()
			values[i] = dataValue{kind: dataKindDouble, f: f}
		default:
			n, _ := v.Int()
			values[i] = dataValue{kind: dataKindInt, i: n}
		}
	}
	h.consts = values
}
