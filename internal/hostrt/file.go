// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package hostrt

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/thistle-lang/thistle/bytebuffer"
	"github.com/thistle-lang/thistle/sets"
	"zombiezen.com/go/lua"
)

// openFileMode mirrors the tag luaemit's ir.OpOpen passes
// through Instr.I (the OPEN mode tag): INPUT/OUTPUT/APPEND are
// sequential text access, RANDOM and BINARY need Seek.
const (
	modeInput = iota
	modeOutput
	modeAppend
	modeRandom
	modeBinary
)

// openFile is one OPEN'd channel: the underlying seekable stream, its
// open mode, and an end-of-file flag for text-mode reads. The ":memory:" and ":temp:"
// sentinels get a bytebuffer-backed stream (see sentinelCreators); real
// paths get an *os.File, which already satisfies io.ReadWriteSeeker.
type openFile struct {
	rws  io.ReadWriteSeeker
	mode int
	eof  bool
}

// fileTable tracks every channel currently OPEN, keyed by BASIC file
// number.
type fileTable struct {
	byChannel map[int64]*openFile
}

func newFileTable() *fileTable {
	return &fileTable{}
}

func (h *Host) fileOpen(l *lua.State) (int, error) {
	path, err := lua.CheckString(l, 1)
	if err != nil {
		return 0, err
	}
	mode, err := lua.CheckInteger(l, 2)
	if err != nil {
		return 0, err
	}
	channel, err := lua.CheckInteger(l, 3)
	if err != nil {
		return 0, err
	}
	rws, err := h.files.open(path, int(mode))
	if err != nil {
		return 0, fmt.Errorf("file_open %q: %w", path, err)
	}
	h.files.set(channel, &openFile{rws: rws, mode: int(mode)})
	h.openCh.Add(uint(channel))
	return 0, nil
}

func (h *Host) fileClose(l *lua.State) (int, error) {
	channel, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	h.files.close(channel)
	h.openCh.Delete(uint(channel))
	return 0, nil
}

func (h *Host) fileCloseAll(l *lua.State) (int, error) {
	for ch := range h.openCh.All() {
		h.files.close(int64(ch))
	}
	h.openCh = sets.Bit{}
	return 0, nil
}

func (h *Host) filePrint(l *lua.State) (int, error) {
	channel, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	text, err := printText(l, 2, 3)
	if err != nil {
		return 0, err
	}
	f := h.files.get(channel)
	if f == nil {
		return 0, fmt.Errorf("file_print: channel %d not open", channel)
	}
	_, err = io.WriteString(f.rws, text)
	return 0, err
}

func (h *Host) fileWrite(l *lua.State) (int, error) {
	channel, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	text, err := writeQuotedFields(l, 2)
	if err != nil {
		return 0, err
	}
	f := h.files.get(channel)
	if f == nil {
		return 0, fmt.Errorf("file_write: channel %d not open", channel)
	}
	_, err = io.WriteString(f.rws, text)
	return 0, err
}

func (h *Host) fileLineInput(l *lua.State) (int, error) {
	channel, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	f := h.files.get(channel)
	if f == nil {
		return 0, fmt.Errorf("file_line_input: channel %d not open", channel)
	}
	line, err := readLine(f)
	if err == io.EOF {
		f.eof = true
	} else if err != nil {
		return 0, err
	}
	l.PushString(line)
	return 1, nil
}

func (h *Host) fileInput(l *lua.State) (int, error) {
	channel, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	n, err := lua.CheckInteger(l, 2)
	if err != nil {
		return 0, err
	}
	f := h.files.get(channel)
	if f == nil {
		return 0, fmt.Errorf("file_input: channel %d not open", channel)
	}
	line, err := readLine(f)
	if err == io.EOF {
		f.eof = true
	} else if err != nil {
		return 0, err
	}
	return pushCSVFields(l, line, int(n)), nil
}

func (h *Host) fileBget(l *lua.State) (int, error) {
	channel, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	f := h.files.get(channel)
	if f == nil {
		return 0, fmt.Errorf("file_bget: channel %d not open", channel)
	}
	var b [1]byte
	if _, err := io.ReadFull(f.rws, b[:]); err != nil {
		f.eof = true
		l.PushInteger(-1)
		return 1, nil
	}
	l.PushInteger(int64(b[0]))
	return 1, nil
}

func (h *Host) fileBput(l *lua.State) (int, error) {
	channel, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	v, err := lua.CheckInteger(l, 2)
	if err != nil {
		return 0, err
	}
	f := h.files.get(channel)
	if f == nil {
		return 0, fmt.Errorf("file_bput: channel %d not open", channel)
	}
	_, err = f.rws.Write([]byte{byte(v)})
	return 0, err
}

func (h *Host) fileEof(l *lua.State) (int, error) {
	channel, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	f := h.files.get(channel)
	l.PushBoolean(f == nil || f.eof)
	return 1, nil
}

func (h *Host) fileLoc(l *lua.State) (int, error) {
	channel, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	f := h.files.get(channel)
	if f == nil {
		return 0, fmt.Errorf("file_loc: channel %d not open", channel)
	}
	pos, err := f.rws.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	l.PushInteger(pos)
	return 1, nil
}

func (h *Host) fileLof(l *lua.State) (int, error) {
	channel, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	f := h.files.get(channel)
	if f == nil {
		return 0, fmt.Errorf("file_lof: channel %d not open", channel)
	}
	cur, err := f.rws.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := f.rws.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := f.rws.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	l.PushInteger(end)
	return 1, nil
}

func (h *Host) filePtr(l *lua.State) (int, error) {
	channel, err := lua.CheckInteger(l, 1)
	if err != nil {
		return 0, err
	}
	if l.Top() >= 2 {
		pos, err := lua.CheckInteger(l, 2)
		if err != nil {
			return 0, err
		}
		f := h.files.get(channel)
		if f == nil {
			return 0, fmt.Errorf("file_ptr: channel %d not open", channel)
		}
		if _, err := f.rws.Seek(pos, io.SeekStart); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return h.fileLoc(l)
}

func readLine(f *openFile) (string, error) {
	var sb strings.Builder
	var b [1]byte
	for {
		n, err := f.rws.Read(b[:])
		if n > 0 {
			if b[0] == '\n' {
				return sb.String(), nil
			}
			sb.WriteByte(b[0])
		}
		if err != nil {
			if err == io.EOF && sb.Len() > 0 {
				return sb.String(), nil
			}
			return sb.String(), err
		}
	}
}

func pushCSVFields(l *lua.State, line string, n int) int {
	fields := strings.SplitN(line, ",", n)
	for len(fields) < n {
		fields = append(fields, "")
	}
	for _, f := range fields[:n] {
		l.PushString(strings.TrimSpace(f))
	}
	return n
}

// writeQuotedFields renders the values table at valsIdx the way WRITE#
// does: comma-separated fields, string values doubled-quote
// ("" for an embedded "), numbers written bare.
func writeQuotedFields(l *lua.State, valsIdx int) (string, error) {
	n, err := lua.Len(l, valsIdx)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for i := int64(1); i <= n; i++ {
		if i > 1 {
			sb.WriteString(",")
		}
		l.RawIndex(valsIdx, i)
		if l.Type(-1) == lua.TypeString {
			v, _ := l.ToString(-1)
			sb.WriteString(`"`)
			sb.WriteString(strings.ReplaceAll(v, `"`, `""`))
			sb.WriteString(`"`)
		} else {
			v, _ := lua.ToString(l, -1)
			sb.WriteString(v)
		}
		l.Pop(1)
	}
	sb.WriteString("\n")
	return sb.String(), nil
}

// printText renders the values/separators tables luaemit's emitPrint
// and emitWrite build (two parallel Lua arrays at stack positions
// valsIdx and sepsIdx) into one terminal/file line, joining consecutive
// values with a tab for a comma separator. A numeric item gets the
// classic PRINT trailing space (the implicit sign column) only where
// the pad is visible as a number separator: before another numeric
// item, or at the end of a multi-item list. A lone value, or a number
// followed by string text, prints in Lua's tostring form with no pad.
func printText(l *lua.State, valsIdx, sepsIdx int) (string, error) {
	n, err := lua.Len(l, valsIdx)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for i := int64(1); i <= n; i++ {
		l.RawIndex(valsIdx, i)
		numeric := l.Type(-1) == lua.TypeNumber
		v, _ := lua.ToString(l, -1)
		l.Pop(1)
		sb.WriteString(v)
		l.RawIndex(sepsIdx, i)
		sep, _ := l.ToInteger(-1)
		l.Pop(1)
		switch sep {
		case ',':
			sb.WriteString("\t")
		case ';':
			if numeric && i < n {
				l.RawIndex(valsIdx, i+1)
				nextNumeric := l.Type(-1) == lua.TypeNumber
				l.Pop(1)
				if nextNumeric {
					sb.WriteString(" ")
				}
			}
		default:
			if numeric && n > 1 {
				sb.WriteString(" ")
			}
		}
	}
	sb.WriteString("\n")
	return sb.String(), nil
}

// The two sentinel paths OPEN accepts besides real filenames:
// ":memory:" is an in-process buffer (tests use it to stay off disk),
// ":temp:" is an anonymous scratch file removed when the channel is
// closed. Both go through the same [bytebuffer.Creator] seam.
var sentinelCreators = map[string]bytebuffer.Creator{
	":memory:": bytebuffer.BufferCreator{},
	":temp:":   bytebuffer.TempFileCreator{Pattern: "thistle-*"},
}

func (t *fileTable) open(path string, mode int) (io.ReadWriteSeeker, error) {
	if c, ok := sentinelCreators[path]; ok {
		return c.CreateBuffer(0)
	}
	var flag int
	switch mode {
	case modeOutput:
		flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case modeAppend:
		flag = os.O_RDWR | os.O_CREATE | os.O_APPEND
	default:
		flag = os.O_RDWR | os.O_CREATE
	}
	return os.OpenFile(path, flag, 0o644)
}

func (t *fileTable) set(channel int64, f *openFile) {
	if t.byChannel == nil {
		t.byChannel = map[int64]*openFile{}
	}
	t.byChannel[channel] = f
}

func (t *fileTable) get(channel int64) *openFile {
	if t.byChannel == nil {
		return nil
	}
	return t.byChannel[channel]
}

func (t *fileTable) close(channel int64) {
	f := t.get(channel)
	if f == nil {
		return
	}
	if closer, ok := f.rws.(io.Closer); ok {
		closer.Close()
	}
	delete(t.byChannel, channel)
}
