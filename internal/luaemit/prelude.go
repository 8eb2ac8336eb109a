// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package luaemit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thistle-lang/thistle/internal/constants"
	"github.com/thistle-lang/thistle/internal/data"
)

// prelude is emitted verbatim at the top of every compiled unit. It
// supplies the small amount of runtime plumbing that has no natural
// host-provided equivalent (boolean/truthiness coercion, the GOSUB
// return-address stack, array allocation) without reaching for host
// operations reserved for genuinely external concerns (terminal,
// file, timer, DATA).
const prelude = `-- Code below this line is generated; edits will be overwritten.
local function __truthy(x)
	return x ~= 0
end

local function __bool(x)
	if x then
		return -1
	end
	return 0
end

local __gosub_stack = {}

local function __make_nd_array(dims, idx, fill)
	idx = idx or 1
	local n = dims[idx]
	local t = {}
	if idx == #dims then
		for i = 1, n do
			t[i] = fill
		end
	else
		for i = 1, n do
			t[i] = __make_nd_array(dims, idx + 1, fill)
		end
	end
	return t
end
`

// dataSectionKind mirrors constants.Kind's iota order; the host-side
// DATA loader switches on the same three tags.
func dataSectionKind(k constants.Kind) int {
	switch k {
	case constants.IntKind:
		return 0
	case constants.DoubleKind:
		return 1
	default:
		return 2
	}
}

// emitDataSegment renders seg as three Lua tables (an ordered value
// vector plus the two restore maps) and a call handing them to the
// host's data_init hook.
func emitDataSegment(w *strings.Builder, seg *data.Segment) {
	if seg == nil {
		fmt.Fprintf(w, "local __DATA = {}\n")
		fmt.Fprintf(w, "local __DATA_LINE_RESTORE = {}\n")
		fmt.Fprintf(w, "local __DATA_LABEL_RESTORE = {}\n")
		fmt.Fprintf(w, "data_init(__DATA, __DATA_LINE_RESTORE, __DATA_LABEL_RESTORE)\n\n")
		return
	}

	fmt.Fprintf(w, "local __DATA = {\n")
	for i := 0; i < seg.Len(); i++ {
		v := seg.At(i)
		switch v.Kind() {
		case constants.StringKind:
			fmt.Fprintf(w, "\t{%d, %s},\n", dataSectionKind(v.Kind()), luaQuote(v.String()))
		case constants.DoubleKind:
			d, _ := v.Double()
			fmt.Fprintf(w, "\t{%d, %s},\n", dataSectionKind(v.Kind()), formatFloat(d))
		default:
			iv, _ := v.Int()
			fmt.Fprintf(w, "\t{%d, %s},\n", dataSectionKind(v.Kind()), formatInt(iv))
		}
	}
	fmt.Fprintf(w, "}\n")

	fmt.Fprintf(w, "local __DATA_LINE_RESTORE = {\n")
	for _, line := range sortedIntKeys(seg.LineRestore) {
		fmt.Fprintf(w, "\t[%d] = %d,\n", line, seg.LineRestore[line])
	}
	fmt.Fprintf(w, "}\n")

	fmt.Fprintf(w, "local __DATA_LABEL_RESTORE = {\n")
	for _, label := range sortedStringKeys(seg.LabelRestore) {
		fmt.Fprintf(w, "\t[%s] = %d,\n", luaQuote(label), seg.LabelRestore[label])
	}
	fmt.Fprintf(w, "}\n")

	fmt.Fprintf(w, "data_init(__DATA, __DATA_LINE_RESTORE, __DATA_LABEL_RESTORE)\n\n")
}

func sortedIntKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedStringKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
