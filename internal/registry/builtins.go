// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package registry

// NewBuiltins returns a Registry preloaded with the compiler's built-in
// command and function set, not yet marked initialized so that plugins
// may still append entries before compilation begins.
func NewBuiltins() *Registry {
	r := New()
	for _, e := range builtinEntries {
		if err := r.Register(e, false); err != nil {
			// Built-ins are a static table; a collision here is a
			// programming error, not a user-facing condition.
			panic(err)
		}
	}
	return r
}

var builtinEntries = []Entry{
	{Name: "CHR$", Kind: FunctionKind, Category: "string", Return: StringType, Target: "CHR_STRING",
		Params: []Param{{Name: "code", Type: IntegerType}}, Pure: true},
	{Name: "ASC", Kind: FunctionKind, Category: "string", Return: IntegerType, Target: "ASC",
		Params: []Param{{Name: "s", Type: StringType}}, Pure: true},
	{Name: "STR$", Kind: FunctionKind, Category: "string", Return: StringType, Target: "STR_STRING",
		Params: []Param{{Name: "n", Type: NumberType}}, Pure: true},
	{Name: "VAL", Kind: FunctionKind, Category: "string", Return: NumberType, Target: "VAL",
		Params: []Param{{Name: "s", Type: StringType}}, Pure: true},
	{Name: "HEX$", Kind: FunctionKind, Category: "string", Return: StringType, Target: "HEX_STRING",
		Params: []Param{{Name: "n", Type: IntegerType}}, Pure: true},
	{Name: "BIN$", Kind: FunctionKind, Category: "string", Return: StringType, Target: "BIN_STRING",
		Params: []Param{{Name: "n", Type: IntegerType}}, Pure: true},
	{Name: "OCT$", Kind: FunctionKind, Category: "string", Return: StringType, Target: "OCT_STRING",
		Params: []Param{{Name: "n", Type: IntegerType}}, Pure: true},
	{Name: "LEN", Kind: FunctionKind, Category: "string", Return: IntegerType, Target: "string.len",
		Params: []Param{{Name: "s", Type: StringType}}, Pure: true},
	{Name: "LEFT$", Kind: FunctionKind, Category: "string", Return: StringType, Target: "string.sub",
		Params: []Param{{Name: "s", Type: StringType}, {Name: "n", Type: IntegerType}}, Pure: true},
	{Name: "MID$", Kind: FunctionKind, Category: "string", Return: StringType, Target: "string.sub",
		Params: []Param{
			{Name: "s", Type: StringType},
			{Name: "start", Type: IntegerType},
			{Name: "n", Type: IntegerType, Optional: true, Default: int64(-1)},
		}, Pure: true},
	{Name: "INT", Kind: FunctionKind, Category: "math", Return: IntegerType, Target: "math.floor",
		Params: []Param{{Name: "n", Type: NumberType}}, Pure: true},
	{Name: "ABS", Kind: FunctionKind, Category: "math", Return: NumberType, Target: "math.abs",
		Params: []Param{{Name: "n", Type: NumberType}}, Pure: true},
	{Name: "SQR", Kind: FunctionKind, Category: "math", Return: NumberType, Target: "math.sqrt",
		Params: []Param{{Name: "n", Type: NumberType}}, Pure: true},
	{Name: "RND", Kind: FunctionKind, Category: "math", Return: NumberType, Target: "math.random",
		Params: nil, Pure: false},

	{Name: "CLS", Kind: CommandKind, Category: "terminal", Target: "terminal_cls"},
	{Name: "LOCATE", Kind: CommandKind, Category: "terminal", Target: "terminal_locate",
		Params: []Param{{Name: "row", Type: IntegerType}, {Name: "col", Type: IntegerType}}},
	{Name: "INKEY$", Kind: FunctionKind, Category: "terminal", Return: StringType, Target: "terminal_inkey"},
	{Name: "BEEP", Kind: CommandKind, Category: "terminal", Target: "terminal_beep"},

	{Name: "WAIT_FRAMES", Kind: CommandKind, Category: "timing", Target: "WAIT_FRAMES",
		Params: []Param{{Name: "n", Type: IntegerType, Optional: true, Default: int64(1)}}},
	{Name: "WAIT_MS", Kind: CommandKind, Category: "timing", Target: "wait_ms",
		Params: []Param{{Name: "ms", Type: IntegerType}}},
}
