// Copyright 2026 The Thistle Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/thistle-lang/thistle"
	"github.com/thistle-lang/thistle/internal/diag"
)

// jsonDiagnostic is the --json wire shape for one diagnostic: the same
// fields diag.Diagnostic.String renders as text, but structured for a
// calling tool to parse rather than scrape.
type jsonDiagnostic struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	BasicLine int    `json:"basicLine,omitempty"`
	FixIt     string `json:"fixIt,omitempty"`
}

type jsonReport struct {
	Diagnostics []jsonDiagnostic `json:"diagnostics"`
	AST         *jsonASTStats    `json:"ast,omitempty"`
	Peephole    *jsonPeepStats   `json:"peephole,omitempty"`
}

type jsonASTStats struct {
	ConstantsFolded  int `json:"constantsFolded"`
	IdentitiesFolded int `json:"identitiesFolded"`
	DeadStatements   int `json:"deadStatements"`
}

type jsonPeepStats struct {
	ZeroAddRemoved   int `json:"zeroAddRemoved"`
	OneMulRemoved    int `json:"oneMulRemoved"`
	JumpChainsFolded int `json:"jumpChainsFolded"`
	DeadAfterJump    int `json:"deadAfterJump"`
	ConstFolded      int `json:"constFolded"`
}

// printDiagnosticsJSON writes diags (and, when out is non-nil, optimizer
// stats) to stdout as one JSON object, for tools that drive thistle
// programmatically instead of scraping stderr text.
func printDiagnosticsJSON(diags []diag.Diagnostic, out *thistle.Output) error {
	report := jsonReport{Diagnostics: make([]jsonDiagnostic, len(diags))}
	for i, d := range diags {
		report.Diagnostics[i] = jsonDiagnostic{
			Kind:      d.Kind.String(),
			Message:   d.Message,
			BasicLine: d.BasicLine,
			FixIt:     d.FixIt,
		}
	}
	if out != nil {
		report.AST = &jsonASTStats{
			ConstantsFolded:  out.AST.ConstantsFolded,
			IdentitiesFolded: out.AST.IdentitiesFolded,
			DeadStatements:   out.AST.DeadStatements,
		}
		report.Peephole = &jsonPeepStats{
			ZeroAddRemoved:   out.Peephole.ZeroAddRemoved,
			OneMulRemoved:    out.Peephole.OneMulRemoved,
			JumpChainsFolded: out.Peephole.JumpChainsFolded,
			DeadAfterJump:    out.Peephole.DeadAfterJump,
			ConstFolded:      out.Peephole.ConstFolded,
		}
	}
	data, err := jsonv2.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal diagnostics: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
