package rules

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// LoadFile reads and compiles a rulebook from a CUE file.
//
// The file either declares the rulebook fields at the top level or nests
// them under a "rulebook" field:
//
//	name: "traffic"
//	clauses: [...]
//
// or
//
//	rulebook: {
//		name: "traffic"
//		clauses: [...]
//	}
func LoadFile(path string) (*Rulebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rulebook: %w", err)
	}

	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	if nested := v.LookupPath(cue.ParsePath("rulebook")); nested.Exists() {
		v = nested
	}

	return CompileRulebook(v)
}
