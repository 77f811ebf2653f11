package testutil

import (
	"fmt"
	"sync"
)

// SequentialTokenGenerator generates numbered evaluation tokens under a
// fixed prefix.
//
// The scenario harness uses one of these per run so every case gets a
// stable, human-readable token ("case-001", "case-002", ...) and golden
// trace files stay byte-identical across runs.
//
// Unlike rules.FixedGenerator, this generator never exhausts.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialTokenGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTokenGenerator creates a generator with the given prefix.
//
// An empty prefix defaults to "case".
func NewSequentialTokenGenerator(prefix string) *SequentialTokenGenerator {
	if prefix == "" {
		prefix = "case"
	}
	return &SequentialTokenGenerator{prefix: prefix}
}

// Generate returns the next token, e.g. "case-001".
func (g *SequentialTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%03d", g.prefix, g.n)
}

// Reset restarts numbering. After Reset(), Generate() returns "<prefix>-001".
func (g *SequentialTokenGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
