// Package harness runs the JSON-driven .ns/.check.json test fixtures
// described in SPEC_FULL.md §6.
package harness

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/buyoh/nospace20/eval"
	"github.com/buyoh/nospace20/lexer"
	"github.com/buyoh/nospace20/parser"
	"github.com/buyoh/nospace20/resolver"
)

// checkFile is the shape of a fixture's .check.json sibling.
type checkFile struct {
	Trace []int64 `json:"trace"`
}

// RunFile loads a .ns fixture, runs it through the full pipeline, and
// returns the trace map populated by calling interpretFuncTesting(_,
// "main"). Any diagnostic or error at any stage is returned as an error
// prefixed with "harness:" and the fixture path.
func RunFile(path string) (map[int64]int64, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("harness: reading %s: %w", path, err)
	}

	tokens, diags := lexer.Tokenize(string(src))
	if len(diags) > 0 {
		return nil, fmt.Errorf("harness: %s: lexical errors: %v", path, diags)
	}

	stmts, diags := parser.Parse(tokens)
	if len(diags) > 0 {
		return nil, fmt.Errorf("harness: %s: syntax errors: %v", path, diags)
	}

	scope, err := resolver.Analyze(stmts)
	if err != nil {
		return nil, fmt.Errorf("harness: %s: %w", path, err)
	}

	traced, err := eval.InterpretFuncTesting(scope, "main")
	if err != nil {
		return nil, fmt.Errorf("harness: %s: %w", path, err)
	}
	return traced, nil
}

// RunCheck compares traced against the "trace" array in the .check.json
// at checkPath: for each array index i, traced[int64(i)] must equal the
// array's i-th element. A missing key is a failure.
func RunCheck(traced map[int64]int64, checkPath string) error {
	raw, err := os.ReadFile(checkPath)
	if err != nil {
		return fmt.Errorf("harness: reading %s: %w", checkPath, err)
	}
	var check checkFile
	if err := json.Unmarshal(raw, &check); err != nil {
		return fmt.Errorf("harness: parsing %s: %w", checkPath, err)
	}
	for i, want := range check.Trace {
		key := int64(i)
		got, ok := traced[key]
		if !ok {
			return fmt.Errorf("harness: %s: missing trace key %d (want %d)", checkPath, key, want)
		}
		if got != want {
			return fmt.Errorf("harness: %s: trace[%d] = %d, want %d", checkPath, key, got, want)
		}
	}
	return nil
}

// SortedKeys returns the keys of a trace map in ascending order, for
// stable presentation.
func SortedKeys(traced map[int64]int64) []int64 {
	keys := make([]int64, 0, len(traced))
	for k := range traced {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
