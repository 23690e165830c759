// Package source indexes NoSpace source text so that a byte offset can be
// turned into a human-facing line and column for diagnostic presentation.
package source

import (
	"sort"
	"strings"
)

// Index maps byte offsets in a source string to (line, column) pairs.
// Grounded on the line-index table in the Rust reference implementation's
// TextCode, adapted to Go's byte-offset token positions.
type Index struct {
	src         string
	lines       []string
	lineOffsets []int // byte offset of the first byte of each line
}

// NewIndex builds an Index over src, splitting it into lines once.
func NewIndex(src string) *Index {
	idx := &Index{src: src}
	offset := 0
	for {
		nl := strings.IndexByte(src[offset:], '\n')
		if nl < 0 {
			idx.lineOffsets = append(idx.lineOffsets, offset)
			idx.lines = append(idx.lines, src[offset:])
			break
		}
		idx.lineOffsets = append(idx.lineOffsets, offset)
		idx.lines = append(idx.lines, src[offset:offset+nl])
		offset += nl + 1
	}
	return idx
}

// Position returns the 1-based line and column for a byte offset.
func (idx *Index) Position(offset int) (line, column int) {
	line = sort.Search(len(idx.lineOffsets), func(i int) bool {
		return idx.lineOffsets[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}
	column = offset - idx.lineOffsets[line] + 1
	return line + 1, column
}

// Line returns the raw text of the given 1-based line number.
func (idx *Index) Line(n int) string {
	if n < 1 || n > len(idx.lines) {
		return ""
	}
	return idx.lines[n-1]
}
