// Package diag carries diagnostics produced while lexing, parsing,
// resolving, and evaluating NoSpace source.
package diag

import (
	"fmt"
	"runtime"
)

// Diagnostic is the public, "tiny" form of a problem found in source text.
// Offset is a byte offset into the original source string.
type Diagnostic struct {
	Offset  int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s (at offset %d)", d.Message, d.Offset)
}

// record is the form a diagnostic takes while being raised: it keeps the
// Go call site so a developer can trace where it came from, but that
// information never reaches a caller of the public boundary.
type record struct {
	Diagnostic
	file string
	line int
}

func newRecord(offset int, format string, args ...any) record {
	_, file, line, _ := runtime.Caller(2)
	return record{
		Diagnostic: Diagnostic{Offset: offset, Message: fmt.Sprintf(format, args...)},
		file:       file,
		line:       line,
	}
}

// Internal returns the call site a record was raised from, for
// developer-facing logs only.
func (r record) Internal() (file string, line int) {
	return r.file, r.line
}

// Bag accumulates diagnostics while a lexer or parser scans source.
type Bag struct {
	records []record
}

// Add raises a new diagnostic at the given source offset.
func (b *Bag) Add(offset int, format string, args ...any) {
	b.records = append(b.records, newRecord(offset, format, args...))
}

// Empty reports whether no diagnostic has been raised.
func (b *Bag) Empty() bool {
	return len(b.records) == 0
}

// Len reports how many diagnostics have been raised so far.
func (b *Bag) Len() int {
	return len(b.records)
}

// Diagnostics shrinks every accumulated record to its public form.
func (b *Bag) Diagnostics() []Diagnostic {
	if len(b.records) == 0 {
		return nil
	}
	out := make([]Diagnostic, len(b.records))
	for i, r := range b.records {
		out[i] = r.Diagnostic
	}
	return out
}
