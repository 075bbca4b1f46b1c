/*
Package diag implements the compiler's diagnostics sink: a collection of
(line, message) pairs partitioned into errors and warnings, each tagged with
the compilation phase that raised it.

Unlike the original implementation's process-wide Logger singleton, a Sink is
an ordinary value, created once per compilation and threaded explicitly
through the lexer, the parser and every semantic/codegen pass (design note:
nothing in this design requires globally unique diagnostics).
*/
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pterm/pterm"
)

// Phase names a compilation stage that can raise a diagnostic.
type Phase string

const (
	Lexing   Phase = "LexingError"
	Syntax   Phase = "SyntaxError"
	Semantic Phase = "SemanticError"
)

// WarningPhase names a compilation stage that can raise a warning. Only
// semantic passes currently emit warnings.
type WarningPhase string

const (
	SemanticWarning WarningPhase = "SemanticWarning"
)

// entry is one collected diagnostic. Line -1 means "no specific line".
type entry struct {
	line    int
	phase   string
	message string
}

// Sink collects diagnostics for a single compilation. The zero value is not
// usable; construct one with New.
type Sink struct {
	errors   []entry
	warnings []entry
}

// New creates an empty diagnostics sink.
func New() *Sink {
	return &Sink{}
}

// Err records a compile error tagged with phase and the line it occurred at.
func (s *Sink) Err(message string, line int, phase Phase) {
	s.errors = append(s.errors, entry{line: line, phase: string(phase), message: message})
}

// ErrNoLine records a compile error with no associated line.
func (s *Sink) ErrNoLine(message string, phase Phase) {
	s.errors = append(s.errors, entry{line: -1, phase: string(phase), message: message})
}

// Warn records a warning tagged with phase and the line it occurred at.
func (s *Sink) Warn(message string, line int, phase WarningPhase) {
	s.warnings = append(s.warnings, entry{line: line, phase: string(phase), message: message})
}

// HasErrors reports whether any error has been recorded.
func (s *Sink) HasErrors() bool {
	return len(s.errors) > 0
}

// HasWarnings reports whether any warning has been recorded.
func (s *Sink) HasWarnings() bool {
	return len(s.warnings) > 0
}

func formatEntries(es []entry) []string {
	sorted := make([]entry, len(es))
	copy(sorted, es)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].line < sorted[j].line })
	out := make([]string, 0, len(sorted))
	for _, e := range sorted {
		if e.line < 0 {
			out = append(out, fmt.Sprintf("%s: %s", e.phase, e.message))
		} else {
			out = append(out, fmt.Sprintf("%s: %s (line %d)", e.phase, e.message, e.line))
		}
	}
	return out
}

// Errors returns every recorded error, sorted by line, formatted the way
// PrintErrors formatted them. No deduplication is performed.
func (s *Sink) Errors() []string {
	return formatEntries(s.errors)
}

// Warnings returns every recorded warning, sorted by line.
func (s *Sink) Warnings() []string {
	return formatEntries(s.warnings)
}

// Clear discards every recorded diagnostic. Used to isolate test cases from
// each other when a Sink is reused.
func (s *Sink) Clear() {
	s.errors = s.errors[:0]
	s.warnings = s.warnings[:0]
}

// Render renders every diagnostic (errors first, then warnings) as a
// formatted table, the way util::PPrintVector rendered collections for
// console consumption.
func (s *Sink) Render() string {
	var b strings.Builder
	if len(s.errors) > 0 {
		rows := pterm.TableData{{"line", "phase", "message"}}
		for _, e := range formattedRows(s.errors) {
			rows = append(rows, e)
		}
		out, _ := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
		b.WriteString(out)
	}
	if len(s.warnings) > 0 {
		rows := pterm.TableData{{"line", "phase", "message"}}
		for _, e := range formattedRows(s.warnings) {
			rows = append(rows, e)
		}
		out, _ := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
		b.WriteString(out)
	}
	return b.String()
}

func formattedRows(es []entry) [][]string {
	sorted := make([]entry, len(es))
	copy(sorted, es)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].line < sorted[j].line })
	rows := make([][]string, 0, len(sorted))
	for _, e := range sorted {
		line := fmt.Sprintf("%d", e.line)
		if e.line < 0 {
			line = "-"
		}
		rows = append(rows, []string{line, e.phase, e.message})
	}
	return rows
}
