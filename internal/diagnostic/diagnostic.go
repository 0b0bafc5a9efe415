// Package diagnostic provides error reporting for the OpenCL C type checker.
//
// Rule violations are reported as *TypeCheckError values that carry the
// offending AST node. A DiagnosticList resolves node offsets to line and
// column and renders the source line with a caret under the error.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/HugoDaniel/oclcheck/internal/ast"
	"github.com/pkg/errors"
)

// Severity represents the severity level of a diagnostic.
type Severity uint8

const (
	// Error rejects the translation unit.
	Error Severity = iota
	// Note provides additional context for another diagnostic.
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Note:
		return "note"
	default:
		return "unknown"
	}
}

// Position represents a position in source code.
type Position struct {
	Offset int // Byte offset (0-based)
	Line   int // Line number (1-based)
	Column int // Column number (1-based)
}

// TypeCheckError reports a violated typing rule at Node.
type TypeCheckError struct {
	Message string
	Node    ast.Node

	// Path and Source are set when Node belongs to an included file
	// rather than the file being checked.
	Path   string
	Source string
}

func (e *TypeCheckError) Error() string {
	return e.Message
}

// Errorf builds a TypeCheckError for node.
func Errorf(node ast.Node, format string, args ...interface{}) *TypeCheckError {
	return &TypeCheckError{Message: fmt.Sprintf(format, args...), Node: node}
}

// AsTypeCheckError returns the TypeCheckError at the root of err's cause chain.
func AsTypeCheckError(err error) (*TypeCheckError, bool) {
	tce, ok := errors.Cause(err).(*TypeCheckError)
	return tce, ok
}

// Diagnostic represents a single rendered diagnostic message.
type Diagnostic struct {
	Severity Severity
	Message  string
	Path     string
	Pos      Position
	HasPos   bool

	// SourceLine is the text of line Pos.Line, when known.
	SourceLine string
}

// Error returns a formatted error string.
func (d *Diagnostic) Error() string {
	prefix := d.Path
	if d.HasPos {
		prefix += fmt.Sprintf(":%d:%d", d.Pos.Line, d.Pos.Column)
	}
	if prefix == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", strings.TrimPrefix(prefix, ":"), d.Severity, d.Message)
}

// DiagnosticList collects diagnostics for one source file.
type DiagnosticList struct {
	diagnostics []Diagnostic
	lineIndex   *LineIndex
	path        string
}

// NewDiagnosticList creates a new diagnostic list for the given source.
func NewDiagnosticList(path, source string) *DiagnosticList {
	return &DiagnosticList{
		lineIndex: NewLineIndex(source),
		path:      path,
	}
}

// Add adds a diagnostic to the list.
func (dl *DiagnosticList) Add(d Diagnostic) {
	if d.Path == "" {
		d.Path = dl.path
	}
	dl.diagnostics = append(dl.diagnostics, d)
}

// AddError records err. A TypeCheckError is positioned at its node, any
// other error is recorded without a position. An error raised inside an
// included file is followed by a note naming the include chain.
func (dl *DiagnosticList) AddError(err error) {
	d := Diagnostic{Severity: Error, Message: err.Error()}
	tce, ok := AsTypeCheckError(err)
	if !ok || tce.Node == nil {
		dl.Add(d)
		return
	}

	idx := dl.lineIndex
	if tce.Source != "" {
		idx = NewLineIndex(tce.Source)
		d.Path = tce.Path
	}
	d.Message = tce.Message
	d.Pos = idx.Position(int(tce.Node.Pos().Start))
	d.HasPos = true
	d.SourceLine = idx.Line(d.Pos.Line)
	dl.Add(d)

	if chain := strings.TrimSuffix(err.Error(), ": "+tce.Message); tce.Source != "" && chain != err.Error() {
		dl.Add(Diagnostic{Severity: Note, Message: chain})
	}
}

// AddErrorAt records an error message at a byte offset.
func (dl *DiagnosticList) AddErrorAt(offset int, message string) {
	pos := dl.lineIndex.Position(offset)
	dl.Add(Diagnostic{
		Severity:   Error,
		Message:    message,
		Pos:        pos,
		HasPos:     true,
		SourceLine: dl.lineIndex.Line(pos.Line),
	})
}

// HasErrors returns true if there are any error-level diagnostics.
func (dl *DiagnosticList) HasErrors() bool {
	for _, d := range dl.diagnostics {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Diagnostics returns all collected diagnostics.
func (dl *DiagnosticList) Diagnostics() []Diagnostic {
	return dl.diagnostics
}

// Format formats all diagnostics as a human-readable string.
func (dl *DiagnosticList) Format() string {
	var sb strings.Builder
	for i := range dl.diagnostics {
		sb.WriteString(dl.FormatDiagnostic(&dl.diagnostics[i]))
	}
	return sb.String()
}

// FormatDiagnostic formats a single diagnostic with source context.
func (dl *DiagnosticList) FormatDiagnostic(d *Diagnostic) string {
	var sb strings.Builder
	sb.WriteString(d.Error())
	sb.WriteByte('\n')

	if !d.HasPos {
		return sb.String()
	}
	if line := d.SourceLine; line != "" {
		sb.WriteString("    " + line + "\n")
		sb.WriteString(strings.Repeat(" ", d.Pos.Column-1+4) + "^\n")
	}
	return sb.String()
}
