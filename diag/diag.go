// Package diag collects the diagnostics produced by one engine call.
//
// Content-level problems (a stale field name, a dangling reference, a
// truncated subtree) are recorded in a [Log] and do not stop the call.
// Structural problems are returned as errors; see [Error].
package diag

import (
	"fmt"
	"log/slog"
	"strings"
)

// Code identifies a kind of diagnostic.
type Code string

const (
	MissingConverter          Code = "MissingConverter"
	TypeMismatch              Code = "TypeMismatch"
	ReferenceResolutionFailed Code = "ReferenceResolutionFailed"
	FieldNotFound             Code = "FieldNotFound"
	FieldNotWritable          Code = "FieldNotWritable"
	DepthExceeded             Code = "DepthExceeded"
	MalformedMember           Code = "MalformedMember"
)

// Severity of a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(d []byte) error {
	switch string(d) {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", d)
	}
	return nil
}

// Diagnostic is one recorded problem.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	// Path is the member path, e.g. "transform.position.x" or "items[2]".
	Path    string `json:"path,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.Severity.String())
	b.WriteString(" ")
	b.WriteString(string(d.Code))
	if d.Path != "" {
		b.WriteString(" at ")
		b.WriteString(d.Path)
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// Log is an ordered list of diagnostics.  A Log belongs to one call and is
// not safe for concurrent use.
type Log struct {
	entries []Diagnostic
	logger  *slog.Logger
}

// NewLog creates a Log.  If logger is non-nil every added diagnostic is
// also written to it at debug level.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Add appends d.
func (l *Log) Add(d Diagnostic) {
	l.entries = append(l.entries, d)
	if l.logger != nil {
		l.logger.Debug("diagnostic",
			"code", string(d.Code),
			"severity", d.Severity.String(),
			"path", d.Path,
			"message", d.Message)
	}
}

// Warnf adds a warning.
func (l *Log) Warnf(code Code, path, format string, args ...any) {
	l.Add(Diagnostic{Code: code, Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Errorf adds an error level diagnostic.  It does not abort the call.
func (l *Log) Errorf(code Code, path, format string, args ...any) {
	l.Add(Diagnostic{Code: code, Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Entries returns the diagnostics in the order they were recorded.
func (l *Log) Entries() []Diagnostic {
	if l == nil {
		return nil
	}
	res := make([]Diagnostic, len(l.entries))
	copy(res, l.entries)
	return res
}

// Len returns the number of diagnostics.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Count returns the number of diagnostics with the given code.
func (l *Log) Count(code Code) int {
	if l == nil {
		return 0
	}
	n := 0
	for i := range l.entries {
		if l.entries[i].Code == code {
			n++
		}
	}
	return n
}

// Has reports whether any diagnostic has the given code.
func (l *Log) Has(code Code) bool {
	return l.Count(code) > 0
}

// Failed reports whether any warning or error was recorded.
func (l *Log) Failed() bool {
	if l == nil {
		return false
	}
	for i := range l.entries {
		if l.entries[i].Severity >= SeverityWarning {
			return true
		}
	}
	return false
}

// Mark returns a position which can be passed to FailedSince.
func (l *Log) Mark() int {
	return l.Len()
}

// FailedSince reports whether a warning or error was recorded after mark.
func (l *Log) FailedSince(mark int) bool {
	for i := mark; i < len(l.entries); i++ {
		if l.entries[i].Severity >= SeverityWarning {
			return true
		}
	}
	return false
}

// Merge appends the entries of o.
func (l *Log) Merge(o *Log) {
	for _, d := range o.Entries() {
		l.Add(d)
	}
}

func (l *Log) String() string {
	var b strings.Builder
	for i, d := range l.Entries() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(d.String())
	}
	return b.String()
}

// LogValue implements slog.LogValuer.
func (l *Log) LogValue() slog.Value {
	if l.Len() == 0 {
		return slog.IntValue(0)
	}
	counts := map[Code]int{}
	var order []Code
	for _, d := range l.entries {
		if counts[d.Code] == 0 {
			order = append(order, d.Code)
		}
		counts[d.Code]++
	}
	attrs := make([]slog.Attr, 0, len(order))
	for _, c := range order {
		attrs = append(attrs, slog.Int(string(c), counts[c]))
	}
	return slog.GroupValue(attrs...)
}
