package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/signadot/objbridge/diag"
	"github.com/signadot/objbridge/wire"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

type colors struct {
	Error  func(string, ...any) string
	Warn   func(string, ...any) string
	Path   func(string, ...any) string
	Insert func(string, ...any) string
	Delete func(string, ...any) string
	Equal  func(string, ...any) string
}

func newColors(enabled bool) *colors {
	if !enabled {
		return &colors{
			Error:  fmt.Sprintf,
			Warn:   fmt.Sprintf,
			Path:   fmt.Sprintf,
			Insert: fmt.Sprintf,
			Delete: fmt.Sprintf,
			Equal:  fmt.Sprintf,
		}
	}
	color.NoColor = false
	return &colors{
		Error:  color.New(color.FgRed, color.Bold).SprintfFunc(),
		Warn:   color.YellowString,
		Path:   color.RGB(128, 168, 196).SprintfFunc(),
		Insert: color.GreenString,
		Delete: color.RedString,
		Equal:  color.RGB(96, 96, 96).SprintfFunc(),
	}
}

func writeDiagnostics(w io.Writer, c *colors, ds []diag.Diagnostic) {
	for _, d := range ds {
		sev := c.Warn
		if d.Severity == diag.SeverityError {
			sev = c.Error
		}
		path := d.Path
		if path == "" {
			path = "."
		}
		fmt.Fprintf(w, "%s %s %s\n", sev("%-7s", d.Severity), c.Path("%s", path), sev("%s", d.Code))
		fmt.Fprintf(w, "        %s\n", d.Message)
	}
}

// writeDiff writes a line diff of two renderings.  It reports whether
// they differ.
func writeDiff(w io.Writer, c *colors, from, to string) bool {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	changed := false
	for _, d := range diffs {
		prefix, paint := "  ", c.Equal
		switch d.Type {
		case diffpatch.DiffInsert:
			prefix, paint, changed = "+ ", c.Insert, true
		case diffpatch.DiffDelete:
			prefix, paint, changed = "- ", c.Delete, true
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			fmt.Fprint(w, paint("%s%s", prefix, line))
			if !strings.HasSuffix(line, "\n") {
				fmt.Fprintln(w)
			}
		}
	}
	return changed
}

// render writes m as JSON, or YAML with y.  plain writes the plain
// projection instead of the member.
func render(w io.Writer, m *wire.Member, y, plain bool) error {
	var (
		d   []byte
		err error
	)
	switch {
	case y && plain:
		d, err = wire.PlainYAML(m)
	case y:
		d, err = wire.ToYAML(m)
	case plain:
		d, err = json.MarshalIndent(wire.Plain(m), "", "  ")
	default:
		d, err = json.MarshalIndent(m, "", "  ")
	}
	if err != nil {
		return err
	}
	if _, err := w.Write(d); err != nil {
		return err
	}
	if len(d) > 0 && d[len(d)-1] != '\n' {
		_, err = w.Write([]byte{'\n'})
	}
	return err
}
