package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/objbridge/diag"
	"github.com/signadot/objbridge/wire"
)

func TestWriteDiff(t *testing.T) {
	var buf bytes.Buffer
	c := newColors(false)
	if !writeDiff(&buf, c, "tag: Enemy\nlayer: 0\nname: x\n", "tag: Boss\nlayer: 0\nname: x\n") {
		t.Fatal("no change reported")
	}
	want := "- tag: Enemy\n+ tag: Boss\n  layer: 0\n  name: x\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	buf.Reset()
	if writeDiff(&buf, c, "a: 1\n", "a: 1\n") {
		t.Error("change reported for equal input")
	}
	if buf.String() != "  a: 1\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	writeDiagnostics(&buf, newColors(false), []diag.Diagnostic{
		{Code: diag.FieldNotWritable, Severity: diag.SeverityWarning, Path: "components[0].Current", Message: "read only"},
		{Code: diag.MalformedMember, Severity: diag.SeverityError, Message: "bad"},
	})
	want := strings.Join([]string{
		"warning components[0].Current FieldNotWritable",
		"        read only",
		"error   . MalformedMember",
		"        bad",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestRender(t *testing.T) {
	m, err := wire.FromYAML([]byte(`
typeName: Entity
fields:
- name: tag
  value: Player
`))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name     string
		y, plain bool
		want     string
	}{
		{"plain json", false, true, "{\n  \"tag\": \"Player\"\n}\n"},
		{"plain yaml", true, true, "tag: Player\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := render(&buf, m, tc.y, tc.plain); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, buf.String()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteMemberDiff(t *testing.T) {
	before, err := wire.FromYAML([]byte("fields:\n- name: tag\n  value: Player\n"))
	if err != nil {
		t.Fatal(err)
	}
	after, err := wire.FromYAML([]byte("fields:\n- name: tag\n  value: Boss\n"))
	if err != nil {
		t.Fatal(err)
	}
	if wire.Equal(before, after) {
		t.Fatal("distinct members compare equal")
	}
	var buf bytes.Buffer
	if err := writeMemberDiff(&buf, newColors(false), before, after); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("- tag: Player\n+ tag: Boss\n", buf.String()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
