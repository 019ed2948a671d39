package wire

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKind(t *testing.T) {
	mustValue := func(v any) *Member {
		m, err := FromValue("x", "int", v)
		if err != nil {
			t.Fatal(err)
		}
		return m
	}
	tests := []struct {
		name string
		m    *Member
		want Kind
	}{
		{"nil", nil, AbsentKind},
		{"absent", Absent("x", "int"), AbsentKind},
		{"null", Null("x", "int"), NullKind},
		{"value", mustValue(3), ValueKind},
		{"empty fields", Object("x", "T", []*Member{}, nil), ObjectKind},
		{"props only", Object("x", "T", nil, []*Member{mustValue(1)}), ObjectKind},
		{"ref", FromRef("x", "T", Reference{InstanceID: 4}), ReferenceKind},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.m.Kind(); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestJSONKeepsAbsentNullAndEmpty(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{`{"name":"a","typeName":"int"}`, AbsentKind},
		{`{"name":"a","typeName":"int","value":null}`, NullKind},
		{`{"name":"a","typeName":"int","value":7}`, ValueKind},
		{`{"name":"a","typeName":"[]int","fields":[]}`, ObjectKind},
		{`{"name":"a","typeName":"T","fields":null,"props":null}`, AbsentKind},
	}
	for _, tc := range tests {
		m := &Member{}
		if err := json.Unmarshal([]byte(tc.in), m); err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if got := m.Kind(); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.in, got, tc.want)
		}
		out, err := json.Marshal(m)
		if err != nil {
			t.Fatal(err)
		}
		back := &Member{}
		if err := json.Unmarshal(out, back); err != nil {
			t.Fatal(err)
		}
		if back.Kind() != tc.want {
			t.Errorf("%s: round trip gave %s (%s)", tc.in, back.Kind(), out)
		}
	}
}

func TestEmptyFieldsIsNotNull(t *testing.T) {
	m := Object("xs", "[]int", []*Member{}, nil)
	d, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(d), `"fields":[]`) {
		t.Errorf("expected empty fields list, got %s", d)
	}
	back := &Member{}
	if err := json.Unmarshal(d, back); err != nil {
		t.Fatal(err)
	}
	if back.Fields == nil {
		t.Errorf("empty fields decoded as nil")
	}
	if back.Props != nil {
		t.Errorf("null props decoded as %v", back.Props)
	}
}

func TestValidate(t *testing.T) {
	v, _ := FromValue("a", "int", 1)
	bad := Object("root", "T", []*Member{
		{Name: "b", TypeName: "int", Value: json.RawMessage("1"), Ref: &Reference{InstanceID: 1}},
	}, nil)
	if err := Object("root", "T", []*Member{v}, nil).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := bad.Validate()
	var me *MalformedError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedError, got %v", err)
	}
	if me.Path != "root.b" {
		t.Errorf("got path %q", me.Path)
	}
	if err := (&Member{Name: "x", Value: json.RawMessage("{")}).Validate(); err == nil {
		t.Errorf("expected invalid json to fail")
	}
}

func TestFind(t *testing.T) {
	leaf, _ := FromValue("x", "float64", 1.5)
	root := Object("", "Scene", []*Member{
		Object("children", "[]Node", []*Member{
			Object("[0]", "Node", nil, nil),
			Object("[1]", "Node", nil, []*Member{Object("transform", "Transform", []*Member{leaf}, nil)}),
		}, nil),
	}, nil)
	got, err := root.Find("children[1].transform.x")
	if err != nil {
		t.Fatal(err)
	}
	if got != leaf {
		t.Fatalf("got %v", got)
	}
	got, err = root.Find("children[4]")
	if err != nil || got != nil {
		t.Errorf("expected nil, got %v, %v", got, err)
	}
	if _, err := root.Find("children[1"); err == nil {
		t.Errorf("expected error for unterminated index")
	}
}

func TestDepthAndClone(t *testing.T) {
	leaf, _ := FromValue("v", "int", 1)
	root := Object("", "A", []*Member{Object("b", "B", []*Member{leaf}, nil)}, nil)
	if d := root.Depth(); d != 2 {
		t.Errorf("depth %d", d)
	}
	c := root.Clone()
	if diff := cmp.Diff(root, c); diff != "" {
		t.Fatalf("clone differs:\n%s", diff)
	}
	c.Fields[0].Fields[0].Value = json.RawMessage("2")
	if string(leaf.Value) != "1" {
		t.Errorf("clone shares value storage")
	}
}

func TestCanonicalAndDigest(t *testing.T) {
	a := FromRaw("v", "map", json.RawMessage(`{"b":1,"a":2.0}`))
	b := FromRaw("v", "map", json.RawMessage(`{"a":2,"b":1}`))
	if !Equal(a, b) {
		ca, _ := Canonical(a)
		cb, _ := Canonical(b)
		t.Fatalf("expected equal canonical forms: %s vs %s", ca, cb)
	}
	da, err := Digest(a)
	if err != nil {
		t.Fatal(err)
	}
	db, _ := Digest(b)
	if da != db {
		t.Errorf("digests differ")
	}
	c := FromRaw("v", "map", json.RawMessage(`{"a":3}`))
	if dc, _ := Digest(c); dc == da {
		t.Errorf("digest collision")
	}
}

func TestDiffAndApplyPatch(t *testing.T) {
	mk := func(i int, name string) *Member {
		iv, _ := FromValue("intField", "int", i)
		nv, _ := FromValue("nameField", "string", name)
		return Object("", "Sample", []*Member{iv, nv}, nil)
	}
	p, err := Diff(mk(1, "a"), mk(2, "a"))
	if err != nil {
		t.Fatal(err)
	}
	if string(p) != `{"intField":2}` {
		t.Errorf("got patch %s", p)
	}

	out, err := ApplyPatch(mk(1, "a"), []byte(`[{"op":"replace","path":"/fields/1/value","value":"z"}]`))
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(out, mk(1, "z")) {
		t.Errorf("json patch result %v", Plain(out))
	}
	out, err = ApplyPatch(mk(1, "a"), []byte(`{"typeName":"Other"}`))
	if err != nil {
		t.Fatal(err)
	}
	if out.TypeName != "Other" {
		t.Errorf("merge patch result %q", out.TypeName)
	}
}

func TestPlain(t *testing.T) {
	x, _ := FromValue("[0]", "int", 1)
	y, _ := FromValue("[1]", "int", 2)
	root := Object("", "T", []*Member{
		Object("xs", "[]int", []*Member{x, y}, nil),
		Object("empty", "[]int", []*Member{}, nil),
		Absent("skipped", "int"),
		Null("gone", "*T"),
	}, []*Member{FromRef("owner", "Node", Reference{InstanceID: 3})})
	want := map[string]any{
		"xs":    []any{float64(1), float64(2)},
		"empty": []any{},
		"gone":  nil,
		"owner": map[string]any{"$ref": map[string]any{"instanceID": int64(3)}},
	}
	if diff := cmp.Diff(want, Plain(root)); diff != "" {
		t.Errorf("plain (-want +got):\n%s", diff)
	}
}

func TestPlainKeepsLargeIntegers(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{`8`, float64(8)},
		{`1.5`, 1.5},
		{`-9007199254740992`, float64(-9007199254740992)},
		{`9007199254740993`, int64(9007199254740993)},
		{`-9223372036854775808`, int64(-9223372036854775808)},
		{`18446744073709551615`, uint64(18446744073709551615)},
		{`1e400`, "1e400"},
		{`{"a":[9007199254740993,2]}`, map[string]any{"a": []any{int64(9007199254740993), float64(2)}}},
	}
	for _, tc := range tests {
		if diff := cmp.Diff(tc.want, Plain(FromRaw("v", "", json.RawMessage(tc.raw)))); diff != "" {
			t.Errorf("%s (-want +got):\n%s", tc.raw, diff)
		}
	}

	before := FromRaw("", "Counter", json.RawMessage(`{"n":9007199254740993}`))
	after := FromRaw("", "Counter", json.RawMessage(`{"n":9007199254740995}`))
	p, err := Diff(before, after)
	if err != nil {
		t.Fatal(err)
	}
	if string(p) != `{"n":9007199254740995}` {
		t.Errorf("got patch %s", p)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	v, _ := FromValue("hp", "int", 12)
	m := Object("", "Player", []*Member{v, Null("weapon", "Weapon")}, nil)
	y, err := ToYAML(m)
	if err != nil {
		t.Fatal(err)
	}
	back, err := FromYAML(y)
	if err != nil {
		t.Fatalf("%v\n%s", err, y)
	}
	if !Equal(m, back) {
		t.Errorf("yaml round trip differs:\n%s", y)
	}
	if !back.Field("weapon").IsNull() {
		t.Errorf("null lost in yaml round trip")
	}
}
