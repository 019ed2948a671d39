package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/invopop/jsonschema"
	"github.com/signadot/objbridge/diag"
	"github.com/signadot/objbridge/internal/scene"
	"github.com/signadot/objbridge/reflector"
	"github.com/signadot/objbridge/wire"
	"go.lsp.dev/jsonrpc2"
)

func start(t *testing.T) (jsonrpc2.Conn, *scene.Scene) {
	t.Helper()
	sc, err := scene.New()
	if err != nil {
		t.Fatal(err)
	}
	opts, err := sc.Options()
	if err != nil {
		t.Fatal(err)
	}
	r, err := reflector.New(opts...)
	if err != nil {
		t.Fatal(err)
	}
	a, b := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	srv := New(r)
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, a) }()

	client := jsonrpc2.NewConn(jsonrpc2.NewStream(b))
	client.Go(ctx, jsonrpc2.MethodNotFoundHandler)
	t.Cleanup(func() {
		client.Close()
		cancel()
		<-errc
	})
	return client, sc
}

func call(t *testing.T, c jsonrpc2.Conn, method string, params, res any) error {
	t.Helper()
	_, err := c.Call(context.Background(), method, params, res)
	return err
}

func code(err error) jsonrpc2.Code {
	var rerr *jsonrpc2.Error
	if errors.As(err, &rerr) {
		return rerr.Code
	}
	return 0
}

func TestTypes(t *testing.T) {
	c, _ := start(t)
	var got []string
	if err := call(t, c, MethodTypes, nil, &got); err != nil {
		t.Fatal(err)
	}
	want := []string{"Color", "Entity", "Health", "Material", "Renderer", "Transform", "Vector3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestSerialize(t *testing.T) {
	c, _ := start(t)
	var res SerializeResult
	if err := call(t, c, MethodSerialize, &SerializeParams{Ref: "World/Player"}, &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("diagnostics %v", res.Diagnostics)
	}
	tag, err := res.Member.Find("tag")
	if err != nil || tag == nil || wire.Plain(tag) != "Player" {
		t.Errorf("tag %v %v", tag, err)
	}
	parent := res.Member.Field("parent")
	if parent == nil || parent.Ref == nil || parent.Ref.Path != "World" {
		t.Errorf("parent %+v", parent)
	}

	rec := true
	if err := call(t, c, MethodSerialize, &SerializeParams{Ref: "World/Player", MaxDepth: 3, Recursive: &rec}, &res); err != nil {
		t.Fatal(err)
	}
	if parent := res.Member.Field("parent"); parent == nil || parent.Kind() != wire.ObjectKind {
		t.Errorf("recursive parent %+v", parent)
	}
	truncated := false
	for _, d := range res.Diagnostics {
		truncated = truncated || d.Code == diag.DepthExceeded
	}
	if !truncated {
		t.Error("expected a depth diagnostic")
	}
}

func TestPopulate(t *testing.T) {
	c, sc := start(t)
	m, err := wire.FromYAML([]byte(`
fields:
- name: tag
  value: Boss
- name: layer
  value: 3
- name: bogus
  value: 1
`))
	if err != nil {
		t.Fatal(err)
	}
	var res PopulateResult
	if err := call(t, c, MethodPopulate, &PopulateParams{Ref: "World/Enemy", Member: m}, &res); err != nil {
		t.Fatal(err)
	}
	if res.OK {
		t.Error("ok despite an unknown member")
	}
	want := []diag.Diagnostic{{
		Code:     diag.FieldNotFound,
		Severity: diag.SeverityWarning,
		Path:     "bogus",
		Message:  `Entity has no member "bogus"`,
	}}
	if diff := cmp.Diff(want, res.Diagnostics); diff != "" {
		t.Errorf("diagnostics (-want +got):\n%s", diff)
	}
	var patch map[string]any
	if err := json.Unmarshal(res.Patch, &patch); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"tag": "Boss", "layer": 3.0}, patch); diff != "" {
		t.Errorf("patch (-want +got):\n%s", diff)
	}
	if !res.Changed {
		t.Error("changed not reported")
	}
	obj, ok := sc.Table.LookupByPath("World/Enemy")
	if !ok {
		t.Fatal("enemy gone")
	}
	if e := obj.(*scene.Entity); e.Tag != "Boss" || e.Layer != 3 {
		t.Errorf("host object not updated: %q %d", e.Tag, e.Layer)
	}
}

func TestPopulateIfMatch(t *testing.T) {
	c, _ := start(t)
	var ser SerializeResult
	if err := call(t, c, MethodSerialize, &SerializeParams{Ref: "World/Enemy"}, &ser); err != nil {
		t.Fatal(err)
	}
	if ser.Digest == "" {
		t.Fatal("no digest")
	}
	m, err := wire.FromYAML([]byte("fields:\n- name: tag\n  value: Boss\n"))
	if err != nil {
		t.Fatal(err)
	}
	var res PopulateResult
	if err := call(t, c, MethodPopulate, &PopulateParams{Ref: "World/Enemy", Member: m, IfMatch: ser.Digest}, &res); err != nil {
		t.Fatal(err)
	}
	if !res.OK || !res.Changed || res.Digest == ser.Digest {
		t.Errorf("ok=%v changed=%v digest %s", res.OK, res.Changed, res.Digest)
	}

	err = call(t, c, MethodPopulate, &PopulateParams{Ref: "World/Enemy", Member: m, IfMatch: ser.Digest}, &res)
	if got := code(err); got != CodeConflict {
		t.Errorf("stale ifMatch: got code %d (%v)", got, err)
	}

	next := res.Digest
	if err := call(t, c, MethodPopulate, &PopulateParams{Ref: "World/Enemy", Member: m, IfMatch: next}, &res); err != nil {
		t.Fatal(err)
	}
	if res.Changed || res.Digest != next {
		t.Errorf("repeat populate: changed=%v digest %s want %s", res.Changed, res.Digest, next)
	}
}

func TestSchema(t *testing.T) {
	c, _ := start(t)
	var s jsonschema.Schema
	if err := call(t, c, MethodSchema, &SchemaParams{TypeName: "Vector3"}, &s); err != nil {
		t.Fatal(err)
	}
	if s.Title != "Vector3" || s.Type != "object" {
		t.Errorf("schema %+v", s)
	}
	if _, ok := s.Properties.Get("z"); !ok {
		t.Error("no z property")
	}
}

func TestResolve(t *testing.T) {
	c, _ := start(t)
	var ref wire.Reference
	if err := call(t, c, MethodResolve, &ResolveParams{Ref: "asset:Assets/Materials/Hero.mat"}, &ref); err != nil {
		t.Fatal(err)
	}
	if ref.AssetType != "Material" || ref.InstanceID == 0 {
		t.Errorf("ref %+v", ref)
	}
}

func TestErrors(t *testing.T) {
	c, _ := start(t)
	tests := []struct {
		name   string
		method string
		params any
		code   jsonrpc2.Code
	}{
		{"unknown method", "bridge/nope", nil, jsonrpc2.MethodNotFound},
		{"bad params", MethodSerialize, []int{1}, jsonrpc2.InvalidParams},
		{"bad ref", MethodSerialize, &SerializeParams{Ref: "#x"}, jsonrpc2.InvalidParams},
		{"missing object", MethodSerialize, &SerializeParams{Ref: "World/Ghost"}, jsonrpc2.InvalidParams},
		{"no member", MethodPopulate, &PopulateParams{Ref: "World"}, jsonrpc2.InvalidParams},
		{"malformed member", MethodPopulate, map[string]any{
			"ref":    "World",
			"member": map[string]any{"value": 1, "fields": []any{}},
		}, jsonrpc2.InvalidParams},
		{"unknown type", MethodSchema, &SchemaParams{TypeName: "Nope"}, jsonrpc2.InvalidParams},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var res json.RawMessage
			err := call(t, c, tc.method, tc.params, &res)
			if got := code(err); got != tc.code {
				t.Errorf("got code %d (%v) want %d", got, err, tc.code)
			}
		})
	}
}
