package reference

import (
	"errors"
	"reflect"
	"testing"

	"github.com/signadot/objbridge/wire"
)

type node struct {
	id   int64
	path string
	name string
}

func (n *node) InstanceID() int64     { return n.id }
func (n *node) HierarchyPath() string { return n.path }
func (n *node) EntityName() string    { return n.name }

type texture struct {
	contentPath, guid string
}

func (t *texture) AssetPath() string  { return t.contentPath }
func (t *texture) AssetGUID() string  { return t.guid }
func (t *texture) EntityType() string { return "Texture" }

type fakeProvider struct {
	byID    map[int64]any
	byPath  map[string]any
	byGUID  map[string]any
	byCPath map[string]any
	calls   []Strategy
}

func (f *fakeProvider) Lookup(id int64) (any, bool) {
	f.calls = append(f.calls, ByInstanceID)
	v, ok := f.byID[id]
	return v, ok
}

func (f *fakeProvider) LookupByPath(p string) (any, bool) {
	f.calls = append(f.calls, ByPath)
	v, ok := f.byPath[p]
	return v, ok
}

func (f *fakeProvider) LookupByContentGUID(g string) (any, bool) {
	f.calls = append(f.calls, ByGUID)
	v, ok := f.byGUID[g]
	return v, ok
}

func (f *fakeProvider) LookupByContentPath(p string) (any, bool) {
	f.calls = append(f.calls, ByContentPath)
	v, ok := f.byCPath[p]
	return v, ok
}

func TestPathBeforeGUID(t *testing.T) {
	byPath := &node{id: 1, path: "World/A"}
	byGUID := &node{id: 2, path: "World/B"}
	p := &fakeProvider{
		byPath: map[string]any{"World/A": byPath},
		byGUID: map[string]any{"abc": byGUID},
	}
	r := NewResolver(p, nil)
	got, s, err := r.FromReference(wire.Reference{Path: "World/A", AssetGUID: "abc"}, reflect.TypeFor[*node]())
	if err != nil {
		t.Fatal(err)
	}
	if got != byPath || s != ByPath {
		t.Errorf("got %v via %s, want path hit", got, s)
	}
	if len(p.calls) != 1 {
		t.Errorf("expected a single lookup, got %v", p.calls)
	}
}

func TestFullOrder(t *testing.T) {
	p := &fakeProvider{}
	r := NewResolver(p, nil)
	ref := wire.Reference{InstanceID: 9, Path: "x", AssetGUID: "g", AssetPath: "tex/a.png"}
	_, _, err := r.FromReference(ref, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	want := []Strategy{ByInstanceID, ByPath, ByGUID, ByContentPath}
	if !reflect.DeepEqual(p.calls, want) {
		t.Errorf("got order %v, want %v", p.calls, want)
	}
}

func TestContentPathLast(t *testing.T) {
	tex := &texture{contentPath: "tex/a.png", guid: "g1"}
	p := &fakeProvider{byCPath: map[string]any{"tex/a.png": tex}}
	r := NewResolver(p, nil)
	got, s, err := r.FromReference(wire.Reference{AssetPath: "tex/a.png", AssetGUID: "stale"}, reflect.TypeFor[*texture]())
	if err != nil {
		t.Fatal(err)
	}
	if got != tex || s != ByContentPath {
		t.Errorf("got %v via %s", got, s)
	}
}

func TestWrongTypeIsAMiss(t *testing.T) {
	tex := &texture{guid: "g"}
	n := &node{id: 4, path: "P"}
	p := &fakeProvider{
		byID:   map[int64]any{4: tex},
		byPath: map[string]any{"P": n},
	}
	r := NewResolver(p, nil)
	got, s, err := r.FromReference(wire.Reference{InstanceID: 4, Path: "P"}, reflect.TypeFor[*node]())
	if err != nil {
		t.Fatal(err)
	}
	if got != n || s != ByPath {
		t.Errorf("got %v via %s", got, s)
	}
}

func TestNotFound(t *testing.T) {
	r := NewResolver(&fakeProvider{}, nil)
	got, s, err := r.FromReference(wire.Reference{AssetGUID: "abc"}, nil)
	if !errors.Is(err, ErrNotFound) || got != nil || s != None {
		t.Errorf("got %v %s %v", got, s, err)
	}
}

func TestZeroAndNoProvider(t *testing.T) {
	r := NewResolver(nil, nil)
	got, _, err := r.FromReference(wire.Reference{}, nil)
	if err != nil || got != nil {
		t.Errorf("zero ref: %v %v", got, err)
	}
	if _, _, err := r.FromReference(wire.Reference{InstanceID: 1}, nil); !errors.Is(err, ErrNoProvider) {
		t.Errorf("got %v", err)
	}
}

func TestToReference(t *testing.T) {
	r := NewResolver(nil, nil)
	ref, err := r.ToReference(&node{id: 3, path: "World/Cam", name: "Cam"})
	if err != nil {
		t.Fatal(err)
	}
	if ref != (wire.Reference{InstanceID: 3, Path: "World/Cam", Name: "Cam"}) {
		t.Errorf("got %+v", ref)
	}
	ref, err = r.ToReference(&texture{contentPath: "a.png", guid: "g"})
	if err != nil {
		t.Fatal(err)
	}
	if ref != (wire.Reference{AssetPath: "a.png", AssetGUID: "g", AssetType: "Texture"}) {
		t.Errorf("got %+v", ref)
	}
	var nilNode *node
	if ref, err := r.ToReference(nilNode); err != nil || !ref.IsZero() {
		t.Errorf("typed nil: %+v %v", ref, err)
	}
	if _, err := r.ToReference(struct{}{}); err == nil {
		t.Errorf("expected error for value without identity")
	}
}

func TestIsEntityType(t *testing.T) {
	if !IsEntityType(reflect.TypeFor[*node]()) || !IsEntityType(reflect.TypeFor[*texture]()) {
		t.Errorf("expected entity types")
	}
	if IsEntityType(reflect.TypeFor[node]()) {
		t.Errorf("value node has no pointer methods")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    wire.Reference
		wantErr bool
	}{
		{in: "#42", want: wire.Reference{InstanceID: 42}},
		{in: "guid:abc", want: wire.Reference{AssetGUID: "abc"}},
		{in: "asset:Assets/Hero.mat", want: wire.Reference{AssetPath: "Assets/Hero.mat"}},
		{in: "World/Player", want: wire.Reference{Path: "World/Player"}},
		{in: "#x", wantErr: true},
		{in: "#0", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		got, err := Parse(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error, got %+v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: got %+v, want %+v", tc.in, got, tc.want)
		}
	}
}
