package convert

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/invopop/jsonschema"
	"github.com/signadot/objbridge/diag"
	"github.com/signadot/objbridge/wire"
)

type vec3 struct{ X, Y, Z float64 }

type hp int

type named struct {
	Base
	name string
	prio int
	spec Specificity
	t    reflect.Type
}

func (n *named) Name() string                         { return n.name }
func (n *named) AppliesTo(t reflect.Type) bool        { return n.t == nil || n.t == t }
func (n *named) Priority(reflect.Type) int            { return n.prio }
func (n *named) Specificity(reflect.Type) Specificity { return n.spec }

func (*named) Serialize(*Call, reflect.Value) (*wire.Member, error) { return nil, nil }
func (*named) Deserialize(*Call, *wire.Member, reflect.Type) (reflect.Value, error) {
	return reflect.Value{}, nil
}
func (*named) Populate(*Call, reflect.Value, *wire.Member) error { return nil }
func (*named) Schema(SchemaBuilder, reflect.Type) (*jsonschema.Schema, error) {
	return nil, nil
}

func TestResolveBuiltins(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		typ  reflect.Type
		want string
	}{
		{reflect.TypeFor[int](), "primitive"},
		{reflect.TypeFor[hp](), "primitive"},
		{reflect.TypeFor[string](), "primitive"},
		{reflect.TypeFor[[]byte](), "bytes"},
		{reflect.TypeFor[[]int](), "slice"},
		{reflect.TypeFor[[3]float32](), "slice"},
		{reflect.TypeFor[map[string]int](), "map"},
		{reflect.TypeFor[*vec3](), "pointer"},
		{reflect.TypeFor[any](), "interface"},
		{reflect.TypeFor[vec3](), "struct"},
		{reflect.TypeFor[json.Number](), "primitive"},
	}
	for _, tc := range tests {
		c, err := r.Resolve(tc.typ)
		if err != nil {
			t.Errorf("%s: %v", tc.typ, err)
			continue
		}
		if c.Name() != tc.want {
			t.Errorf("%s: got %s, want %s", tc.typ, c.Name(), tc.want)
		}
		again, err := r.Resolve(tc.typ)
		if err != nil || again != c {
			t.Errorf("%s: resolve again gave %p (%v), want %p", tc.typ, again, err, c)
		}
	}
}

func TestResolveMissing(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Resolve(reflect.TypeFor[chan int]())
	if !errors.Is(err, diag.ErrMissingConverter) {
		t.Fatalf("expected missing converter, got %v", err)
	}
	if diag.CodeOf(err) != diag.MissingConverter {
		t.Errorf("got code %q", diag.CodeOf(err))
	}
}

func TestRanking(t *testing.T) {
	vt := reflect.TypeFor[vec3]()
	tests := []struct {
		name  string
		convs []Converter
		want  []string
	}{
		{
			name: "priority wins over specificity",
			convs: []Converter{
				&named{name: "exact", spec: Exact, t: vt},
				&named{name: "loud", prio: 5, spec: Fallback},
			},
			want: []string{"loud", "exact"},
		},
		{
			name: "specificity breaks priority ties",
			convs: []Converter{
				&named{name: "generic", spec: Fallback},
				&named{name: "family", spec: Family},
				&named{name: "exact", spec: Exact, t: vt},
			},
			want: []string{"exact", "family", "generic"},
		},
		{
			name: "registration order breaks full ties",
			convs: []Converter{
				&named{name: "first", spec: Family},
				&named{name: "second", spec: Family},
			},
			want: []string{"first", "second"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder()
			if err := b.Register(tc.convs...); err != nil {
				t.Fatal(err)
			}
			r := b.Build()
			for range 3 {
				var got []string
				for _, c := range r.Candidates(vt) {
					got = append(got, c.Name())
				}
				if diff := cmp.Diff(tc.want, got); diff != "" {
					t.Fatalf("(-want +got):\n%s", diff)
				}
			}
			first, err := r.Resolve(vt)
			if err != nil {
				t.Fatal(err)
			}
			if first != tc.convs[indexOf(tc.convs, tc.want[0])] {
				t.Errorf("resolve returned %p, not the registered %s", first, tc.want[0])
			}
			for range 3 {
				if c, _ := r.Resolve(vt); c != first {
					t.Fatalf("resolve not stable: %p then %p", first, c)
				}
			}
			next, err := r.Next(first, vt)
			if err != nil {
				t.Fatal(err)
			}
			if next.Name() != tc.want[1] {
				t.Errorf("next: got %s, want %s", next.Name(), tc.want[1])
			}
		})
	}
}

func indexOf(cs []Converter, name string) int {
	for i, c := range cs {
		if c.Name() == name {
			return i
		}
	}
	return -1
}

// byValue has value receivers and an uncomparable field.
type byValue struct {
	Base
	opts map[string]int
}

func (byValue) Name() string                         { return "byValue" }
func (byValue) AppliesTo(reflect.Type) bool          { return true }
func (byValue) Specificity(reflect.Type) Specificity { return Exact }

func (byValue) Serialize(*Call, reflect.Value) (*wire.Member, error) { return nil, nil }
func (byValue) Deserialize(*Call, *wire.Member, reflect.Type) (reflect.Value, error) {
	return reflect.Value{}, nil
}
func (byValue) Populate(*Call, reflect.Value, *wire.Member) error { return nil }
func (byValue) Schema(SchemaBuilder, reflect.Type) (*jsonschema.Schema, error) {
	return nil, nil
}

func TestRegisterRequiresPointer(t *testing.T) {
	b := NewBuilder()
	if err := b.Register(byValue{opts: map[string]int{}}); err == nil {
		t.Fatal("expected a value converter to be rejected")
	}
	if err := b.Register(nil); err == nil {
		t.Fatal("expected a nil converter to be rejected")
	}
	c := &byValue{opts: map[string]int{}}
	if err := b.Register(&Primitive{}, c); err != nil {
		t.Fatal(err)
	}
	r := b.Build()
	vt := reflect.TypeFor[vec3]()
	first, err := r.Resolve(vt)
	if err != nil {
		t.Fatal(err)
	}
	if first != Converter(c) {
		t.Fatalf("got %s", first.Name())
	}
	if _, err := r.Next(first, vt); !errors.Is(err, diag.ErrMissingConverter) {
		t.Errorf("next after the only applicable converter: %v", err)
	}
}

func TestRegisterDuplicateExact(t *testing.T) {
	b := NewBuilder()
	one := &Scalar[vec3]{ID: "one"}
	two := &Scalar[vec3]{ID: "two"}
	if err := b.Register(one); err != nil {
		t.Fatal(err)
	}
	if err := b.Register(two); err == nil {
		t.Fatal("expected duplicate exact converter to be rejected")
	}
	b.Build()
	if err := b.Register(&Primitive{}); err == nil {
		t.Error("expected register after build to fail")
	}
}

func TestTypeNames(t *testing.T) {
	b := NewBuilder()
	if err := b.RegisterType(reflect.TypeFor[vec3](), "Vector3", "UnityEngine.Vector3"); err != nil {
		t.Fatal(err)
	}
	if err := b.RegisterType(reflect.TypeFor[hp](), "Vector3"); err == nil {
		t.Fatal("expected name conflict")
	}
	r := b.Build()

	tests := []struct {
		typ  reflect.Type
		want string
	}{
		{reflect.TypeFor[vec3](), "Vector3"},
		{reflect.TypeFor[*vec3](), "Vector3"},
		{reflect.TypeFor[[]vec3](), "[]Vector3"},
		{reflect.TypeFor[[2]int](), "[2]int"},
		{reflect.TypeFor[map[string]*vec3](), "map[string]Vector3"},
		{reflect.TypeFor[any](), "any"},
		{reflect.TypeFor[hp](), "github.com/signadot/objbridge/convert.hp"},
	}
	for _, tc := range tests {
		if got := r.TypeName(tc.typ); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.typ, got, tc.want)
		}
	}
	for _, n := range []string{"Vector3", "UnityEngine.Vector3"} {
		got, ok := r.LookupType(n)
		if !ok || got != reflect.TypeFor[vec3]() {
			t.Errorf("lookup %q: got %v %v", n, got, ok)
		}
	}
	if got, ok := r.LookupType("int"); !ok || got != reflect.TypeFor[int]() {
		t.Errorf("lookup int: got %v %v", got, ok)
	}
	if !cmp.Equal(r.Types(), []string{"Vector3"}) {
		t.Errorf("types: %v", r.Types())
	}
}
