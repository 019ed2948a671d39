package convert

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strconv"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/signadot/objbridge/diag"
)

// Builder collects converters and type names during startup.  Build
// freezes them into a Registry.
type Builder struct {
	convs     []Converter
	exact     map[reflect.Type]Converter
	byName    map[string]reflect.Type
	typeNames map[reflect.Type]string
	built     bool
}

// NewBuilder creates a Builder with the names of Go's predeclared basic
// types registered.
func NewBuilder() *Builder {
	b := &Builder{
		exact:     map[reflect.Type]Converter{},
		byName:    map[string]reflect.Type{},
		typeNames: map[reflect.Type]string{},
	}
	for _, t := range basicTypes {
		b.byName[t.String()] = t
	}
	return b
}

var basicTypes = []reflect.Type{
	reflect.TypeFor[bool](),
	reflect.TypeFor[int](), reflect.TypeFor[int8](), reflect.TypeFor[int16](),
	reflect.TypeFor[int32](), reflect.TypeFor[int64](),
	reflect.TypeFor[uint](), reflect.TypeFor[uint8](), reflect.TypeFor[uint16](),
	reflect.TypeFor[uint32](), reflect.TypeFor[uint64](),
	reflect.TypeFor[float32](), reflect.TypeFor[float64](),
	reflect.TypeFor[string](),
}

// Register adds converters.  Converters must be pointers; the registry
// identifies them by address.  A converter claiming an exact type which is
// already claimed is a configuration error.
func (b *Builder) Register(cs ...Converter) error {
	if b.built {
		return fmt.Errorf("registry already built")
	}
	for _, c := range cs {
		if c == nil {
			return fmt.Errorf("nil converter")
		}
		if reflect.TypeOf(c).Kind() != reflect.Pointer {
			return fmt.Errorf("converter %s: %T is not a pointer", c.Name(), c)
		}
		if ec, ok := c.(ExactConverter); ok {
			t := ec.ExactType()
			if prev, exists := b.exact[t]; exists {
				return fmt.Errorf("converter %s: type %s already claimed by %s", c.Name(), t, prev.Name())
			}
			b.exact[t] = c
		}
		b.convs = append(b.convs, c)
	}
	return nil
}

// RegisterType gives t the type id names[0] and accepts all of names when
// looking types up for polymorphic values.  With no names, t is registered
// under its default type id.
func (b *Builder) RegisterType(t reflect.Type, names ...string) error {
	if b.built {
		return fmt.Errorf("registry already built")
	}
	t = indirect(t)
	if len(names) == 0 {
		names = []string{defaultTypeName(t, nil)}
	}
	for _, n := range names {
		if prev, ok := b.byName[n]; ok && prev != t {
			return fmt.Errorf("type name %q already registered for %s", n, prev)
		}
		b.byName[n] = t
	}
	if _, ok := b.typeNames[t]; !ok {
		b.typeNames[t] = names[0]
	}
	return nil
}

// Build returns the immutable Registry.  The builder cannot be used
// afterwards.
func (b *Builder) Build() *Registry {
	b.built = true
	return &Registry{
		convs:     slices.Clone(b.convs),
		byName:    b.byName,
		typeNames: b.typeNames,
		ranked:    xsync.NewMapOf[reflect.Type, []Converter](),
	}
}

// NewRegistry builds a registry with the built-in converters followed by
// extra.
func NewRegistry(extra ...Converter) (*Registry, error) {
	b := NewBuilder()
	if err := b.Register(Defaults()...); err != nil {
		return nil, err
	}
	if err := b.Register(extra...); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// Registry selects converters for types.  It is immutable and safe for
// concurrent use.
type Registry struct {
	convs     []Converter
	byName    map[string]reflect.Type
	typeNames map[reflect.Type]string

	ranked *xsync.MapOf[reflect.Type, []Converter]
}

// Resolve returns the converter for t.  The error wraps
// diag.ErrMissingConverter when none applies.
func (r *Registry) Resolve(t reflect.Type) (Converter, error) {
	cs := r.rank(t)
	if len(cs) == 0 {
		return nil, diag.Missing("", r.TypeName(t))
	}
	return cs[0], nil
}

// Next returns the converter ranked after c for t.
func (r *Registry) Next(c Converter, t reflect.Type) (Converter, error) {
	cs := r.rank(t)
	for i, rc := range cs {
		if rc == c && i+1 < len(cs) {
			return cs[i+1], nil
		}
	}
	return nil, diag.Missing("", r.TypeName(t))
}

// Candidates returns all applicable converters for t, best first.
func (r *Registry) Candidates(t reflect.Type) []Converter {
	return slices.Clone(r.rank(t))
}

func (r *Registry) rank(t reflect.Type) []Converter {
	if cs, ok := r.ranked.Load(t); ok {
		return cs
	}
	type cand struct {
		c    Converter
		prio int
		spec Specificity
		idx  int
	}
	var cands []cand
	for i, c := range r.convs {
		if !c.AppliesTo(t) {
			continue
		}
		cands = append(cands, cand{c: c, prio: c.Priority(t), spec: c.Specificity(t), idx: i})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.prio != b.prio {
			return a.prio > b.prio
		}
		if a.spec != b.spec {
			return a.spec > b.spec
		}
		return a.idx < b.idx
	})
	cs := make([]Converter, len(cands))
	for i := range cands {
		cs[i] = cands[i].c
	}
	cs, _ = r.ranked.LoadOrStore(t, cs)
	return cs
}

// Converters returns the registered converters in registration order.
func (r *Registry) Converters() []Converter {
	return slices.Clone(r.convs)
}

// LookupType returns the type registered under name.
func (r *Registry) LookupType(name string) (reflect.Type, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	res := make([]string, 0, len(r.byName))
	for n, t := range r.byName {
		if r.typeNames[t] == n {
			res = append(res, n)
		}
	}
	sort.Strings(res)
	return res
}

// TypeName returns the type id of t.  Pointer types share the id of their
// element type.
func (r *Registry) TypeName(t reflect.Type) string {
	return defaultTypeName(t, r.typeNames)
}

func defaultTypeName(t reflect.Type, names map[reflect.Type]string) string {
	if t == nil {
		return ""
	}
	t = indirect(t)
	if n, ok := names[t]; ok {
		return n
	}
	if t.Name() != "" {
		if t.PkgPath() == "" {
			return t.Name()
		}
		return t.PkgPath() + "." + t.Name()
	}
	switch t.Kind() {
	case reflect.Slice:
		return "[]" + defaultTypeName(t.Elem(), names)
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + defaultTypeName(t.Elem(), names)
	case reflect.Map:
		return "map[" + defaultTypeName(t.Key(), names) + "]" + defaultTypeName(t.Elem(), names)
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return "any"
		}
	}
	return t.String()
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
