// Package policy decides which fields and properties of a Go type take part
// in serialization and population.
//
// The same [Set] is used for both directions, so whatever a type exposes on
// the wire is exactly what a caller may write back.
package policy

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemberKind tells fields from properties.
type MemberKind int

const (
	// FieldMember is a struct field.
	FieldMember MemberKind = iota
	// PropertyMember is a getter method with an optional setter.
	PropertyMember
)

func (k MemberKind) String() string {
	if k == PropertyMember {
		return "property"
	}
	return "field"
}

// MemberInfo describes one eligible member of a struct type.
type MemberInfo struct {
	// Name is the wire name.
	Name string
	// GoName is the struct field or getter method name.
	GoName string
	Kind   MemberKind
	Type   reflect.Type

	// Index is the field index sequence for FieldMember, including
	// embedded structs.
	Index []int

	ReadOnly    bool
	Deprecated  bool
	Optional    bool
	Required    bool
	Description string
	Tags        map[string]string

	setter string
}

// Set is the ordered set of eligible members of a type.
type Set struct {
	Fields []*MemberInfo
	Props  []*MemberInfo
}

// Field returns the field with wire name name, or nil.
func (s Set) Field(name string) *MemberInfo {
	return lookup(s.Fields, name)
}

// Prop returns the property with wire name name, or nil.
func (s Set) Prop(name string) *MemberInfo {
	return lookup(s.Props, name)
}

// Names returns the wire names of all members, fields first.
func (s Set) Names() []string {
	res := make([]string, 0, len(s.Fields)+len(s.Props))
	for _, f := range s.Fields {
		res = append(res, f.Name)
	}
	for _, p := range s.Props {
		res = append(res, p.Name)
	}
	return res
}

// Len returns the total number of members.
func (s Set) Len() int {
	return len(s.Fields) + len(s.Props)
}

func lookup(ms []*MemberInfo, name string) *MemberInfo {
	for _, m := range ms {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Policy returns the eligible members of a type.
type Policy interface {
	Eligible(t reflect.Type) (Set, error)
}

// Option configures a TagPolicy.
type Option func(*TagPolicy) error

// WithTagKey sets the struct tag key, "bridge" by default.
func WithTagKey(key string) Option {
	return func(p *TagPolicy) error {
		p.tagKey = key
		return nil
	}
}

// IncludeDeprecated makes members tagged deprecated eligible.
func IncludeDeprecated(v bool) Option {
	return func(p *TagPolicy) error {
		p.includeDeprecated = v
		return nil
	}
}

// WithProperties declares getter/setter properties of the struct type t.
// For each name N the getter is the method N() and the setter, if any, is
// SetN(v).  Both are looked up on *t.  A property without a setter is
// read-only.
func WithProperties(t reflect.Type, names ...string) Option {
	return func(p *TagPolicy) error {
		t = indirect(t)
		if t.Kind() != reflect.Struct {
			return fmt.Errorf("properties declared on non-struct type %s", t)
		}
		p.props[t] = append(p.props[t], names...)
		return nil
	}
}

// TagPolicy is the default Policy.  Exported struct fields are eligible in
// declaration order, with embedded structs flattened in place, unless
// excluded by tag, by kind (func, chan and unsafe pointers are never
// eligible), by deprecation or by a rule.  Declared properties follow the
// fields.
//
// Tag syntax:
//
//	bridge:"field=<wire name>,omit,readonly,deprecated,optional,required,desc='...'"
//
// bridge:"-" is the same as omit.
type TagPolicy struct {
	tagKey            string
	includeDeprecated bool
	props             map[reflect.Type][]string
	rules             []*rule

	cache *xsync.MapOf[reflect.Type, *cached]
}

type cached struct {
	set Set
	err error
}

// New creates a TagPolicy.
func New(opts ...Option) (*TagPolicy, error) {
	p := &TagPolicy{
		tagKey: TagKey,
		props:  map[reflect.Type][]string{},
		cache:  xsync.NewMapOf[reflect.Type, *cached](),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Must is like New but panics on error.
func Must(opts ...Option) *TagPolicy {
	p, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Eligible implements Policy.  Non-struct types have no members.
func (p *TagPolicy) Eligible(t reflect.Type) (Set, error) {
	t = indirect(t)
	if t.Kind() != reflect.Struct {
		return Set{}, nil
	}
	c, _ := p.cache.LoadOrCompute(t, func() *cached {
		set, err := p.compute(t)
		return &cached{set: set, err: err}
	})
	return c.set, c.err
}

func (p *TagPolicy) compute(t reflect.Type) (Set, error) {
	var cands []*MemberInfo
	if err := p.collectFields(t, nil, &cands); err != nil {
		return Set{}, err
	}
	fields, err := resolveShadowing(t, cands)
	if err != nil {
		return Set{}, err
	}
	props, err := p.properties(t)
	if err != nil {
		return Set{}, err
	}
	set := Set{}
	for _, f := range fields {
		ok, err := p.admit(t, f)
		if err != nil {
			return Set{}, err
		}
		if ok {
			set.Fields = append(set.Fields, f)
		}
	}
	for _, pr := range props {
		if set.Field(pr.Name) != nil {
			return Set{}, fmt.Errorf("%s: property %q collides with a field", t, pr.Name)
		}
		ok, err := p.admit(t, pr)
		if err != nil {
			return Set{}, err
		}
		if ok {
			set.Props = append(set.Props, pr)
		}
	}
	return set, nil
}

func (p *TagPolicy) admit(owner reflect.Type, m *MemberInfo) (bool, error) {
	if m.Deprecated && !p.includeDeprecated {
		return false, nil
	}
	return p.evalRules(owner, m)
}

func (p *TagPolicy) collectFields(t reflect.Type, prefix []int, out *[]*MemberInfo) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tags, err := ParseStructTag(sf.Tag.Get(p.tagKey))
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t, sf.Name, err)
		}
		if excluded(tags) {
			continue
		}
		index := append(slices.Clone(prefix), i)
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			if _, renamed := tags[tagField]; !renamed {
				if err := p.collectFields(sf.Type, index, out); err != nil {
					return err
				}
				continue
			}
		}
		if !sf.IsExported() || !serializableKind(sf.Type) {
			continue
		}
		m := &MemberInfo{
			Name:   sf.Name,
			GoName: sf.Name,
			Kind:   FieldMember,
			Type:   sf.Type,
			Index:  index,
			Tags:   tags,
		}
		applyTags(m, tags)
		*out = append(*out, m)
	}
	return nil
}

// resolveShadowing keeps, for each wire name, the shallowest field, as Go
// does for promoted fields.  Two fields with the same name at the same depth
// are an error.
func resolveShadowing(t reflect.Type, cands []*MemberInfo) ([]*MemberInfo, error) {
	best := map[string]*MemberInfo{}
	for _, c := range cands {
		b, ok := best[c.Name]
		switch {
		case !ok || len(c.Index) < len(b.Index):
			best[c.Name] = c
		case len(c.Index) == len(b.Index):
			return nil, fmt.Errorf("%s: member name conflict: %q is used by %s and %s", t, c.Name, b.GoName, c.GoName)
		}
	}
	res := make([]*MemberInfo, 0, len(best))
	for _, c := range cands {
		if best[c.Name] == c {
			res = append(res, c)
		}
	}
	return res, nil
}

func (p *TagPolicy) properties(t reflect.Type) ([]*MemberInfo, error) {
	names := p.props[t]
	if len(names) == 0 {
		return nil, nil
	}
	pt := reflect.PointerTo(t)
	res := make([]*MemberInfo, 0, len(names))
	for _, name := range names {
		getter, ok := pt.MethodByName(name)
		if !ok {
			return nil, fmt.Errorf("%s: declared property %q has no getter", t, name)
		}
		if getter.Type.NumIn() != 1 || getter.Type.NumOut() != 1 {
			return nil, fmt.Errorf("%s: getter %s must take no arguments and return one value", t, name)
		}
		typ := getter.Type.Out(0)
		m := &MemberInfo{
			Name:   name,
			GoName: name,
			Kind:   PropertyMember,
			Type:   typ,
			Tags:   map[string]string{},
		}
		if setter, ok := pt.MethodByName("Set" + name); ok {
			st := setter.Type
			validOut := st.NumOut() == 0 || (st.NumOut() == 1 && st.Out(0) == errorType)
			if st.NumIn() != 2 || st.In(1) != typ || !validOut {
				return nil, fmt.Errorf("%s: setter Set%s must take one %s and return nothing or an error", t, name, typ)
			}
			m.setter = setter.Name
		} else {
			m.ReadOnly = true
		}
		m.Optional = nullable(typ)
		res = append(res, m)
	}
	return res, nil
}

func excluded(tags map[string]string) bool {
	_, omit := tags[tagOmit]
	_, dash := tags[tagDash]
	return omit || dash || tags[tagField] == "-"
}

func applyTags(m *MemberInfo, tags map[string]string) {
	if name := tags[tagField]; name != "" {
		m.Name = name
	}
	_, m.ReadOnly = tags[tagReadOnly]
	_, m.Deprecated = tags[tagDeprecated]
	_, m.Required = tags[tagRequired]
	_, opt := tags[tagOptional]
	m.Optional = opt || (!m.Required && nullable(m.Type))
	m.Description = tags[tagDesc]
}

func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return false
}

func serializableKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Uintptr:
		return false
	}
	return true
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

var errorType = reflect.TypeFor[error]()

// Get returns the member's value on v, which must be an addressable value
// of the owning struct type.  Fields are returned addressable.  A field
// behind a nil embedded pointer yields an invalid Value.
func (m *MemberInfo) Get(v reflect.Value) (reflect.Value, error) {
	if m.Kind == FieldMember {
		f, err := v.FieldByIndexErr(m.Index)
		if err != nil {
			return reflect.Value{}, nil
		}
		return f, nil
	}
	if !v.CanAddr() {
		return reflect.Value{}, fmt.Errorf("property %s needs an addressable receiver", m.GoName)
	}
	out := v.Addr().MethodByName(m.GoName).Call(nil)
	return out[0], nil
}

// Set assigns x to the member on v.
func (m *MemberInfo) Set(v, x reflect.Value) error {
	if m.Kind == FieldMember {
		f, err := v.FieldByIndexErr(m.Index)
		if err != nil {
			return err
		}
		if !f.CanSet() {
			return fmt.Errorf("field %s is not settable", m.GoName)
		}
		f.Set(x)
		return nil
	}
	if m.setter == "" {
		return fmt.Errorf("property %s has no setter", m.GoName)
	}
	if !v.CanAddr() {
		return fmt.Errorf("property %s needs an addressable receiver", m.GoName)
	}
	out := v.Addr().MethodByName(m.setter).Call([]reflect.Value{x})
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

// Writable reports whether Populate may assign the member.
func (m *MemberInfo) Writable() bool {
	if m.ReadOnly {
		return false
	}
	return m.Kind == FieldMember || m.setter != ""
}

func (m *MemberInfo) String() string {
	var b strings.Builder
	b.WriteString(m.Name)
	if m.Name != m.GoName {
		b.WriteString("(" + m.GoName + ")")
	}
	b.WriteString(" " + m.Kind.String() + " " + m.Type.String())
	if m.ReadOnly {
		b.WriteString(" readonly")
	}
	return b.String()
}
