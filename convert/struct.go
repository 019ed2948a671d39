package convert

import (
	"encoding/json"
	"reflect"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/signadot/objbridge/diag"
	"github.com/signadot/objbridge/policy"
	"github.com/signadot/objbridge/wire"
)

// Struct is the generic object converter.  The members written and
// accepted are those the policy finds eligible: fields become the
// member's fields, declared properties its props.
//
// Populate only touches the members present in the wire input.  Names the
// type does not expose are reported as FieldNotFound and read-only
// members as FieldNotWritable; the rest of the input is still applied.
type Struct struct {
	Base
}

func (*Struct) Name() string                         { return "struct" }
func (*Struct) AppliesTo(t reflect.Type) bool        { return t.Kind() == reflect.Struct }
func (*Struct) Specificity(reflect.Type) Specificity { return Fallback }

func (*Struct) Members(p policy.Policy, t reflect.Type) (policy.Set, error) {
	return p.Eligible(t)
}

func (s *Struct) Serialize(c *Call, v reflect.Value) (*wire.Member, error) {
	set, err := c.Policy().Eligible(v.Type())
	if err != nil {
		return nil, err
	}
	if !v.CanAddr() && len(set.Props) > 0 {
		tmp := reflect.New(v.Type()).Elem()
		tmp.Set(v)
		v = tmp
	}
	fields := make([]*wire.Member, 0, len(set.Fields))
	for _, mi := range set.Fields {
		fm, err := s.serializeMember(c, v, mi)
		if err != nil {
			return nil, err
		}
		if fm != nil {
			fields = append(fields, fm)
		}
	}
	var props []*wire.Member
	if len(set.Props) > 0 {
		props = make([]*wire.Member, 0, len(set.Props))
		for _, mi := range set.Props {
			pm, err := s.serializeMember(c, v, mi)
			if err != nil {
				return nil, err
			}
			if pm != nil {
				props = append(props, pm)
			}
		}
	}
	return wire.Object("", c.TypeName(v.Type()), fields, props), nil
}

func (*Struct) serializeMember(c *Call, v reflect.Value, mi *policy.MemberInfo) (*wire.Member, error) {
	mv, err := mi.Get(v)
	if err != nil {
		c.WarnAt(diag.FieldNotFound, mi.Name, "%v", err)
		return nil, nil
	}
	if !mv.IsValid() {
		return nil, nil
	}
	return c.Serialize(mv, mi.Name)
}

func (s *Struct) Deserialize(c *Call, m *wire.Member, t reflect.Type) (reflect.Value, error) {
	res := reflect.New(t).Elem()
	if err := s.apply(c, res, m, true); err != nil {
		return reflect.Value{}, err
	}
	return res, nil
}

func (s *Struct) Populate(c *Call, dst reflect.Value, m *wire.Member) error {
	return s.apply(c, dst, m, false)
}

// apply writes the members of m into dst.  When fresh, dst is a zero value
// under construction and read-only fields may be set.
func (s *Struct) apply(c *Call, dst reflect.Value, m *wire.Member, fresh bool) error {
	fields, props, ok := objectMembers(c, m)
	if !ok {
		return nil
	}
	set, err := c.Policy().Eligible(dst.Type())
	if err != nil {
		return err
	}
	for _, fm := range fields {
		mi := set.Field(fm.Name)
		if mi == nil {
			if set.Prop(fm.Name) != nil {
				mi = set.Prop(fm.Name)
			} else {
				c.WarnAt(diag.FieldNotFound, fm.Name, "%s has no member %q", c.TypeName(dst.Type()), fm.Name)
				continue
			}
		}
		if err := s.applyMember(c, dst, mi, fm, fresh); err != nil {
			return err
		}
	}
	for _, pm := range props {
		mi := set.Prop(pm.Name)
		if mi == nil {
			c.WarnAt(diag.FieldNotFound, pm.Name, "%s has no property %q", c.TypeName(dst.Type()), pm.Name)
			continue
		}
		if err := s.applyMember(c, dst, mi, pm, fresh); err != nil {
			return err
		}
	}
	return nil
}

func (*Struct) applyMember(c *Call, dst reflect.Value, mi *policy.MemberInfo, m *wire.Member, fresh bool) error {
	if m.IsAbsent() {
		return nil
	}
	if !mi.Writable() {
		if fresh && mi.Kind == policy.FieldMember {
			f, err := mi.Get(dst)
			if err != nil || !f.IsValid() {
				return err
			}
			return c.Populate(f, m)
		}
		if fresh {
			return nil
		}
		c.WarnAt(diag.FieldNotWritable, m.Name, "member %s is read-only", mi.Name)
		return nil
	}
	if mi.Kind == policy.FieldMember {
		f, err := mi.Get(dst)
		if err != nil {
			return err
		}
		if !f.IsValid() {
			c.WarnAt(diag.FieldNotWritable, m.Name, "member %s is behind a nil embedded pointer", mi.Name)
			return nil
		}
		return c.Populate(f, m)
	}
	cur, err := mi.Get(dst)
	if err != nil {
		return err
	}
	tmp := reflect.New(mi.Type).Elem()
	tmp.Set(cur)
	mark := c.Log().Mark()
	if err := c.Populate(tmp, m); err != nil {
		return err
	}
	if c.Log().FailedSince(mark) {
		return nil
	}
	if err := mi.Set(dst, tmp); err != nil {
		c.WarnAt(diag.FieldNotWritable, m.Name, "%v", err)
	}
	return nil
}

// objectMembers returns the fields and props of an object member, accepting
// an inline JSON object as fields.
func objectMembers(c *Call, m *wire.Member) (fields, props []*wire.Member, ok bool) {
	switch m.Kind() {
	case wire.ObjectKind:
		return m.Fields, m.Props, true
	case wire.ValueKind:
		var raws map[string]json.RawMessage
		if err := json.Unmarshal(m.Value, &raws); err != nil {
			c.Mismatch("expected an object, got %s", m.Value)
			return nil, nil, false
		}
		names := make([]string, 0, len(raws))
		for k := range raws {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fields = append(fields, wire.FromRaw(k, "", raws[k]))
		}
		return fields, nil, true
	}
	c.Mismatch("expected an object, got %s", m.Kind())
	return nil, nil, false
}

func (s *Struct) Schema(b SchemaBuilder, t reflect.Type) (*jsonschema.Schema, error) {
	set, err := b.Policy().Eligible(t)
	if err != nil {
		return nil, err
	}
	props := jsonschema.NewProperties()
	var required []string
	for _, list := range [][]*policy.MemberInfo{set.Fields, set.Props} {
		for _, mi := range list {
			ms, err := b.Build(mi.Type)
			if err != nil {
				return nil, err
			}
			if mi.Description != "" || mi.ReadOnly || mi.Deprecated {
				cp := *ms
				cp.Description = mi.Description
				cp.ReadOnly = mi.ReadOnly || cp.ReadOnly
				cp.Deprecated = mi.Deprecated
				ms = &cp
			}
			props.Set(mi.Name, ms)
			if !mi.Optional {
				required = append(required, mi.Name)
			}
		}
	}
	return &jsonschema.Schema{
		Type:                 "object",
		Title:                b.TypeName(t),
		Properties:           props,
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}, nil
}
