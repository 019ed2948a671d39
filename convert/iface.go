package convert

import (
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/signadot/objbridge/wire"
)

// Interface handles interface typed values.  Serialize writes the dynamic
// value with its own type id.  Deserialize builds a value of the type
// registered under the member's type id; without one, the member's plain
// JSON projection is stored.
type Interface struct {
	Base
}

func (*Interface) Name() string                         { return "interface" }
func (*Interface) AppliesTo(t reflect.Type) bool        { return t.Kind() == reflect.Interface }
func (*Interface) Specificity(reflect.Type) Specificity { return KindLevel }

func (*Interface) Serialize(c *Call, v reflect.Value) (*wire.Member, error) {
	return c.SerializeInline(v.Elem(), "")
}

func (*Interface) Deserialize(c *Call, m *wire.Member, t reflect.Type) (reflect.Value, error) {
	if m.TypeName != "" {
		if dt, ok := c.Registry().LookupType(m.TypeName); ok {
			for _, cand := range []reflect.Type{dt, reflect.PointerTo(dt)} {
				if !cand.AssignableTo(t) {
					continue
				}
				v, err := c.DeserializeInline(m, cand)
				if err != nil || !v.IsValid() {
					return reflect.Value{}, err
				}
				res := reflect.New(t).Elem()
				res.Set(v)
				return res, nil
			}
			c.Mismatch("type %s does not implement %s", m.TypeName, t)
			return reflect.Value{}, nil
		}
	}
	plain := wire.Plain(m)
	if plain == nil {
		return reflect.Zero(t), nil
	}
	pv := reflect.ValueOf(plain)
	if !pv.Type().AssignableTo(t) {
		c.Mismatch("cannot store %s in %s without a registered type", m.Kind(), t)
		return reflect.Value{}, nil
	}
	res := reflect.New(t).Elem()
	res.Set(pv)
	return res, nil
}

func (x *Interface) Populate(c *Call, dst reflect.Value, m *wire.Member) error {
	if !dst.IsNil() {
		cur := dst.Elem()
		if m.TypeName == "" || c.TypeName(cur.Type()) == m.TypeName {
			if cur.Kind() == reflect.Pointer && !cur.IsNil() {
				return c.PopulateInline(cur.Elem(), m)
			}
			tmp := reflect.New(cur.Type()).Elem()
			tmp.Set(cur)
			if err := c.PopulateInline(tmp, m); err != nil {
				return err
			}
			dst.Set(tmp)
			return nil
		}
	}
	v, err := x.Deserialize(c, m, dst.Type())
	if err != nil || !v.IsValid() {
		return err
	}
	dst.Set(v)
	return nil
}

// Schema accepts any value.
func (*Interface) Schema(b SchemaBuilder, t reflect.Type) (*jsonschema.Schema, error) {
	s := &jsonschema.Schema{}
	if t.NumMethod() > 0 {
		s.Title = b.TypeName(t)
	}
	return s, nil
}
