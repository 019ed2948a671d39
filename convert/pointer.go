package convert

import (
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/signadot/objbridge/policy"
	"github.com/signadot/objbridge/wire"
)

// Pointer handles pointers by converting their target at the same node.
// Populate allocates the target if the pointer is nil, and leaves the
// pointer nil when populating the new target records a problem.
type Pointer struct {
	Base
}

func (*Pointer) Name() string                         { return "pointer" }
func (*Pointer) AppliesTo(t reflect.Type) bool        { return t.Kind() == reflect.Pointer }
func (*Pointer) Specificity(reflect.Type) Specificity { return KindLevel }

func (*Pointer) Serialize(c *Call, v reflect.Value) (*wire.Member, error) {
	return c.SerializeInline(v.Elem(), "")
}

func (*Pointer) Deserialize(c *Call, m *wire.Member, t reflect.Type) (reflect.Value, error) {
	ev, err := c.DeserializeInline(m, t.Elem())
	if err != nil || !ev.IsValid() {
		return reflect.Value{}, err
	}
	p := reflect.New(t.Elem())
	p.Elem().Set(ev)
	return p, nil
}

func (*Pointer) Populate(c *Call, dst reflect.Value, m *wire.Member) error {
	if dst.IsNil() {
		p := reflect.New(dst.Type().Elem())
		mark := c.Log().Mark()
		if err := c.PopulateInline(p.Elem(), m); err != nil {
			return err
		}
		if c.Log().FailedSince(mark) {
			return nil
		}
		dst.Set(p)
		return nil
	}
	return c.PopulateInline(dst.Elem(), m)
}

func (*Pointer) Schema(b SchemaBuilder, t reflect.Type) (*jsonschema.Schema, error) {
	return b.Build(t.Elem())
}

// Members are those of the target type.
func (*Pointer) Members(p policy.Policy, t reflect.Type) (policy.Set, error) {
	return p.Eligible(t)
}
