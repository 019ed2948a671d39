package convert

import (
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/signadot/objbridge/diag"
	"github.com/signadot/objbridge/policy"
	"github.com/signadot/objbridge/reference"
	"github.com/signadot/objbridge/wire"
)

// Reference handles types carrying identity (see reference.Entity and
// reference.Asset).  Below the root such values are written as reference
// members, unless the call is recursive and Cascade is set, in which case
// they are expanded inline by the next ranked converter.  The root of a
// call is always expanded.
//
// Object members are passed to the next ranked converter; reference
// members are resolved by the engine before any converter sees them.
type Reference struct {
	Base
	Cascade bool
}

func (*Reference) Name() string                         { return "reference" }
func (*Reference) AppliesTo(t reflect.Type) bool        { return reference.IsEntityType(t) }
func (*Reference) Specificity(reflect.Type) Specificity { return Family }
func (r *Reference) AllowCascade() bool                 { return r.Cascade }

func (r *Reference) Serialize(c *Call, v reflect.Value) (*wire.Member, error) {
	if c.Depth() == 0 || (c.Recursive() && r.Cascade) {
		next, err := c.Next(r, v.Type())
		if err != nil {
			return nil, err
		}
		return next.Serialize(c, v)
	}
	ref, err := c.Resolver().ToReference(v.Interface())
	if err != nil {
		c.Warn(diag.ReferenceResolutionFailed, "%v", err)
		return nil, nil
	}
	return wire.FromRef("", c.TypeName(v.Type()), ref), nil
}

func (r *Reference) Deserialize(c *Call, m *wire.Member, t reflect.Type) (reflect.Value, error) {
	next, err := c.Next(r, t)
	if err != nil {
		return reflect.Value{}, err
	}
	return next.Deserialize(c, m, t)
}

func (r *Reference) Populate(c *Call, dst reflect.Value, m *wire.Member) error {
	next, err := c.Next(r, dst.Type())
	if err != nil {
		return err
	}
	if !next.AllowMutateInPlace() {
		v, err := next.Deserialize(c, m, dst.Type())
		if err != nil || !v.IsValid() {
			return err
		}
		dst.Set(v)
		return nil
	}
	return next.Populate(c, dst, m)
}

// Members are those of the entity's struct type.
func (*Reference) Members(p policy.Policy, t reflect.Type) (policy.Set, error) {
	return p.Eligible(t)
}

// Schema describes the expanded value at the root and a reference
// descriptor below it.
func (r *Reference) Schema(b SchemaBuilder, t reflect.Type) (*jsonschema.Schema, error) {
	if b.Depth() == 0 {
		return b.Next(r, t)
	}
	return DescriptorSchema(b.TypeName(t)), nil
}

// DescriptorSchema is the schema of a reference member's descriptor.
func DescriptorSchema(typeName string) *jsonschema.Schema {
	props := jsonschema.NewProperties()
	props.Set("instanceID", &jsonschema.Schema{Type: "integer"})
	for _, k := range []string{"path", "name", "assetPath", "assetGuid", "assetType"} {
		props.Set(k, &jsonschema.Schema{Type: "string"})
	}
	return &jsonschema.Schema{
		Type:                 "object",
		Title:                typeName,
		Description:          "reference to a live " + typeName,
		Properties:           props,
		Required:             []string{"instanceID"},
		AdditionalProperties: jsonschema.FalseSchema,
	}
}
