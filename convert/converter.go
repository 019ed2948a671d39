// Package convert defines converters, the registry that selects them, and
// the built-in converters for Go kinds.
//
// A converter handles one type or type family.  The registry picks, for a
// given reflect.Type, the applicable converter with the highest priority,
// then the highest specificity, then the earliest registration.  The
// choice depends only on the registered converters and the type, so it is
// the same on every call and every run.
//
// Converters recurse through a [Call], which carries the per-operation
// state (diagnostics, depth, member path) and hands nested values back to
// the engine.
package convert

import (
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/signadot/objbridge/policy"
	"github.com/signadot/objbridge/wire"
)

// Specificity breaks ties between converters with equal priority.  Higher
// is more specific.
type Specificity int

const (
	// Fallback is for generic object converters.
	Fallback Specificity = iota
	// KindLevel is for converters of a whole reflect.Kind.
	KindLevel
	// Collection is for array, slice and map converters.
	Collection
	// Family is for converters of an interface or type family.
	Family
	// Exact is for converters bound to a single type.
	Exact
)

func (s Specificity) String() string {
	switch s {
	case Fallback:
		return "fallback"
	case KindLevel:
		return "kind"
	case Collection:
		return "collection"
	case Family:
		return "family"
	case Exact:
		return "exact"
	}
	return "unknown"
}

// Converter serializes, deserializes, populates and describes values of the
// types it applies to.  Implementations are registered as pointers.
//
// Serialize, Deserialize and Populate never see nil values, absent members,
// explicit nulls or reference members: the engine handles those before
// dispatching.  Content problems are recorded on the Call's log and the
// affected value is skipped by returning an invalid reflect.Value (or, for
// Populate, by leaving dst alone); a returned error aborts the operation.
type Converter interface {
	Name() string
	AppliesTo(t reflect.Type) bool
	Priority(t reflect.Type) int
	Specificity(t reflect.Type) Specificity

	// AllowCascade reports whether nested reference-typed values handled
	// by this converter may be expanded inline in recursive serialization.
	AllowCascade() bool
	// AllowMutateInPlace reports whether Populate is supported.  If not,
	// the engine deserializes a fresh value and assigns it.
	AllowMutateInPlace() bool

	// Members returns the fields and properties of t which are written by
	// Serialize and accepted by Populate.
	Members(p policy.Policy, t reflect.Type) (policy.Set, error)

	Serialize(c *Call, v reflect.Value) (*wire.Member, error)
	Deserialize(c *Call, m *wire.Member, t reflect.Type) (reflect.Value, error)
	// Populate merges m into dst, which is addressable and settable.
	Populate(c *Call, dst reflect.Value, m *wire.Member) error
	Schema(b SchemaBuilder, t reflect.Type) (*jsonschema.Schema, error)
}

// ExactConverter is implemented by converters that claim one type.  Two
// converters may not claim the same type.
type ExactConverter interface {
	Converter
	ExactType() reflect.Type
}

// SchemaBuilder is the schema generator as seen by converters.
type SchemaBuilder interface {
	// Build returns the schema of a nested type.  Types which are already
	// being built come back as a $ref.
	Build(t reflect.Type) (*jsonschema.Schema, error)
	// Next returns the schema the next ranked converter after c would
	// produce for t.
	Next(c Converter, t reflect.Type) (*jsonschema.Schema, error)
	Policy() policy.Policy
	TypeName(t reflect.Type) string
	// Depth is 0 for the type SchemaFor was called with.
	Depth() int
}

// Base provides defaults for optional converter behavior.  Plugins embed
// it and override what they need.
type Base struct{}

func (Base) Priority(reflect.Type) int { return 0 }
func (Base) AllowCascade() bool        { return true }
func (Base) AllowMutateInPlace() bool  { return true }
func (Base) Members(policy.Policy, reflect.Type) (policy.Set, error) {
	return policy.Set{}, nil
}

// Defaults returns the built-in converters in registration order.
func Defaults() []Converter {
	return []Converter{
		&Primitive{},
		&Bytes{},
		&Text{},
		&Duration{},
		&Slice{},
		&Map{},
		&Pointer{},
		&Interface{},
		&Reference{Cascade: true},
		&Struct{},
	}
}
