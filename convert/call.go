package convert

import (
	"io"
	"log/slog"
	"reflect"

	"github.com/signadot/objbridge/diag"
	"github.com/signadot/objbridge/policy"
	"github.com/signadot/objbridge/reference"
	"github.com/signadot/objbridge/wire"
)

// Op is the engine operation a Call belongs to.
type Op int

const (
	OpSerialize Op = iota
	OpDeserialize
	OpPopulate
)

func (o Op) String() string {
	switch o {
	case OpSerialize:
		return "serialize"
	case OpDeserialize:
		return "deserialize"
	case OpPopulate:
		return "populate"
	}
	return "unknown"
}

// Walker dispatches nested values to converters.  The engine implements it.
type Walker interface {
	SerializeValue(c *Call, v reflect.Value, name string) (*wire.Member, error)
	DeserializeValue(c *Call, m *wire.Member, t reflect.Type) (reflect.Value, error)
	PopulateValue(c *Call, dst reflect.Value, m *wire.Member) error
}

// CallSpec holds what a Call needs.
type CallSpec struct {
	Op        Op
	Walker    Walker
	Registry  *Registry
	Policy    policy.Policy
	Resolver  *reference.Resolver
	Log       *diag.Log
	Logger    *slog.Logger
	MaxDepth  int
	Recursive bool
}

// Call is the state of one engine operation at one node of the tree.
// Nested calls share the log and differ in depth and path.
type Call struct {
	spec  *CallSpec
	depth int
	path  string
}

// NewCall creates the root Call of an operation.
func NewCall(spec *CallSpec) *Call {
	if spec.Log == nil {
		spec.Log = diag.NewLog(nil)
	}
	if spec.Logger == nil {
		spec.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Call{spec: spec}
}

func (c *Call) Op() Op                        { return c.spec.Op }
func (c *Call) Log() *diag.Log                { return c.spec.Log }
func (c *Call) Logger() *slog.Logger          { return c.spec.Logger }
func (c *Call) Registry() *Registry           { return c.spec.Registry }
func (c *Call) Policy() policy.Policy         { return c.spec.Policy }
func (c *Call) Resolver() *reference.Resolver { return c.spec.Resolver }
func (c *Call) MaxDepth() int                 { return c.spec.MaxDepth }
func (c *Call) Recursive() bool               { return c.spec.Recursive }

// Depth is the number of member edges between this node and the root.
func (c *Call) Depth() int { return c.depth }

// Path is the member path of this node, e.g. "children[2].transform".
func (c *Call) Path() string { return c.path }

// TypeName returns the registry's type id for t.
func (c *Call) TypeName(t reflect.Type) string {
	return c.spec.Registry.TypeName(t)
}

func (c *Call) enter(name string) *Call {
	return &Call{spec: c.spec, depth: c.depth + 1, path: joinPath(c.path, name)}
}

// Serialize serializes a child value one level down.  A nil member means
// the child was truncated.
func (c *Call) Serialize(v reflect.Value, name string) (*wire.Member, error) {
	return c.spec.Walker.SerializeValue(c.enter(name), v, name)
}

// SerializeInline serializes v at the current node, e.g. the target of a
// pointer.
func (c *Call) SerializeInline(v reflect.Value, name string) (*wire.Member, error) {
	return c.spec.Walker.SerializeValue(c, v, name)
}

// Deserialize deserializes a child member one level down.  An invalid
// result means the child was skipped.
func (c *Call) Deserialize(m *wire.Member, t reflect.Type) (reflect.Value, error) {
	return c.spec.Walker.DeserializeValue(c.enter(m.Name), m, t)
}

// DeserializeInline deserializes m at the current node.
func (c *Call) DeserializeInline(m *wire.Member, t reflect.Type) (reflect.Value, error) {
	return c.spec.Walker.DeserializeValue(c, m, t)
}

// Populate merges a child member into dst one level down.
func (c *Call) Populate(dst reflect.Value, m *wire.Member) error {
	return c.spec.Walker.PopulateValue(c.enter(m.Name), dst, m)
}

// PopulateInline merges m into dst at the current node.
func (c *Call) PopulateInline(dst reflect.Value, m *wire.Member) error {
	return c.spec.Walker.PopulateValue(c, dst, m)
}

// Next returns the converter ranked after conv for t.
func (c *Call) Next(conv Converter, t reflect.Type) (Converter, error) {
	return c.spec.Registry.Next(conv, t)
}

// Mismatch records a TypeMismatch for this node.
func (c *Call) Mismatch(format string, args ...any) {
	c.spec.Log.Errorf(diag.TypeMismatch, c.path, format, args...)
}

// Warn records a warning with the given code for this node.
func (c *Call) Warn(code diag.Code, format string, args ...any) {
	c.spec.Log.Warnf(code, c.path, format, args...)
}

// WarnAt records a warning for the child member name.
func (c *Call) WarnAt(code diag.Code, name, format string, args ...any) {
	c.spec.Log.Warnf(code, joinPath(c.path, name), format, args...)
}

func joinPath(path, name string) string {
	switch {
	case name == "":
		return path
	case path == "":
		return name
	case name[0] == '[':
		return path + name
	default:
		return path + "." + name
	}
}
