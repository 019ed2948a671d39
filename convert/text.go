package convert

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/signadot/objbridge/wire"
)

var (
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	timeType            = reflect.TypeFor[time.Time]()
)

// Text handles types implementing encoding.TextMarshaler whose pointer
// implements encoding.TextUnmarshaler, such as time.Time.  Values are
// written as inline strings.
type Text struct {
	Base
}

func (*Text) Name() string { return "text" }

func (*Text) AppliesTo(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		return t.Implements(textMarshalerType) && t.Implements(textUnmarshalerType)
	}
	return t.Implements(textMarshalerType) && reflect.PointerTo(t).Implements(textUnmarshalerType)
}

func (*Text) Specificity(reflect.Type) Specificity { return Family }
func (*Text) AllowMutateInPlace() bool             { return false }

func (*Text) Serialize(c *Call, v reflect.Value) (*wire.Member, error) {
	tm := v.Interface().(encoding.TextMarshaler)
	d, err := tm.MarshalText()
	if err != nil {
		return nil, fmt.Errorf("%s: MarshalText: %w", c.Path(), err)
	}
	return wire.FromValue("", c.TypeName(v.Type()), string(d))
}

func (*Text) Deserialize(c *Call, m *wire.Member, t reflect.Type) (reflect.Value, error) {
	var s string
	if m.Kind() != wire.ValueKind || json.Unmarshal(m.Value, &s) != nil {
		c.Mismatch("expected a string for %s", t)
		return reflect.Value{}, nil
	}
	elem := t
	if t.Kind() == reflect.Pointer {
		elem = t.Elem()
	}
	p := reflect.New(elem)
	if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
		c.Mismatch("%v", err)
		return reflect.Value{}, nil
	}
	if t.Kind() == reflect.Pointer {
		return p, nil
	}
	return p.Elem(), nil
}

func (x *Text) Populate(c *Call, dst reflect.Value, m *wire.Member) error {
	v, err := x.Deserialize(c, m, dst.Type())
	if err != nil || !v.IsValid() {
		return err
	}
	dst.Set(v)
	return nil
}

func (*Text) Schema(b SchemaBuilder, t reflect.Type) (*jsonschema.Schema, error) {
	s := &jsonschema.Schema{Type: "string", Title: b.TypeName(t)}
	if indirect(t) == timeType {
		s.Format = "date-time"
	}
	return s, nil
}

// Duration writes time.Duration as a string such as "1m30s" and accepts
// either that form or a number of nanoseconds.
type Duration struct {
	Base
}

var durationType = reflect.TypeFor[time.Duration]()

func (*Duration) Name() string                         { return "duration" }
func (*Duration) ExactType() reflect.Type              { return durationType }
func (*Duration) AppliesTo(t reflect.Type) bool        { return t == durationType }
func (*Duration) Specificity(reflect.Type) Specificity { return Exact }
func (*Duration) AllowMutateInPlace() bool             { return false }

func (*Duration) Serialize(c *Call, v reflect.Value) (*wire.Member, error) {
	return wire.FromValue("", c.TypeName(v.Type()), time.Duration(v.Int()).String())
}

func (*Duration) Deserialize(c *Call, m *wire.Member, t reflect.Type) (reflect.Value, error) {
	if m.Kind() != wire.ValueKind {
		c.Mismatch("expected a duration, got %s", m.Kind())
		return reflect.Value{}, nil
	}
	var x any
	if err := json.Unmarshal(m.Value, &x); err != nil {
		c.Mismatch("invalid duration: %v", err)
		return reflect.Value{}, nil
	}
	var d time.Duration
	switch x := x.(type) {
	case string:
		pd, err := time.ParseDuration(x)
		if err != nil {
			c.Mismatch("%v", err)
			return reflect.Value{}, nil
		}
		d = pd
	case float64:
		d = time.Duration(x)
	default:
		c.Mismatch("expected a duration, got %s", m.Value)
		return reflect.Value{}, nil
	}
	return reflect.ValueOf(d), nil
}

func (x *Duration) Populate(c *Call, dst reflect.Value, m *wire.Member) error {
	v, err := x.Deserialize(c, m, dst.Type())
	if err != nil || !v.IsValid() {
		return err
	}
	dst.Set(v)
	return nil
}

func (*Duration) Schema(SchemaBuilder, reflect.Type) (*jsonschema.Schema, error) {
	return &jsonschema.Schema{Type: "string", Format: "duration"}, nil
}

// Scalar is a converter for one host type written as an inline value by a
// pair of functions.  It is how plugins teach the engine about engine
// specific value types.
type Scalar[T any] struct {
	Base
	// ID names the converter.
	ID string
	// Encode returns a JSON-encodable value.
	Encode func(T) (any, error)
	// Decode parses the raw JSON value.
	Decode func(json.RawMessage) (T, error)
	// Describe returns the schema; a string schema is used if nil.
	Describe func() *jsonschema.Schema
}

func (s *Scalar[T]) Name() string                         { return s.ID }
func (s *Scalar[T]) ExactType() reflect.Type              { return reflect.TypeFor[T]() }
func (s *Scalar[T]) AppliesTo(t reflect.Type) bool        { return t == reflect.TypeFor[T]() }
func (s *Scalar[T]) Specificity(reflect.Type) Specificity { return Exact }
func (s *Scalar[T]) AllowMutateInPlace() bool             { return false }

func (s *Scalar[T]) Serialize(c *Call, v reflect.Value) (*wire.Member, error) {
	x, err := s.Encode(v.Interface().(T))
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", c.Path(), s.ID, err)
	}
	return wire.FromValue("", c.TypeName(v.Type()), x)
}

func (s *Scalar[T]) Deserialize(c *Call, m *wire.Member, t reflect.Type) (reflect.Value, error) {
	if m.Kind() != wire.ValueKind {
		c.Mismatch("expected an inline value, got %s", m.Kind())
		return reflect.Value{}, nil
	}
	x, err := s.Decode(m.Value)
	if err != nil {
		c.Mismatch("%s: %v", s.ID, err)
		return reflect.Value{}, nil
	}
	return reflect.ValueOf(&x).Elem(), nil
}

func (s *Scalar[T]) Populate(c *Call, dst reflect.Value, m *wire.Member) error {
	v, err := s.Deserialize(c, m, dst.Type())
	if err != nil || !v.IsValid() {
		return err
	}
	dst.Set(v)
	return nil
}

func (s *Scalar[T]) Schema(b SchemaBuilder, t reflect.Type) (*jsonschema.Schema, error) {
	if s.Describe != nil {
		return s.Describe(), nil
	}
	return &jsonschema.Schema{Type: "string", Title: b.TypeName(t)}, nil
}
