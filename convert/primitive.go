package convert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/invopop/jsonschema"
	"github.com/signadot/objbridge/wire"
)

// Primitive handles booleans, integers, floats and strings, including named
// types of those kinds.  Values are written inline.
type Primitive struct {
	Base
}

func (*Primitive) Name() string { return "primitive" }

func (*Primitive) AppliesTo(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (*Primitive) Specificity(reflect.Type) Specificity { return KindLevel }

// AllowMutateInPlace is false: a scalar is always replaced.
func (*Primitive) AllowMutateInPlace() bool { return false }

func (p *Primitive) Serialize(c *Call, v reflect.Value) (*wire.Member, error) {
	var x any
	switch v.Kind() {
	case reflect.Bool:
		x = v.Bool()
	case reflect.String:
		x = v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		x = v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		x = v.Uint()
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		switch {
		case math.IsNaN(f):
			x = "NaN"
		case math.IsInf(f, 1):
			x = "+Inf"
		case math.IsInf(f, -1):
			x = "-Inf"
		default:
			x = f
		}
	}
	return wire.FromValue("", c.TypeName(v.Type()), x)
}

func (p *Primitive) Deserialize(c *Call, m *wire.Member, t reflect.Type) (reflect.Value, error) {
	if m.Kind() != wire.ValueKind {
		c.Mismatch("expected an inline %s value, got %s", t, m.Kind())
		return reflect.Value{}, nil
	}
	res := reflect.New(t).Elem()
	if err := decodeScalar(m.Value, res); err != nil {
		c.Mismatch("%v", err)
		return reflect.Value{}, nil
	}
	return res, nil
}

func (p *Primitive) Populate(c *Call, dst reflect.Value, m *wire.Member) error {
	v, err := p.Deserialize(c, m, dst.Type())
	if err != nil || !v.IsValid() {
		return err
	}
	dst.Set(v)
	return nil
}

func (p *Primitive) Schema(b SchemaBuilder, t reflect.Type) (*jsonschema.Schema, error) {
	s := &jsonschema.Schema{}
	switch t.Kind() {
	case reflect.Bool:
		s.Type = "boolean"
	case reflect.String:
		s.Type = "string"
	case reflect.Float32, reflect.Float64:
		s.Type = "number"
	default:
		s.Type = "integer"
	}
	if t.Name() != "" && t.PkgPath() != "" {
		s.Title = b.TypeName(t)
	}
	return s, nil
}

// decodeScalar decodes a JSON scalar into the settable v, accepting numbers
// written as strings.
func decodeScalar(d json.RawMessage, v reflect.Value) error {
	dec := json.NewDecoder(bytes.NewReader(d))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return fmt.Errorf("invalid value: %w", err)
	}
	switch v.Kind() {
	case reflect.Bool:
		b, ok := x.(bool)
		if !ok {
			return fmt.Errorf("expected boolean, got %s", d)
		}
		v.SetBool(b)
	case reflect.String:
		s, ok := x.(string)
		if !ok {
			return fmt.Errorf("expected string, got %s", d)
		}
		v.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		s, err := numberText(x, d)
		if err != nil {
			return err
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("cannot convert %s to %s", d, v.Type())
		}
		if v.OverflowInt(i) {
			return fmt.Errorf("value %d overflows %s", i, v.Type())
		}
		v.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		s, err := numberText(x, d)
		if err != nil {
			return err
		}
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("cannot convert %s to %s", d, v.Type())
		}
		if v.OverflowUint(u) {
			return fmt.Errorf("value %d overflows %s", u, v.Type())
		}
		v.SetUint(u)
	case reflect.Float32, reflect.Float64:
		s, err := numberText(x, d)
		if err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("cannot convert %s to %s", d, v.Type())
		}
		if v.OverflowFloat(f) {
			return fmt.Errorf("value %g overflows %s", f, v.Type())
		}
		v.SetFloat(f)
	default:
		return fmt.Errorf("unsupported scalar kind %s", v.Kind())
	}
	return nil
}

func numberText(x any, d json.RawMessage) (string, error) {
	switch n := x.(type) {
	case json.Number:
		return n.String(), nil
	case string:
		return n, nil
	}
	return "", fmt.Errorf("expected number, got %s", d)
}

// Bytes writes byte slices inline as base64, as encoding/json does.
type Bytes struct {
	Base
}

func (*Bytes) Name() string { return "bytes" }

func (*Bytes) AppliesTo(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

// Priority is above the generic slice converter.
func (*Bytes) Priority(reflect.Type) int { return 1 }

func (*Bytes) Specificity(reflect.Type) Specificity { return Collection }
func (*Bytes) AllowMutateInPlace() bool             { return false }

func (*Bytes) Serialize(c *Call, v reflect.Value) (*wire.Member, error) {
	return wire.FromValue("", c.TypeName(v.Type()), v.Bytes())
}

func (b *Bytes) Deserialize(c *Call, m *wire.Member, t reflect.Type) (reflect.Value, error) {
	if m.Kind() != wire.ValueKind {
		c.Mismatch("expected base64 string, got %s", m.Kind())
		return reflect.Value{}, nil
	}
	var d []byte
	if err := json.Unmarshal(m.Value, &d); err != nil {
		c.Mismatch("invalid bytes: %v", err)
		return reflect.Value{}, nil
	}
	return reflect.ValueOf(d).Convert(t), nil
}

func (b *Bytes) Populate(c *Call, dst reflect.Value, m *wire.Member) error {
	v, err := b.Deserialize(c, m, dst.Type())
	if err != nil || !v.IsValid() {
		return err
	}
	dst.Set(v)
	return nil
}

func (*Bytes) Schema(b SchemaBuilder, t reflect.Type) (*jsonschema.Schema, error) {
	return &jsonschema.Schema{Type: "string", ContentEncoding: "base64"}, nil
}
