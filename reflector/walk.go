package reflector

import (
	"reflect"

	"github.com/signadot/objbridge/convert"
	"github.com/signadot/objbridge/debug"
	"github.com/signadot/objbridge/diag"
	"github.com/signadot/objbridge/wire"
)

// walker handles what is common to every node (depth, nil values, absent
// and null members, references, type ids) and dispatches the rest to the
// converter the registry selects.
type walker struct {
	r *Reflector
}

var _ convert.Walker = (*walker)(nil)

func (w *walker) truncated(c *convert.Call) bool {
	if c.Depth() <= c.MaxDepth() {
		return false
	}
	c.Warn(diag.DepthExceeded, "depth %d exceeds max depth %d", c.Depth(), c.MaxDepth())
	return true
}

func (w *walker) SerializeValue(c *convert.Call, v reflect.Value, name string) (*wire.Member, error) {
	if w.truncated(c) {
		return nil, nil
	}
	if !v.IsValid() {
		return wire.Null(name, ""), nil
	}
	if nullable(v.Type()) && v.IsNil() {
		return wire.Null(name, c.TypeName(v.Type())), nil
	}
	conv, err := c.Registry().Resolve(v.Type())
	if err != nil {
		return nil, missing(c, v.Type())
	}
	if debug.Serialize() {
		c.Logger().Debug("serialize", "path", c.Path(), "type", v.Type().String(), "converter", conv.Name())
	}
	m, err := conv.Serialize(c, v)
	if err != nil || m == nil {
		return nil, err
	}
	m.Name = name
	if m.TypeName == "" {
		m.TypeName = c.TypeName(v.Type())
	}
	return m, nil
}

func (w *walker) DeserializeValue(c *convert.Call, m *wire.Member, t reflect.Type) (reflect.Value, error) {
	if w.truncated(c) {
		return reflect.Value{}, nil
	}
	switch m.Kind() {
	case wire.AbsentKind:
		return reflect.Zero(t), nil
	case wire.NullKind:
		if !nullable(t) {
			c.Mismatch("null for non-nullable %s", t)
			return reflect.Value{}, nil
		}
		return reflect.Zero(t), nil
	case wire.ReferenceKind:
		return w.resolve(c, m, t), nil
	}
	if !w.typeOK(c, m, t) {
		return reflect.Value{}, nil
	}
	conv, err := c.Registry().Resolve(t)
	if err != nil {
		return reflect.Value{}, missing(c, t)
	}
	return conv.Deserialize(c, m, t)
}

func (w *walker) PopulateValue(c *convert.Call, dst reflect.Value, m *wire.Member) error {
	if w.truncated(c) {
		return nil
	}
	t := dst.Type()
	switch m.Kind() {
	case wire.AbsentKind:
		return nil
	case wire.NullKind:
		if !nullable(t) {
			c.Mismatch("null for non-nullable %s", t)
			return nil
		}
		dst.Set(reflect.Zero(t))
		return nil
	case wire.ReferenceKind:
		if v := w.resolve(c, m, t); v.IsValid() {
			dst.Set(v)
		}
		return nil
	}
	if !w.typeOK(c, m, t) {
		return nil
	}
	conv, err := c.Registry().Resolve(t)
	if err != nil {
		return missing(c, t)
	}
	if debug.Populate() {
		c.Logger().Debug("populate", "path", c.Path(), "type", t.String(), "converter", conv.Name())
	}
	if !conv.AllowMutateInPlace() {
		v, err := conv.Deserialize(c, m, t)
		if err != nil || !v.IsValid() {
			return err
		}
		dst.Set(v)
		return nil
	}
	return conv.Populate(c, dst, m)
}

// resolve turns a reference member into a value of type t.  A reference
// which cannot be resolved yields the zero value and one warning.
func (w *walker) resolve(c *convert.Call, m *wire.Member, t reflect.Type) reflect.Value {
	if m.Ref.IsZero() {
		if !nullable(t) {
			c.Mismatch("null reference for non-nullable %s", t)
			return reflect.Value{}
		}
		return reflect.Zero(t)
	}
	obj, strategy, err := c.Resolver().FromReference(*m.Ref, t)
	if err != nil {
		c.Warn(diag.ReferenceResolutionFailed, "%v", err)
		return reflect.Zero(t)
	}
	w.r.metrics.ObserveResolution(strategy.String())
	res := reflect.New(t).Elem()
	res.Set(reflect.ValueOf(obj))
	return res
}

// typeOK checks the member's type id against the target type.  An empty
// type id means the target type.  Interface targets are checked by their
// converter.
func (w *walker) typeOK(c *convert.Call, m *wire.Member, t reflect.Type) bool {
	if m.TypeName == "" || t.Kind() == reflect.Interface || m.TypeName == c.TypeName(t) {
		return true
	}
	if mt, ok := c.Registry().LookupType(m.TypeName); ok {
		et := t
		for et.Kind() == reflect.Pointer {
			et = et.Elem()
		}
		if mt == et || mt.AssignableTo(t) || mt.Kind() == et.Kind() && isBasic(mt) && isBasic(et) {
			return true
		}
	}
	c.Mismatch("member of type %s cannot be stored in %s", m.TypeName, c.TypeName(t))
	return false
}

func missing(c *convert.Call, t reflect.Type) error {
	return diag.Missing(c.Path(), c.TypeName(t))
}

func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return false
}

func isBasic(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
