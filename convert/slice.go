package convert

import (
	"encoding/json"
	"reflect"
	"strconv"

	"github.com/invopop/jsonschema"
	"github.com/signadot/objbridge/wire"
)

// Slice handles slices and arrays.  Elements are written as fields named
// "[0]", "[1]", ...
//
// Populate replaces the length: the result has as many elements as the
// member has fields.  Elements at indices present before and after are
// populated in place, so a partial element keeps its other members; new
// elements are deserialized.  Arrays must match in length.
type Slice struct {
	Base
}

func (*Slice) Name() string { return "slice" }

func (*Slice) AppliesTo(t reflect.Type) bool {
	return t.Kind() == reflect.Slice || t.Kind() == reflect.Array
}

func (*Slice) Specificity(reflect.Type) Specificity { return Collection }

func (*Slice) Serialize(c *Call, v reflect.Value) (*wire.Member, error) {
	fields := make([]*wire.Member, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		em, err := c.Serialize(v.Index(i), indexName(i))
		if err != nil {
			return nil, err
		}
		if em != nil {
			fields = append(fields, em)
		}
	}
	return wire.Object("", c.TypeName(v.Type()), fields, nil), nil
}

func (s *Slice) Deserialize(c *Call, m *wire.Member, t reflect.Type) (reflect.Value, error) {
	elems, ok := elements(c, m)
	if !ok {
		return reflect.Value{}, nil
	}
	var res reflect.Value
	if t.Kind() == reflect.Array {
		if len(elems) != t.Len() {
			c.Mismatch("array %s needs %d elements, got %d", t, t.Len(), len(elems))
			return reflect.Value{}, nil
		}
		res = reflect.New(t).Elem()
	} else {
		res = reflect.MakeSlice(t, len(elems), len(elems))
	}
	for i, em := range elems {
		ev, err := c.Deserialize(em, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		if ev.IsValid() {
			res.Index(i).Set(ev)
		}
	}
	return res, nil
}

func (s *Slice) Populate(c *Call, dst reflect.Value, m *wire.Member) error {
	elems, ok := elements(c, m)
	if !ok {
		return nil
	}
	t := dst.Type()
	if t.Kind() == reflect.Array && len(elems) != t.Len() {
		c.Mismatch("array %s needs %d elements, got %d", t, t.Len(), len(elems))
		return nil
	}
	target, replaced := dst, false
	if t.Kind() == reflect.Slice && (dst.IsNil() || dst.Len() != len(elems)) {
		target = reflect.MakeSlice(t, len(elems), len(elems))
		reflect.Copy(target, dst)
		replaced = true
	}
	old := dst.Len()
	for i, em := range elems {
		if i < old {
			if err := c.Populate(target.Index(i), em); err != nil {
				return err
			}
			continue
		}
		ev, err := c.Deserialize(em, t.Elem())
		if err != nil {
			return err
		}
		if ev.IsValid() {
			target.Index(i).Set(ev)
		}
	}
	if replaced {
		dst.Set(target)
	}
	return nil
}

func (*Slice) Schema(b SchemaBuilder, t reflect.Type) (*jsonschema.Schema, error) {
	items, err := b.Build(t.Elem())
	if err != nil {
		return nil, err
	}
	return &jsonschema.Schema{Type: "array", Items: items}, nil
}

// elements returns the element members of a collection member.  An inline
// JSON array is accepted as well, each element becoming an untyped member.
func elements(c *Call, m *wire.Member) ([]*wire.Member, bool) {
	switch m.Kind() {
	case wire.ObjectKind:
		if m.Props != nil {
			c.Mismatch("collection member has props")
			return nil, false
		}
		return m.Fields, true
	case wire.ValueKind:
		var raws []json.RawMessage
		if err := json.Unmarshal(m.Value, &raws); err != nil {
			c.Mismatch("expected an array, got %s", m.Value)
			return nil, false
		}
		res := make([]*wire.Member, len(raws))
		for i, r := range raws {
			res[i] = wire.FromRaw(indexName(i), "", r)
		}
		return res, true
	}
	c.Mismatch("expected an array, got %s", m.Kind())
	return nil, false
}

func indexName(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}
