package convert

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/invopop/jsonschema"
	"github.com/signadot/objbridge/diag"
	"github.com/signadot/objbridge/wire"
)

// Map handles maps keyed by strings, integers or text marshalers.  Entries
// are written as fields named by the key, in key order.
//
// Populate merges by key: entries of the member are populated into
// existing values or added, entries not in the member are kept, and an
// entry whose member is an explicit null is deleted.
type Map struct {
	Base
}

func (*Map) Name() string { return "map" }

func (*Map) AppliesTo(t reflect.Type) bool {
	return t.Kind() == reflect.Map && keyKindOK(t.Key())
}

func keyKindOK(k reflect.Type) bool {
	switch k.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return k.Implements(textMarshalerType) && reflect.PointerTo(k).Implements(textUnmarshalerType)
}

func (*Map) Specificity(reflect.Type) Specificity { return Collection }

func (*Map) Serialize(c *Call, v reflect.Value) (*wire.Member, error) {
	type entry struct {
		name string
		val  reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		name, err := keyName(iter.Key())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Path(), err)
		}
		entries = append(entries, entry{name, iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	fields := make([]*wire.Member, 0, len(entries))
	for _, e := range entries {
		em, err := c.Serialize(e.val, e.name)
		if err != nil {
			return nil, err
		}
		if em != nil {
			fields = append(fields, em)
		}
	}
	return wire.Object("", c.TypeName(v.Type()), fields, nil), nil
}

func (mc *Map) Deserialize(c *Call, m *wire.Member, t reflect.Type) (reflect.Value, error) {
	res := reflect.MakeMap(t)
	if err := mc.merge(c, res, m); err != nil {
		return reflect.Value{}, err
	}
	return res, nil
}

func (mc *Map) Populate(c *Call, dst reflect.Value, m *wire.Member) error {
	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}
	return mc.merge(c, dst, m)
}

func (mc *Map) merge(c *Call, dst reflect.Value, m *wire.Member) error {
	entries, ok := mapEntries(c, m)
	if !ok {
		return nil
	}
	t := dst.Type()
	for _, em := range entries {
		if em.IsAbsent() {
			continue
		}
		key, err := parseKey(em.Name, t.Key())
		if err != nil {
			c.WarnAt(diag.TypeMismatch, em.Name, "%v", err)
			continue
		}
		if em.IsNull() {
			dst.SetMapIndex(key, reflect.Value{})
			continue
		}
		if cur := dst.MapIndex(key); cur.IsValid() {
			tmp := reflect.New(t.Elem()).Elem()
			tmp.Set(cur)
			if err := c.Populate(tmp, em); err != nil {
				return err
			}
			dst.SetMapIndex(key, tmp)
			continue
		}
		ev, err := c.Deserialize(em, t.Elem())
		if err != nil {
			return err
		}
		if ev.IsValid() {
			dst.SetMapIndex(key, ev)
		}
	}
	return nil
}

func (*Map) Schema(b SchemaBuilder, t reflect.Type) (*jsonschema.Schema, error) {
	elem, err := b.Build(t.Elem())
	if err != nil {
		return nil, err
	}
	return &jsonschema.Schema{Type: "object", AdditionalProperties: elem}, nil
}

// mapEntries returns the entry members of a map member, accepting an
// inline JSON object as well.
func mapEntries(c *Call, m *wire.Member) ([]*wire.Member, bool) {
	switch m.Kind() {
	case wire.ObjectKind:
		if m.Props != nil {
			c.Mismatch("map member has props")
			return nil, false
		}
		return m.Fields, true
	case wire.ValueKind:
		var raws map[string]json.RawMessage
		if err := json.Unmarshal(m.Value, &raws); err != nil {
			c.Mismatch("expected an object, got %s", m.Value)
			return nil, false
		}
		names := make([]string, 0, len(raws))
		for k := range raws {
			names = append(names, k)
		}
		sort.Strings(names)
		res := make([]*wire.Member, len(names))
		for i, k := range names {
			res[i] = wire.FromRaw(k, "", raws[k])
		}
		return res, true
	}
	c.Mismatch("expected a map, got %s", m.Kind())
	return nil, false
}

func keyName(k reflect.Value) (string, error) {
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok && k.Kind() != reflect.String {
		d, err := tm.MarshalText()
		if err != nil {
			return "", err
		}
		return string(d), nil
	}
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", fmt.Errorf("unsupported map key type %s", k.Type())
}

func parseKey(name string, t reflect.Type) (reflect.Value, error) {
	k := reflect.New(t).Elem()
	if t.Kind() != reflect.String && reflect.PointerTo(t).Implements(textUnmarshalerType) {
		if err := k.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(name)); err != nil {
			return reflect.Value{}, err
		}
		return k, nil
	}
	switch t.Kind() {
	case reflect.String:
		k.SetString(name)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(name, 10, 64)
		if err != nil || k.OverflowInt(i) {
			return reflect.Value{}, fmt.Errorf("invalid %s key %q", t, name)
		}
		k.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(name, 10, 64)
		if err != nil || k.OverflowUint(u) {
			return reflect.Value{}, fmt.Errorf("invalid %s key %q", t, name)
		}
		k.SetUint(u)
	default:
		return reflect.Value{}, fmt.Errorf("unsupported map key type %s", t)
	}
	return k, nil
}
