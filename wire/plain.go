package wire

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Plain projects m onto plain JSON data: inline values decode to their
// JSON value, objects become maps keyed by member name with props merged
// in, arrays (all children named "[i]") become slices and references become
// their descriptor.  Type ids are dropped.  Absent members project to nil
// and are left out of their parent.  Numbers are float64 unless that
// would round them; larger integers are int64 or uint64.
func Plain(m *Member) any {
	switch m.Kind() {
	case AbsentKind, NullKind:
		return nil
	case ValueKind:
		return decodeValue(m.Value)
	case ReferenceKind:
		r := map[string]any{"instanceID": m.Ref.InstanceID}
		for k, v := range map[string]string{
			"path":      m.Ref.Path,
			"name":      m.Ref.Name,
			"assetPath": m.Ref.AssetPath,
			"assetGuid": m.Ref.AssetGUID,
			"assetType": m.Ref.AssetType,
		} {
			if v != "" {
				r[k] = v
			}
		}
		return map[string]any{"$ref": r}
	}
	if isArray(m) {
		res := make([]any, 0, len(m.Fields))
		for _, c := range m.Fields {
			res = append(res, Plain(c))
		}
		return res
	}
	res := make(map[string]any, len(m.Fields)+len(m.Props))
	for _, list := range [][]*Member{m.Fields, m.Props} {
		for _, c := range list {
			if c.IsAbsent() {
				continue
			}
			res[c.Name] = Plain(c)
		}
	}
	return res
}

func isArray(m *Member) bool {
	if m.Props != nil {
		return false
	}
	if len(m.Fields) == 0 {
		return strings.HasPrefix(m.TypeName, "[")
	}
	for _, c := range m.Fields {
		if !strings.HasPrefix(c.Name, "[") {
			return false
		}
	}
	return true
}

func decodeValue(raw json.RawMessage) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	return numbers(v)
}

// maxExact is the largest magnitude below which every integer is a float64.
const maxExact = 1 << 53

func numbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(string(x), 10, 64); err == nil {
			if -maxExact <= i && i <= maxExact {
				return float64(i)
			}
			return i
		}
		if u, err := strconv.ParseUint(string(x), 10, 64); err == nil {
			return u
		}
		f, err := x.Float64()
		if err != nil {
			return string(x)
		}
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = numbers(e)
		}
	case []any:
		for i, e := range x {
			x[i] = numbers(e)
		}
	}
	return v
}
