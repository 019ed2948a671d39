package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	jsonpatch "github.com/evanphx/json-patch"
)

// Diff returns the RFC 7386 merge patch taking the plain projection of
// before to that of after.  An empty object means no change.  The patch is
// built from the projections directly so integers keep their precision.
func Diff(before, after *Member) ([]byte, error) {
	p, err := json.Marshal(mergePatch(Plain(before), Plain(after)))
	if err != nil {
		return nil, fmt.Errorf("could not create merge patch: %w", err)
	}
	return p, nil
}

func mergePatch(a, b any) any {
	am, aok := a.(map[string]any)
	bm, bok := b.(map[string]any)
	if !aok || !bok {
		if reflect.DeepEqual(a, b) {
			return map[string]any{}
		}
		return b
	}
	res := map[string]any{}
	for k, bv := range bm {
		av, ok := am[k]
		if !ok {
			res[k] = bv
			continue
		}
		if reflect.DeepEqual(av, bv) {
			continue
		}
		if _, isMap := bv.(map[string]any); isMap {
			if _, wasMap := av.(map[string]any); wasMap {
				res[k] = mergePatch(av, bv)
				continue
			}
		}
		res[k] = bv
	}
	for k := range am {
		if _, ok := bm[k]; !ok {
			res[k] = nil
		}
	}
	return res
}

// ApplyPatch applies a patch to the JSON encoding of m and decodes the
// result.  A patch starting with '[' is an RFC 6902 JSON patch, anything
// else is an RFC 7386 merge patch.
func ApplyPatch(m *Member, patch []byte) (*Member, error) {
	doc, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out []byte
	if p := bytes.TrimSpace(patch); len(p) > 0 && p[0] == '[' {
		ops, err := jsonpatch.DecodePatch(p)
		if err != nil {
			return nil, fmt.Errorf("could not decode json patch: %w", err)
		}
		out, err = ops.Apply(doc)
		if err != nil {
			return nil, fmt.Errorf("could not apply json patch: %w", err)
		}
	} else {
		out, err = jsonpatch.MergePatch(doc, p)
		if err != nil {
			return nil, fmt.Errorf("could not apply merge patch: %w", err)
		}
	}
	res := &Member{}
	if err := json.Unmarshal(out, res); err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}
