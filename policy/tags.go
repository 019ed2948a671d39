package policy

import (
	"fmt"
	"strings"
)

// TagKey is the default struct tag key read by TagPolicy.
const TagKey = "bridge"

// Recognized tag keys and flags.
const (
	tagField      = "field"
	tagDesc       = "desc"
	tagOmit       = "omit"
	tagDash       = "-"
	tagReadOnly   = "readonly"
	tagDeprecated = "deprecated"
	tagOptional   = "optional"
	tagRequired   = "required"
)

// ParseStructTag parses a tag value such as
//
//	field=hp,readonly,desc='hit points, clamped to max'
//
// into key/value pairs.  Flags map to "".  Parts are separated by commas or
// spaces outside of single or double quotes, and quotes around a value are
// removed.
func ParseStructTag(tag string) (map[string]string, error) {
	res := map[string]string{}
	parts, err := splitTag(tag)
	if err != nil {
		return nil, err
	}
	for _, part := range parts {
		k, v, isKV := strings.Cut(part, "=")
		k = strings.TrimSpace(k)
		if !isKV {
			res[k] = ""
			continue
		}
		if k == "" {
			return nil, fmt.Errorf("invalid tag: empty key in %q", part)
		}
		res[k] = unquote(strings.TrimSpace(v))
	}
	return res, nil
}

func splitTag(tag string) ([]string, error) {
	var (
		parts []string
		cur   strings.Builder
		quote byte
	)
	flush := func() {
		if p := strings.TrimSpace(cur.String()); p != "" {
			parts = append(parts, p)
		}
		cur.Reset()
	}
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			cur.WriteByte(c)
		case c == '\'' || c == '"':
			quote = c
			cur.WriteByte(c)
		case c == ',' || c == ' ':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("invalid tag: unterminated quote in %q", tag)
	}
	flush()
	return parts, nil
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '\'' || v[0] == '"') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
