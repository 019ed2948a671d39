package wire

import (
	"fmt"
	"strings"
)

// Find returns the descendant of m addressed by path, or nil.
//
// Path segments are separated by '.'; "[i]" segments address array
// elements and may follow a name without a separator, as in
// "children[2].transform".  A segment matches fields before props.
func (m *Member) Find(path string) (*Member, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	cur := m
	for _, seg := range segs {
		if cur == nil {
			return nil, nil
		}
		next := cur.Field(seg)
		if next == nil {
			next = cur.Prop(seg)
		}
		cur = next
	}
	return cur, nil
}

func splitPath(path string) ([]string, error) {
	var res []string
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}
		for part != "" {
			i := strings.IndexByte(part, '[')
			switch {
			case i < 0:
				res = append(res, part)
				part = ""
			case i > 0:
				res = append(res, part[:i])
				part = part[i:]
			default:
				j := strings.IndexByte(part, ']')
				if j < 0 {
					return nil, fmt.Errorf("unterminated index in path %q", path)
				}
				res = append(res, part[:j+1])
				part = part[j+1:]
			}
		}
	}
	return res, nil
}
