package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind classifies the primary content of a Member.
type Kind int

const (
	// AbsentKind means no value was supplied.
	AbsentKind Kind = iota
	// NullKind is an explicit null value.
	NullKind
	// ValueKind is an inline JSON value.
	ValueKind
	// ObjectKind carries fields and/or props.
	ObjectKind
	// ReferenceKind carries a Reference.
	ReferenceKind
)

func (k Kind) String() string {
	switch k {
	case AbsentKind:
		return "absent"
	case NullKind:
		return "null"
	case ValueKind:
		return "value"
	case ObjectKind:
		return "object"
	case ReferenceKind:
		return "reference"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

var nullValue = json.RawMessage("null")

// Member is a node of the wire tree.
type Member struct {
	Name     string
	TypeName string

	// Value holds the raw JSON inline value.  A nil Value is absent, the
	// literal null is an explicit null.
	Value json.RawMessage

	// Fields and Props are nil when not supplied, which is distinct from
	// an empty list.
	Fields []*Member
	Props  []*Member

	Ref *Reference
}

// Absent creates a member which supplies no value.
func Absent(name, typeName string) *Member {
	return &Member{Name: name, TypeName: typeName}
}

// Null creates an explicit null member.
func Null(name, typeName string) *Member {
	return &Member{Name: name, TypeName: typeName, Value: nullValue}
}

// FromValue creates a member whose inline value is the JSON encoding of v.
func FromValue(name, typeName string, v any) (*Member, error) {
	d, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("could not encode value for %q: %w", name, err)
	}
	return &Member{Name: name, TypeName: typeName, Value: d}, nil
}

// FromRaw creates a member from an already encoded JSON value.
func FromRaw(name, typeName string, raw json.RawMessage) *Member {
	return &Member{Name: name, TypeName: typeName, Value: raw}
}

// Object creates a member with the given fields and props. A nil slice
// stays nil.
func Object(name, typeName string, fields, props []*Member) *Member {
	return &Member{Name: name, TypeName: typeName, Fields: fields, Props: props}
}

// FromRef creates a reference member.
func FromRef(name, typeName string, ref Reference) *Member {
	return &Member{Name: name, TypeName: typeName, Ref: &ref}
}

// Kind reports the primary content of m.  Malformed members report the
// first content found in the order reference, object, value.
func (m *Member) Kind() Kind {
	switch {
	case m == nil:
		return AbsentKind
	case m.Ref != nil:
		return ReferenceKind
	case m.Fields != nil || m.Props != nil:
		return ObjectKind
	case m.Value == nil:
		return AbsentKind
	case isNull(m.Value):
		return NullKind
	default:
		return ValueKind
	}
}

// IsAbsent reports whether m supplies no value.
func (m *Member) IsAbsent() bool { return m.Kind() == AbsentKind }

// IsNull reports whether m is an explicit null.
func (m *Member) IsNull() bool { return m.Kind() == NullKind }

func isNull(d json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(d), nullValue)
}

// Decode decodes the inline value of m into v.
func (m *Member) Decode(v any) error {
	if m.Value == nil {
		return fmt.Errorf("member %q has no value", m.Name)
	}
	return json.Unmarshal(m.Value, v)
}

// Field returns the field named name or nil.
func (m *Member) Field(name string) *Member {
	return find(m.Fields, name)
}

// Prop returns the property named name or nil.
func (m *Member) Prop(name string) *Member {
	return find(m.Props, name)
}

func find(ms []*Member, name string) *Member {
	for _, c := range ms {
		if c != nil && c.Name == name {
			return c
		}
	}
	return nil
}

// WithField appends a field and returns m.
func (m *Member) WithField(c *Member) *Member {
	if m.Fields == nil {
		m.Fields = []*Member{}
	}
	m.Fields = append(m.Fields, c)
	return m
}

// WithProp appends a property and returns m.
func (m *Member) WithProp(c *Member) *Member {
	if m.Props == nil {
		m.Props = []*Member{}
	}
	m.Props = append(m.Props, c)
	return m
}

// Validate checks that every node in the tree has at most one kind of
// primary content and that child lists contain no nil entries.
func (m *Member) Validate() error {
	return m.validate("")
}

func (m *Member) validate(path string) error {
	if m == nil {
		return nil
	}
	here := join(path, m.Name)
	n := 0
	if m.Ref != nil {
		n++
	}
	if m.Fields != nil || m.Props != nil {
		n++
	}
	if m.Value != nil {
		n++
		if !json.Valid(m.Value) {
			return &MalformedError{Path: here, Message: "value is not valid JSON"}
		}
	}
	if n > 1 {
		return &MalformedError{Path: here, Message: "member has more than one of value, fields/props, ref"}
	}
	for _, list := range [][]*Member{m.Fields, m.Props} {
		for i, c := range list {
			if c == nil {
				return &MalformedError{Path: here, Message: fmt.Sprintf("nil child at index %d", i)}
			}
			if err := c.validate(here); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone returns a deep copy of m.
func (m *Member) Clone() *Member {
	if m == nil {
		return nil
	}
	res := &Member{Name: m.Name, TypeName: m.TypeName}
	if m.Value != nil {
		res.Value = append(json.RawMessage{}, m.Value...)
	}
	res.Fields = cloneList(m.Fields)
	res.Props = cloneList(m.Props)
	if m.Ref != nil {
		r := *m.Ref
		res.Ref = &r
	}
	return res
}

func cloneList(ms []*Member) []*Member {
	if ms == nil {
		return nil
	}
	res := make([]*Member, len(ms))
	for i, c := range ms {
		res[i] = c.Clone()
	}
	return res
}

// Depth returns the number of edges on the longest path from m to a leaf.
func (m *Member) Depth() int {
	if m == nil {
		return 0
	}
	d := 0
	for _, list := range [][]*Member{m.Fields, m.Props} {
		for _, c := range list {
			if cd := c.Depth() + 1; cd > d {
				d = cd
			}
		}
	}
	return d
}

// MalformedError reports wire input that violates the Member invariants.
type MalformedError struct {
	Path    string
	Message string
}

func (e *MalformedError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("malformed member at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("malformed member: %s", e.Message)
}

func join(path, name string) string {
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
