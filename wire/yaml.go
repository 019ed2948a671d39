package wire

import (
	"encoding/json"

	"github.com/goccy/go-yaml"
)

// ToYAML renders m as YAML.
func ToYAML(m *Member) ([]byte, error) {
	d, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return yaml.JSONToYAML(d)
}

// FromYAML reads a member written as YAML (or JSON, which is YAML).
func FromYAML(d []byte) (*Member, error) {
	j, err := yaml.YAMLToJSON(d)
	if err != nil {
		return nil, err
	}
	m := &Member{}
	if err := json.Unmarshal(j, m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// PlainYAML renders the plain projection of m as YAML.
func PlainYAML(m *Member) ([]byte, error) {
	return yaml.Marshal(Plain(m))
}
