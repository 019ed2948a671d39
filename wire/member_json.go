package wire

import (
	"encoding/json"
)

type memberBase struct {
	Name     string          `json:"name,omitempty"`
	TypeName string          `json:"typeName,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
	Fields   []*Member       `json:"fields"`
	Props    []*Member       `json:"props"`
	Ref      *Reference      `json:"ref,omitempty"`
}

func (m *Member) MarshalJSON() ([]byte, error) {
	return json.Marshal(&memberBase{
		Name:     m.Name,
		TypeName: m.TypeName,
		Value:    m.Value,
		Fields:   m.Fields,
		Props:    m.Props,
		Ref:      m.Ref,
	})
}

func (m *Member) UnmarshalJSON(d []byte) error {
	tmp := &memberBase{}
	if err := json.Unmarshal(d, tmp); err != nil {
		return err
	}
	// encoding/json does not tell a missing "value" from "value": null for
	// every target type, so look at the keys.
	keys := map[string]json.RawMessage{}
	if err := json.Unmarshal(d, &keys); err != nil {
		return err
	}
	m.Name = tmp.Name
	m.TypeName = tmp.TypeName
	m.Value = nil
	if raw, ok := keys["value"]; ok {
		m.Value = append(json.RawMessage{}, raw...)
	}
	m.Fields = tmp.Fields
	m.Props = tmp.Props
	m.Ref = tmp.Ref
	return nil
}
