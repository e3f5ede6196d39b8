package variant

import (
	json "github.com/goccy/go-json"
)

// jsonField is the wire form of one Object field, used to round-trip field
// order through JSON (plain JSON objects do not guarantee key order).
type jsonField struct {
	K string `json:"k"`
	V any    `json:"v"`
}

// MarshalJSON renders an Object as an ordered field list, so storing it in
// the WAL's JSON-encoded event batches preserves field order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	fields := make([]jsonField, 0, o.Len())
	o.Range(func(k string, v any) {
		fields = append(fields, jsonField{K: k, V: v})
	})
	return json.Marshal(fields)
}

// UnmarshalJSON reverses MarshalJSON.
func (o *Object) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var fields []jsonField
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*o = Object{values: make(map[string]any, len(fields))}
	for _, f := range fields {
		o.Set(f.K, f.V)
	}
	return nil
}
