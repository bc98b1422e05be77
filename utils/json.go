package utils

import (
	"encoding/json"
)

// DecodeDocument converts a raw store document (field-name keyed map) into a
// typed model via a JSON round trip. Field names in the store match the
// models' json tags, so this is lossless for everything we persist.
func DecodeDocument(data map[string]any, out any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// EncodeDocument converts a typed model into the field-name keyed map the
// store adapters persist.
func EncodeDocument(in any) (map[string]any, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
