package gateway

import (
	"bytes"
	"encoding/json"
)

// DecodeBody parses a request body into an object. A body that decodes to a
// JSON string is parsed a second time. Empty bodies yield an empty object;
// values that are valid JSON but not objects yield an empty object too, so the
// prompt check rejects them.
func DecodeBody(b []byte) (map[string]any, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return map[string]any{}, nil
	}

	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	if s, ok := v.(string); ok {
		v = nil
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, err
		}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return obj, nil
}

// promptFrom returns the prompt field when it is a non-empty string.
func promptFrom(body map[string]any) (string, bool) {
	p, ok := body["prompt"].(string)
	return p, ok && p != ""
}
