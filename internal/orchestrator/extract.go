package orchestrator

import "encoding/json"

// Normalize converts a raw tool response into a canonical JSON value.
//
// Tool responses may arrive wrapped: an outer JSON object whose "text" field
// is itself a JSON-encoded string. Normalize decodes up to two levels deep
// and prefers the innermost successfully decoded value. It never fails: when
// nothing decodes, the raw string is returned as {"text": raw}.
func Normalize(raw string) any {
	var outer any
	if err := json.Unmarshal([]byte(raw), &outer); err != nil {
		return map[string]any{"text": raw}
	}

	obj, ok := outer.(map[string]any)
	if !ok {
		return outer
	}
	inner, ok := obj["text"].(string)
	if !ok {
		return outer
	}

	var nested any
	if err := json.Unmarshal([]byte(inner), &nested); err != nil {
		return outer
	}
	return nested
}

// NormalizeJSON applies [Normalize] and re-encodes the canonical value as a
// JSON string ready for insertion into a tool-result content part.
func NormalizeJSON(raw string) string {
	data, err := json.Marshal(Normalize(raw))
	if err != nil {
		// Normalize only returns values produced by json.Unmarshal or maps
		// of strings, so this cannot happen in practice.
		fallback, _ := json.Marshal(map[string]any{"text": raw})
		return string(fallback)
	}
	return string(data)
}
