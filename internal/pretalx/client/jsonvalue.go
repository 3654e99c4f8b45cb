package client

import (
	"bytes"
	"encoding/json"
)

// isJSONNull reports whether raw is the literal `null` (or empty/absent).
func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// isJSONNumber reports whether raw's first significant byte looks like
// a JSON number, used to distinguish a bare reference id from an
// already-nested object in the version-drifted wire format (spec.md
// §4.3's "nested objects are replaced by identifier references").
func isJSONNumber(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	c := trimmed[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// isJSONString reports whether raw is a JSON string literal.
func isJSONString(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '"'
}

// isJSONArray reports whether raw is a JSON array.
func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// firstArrayElem returns the raw bytes of an array's first element, or
// nil if the array is empty/absent, used to sniff whether a references
// array holds bare ids or already-expanded objects (mirrors client.py's
// `isinstance(submission['speakers'][0], str)` checks).
func firstArrayElem(raw json.RawMessage) (json.RawMessage, bool) {
	if !isJSONArray(raw) {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || len(elems) == 0 {
		return nil, false
	}
	return elems[0], true
}
