package core

// ParsedFields is the result of tokenizing a raw payload. Values are either
// a string (key seen once), nil (key present with no value) or []string
// (key repeated). The special key "_unparsed" collects tokens that carry no
// key=value structure.
type ParsedFields map[string]interface{}

// UnparsedKey is the bucket for tokens lacking a key=value structure.
const UnparsedKey = "_unparsed"

// First returns the first value recorded for a key, or "" if the key is
// absent or has a nil value. Repeated keys yield their first occurrence.
func (p ParsedFields) First(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
	}
	return ""
}

// Unparsed returns the tokens that could not be attributed to a key.
func (p ParsedFields) Unparsed() []string {
	if v, ok := p[UnparsedKey].([]string); ok {
		return v
	}
	return nil
}

// NormalizedFields maps canonical SOC labels to resolved values. Every label
// of the canonical vocabulary is present; unresolved labels carry nil.
type NormalizedFields map[string]interface{}

// Get returns the value for a canonical label as a string, "" when the
// label resolved to nothing.
func (n NormalizedFields) Get(label string) string {
	v, ok := n[label]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
