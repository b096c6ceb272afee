package parsers

import (
	"fmt"
)

// Flatten recursively converts a nested JSON-like structure (maps, slices,
// scalars) into a single flat map keyed by dotted/bracketed paths:
// {"a":{"b":1},"c":[1,2]} becomes {"a.b":1,"c[0]":1,"c[1]":2}.
// The input originates from JSON decoding, so the tree is finite and
// acyclic; no cycle detection is needed. Pure: no state across calls.
func Flatten(data map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{}, len(data))
	for key, value := range data {
		flattenValue(key, value, flat)
	}
	return flat
}

func flattenValue(path string, value interface{}, flat map[string]interface{}) {
	switch v := value.(type) {
	case map[string]interface{}:
		if len(v) == 0 {
			flat[path] = v
			return
		}
		for key, child := range v {
			flattenValue(path+"."+key, child, flat)
		}
	case []interface{}:
		if len(v) == 0 {
			flat[path] = v
			return
		}
		for i, child := range v {
			flattenValue(fmt.Sprintf("%s[%d]", path, i), child, flat)
		}
	default:
		flat[path] = value
	}
}
