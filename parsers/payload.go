package parsers

import (
	"encoding/json"
	"strings"

	"socanalyzer/core"
)

// Critical fields surfaced for quick human triage, in display order.
var criticalFieldKeys = []string{
	"EventID", "EventIDCode", "SourceIP", "DestinationIP", "Username",
	"User", "Domain", "DeviceTime", "LogSource", "Computer",
	"OriginatingComputer", "Message",
}

// ParsePayload turns a raw payload into structured fields. JSON documents
// are decoded and flattened to dotted paths; anything else falls through to
// the permissive key=value tokenizer, which never rejects input.
func ParsePayload(raw string) core.ParsedFields {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var doc interface{}
		if err := json.Unmarshal([]byte(trimmed), &doc); err == nil {
			switch v := doc.(type) {
			case map[string]interface{}:
				return core.ParsedFields(Flatten(v))
			case []interface{}:
				return core.ParsedFields(Flatten(map[string]interface{}{"items": v}))
			}
		}
	}
	return Tokenize(raw)
}

// ExtractCriticalFields filters the parsed payload down to the fields an
// analyst scans first. Absent fields are present with nil so the summary
// shape is stable.
func ExtractCriticalFields(parsed core.ParsedFields) map[string]interface{} {
	filtered := make(map[string]interface{}, len(criticalFieldKeys))
	for _, key := range criticalFieldKeys {
		if v, ok := parsed[key]; ok {
			filtered[key] = v
		} else {
			filtered[key] = nil
		}
	}
	return filtered
}
