package parsers

import (
	"testing"

	"socanalyzer/core"
)

func TestParsePayloadJSON(t *testing.T) {
	raw := `{"Operation":"SoftDelete","ClientIP":"1.2.3.4","AffectedItems":[{"Subject":"invoice"}]}`
	got := ParsePayload(raw)

	if got.First("Operation") != "SoftDelete" {
		t.Errorf("Operation = %q", got.First("Operation"))
	}
	if got.First("ClientIP") != "1.2.3.4" {
		t.Errorf("ClientIP = %q", got.First("ClientIP"))
	}
	if got["AffectedItems[0].Subject"] != "invoice" {
		t.Errorf("flattened subject = %v", got["AffectedItems[0].Subject"])
	}
}

func TestParsePayloadJSONArray(t *testing.T) {
	got := ParsePayload(`[{"Operation":"MailItemsAccessed"}]`)
	if got["items[0].Operation"] != "MailItemsAccessed" {
		t.Errorf("array payload = %#v", got)
	}
}

func TestParsePayloadMalformedJSONFallsBack(t *testing.T) {
	// Looks like JSON but is broken: falls through to the tokenizer, which
	// never rejects input.
	got := ParsePayload(`{"Operation":"SoftDelete" src=10.0.0.1`)
	if len(got) == 0 {
		t.Fatal("expected tokenizer fallback to produce fields")
	}
	if got.First("src") != "10.0.0.1" {
		t.Errorf("src = %q", got.First("src"))
	}
}

func TestParsePayloadLogLine(t *testing.T) {
	got := ParsePayload("EventID=4625 Username=svc-backup SourceIP=10.1.2.3")
	if got.First("EventID") != "4625" {
		t.Errorf("EventID = %q", got.First("EventID"))
	}
}

func TestExtractCriticalFields(t *testing.T) {
	parsed := core.ParsedFields{
		"EventID":  "4625",
		"SourceIP": "10.1.2.3",
		"noise":    "ignored",
	}
	got := ExtractCriticalFields(parsed)

	if got["EventID"] != "4625" {
		t.Errorf("EventID = %v", got["EventID"])
	}
	if v, ok := got["Username"]; !ok || v != nil {
		t.Errorf("absent field must be present and nil, got %v (present %v)", v, ok)
	}
	if _, ok := got["noise"]; ok {
		t.Error("non-critical field leaked into the summary")
	}
	if len(got) != len(criticalFieldKeys) {
		t.Errorf("summary has %d keys, want %d", len(got), len(criticalFieldKeys))
	}
}
