package normalize

import (
	"strings"
	"testing"

	"socanalyzer/core"
	"socanalyzer/parsers"
)

func TestGenerateReportSections(t *testing.T) {
	fields := MapFields(parsers.ParsePayload(
		"Operation=SoftDelete UserId=a@x.com ClientIP=1.2.3.4 LogonType=2 ExternalAccess=false MailboxOwnerUPN=boss@x.com"))
	report := GenerateReport(fields)

	for _, section := range []string{
		"1. Description des faits",
		"2. Analyse technique",
		"3. Résultat",
	} {
		if !strings.Contains(report, section) {
			t.Errorf("report missing section %q", section)
		}
	}

	if !strings.Contains(report, "Utilisateur concerné : a@x.com") {
		t.Error("report missing the user line")
	}
	if !strings.Contains(report, "Adresse IP source : 1.2.3.4") {
		t.Error("report missing the source IP line")
	}
	if !strings.Contains(report, "accès délégué") {
		t.Error("logon type 2 should read as delegate access")
	}
	if !strings.Contains(report, "Interne (ExternalAccess: false)") {
		t.Error("internal connection line missing")
	}
	if !strings.Contains(report, "la boîte boss@x.com") {
		t.Error("mailbox not carried into the technical section")
	}
}

func TestGenerateReportExternalAccess(t *testing.T) {
	fields := core.NormalizedFields{LabelExternal: "True"}
	report := GenerateReport(fields)
	if !strings.Contains(report, "Externe (ExternalAccess: true)") {
		t.Error("external access flag not reflected")
	}
}

func TestGenerateReportMissingFields(t *testing.T) {
	// Nothing resolved: every slot falls back to N/A, never an error.
	report := GenerateReport(core.NormalizedFields{})
	if !strings.Contains(report, "Horodatage : N/A") {
		t.Error("missing timestamp should render N/A")
	}
	if !strings.Contains(report, "Utilisateur concerné : N/A") {
		t.Error("missing user should render N/A")
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-07-18T15:04:23Z", "18 juillet 2025 à 15:04:23 (UTC)"},
		{"2025-01-02 08:00:00", "02 janvier 2025 à 08:00:00 (UTC)"},
		{"", "N/A"},
		{"not-a-date", "not-a-date"},
	}
	for _, tt := range tests {
		if got := formatTimestamp(tt.in); got != tt.want {
			t.Errorf("formatTimestamp(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
