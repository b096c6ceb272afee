// Package normalize maps vendor-specific field names onto the canonical SOC
// label set and renders the normalized view into analyst-facing reports.
package normalize

import (
	"fmt"
	"strings"

	"socanalyzer/core"
)

// Canonical labels. The vocabulary is the union of the Exchange/M365 audit,
// firewall and generic Windows event fields the dashboard displays.
const (
	LabelTimestamp     = "Horodatage"
	LabelUser          = "Utilisateur"
	LabelDomain        = "Domaine"
	LabelSourceIP      = "IP Source"
	LabelDestinationIP = "IP Destination"
	LabelSourcePort    = "Port Source"
	LabelDestPort      = "Port Destination"
	LabelProtocol      = "Protocole"
	LabelOperation     = "Opération"
	LabelClient        = "Client"
	LabelClientVersion = "Version client"
	LabelMailbox       = "Boîte cible"
	LabelSubject       = "Sujet"
	LabelFolder        = "Dossier"
	LabelResult        = "Résultat"
	LabelLogonType     = "Type de logon"
	LabelExternal      = "Accès externe"
	LabelComputer      = "Poste"
	LabelLogSource     = "Source du log"
	LabelSeverity      = "Gravité"
	LabelMessage       = "Message"
)

// alias tables: canonical label -> vendor field names, in priority order.
// Lookup is case and punctuation insensitive, so "ClientIPAddress",
// "client_ip_address" and "clientipaddress" all resolve the same way.
var aliases = []struct {
	label string
	keys  []string
}{
	{LabelTimestamp, []string{"CreationTime", "DeviceTime", "TimeGenerated", "EventTime", "Timestamp", "Date"}},
	{LabelUser, []string{"UserId", "User", "Username", "UserKey", "AccountName", "TargetUserName", "SubjectUserName"}},
	{LabelDomain, []string{"Domain", "UserDomain", "TargetDomainName", "SubjectDomainName"}},
	{LabelSourceIP, []string{"ClientIP", "ClientIPAddress", "SourceIP", "IpAddress", "Src", "SrcIP", "SourceAddress"}},
	{LabelDestinationIP, []string{"DestinationIP", "Dst", "DstIP", "DestinationAddress"}},
	{LabelSourcePort, []string{"SourcePort", "Spt", "SrcPort"}},
	{LabelDestPort, []string{"DestinationPort", "Dpt", "DstPort"}},
	{LabelProtocol, []string{"Protocol", "Proto"}},
	{LabelOperation, []string{"Operation", "EventID", "EventIDCode", "EventType", "Action", "Workload"}},
	{LabelClient, []string{"ClientProcessName", "ClientInfoString", "ClientAppId", "UserAgent"}},
	{LabelClientVersion, []string{"ClientVersion"}},
	{LabelMailbox, []string{"MailboxOwnerUPN", "MailboxOwner", "Mailbox"}},
	{LabelSubject, []string{"Subject", "AffectedItems[0].Subject"}},
	{LabelFolder, []string{"Folder.Path", "ParentFolder.Path", "AffectedItems[0].ParentFolder.Path", "Folder"}},
	{LabelResult, []string{"ResultStatus", "Result"}},
	{LabelLogonType, []string{"LogonType"}},
	{LabelExternal, []string{"ExternalAccess"}},
	{LabelComputer, []string{"Computer", "OriginatingComputer", "Workstation", "WorkstationName", "Hostname"}},
	{LabelLogSource, []string{"LogSource", "Source", "AgentDevice", "AgentLogFile"}},
	{LabelSeverity, []string{"Severity", "Level", "Criticality"}},
	{LabelMessage, []string{"Message", "Msg", "Description"}},
}

// MapFields resolves ParsedFields onto the canonical vocabulary. The lookup
// is total: every label appears in the result, nil when no alias matched.
// Repeated keys contribute their first value.
func MapFields(parsed core.ParsedFields) core.NormalizedFields {
	// Index parsed keys by their normalized form. First occurrence wins so
	// resolution stays deterministic. A second index keyed by the last path
	// segment covers flattened JSON keys like "Records[0].ClientIP".
	exact := make(map[string]interface{}, len(parsed))
	suffix := make(map[string]interface{}, len(parsed))
	for key, value := range parsed {
		if key == core.UnparsedKey {
			continue
		}
		nk := normalizeKey(key)
		if _, ok := exact[nk]; !ok {
			exact[nk] = value
		}
		if seg := lastSegment(key); seg != key {
			ns := normalizeKey(seg)
			if _, ok := suffix[ns]; !ok {
				suffix[ns] = value
			}
		}
	}

	result := make(core.NormalizedFields, len(aliases))
	for _, entry := range aliases {
		result[entry.label] = nil
		for _, alias := range entry.keys {
			na := normalizeKey(alias)
			if v, ok := exact[na]; ok && v != nil {
				result[entry.label] = scalarValue(v)
				break
			}
			if v, ok := suffix[na]; ok && v != nil {
				result[entry.label] = scalarValue(v)
				break
			}
		}
	}
	return result
}

// normalizeKey lowercases a field name and strips everything that is not a
// letter or digit, so punctuation and separator drift between vendors does
// not matter.
func normalizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// lastSegment returns the final dotted path segment of a flattened key,
// with any [n] index stripped.
func lastSegment(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		key = key[i+1:]
	}
	if i := strings.Index(key, "["); i >= 0 {
		key = key[:i]
	}
	return key
}

// scalarValue collapses a parsed value to a single string. Lists keep their
// first element; JSON scalars are rendered with their natural formatting.
func scalarValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
		return ""
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
