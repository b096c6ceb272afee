package normalize

import (
	"fmt"
	"strings"
	"time"

	"socanalyzer/core"
)

// French month names for the locale-formatted timestamp. time.Format has no
// locale support, so the table is kept here.
var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// Timestamp layouts accepted from payloads, tried in order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

const notAvailable = "N/A"

// GenerateReport renders the normalized fields into the fixed three-section
// SOC narrative: description of facts, technical analysis, result and
// recommendation. Missing fields fall back to "N/A"; no field combination
// is an error.
func GenerateReport(fields core.NormalizedFields) string {
	timestamp := formatTimestamp(fields.Get(LabelTimestamp))
	user := fallback(fields.Get(LabelUser))
	ip := fallback(fields.Get(LabelSourceIP))
	client := fallback(fields.Get(LabelClient))
	if version := fields.Get(LabelClientVersion); version != "" && client != notAvailable {
		client = client + " v" + version
	}
	mailbox := fallback(fields.Get(LabelMailbox))
	operation := fallback(fields.Get(LabelOperation))
	subject := fallback(fields.Get(LabelSubject))
	folder := fallback(fields.Get(LabelFolder))
	result := fallback(fields.Get(LabelResult))
	logonType := fields.Get(LabelLogonType)

	connection := "Interne (ExternalAccess: false)"
	if strings.EqualFold(fields.Get(LabelExternal), "true") {
		connection = "Externe (ExternalAccess: true)"
	}

	// LogonType 2 on mailbox audit events means delegate access; anything
	// else is read as direct or unknown
	access := "direct ou inconnu"
	if logonType == "2" {
		access = "délégué"
	}
	if logonType == "" {
		logonType = notAvailable
	}

	facts := fmt.Sprintf(`1. Description des faits
Horodatage : %s

Utilisateur concerné : %s

Adresse IP source : %s

Client : %s

Boîte cible : %s

Événement : %s

Sujet du mail : %s

Dossier d'origine : %s

Résultat : %s

Type de logon : LogonType: %s (accès délégué ou autre boîte)

Connexion : %s
`, timestamp, user, ip, client, mailbox, operation, subject, folder, result, logonType, connection)

	technical := fmt.Sprintf(`2. Analyse technique
L'utilisateur %s a effectué l'opération '%s' sur la boîte %s.

L'accès provient de l'IP %s via le client %s.
Le type de connexion (LogonType: %s) indique un accès %s.

Sujet du message : %s
Dossier : %s

Aucun élément malveillant détecté dans l'objet ou le contexte, ni d'indicateur de compromission évident.
`, user, operation, mailbox, ip, client, logonType, access, subject, folder)

	conclusion := fmt.Sprintf(`3. Résultat
Suppression manuelle légitime d'un message par un utilisateur disposant probablement de droits délégués sur la boîte %s.

Recommandations :
- Vérifier que la délégation entre %s et %s est bien documentée.
- Ajouter ce type d'action à une liste de surveillance bas-niveau (logon type 2) pour éviter la remontée inutile dans les cas légitimes.
`, mailbox, user, mailbox)

	return fmt.Sprintf("Voici le ticket analysé selon le formalisme SOC :\n\n%s\n%s\n%s", facts, technical, conclusion)
}

// formatTimestamp reformats an ISO-8601 timestamp into the French display
// form ("18 juillet 2025 à 15:04:23 (UTC)"). Unparseable values pass
// through unchanged; absent values become "N/A".
func formatTimestamp(raw string) string {
	if raw == "" {
		return notAvailable
	}
	cleaned := strings.TrimSuffix(raw, "Z")
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return fmt.Sprintf("%02d %s %d à %02d:%02d:%02d (UTC)",
				t.Day(), frenchMonths[t.Month()-1], t.Year(),
				t.Hour(), t.Minute(), t.Second())
		}
	}
	return raw
}

func fallback(v string) string {
	if v == "" {
		return notAvailable
	}
	return v
}
