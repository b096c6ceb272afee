package oracle

import (
	"fmt"
	"strings"

	"socanalyzer/core"
	"socanalyzer/normalize"
	"socanalyzer/parsers"
)

// Heuristic classification rules, checked in order against the lowercased
// payload. First match wins.
var fallbackRules = []struct {
	keywords []string
	pattern  string
	summary  string
}{
	{
		keywords: []string{"failed", "failure", "échec", "echec"},
		pattern:  "Échec d'authentification",
		summary:  "Tentative d'authentification en échec détectée dans le payload.",
	},
	{
		keywords: []string{"deny", "denied", "drop", "block", "reject"},
		pattern:  "Trafic bloqué par le pare-feu",
		summary:  "Connexion refusée ou bloquée par un équipement de filtrage.",
	},
	{
		keywords: []string{"delete", "softdelete", "harddelete", "remove", "purge"},
		pattern:  "Suppression d'élément",
		summary:  "Opération de suppression détectée sur un élément surveillé.",
	},
	{
		keywords: []string{"login", "logon", "signin", "authentication"},
		pattern:  "Activité de connexion",
		summary:  "Activité de connexion ou d'ouverture de session détectée.",
	},
}

const fallbackPattern = "Événement de sécurité non catégorisé"
const fallbackSummary = "Payload non catégorisé par l'analyse heuristique locale."

// ClassifyFallback assigns a plausible low-confidence pattern name and
// summary to a payload by keyword matching. Used when the oracle is
// unreachable; the status is always forced to the undetermined sentinel.
func ClassifyFallback(payload string) (patternName, summary string) {
	lower := strings.ToLower(payload)
	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.pattern + " (classification heuristique)", rule.summary
			}
		}
	}
	return fallbackPattern + " (classification heuristique)", fallbackSummary
}

// FallbackNarrative builds a complete labeled narrative without the oracle:
// heuristic classification on top, local template report below. The output
// deliberately uses the same labels as the oracle prompt so ExtractFields
// parses degraded and nominal narratives identically.
func FallbackNarrative(payload string) string {
	patternName, summary := ClassifyFallback(payload)
	fields := normalize.MapFields(parsers.ParsePayload(payload))
	report := normalize.GenerateReport(fields)

	return fmt.Sprintf(`[Analyse dégradée : oracle indisponible, classification heuristique locale]

Pattern du payload : %s
Résumé court : %s
Statut : %s

%s`, patternName, summary, core.StatusUndetermined, report)
}
