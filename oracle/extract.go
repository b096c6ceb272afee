package oracle

import (
	"regexp"
	"strings"

	"socanalyzer/core"
)

// Extraction regexes pinned to the PromptVersion template. Each one is
// independent: a non-match yields an empty string for that field, never an
// error. Changing the prompt without revisiting these (and the contract
// tests in extract_test.go) silently loses fields.
var (
	patternNameRe   = regexp.MustCompile(`(?mi)^[\s*#-]*Pattern du payload\s*:\s*(.+)$`)
	shortSummaryRe  = regexp.MustCompile(`(?mi)^[\s*#-]*Résumé court\s*:\s*(.+)$`)
	statusLabelRe   = regexp.MustCompile(`(?mi)^[\s*#-]*Statut\s*:\s*(.+)$`)
	justificationRe = regexp.MustCompile(`(?mi)^[\s*#-]*Justification\s*:\s*(.+)$`)
	factsSectionRe  = regexp.MustCompile(`(?si)1\.\s*Description des faits\s*:?\s*(.*?)\s*2\.\s*Analyse technique`)
	techSectionRe   = regexp.MustCompile(`(?si)2\.\s*Analyse technique\s*:?\s*(.*?)\s*3\.\s*Résultat`)
	resultSectionRe = regexp.MustCompile(`(?si)3\.\s*Résultat\s*:?\s*(.*)$`)
)

// Extracted holds the discrete fields pulled out of the oracle's free-text
// narrative.
type Extracted struct {
	PatternName   string `json:"pattern_name"`
	Summary       string `json:"summary"`
	Status        string `json:"status"`
	Facts         string `json:"facts"`
	Technical     string `json:"technical"`
	Result        string `json:"result"`
	Justification string `json:"justification"`
	PromptVersion string `json:"prompt_version"`
}

// ExtractFields parses the labeled narrative into discrete fields. The
// status goes through two stages: the explicit "Statut :" label first,
// then a keyword search in the result section when the label is absent or
// unrecognized; anything still ambiguous ends up as the undetermined
// sentinel.
func ExtractFields(narrative string) Extracted {
	ex := Extracted{
		PatternName:   firstGroup(patternNameRe, narrative),
		Summary:       firstGroup(shortSummaryRe, narrative),
		Status:        firstGroup(statusLabelRe, narrative),
		Facts:         firstGroup(factsSectionRe, narrative),
		Technical:     firstGroup(techSectionRe, narrative),
		Result:        firstGroup(resultSectionRe, narrative),
		Justification: firstGroup(justificationRe, narrative),
		PromptVersion: PromptVersion,
	}

	ex.Status = resolveStatus(ex.Status, ex.Result)
	return ex
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// resolveStatus maps the labeled status onto the canonical vocabulary,
// falling back to keyword inference over the result section.
func resolveStatus(labeled, result string) string {
	if s := statusFromText(labeled); s != "" {
		return s
	}
	if s := statusFromText(result); s != "" {
		return s
	}
	return core.StatusUndetermined
}

func statusFromText(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "faux positif"):
		return core.StatusFalsePositive
	case strings.Contains(lower, "vrai positif"),
		strings.Contains(lower, "positif confirmé"):
		return core.StatusTruePositive
	}
	return ""
}
