// Package oracle is the adapter for the external risk-assessment service
// (an OpenAI-compatible API or a self-hosted Mistral TGI server). The
// service returns free text in the labeled format produced by the prompt
// below; the extraction regexes in extract.go are pinned to that format,
// so the prompt and the parser must always change together. Bump
// PromptVersion and the contract tests when either moves.
package oracle

import (
	"fmt"
	"strings"
)

// PromptVersion ties the prompt template to the response parser. Logged
// with every assessment so stored reports can be traced to the template
// that produced them.
const PromptVersion = "v2"

// maxPayloadChars bounds the payload text embedded in the prompt.
const maxPayloadChars = 3000

const promptTemplate = `Tu es un analyste SOC expert. Voici un log (payload) à analyser :

%s
%s
Rédige une analyse SOC complète, exclusivement sous ce format clair :

Pattern du payload : (un nom court et réutilisable pour cette catégorie d'événement)
Résumé court : (une phrase)
Statut : (Faux positif ou Vrai positif)

1. Description des faits
(une description factuelle claire de l'événement)

2. Analyse technique
(une analyse technique compréhensible de l'impact et du contexte)

3. Résultat
(Faux positif ou Vrai positif avec justification claire)
Justification : (la raison principale de ce statut)

Réponds uniquement en français. Ne donne aucun JSON, aucune balise, uniquement ce texte structuré.`

// BuildPrompt assembles the default analysis prompt for a payload. Similar
// past analyses, when provided by the retriever, are inserted as context
// between the payload and the instructions.
func BuildPrompt(payload string, contexts []string) string {
	if len(payload) > maxPayloadChars {
		payload = payload[:maxPayloadChars] + "... (payload tronqué)"
	}

	contextBlock := ""
	if len(contexts) > 0 {
		var b strings.Builder
		b.WriteString("\nAnalyses similaires déjà validées par le SOC :\n")
		for i, c := range contexts {
			fmt.Fprintf(&b, "--- Contexte %d ---\n%s\n", i+1, c)
		}
		contextBlock = b.String()
	}

	return fmt.Sprintf(promptTemplate, payload, contextBlock)
}
