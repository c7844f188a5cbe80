package verify

import (
	"fmt"
	"strings"

	"github.com/nocaplabs/claimcheck/core"
)

// buildEvidencePrompt frames the claim together with gathered evidence
// for the generator. The verdict token vocabulary itself is pinned by
// the generator's system prompt.
func buildEvidencePrompt(question string, evidence []core.Evidence) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Claim to verify:\n%s\n\nEvidence:\n", question)
	for i, ev := range evidence {
		fmt.Fprintf(&sb, "%d. ", i+1)
		if ev.Title != "" {
			fmt.Fprintf(&sb, "%s — ", ev.Title)
		}
		sb.WriteString(ev.Excerpt)
		if ev.Ref != "" {
			fmt.Fprintf(&sb, " (%s)", ev.Ref)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nAssess the claim against this evidence.")
	return sb.String()
}

// buildBarePrompt frames the claim alone, for the evidence-free
// generative fallback.
func buildBarePrompt(question string) string {
	return fmt.Sprintf("Claim to verify:\n%s\n\nNo external evidence is available. Assess the claim from general knowledge and say that evidence was unavailable.", question)
}
