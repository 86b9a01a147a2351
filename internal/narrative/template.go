package narrative

import (
	"fmt"
	"strings"
)

// RenderTemplate deterministically renders a narrative from nc.
func RenderTemplate(nc Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Risk %d/100 (%s) across %d signals.\n", nc.RiskScore, nc.RiskLabel, nc.TotalSignals)

	if len(nc.Inferences) == 0 {
		b.WriteString("- No significant inferences this cycle.\n")
	}
	for _, inf := range nc.Inferences {
		fmt.Fprintf(&b, "- %s: %s Action: %s", inf.Title, inf.Summary, inf.Action)
		if inf.HistoricalRef != "" {
			fmt.Fprintf(&b, " (Precedent: %s)", inf.HistoricalRef)
		}
		b.WriteString("\n")
	}

	if len(nc.ConvergenceZones) > 0 {
		fmt.Fprintf(&b, "Convergence zones: %s.\n", strings.Join(nc.ConvergenceZones, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// userPrompt renders nc as the structured block the generator summarizes.
func userPrompt(nc Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Risk score: %d/100 (%s)\n", nc.RiskScore, nc.RiskLabel)
	fmt.Fprintf(&b, "Signals analyzed: %d\n", nc.TotalSignals)
	if len(nc.ConvergenceZones) > 0 {
		fmt.Fprintf(&b, "Convergence zones: %s\n", strings.Join(nc.ConvergenceZones, ", "))
	}
	b.WriteString("Inferences:\n")
	if len(nc.Inferences) == 0 {
		b.WriteString("(none)\n")
	}
	for i, inf := range nc.Inferences {
		fmt.Fprintf(&b, "%d. %s: %s\n   Action: %s\n", i+1, inf.Title, inf.Summary, inf.Action)
		if inf.HistoricalRef != "" {
			fmt.Fprintf(&b, "   Precedent: %s\n", inf.HistoricalRef)
		}
	}
	return b.String()
}

func systemPrompt(language string) string {
	return fmt.Sprintf("You are a geopolitical risk analyst briefing portfolio managers. "+
		"Respond in %s using plain text without markdown. Keep it to about 250 characters. "+
		"Open with a one-sentence summary, then name the 2-3 most important factors, "+
		"then close with one recommended action.", language)
}
