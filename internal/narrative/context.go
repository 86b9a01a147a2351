package narrative

import (
	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/graph"
)

// maxInferences bounds how many inferences feed the narrative.
const maxInferences = 4

// Context is the structured input shared by the generated and template
// narratives.
type Context struct {
	RiskScore        int
	RiskLabel        string
	Inferences       []Inference
	TotalSignals     int
	ConvergenceZones []string
}

// Inference is the narrative view of one inference result.
type Inference struct {
	Title         string
	Summary       string
	Action        string
	HistoricalRef string
}

// BuildContext selects the top inferences and resolves convergence zone ids
// to display names. Inferences must already be in priority order. A nil
// graph leaves zone ids as they are.
func BuildContext(score int, label string, results []domain.InferenceResult, totalSignals int, zones []string, g *graph.Graph) Context {
	n := len(results)
	if n > maxInferences {
		n = maxInferences
	}
	inferences := make([]Inference, n)
	for i, r := range results[:n] {
		inferences[i] = Inference{
			Title:         r.Title,
			Summary:       r.Summary,
			Action:        r.SuggestedAction,
			HistoricalRef: r.HistoricalRef,
		}
	}
	names := make([]string, len(zones))
	for i, id := range zones {
		names[i] = id
		if g != nil {
			names[i] = g.Name(id)
		}
	}
	return Context{
		RiskScore:        score,
		RiskLabel:        label,
		Inferences:       inferences,
		TotalSignals:     totalSignals,
		ConvergenceZones: names,
	}
}
