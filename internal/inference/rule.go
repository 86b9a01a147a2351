package inference

import (
	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/graph"
)

// Rule inspects fused state and optionally produces one result. Evaluate
// returns (nil, nil) when the rule's conditions are not met.
type Rule interface {
	ID() string
	// Priority orders evaluation; lower fires first.
	Priority() int
	// PrimaryEntityID is the entity the rule claims when it fires, or "".
	PrimaryEntityID() string
	Evaluate(f domain.FusionResult, ictx domain.InferenceContext, g *graph.Graph) (*domain.InferenceResult, error)
}

// EvaluateFunc is the body of a rule.
type EvaluateFunc func(f domain.FusionResult, ictx domain.InferenceContext, g *graph.Graph) (*domain.InferenceResult, error)

type rule struct {
	id       string
	priority int
	primary  string
	evaluate EvaluateFunc
}

// NewRule builds a Rule from its metadata and body.
func NewRule(id string, priority int, primaryEntityID string, fn EvaluateFunc) Rule {
	return rule{id: id, priority: priority, primary: primaryEntityID, evaluate: fn}
}

func (r rule) ID() string              { return r.id }
func (r rule) Priority() int           { return r.priority }
func (r rule) PrimaryEntityID() string { return r.primary }

func (r rule) Evaluate(f domain.FusionResult, ictx domain.InferenceContext, g *graph.Graph) (*domain.InferenceResult, error) {
	return r.evaluate(f, ictx, g)
}
