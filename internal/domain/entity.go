package domain

// EntityType classifies a node in the entity graph.
type EntityType string

const (
	EntityCountry       EntityType = "country"
	EntityRegion        EntityType = "region"
	EntityAsset         EntityType = "asset"
	EntitySector        EntityType = "sector"
	EntityCompany       EntityType = "company"
	EntityEventTemplate EntityType = "event_template"
	EntityInstitution   EntityType = "institution"
	EntityCommodity     EntityType = "commodity"
)

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityCountry, EntityRegion, EntityAsset, EntitySector,
		EntityCompany, EntityEventTemplate, EntityInstitution, EntityCommodity:
		return true
	}
	return false
}

// EdgeType classifies a relationship between two entities.
type EdgeType string

const (
	EdgeAffects                EdgeType = "affects"
	EdgeLocatedIn              EdgeType = "located_in"
	EdgeBelongsToSector        EdgeType = "belongs_to_sector"
	EdgeHistoricallyCorrelated EdgeType = "historically_correlated"
	EdgeSupplyChainDependency  EdgeType = "supply_chain_dependency"
	EdgeAdversaryOf            EdgeType = "adversary_of"
	EdgeAllyOf                 EdgeType = "ally_of"
	EdgeProduces               EdgeType = "produces"
	EdgeConsumes               EdgeType = "consumes"
	EdgeMonitors               EdgeType = "monitors"
)

// Valid reports whether t is one of the known edge types.
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeAffects, EdgeLocatedIn, EdgeBelongsToSector, EdgeHistoricallyCorrelated,
		EdgeSupplyChainDependency, EdgeAdversaryOf, EdgeAllyOf, EdgeProduces,
		EdgeConsumes, EdgeMonitors:
		return true
	}
	return false
}

// Entity is a typed, named node of the knowledge graph. Entities are loaded
// once at startup and never mutated afterwards.
type Entity struct {
	ID            string            `json:"id" yaml:"id"`
	Type          EntityType        `json:"type" yaml:"type"`
	Name          string            `json:"name" yaml:"name"`
	LocalizedName string            `json:"localized_name,omitempty" yaml:"localized_name,omitempty"`
	Tags          []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Meta          map[string]string `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Edge is a weighted, typed relationship used for signal propagation.
// Directional defaults to true; a non-directional edge is traversable both ways.
type Edge struct {
	From        string            `json:"from" yaml:"from"`
	To          string            `json:"to" yaml:"to"`
	Type        EdgeType          `json:"type" yaml:"type"`
	Weight      float64           `json:"weight" yaml:"weight"`
	Directional *bool             `json:"directional,omitempty" yaml:"directional,omitempty"`
	Meta        map[string]string `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// IsDirectional resolves the optional Directional flag, defaulting to true.
func (e Edge) IsDirectional() bool {
	return e.Directional == nil || *e.Directional
}
