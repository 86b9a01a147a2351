package graph

import "github.com/couchcryptid/signal-fusion-service/internal/domain"

// Reached is an entity found by Traverse.
type Reached struct {
	EntityID string
	Depth    int
	// Weight is the product of edge weights along the path that first reached the entity.
	Weight float64
	Via    domain.EdgeType // type of the last edge on that path
}

// Traverse runs a breadth-first search from start, following only edges whose
// type is in edgeTypes and whose weight is at least minWeight, up to maxDepth
// hops. Each entity is visited at most once, which bounds the walk on cyclic
// graphs. The start entity is excluded. Results are sorted by cumulative
// weight descending.
func (g *Graph) Traverse(start string, edgeTypes []domain.EdgeType, maxDepth int, minWeight float64) []Reached {
	if maxDepth <= 0 {
		return nil
	}

	type item struct {
		id     string
		depth  int
		weight float64
	}

	visited := map[string]bool{start: true}
	queue := []item{{id: start, depth: 0, weight: 1}}
	var out []Reached

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, l := range g.forward[cur.id] {
			if !containsType(edgeTypes, l.Type) || l.Weight < minWeight {
				continue
			}
			if visited[l.To] {
				continue
			}
			visited[l.To] = true
			w := cur.weight * l.Weight
			out = append(out, Reached{EntityID: l.To, Depth: cur.depth + 1, Weight: w, Via: l.Type})
			queue = append(queue, item{id: l.To, depth: cur.depth + 1, weight: w})
		}
	}

	sortReached(out)
	return out
}

var (
	assetEdges  = []domain.EdgeType{domain.EdgeAffects, domain.EdgeHistoricallyCorrelated, domain.EdgeBelongsToSector}
	sectorEdges = []domain.EdgeType{domain.EdgeAffects, domain.EdgeSupplyChainDependency, domain.EdgeBelongsToSector}
	impactEdges = []domain.EdgeType{domain.EdgeAffects, domain.EdgeSupplyChainDependency, domain.EdgeBelongsToSector, domain.EdgeLocatedIn}
)

// AffectedAssets returns assets and commodities reachable within two hops of
// id via market-moving edges.
func (g *Graph) AffectedAssets(id string) []Reached {
	return g.filterType(g.Traverse(id, assetEdges, 2, 0), domain.EntityAsset, domain.EntityCommodity)
}

// AffectedSectors returns sectors reachable within two hops of id.
func (g *Graph) AffectedSectors(id string) []Reached {
	return g.filterType(g.Traverse(id, sectorEdges, 2, 0), domain.EntitySector)
}

// ImpactChain returns every entity reachable from id through impact edges, up to depth hops.
func (g *Graph) ImpactChain(id string, depth int) []Reached {
	return g.Traverse(id, impactEdges, depth, 0)
}

// Adversaries returns countries directly linked to id by adversary_of.
func (g *Graph) Adversaries(id string) []Reached {
	return g.filterType(g.Traverse(id, []domain.EdgeType{domain.EdgeAdversaryOf}, 1, 0), domain.EntityCountry)
}

func (g *Graph) filterType(in []Reached, types ...domain.EntityType) []Reached {
	var out []Reached
	for _, r := range in {
		e, ok := g.entities[r.EntityID]
		if !ok {
			continue
		}
		for _, t := range types {
			if e.Type == t {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
