// Package graph is the read-only entity knowledge base: typed entities and
// weighted, typed relationships, with bounded breadth-first traversal.
//
// A Graph is immutable after New returns and safe for concurrent use.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
)

// Link is one adjacency entry: the far endpoint of an edge.
type Link struct {
	To     string
	Type   domain.EdgeType
	Weight float64
}

// Graph holds entities plus forward and reverse adjacency lists.
type Graph struct {
	entities map[string]domain.Entity
	order    []string // seed order, for deterministic iteration
	forward  map[string][]Link
	reverse  map[string][]Link
}

// Seed is the raw entity and edge list a Graph is built from.
type Seed struct {
	Entities []domain.Entity `yaml:"entities" json:"entities"`
	Edges    []domain.Edge   `yaml:"edges" json:"edges"`
}

// New validates the seed and builds adjacency maps. Non-directional edges are
// added in both directions. Any defect is returned as an error: a malformed
// seed is a construction-time bug, not a runtime condition.
func New(seed Seed) (*Graph, error) {
	if err := Validate(seed); err != nil {
		return nil, err
	}

	g := &Graph{
		entities: make(map[string]domain.Entity, len(seed.Entities)),
		order:    make([]string, 0, len(seed.Entities)),
		forward:  make(map[string][]Link),
		reverse:  make(map[string][]Link),
	}
	for _, e := range seed.Entities {
		g.entities[e.ID] = e
		g.order = append(g.order, e.ID)
	}
	for _, e := range seed.Edges {
		g.addLink(e.From, e.To, e.Type, e.Weight)
		if !e.IsDirectional() {
			g.addLink(e.To, e.From, e.Type, e.Weight)
		}
	}
	return g, nil
}

func (g *Graph) addLink(from, to string, t domain.EdgeType, w float64) {
	g.forward[from] = append(g.forward[from], Link{To: to, Type: t, Weight: w})
	g.reverse[to] = append(g.reverse[to], Link{To: from, Type: t, Weight: w})
}

// Validate reports every defect in the seed, joined into one error.
func Validate(seed Seed) error {
	var errs []error
	ids := make(map[string]bool, len(seed.Entities))
	for i, e := range seed.Entities {
		switch {
		case e.ID == "":
			errs = append(errs, fmt.Errorf("entity %d: empty id", i))
			continue
		case ids[e.ID]:
			errs = append(errs, fmt.Errorf("entity %q: duplicate id", e.ID))
		case !e.Type.Valid():
			errs = append(errs, fmt.Errorf("entity %q: unknown type %q", e.ID, e.Type))
		}
		ids[e.ID] = true
	}
	for i, e := range seed.Edges {
		if !ids[e.From] {
			errs = append(errs, fmt.Errorf("edge %d: unknown source entity %q", i, e.From))
		}
		if !ids[e.To] {
			errs = append(errs, fmt.Errorf("edge %d: unknown target entity %q", i, e.To))
		}
		if !e.Type.Valid() {
			errs = append(errs, fmt.Errorf("edge %d (%s→%s): unknown type %q", i, e.From, e.To, e.Type))
		}
		if e.Weight < 0 || e.Weight > 1 {
			errs = append(errs, fmt.Errorf("edge %d (%s→%s): weight %.3f outside [0,1]", i, e.From, e.To, e.Weight))
		}
	}
	return errors.Join(errs...)
}

// Entity looks up an entity by id.
func (g *Graph) Entity(id string) (domain.Entity, bool) {
	e, ok := g.entities[id]
	return e, ok
}

// Name returns the entity's display name, falling back to the id.
func (g *Graph) Name(id string) string {
	if e, ok := g.entities[id]; ok && e.Name != "" {
		return e.Name
	}
	return id
}

// Entities returns every entity in seed order.
func (g *Graph) Entities() []domain.Entity {
	out := make([]domain.Entity, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.entities[id])
	}
	return out
}

// EdgeCount returns the number of forward adjacency entries, counting
// non-directional edges twice.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, links := range g.forward {
		n += len(links)
	}
	return n
}

// LookupByTag returns entities with a tag containing q, case-insensitively.
func (g *Graph) LookupByTag(q string) []domain.Entity {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	var out []domain.Entity
	for _, id := range g.order {
		e := g.entities[id]
		for _, tag := range e.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// MatchText returns entities having at least one tag that occurs in text,
// case-insensitively. Used to attribute free-text headlines to entities.
func (g *Graph) MatchText(text string) []domain.Entity {
	text = strings.ToLower(text)
	if text == "" {
		return nil
	}
	var out []domain.Entity
	for _, id := range g.order {
		e := g.entities[id]
		for _, tag := range e.Tags {
			if tag != "" && strings.Contains(text, strings.ToLower(tag)) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Neighbors returns outgoing links from id, optionally filtered by edge type.
func (g *Graph) Neighbors(id string, types ...domain.EdgeType) []Link {
	return filterLinks(g.forward[id], types)
}

// ReverseNeighbors returns incoming links to id, optionally filtered by edge type.
// Each Link.To is the source entity of the incoming edge.
func (g *Graph) ReverseNeighbors(id string, types ...domain.EdgeType) []Link {
	return filterLinks(g.reverse[id], types)
}

func filterLinks(links []Link, types []domain.EdgeType) []Link {
	if len(types) == 0 {
		return append([]Link(nil), links...)
	}
	var out []Link
	for _, l := range links {
		if containsType(types, l.Type) {
			out = append(out, l)
		}
	}
	return out
}

func containsType(types []domain.EdgeType, t domain.EdgeType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

// ByType returns all entity ids of type t, in seed order.
func (g *Graph) ByType(t domain.EntityType) []string {
	var out []string
	for _, id := range g.order {
		if g.entities[id].Type == t {
			out = append(out, id)
		}
	}
	return out
}

func sortReached(r []Reached) {
	sort.SliceStable(r, func(i, j int) bool {
		if r[i].Weight != r[j].Weight {
			return r[i].Weight > r[j].Weight
		}
		return r[i].EntityID < r[j].EntityID
	})
}
