// Command validate checks an entity graph seed for defects before it is
// shipped: decoding, referential integrity, tag coverage, connectivity, and
// the entities inference rules are anchored on.
//
// Usage:
//
//	go run ./cmd/validate -seed internal/graph/seed.yaml
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/graph"
	"github.com/couchcryptid/signal-fusion-service/internal/inference"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

// notef records an observation that does not fail the phase.
func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	seedPath := flag.String("seed", "internal/graph/seed.yaml", "path to the entity graph seed YAML")
	flag.Parse()

	if *seedPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*seedPath); code != 0 {
		os.Exit(code)
	}
}

func run(seedPath string) int {
	fmt.Println("=== Entity Graph Seed Validation ===")
	fmt.Println()

	data, err := os.ReadFile(seedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read seed: %v\n", err)
		return 1
	}
	seed, err := graph.ParseSeed(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	integrity := validateIntegrity(seed)
	phases := []*phase{integrity}

	// Graph-level checks need a buildable graph.
	if integrity.passed() {
		g, err := graph.New(seed)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: build graph: %v\n", err)
			return 1
		}
		phases = append(phases,
			validateTags(seed, g),
			validateConnectivity(seed, g),
			validateRuleAnchors(g),
		)
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Seed: %d entities, %d edges (%s)\n", len(seed.Entities), len(seed.Edges), seedPath)

	for _, p := range phases {
		if len(p.notes) == 0 {
			continue
		}
		fmt.Printf("\n--- %s (notes) ---\n", p.name)
		for _, n := range p.notes {
			fmt.Printf("  - %s\n", n)
		}
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Referential Integrity ──

func validateIntegrity(seed graph.Seed) *phase {
	p := &phase{name: "Phase 1: Referential Integrity"}
	err := graph.Validate(seed)
	if err == nil {
		return p
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			p.errorf("%v", e)
		}
		return p
	}
	p.errorf("%v", err)
	return p
}

// ── Phase 2: Tag Coverage ──
// Every entity needs a tag for headline attribution; a tag shared by two
// entities attributes one headline to both. A tag contained in another
// entity's tag is only noted: headlines naming the wider entity also match
// the narrower one.

func validateTags(seed graph.Seed, g *graph.Graph) *phase {
	p := &phase{name: "Phase 2: Tag Coverage"}
	owners := make(map[string][]string)
	for _, e := range seed.Entities {
		if len(e.Tags) == 0 {
			p.errorf("entity %q: no tags", e.ID)
		}
		for _, tag := range e.Tags {
			t := strings.ToLower(strings.TrimSpace(tag))
			if t == "" {
				p.errorf("entity %q: blank tag", e.ID)
				continue
			}
			owners[t] = append(owners[t], e.ID)
		}
	}

	tags := make([]string, 0, len(owners))
	for t := range owners {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	for _, t := range tags {
		ids := owners[t]
		if len(ids) > 1 {
			p.errorf("tag %q shared by %s", t, strings.Join(ids, ", "))
			continue
		}
		var wider []string
		for _, e := range g.LookupByTag(t) {
			if e.ID != ids[0] {
				wider = append(wider, e.ID)
			}
		}
		if len(wider) > 0 {
			p.notef("tag %q of %s also matches %s", t, ids[0], strings.Join(wider, ", "))
		}
	}
	return p
}

// ── Phase 3: Connectivity ──

func validateConnectivity(seed graph.Seed, g *graph.Graph) *phase {
	p := &phase{name: "Phase 3: Connectivity"}
	degree := make(map[string]int, len(seed.Entities))
	for _, e := range seed.Edges {
		degree[e.From]++
		degree[e.To]++
	}
	for _, e := range seed.Entities {
		if degree[e.ID] == 0 {
			p.errorf("entity %q: isolated, no edges", e.ID)
		}
	}
	for _, id := range g.ByType(domain.EntityRegion) {
		if len(g.AffectedAssets(id)) == 0 {
			p.errorf("region %q: reaches no asset or commodity", id)
		}
	}
	for _, id := range g.ByType(domain.EntityCountry) {
		if len(g.ImpactChain(id, 2)) == 0 {
			p.errorf("country %q: no impact chain", id)
		}
	}
	return p
}

// ── Phase 4: Rule Anchors ──

func validateRuleAnchors(g *graph.Graph) *phase {
	p := &phase{name: "Phase 4: Rule Anchors"}
	for _, r := range inference.DefaultRules() {
		id := r.PrimaryEntityID()
		if id == "" {
			continue
		}
		if _, ok := g.Entity(id); !ok {
			p.errorf("rule %q: primary entity %q not in seed", r.ID(), id)
		}
	}
	return p
}
