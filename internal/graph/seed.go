package graph

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// ParseSeed decodes a YAML seed document. Unknown fields are rejected so that
// typos in hand-edited seeds surface at startup.
func ParseSeed(data []byte) (Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}
	return s, nil
}

// LoadFile parses and builds a graph from a YAML seed on disk.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	s, err := ParseSeed(data)
	if err != nil {
		return nil, err
	}
	return New(s)
}

// Default builds the graph from the embedded seed.
func Default() (*Graph, error) {
	s, err := ParseSeed(defaultSeed)
	if err != nil {
		return nil, err
	}
	return New(s)
}

// MustDefault is Default that panics on a malformed embedded seed.
func MustDefault() *Graph {
	g, err := Default()
	if err != nil {
		panic(fmt.Sprintf("graph: embedded seed is invalid: %v", err))
	}
	return g
}
