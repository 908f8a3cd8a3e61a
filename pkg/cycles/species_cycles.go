package cycles

import (
	"github.com/ritzau/pokegraph/pkg/graph"
)

// Cycle is a group of species that can reach each other through evolutions.
type Cycle struct {
	Species []string `json:"species"`
	// SelfLoop marks a single species that evolves into itself.
	SelfLoop bool `json:"self_loop,omitempty"`
}

// FindCycles lists every strongly connected component with more than one
// species, followed by every self-loop. Species inside a cycle are in
// first-seen order.
func FindCycles(eg *graph.EvolutionGraph) []Cycle {
	cycles := make([]Cycle, 0)

	for _, scc := range NewTarjanSCC(eg.Graph()).FindSCCs() {
		species := make([]string, 0, len(scc))
		for _, id := range scc {
			species = append(species, eg.Name(id))
		}
		cycles = append(cycles, Cycle{Species: species})
	}

	for _, evo := range eg.Evolutions() {
		if evo.From == evo.To {
			cycles = append(cycles, Cycle{Species: []string{evo.From}, SelfLoop: true})
		}
	}

	return cycles
}
