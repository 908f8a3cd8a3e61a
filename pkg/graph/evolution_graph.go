package graph

import (
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"

	"github.com/ritzau/pokegraph/pkg/model"
)

// EvolutionGraph is a directed graph of species with one labeled edge per
// ordered pair. Topology lives in a gonum multigraph (so self-loops are
// allowed); insertion order is tracked alongside it so every read is
// deterministic.
type EvolutionGraph struct {
	graph   *multi.DirectedGraph
	species []string         // node ID == index, in first-seen order
	ids     map[string]int64 // species name -> node ID
	pairs   []pair           // distinct ordered pairs in first-insert order
	labels  map[pair]string
}

type pair struct {
	from, to int64
}

// Evolution is a labeled edge read back out of the graph.
type Evolution struct {
	From  string
	To    string
	Label string
}

// NewEvolutionGraph creates an empty graph.
func NewEvolutionGraph() *EvolutionGraph {
	return &EvolutionGraph{
		graph:  multi.NewDirectedGraph(),
		ids:    make(map[string]int64),
		labels: make(map[pair]string),
	}
}

// Build creates a fresh graph from a sequence of edges.
func Build(edges []model.EvolutionEdge) *EvolutionGraph {
	eg := NewEvolutionGraph()
	for _, e := range edges {
		eg.AddEvolution(e)
	}
	return eg
}

// AddSpecies adds a species node if it isn't already present and returns its ID.
func (eg *EvolutionGraph) AddSpecies(name string) int64 {
	if id, exists := eg.ids[name]; exists {
		return id
	}

	id := int64(len(eg.species))
	eg.species = append(eg.species, name)
	eg.ids[name] = id
	eg.graph.AddNode(multi.Node(id))
	return id
}

// AddEvolution inserts the directed edge, creating both endpoints as needed.
// A second edge between the same ordered pair replaces the label (last write
// wins) and keeps the pair's original position in Evolutions.
func (eg *EvolutionGraph) AddEvolution(e model.EvolutionEdge) {
	fromID := eg.AddSpecies(e.From)
	toID := eg.AddSpecies(e.To)
	key := pair{from: fromID, to: toID}

	if !eg.graph.HasEdgeFromTo(fromID, toID) {
		eg.graph.SetLine(eg.graph.NewLine(eg.graph.Node(fromID), eg.graph.Node(toID)))
		eg.pairs = append(eg.pairs, key)
	}
	eg.labels[key] = e.Label
}

// HasSpecies reports whether name is a node of the graph.
func (eg *EvolutionGraph) HasSpecies(name string) bool {
	_, exists := eg.ids[name]
	return exists
}

// ID returns the node ID for a species.
func (eg *EvolutionGraph) ID(name string) (int64, bool) {
	id, exists := eg.ids[name]
	return id, exists
}

// Name returns the species for a node ID, or "" if the ID is unknown.
func (eg *EvolutionGraph) Name(id int64) string {
	if id < 0 || id >= int64(len(eg.species)) {
		return ""
	}
	return eg.species[id]
}

// Species returns all species in first-seen order.
func (eg *EvolutionGraph) Species() []string {
	return slices.Clone(eg.species)
}

// Evolutions returns all edges in first-insert order with their current labels.
func (eg *EvolutionGraph) Evolutions() []Evolution {
	out := make([]Evolution, 0, len(eg.pairs))
	for _, p := range eg.pairs {
		out = append(out, Evolution{
			From:  eg.species[p.from],
			To:    eg.species[p.to],
			Label: eg.labels[p],
		})
	}
	return out
}

// Label returns the trigger label of the edge from -> to.
func (eg *EvolutionGraph) Label(from, to string) (string, bool) {
	fromID, ok := eg.ids[from]
	if !ok {
		return "", false
	}
	toID, ok := eg.ids[to]
	if !ok {
		return "", false
	}
	label, ok := eg.labels[pair{from: fromID, to: toID}]
	return label, ok
}

// NodeCount returns the number of species.
func (eg *EvolutionGraph) NodeCount() int {
	return len(eg.species)
}

// EdgeCount returns the number of distinct ordered pairs.
func (eg *EvolutionGraph) EdgeCount() int {
	return len(eg.pairs)
}

// Successors returns the species that name evolves into, in first-seen order.
func (eg *EvolutionGraph) Successors(name string) []string {
	id, exists := eg.ids[name]
	if !exists {
		return nil
	}
	return eg.names(eg.SuccessorIDs(id))
}

// Predecessors returns the species that evolve into name, in first-seen order.
func (eg *EvolutionGraph) Predecessors(name string) []string {
	id, exists := eg.ids[name]
	if !exists {
		return nil
	}
	return eg.names(sortedIDs(eg.graph.To(id)))
}

// SuccessorIDs returns successor node IDs in ascending (first-seen) order.
func (eg *EvolutionGraph) SuccessorIDs(id int64) []int64 {
	return sortedIDs(eg.graph.From(id))
}

// OutDegree returns the number of distinct successors of name.
func (eg *EvolutionGraph) OutDegree(name string) int {
	id, exists := eg.ids[name]
	if !exists {
		return 0
	}
	return len(sortedIDs(eg.graph.From(id)))
}

// InDegree returns the number of distinct predecessors of name.
func (eg *EvolutionGraph) InDegree(name string) int {
	id, exists := eg.ids[name]
	if !exists {
		return 0
	}
	return len(sortedIDs(eg.graph.To(id)))
}

// Graph returns the underlying directed graph
func (eg *EvolutionGraph) Graph() graph.Directed {
	return eg.graph
}

func (eg *EvolutionGraph) names(ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, eg.species[id])
	}
	return out
}

// sortedIDs drains a gonum node iterator, whose order is unspecified, into ascending IDs.
func sortedIDs(it graph.Nodes) []int64 {
	ids := make([]int64, 0, max(it.Len(), 0))
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	slices.Sort(ids)
	return ids
}
