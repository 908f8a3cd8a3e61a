package payload

import "github.com/ritzau/pokegraph/pkg/model"

// Diff represents the difference between two payloads. Entries follow the
// order of the payload they come from: additions and relabels the new one,
// removals the old one.
type Diff struct {
	AddedSpecies        []string              `json:"added_species"`
	RemovedSpecies      []string              `json:"removed_species"`
	AddedEvolutions     []model.EvolutionEdge `json:"added_evolutions"`
	RemovedEvolutions   []model.EvolutionEdge `json:"removed_evolutions"`
	RelabeledEvolutions []model.EvolutionEdge `json:"relabeled_evolutions"` // with the new label
	FullGraph           bool                  `json:"full_graph"`           // True if there was nothing to diff against
}

// Empty reports whether the diff records no change.
func (d *Diff) Empty() bool {
	return !d.FullGraph &&
		len(d.AddedSpecies) == 0 &&
		len(d.RemovedSpecies) == 0 &&
		len(d.AddedEvolutions) == 0 &&
		len(d.RemovedEvolutions) == 0 &&
		len(d.RelabeledEvolutions) == 0
}

// ComputeDiff computes the difference between old and next. With no old
// payload the whole of next counts as added.
func ComputeDiff(old, next *Payload) *Diff {
	if old == nil {
		return &Diff{
			AddedSpecies:        append([]string{}, next.Nodes...),
			RemovedSpecies:      []string{},
			AddedEvolutions:     append([]model.EvolutionEdge{}, next.Edges...),
			RemovedEvolutions:   []model.EvolutionEdge{},
			RelabeledEvolutions: []model.EvolutionEdge{},
			FullGraph:           true,
		}
	}

	diff := &Diff{
		AddedSpecies:        make([]string, 0),
		RemovedSpecies:      make([]string, 0),
		AddedEvolutions:     make([]model.EvolutionEdge, 0),
		RemovedEvolutions:   make([]model.EvolutionEdge, 0),
		RelabeledEvolutions: make([]model.EvolutionEdge, 0),
	}

	oldNodes := nodeSet(old.Nodes)
	newNodes := nodeSet(next.Nodes)
	oldEdges := edgeIndex(old.Edges)
	newEdges := edgeIndex(next.Edges)

	for _, n := range next.Nodes {
		if !oldNodes[n] {
			diff.AddedSpecies = append(diff.AddedSpecies, n)
		}
	}
	for _, n := range old.Nodes {
		if !newNodes[n] {
			diff.RemovedSpecies = append(diff.RemovedSpecies, n)
		}
	}

	for _, e := range next.Edges {
		prev, exists := oldEdges[edgeKey(e)]
		switch {
		case !exists:
			diff.AddedEvolutions = append(diff.AddedEvolutions, e)
		case prev.Label != e.Label:
			diff.RelabeledEvolutions = append(diff.RelabeledEvolutions, e)
		}
	}
	for _, e := range old.Edges {
		if _, exists := newEdges[edgeKey(e)]; !exists {
			diff.RemovedEvolutions = append(diff.RemovedEvolutions, e)
		}
	}

	return diff
}

// edgeKey identifies an evolution by its endpoints; a pair carries one label.
func edgeKey(e model.EvolutionEdge) [2]string {
	return [2]string{e.From, e.To}
}

func nodeSet(nodes []string) map[string]bool {
	set := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		set[n] = true
	}
	return set
}

func edgeIndex(edges []model.EvolutionEdge) map[[2]string]model.EvolutionEdge {
	index := make(map[[2]string]model.EvolutionEdge, len(edges))
	for _, e := range edges {
		index[edgeKey(e)] = e
	}
	return index
}
