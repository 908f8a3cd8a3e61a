// Package analytics computes structural metrics over a built evolution graph:
// degree centrality and the hub species, the longest evolution chain, and how
// often each trigger label occurs.
//
// Every function is a pure read of the graph. Ties are broken by first-seen
// order so that identical input always yields identical output:
//
//   - TopHub scans species in insertion order and keeps the first maximum.
//   - LongestChain relaxes edges in topological order, replacing a
//     predecessor only on strict improvement, and ends at the first node that
//     reaches the maximum length.
//   - TriggerFrequency sorts stably by count, so equal counts keep the order
//     in which their labels first appeared on an edge.
package analytics

import (
	"cmp"
	"errors"
	"slices"

	"github.com/ritzau/pokegraph/pkg/cycles"
	"github.com/ritzau/pokegraph/pkg/graph"
)

// NoHub names the hub when centrality is undefined (fewer than two species).
const NoHub = "N/A"

// DefaultFrequencyLimit is how many trigger labels a summary keeps.
const DefaultFrequencyLimit = 10

// Hub is the species with the highest degree centrality.
type Hub struct {
	Name string
	// Connections counts the distinct species the hub evolves into.
	Connections int
	Centrality  float64
}

// Chain is the longest evolution path. When Cyclic is set the graph has a
// cycle, the chain is undefined, and Path is nil.
type Chain struct {
	Path   []string
	Cyclic bool
}

// Len returns the number of species on the chain.
func (c Chain) Len() int {
	return len(c.Path)
}

// LabelCount is one entry of the trigger frequency ranking.
type LabelCount struct {
	Label string
	Count int
}

// MetricsSummary is a snapshot of graph metrics. It holds no reference to the graph.
type MetricsSummary struct {
	NodeCount        int
	EdgeCount        int
	TopHub           Hub
	LongestChain     Chain
	TriggerFrequency []LabelCount
}

// DegreeCentrality returns (in-degree + out-degree) / (n - 1) for every
// species. The second result is false, and the map nil, when n <= 1.
func DegreeCentrality(eg *graph.EvolutionGraph) (map[string]float64, bool) {
	n := eg.NodeCount()
	if n <= 1 {
		return nil, false
	}

	scale := 1.0 / float64(n-1)
	centrality := make(map[string]float64, n)
	for _, s := range eg.Species() {
		centrality[s] = float64(eg.InDegree(s)+eg.OutDegree(s)) * scale
	}
	return centrality, true
}

// TopHub returns the species with maximum degree centrality.
func TopHub(eg *graph.EvolutionGraph) Hub {
	centrality, ok := DegreeCentrality(eg)
	if !ok {
		return Hub{Name: NoHub}
	}

	best := Hub{Centrality: -1}
	for _, s := range eg.Species() {
		if c := centrality[s]; c > best.Centrality {
			best = Hub{Name: s, Centrality: c}
		}
	}
	best.Connections = eg.OutDegree(best.Name)
	return best
}

// LongestChain returns the path with the most species. It reports a cyclic
// chain instead of an error when the graph is not a DAG.
func LongestChain(eg *graph.EvolutionGraph) Chain {
	order, err := cycles.TopologicalOrder(eg)
	if errors.Is(err, cycles.ErrCycle) {
		return Chain{Cyclic: true}
	}
	if len(order) == 0 {
		return Chain{Path: []string{}}
	}

	// dist[v] = species on the longest path ending at v.
	n := eg.NodeCount()
	dist := make([]int, n)
	prev := make([]int64, n)
	for i := range dist {
		dist[i] = 1
		prev[i] = -1
	}

	for _, v := range order {
		for _, next := range eg.SuccessorIDs(v) {
			if dist[v]+1 > dist[next] {
				dist[next] = dist[v] + 1
				prev[next] = v
			}
		}
	}

	end := order[0]
	for _, v := range order {
		if dist[v] > dist[end] {
			end = v
		}
	}

	path := make([]string, dist[end])
	for i, cur := len(path)-1, end; cur != -1; i, cur = i-1, prev[cur] {
		path[i] = eg.Name(cur)
	}
	return Chain{Path: path}
}

// TriggerFrequency counts edge labels, most frequent first, keeping at most
// limit entries. A limit <= 0 keeps all of them.
func TriggerFrequency(eg *graph.EvolutionGraph, limit int) []LabelCount {
	counts := make(map[string]int)
	ranking := make([]LabelCount, 0)
	for _, evo := range eg.Evolutions() {
		if _, seen := counts[evo.Label]; !seen {
			ranking = append(ranking, LabelCount{Label: evo.Label})
		}
		counts[evo.Label]++
	}
	for i := range ranking {
		ranking[i].Count = counts[ranking[i].Label]
	}

	slices.SortStableFunc(ranking, func(a, b LabelCount) int {
		return cmp.Compare(b.Count, a.Count)
	})

	if limit > 0 && len(ranking) > limit {
		ranking = ranking[:limit]
	}
	return ranking
}

// Summarize computes every metric with the default frequency limit.
func Summarize(eg *graph.EvolutionGraph) MetricsSummary {
	return SummarizeTop(eg, DefaultFrequencyLimit)
}

// SummarizeTop is Summarize with a custom trigger frequency limit.
func SummarizeTop(eg *graph.EvolutionGraph, limit int) MetricsSummary {
	return MetricsSummary{
		NodeCount:        eg.NodeCount(),
		EdgeCount:        eg.EdgeCount(),
		TopHub:           TopHub(eg),
		LongestChain:     LongestChain(eg),
		TriggerFrequency: TriggerFrequency(eg, limit),
	}
}
