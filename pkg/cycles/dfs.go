// Package cycles detects directed cycles in the evolution graph and produces
// the topological order the longest-chain computation relies on.
package cycles

import (
	"errors"
	"fmt"

	"github.com/ritzau/pokegraph/pkg/graph"
)

// ErrCycle is returned when an ordering is requested for a graph with a cycle.
var ErrCycle = errors.New("graph contains a cycle")

type color uint8

const (
	white color = iota // unvisited
	gray               // on the current DFS path
	black              // finished
)

// dfs walks every node in first-seen order with three-colour marking.
// It records post-order and stops at the first back edge.
type dfs struct {
	eg        *graph.EvolutionGraph
	colors    []color
	postOrder []int64
	backEdge  [2]int64
	cyclic    bool
}

func newDFS(eg *graph.EvolutionGraph) *dfs {
	return &dfs{
		eg:        eg,
		colors:    make([]color, eg.NodeCount()),
		postOrder: make([]int64, 0, eg.NodeCount()),
	}
}

func (d *dfs) run() {
	for id := range int64(len(d.colors)) {
		if d.colors[id] == white {
			d.visit(id)
			if d.cyclic {
				return
			}
		}
	}
}

func (d *dfs) visit(id int64) {
	d.colors[id] = gray
	for _, next := range d.eg.SuccessorIDs(id) {
		switch d.colors[next] {
		case gray:
			// Back edge, including a self-loop.
			d.cyclic = true
			d.backEdge = [2]int64{id, next}
			return
		case white:
			d.visit(next)
			if d.cyclic {
				return
			}
		}
	}
	d.colors[id] = black
	d.postOrder = append(d.postOrder, id)
}

// HasCycle reports whether the graph contains a directed cycle. A self-loop counts.
func HasCycle(eg *graph.EvolutionGraph) bool {
	d := newDFS(eg)
	d.run()
	return d.cyclic
}

// TopologicalOrder returns node IDs so that every edge points forward, as the
// reverse DFS post-order. Roots are started in first-seen order, so the result
// is deterministic. Returns ErrCycle naming one offending edge if no order exists.
func TopologicalOrder(eg *graph.EvolutionGraph) ([]int64, error) {
	d := newDFS(eg)
	d.run()
	if d.cyclic {
		return nil, fmt.Errorf("%w: %s -> %s", ErrCycle, eg.Name(d.backEdge[0]), eg.Name(d.backEdge[1]))
	}

	order := d.postOrder
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}
