// Package payload converts a graph and its metrics into the plain data shape
// handed to renderers, the HTTP API and the export command. Nothing from the
// graph library crosses this boundary.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ritzau/pokegraph/pkg/analytics"
	"github.com/ritzau/pokegraph/pkg/graph"
	"github.com/ritzau/pokegraph/pkg/model"
)

// CycleError is the value of the "error" field of a chain with no defined length.
const CycleError = "cycle"

// Payload is the complete renderer input.
type Payload struct {
	Nodes   []string              `json:"nodes" yaml:"nodes"`
	Edges   []model.EvolutionEdge `json:"edges" yaml:"edges"`
	Metrics Metrics               `json:"metrics" yaml:"metrics"`

	Fallback       bool      `json:"fallback" yaml:"fallback"`
	GeneratedAt    time.Time `json:"generated_at,omitzero" yaml:"generated_at,omitempty"`
	DatasetVersion string    `json:"dataset_version,omitempty" yaml:"dataset_version,omitempty"`
}

// Metrics mirrors analytics.MetricsSummary with wire names.
type Metrics struct {
	NodeCount        int          `json:"node_count" yaml:"node_count"`
	EdgeCount        int          `json:"edge_count" yaml:"edge_count"`
	TopHub           Hub          `json:"top_hub" yaml:"top_hub"`
	LongestChain     Chain        `json:"longest_chain" yaml:"longest_chain"`
	TriggerFrequency []LabelCount `json:"trigger_frequency" yaml:"trigger_frequency"`
}

type Hub struct {
	Name        string  `json:"name" yaml:"name"`
	Connections int     `json:"connections" yaml:"connections"`
	Centrality  float64 `json:"centrality" yaml:"centrality"`
}

// Chain is either {length, path} or {error: "cycle"} on the wire.
type Chain struct {
	Length int
	Path   []string
	Cyclic bool
}

// chainWire accepts either form when decoding.
type chainWire struct {
	Length *int     `json:"length" yaml:"length"`
	Path   []string `json:"path" yaml:"path"`
	Error  string   `json:"error" yaml:"error"`
}

type chainLength struct {
	Length int      `json:"length" yaml:"length"`
	Path   []string `json:"path" yaml:"path"`
}

type chainError struct {
	Error string `json:"error" yaml:"error"`
}

func (c Chain) wire() any {
	if c.Cyclic {
		return chainError{Error: CycleError}
	}
	path := c.Path
	if path == nil {
		path = []string{}
	}
	return chainLength{Length: c.Length, Path: path}
}

func (c *Chain) fromWire(w chainWire) error {
	switch {
	case w.Error == CycleError:
		*c = Chain{Cyclic: true}
	case w.Error != "":
		return fmt.Errorf("unknown longest_chain error %q", w.Error)
	case w.Length == nil:
		return errors.New("longest_chain has neither length nor error")
	default:
		*c = Chain{Length: *w.Length, Path: w.Path}
		if c.Path == nil {
			c.Path = []string{}
		}
	}
	return nil
}

func (c Chain) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.wire())
}

func (c *Chain) UnmarshalJSON(data []byte) error {
	var w chainWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return c.fromWire(w)
}

func (c Chain) MarshalYAML() (any, error) {
	return c.wire(), nil
}

func (c *Chain) UnmarshalYAML(node *yaml.Node) error {
	var w chainWire
	if err := node.Decode(&w); err != nil {
		return err
	}
	return c.fromWire(w)
}

type LabelCount struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// Build assembles the payload. Node and edge order follow first-seen order in
// the graph.
func Build(eg *graph.EvolutionGraph, summary analytics.MetricsSummary) *Payload {
	nodes := append([]string{}, eg.Species()...)

	evolutions := eg.Evolutions()
	edges := make([]model.EvolutionEdge, 0, len(evolutions))
	for _, evo := range evolutions {
		edges = append(edges, model.EvolutionEdge{From: evo.From, To: evo.To, Label: evo.Label})
	}

	return &Payload{
		Nodes:   nodes,
		Edges:   edges,
		Metrics: FromSummary(summary),
	}
}

// FromSummary converts analytics output to its wire form.
func FromSummary(s analytics.MetricsSummary) Metrics {
	freq := make([]LabelCount, 0, len(s.TriggerFrequency))
	for _, lc := range s.TriggerFrequency {
		freq = append(freq, LabelCount{Label: lc.Label, Count: lc.Count})
	}

	chain := Chain{Cyclic: s.LongestChain.Cyclic}
	if !chain.Cyclic {
		chain.Length = s.LongestChain.Len()
		chain.Path = append([]string{}, s.LongestChain.Path...)
	}

	return Metrics{
		NodeCount: s.NodeCount,
		EdgeCount: s.EdgeCount,
		TopHub: Hub{
			Name:        s.TopHub.Name,
			Connections: s.TopHub.Connections,
			Centrality:  s.TopHub.Centrality,
		},
		LongestChain:     chain,
		TriggerFrequency: freq,
	}
}
