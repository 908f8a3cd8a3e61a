package graph

import (
	"reflect"
	"testing"

	"github.com/ritzau/pokegraph/pkg/model"
)

func TestNewEvolutionGraph(t *testing.T) {
	eg := NewEvolutionGraph()
	if eg == nil {
		t.Fatal("NewEvolutionGraph() returned nil")
	}

	if eg.NodeCount() != 0 || eg.EdgeCount() != 0 {
		t.Errorf("New graph should be empty, got %d nodes %d edges", eg.NodeCount(), eg.EdgeCount())
	}
}

func TestAddSpecies(t *testing.T) {
	eg := NewEvolutionGraph()

	first := eg.AddSpecies("Eevee")
	second := eg.AddSpecies("Eevee")

	if first != second {
		t.Errorf("AddSpecies returned different IDs for the same species: %d, %d", first, second)
	}
	if eg.NodeCount() != 1 {
		t.Errorf("Expected 1 node, got %d", eg.NodeCount())
	}
	if !eg.HasSpecies("Eevee") {
		t.Error("Species not found in graph")
	}
	if eg.Name(first) != "Eevee" {
		t.Errorf("Name(%d) = %q, want Eevee", first, eg.Name(first))
	}
	if eg.Name(42) != "" {
		t.Errorf("Name of unknown ID should be empty, got %q", eg.Name(42))
	}
}

func TestAddEvolution_CreatesEndpoints(t *testing.T) {
	eg := NewEvolutionGraph()

	eg.AddEvolution(model.EvolutionEdge{From: "Pichu", To: "Pikachu", Label: "level-up"})

	if eg.NodeCount() != 2 {
		t.Errorf("Expected 2 nodes, got %d", eg.NodeCount())
	}
	if eg.EdgeCount() != 1 {
		t.Errorf("Expected 1 edge, got %d", eg.EdgeCount())
	}

	label, ok := eg.Label("Pichu", "Pikachu")
	if !ok || label != "level-up" {
		t.Errorf("Label(Pichu, Pikachu) = %q, %v", label, ok)
	}
	if _, ok := eg.Label("Pikachu", "Pichu"); ok {
		t.Error("Reverse edge should not exist")
	}
}

func TestAddEvolution_LastWriteWins(t *testing.T) {
	eg := Build([]model.EvolutionEdge{
		{From: "Eevee", To: "Espeon", Label: "level-up (day)"},
		{From: "Eevee", To: "Umbreon", Label: "level-up (night)"},
		{From: "Eevee", To: "Espeon", Label: "Item: Sun Shard"},
	})

	if eg.EdgeCount() != 2 {
		t.Fatalf("Expected 2 edges after collapsing duplicate pair, got %d", eg.EdgeCount())
	}

	label, _ := eg.Label("Eevee", "Espeon")
	if label != "Item: Sun Shard" {
		t.Errorf("Expected later label to win, got %q", label)
	}

	// The overwritten pair keeps its original position.
	evos := eg.Evolutions()
	if evos[0].To != "Espeon" || evos[1].To != "Umbreon" {
		t.Errorf("Unexpected edge order: %+v", evos)
	}
}

func TestAddEvolution_SelfLoop(t *testing.T) {
	eg := Build([]model.EvolutionEdge{{From: "Ditto", To: "Ditto", Label: "transform"}})

	if eg.NodeCount() != 1 || eg.EdgeCount() != 1 {
		t.Fatalf("Expected 1 node and 1 edge, got %d and %d", eg.NodeCount(), eg.EdgeCount())
	}
	if eg.InDegree("Ditto") != 1 || eg.OutDegree("Ditto") != 1 {
		t.Errorf("Self-loop degrees = in %d out %d, want 1 and 1", eg.InDegree("Ditto"), eg.OutDegree("Ditto"))
	}
}

func TestSuccessorsAndPredecessors(t *testing.T) {
	eg := Build([]model.EvolutionEdge{
		{From: "Eevee", To: "Vaporeon", Label: "Item: Water Stone"},
		{From: "Eevee", To: "Jolteon", Label: "Item: Thunder Stone"},
		{From: "Eevee", To: "Flareon", Label: "Item: Fire Stone"},
		{From: "Gloom", To: "Vileplume", Label: "Item: Leaf Stone"},
	})

	want := []string{"Vaporeon", "Jolteon", "Flareon"}
	if got := eg.Successors("Eevee"); !reflect.DeepEqual(got, want) {
		t.Errorf("Successors(Eevee) = %v, want %v", got, want)
	}
	if got := eg.Predecessors("Flareon"); !reflect.DeepEqual(got, []string{"Eevee"}) {
		t.Errorf("Predecessors(Flareon) = %v", got)
	}
	if got := eg.Successors("Missingno"); got != nil {
		t.Errorf("Successors of unknown species = %v, want nil", got)
	}
	if eg.OutDegree("Eevee") != 3 || eg.InDegree("Eevee") != 0 {
		t.Errorf("Eevee degrees = out %d in %d", eg.OutDegree("Eevee"), eg.InDegree("Eevee"))
	}
}

func TestSpecies_FirstSeenOrder(t *testing.T) {
	eg := Build([]model.EvolutionEdge{
		{From: "Ivysaur", To: "Venusaur", Label: "Lvl 32"},
		{From: "Bulbasaur", To: "Ivysaur", Label: "Lvl 16"},
	})

	want := []string{"Ivysaur", "Venusaur", "Bulbasaur"}
	if got := eg.Species(); !reflect.DeepEqual(got, want) {
		t.Errorf("Species() = %v, want %v", got, want)
	}
}

func TestEvolutions_RoundTrip(t *testing.T) {
	edges := []model.EvolutionEdge{
		{From: "Bulbasaur", To: "Ivysaur", Label: "Lvl 16"},
		{From: "Ivysaur", To: "Venusaur", Label: "Lvl 32"},
		{From: "Charmander", To: "Charmeleon", Label: "Lvl 16"},
		{From: "Charmeleon", To: "Charizard", Label: "Lvl 36"},
		{From: "Charizard", To: "Charizard", Label: "mega"},
	}

	eg := Build(edges)
	evos := eg.Evolutions()

	if len(evos) != len(edges) {
		t.Fatalf("Expected %d edges back, got %d", len(edges), len(evos))
	}
	for i, e := range edges {
		got := evos[i]
		if got.From != e.From || got.To != e.To || got.Label != e.Label {
			t.Errorf("edge %d = %+v, want %+v", i, got, e)
		}
	}
}

func TestBuild_NoSharedState(t *testing.T) {
	a := Build([]model.EvolutionEdge{{From: "A", To: "B", Label: "x"}})
	b := Build([]model.EvolutionEdge{{From: "C", To: "D", Label: "y"}})

	if a.HasSpecies("C") || b.HasSpecies("A") {
		t.Error("Builds should not share nodes")
	}
}
