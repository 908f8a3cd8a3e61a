package payload

import (
	"reflect"
	"testing"

	"github.com/ritzau/pokegraph/pkg/model"
)

func TestComputeDiff_NoPrevious(t *testing.T) {
	next := buildPayload([]model.EvolutionEdge{{From: "A", To: "B", Label: "x"}})

	diff := ComputeDiff(nil, next)
	if !diff.FullGraph {
		t.Error("FullGraph = false, want true")
	}
	if !reflect.DeepEqual(diff.AddedSpecies, []string{"A", "B"}) {
		t.Errorf("AddedSpecies = %v", diff.AddedSpecies)
	}
	if len(diff.AddedEvolutions) != 1 || diff.Empty() {
		t.Errorf("diff = %+v", diff)
	}
}

func TestComputeDiff(t *testing.T) {
	old := buildPayload([]model.EvolutionEdge{
		{From: "A", To: "B", Label: "Lvl 16"},
		{From: "B", To: "C", Label: "Lvl 32"},
		{From: "X", To: "Y", Label: "trade"},
	})
	next := buildPayload([]model.EvolutionEdge{
		{From: "A", To: "B", Label: "Lvl 16"},
		{From: "B", To: "C", Label: "Lvl 36"},
		{From: "C", To: "D", Label: "Item: Moon Stone"},
	})

	diff := ComputeDiff(old, next)

	if diff.FullGraph {
		t.Error("FullGraph = true, want false")
	}
	if !reflect.DeepEqual(diff.AddedSpecies, []string{"D"}) {
		t.Errorf("AddedSpecies = %v, want [D]", diff.AddedSpecies)
	}
	if !reflect.DeepEqual(diff.RemovedSpecies, []string{"X", "Y"}) {
		t.Errorf("RemovedSpecies = %v, want [X Y]", diff.RemovedSpecies)
	}
	wantAdded := []model.EvolutionEdge{{From: "C", To: "D", Label: "Item: Moon Stone"}}
	if !reflect.DeepEqual(diff.AddedEvolutions, wantAdded) {
		t.Errorf("AddedEvolutions = %v, want %v", diff.AddedEvolutions, wantAdded)
	}
	wantRemoved := []model.EvolutionEdge{{From: "X", To: "Y", Label: "trade"}}
	if !reflect.DeepEqual(diff.RemovedEvolutions, wantRemoved) {
		t.Errorf("RemovedEvolutions = %v, want %v", diff.RemovedEvolutions, wantRemoved)
	}
	wantRelabeled := []model.EvolutionEdge{{From: "B", To: "C", Label: "Lvl 36"}}
	if !reflect.DeepEqual(diff.RelabeledEvolutions, wantRelabeled) {
		t.Errorf("RelabeledEvolutions = %v, want %v", diff.RelabeledEvolutions, wantRelabeled)
	}
}

func TestComputeDiff_Unchanged(t *testing.T) {
	edges := []model.EvolutionEdge{{From: "A", To: "B", Label: "x"}}

	if diff := ComputeDiff(buildPayload(edges), buildPayload(edges)); !diff.Empty() {
		t.Errorf("diff of identical payloads = %+v, want empty", diff)
	}
}
