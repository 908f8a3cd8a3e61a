// Package model holds the data shapes shared by the evolution pipeline:
// raw relational rows as they come out of a source, and the canonical
// directed edges the graph is built from.
package model

// TriggerLevelUp is the trigger identifier whose min_level turns into a "Lvl N" label.
const TriggerLevelUp = "level-up"

// EvolutionRow is one row of the evolution table. Nullable columns are pointers;
// nil means SQL NULL.
type EvolutionRow struct {
	FromSpecies string   `json:"from_species" validate:"required"`
	ToSpecies   string   `json:"to_species" validate:"required"`
	Trigger     string   `json:"trigger"`
	MinLevel    *float64 `json:"min_level"`
	Item        *string  `json:"item"`
	TimeOfDay   *string  `json:"time_of_day"`
}

// EvolutionEdge is a directed species transition annotated with a trigger label.
type EvolutionEdge struct {
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
	Label string `json:"label" yaml:"label"`
}

// IsSelfLoop reports whether the edge starts and ends at the same species.
func (e EvolutionEdge) IsSelfLoop() bool {
	return e.From == e.To
}

// StringPtr and FloatPtr build nullable row fields inline.
func StringPtr(s string) *string { return &s }

func FloatPtr(f float64) *float64 { return &f }
