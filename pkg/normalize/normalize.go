// Package normalize turns raw evolution rows into canonical edges.
//
// Species names are title-cased, and each row's trigger metadata is reduced to
// a single human-readable label. Rows missing a species are skipped rather than
// failing the batch. An empty batch yields a small demonstration dataset so the
// rest of the pipeline always has something to work with.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ritzau/pokegraph/pkg/logging"
	"github.com/ritzau/pokegraph/pkg/model"
)

// ErrMalformedRow is returned for rows that cannot become an edge.
var ErrMalformedRow = errors.New("malformed evolution row")

// UnknownTrigger labels edges whose row carried no usable trigger information.
const UnknownTrigger = "unknown"

var rowValidate = validator.New()

// Result is the outcome of normalizing a batch of rows.
type Result struct {
	Edges    []model.EvolutionEdge
	Skipped  int  // rows dropped as malformed
	Fallback bool // true when Edges is the demonstration dataset
}

// TitleCase capitalizes the first letter of every word and lowercases the rest.
// Surrounding whitespace is trimmed. Applying it twice gives the same result.
func TitleCase(s string) string {
	// cases.Caser keeps state between calls, so a fresh one per call keeps this safe for concurrent use.
	return cases.Title(language.Und).String(strings.TrimSpace(s))
}

// TriggerLabel derives the edge label for a row. The first matching rule wins:
// a level-up trigger with a level, then a non-empty item, then the raw trigger.
// A non-empty time of day is appended in parentheses.
func TriggerLabel(row model.EvolutionRow) string {
	var label string
	switch {
	case row.Trigger == model.TriggerLevelUp && row.MinLevel != nil:
		label = fmt.Sprintf("Lvl %d", int64(math.Trunc(*row.MinLevel)))
	case row.Item != nil && *row.Item != "":
		label = "Item: " + *row.Item
	default:
		label = row.Trigger
	}
	if label == "" {
		label = UnknownTrigger
	}

	if row.TimeOfDay != nil && *row.TimeOfDay != "" {
		label += " (" + *row.TimeOfDay + ")"
	}
	return label
}

// Normalize converts one row into an edge.
func Normalize(row model.EvolutionRow) (model.EvolutionEdge, error) {
	row.FromSpecies = TitleCase(row.FromSpecies)
	row.ToSpecies = TitleCase(row.ToSpecies)

	if err := rowValidate.Struct(row); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fe.Field())
			}
			return model.EvolutionEdge{}, fmt.Errorf("%w: missing %s", ErrMalformedRow, strings.Join(fields, ", "))
		}
		return model.EvolutionEdge{}, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}

	return model.EvolutionEdge{
		From:  row.FromSpecies,
		To:    row.ToSpecies,
		Label: TriggerLabel(row),
	}, nil
}

// NormalizeAll converts a batch of rows, skipping malformed ones. When nothing
// usable remains the demonstration dataset is returned instead.
func NormalizeAll(rows []model.EvolutionRow) Result {
	logger := logging.New("normalize")

	result := Result{Edges: make([]model.EvolutionEdge, 0, len(rows))}
	for i, row := range rows {
		edge, err := Normalize(row)
		if err != nil {
			result.Skipped++
			logger.Debug("skipping row", "index", i, "error", err)
			continue
		}
		result.Edges = append(result.Edges, edge)
	}

	if len(result.Edges) == 0 {
		result.Edges = FallbackEdges()
		result.Fallback = true
		logger.Warn("no usable rows, using demonstration dataset", "rows", len(rows), "skipped", result.Skipped)
	}
	return result
}

// FallbackEdges returns the demonstration dataset: two separate three-stage chains.
func FallbackEdges() []model.EvolutionEdge {
	return []model.EvolutionEdge{
		{From: "Bulbasaur", To: "Ivysaur", Label: "Lvl 16"},
		{From: "Ivysaur", To: "Venusaur", Label: "Lvl 32"},
		{From: "Charmander", To: "Charmeleon", Label: "Lvl 16"},
		{From: "Charmeleon", To: "Charizard", Label: "Lvl 36"},
	}
}
