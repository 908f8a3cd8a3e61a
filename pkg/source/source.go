// Package source supplies raw evolution rows to the pipeline.
//
// A Source is identified by a stable Identity and a Version that changes
// whenever its content may have changed; together they key the dataset cache.
package source

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"slices"

	"github.com/ritzau/pokegraph/pkg/model"
)

// ErrUnavailable is returned when a source has no data to offer, for example
// because its database file does not exist.
var ErrUnavailable = errors.New("data source unavailable")

// Source represents a provider of evolution rows.
type Source interface {
	// Name is a short human-readable name for logs.
	Name() string

	// Identity uniquely identifies the source across versions.
	Identity() string

	// Version changes whenever Rows may return different data.
	Version(ctx context.Context) (string, error)

	// Rows reads every evolution row. It should respect the context for cancellation.
	Rows(ctx context.Context) ([]model.EvolutionRow, error)
}

// StaticSource serves a fixed set of rows held in memory.
type StaticSource struct {
	name string
	rows []model.EvolutionRow
}

// NewStaticSource creates a source over a copy of rows.
func NewStaticSource(name string, rows []model.EvolutionRow) *StaticSource {
	return &StaticSource{name: name, rows: slices.Clone(rows)}
}

func (s *StaticSource) Name() string {
	return s.name
}

func (s *StaticSource) Identity() string {
	return "static:" + s.name
}

// Version is a hash of the row contents.
func (s *StaticSource) Version(ctx context.Context) (string, error) {
	h := fnv.New64a()
	for _, r := range s.rows {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s\x00%s\n",
			r.FromSpecies, r.ToSpecies, r.Trigger,
			formatFloat(r.MinLevel), deref(r.Item), deref(r.TimeOfDay))
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func (s *StaticSource) Rows(ctx context.Context) ([]model.EvolutionRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.rows), nil
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func formatFloat(f *float64) string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprint(*f)
}
