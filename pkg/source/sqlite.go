package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/ritzau/pokegraph/pkg/logging"
	"github.com/ritzau/pokegraph/pkg/model"
)

// DefaultDatabase is the database file looked up when no path is configured.
const DefaultDatabase = "pokemon_dw.db"

const evolutionQuery = `
	SELECT from_species, to_species, trigger, min_level, item, time_of_day
	FROM evolution`

// SQLiteSource reads the evolution table from the first candidate database
// file that exists. Candidates are re-checked on every call, so a database
// that appears later is picked up.
type SQLiteSource struct {
	candidates []string
}

// NewSQLiteSource creates a source over one or more candidate paths, tried in order.
func NewSQLiteSource(paths ...string) *SQLiteSource {
	if len(paths) == 0 {
		paths = []string{DefaultDatabase}
	}
	return &SQLiteSource{candidates: paths}
}

func (s *SQLiteSource) Name() string {
	return "SQLite"
}

// Identity is the list of candidate paths, so two sources over the same
// candidates share cache entries.
func (s *SQLiteSource) Identity() string {
	return fmt.Sprintf("sqlite:%v", s.candidates)
}

// Path returns the candidate that would be read now.
func (s *SQLiteSource) Path() (string, error) {
	for _, p := range s.candidates {
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("sqlite: stat %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("%w: none of %v exists", ErrUnavailable, s.candidates)
}

// Candidates returns the configured database paths.
func (s *SQLiteSource) Candidates() []string {
	return append([]string(nil), s.candidates...)
}

// Version combines the chosen path with its size and modification time.
func (s *SQLiteSource) Version(ctx context.Context) (string, error) {
	path, err := s.Path()
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("sqlite: stat %s: %w", path, err)
	}
	return fmt.Sprintf("%s:%d:%d", filepath.Base(path), info.Size(), info.ModTime().UnixNano()), nil
}

// Rows opens the database read-only and reads the whole evolution table.
func (s *SQLiteSource) Rows(ctx context.Context) ([]model.EvolutionRow, error) {
	path, err := s.Path()
	if err != nil {
		return nil, err
	}

	logger := logging.New("source.sqlite")
	logger.Debug("reading evolution table", "path", path)

	db, err := sql.Open("sqlite", readOnlyDSN(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, evolutionQuery)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query evolution table: %w", err)
	}
	defer rows.Close()

	var result []model.EvolutionRow
	for rows.Next() {
		var (
			from, to, trigger, item, timeOfDay sql.NullString
			minLevel                           sql.NullFloat64
		)
		if err := rows.Scan(&from, &to, &trigger, &minLevel, &item, &timeOfDay); err != nil {
			return nil, fmt.Errorf("sqlite: scan evolution row: %w", err)
		}

		row := model.EvolutionRow{
			FromSpecies: from.String,
			ToSpecies:   to.String,
			Trigger:     trigger.String,
		}
		if minLevel.Valid {
			row.MinLevel = &minLevel.Float64
		}
		if item.Valid {
			row.Item = &item.String
		}
		if timeOfDay.Valid {
			row.TimeOfDay = &timeOfDay.String
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read evolution rows: %w", err)
	}

	logger.Debug("read evolution table", "rows", len(result))
	return result, nil
}

func readOnlyDSN(path string) string {
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", "busy_timeout(5000)")
	return "file:" + filepath.ToSlash(path) + "?" + q.Encode()
}
