package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ritzau/pokegraph/pkg/logging"
	"github.com/ritzau/pokegraph/pkg/pipeline"
)

// ChangeAnalysis describes a batch of changes for the refresh it triggers.
type ChangeAnalysis struct {
	Type         ChangeType
	Reason       string
	ChangedFiles []string // base names, deduplicated
}

// AnalyzeChanges decides how to refresh after a change event.
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	names := make([]string, 0, len(event.Paths))
	seen := make(map[string]bool)
	for _, p := range event.Paths {
		if name := filepath.Base(p); !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	return &ChangeAnalysis{
		Type:         event.Type,
		Reason:       fmt.Sprintf("%s changed: %s", event.Type, strings.Join(names, ", ")),
		ChangedFiles: names,
	}
}

// Refresher is the part of the pipeline the watcher drives.
type Refresher interface {
	Invalidate() bool
	Refresh(ctx context.Context, opts pipeline.RefreshOptions) (*pipeline.Dataset, error)
}

// Drive refreshes r for every debounced change until events is closed or ctx
// is canceled. The cache is always invalidated first: a journal write can
// change content without touching the database file's size or mtime.
// Refresh failures are logged, not returned.
func Drive(ctx context.Context, events <-chan ChangeEvent, r Refresher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}

			analysis := AnalyzeChanges(event)
			logging.Info("database change detected", "type", analysis.Type.String(), "files", analysis.ChangedFiles)
			r.Invalidate()
			if _, err := r.Refresh(ctx, pipeline.RefreshOptions{Reason: analysis.Reason}); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logging.Error("refresh after change failed", "reason", analysis.Reason, "error", err)
			}
		}
	}
}
