// Package watcher notices changes to the evolution database and drives
// debounced refreshes of the pipeline.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/pokegraph/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	// ChangeTypeDatabase is a write, creation, rename or removal of the database file.
	ChangeTypeDatabase ChangeType = iota
	// ChangeTypeJournal is a write to the rollback journal or WAL.
	ChangeTypeJournal
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeDatabase:
		return "database"
	case ChangeTypeJournal:
		return "journal"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(t))
	}
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// batchWindow groups the burst of events a single write produces.
const batchWindow = 100 * time.Millisecond

// FileWatcher watches the directories holding the candidate database files.
// Directories are watched rather than files so that a database created or
// replaced after startup is still noticed.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	targets map[string]ChangeType // absolute path -> change type
	dirs    []string
	events  chan ChangeEvent
	done    chan struct{}
	once    sync.Once
}

// NewFileWatcher creates a watcher for the given database paths.
func NewFileWatcher(dbPaths []string) (*FileWatcher, error) {
	targets := make(map[string]ChangeType)
	dirSet := make(map[string]bool)
	var dirs []string

	for _, p := range dbPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		targets[abs] = ChangeTypeDatabase
		targets[abs+"-journal"] = ChangeTypeJournal
		targets[abs+"-wal"] = ChangeTypeJournal

		if dir := filepath.Dir(abs); !dirSet[dir] {
			dirSet[dir] = true
			dirs = append(dirs, dir)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: w,
		targets: targets,
		dirs:    dirs,
		events:  make(chan ChangeEvent, 100),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching. Directories that do not exist are skipped with a
// warning; at least one must be watchable.
func (fw *FileWatcher) Start(ctx context.Context) error {
	watched := 0
	for _, dir := range fw.dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			logging.Warn("database directory not found, not watching", "path", dir)
			continue
		}
		if err := fw.watcher.Add(dir); err != nil {
			logging.Warn("failed to watch directory", "path", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		fw.watcher.Close()
		return fmt.Errorf("none of %v could be watched", fw.dirs)
	}

	logging.Info("started watching database", "directories", watched)

	go fw.processEvents(ctx)
	return nil
}

// Classify reports whether path is one of the watched database files and what kind.
func (fw *FileWatcher) Classify(path string) (ChangeType, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, false
	}
	t, ok := fw.targets[abs]
	return t, ok
}

// processEvents filters file system events and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	pending := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() {
		for _, t := range []ChangeType{ChangeTypeDatabase, ChangeTypeJournal} {
			if paths := pending[t]; len(paths) > 0 {
				select {
				case fw.events <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}:
				case <-ctx.Done():
					return
				}
			}
		}
		clear(pending)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			// Reads only touch the file's metadata.
			if event.Op == fsnotify.Chmod {
				continue
			}
			t, ok := fw.Classify(event.Name)
			if !ok {
				continue
			}
			logging.Trace("database file event", "path", event.Name, "op", event.Op.String())
			pending[t] = append(pending[t], event.Name)
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events. It is closed when the
// watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() {
	fw.once.Do(func() { close(fw.done) })
}
