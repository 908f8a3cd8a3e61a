package watcher

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ritzau/pokegraph/pkg/pipeline"
)

func TestDebouncer_BatchesBurst(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 30*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for _, p := range []string{"a.db", "a.db-wal", "a.db"} {
		typ := ChangeTypeDatabase
		if filepath.Ext(p) == ".db-wal" {
			typ = ChangeTypeJournal
		}
		input <- ChangeEvent{Type: typ, Paths: []string{p}}
	}

	var got []ChangeEvent
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case ev := <-d.Output():
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("timed out, got %d events", len(got))
		}
	}

	if got[0].Type != ChangeTypeDatabase || !reflect.DeepEqual(got[0].Paths, []string{"a.db", "a.db"}) {
		t.Errorf("first flushed event = %+v, want database [a.db a.db]", got[0])
	}
	if got[1].Type != ChangeTypeJournal {
		t.Errorf("second flushed event = %+v, want journal", got[1])
	}

	select {
	case ev := <-d.Output():
		t.Errorf("unexpected extra event %+v", ev)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestDebouncer_MaxWait(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 50*time.Millisecond, 120*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	// Keep the quiet period from ever elapsing.
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case input <- ChangeEvent{Type: ChangeTypeDatabase, Paths: []string{"a.db"}}:
				case <-stop:
					return
				}
			}
		}
	}()
	defer close(stop)

	select {
	case ev := <-d.Output():
		if ev.Type != ChangeTypeDatabase {
			t.Errorf("event type = %v, want database", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("maxWait did not force a flush")
	}
}

func TestDebouncer_FlushesOnClose(t *testing.T) {
	input := make(chan ChangeEvent, 1)
	d := NewDebouncer(input, time.Hour, time.Hour)
	d.Start(context.Background())

	input <- ChangeEvent{Type: ChangeTypeJournal, Paths: []string{"a.db-journal"}}
	close(input)

	ev, ok := <-d.Output()
	if !ok || ev.Type != ChangeTypeJournal {
		t.Fatalf("expected pending journal event on close, got %+v (ok=%v)", ev, ok)
	}
	if _, ok := <-d.Output(); ok {
		t.Error("output should be closed after input closes")
	}
}

func TestDebouncer_StopsWithoutConsumer(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, time.Millisecond, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	// Nobody reads Output, so the buffer fills and a flush has to wait.
	for range 30 {
		select {
		case input <- ChangeEvent{Type: ChangeTypeDatabase, Paths: []string{"a.db"}}:
			time.Sleep(5 * time.Millisecond)
		case <-time.After(100 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatal("debouncer still blocked on a full output after cancel")
	}
}

func TestAnalyzeChanges(t *testing.T) {
	a := AnalyzeChanges(ChangeEvent{
		Type:  ChangeTypeJournal,
		Paths: []string{"/data/pokemon_dw.db-wal", "/data/pokemon_dw.db-wal", "/data/pokemon_dw.db-journal"},
	})

	if a.Reason != "journal changed: pokemon_dw.db-wal, pokemon_dw.db-journal" {
		t.Errorf("Reason = %q", a.Reason)
	}
	if len(a.ChangedFiles) != 2 {
		t.Errorf("ChangedFiles = %v, want 2 unique names", a.ChangedFiles)
	}
}

type fakeRefresher struct {
	mu          sync.Mutex
	invalidated int
	reasons     []string
}

func (f *fakeRefresher) Invalidate() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	return true
}

func (f *fakeRefresher) Refresh(ctx context.Context, opts pipeline.RefreshOptions) (*pipeline.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, opts.Reason)
	return &pipeline.Dataset{}, nil
}

func TestDrive(t *testing.T) {
	events := make(chan ChangeEvent, 2)
	events <- ChangeEvent{Type: ChangeTypeDatabase, Paths: []string{"/x/a.db"}}
	events <- ChangeEvent{Type: ChangeTypeJournal, Paths: []string{"/x/a.db-wal"}}
	close(events)

	r := &fakeRefresher{}
	if err := Drive(context.Background(), events, r); err != nil {
		t.Fatalf("Drive() error = %v", err)
	}

	if r.invalidated != 2 {
		t.Errorf("invalidated = %d, want 2", r.invalidated)
	}
	want := []string{"database changed: a.db", "journal changed: a.db-wal"}
	if !reflect.DeepEqual(r.reasons, want) {
		t.Errorf("reasons = %v, want %v", r.reasons, want)
	}
}

func TestFileWatcher_Classify(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "pokemon_dw.db")

	fw, err := NewFileWatcher([]string{db})
	if err != nil {
		t.Fatalf("NewFileWatcher() error = %v", err)
	}
	defer fw.Stop()

	tests := []struct {
		path   string
		want   ChangeType
		wantOK bool
	}{
		{db, ChangeTypeDatabase, true},
		{db + "-wal", ChangeTypeJournal, true},
		{db + "-journal", ChangeTypeJournal, true},
		{db + "-shm", 0, false},
		{filepath.Join(dir, "other.db"), 0, false},
	}
	for _, tt := range tests {
		got, ok := fw.Classify(tt.path)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("Classify(%s) = %v, %v; want %v, %v", filepath.Base(tt.path), got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFileWatcher_DetectsWrite(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "pokemon_dw.db")

	fw, err := NewFileWatcher([]string{db})
	if err != nil {
		t.Fatalf("NewFileWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := fw.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(db, []byte("SQLite format 3"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-fw.Events():
		if ev.Type != ChangeTypeDatabase {
			t.Errorf("event type = %v, want database", ev.Type)
		}
		for _, p := range ev.Paths {
			if filepath.Base(p) != "pokemon_dw.db" {
				t.Errorf("unexpected path %s in event", p)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event for database write")
	}
}

func TestFileWatcher_MissingDirectory(t *testing.T) {
	fw, err := NewFileWatcher([]string{filepath.Join(t.TempDir(), "nope", "a.db")})
	if err != nil {
		t.Fatalf("NewFileWatcher() error = %v", err)
	}
	if err := fw.Start(context.Background()); err == nil {
		t.Error("Start() should fail when no directory can be watched")
	}
}
