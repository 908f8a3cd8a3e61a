// Package pipeline runs the full refresh: read rows from a source, normalize
// them, build the evolution graph, compute metrics and assemble the payload.
// The result is cached per source version and announced to subscribers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ritzau/pokegraph/pkg/analytics"
	"github.com/ritzau/pokegraph/pkg/cache"
	"github.com/ritzau/pokegraph/pkg/graph"
	"github.com/ritzau/pokegraph/pkg/logging"
	"github.com/ritzau/pokegraph/pkg/model"
	"github.com/ritzau/pokegraph/pkg/normalize"
	"github.com/ritzau/pokegraph/pkg/payload"
	"github.com/ritzau/pokegraph/pkg/pubsub"
	"github.com/ritzau/pokegraph/pkg/source"
	"github.com/ritzau/pokegraph/pkg/telemetry"
)

// Dataset states published on the dataset_status topic.
const (
	StateLoading  = "loading"
	StateReady    = "ready"
	StateFallback = "fallback"
	StateError    = "error"
)

// Dataset is one complete, immutable refresh result.
type Dataset struct {
	Graph    *graph.EvolutionGraph
	Summary  analytics.MetricsSummary
	Payload  *payload.Payload
	Skipped  int
	Fallback bool
	Version  string
	RunID    string
}

// Options configures a Runner. Zero values are usable.
type Options struct {
	Cache     *cache.DatasetCache[*Dataset]
	Publisher pubsub.Publisher
	TopN      int // trigger frequency entries, default analytics.DefaultFrequencyLimit
}

// RefreshOptions configures a single refresh.
type RefreshOptions struct {
	Reason string // e.g., "startup", "database changed"
	Force  bool   // drop the cached dataset before loading
}

// Runner orchestrates refreshes for one source.
type Runner struct {
	src     source.Source
	cache   *cache.DatasetCache[*Dataset]
	pub     pubsub.Publisher
	topN    int
	mu      sync.Mutex // Prevent concurrent refreshes
	current atomic.Pointer[Dataset]
	now     func() time.Time
}

// NewRunner creates a runner over src.
func NewRunner(src source.Source, opts Options) *Runner {
	if opts.Cache == nil {
		opts.Cache = cache.New[*Dataset]()
	}
	if opts.TopN <= 0 {
		opts.TopN = analytics.DefaultFrequencyLimit
	}
	return &Runner{
		src:   src,
		cache: opts.Cache,
		pub:   opts.Publisher,
		topN:  opts.TopN,
		now:   time.Now,
	}
}

// Source returns the source the runner reads from.
func (r *Runner) Source() source.Source {
	return r.src
}

// Current returns the last dataset produced, or nil before the first refresh.
func (r *Runner) Current() *Dataset {
	return r.current.Load()
}

// Invalidate drops the cached dataset for the runner's source. The current
// dataset stays served until the next refresh replaces it.
func (r *Runner) Invalidate() bool {
	return r.cache.Invalidate(r.src.Identity())
}

// Refresh produces a dataset for the source's current version, from the cache
// if possible. A source that cannot be read is not an error: the fallback
// dataset is used instead. Only context cancellation fails a refresh.
func (r *Runner) Refresh(ctx context.Context, opts RefreshOptions) (*Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.now()
	runID := uuid.NewString()
	logger := logging.New("pipeline").With("runID", runID)
	logger.Info("refresh started", "reason", opts.Reason, "source", r.src.Name())
	r.publishStatus(StateLoading, "Loading evolution data...", runID, "")

	previous := r.current.Load()
	identity := r.src.Identity()
	if opts.Force {
		r.cache.Invalidate(identity)
	}

	version, err := r.src.Version(ctx)
	if err != nil {
		logger.Warn("source version unavailable", "error", err)
		version = ""
	}

	if version != "" {
		ds, hit := r.cache.Get(identity, version)
		telemetry.RecordCacheLookup(hit)
		if hit {
			logger.Info("refresh served from cache", "key", cache.Key(identity, version))
			r.current.Store(ds)
			r.publishReady(ds, previous, runID, true)
			telemetry.RecordRefresh(telemetry.OutcomeCached, r.now().Sub(start))
			return ds, nil
		}
	}

	rows, readOK, err := r.loadRows(ctx, logger)
	if err != nil {
		r.publishStatus(StateError, fmt.Sprintf("Refresh canceled: %v", err), runID, version)
		telemetry.RecordRefresh(telemetry.OutcomeError, r.now().Sub(start))
		return nil, err
	}

	ds := r.compute(rows, version, runID)
	// Only rows actually read from this version may be cached under it.
	if version != "" && readOK {
		r.cache.Put(identity, version, ds)
	}
	r.current.Store(ds)

	telemetry.RecordSkippedRows(ds.Skipped)
	telemetry.SetGraphSize(ds.Summary.NodeCount, ds.Summary.EdgeCount)
	outcome := telemetry.OutcomeOK
	if ds.Fallback {
		outcome = telemetry.OutcomeFallback
	}
	telemetry.RecordRefresh(outcome, r.now().Sub(start))

	logger.Info("refresh complete",
		"nodes", ds.Summary.NodeCount,
		"edges", ds.Summary.EdgeCount,
		"skipped", ds.Skipped,
		"fallback", ds.Fallback,
		"duration", r.now().Sub(start).Round(time.Millisecond))
	r.publishReady(ds, previous, runID, false)
	return ds, nil
}

// loadRows reads the source. Read failures degrade to no rows, which
// normalizes to the fallback dataset, and report ok=false; cancellation is
// returned.
func (r *Runner) loadRows(ctx context.Context, logger *slog.Logger) (rows []model.EvolutionRow, ok bool, err error) {
	rows, err = r.src.Rows(ctx)
	if err == nil {
		return rows, true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, false, ctxErr
	}
	if errors.Is(err, source.ErrUnavailable) {
		logger.Warn("data source unavailable, using demonstration data", "error", err)
	} else {
		logger.Error("failed to read data source, using demonstration data", "error", err)
	}
	return nil, false, nil
}

func (r *Runner) compute(rows []model.EvolutionRow, version, runID string) *Dataset {
	result := normalize.NormalizeAll(rows)
	eg := graph.Build(result.Edges)
	summary := analytics.SummarizeTop(eg, r.topN)

	p := payload.Build(eg, summary)
	p.Fallback = result.Fallback
	p.GeneratedAt = r.now().UTC()
	p.DatasetVersion = version

	return &Dataset{
		Graph:    eg,
		Summary:  summary,
		Payload:  p,
		Skipped:  result.Skipped,
		Fallback: result.Fallback,
		Version:  version,
		RunID:    runID,
	}
}

func (r *Runner) publishStatus(state, message, runID, version string) {
	if r.pub == nil {
		return
	}
	status := pubsub.DatasetStatus{State: state, Message: message, RunID: runID, Version: version}
	if err := r.pub.Publish(pubsub.TopicDatasetStatus, state, status); err != nil {
		logging.Debug("failed to publish dataset status", "state", state, "error", err)
	}
}

func (r *Runner) publishReady(ds, previous *Dataset, runID string, cached bool) {
	state, message := StateReady, "Evolution graph ready"
	if ds.Fallback {
		state, message = StateFallback, "Using demonstration data"
	}
	r.publishStatus(state, message, runID, ds.Version)

	if r.pub == nil {
		return
	}
	data := pubsub.EvolutionGraphData{
		NodeCount: ds.Summary.NodeCount,
		EdgeCount: ds.Summary.EdgeCount,
		Fallback:  ds.Fallback,
		Cached:    cached,
	}
	if previous != nil {
		data.Changes = payload.ComputeDiff(previous.Payload, ds.Payload)
	}
	if err := r.pub.Publish(pubsub.TopicEvolutionGraph, state, data); err != nil {
		logging.Debug("failed to publish evolution graph", "error", err)
	}
}
