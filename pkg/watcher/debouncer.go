package watcher

import (
	"context"
	"time"

	"github.com/ritzau/pokegraph/pkg/logging"
)

// Debouncer batches rapid file system events to avoid excessive refreshes.
// A batch is flushed once no event has arrived for the quiet period, or once
// maxWait has passed since the first event of the batch, whichever is first.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
	done        chan struct{}
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	if maxWait < quietPeriod {
		maxWait = quietPeriod
	}
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
		done:        make(chan struct{}),
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.done)
	defer close(d.output)

	var (
		quiet       = stoppedTimer()
		deadline    = stoppedTimer()
		accumulated = make(map[ChangeType][]string)
		eventCount  int
	)

	flush := func() {
		quiet.Stop()
		deadline.Stop()
		if eventCount == 0 {
			return
		}

		logging.Debug("flushing accumulated events", "count", eventCount)

		// Database changes first; a journal change is subsumed by them.
		for _, t := range []ChangeType{ChangeTypeDatabase, ChangeTypeJournal} {
			if paths := accumulated[t]; len(paths) > 0 {
				d.emit(ctx, ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()})
			}
		}

		clear(accumulated)
		eventCount = 0
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			accumulated[event.Type] = append(accumulated[event.Type], event.Paths...)
			if eventCount == 0 {
				deadline.Reset(d.maxWait)
			}
			eventCount++
			quiet.Reset(d.quietPeriod)

		case <-quiet.C:
			flush()

		case <-deadline.C:
			flush()
		}
	}
}

// emit delivers event unless the consumer is gone: once ctx is canceled a
// full output buffer drops the event instead of blocking.
func (d *Debouncer) emit(ctx context.Context, event ChangeEvent) {
	select {
	case d.output <- event:
		return
	default:
	}

	select {
	case d.output <- event:
	case <-ctx.Done():
		logging.Debug("dropping debounced event, consumer gone", "type", event.Type.String())
	}
}

// Done is closed when the debouncer has stopped and closed its output.
func (d *Debouncer) Done() <-chan struct{} {
	return d.done
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}

func stoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}
