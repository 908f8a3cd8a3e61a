// Package pubsub fans out dataset lifecycle events to interested clients,
// typically browsers connected over Server-Sent Events.
package pubsub

import (
	"context"
	"encoding/json"

	"github.com/ritzau/pokegraph/pkg/payload"
)

// Topics published by the refresh pipeline.
const (
	TopicDatasetStatus  = "dataset_status"
	TopicEvolutionGraph = "evolution_graph"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "dataset_status")
	Type    string          `json:"type"`    // Event type (e.g., "loading", "ready", "fallback")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Per-topic sequence number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	Topic() string

	// Events returns a channel for receiving events. It is closed when the
	// publisher shuts down.
	Events() <-chan Event

	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic.
	// Context cancellation will close the subscription.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	Close() error
}

// DatasetStatus describes where a refresh is in its life cycle.
type DatasetStatus struct {
	State   string `json:"state"`   // loading, ready, fallback, error
	Message string `json:"message"` // Human-readable status message
	RunID   string `json:"run_id"`
	Version string `json:"dataset_version,omitempty"`
}

// EvolutionGraphData announces a new graph without carrying it; clients
// fetch /api/graph when they see it. Changes is set when a previous graph
// was being served.
type EvolutionGraphData struct {
	NodeCount int           `json:"node_count"`
	EdgeCount int           `json:"edge_count"`
	Fallback  bool          `json:"fallback"`
	Cached    bool          `json:"cached"`
	Changes   *payload.Diff `json:"changes,omitempty"`
}
