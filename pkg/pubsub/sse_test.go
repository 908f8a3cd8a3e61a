package pubsub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestEventBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	// Configure topic with buffer size 3, replay all
	pub.ConfigureTopic(TopicDatasetStatus, TopicConfig{
		BufferSize: 3,
		ReplayAll:  true,
	})

	// Publish 5 events
	for i := 1; i <= 5; i++ {
		err := pub.Publish(TopicDatasetStatus, "loading", DatasetStatus{State: "loading", RunID: fmt.Sprint(i)})
		if err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	// Subscribe and verify we get last 3 events
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicDatasetStatus)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Should receive last 3 events (3, 4, 5)
	receivedCount := 0
	for receivedCount < 3 {
		select {
		case event := <-sub.Events():
			receivedCount++
			t.Logf("Received replayed event version %d", event.Version)
			// Events should be 3, 4, 5 (last 3 of 5)
			expectedVersion := receivedCount + 2
			if event.Version != expectedVersion {
				t.Errorf("Expected version %d, got %d", expectedVersion, event.Version)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for event %d", receivedCount+1)
		}
	}

	if receivedCount != 3 {
		t.Errorf("Expected 3 replayed events, got %d", receivedCount)
	}
}

func TestReplayLastOnly(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	// Configure topic with buffer size 5, replay only last
	pub.ConfigureTopic(TopicDatasetStatus, TopicConfig{
		BufferSize: 5,
		ReplayAll:  false,
	})

	// Publish 3 events
	for i := 1; i <= 3; i++ {
		err := pub.Publish(TopicDatasetStatus, "loading", DatasetStatus{State: "loading", RunID: fmt.Sprint(i)})
		if err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	// Subscribe and verify we get only last event
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicDatasetStatus)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Should receive only last event (version 3)
	select {
	case event := <-sub.Events():
		if event.Version != 3 {
			t.Errorf("Expected version 3, got %d", event.Version)
		}
		t.Logf("Received last event version %d", event.Version)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}

	// Verify no more events are sent
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected extra event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
		// Good, no extra events
	}
}

func TestNoBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	// Configure topic with no buffer
	pub.ConfigureTopic(TopicDatasetStatus, TopicConfig{
		BufferSize: 0,
		ReplayAll:  false,
	})

	// Publish events before subscribing
	for i := 1; i <= 3; i++ {
		err := pub.Publish(TopicDatasetStatus, "loading", DatasetStatus{State: "loading", RunID: fmt.Sprint(i)})
		if err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	// Subscribe - should not receive any replayed events
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicDatasetStatus)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Verify no events are received (because none were buffered)
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected replayed event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
		// Good, no events replayed
		t.Log("Correctly received no events (buffer disabled)")
	}

	// Now publish a new event - subscriber should receive it
	err = pub.Publish(TopicDatasetStatus, "ready", DatasetStatus{State: "ready", RunID: "4"})
	if err != nil {
		t.Fatalf("Failed to publish new event: %v", err)
	}

	select {
	case event := <-sub.Events():
		if event.Version != 4 {
			t.Errorf("Expected version 4, got %d", event.Version)
		}
		t.Logf("Received new event version %d", event.Version)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for new event")
	}
}

func TestSubscriptionClosedOnContextCancel(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := pub.Subscribe(ctx, TopicEvolutionGraph); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	if n := pub.SubscriberCount(TopicEvolutionGraph); n != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", n)
	}

	cancel()

	deadline := time.Now().Add(time.Second)
	for pub.SubscriberCount(TopicEvolutionGraph) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not removed after context cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishAfterClose(t *testing.T) {
	pub := NewSSEPublisher()

	sub, err := pub.Subscribe(context.Background(), TopicEvolutionGraph)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, ok := <-sub.Events(); ok {
		t.Error("Expected events channel to be closed")
	}
	if err := pub.Publish(TopicEvolutionGraph, "ready", EvolutionGraphData{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() error = %v, want ErrClosed", err)
	}
	if _, err := pub.Subscribe(context.Background(), TopicEvolutionGraph); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe() error = %v, want ErrClosed", err)
	}
}

func TestWriteSSE(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	sub, err := pub.Subscribe(context.Background(), TopicEvolutionGraph)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	if err := pub.Publish(TopicEvolutionGraph, "ready", EvolutionGraphData{NodeCount: 6, EdgeCount: 4}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteSSE(&buf, <-sub.Events()); err != nil {
		t.Fatalf("WriteSSE() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "id: 1\ndata: {") || !strings.HasSuffix(out, "}\n\n") {
		t.Errorf("unexpected SSE frame %q", out)
	}
	if !strings.Contains(out, `"node_count":6`) {
		t.Errorf("SSE frame missing payload: %q", out)
	}
}
