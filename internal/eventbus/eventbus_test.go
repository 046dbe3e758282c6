package eventbus

import (
	"context"
	"testing"
	"time"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	eb := NewEventBus(4)
	defer eb.Close()

	ch := eb.Subscribe(TopicMonitorUnavailable)

	payload := MonitorUnavailableEvent{HostAlias: "reader1", Failures: 3}
	if err := eb.Publish(context.Background(), TopicMonitorUnavailable, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case event := <-ch:
		if event.Topic != TopicMonitorUnavailable {
			t.Errorf("expected topic %q, got %q", TopicMonitorUnavailable, event.Topic)
		}
		if got, ok := event.Payload.(MonitorUnavailableEvent); !ok || got != payload {
			t.Errorf("expected payload %+v, got %+v", payload, event.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("expected the subscriber to receive the published event")
	}
}

func TestPublishToTopicWithNoSubscribersIsANoop(t *testing.T) {
	eb := NewEventBus(4)
	defer eb.Close()

	if err := eb.Publish(context.Background(), TopicFailoverStarted, FailoverStartedEvent{}); err != nil {
		t.Fatalf("unexpected error publishing to an unsubscribed topic: %v", err)
	}
}

func TestPublishDropsEventWhenSubscriberBufferIsFull(t *testing.T) {
	eb := NewEventBus(1)
	defer eb.Close()

	ch := eb.Subscribe(TopicFailoverFailed)

	// Fill the buffer, then publish a second event that must be dropped
	// rather than block.
	_ = eb.Publish(context.Background(), TopicFailoverFailed, FailoverFailedEvent{Reason: "first"})
	_ = eb.Publish(context.Background(), TopicFailoverFailed, FailoverFailedEvent{Reason: "second"})

	select {
	case event := <-ch:
		if got := event.Payload.(FailoverFailedEvent); got.Reason != "first" {
			t.Errorf("expected the first event to survive, got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("expected at least the first buffered event to be delivered")
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected the second event to have been dropped, not queued")
		}
	default:
	}
}

func TestSubscribeMultipleMultiplexesTopics(t *testing.T) {
	eb := NewEventBus(4)
	defer eb.Close()

	mux := eb.SubscribeMultiple(TopicMonitorUnavailable, TopicMonitorRecovered)

	_ = eb.Publish(context.Background(), TopicMonitorUnavailable, MonitorUnavailableEvent{HostAlias: "reader1"})
	_ = eb.Publish(context.Background(), TopicMonitorRecovered, MonitorRecoveredEvent{HostAlias: "reader1"})

	seen := map[Topic]bool{}
	for i := 0; i < 2; i++ {
		select {
		case event := <-mux:
			seen[event.Topic] = true
		case <-time.After(time.Second):
			t.Fatal("expected both topics to arrive on the multiplexed channel")
		}
	}
	if !seen[TopicMonitorUnavailable] || !seen[TopicMonitorRecovered] {
		t.Errorf("expected both subscribed topics to be seen, got %v", seen)
	}
}

func TestCloseClosesSubscriberChannels(t *testing.T) {
	eb := NewEventBus(4)
	ch := eb.Subscribe(TopicMonitorUnavailable)

	if err := eb.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected the subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("expected the subscriber channel to be closed promptly")
	}
}
