package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatermillPublisher_GoChannelRoundTrip(t *testing.T) {
	logger := testLogger()
	pubsub := NewGoChannel(logger)
	defer pubsub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubsub.Subscribe(ctx, "test.events")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	publisher := NewWatermillPublisher(pubsub, "test.events", logger)
	event := NewEvent(LoginApproved, WorkflowData{Username: "alice", RequestID: 7, AuthProvider: "apple"})
	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if msg.UUID != event.ID {
			t.Errorf("message uuid = %s, want %s", msg.UUID, event.ID)
		}
		if got := msg.Metadata.Get("type"); got != LoginApproved {
			t.Errorf("metadata type = %s", got)
		}
		decoded, err := Decode(msg)
		if err != nil {
			t.Fatal(err)
		}
		if decoded.Type != LoginApproved || decoded.Source != EventSource || decoded.Version != EventVersion {
			t.Errorf("unexpected envelope %+v", decoded)
		}
		data, ok := decoded.Data.(map[string]interface{})
		if !ok || data["username"] != "alice" {
			t.Errorf("unexpected data %#v", decoded.Data)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestNewPublisher_DefaultsToGoChannel(t *testing.T) {
	publisher, err := NewPublisher(PublisherConfig{}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer publisher.Close()

	if publisher.Topic() != DefaultTopic {
		t.Errorf("topic = %s, want %s", publisher.Topic(), DefaultTopic)
	}
	// No subscriber: publishing must still succeed
	if err := publisher.Publish(context.Background(), NewEvent(AccessGranted, WorkflowData{Username: "bob"})); err != nil {
		t.Errorf("publish without subscribers: %v", err)
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	_ = mock.Publish(ctx, NewEvent(LoginSubmitted, nil))
	_ = mock.Publish(ctx, NewEvent(CodeSubmitted, nil))

	types := mock.Types()
	if len(types) != 2 || types[0] != LoginSubmitted || types[1] != CodeSubmitted {
		t.Errorf("unexpected types %v", types)
	}

	mock.ClearEvents()
	if len(mock.GetPublishedEvents()) != 0 {
		t.Error("events should be cleared")
	}

	boom := errors.New("broker down")
	mock.FailWith(boom)
	if err := mock.Publish(ctx, NewEvent(LoginSubmitted, nil)); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}
}
