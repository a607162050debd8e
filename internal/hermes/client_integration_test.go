//go:build integration

package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/MikeSquared-Agency/civixity/internal/model"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_PublishTurnRecorded(t *testing.T) {
	natsURL := skipWithoutNATS(t)

	client, err := NewClient(context.Background(), natsURL, os.Getenv("NATS_TOKEN"), slog.Default())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	opts := []nats.Option{}
	if token := os.Getenv("NATS_TOKEN"); token != "" {
		opts = append(opts, nats.Token(token))
	}
	sub, err := nats.Connect(natsURL, opts...)
	if err != nil {
		t.Fatalf("subscriber connect: %v", err)
	}
	defer sub.Close()

	received := make(chan *nats.Msg, 1)
	if _, err := sub.ChanSubscribe(SubjectTurnRecorded, received); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	id := uuid.New()
	event := NewTurnRecorded(id, model.ConversationTurn{
		UserID:    "integration-user",
		Message:   "hello",
		Response:  "hi there",
		Timestamp: time.Now(),
	})
	if err := client.Publish(SubjectTurnRecorded, event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-received:
		var got TurnRecorded
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if got.TurnID != id.String() || got.UserID != "integration-user" {
			t.Errorf("unexpected event %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for turn event")
	}

	if !client.Connected() {
		t.Error("expected client to report connected")
	}
}
