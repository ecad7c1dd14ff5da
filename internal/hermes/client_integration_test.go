//go:build integration

package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_QueuePubSub(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	ctx := context.Background()
	logger := slog.Default()

	client, err := NewClient(ctx, natsURL, os.Getenv("NATS_TOKEN"), logger)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	received := make(chan ImportRequested, 1)

	err = client.QueueSubscribe("chat.import.test.>", QueueWorkers, func(subject string, data []byte) {
		var msg ImportRequested
		json.Unmarshal(data, &msg)
		received <- msg
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	// Give subscription time to propagate
	time.Sleep(100 * time.Millisecond)

	err = client.Publish("chat.import.test.requested", ImportRequested{
		ImportID:  "integration",
		SourceApp: "telegram",
		FilePath:  "/tmp/result.json",
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg.ImportID != "integration" || msg.SourceApp != "telegram" {
			t.Errorf("unexpected message %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
