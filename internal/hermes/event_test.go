package hermes

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/totalrecall/internal/driver"
)

var _ driver.Notifier = (*Client)(nil)

func TestProcessedEventPayload(t *testing.T) {
	evt := driver.ProcessedEvent{
		ID:                 "6b1f0e4c-0000-0000-0000-000000000000",
		Source:             "/data/export.json",
		Output:             "/data/out/export_chunked_topic.json",
		Strategy:           "topic",
		MaxTokens:          1500,
		TotalChunks:        4,
		TotalConversations: 9,
		Timestamp:          time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("failed to parse payload: %v", err)
	}

	if payload["id"] != evt.ID {
		t.Errorf("expected id %q, got %v", evt.ID, payload["id"])
	}
	if payload["strategy"] != "topic" {
		t.Errorf("expected strategy 'topic', got %v", payload["strategy"])
	}
	if payload["total_chunks"] != float64(4) {
		t.Errorf("expected total_chunks 4, got %v", payload["total_chunks"])
	}
	if payload["timestamp"] != "2026-02-11T10:00:00Z" {
		t.Errorf("expected RFC3339 timestamp, got %v", payload["timestamp"])
	}
}

func TestProcessedEventOmitsEmptyOutput(t *testing.T) {
	data, err := json.Marshal(driver.ProcessedEvent{ID: "x", Source: "request:x", Strategy: "size"})
	if err != nil {
		t.Fatal(err)
	}
	var payload map[string]any
	_ = json.Unmarshal(data, &payload)
	if _, ok := payload["output"]; ok {
		t.Errorf("expected no output field for in-memory runs, got %s", data)
	}
}

func TestSubjectConstants(t *testing.T) {
	if SubjectProcessed != "totalrecall.chunks.processed" {
		t.Errorf("unexpected SubjectProcessed %q", SubjectProcessed)
	}
	if SubjectRegistered != "totalrecall.agent.registered" {
		t.Errorf("unexpected SubjectRegistered %q", SubjectRegistered)
	}
}
