package report

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"
)

func TestEventLoggerWritesJSONL(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewEventLogger(dir, StatusDebug)
	if err != nil {
		t.Fatalf("failed to create event logger: %v", err)
	}

	if logger.PassID() == "" {
		t.Error("expected a pass ID to be assigned")
	}

	if err := logger.LogImport("Artist/Album/01-song.mp3", "Artist", "Album", "Song"); err != nil {
		t.Fatalf("failed to log import: %v", err)
	}
	if err := logger.LogMove("old/path.mp3", "new/path.mp3"); err != nil {
		t.Fatalf("failed to log move: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}

	f, err := os.Open(logger.Path())
	if err != nil {
		t.Fatalf("failed to open event log: %v", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("invalid JSONL line: %v", err)
		}
		events = append(events, ev)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Event != EventImport || events[0].Artist != "Artist" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Event != EventMove || events[1].DestPath != "new/path.mp3" {
		t.Errorf("unexpected second event: %+v", events[1])
	}
	for _, ev := range events {
		if ev.PassID != logger.PassID() {
			t.Errorf("event missing pass ID: %+v", ev)
		}
	}
}

func TestEventLoggerLevelFilter(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewEventLogger(dir, StatusInfo)
	if err != nil {
		t.Fatalf("failed to create event logger: %v", err)
	}

	// Prune events are debug level and must be filtered out.
	if err := logger.LogPrune("artist", "Orphan"); err != nil {
		t.Fatalf("failed to log prune: %v", err)
	}
	if err := logger.LogDelete("gone.mp3"); err != nil {
		t.Fatalf("failed to log delete: %v", err)
	}
	logger.Close()

	data, err := os.ReadFile(logger.Path())
	if err != nil {
		t.Fatalf("failed to read event log: %v", err)
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("expected exactly one JSONL line, got %q", data)
	}
	if ev.Event != EventDelete {
		t.Errorf("expected delete event to survive the filter, got %+v", ev)
	}
}

func TestCollectorStream(t *testing.T) {
	var c Collector
	Emit(c.Stream, StatusInfo, "Created new artist %q", "Artist")
	Emit(c.Stream, StatusError, "boom")

	if len(c.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(c.Lines))
	}
	if got := c.Messages(StatusInfo); len(got) != 1 || got[0] != `Created new artist "Artist"` {
		t.Errorf("unexpected info messages: %v", got)
	}

	// A nil stream must be safe.
	Emit(nil, StatusInfo, "dropped")
}
