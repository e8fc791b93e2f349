package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of catalog event
type EventType string

const (
	EventImport EventType = "import"
	EventMove   EventType = "move"
	EventRetag  EventType = "retag"
	EventDelete EventType = "delete"
	EventPrune  EventType = "prune"
	EventMerge  EventType = "merge"
	EventArt    EventType = "art"
	EventThumb  EventType = "thumb"
	EventZip    EventType = "zip"
	EventError  EventType = "error"
)

// Event is a single catalog mutation, written as one JSONL record.
type Event struct {
	Timestamp time.Time         `json:"ts"`
	PassID    string            `json:"pass_id"`
	Status    Status            `json:"status"`
	Event     EventType         `json:"event"`
	Path      string            `json:"path,omitempty"`
	DestPath  string            `json:"dest_path,omitempty"`
	Artist    string            `json:"artist,omitempty"`
	Album     string            `json:"album,omitempty"`
	Title     string            `json:"title,omitempty"`
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// statusPriority maps statuses to numeric priorities for level filtering
var statusPriority = map[Status]int{
	StatusDebug:   0,
	StatusInfo:    1,
	StatusSuccess: 1,
	StatusWarning: 2,
	StatusError:   3,
}

// EventLogger writes catalog events to a JSONL file. Every event carries
// the pass ID assigned when the logger was created, so one audit file can
// hold several passes and still be split apart afterwards.
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	passID   string
	minLevel Status
}

// NewEventLogger creates an event logger writing to a timestamped file
// under outputDir. Events below minLevel are dropped.
func NewEventLogger(outputDir string, minLevel Status) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(outputDir, fmt.Sprintf("events-%s.jsonl", timestamp))

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		passID:   uuid.NewString(),
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}

	if statusPriority[event.Status] < statusPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.PassID = l.passID

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogImport logs a newly cataloged song
func (l *EventLogger) LogImport(path, artist, album, title string) error {
	return l.Log(&Event{
		Status: StatusInfo,
		Event:  EventImport,
		Path:   path,
		Artist: artist,
		Album:  album,
		Title:  title,
	})
}

// LogMove logs a detected file move
func (l *EventLogger) LogMove(oldPath, newPath string) error {
	return l.Log(&Event{
		Status:   StatusInfo,
		Event:    EventMove,
		Path:     oldPath,
		DestPath: newPath,
	})
}

// LogRetag logs an in-place song update from changed tags
func (l *EventLogger) LogRetag(path string) error {
	return l.Log(&Event{
		Status: StatusInfo,
		Event:  EventRetag,
		Path:   path,
	})
}

// LogDelete logs a song removed from the catalog
func (l *EventLogger) LogDelete(path string) error {
	return l.Log(&Event{
		Status: StatusInfo,
		Event:  EventDelete,
		Path:   path,
	})
}

// LogPrune logs an orphaned artist or album deletion
func (l *EventLogger) LogPrune(kind, name string) error {
	return l.Log(&Event{
		Status: StatusDebug,
		Event:  EventPrune,
		Extra:  map[string]string{"kind": kind, "name": name},
	})
}

// LogArt logs an album art association change
func (l *EventLogger) LogArt(album, filename string) error {
	return l.Log(&Event{
		Status: StatusInfo,
		Event:  EventArt,
		Path:   filename,
		Album:  album,
	})
}

// LogError logs a per-file error
func (l *EventLogger) LogError(event EventType, path string, err error) error {
	return l.Log(&Event{
		Status: StatusError,
		Event:  event,
		Path:   path,
		Error:  err.Error(),
	})
}

// PassID returns the pass identifier stamped on every event.
func (l *EventLogger) PassID() string {
	if l == nil {
		return ""
	}
	return l.passID
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}
