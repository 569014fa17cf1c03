// Package audit turns execution traces and arbitration results into flat,
// append-only audit records and ships them to sinks: a JSON-lines stream,
// an in-memory journal for evidence export, and object-storage archives.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes an audit event.
type EventType string

const (
	// EventExecution records one DAG run.
	EventExecution EventType = "EXECUTION"
	// EventArbitration records one arbitration outcome.
	EventArbitration EventType = "ARBITRATION"
)

// Event is one audit record. Record holds only primitives and primitive
// lists so any sink can ingest it without schema knowledge.
type Event struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Record    map[string]any `json:"record"`
}

// Logger records audit events.
type Logger interface {
	Record(ctx context.Context, event Event) error
}

// logger writes one JSON object per line to an injectable writer.
type logger struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewLogger creates a Logger writing to os.Stdout.
func NewLogger() Logger {
	return NewLoggerWithWriter(os.Stdout)
}

// NewLoggerWithWriter creates a Logger writing to the given writer. Pass
// a buffer in tests or a file handle for a durable local sink.
func NewLoggerWithWriter(w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	return &logger{writer: w}
}

func (l *logger) Record(ctx context.Context, event Event) error {
	stamp(&event)
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.writer.Write(append(raw, '\n'))
	return err
}

func stamp(event *Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
}
