package audit

import (
	"context"
	"sync"
	"time"
)

// Journal is an in-memory, append-only event log. It implements Logger
// and backs evidence-pack export; long-term retention belongs to an
// ArchiveStore.
type Journal struct {
	mu     sync.RWMutex
	events []Event
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) Record(ctx context.Context, event Event) error {
	stamp(&event)
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
	return nil
}

// QueryFilter narrows a journal query. Zero fields match everything.
type QueryFilter struct {
	TenantID  string
	Type      EventType
	StartTime time.Time
	EndTime   time.Time
}

// Query returns matching events in record order.
func (j *Journal) Query(filter QueryFilter) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []Event
	for _, e := range j.events {
		if filter.TenantID != "" && e.TenantID != filter.TenantID {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if !filter.StartTime.IsZero() && e.Timestamp.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && e.Timestamp.After(filter.EndTime) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len returns the number of recorded events.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.events)
}

// Tee returns a Logger that records to every given logger, failing on the
// first error.
func Tee(loggers ...Logger) Logger {
	return teeLogger(loggers)
}

type teeLogger []Logger

func (t teeLogger) Record(ctx context.Context, event Event) error {
	stamp(&event)
	for _, l := range t {
		if err := l.Record(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
