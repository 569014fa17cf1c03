package audit

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Mindburn-Labs/plang/pkg/canonicalize"
)

var (
	// ErrEmptyTenantID is returned when the tenant id is empty.
	ErrEmptyTenantID = errors.New("audit: tenant_id must not be empty")
	// ErrInvalidTimeRange is returned when start time is after end time.
	ErrInvalidTimeRange = errors.New("audit: start_time must be before end_time")
	// ErrJournalNotConfigured is returned when export runs without a journal.
	ErrJournalNotConfigured = errors.New("audit: journal not configured (fail-closed)")
)

// ExportRequest defines which slice of the journal to export.
type ExportRequest struct {
	TenantID  string    `json:"tenant_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Exporter builds evidence packs: a zip of the matching audit events plus
// a manifest carrying counts and the pack checksum inputs.
type Exporter struct {
	journal *Journal
	archive ArchiveStore // optional
}

// NewExporter creates an exporter over a journal. archive may be nil; the
// pack is then only returned to the caller.
func NewExporter(journal *Journal, archive ArchiveStore) *Exporter {
	return &Exporter{journal: journal, archive: archive}
}

// GeneratePack builds the zip and returns its bytes and SHA-256 checksum.
// When an archive store is configured the pack is also uploaded under
// <tenant>/<checksum>.zip.
func (e *Exporter) GeneratePack(ctx context.Context, req ExportRequest) ([]byte, string, error) {
	if req.TenantID == "" {
		return nil, "", ErrEmptyTenantID
	}
	if !req.StartTime.IsZero() && !req.EndTime.IsZero() && req.StartTime.After(req.EndTime) {
		return nil, "", ErrInvalidTimeRange
	}
	if e.journal == nil {
		return nil, "", ErrJournalNotConfigured
	}

	events := e.journal.Query(QueryFilter{
		TenantID:  req.TenantID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	eventsJSON, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return nil, "", err
	}

	manifest := map[string]any{
		"tenant_id":       req.TenantID,
		"generated_at":    time.Now().UTC(),
		"event_count":     len(events),
		"events_checksum": canonicalize.HashBytes(eventsJSON),
		"period": map[string]any{
			"start": req.StartTime,
			"end":   req.EndTime,
		},
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("audit: marshal manifest: %w", err)
	}

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, entry := range []struct {
		name string
		data []byte
	}{
		{"events.json", eventsJSON},
		{"manifest.json", manifestJSON},
		{"README.txt", fmt.Appendf(nil, "Evidence pack for tenant %s\nEvents: %d\n", req.TenantID, len(events))},
	} {
		f, err := w.Create(entry.name)
		if err != nil {
			return nil, "", err
		}
		if _, err := f.Write(entry.data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	pack := buf.Bytes()
	checksum := canonicalize.HashBytes(pack)

	if e.archive != nil {
		key := fmt.Sprintf("%s/%s.zip", req.TenantID, checksum)
		if _, err := e.archive.Put(ctx, key, pack); err != nil {
			return nil, "", fmt.Errorf("audit: archive evidence pack: %w", err)
		}
	}
	return pack, checksum, nil
}
