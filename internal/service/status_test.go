package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"edgemeter/internal/models"
)

type fakeLogReader struct {
	entries []models.SyncLogEntry // most recent first
	err     error
}

func (f *fakeLogReader) Recent(ctx context.Context, limit int) ([]models.SyncLogEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.entries) > limit {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeLogReader) RecentByOperation(ctx context.Context, operation string, limit int) ([]models.SyncLogEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.SyncLogEntry
	for _, e := range f.entries {
		if e.Operation == operation {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLogReader) LastByOperation(ctx context.Context, operation string) (*models.SyncLogEntry, error) {
	entries, err := f.RecentByOperation(ctx, operation, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, sql.ErrNoRows
	}
	return &entries[0], nil
}

type fakeCounter struct {
	count int
	err   error
}

func (f *fakeCounter) CountUnsynchronized(ctx context.Context) (int, error) {
	return f.count, f.err
}

type fakeIngestProbe struct {
	err error
}

func (f *fakeIngestProbe) Health(ctx context.Context) error { return f.err }

type fakeStateReader struct {
	running bool
	err     error
}

func (f *fakeStateReader) IsRunning(ctx context.Context) (bool, error) {
	return f.running, f.err
}

func logEntry(id int64, operation string, success bool, message string, age time.Duration) models.SyncLogEntry {
	return models.SyncLogEntry{
		ID:           id,
		Operation:    operation,
		BatchSize:    5,
		Success:      success,
		ErrorMessage: message,
		CompletedAt:  time.Now().UTC().Add(-age),
	}
}

func TestStatusQueueSizeAndRecentErrors(t *testing.T) {
	log := &fakeLogReader{entries: []models.SyncLogEntry{
		logEntry(12, models.OperationUpload, false, "connection reset", time.Minute),
		logEntry(11, models.OperationTenantSync, true, "", 2*time.Minute),
		logEntry(10, models.OperationUpload, false, "", 3*time.Minute),
		logEntry(9, models.OperationUpload, true, "", 4*time.Minute),
	}}
	svc := NewStatusService(log, &fakeCounter{count: 4}, &fakeRemoteProbe{}, &fakeIngestProbe{}, nil, nil, zap.NewNop())

	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.QueueSize != 4 {
		t.Fatalf("queue size %d, want 4", status.QueueSize)
	}
	if !status.RemoteStoreConnected {
		t.Fatal("expected remote store connected")
	}

	if len(status.RecentErrors) != 2 {
		t.Fatalf("expected 2 recent errors, got %d", len(status.RecentErrors))
	}
	if status.RecentErrors[0].ID != 12 || status.RecentErrors[1].ID != 10 {
		t.Fatalf("recent errors must be most-recent-first, got %+v", status.RecentErrors)
	}
	if status.RecentErrors[0].Message != "connection reset" {
		t.Fatalf("unexpected message %q", status.RecentErrors[0].Message)
	}
	if status.RecentErrors[1].Message != "Unknown error" {
		t.Fatalf("empty error must default to Unknown error, got %q", status.RecentErrors[1].Message)
	}

	if status.LastSuccessAt == nil || !status.LastSuccessAt.Equal(log.entries[1].CompletedAt) {
		t.Fatalf("last success should come from entry 11, got %v", status.LastSuccessAt)
	}
}

func TestStatusRecentErrorsCapped(t *testing.T) {
	var entries []models.SyncLogEntry
	for i := 0; i < 15; i++ {
		entries = append(entries, logEntry(int64(100-i), models.OperationUpload, false, "boom", time.Duration(i)*time.Minute))
	}
	log := &fakeLogReader{entries: entries}
	svc := NewStatusService(log, &fakeCounter{}, &fakeRemoteProbe{}, &fakeIngestProbe{}, nil, nil, zap.NewNop())

	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(status.RecentEntries) > 10 {
		t.Fatalf("recent entries capped at 10, got %d", len(status.RecentEntries))
	}
	if len(status.RecentErrors) > 10 {
		t.Fatalf("recent errors capped at 10, got %d", len(status.RecentErrors))
	}
	if status.LastSuccessAt != nil {
		t.Fatal("no successful entry, last success must be nil")
	}
}

func TestStatusRemoteDisconnected(t *testing.T) {
	svc := NewStatusService(&fakeLogReader{}, &fakeCounter{}, &fakeRemoteProbe{err: errors.New("refused")}, &fakeIngestProbe{}, nil, nil, zap.NewNop())

	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.RemoteStoreConnected {
		t.Fatal("expected remote store disconnected")
	}
}

func TestUploadStatusEmptyLog(t *testing.T) {
	svc := NewStatusService(&fakeLogReader{}, &fakeCounter{count: 2}, &fakeRemoteProbe{}, &fakeIngestProbe{}, nil, nil, zap.NewNop())

	status, err := svc.UploadStatus(context.Background())
	if err != nil {
		t.Fatalf("upload status: %v", err)
	}
	if status.LastUploadAt != nil || status.LastUploadSuccess != nil {
		t.Fatalf("expected empty last-upload fields, got %+v", status)
	}
	if status.IsUploading {
		t.Fatal("without a state store the uploading flag must read false")
	}
	if status.QueueSize != 2 {
		t.Fatalf("queue size %d, want 2", status.QueueSize)
	}
}

func TestUploadStatusLastEntryAndRunState(t *testing.T) {
	log := &fakeLogReader{entries: []models.SyncLogEntry{
		logEntry(3, models.OperationTenantSync, true, "", time.Minute),
		logEntry(2, models.OperationUpload, false, "2 of 5 failed", 2*time.Minute),
		logEntry(1, models.OperationUpload, true, "", 3*time.Minute),
	}}
	state := &fakeStateReader{running: true}
	svc := NewStatusService(log, &fakeCounter{}, &fakeRemoteProbe{}, &fakeIngestProbe{}, state, nil, zap.NewNop())

	status, err := svc.UploadStatus(context.Background())
	if err != nil {
		t.Fatalf("upload status: %v", err)
	}
	if status.LastUploadAt == nil || !status.LastUploadAt.Equal(log.entries[1].CompletedAt) {
		t.Fatalf("last upload must come from the most recent upload entry, got %v", status.LastUploadAt)
	}
	if status.LastUploadSuccess == nil || *status.LastUploadSuccess {
		t.Fatal("expected last upload marked failed")
	}
	if status.LastUploadError != "2 of 5 failed" {
		t.Fatalf("unexpected error %q", status.LastUploadError)
	}
	if !status.IsUploading {
		t.Fatal("state store reports running, flag must be true")
	}
}

func TestUploadLogFiltersOperation(t *testing.T) {
	log := &fakeLogReader{entries: []models.SyncLogEntry{
		logEntry(3, models.OperationTenantSync, true, "", time.Minute),
		logEntry(2, models.OperationUpload, true, "", 2*time.Minute),
		logEntry(1, models.OperationUpload, false, "boom", 3*time.Minute),
	}}
	svc := NewStatusService(log, &fakeCounter{}, &fakeRemoteProbe{}, &fakeIngestProbe{}, nil, nil, zap.NewNop())

	entries, err := svc.UploadLog(context.Background(), 10)
	if err != nil {
		t.Fatalf("upload log: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 upload entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Operation != models.OperationUpload {
			t.Fatalf("unexpected operation %q", e.Operation)
		}
	}
}
