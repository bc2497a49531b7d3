package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"edgemeter/internal/metrics"
	"edgemeter/internal/models"
)

const recentEntryWindow = 10

// SyncLogReader reads the append-only sync log.
type SyncLogReader interface {
	Recent(ctx context.Context, limit int) ([]models.SyncLogEntry, error)
	RecentByOperation(ctx context.Context, operation string, limit int) ([]models.SyncLogEntry, error)
	LastByOperation(ctx context.Context, operation string) (*models.SyncLogEntry, error)
}

// QueueCounter reports the current upload queue depth.
type QueueCounter interface {
	CountUnsynchronized(ctx context.Context) (int, error)
}

// IngestProbe verifies the remote ingest API answers its health endpoint.
type IngestProbe interface {
	Health(ctx context.Context) error
}

// UploadStateReader reports whether an externally scheduled upload run
// is in flight. Optional; without it the flag reads false.
type UploadStateReader interface {
	IsRunning(ctx context.Context) (bool, error)
}

// StatusService derives point-in-time sync health snapshots from queue
// and log state. The queries composing one snapshot are not isolated
// against concurrent uploads; a brief inconsistency window is accepted.
type StatusService struct {
	log     SyncLogReader
	queue   QueueCounter
	store   RemoteStoreProbe
	ingest  IngestProbe
	state   UploadStateReader
	metrics *metrics.SyncMetrics
	logger  *zap.Logger
}

// SyncError is one failed log entry reduced for status consumers.
type SyncError struct {
	ID        int64     `json:"id"`
	BatchSize int       `json:"batch_size"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncStatus is the general sync health snapshot.
type SyncStatus struct {
	QueueSize            int                   `json:"queue_size"`
	LastSuccessAt        *time.Time            `json:"last_success_at"`
	RecentEntries        []models.SyncLogEntry `json:"recent_entries"`
	RecentErrors         []SyncError           `json:"recent_errors"`
	RemoteStoreConnected bool                  `json:"remote_db_connected"`
	CheckedAt            time.Time             `json:"checked_at"`
}

// UploadStatus is the narrower view scoped to reading uploads.
type UploadStatus struct {
	QueueSize          int        `json:"queue_size"`
	LastUploadAt       *time.Time `json:"last_upload_at"`
	LastUploadSuccess  *bool      `json:"last_upload_success"`
	LastUploadError    string     `json:"last_upload_error,omitempty"`
	IsUploading        bool       `json:"is_uploading"`
	RemoteAPIConnected bool       `json:"remote_api_connected"`
	CheckedAt          time.Time  `json:"checked_at"`
}

// NewStatusService builds service. State store and metrics may be nil.
func NewStatusService(
	log SyncLogReader,
	queue QueueCounter,
	store RemoteStoreProbe,
	ingest IngestProbe,
	state UploadStateReader,
	m *metrics.SyncMetrics,
	logger *zap.Logger,
) *StatusService {
	return &StatusService{
		log:     log,
		queue:   queue,
		store:   store,
		ingest:  ingest,
		state:   state,
		metrics: m,
		logger:  logger,
	}
}

// Status returns the general snapshot: queue depth, the ten most recent
// log entries, the derived last-success timestamp, the failed subset of
// those entries, and a live remote store probe.
func (s *StatusService) Status(ctx context.Context) (*SyncStatus, error) {
	queueSize, err := s.queueSize(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.log.Recent(ctx, recentEntryWindow)
	if err != nil {
		return nil, fmt.Errorf("status: read sync log: %w", err)
	}

	status := &SyncStatus{
		QueueSize:            queueSize,
		RecentEntries:        entries,
		RecentErrors:         []SyncError{},
		RemoteStoreConnected: s.store.HealthRemote(ctx) == nil,
		CheckedAt:            time.Now().UTC(),
	}

	for _, entry := range entries {
		if entry.Success {
			if status.LastSuccessAt == nil {
				completedAt := entry.CompletedAt
				status.LastSuccessAt = &completedAt
			}
			continue
		}
		if len(status.RecentErrors) >= recentEntryWindow {
			continue
		}
		message := entry.ErrorMessage
		if message == "" {
			message = "Unknown error"
		}
		status.RecentErrors = append(status.RecentErrors, SyncError{
			ID:        entry.ID,
			BatchSize: entry.BatchSize,
			Message:   message,
			Timestamp: entry.CompletedAt,
		})
	}

	return status, nil
}

// UploadStatus returns the upload-scoped snapshot. The is-uploading
// flag comes from the shared state store when one is configured; this
// subsystem never runs uploads autonomously.
func (s *StatusService) UploadStatus(ctx context.Context) (*UploadStatus, error) {
	queueSize, err := s.queueSize(ctx)
	if err != nil {
		return nil, err
	}

	status := &UploadStatus{
		QueueSize:          queueSize,
		RemoteAPIConnected: s.ingest.Health(ctx) == nil,
		CheckedAt:          time.Now().UTC(),
	}

	last, err := s.log.LastByOperation(ctx, models.OperationUpload)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("status: read upload log: %w", err)
	}
	if last != nil {
		completedAt := last.CompletedAt
		success := last.Success
		status.LastUploadAt = &completedAt
		status.LastUploadSuccess = &success
		status.LastUploadError = last.ErrorMessage
	}

	if s.state != nil {
		running, err := s.state.IsRunning(ctx)
		if err != nil {
			s.logger.Warn("failed to read upload run state", zap.Error(err))
		} else {
			status.IsUploading = running
		}
	}

	return status, nil
}

// UploadLog returns recent upload log entries, most recent first.
func (s *StatusService) UploadLog(ctx context.Context, limit int) ([]models.SyncLogEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = recentEntryWindow
	}
	entries, err := s.log.RecentByOperation(ctx, models.OperationUpload, limit)
	if err != nil {
		return nil, fmt.Errorf("status: read upload log: %w", err)
	}
	return entries, nil
}

func (s *StatusService) queueSize(ctx context.Context) (int, error) {
	queueSize, err := s.queue.CountUnsynchronized(ctx)
	if err != nil {
		return 0, fmt.Errorf("status: count queue: %w", err)
	}
	if s.metrics != nil {
		s.metrics.QueueDepth.Set(float64(queueSize))
	}
	return queueSize, nil
}
