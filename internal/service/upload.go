package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"edgemeter/internal/metrics"
	"edgemeter/internal/models"
)

// ReadingQueue claims and settles queued readings.
type ReadingQueue interface {
	ClaimBatch(ctx context.Context, tenantID int64, limit, maxRetries int) ([]models.MeterReading, error)
	MarkDelivered(ctx context.Context, readingID int64) error
	MarkFailed(ctx context.Context, readingID int64) error
}

// ReadingDeliverer pushes one reading to the remote ingest API.
type ReadingDeliverer interface {
	DeliverReading(ctx context.Context, reading models.MeterReading) error
}

// UploadStateStore shares run state with other collector processes:
// Acquire takes the run flag only when no other holder has it, so at
// most one cycle runs across the deployment, and the status API agrees
// with external schedulers on whether a cycle is in flight. Optional.
type UploadStateStore interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// UploadService runs one upload cycle at a time per tenant: claim the
// oldest unsynchronized readings, deliver each to the ingest API and
// settle per-reading outcome, then append a single log entry for the
// whole batch.
type UploadService struct {
	queue      ReadingQueue
	deliverer  ReadingDeliverer
	log        SyncLogAppender
	state      UploadStateStore
	batchSize  int
	maxRetries int
	metrics    *metrics.SyncMetrics
	logger     *zap.Logger

	mu       sync.Mutex
	inFlight map[int64]bool
}

// UploadResult summarizes one completed cycle.
type UploadResult struct {
	Attempted   int       `json:"attempted"`
	Delivered   int       `json:"delivered"`
	Failed      int       `json:"failed"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewUploadService builds service. State store and metrics may be nil.
func NewUploadService(
	queue ReadingQueue,
	deliverer ReadingDeliverer,
	log SyncLogAppender,
	state UploadStateStore,
	batchSize, maxRetries int,
	m *metrics.SyncMetrics,
	logger *zap.Logger,
) *UploadService {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &UploadService{
		queue:      queue,
		deliverer:  deliverer,
		log:        log,
		state:      state,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		metrics:    m,
		logger:     logger,
		inFlight:   make(map[int64]bool),
	}
}

// RunCycle executes one upload cycle for the tenant. A second call
// while one is running returns ErrUploadInFlight immediately; when the
// shared state store is configured, a run in another process is
// rejected the same way. The cycle itself runs to completion once
// started; per-reading failures do not abort the rest of the batch.
func (s *UploadService) RunCycle(ctx context.Context, tenantID int64) (*UploadResult, error) {
	// Once started, the cycle runs to completion: a canceled trigger
	// must not strand claimed readings without their retry accounting
	// or the batch's log entry.
	ctx = context.WithoutCancel(ctx)

	if !s.begin(tenantID) {
		return nil, ErrUploadInFlight
	}
	defer s.end(tenantID)

	if s.state != nil {
		acquired, err := s.state.Acquire(ctx)
		switch {
		case err != nil:
			s.logger.Warn("upload state store unavailable, relying on in-process guard", zap.Error(err))
		case !acquired:
			return nil, ErrUploadInFlight
		default:
			defer func() {
				if err := s.state.Release(ctx); err != nil {
					s.logger.Warn("failed to release upload run state", zap.Error(err))
				}
			}()
		}
	}

	batch, err := s.queue.ClaimBatch(ctx, tenantID, s.batchSize, s.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("upload: claim batch: %w", err)
	}
	if len(batch) == 0 {
		return &UploadResult{CompletedAt: time.Now().UTC()}, nil
	}

	var (
		delivered int
		failures  []string
	)
	for _, reading := range batch {
		if err := s.deliverReading(ctx, reading); err != nil {
			failures = append(failures, fmt.Sprintf("reading %d: %v", reading.ID, err))
			continue
		}
		delivered++
	}

	entry := &models.SyncLogEntry{
		Operation:    models.OperationUpload,
		BatchSize:    len(batch),
		Success:      len(failures) == 0,
		ErrorMessage: strings.Join(failures, "; "),
	}
	if err := s.log.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append upload log entry", zap.Error(err))
		return nil, fmt.Errorf("upload: append log: %w", err)
	}

	s.observe(len(batch), delivered, len(failures))
	s.logger.Info("upload cycle finished",
		zap.Int64("tenant_id", tenantID),
		zap.Int("attempted", len(batch)),
		zap.Int("delivered", delivered),
		zap.Int("failed", len(failures)),
	)

	return &UploadResult{
		Attempted:   len(batch),
		Delivered:   delivered,
		Failed:      len(failures),
		CompletedAt: entry.CompletedAt,
	}, nil
}

func (s *UploadService) deliverReading(ctx context.Context, reading models.MeterReading) error {
	if err := s.deliverer.DeliverReading(ctx, reading); err != nil {
		if markErr := s.queue.MarkFailed(ctx, reading.ID); markErr != nil {
			s.logger.Error("failed to record delivery failure",
				zap.Int64("reading_id", reading.ID), zap.Error(markErr))
		}
		return err
	}

	// A failed settle leaves the reading unsynchronized, so it will be
	// redelivered; the ingest API deduplicates on reading id.
	if err := s.queue.MarkDelivered(ctx, reading.ID); err != nil {
		s.logger.Error("failed to record delivery",
			zap.Int64("reading_id", reading.ID), zap.Error(err))
		return fmt.Errorf("settle delivery: %w", err)
	}
	return nil
}

func (s *UploadService) begin(tenantID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[tenantID] {
		return false
	}
	s.inFlight[tenantID] = true
	return true
}

func (s *UploadService) end(tenantID int64) {
	s.mu.Lock()
	delete(s.inFlight, tenantID)
	s.mu.Unlock()
}

func (s *UploadService) observe(attempted, delivered, failed int) {
	if s.metrics == nil {
		return
	}
	result := "success"
	switch {
	case failed == attempted:
		result = "error"
	case failed > 0:
		result = "partial"
	}
	s.metrics.UploadCyclesTotal.WithLabelValues(result).Inc()
	s.metrics.ReadingsDeliveredTotal.Add(float64(delivered))
	s.metrics.ReadingsFailedTotal.Add(float64(failed))
}
