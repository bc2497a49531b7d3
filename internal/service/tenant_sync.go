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

// RemoteTenantReader reads the authoritative tenant record.
type RemoteTenantReader interface {
	GetByID(ctx context.Context, tenantID int64) (*models.Tenant, error)
}

// LocalTenantWriter mirrors a tenant record into the local store.
type LocalTenantWriter interface {
	Upsert(ctx context.Context, tenant *models.Tenant) (bool, error)
}

// RemoteStoreProbe verifies the remote store answers a round trip.
type RemoteStoreProbe interface {
	HealthRemote(ctx context.Context) error
}

// SyncLogAppender records one synchronization attempt.
type SyncLogAppender interface {
	Append(ctx context.Context, entry *models.SyncLogEntry) error
}

// TenantSyncService pulls one tenant record from the remote store and
// mirrors it locally with an idempotent upsert. One attempt per call,
// synchronous; retries are triggered by the caller, typically on login.
type TenantSyncService struct {
	remote  RemoteTenantReader
	local   LocalTenantWriter
	probe   RemoteStoreProbe
	log     SyncLogAppender
	metrics *metrics.SyncMetrics
	logger  *zap.Logger
}

// TenantSyncResult reports the post-upsert local record and whether the
// row was newly inserted or updated.
type TenantSyncResult struct {
	Tenant      *models.Tenant
	Inserted    bool
	CompletedAt time.Time
}

// NewTenantSyncService builds service. Metrics may be nil.
func NewTenantSyncService(
	remote RemoteTenantReader,
	local LocalTenantWriter,
	probe RemoteStoreProbe,
	log SyncLogAppender,
	m *metrics.SyncMetrics,
	logger *zap.Logger,
) *TenantSyncService {
	return &TenantSyncService{
		remote:  remote,
		local:   local,
		probe:   probe,
		log:     log,
		metrics: m,
		logger:  logger,
	}
}

// SyncTenant reconciles one tenant from the remote store into the
// local mirror. A missing remote row yields ErrTenantNotFound and is
// not logged as a failure; an unreachable remote store yields
// ErrRemoteUnavailable.
func (s *TenantSyncService) SyncTenant(ctx context.Context, tenantID int64) (*TenantSyncResult, error) {
	if err := s.probe.HealthRemote(ctx); err != nil {
		s.record(ctx, false, fmt.Sprintf("remote store unreachable: %v", err))
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}

	tenant, err := s.remote.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrTenantNotFound, tenantID)
		}
		s.record(ctx, false, fmt.Sprintf("remote read failed: %v", err))
		return nil, fmt.Errorf("tenant sync: read remote: %w", err)
	}

	inserted, err := s.local.Upsert(ctx, tenant)
	if err != nil {
		s.record(ctx, false, fmt.Sprintf("local upsert failed: %v", err))
		return nil, fmt.Errorf("tenant sync: upsert local: %w", err)
	}

	s.record(ctx, true, "")
	s.logger.Info("tenant reconciled",
		zap.Int64("tenant_id", tenant.ID),
		zap.Bool("inserted", inserted),
	)

	return &TenantSyncResult{
		Tenant:      tenant,
		Inserted:    inserted,
		CompletedAt: tenant.SyncedAt,
	}, nil
}

func (s *TenantSyncService) record(ctx context.Context, success bool, message string) {
	entry := &models.SyncLogEntry{
		Operation:    models.OperationTenantSync,
		BatchSize:    1,
		Success:      success,
		ErrorMessage: message,
	}
	if err := s.log.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append tenant sync log entry", zap.Error(err))
	}
	if s.metrics != nil {
		result := "success"
		if !success {
			result = "error"
		}
		s.metrics.TenantSyncsTotal.WithLabelValues(result).Inc()
	}
}
