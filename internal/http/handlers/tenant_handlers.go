package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"edgemeter/internal/models"
	"edgemeter/internal/service"
)

// TenantGetter reads the mirrored tenant row.
type TenantGetter interface {
	Get(ctx context.Context) (*models.Tenant, error)
}

// NewLocalTenantHandler returns GET /api/local/tenant handler.
func NewLocalTenantHandler(tenants TenantGetter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := tenants.Get(r.Context())
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, http.StatusNotFound, "no tenant synced yet")
				return
			}
			logger.Error("failed to read local tenant", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read tenant")
			return
		}
		writeJSON(w, http.StatusOK, tenant)
	}
}

// TenantSyncer reconciles one tenant from the remote store.
type TenantSyncer interface {
	SyncTenant(ctx context.Context, tenantID int64) (*service.TenantSyncResult, error)
}

type tenantSyncRequest struct {
	TenantID int64 `json:"tenant_id"`
}

type syncResultDTO struct {
	Inserted  int       `json:"inserted,omitempty"`
	Updated   int       `json:"updated,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTenantSyncHandler returns POST /api/local/tenant-sync handler.
// Safe to call repeatedly; the underlying upsert is idempotent.
func NewTenantSyncHandler(syncer TenantSyncer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tenantSyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if req.TenantID <= 0 {
			writeError(w, http.StatusBadRequest, "tenant_id is required")
			return
		}

		result, err := syncer.SyncTenant(r.Context(), req.TenantID)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrTenantNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, service.ErrRemoteUnavailable):
				writeError(w, http.StatusServiceUnavailable, "remote store unavailable")
			default:
				logger.Error("tenant sync failed", zap.Int64("tenant_id", req.TenantID), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "tenant sync failed")
			}
			return
		}

		dto := syncResultDTO{Timestamp: result.CompletedAt}
		if result.Inserted {
			dto.Inserted = 1
		} else {
			dto.Updated = 1
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"sync_result": dto,
			"tenant_data": result.Tenant,
		})
	}
}
