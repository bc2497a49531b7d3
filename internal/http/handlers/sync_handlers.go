package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"edgemeter/internal/models"
	"edgemeter/internal/service"
)

// StatusReader answers sync health queries.
type StatusReader interface {
	Status(ctx context.Context) (*service.SyncStatus, error)
	UploadStatus(ctx context.Context) (*service.UploadStatus, error)
	UploadLog(ctx context.Context, limit int) ([]models.SyncLogEntry, error)
}

// NewSyncStatusHandler returns GET /api/local/sync-status handler.
func NewSyncStatusHandler(status StatusReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := status.Status(r.Context())
		if err != nil {
			logger.Error("failed to build sync status", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to build sync status")
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}

// NewUploadStatusHandler returns GET /api/sync/meter-reading-upload/status handler.
func NewUploadStatusHandler(status StatusReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := status.UploadStatus(r.Context())
		if err != nil {
			logger.Error("failed to build upload status", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to build upload status")
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}

// NewUploadLogHandler returns GET /api/sync/meter-reading-upload/log handler.
func NewUploadLogHandler(status StatusReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = parsed
		}

		entries, err := status.UploadLog(r.Context(), limit)
		if err != nil {
			logger.Error("failed to read upload log", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read upload log")
			return
		}
		if entries == nil {
			entries = []models.SyncLogEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
	}
}

// UploadRunner executes one upload cycle for a tenant.
type UploadRunner interface {
	RunCycle(ctx context.Context, tenantID int64) (*service.UploadResult, error)
}

// UploadGate reports whether the remote system is reachable enough to
// bother starting a cycle.
type UploadGate interface {
	RemoteSystemConnected() bool
}

type uploadRunRequest struct {
	TenantID int64 `json:"tenant_id"`
}

// NewUploadRunHandler returns POST /api/sync/meter-reading-upload/run
// handler: 409 when a cycle is already in flight, 503 when the monitor
// reports the remote system disconnected.
func NewUploadRunHandler(runner UploadRunner, gate UploadGate, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req uploadRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if req.TenantID <= 0 {
			writeError(w, http.StatusBadRequest, "tenant_id is required")
			return
		}

		if gate != nil && !gate.RemoteSystemConnected() {
			writeError(w, http.StatusServiceUnavailable, "remote system unavailable")
			return
		}

		result, err := runner.RunCycle(r.Context(), req.TenantID)
		if err != nil {
			if errors.Is(err, service.ErrUploadInFlight) {
				writeError(w, http.StatusConflict, "upload already in flight")
				return
			}
			logger.Error("upload cycle failed", zap.Int64("tenant_id", req.TenantID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "upload cycle failed")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": result.Failed == 0,
			"result":  result,
		})
	}
}
