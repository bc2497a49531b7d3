package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"edgemeter/internal/models"
)

// MeterLister reads the local meter projection.
type MeterLister interface {
	ListMeters(ctx context.Context) ([]models.Meter, error)
}

// NewMetersHandler returns GET /api/local/meters handler.
func NewMetersHandler(meters MeterLister, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := meters.ListMeters(r.Context())
		if err != nil {
			logger.Error("failed to list meters", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list meters")
			return
		}
		if list == nil {
			list = []models.Meter{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"meters": list})
	}
}

// ReadingLister reads recently captured readings.
type ReadingLister interface {
	ListRecent(ctx context.Context, hours int) ([]models.MeterReading, error)
}

// NewReadingsHandler returns GET /api/local/readings?hours=N handler.
func NewReadingsHandler(readings ReadingLister, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hours := 24
		if raw := r.URL.Query().Get("hours"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				writeError(w, http.StatusBadRequest, "hours must be a positive integer")
				return
			}
			hours = parsed
		}

		list, err := readings.ListRecent(r.Context(), hours)
		if err != nil {
			logger.Error("failed to list readings", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list readings")
			return
		}
		if list == nil {
			list = []models.MeterReading{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"hours":    hours,
			"readings": list,
		})
	}
}
