package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// NewHealthHandler returns GET /health handler, liveness only.
func NewHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	}
}

// StoreProbe checks one database pool with a round-trip query.
type StoreProbe func(ctx context.Context) error

// NewStoreHealthHandler returns a handler probing one store: 200 when
// the round trip succeeds, 503 with the failure detail otherwise.
func NewStoreHealthHandler(probe StoreProbe, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := probe(r.Context()); err != nil {
			logger.Warn("store health probe failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	}
}
