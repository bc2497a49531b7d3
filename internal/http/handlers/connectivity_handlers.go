package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"edgemeter/internal/health"
)

// SnapshotProvider exposes the monitor's current connectivity view.
type SnapshotProvider interface {
	Snapshot() health.Snapshot
}

// NewConnectivityHandler returns GET /api/health/connectivity handler.
// UI layers read this before offering sync actions.
func NewConnectivityHandler(monitor SnapshotProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, monitor.Snapshot())
	}
}

// ConnectivityFeed pushes monitor snapshots over a websocket, replacing
// the tighter UI polling loop with a push every interval.
type ConnectivityFeed struct {
	monitor  SnapshotProvider
	interval time.Duration
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewConnectivityFeed builds feed. Zero interval defaults to 30s.
func NewConnectivityFeed(monitor SnapshotProvider, interval time.Duration, logger *zap.Logger) *ConnectivityFeed {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ConnectivityFeed{
		monitor:  monitor,
		interval: interval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Loopback-only listener; the browser origin check does
				// not apply here.
				return true
			},
		},
	}
}

// ServeHTTP upgrades the connection and streams snapshots until the
// client goes away.
func (f *ConnectivityFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain control frames so pongs and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(f.monitor.Snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(f.monitor.Snapshot()); err != nil {
				return
			}
		}
	}
}
