package httpserver

import "net/http"

// Routes defines HTTP endpoints.
type Routes struct {
	Health            http.Handler
	LocalStoreHealth  http.Handler
	RemoteStoreHealth http.Handler
	Connectivity      http.Handler
	ConnectivityFeed  http.Handler
	LocalTenant       http.Handler
	TenantSync        http.Handler
	Meters            http.Handler
	Readings          http.Handler
	SyncStatus        http.Handler
	UploadStatus      http.Handler
	UploadLog         http.Handler
	UploadRun         http.Handler
	Metrics           http.Handler
}

// NewRouter sets up HTTP routing.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern, expected string, handler http.Handler) {
		if handler != nil {
			mux.Handle(pattern, method(expected, handler.ServeHTTP))
		}
	}

	handle("/health", http.MethodGet, routes.Health)
	handle("/api/health/sync-db", http.MethodGet, routes.LocalStoreHealth)
	handle("/api/health/remote-db", http.MethodGet, routes.RemoteStoreHealth)
	handle("/api/health/connectivity", http.MethodGet, routes.Connectivity)
	handle("/api/health/connectivity/ws", http.MethodGet, routes.ConnectivityFeed)
	handle("/api/local/tenant", http.MethodGet, routes.LocalTenant)
	handle("/api/local/tenant-sync", http.MethodPost, routes.TenantSync)
	handle("/api/local/meters", http.MethodGet, routes.Meters)
	handle("/api/local/readings", http.MethodGet, routes.Readings)
	handle("/api/local/sync-status", http.MethodGet, routes.SyncStatus)
	handle("/api/sync/meter-reading-upload/status", http.MethodGet, routes.UploadStatus)
	handle("/api/sync/meter-reading-upload/log", http.MethodGet, routes.UploadLog)
	handle("/api/sync/meter-reading-upload/run", http.MethodPost, routes.UploadRun)
	handle("/metrics", http.MethodGet, routes.Metrics)

	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
