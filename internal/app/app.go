package app

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	libredis "edgemeter/libs/redis"

	"edgemeter/internal/clients"
	"edgemeter/internal/config"
	"edgemeter/internal/health"
	httpserver "edgemeter/internal/http"
	"edgemeter/internal/http/handlers"
	"edgemeter/internal/metrics"
	"edgemeter/internal/redisstate"
	"edgemeter/internal/repository"
	"edgemeter/internal/service"
	"edgemeter/internal/store"
)

// App wires collector dependencies.
type App struct {
	server  *httpserver.Server
	monitor *health.Monitor
	stores  *store.Store
	logger  *zap.Logger
}

// New constructs application components.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	stores, err := store.Open(cfg.LocalDB.DSN, cfg.RemoteDB.DSN, logger)
	if err != nil {
		return nil, err
	}

	syncMetrics := metrics.NewSyncMetrics("edgemeter")

	localTenants := repository.NewLocalTenantRepository(stores.Local())
	remoteTenants := repository.NewRemoteTenantRepository(stores.Remote())
	readings := repository.NewReadingRepository(stores.Local())
	syncLog := repository.NewSyncLogRepository(stores.Local())
	meters := repository.NewMeterRepository(stores.Local())

	ingest := clients.NewIngestClient(cfg.Ingest.BaseURL, cfg.Ingest.APIKey, cfg.Ingest.Timeout, logger)

	// Redis is optional: without it the upload run state stays
	// process-local and the status flag reads false for external runs.
	var uploadState *redisstate.Store
	if cfg.Redis.Addr != "" {
		client, err := libredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			logger.Warn("redis unreachable, upload state will not be shared", zap.Error(err))
		} else {
			uploadState = redisstate.NewStore(client, 0)
		}
	}

	tenantSync := service.NewTenantSyncService(remoteTenants, localTenants, stores, syncLog, syncMetrics, logger)

	var stateStore service.UploadStateStore
	var stateReader service.UploadStateReader
	if uploadState != nil {
		stateStore = uploadState
		stateReader = uploadState
	}

	upload := service.NewUploadService(
		readings,
		ingest,
		syncLog,
		stateStore,
		cfg.Upload.BatchSize,
		cfg.Upload.MaxRetries,
		syncMetrics,
		logger,
	)

	status := service.NewStatusService(syncLog, readings, stores, ingest, stateReader, syncMetrics, logger)

	monitor := health.NewMonitor(
		health.Targets{
			LocalStore:  stores.HealthLocal,
			RemoteStore: stores.HealthRemote,
			RemoteAPI:   ingest.Health,
		},
		cfg.Monitor.Interval,
		cfg.Monitor.ProbeTimeout,
		func(endpoint health.Endpoint, connected bool) {
			up := 0.0
			if connected {
				up = 1.0
			}
			syncMetrics.EndpointUp.WithLabelValues(string(endpoint)).Set(up)
		},
		logger,
	)

	routes := httpserver.Routes{
		Health:            handlers.NewHealthHandler(),
		LocalStoreHealth:  handlers.NewStoreHealthHandler(stores.HealthLocal, logger),
		RemoteStoreHealth: handlers.NewStoreHealthHandler(stores.HealthRemote, logger),
		Connectivity:      handlers.NewConnectivityHandler(monitor),
		ConnectivityFeed:  handlers.NewConnectivityFeed(monitor, 30*time.Second, logger),
		LocalTenant:       handlers.NewLocalTenantHandler(localTenants, logger),
		TenantSync:        handlers.NewTenantSyncHandler(tenantSync, logger),
		Meters:            handlers.NewMetersHandler(meters, logger),
		Readings:          handlers.NewReadingsHandler(readings, logger),
		SyncStatus:        handlers.NewSyncStatusHandler(status, logger),
		UploadStatus:      handlers.NewUploadStatusHandler(status, logger),
		UploadLog:         handlers.NewUploadLogHandler(status, logger),
		UploadRun:         handlers.NewUploadRunHandler(upload, monitor, logger),
		Metrics:           metrics.Handler(),
	}

	var handler http.Handler = httpserver.NewRouter(routes)
	server := httpserver.NewServer(cfg.HTTP.Addr, handler, logger)

	return &App{
		server:  server,
		monitor: monitor,
		stores:  stores,
		logger:  logger,
	}, nil
}

// Run starts the connectivity monitor and serves HTTP requests until
// the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.monitor.Start()
	defer a.monitor.Stop()
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	a.stores.Close()
}
