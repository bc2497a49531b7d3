package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 2
	defaultConnLifetime = time.Hour
	defaultConnIdleTime = 10 * time.Second
	defaultPingTimeout  = 5 * time.Second
)

// Store owns the two connection pools this subsystem bridges: the
// edge-resident local store and the central remote store. All queries
// against either database go through its assigned pool.
type Store struct {
	local  *sql.DB
	remote *sql.DB
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// Open builds both pools. The local store must be reachable; a remote
// store that cannot be pinged at startup leaves the collector in
// degraded mode (logged, pool kept for lazy reconnection) rather than
// failing startup.
func Open(localDSN, remoteDSN string, logger *zap.Logger) (*Store, error) {
	local, err := newPool(localDSN)
	if err != nil {
		return nil, fmt.Errorf("store: local pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()
	if err := local.PingContext(ctx); err != nil {
		local.Close()
		return nil, fmt.Errorf("store: local store unreachable: %w", err)
	}

	remote, err := newPool(remoteDSN)
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("store: remote pool: %w", err)
	}

	rctx, rcancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer rcancel()
	if err := remote.PingContext(rctx); err != nil {
		logger.Warn("remote store unreachable at startup, continuing in degraded mode", zap.Error(err))
	}

	return &Store{local: local, remote: remote, logger: logger}, nil
}

func newPool(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("empty DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnLifetime)
	db.SetConnMaxIdleTime(defaultConnIdleTime)

	return db, nil
}

// Local returns the edge-resident pool.
func (s *Store) Local() *sql.DB {
	return s.local
}

// Remote returns the central multi-tenant pool.
func (s *Store) Remote() *sql.DB {
	return s.remote
}

// HealthLocal issues a trivial round-trip query against the local store.
func (s *Store) HealthLocal(ctx context.Context) error {
	return health(ctx, s.local)
}

// HealthRemote issues a trivial round-trip query against the remote store.
func (s *Store) HealthRemote(ctx context.Context) error {
	return health(ctx, s.remote)
}

func health(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("store: health probe: %w", err)
	}
	return nil
}

// Close drains and closes both pools. Safe to call more than once.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	if err := s.local.Close(); err != nil {
		s.logger.Warn("failed to close local pool", zap.Error(err))
	}
	if err := s.remote.Close(); err != nil {
		s.logger.Warn("failed to close remote pool", zap.Error(err))
	}
}
