package repository

import (
	"context"
	"database/sql"

	"edgemeter/internal/models"
)

// SyncLogRepository appends and reads the append-only sync audit log.
type SyncLogRepository struct {
	db *sql.DB
}

// NewSyncLogRepository returns repository.
func NewSyncLogRepository(db *sql.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Append records one synchronization attempt. Entries are never updated
// or deleted afterwards.
func (r *SyncLogRepository) Append(ctx context.Context, entry *models.SyncLogEntry) error {
	const query = `
		INSERT INTO sync_log (operation, batch_size, success, error_message, completed_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NOW())
		RETURNING id, completed_at
	`
	return r.db.QueryRowContext(ctx, query,
		entry.Operation,
		entry.BatchSize,
		entry.Success,
		entry.ErrorMessage,
	).Scan(&entry.ID, &entry.CompletedAt)
}

// Recent returns the latest entries of any operation, most recent first.
func (r *SyncLogRepository) Recent(ctx context.Context, limit int) ([]models.SyncLogEntry, error) {
	const query = `
		SELECT id, operation, batch_size, success, error_message, completed_at
		FROM sync_log
		ORDER BY completed_at DESC
		LIMIT $1
	`
	return r.query(ctx, query, limit)
}

// RecentByOperation returns the latest entries of one operation type.
func (r *SyncLogRepository) RecentByOperation(ctx context.Context, operation string, limit int) ([]models.SyncLogEntry, error) {
	const query = `
		SELECT id, operation, batch_size, success, error_message, completed_at
		FROM sync_log
		WHERE operation = $1
		ORDER BY completed_at DESC
		LIMIT $2
	`
	return r.query(ctx, query, operation, limit)
}

// LastByOperation returns the single most recent entry of one operation
// type, sql.ErrNoRows if none exists.
func (r *SyncLogRepository) LastByOperation(ctx context.Context, operation string) (*models.SyncLogEntry, error) {
	entries, err := r.RecentByOperation(ctx, operation, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, sql.ErrNoRows
	}
	return &entries[0], nil
}

func (r *SyncLogRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.SyncLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.SyncLogEntry
	for rows.Next() {
		var (
			e      models.SyncLogEntry
			errMsg sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Operation, &e.BatchSize, &e.Success, &errMsg, &e.CompletedAt); err != nil {
			return nil, err
		}
		e.ErrorMessage = errMsg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
