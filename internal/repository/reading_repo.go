package repository

import (
	"context"
	"database/sql"
	"sort"

	"edgemeter/internal/models"
)

// ReadingRepository owns queue state for captured meter readings.
// Rows are inserted by the capture path with synchronized=false and
// mutated only by the upload cycle; they are never deleted here.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository returns repository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// ClaimBatch atomically marks the oldest unsynchronized readings of the
// tenant in-flight and returns them, oldest captured-at first. A
// maxRetries of zero or less disables the retry ceiling. SKIP LOCKED
// keeps a concurrent claim from handing out the same rows twice.
func (r *ReadingRepository) ClaimBatch(ctx context.Context, tenantID int64, limit, maxRetries int) ([]models.MeterReading, error) {
	const query = `
		WITH batch AS (
			SELECT id
			FROM meter_readings
			WHERE tenant_id = $1
			  AND synchronized = FALSE
			  AND ($3::int <= 0 OR retry_count < $3)
			ORDER BY captured_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE meter_readings m
		SET status = 'in-flight'
		FROM batch
		WHERE m.id = batch.id
		RETURNING m.id, m.tenant_id, m.meter_id, m.value, m.unit, m.captured_at,
		          m.synchronized, m.retry_count, m.status, m.created_at
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, limit, maxRetries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.MeterReading
	for rows.Next() {
		var m models.MeterReading
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.MeterID,
			&m.Value,
			&m.Unit,
			&m.CapturedAt,
			&m.Synchronized,
			&m.RetryCount,
			&m.Status,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		readings = append(readings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// UPDATE ... RETURNING does not preserve the inner ORDER BY.
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].CapturedAt.Before(readings[j].CapturedAt)
	})
	return readings, nil
}

// MarkDelivered records a successful delivery. The retry counter is
// left untouched.
func (r *ReadingRepository) MarkDelivered(ctx context.Context, readingID int64) error {
	const query = `
		UPDATE meter_readings
		SET synchronized = TRUE, status = 'delivered'
		WHERE id = $1
	`
	return exec(ctx, r.db, query, readingID)
}

// MarkFailed records a failed delivery attempt: the retry counter grows
// and the reading stays eligible for the next cycle.
func (r *ReadingRepository) MarkFailed(ctx context.Context, readingID int64) error {
	const query = `
		UPDATE meter_readings
		SET retry_count = retry_count + 1, status = 'failed'
		WHERE id = $1
	`
	return exec(ctx, r.db, query, readingID)
}

// CountUnsynchronized returns the current queue depth.
func (r *ReadingRepository) CountUnsynchronized(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM meter_readings WHERE synchronized = FALSE`
	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListRecent returns readings captured within the last N hours, newest
// first. Hours of zero or less defaults to 24.
func (r *ReadingRepository) ListRecent(ctx context.Context, hours int) ([]models.MeterReading, error) {
	if hours <= 0 {
		hours = 24
	}
	const query = `
		SELECT id, tenant_id, meter_id, value, unit, captured_at,
		       synchronized, retry_count, status, created_at
		FROM meter_readings
		WHERE captured_at >= NOW() - ($1 * INTERVAL '1 hour')
		ORDER BY captured_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, hours)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.MeterReading
	for rows.Next() {
		var m models.MeterReading
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.MeterID,
			&m.Value,
			&m.Unit,
			&m.CapturedAt,
			&m.Synchronized,
			&m.RetryCount,
			&m.Status,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		readings = append(readings, m)
	}
	return readings, rows.Err()
}

func exec(ctx context.Context, db *sql.DB, query string, args ...interface{}) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
