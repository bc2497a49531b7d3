package repository

import (
	"context"
	"database/sql"

	"edgemeter/internal/models"
)

// MeterRepository is a read-only projection of locally registered meters.
type MeterRepository struct {
	db *sql.DB
}

// NewMeterRepository returns repository.
func NewMeterRepository(db *sql.DB) *MeterRepository {
	return &MeterRepository{db: db}
}

// ListMeters returns all registered meters.
func (r *MeterRepository) ListMeters(ctx context.Context) ([]models.Meter, error) {
	const query = `
		SELECT id, tenant_id, serial_number, location, active
		FROM meters
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meters []models.Meter
	for rows.Next() {
		var m models.Meter
		if err := rows.Scan(&m.ID, &m.TenantID, &m.SerialNumber, &m.Location, &m.Active); err != nil {
			return nil, err
		}
		meters = append(meters, m)
	}
	return meters, rows.Err()
}
