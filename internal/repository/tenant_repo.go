package repository

import (
	"context"
	"database/sql"

	"edgemeter/internal/models"
)

// LocalTenantRepository persists the mirrored tenant row in the local store.
type LocalTenantRepository struct {
	db *sql.DB
}

// NewLocalTenantRepository returns repository.
func NewLocalTenantRepository(db *sql.DB) *LocalTenantRepository {
	return &LocalTenantRepository{db: db}
}

// Upsert writes the tenant row, overwriting every mirrored field
// unconditionally (last-remote-write-wins). The inserted flag is derived
// from the upsert itself, so there is no race between an existence check
// and the write.
func (r *LocalTenantRepository) Upsert(ctx context.Context, tenant *models.Tenant) (bool, error) {
	const query = `
		INSERT INTO tenants (id, name, address, city, postal_code, country, api_key, active, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			postal_code = EXCLUDED.postal_code,
			country = EXCLUDED.country,
			api_key = EXCLUDED.api_key,
			active = EXCLUDED.active,
			synced_at = NOW()
		RETURNING (xmax = 0), synced_at
	`
	var inserted bool
	err := r.db.QueryRowContext(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.Address,
		tenant.City,
		tenant.PostalCode,
		tenant.Country,
		tenant.APIKey,
		tenant.Active,
	).Scan(&inserted, &tenant.SyncedAt)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// Get returns the mirrored tenant row, sql.ErrNoRows if none was synced yet.
func (r *LocalTenantRepository) Get(ctx context.Context) (*models.Tenant, error) {
	const query = `
		SELECT id, name, address, city, postal_code, country, api_key, active, synced_at
		FROM tenants
		ORDER BY synced_at DESC
		LIMIT 1
	`
	var t models.Tenant
	err := r.db.QueryRowContext(ctx, query).Scan(
		&t.ID,
		&t.Name,
		&t.Address,
		&t.City,
		&t.PostalCode,
		&t.Country,
		&t.APIKey,
		&t.Active,
		&t.SyncedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RemoteTenantRepository reads the authoritative tenant record from the
// central store.
type RemoteTenantRepository struct {
	db *sql.DB
}

// NewRemoteTenantRepository returns repository.
func NewRemoteTenantRepository(db *sql.DB) *RemoteTenantRepository {
	return &RemoteTenantRepository{db: db}
}

// GetByID fetches the full tenant record, sql.ErrNoRows if absent.
func (r *RemoteTenantRepository) GetByID(ctx context.Context, tenantID int64) (*models.Tenant, error) {
	const query = `
		SELECT id, name, address, city, postal_code, country, api_key, active
		FROM tenants
		WHERE id = $1
	`
	var t models.Tenant
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(
		&t.ID,
		&t.Name,
		&t.Address,
		&t.City,
		&t.PostalCode,
		&t.Country,
		&t.APIKey,
		&t.Active,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
