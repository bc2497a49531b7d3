package models

import "time"

// Tenant is the customer organization this collector captures readings for.
// The remote store owns the authoritative row; the local row is a cached
// projection refreshed by tenant reconciliation.
type Tenant struct {
	ID         int64     `db:"id" json:"tenant_id"`
	Name       string    `db:"name" json:"name"`
	Address    string    `db:"address" json:"address"`
	City       string    `db:"city" json:"city"`
	PostalCode string    `db:"postal_code" json:"postal_code"`
	Country    string    `db:"country" json:"country"`
	APIKey     string    `db:"api_key" json:"-"`
	Active     bool      `db:"active" json:"active"`
	SyncedAt   time.Time `db:"synced_at" json:"synced_at"`
}
