package models

import "time"

// Sync log operation types.
const (
	OperationTenantSync = "tenant-sync"
	OperationUpload     = "upload"
)

// SyncLogEntry is the immutable audit record of one synchronization
// attempt. Entries are append-only and queried most-recent-first.
type SyncLogEntry struct {
	ID           int64     `db:"id" json:"id"`
	Operation    string    `db:"operation" json:"operation"`
	BatchSize    int       `db:"batch_size" json:"batch_size"`
	Success      bool      `db:"success" json:"success"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	CompletedAt  time.Time `db:"completed_at" json:"completed_at"`
}
