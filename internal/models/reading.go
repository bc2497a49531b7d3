package models

import "time"

// Reading status tags.
const (
	ReadingStatusIdle      = "idle"
	ReadingStatusInFlight  = "in-flight"
	ReadingStatusDelivered = "delivered"
	ReadingStatusFailed    = "failed"
)

// MeterReading is one captured measurement event. Readings are always
// written locally first and delivered to the central ingest API by the
// upload cycle; they are retained after delivery for audit.
type MeterReading struct {
	ID           int64     `db:"id" json:"reading_id"`
	TenantID     int64     `db:"tenant_id" json:"tenant_id"`
	MeterID      int64     `db:"meter_id" json:"meter_id"`
	Value        float64   `db:"value" json:"value"`
	Unit         string    `db:"unit" json:"unit"`
	CapturedAt   time.Time `db:"captured_at" json:"captured_at"`
	Synchronized bool      `db:"synchronized" json:"synchronized"`
	RetryCount   int       `db:"retry_count" json:"retry_count"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
