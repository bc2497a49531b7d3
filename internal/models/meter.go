package models

// Meter is a locally registered measurement device. Exposed as a
// read-only projection; meter CRUD happens outside this subsystem.
type Meter struct {
	ID           int64  `db:"id" json:"meter_id"`
	TenantID     int64  `db:"tenant_id" json:"tenant_id"`
	SerialNumber string `db:"serial_number" json:"serial_number"`
	Location     string `db:"location" json:"location"`
	Active       bool   `db:"active" json:"active"`
}
