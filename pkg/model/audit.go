package model

import "time"

// AuditEntry is immutable once appended.
type AuditEntry struct {
	ID          string         `json:"id" bson:"_id"`
	BookingID   string         `json:"booking_id" bson:"booking_id"`
	Action      AuditAction    `json:"action" bson:"action"`
	PerformedBy string         `json:"performed_by" bson:"performed_by"`
	Details     map[string]any `json:"details,omitempty" bson:"details,omitempty"`
	Timestamp   time.Time      `json:"timestamp" bson:"created_at"`
}
