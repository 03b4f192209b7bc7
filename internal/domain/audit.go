package domain

import (
	"time"
)

// AuditEntry is an immutable admin-action log record, paginated by an
// opaque server-issued cursor.
type AuditEntry struct {
	AuditID      string    `json:"audit_id"`
	AdminID      string    `json:"admin_id"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Timestamp    time.Time `json:"timestamp"`
	Details      string    `json:"details,omitempty"`
}
