package domain

import (
	"encoding/json"
	"time"
)

// Audit actions recorded by the console.
const (
	AuditActionCreate   = "create"
	AuditActionUpdate   = "update"
	AuditActionDelete   = "delete"
	AuditActionModerate = "moderate"
	AuditActionStatus   = "status_change"
	AuditActionSettings = "settings_change"
)

// AuditEntry is one recorded back-office action: who did what to which
// resource, and when.
type AuditEntry struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"session_id"`
	AdminID    string          `json:"admin_id"`
	AdminEmail string          `json:"admin_email,omitempty"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	TargetID   string          `json:"target_id,omitempty"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
