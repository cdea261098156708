package client

import (
	"encoding/json"
	"time"
)

// Action is the kind of mutation an audit entry records.
type Action string

// Audit actions.
const (
	ActionCreate     Action = "Create"
	ActionUpdate     Action = "Update"
	ActionDelete     Action = "Delete"
	ActionSoftDelete Action = "SoftDelete"
)

// AuditEntry is one immutable audit record.
type AuditEntry struct {
	ID         string          `json:"id"`
	EntityName string          `json:"entity_name"`
	EntityID   string          `json:"entity_id"`
	Action     Action          `json:"action"`
	ChangedBy  string          `json:"changed_by"`
	ChangedAt  time.Time       `json:"changed_at"`
	OldValues  json.RawMessage `json:"old_values,omitempty"`
	NewValues  json.RawMessage `json:"new_values,omitempty"`
	TenantID   *string         `json:"tenant_id,omitempty"`
	Seq        int64           `json:"seq,omitempty"`
}

// LogRequest is the body of a manual log call. ActorID and TenantID may be
// left empty when the client was built with WithActor/WithTenant.
type LogRequest struct {
	EntityName string          `json:"entity_name"`
	EntityID   string          `json:"entity_id,omitempty"`
	Action     Action          `json:"action"`
	ActorID    string          `json:"actor_id,omitempty"`
	OldValues  json.RawMessage `json:"old_values,omitempty"`
	NewValues  json.RawMessage `json:"new_values,omitempty"`
	TenantID   *string         `json:"tenant_id,omitempty"`
}

// LogQueryOptions filters the logs of one entity. TenantID and the From/To
// range are mutually exclusive; From and To must be set together.
type LogQueryOptions struct {
	TenantID string
	From     *time.Time
	To       *time.Time
	Limit    int
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	SchemaVersion int64   `json:"schema_version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ReadinessResponse is returned by the readiness endpoint.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
