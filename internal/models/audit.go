package models

import (
	"encoding/json"
	"time"
)

// Action classifies a captured mutation.
type Action string

// Recognized audit actions.
const (
	ActionCreate     Action = "Create"
	ActionUpdate     Action = "Update"
	ActionDelete     Action = "Delete"
	ActionSoftDelete Action = "SoftDelete"
)

// Valid reports whether a is one of the recognized actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionSoftDelete:
		return true
	default:
		return false
	}
}

// EntityState is the host-supplied lifecycle state of a tracked entity
// within one save operation.
type EntityState int

// Lifecycle states reported by a change tracker.
const (
	StateUnchanged EntityState = iota
	StateAdded
	StateModified
	StateDeleted
	StateDetached
)

func (s EntityState) String() string {
	switch s {
	case StateUnchanged:
		return "Unchanged"
	case StateAdded:
		return "Added"
	case StateModified:
		return "Modified"
	case StateDeleted:
		return "Deleted"
	case StateDetached:
		return "Detached"
	default:
		return "Unknown"
	}
}

// DefaultActor is recorded as ChangedBy when no actor can be resolved.
const DefaultActor = "System"

// AuditEntry is one immutable record of a single entity mutation.
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

	// Seq is the store-assigned insertion sequence, zero until persisted.
	Seq int64 `json:"seq,omitempty"`
}

// Tenant returns the tenant identifier or "" when the entry has none.
func (e *AuditEntry) Tenant() string {
	if e.TenantID == nil {
		return ""
	}

	return *e.TenantID
}

// AuditQuery holds filters for reading the audit store. Zero-valued fields
// are not applied. Results are always ordered newest first.
type AuditQuery struct {
	EntityName string
	EntityID   *string
	TenantID   *string
	From       *time.Time
	To         *time.Time
	Limit      int // 0 returns every matching entry
}

// LogRequest is the input of the manual log API.
type LogRequest struct {
	// Entity is the audited instance. When nil, EntityName must be set.
	Entity     any
	EntityName string
	EntityID   string
	Action     Action
	ActorID    string
	OldValues  json.RawMessage
	NewValues  json.RawMessage
	TenantID   *string
}

// Field length limits mirrored by the audit_entries schema.
const (
	maxEntityNameLen = 255
	maxEntityIDLen   = 255
	maxActorLen      = 255
	maxTenantLen     = 255
)

// Validate checks the required fields of a manual log request. It performs no I/O.
func (r *LogRequest) Validate() error {
	if r.Entity == nil && r.EntityName == "" {
		return ErrMissingEntity
	}

	if r.Action == "" {
		return ErrMissingAction
	}

	if !r.Action.Valid() {
		return ErrInvalidAction
	}

	if r.ActorID == "" {
		return ErrMissingActor
	}

	if len(r.EntityName) > maxEntityNameLen {
		return ErrFieldTooLong("entity_name", maxEntityNameLen)
	}

	if len(r.EntityID) > maxEntityIDLen {
		return ErrFieldTooLong("entity_id", maxEntityIDLen)
	}

	if len(r.ActorID) > maxActorLen {
		return ErrFieldTooLong("actor_id", maxActorLen)
	}

	if r.TenantID != nil && len(*r.TenantID) > maxTenantLen {
		return ErrFieldTooLong("tenant_id", maxTenantLen)
	}

	return nil
}
