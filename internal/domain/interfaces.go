// Package domain defines the canonical audit interfaces shared across layers
// (capture engine, service, REST, client). Consumers should depend on these
// interfaces rather than re-declaring equivalent ones.
package domain

import (
	"context"
	"time"

	"github.com/persistorai/auditrail/internal/models"
)

// AuditSink is the only write path into the audit store. InsertBatch persists
// every entry in one unit of work or none of them.
type AuditSink interface {
	InsertBatch(ctx context.Context, entries []models.AuditEntry) error
}

// AuditReader reads the append-only store. Results are ordered newest first.
type AuditReader interface {
	QueryAudit(ctx context.Context, q models.AuditQuery) ([]models.AuditEntry, error)
}

// AuditStore is a full audit store backend.
type AuditStore interface {
	AuditSink
	AuditReader
}

// AuditQueryService defines the audit query operations.
type AuditQueryService interface {
	GetLogs(ctx context.Context, entityName, entityID string) ([]models.AuditEntry, error)
	GetLogsForTenant(ctx context.Context, entityName, entityID, tenantID string) ([]models.AuditEntry, error)
	GetLogsInRange(ctx context.Context, entityName, entityID string, from, to time.Time) ([]models.AuditEntry, error)
	GetLogsByEntityName(ctx context.Context, entityName string) ([]models.AuditEntry, error)
	Query(ctx context.Context, q models.AuditQuery) ([]models.AuditEntry, error)
}

// AuditLogger records audit entries explicitly, outside automatic capture.
type AuditLogger interface {
	Log(ctx context.Context, req models.LogRequest) (*models.AuditEntry, error)
}

// AuditService is the full audit service surface consumed by the API layer.
type AuditService interface {
	AuditQueryService
	AuditLogger
}
