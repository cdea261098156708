package api

import (
	"context"

	"github.com/persistorai/auditrail/internal/domain"
)

// AuditRepository is the audit surface used by AuditHandler.
type AuditRepository interface {
	domain.AuditService
}

// DatabaseChecker reports database reachability and the applied schema version.
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) error
	AppliedVersion(ctx context.Context) (int64, error)
}
