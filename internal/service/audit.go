package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditrail/internal/capture"
	"github.com/persistorai/auditrail/internal/domain"
	"github.com/persistorai/auditrail/internal/models"
)

// Compile-time check: *AuditService must satisfy domain.AuditService.
var _ domain.AuditService = (*AuditService)(nil)

// AuditService exposes the audit query operations and the manual log API.
type AuditService struct {
	store    domain.AuditStore
	capturer *capture.Capturer
	log      *logrus.Logger
	now      func() time.Time
	retry    capture.Enqueuer
}

// ServiceOption configures an AuditService.
type ServiceOption func(*AuditService)

// WithRetryQueue hands manual entries whose insert failed to enq. Log then
// succeeds as long as the queue accepts the entry.
func WithRetryQueue(enq capture.Enqueuer) ServiceOption {
	return func(s *AuditService) { s.retry = enq }
}

// NewAuditService creates an AuditService. The capturer supplies the entity
// registry, exclusions and tenant resolver used by Log.
func NewAuditService(store domain.AuditStore, capturer *capture.Capturer, log *logrus.Logger, opts ...ServiceOption) *AuditService {
	s := &AuditService{store: store, capturer: capturer, log: log, now: time.Now}
	for _, o := range opts {
		o(s)
	}

	return s
}

// GetLogs returns every entry for one entity instance, newest first.
func (s *AuditService) GetLogs(ctx context.Context, entityName, entityID string) ([]models.AuditEntry, error) {
	if entityName == "" {
		return nil, models.ErrMissingEntityName
	}

	return s.query(ctx, models.AuditQuery{EntityName: entityName, EntityID: &entityID})
}

// GetLogsForTenant is GetLogs restricted to one tenant.
func (s *AuditService) GetLogsForTenant(ctx context.Context, entityName, entityID, tenantID string) ([]models.AuditEntry, error) {
	if entityName == "" {
		return nil, models.ErrMissingEntityName
	}

	if tenantID == "" {
		return nil, models.ErrMissingTenant
	}

	return s.query(ctx, models.AuditQuery{EntityName: entityName, EntityID: &entityID, TenantID: &tenantID})
}

// GetLogsInRange is GetLogs restricted to changes in [from, to].
func (s *AuditService) GetLogsInRange(ctx context.Context, entityName, entityID string, from, to time.Time) ([]models.AuditEntry, error) {
	if entityName == "" {
		return nil, models.ErrMissingEntityName
	}

	if from.After(to) {
		return nil, models.ErrInvalidTimeRange
	}

	return s.query(ctx, models.AuditQuery{EntityName: entityName, EntityID: &entityID, From: &from, To: &to})
}

// GetLogsByEntityName returns every entry for an entity type, newest first.
func (s *AuditService) GetLogsByEntityName(ctx context.Context, entityName string) ([]models.AuditEntry, error) {
	if entityName == "" {
		return nil, models.ErrMissingEntityName
	}

	return s.query(ctx, models.AuditQuery{EntityName: entityName})
}

// Query runs an arbitrary filter. The entity name is required.
func (s *AuditService) Query(ctx context.Context, q models.AuditQuery) ([]models.AuditEntry, error) {
	if q.EntityName == "" {
		return nil, models.ErrMissingEntityName
	}

	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, models.ErrInvalidTimeRange
	}

	return s.query(ctx, q)
}

func (s *AuditService) query(ctx context.Context, q models.AuditQuery) ([]models.AuditEntry, error) {
	entries, err := s.store.QueryAudit(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying audit log for %s: %w", q.EntityName, err)
	}

	return entries, nil
}

// Log records one entry outside automatic capture. The request is validated
// before any I/O. When NewValues is empty it defaults to the full entity.
func (s *AuditService) Log(ctx context.Context, req models.LogRequest) (*models.AuditEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	entry := models.AuditEntry{
		ID:         uuid.NewString(),
		EntityName: req.EntityName,
		EntityID:   req.EntityID,
		Action:     req.Action,
		ChangedBy:  req.ActorID,
		ChangedAt:  s.now().UTC(),
		OldValues:  req.OldValues,
		NewValues:  req.NewValues,
		TenantID:   req.TenantID,
	}

	if req.Entity != nil {
		desc := s.capturer.Registry().Resolve(req.Entity)

		if entry.EntityName == "" {
			entry.EntityName = desc.Name()
		}

		if entry.EntityID == "" {
			entry.EntityID = desc.EntityID(req.Entity)
		}

		if len(entry.NewValues) == 0 {
			raw, err := capture.EncodeValues(desc.Properties(req.Entity), s.capturer.Exclusions())
			if err != nil {
				return nil, fmt.Errorf("serializing %s: %w", entry.EntityName, err)
			}

			entry.NewValues = raw
		}
	}

	if entry.TenantID == nil {
		if resolve := s.capturer.Options().TenantIDResolver; resolve != nil {
			if id, ok := resolve(ctx); ok && id != "" {
				entry.TenantID = &id
			}
		}
	}

	batch := []models.AuditEntry{entry}
	if err := s.store.InsertBatch(ctx, batch); err != nil {
		if s.retry == nil || !s.retry.Enqueue([]models.AuditEntry{entry}) {
			return nil, fmt.Errorf("logging %s %s: %w", entry.Action, entry.EntityName, err)
		}

		s.log.WithError(err).WithFields(logrus.Fields{
			"entry_id":    entry.ID,
			"entity_name": entry.EntityName,
		}).Warn("audit.log.deferred")

		return &entry, nil
	}

	entry = batch[0]

	s.log.WithFields(logrus.Fields{
		"entity_name": entry.EntityName,
		"entity_id":   entry.EntityID,
		"action":      entry.Action,
		"changed_by":  entry.ChangedBy,
	}).Info("audit.log")

	return &entry, nil
}
