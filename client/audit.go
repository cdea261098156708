package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// LogService reads and writes audit log entries.
type LogService struct {
	c *Client
}

// logsResponse wraps a list of entries.
type logsResponse struct {
	Data  []AuditEntry `json:"data"`
	Count int          `json:"count"`
}

// ForEntity returns the history of one entity instance, newest first.
func (s *LogService) ForEntity(ctx context.Context, entityName, entityID string, opts *LogQueryOptions) ([]AuditEntry, error) {
	params := url.Values{}
	if opts != nil {
		if opts.TenantID != "" {
			params.Set("tenant_id", opts.TenantID)
		}
		if opts.From != nil {
			params.Set("from", opts.From.UTC().Format(time.RFC3339Nano))
		}
		if opts.To != nil {
			params.Set("to", opts.To.UTC().Format(time.RFC3339Nano))
		}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
	}

	path := "/api/v1/entities/" + url.PathEscape(entityName) + "/" + url.PathEscape(entityID) + "/logs"

	var resp logsResponse
	if err := s.c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ForEntityName returns every entry for an entity type, newest first. A
// positive limit caps the result.
func (s *LogService) ForEntityName(ctx context.Context, entityName string, limit int) ([]AuditEntry, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp logsResponse
	if err := s.c.get(ctx, "/api/v1/entities/"+url.PathEscape(entityName)+"/logs", params, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Log records one entry directly and returns it as stored.
func (s *LogService) Log(ctx context.Context, req LogRequest) (*AuditEntry, error) {
	var entry AuditEntry
	if err := s.c.post(ctx, "/api/v1/logs", req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
