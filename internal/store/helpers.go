package store

import (
	"cmp"
	"encoding/json"
	"slices"

	"github.com/persistorai/auditrail/internal/models"
)

// maxListLimit is a defense-in-depth cap on explicit limit values.
const maxListLimit = 1000

// clampLimit returns 0 (no limit) for non-positive values and caps the rest.
func clampLimit(limit int) int {
	if limit <= 0 {
		return 0
	}

	return min(limit, maxListLimit)
}

// jsonArg converts a raw JSON value to a query argument; absent values map to NULL.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}

	return string(raw)
}

// newestFirst orders entries by changed_at descending, breaking ties by the
// later insertion first.
func newestFirst(a, b models.AuditEntry) int {
	if c := b.ChangedAt.Compare(a.ChangedAt); c != 0 {
		return c
	}

	return cmp.Compare(b.Seq, a.Seq)
}

func matches(e *models.AuditEntry, q models.AuditQuery) bool {
	if q.EntityName != "" && e.EntityName != q.EntityName {
		return false
	}

	if q.EntityID != nil && e.EntityID != *q.EntityID {
		return false
	}

	if q.TenantID != nil && (e.TenantID == nil || *e.TenantID != *q.TenantID) {
		return false
	}

	if q.From != nil && e.ChangedAt.Before(*q.From) {
		return false
	}

	if q.To != nil && e.ChangedAt.After(*q.To) {
		return false
	}

	return true
}

func sortNewestFirst(entries []models.AuditEntry) {
	slices.SortStableFunc(entries, newestFirst)
}
