package store

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/persistorai/auditrail/internal/models"
)

func TestBuildAuditQuery(t *testing.T) {
	id := "42"
	tenant := "acme"
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	tests := []struct {
		name      string
		q         models.AuditQuery
		wantWhere string
		wantArgs  []any
		wantLimit string
	}{
		{name: "no filters", q: models.AuditQuery{}, wantArgs: nil},
		{
			name:      "entity",
			q:         models.AuditQuery{EntityName: "Product", EntityID: &id},
			wantWhere: "WHERE entity_name = $1 AND entity_id = $2",
			wantArgs:  []any{"Product", "42"},
		},
		{
			name:      "tenant",
			q:         models.AuditQuery{EntityName: "Product", EntityID: &id, TenantID: &tenant},
			wantWhere: "WHERE entity_name = $1 AND entity_id = $2 AND tenant_id = $3",
			wantArgs:  []any{"Product", "42", "acme"},
		},
		{
			name:      "range with limit",
			q:         models.AuditQuery{EntityName: "Product", From: &from, To: &to, Limit: 5},
			wantWhere: "WHERE entity_name = $1 AND changed_at >= $2 AND changed_at <= $3",
			wantArgs:  []any{"Product", from, to, 5},
			wantLimit: "LIMIT $4",
		},
		{
			name:      "limit is capped",
			q:         models.AuditQuery{EntityName: "Product", Limit: 5000},
			wantWhere: "WHERE entity_name = $1",
			wantArgs:  []any{"Product", maxListLimit},
			wantLimit: "LIMIT $2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildAuditQuery(tt.q)

			if tt.wantWhere != "" && !strings.Contains(query, tt.wantWhere) {
				t.Errorf("query %q missing %q", query, tt.wantWhere)
			}

			if tt.wantWhere == "" && strings.Contains(query, "WHERE") {
				t.Errorf("query %q should have no WHERE clause", query)
			}

			if !strings.Contains(query, "ORDER BY changed_at DESC, seq DESC") {
				t.Errorf("query %q missing ordering", query)
			}

			if tt.wantLimit == "" && strings.Contains(query, "LIMIT") {
				t.Errorf("query %q should have no LIMIT", query)
			}

			if tt.wantLimit != "" && !strings.HasSuffix(query, tt.wantLimit) {
				t.Errorf("query %q should end with %q", query, tt.wantLimit)
			}

			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestJSONArg(t *testing.T) {
	if jsonArg(nil) != nil {
		t.Error("nil raw message should map to NULL")
	}

	if got := jsonArg([]byte(`{"a":1}`)); got != `{"a":1}` {
		t.Errorf("jsonArg = %v", got)
	}
}

func TestInsertError(t *testing.T) {
	dup := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "audit_entries_pkey"}

	tests := []struct {
		name    string
		err     error
		wantDup bool
	}{
		{name: "unique violation", err: dup, wantDup: true},
		{name: "wrapped unique violation", err: fmt.Errorf("query: %w", dup), wantDup: true},
		{name: "other pg error", err: &pgconn.PgError{Code: "23502"}},
		{name: "connection error", err: errors.New("conn refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := insertError(tt.err)
			if got := errors.Is(err, models.ErrDuplicateEntry); got != tt.wantDup {
				t.Errorf("errors.Is(ErrDuplicateEntry) = %v, want %v (err = %v)", got, tt.wantDup, err)
			}
		})
	}
}
