package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/persistorai/auditrail/internal/models"
)

// auditColumns lists the columns selected for audit queries.
const auditColumns = `id::text, seq, entity_name, entity_id, action, changed_by,
	changed_at, old_values, new_values, tenant_id`

const (
	insertColumns = 9
	// insertChunk keeps each statement well under the 65535 parameter limit.
	insertChunk = 1000
)

// uniqueViolation is the SQLSTATE of a unique constraint failure.
const uniqueViolation = "23505"

// AuditStore provides data access for the audit_entries table.
type AuditStore struct {
	Base
}

// NewAuditStore creates an AuditStore.
func NewAuditStore(base Base) *AuditStore {
	return &AuditStore{Base: base}
}

// InsertBatch inserts entries in one transaction, or inside the caller's
// transaction when ctx carries one (see WithTx). The store-assigned Seq of
// each entry is written back into entries.
func (s *AuditStore) InsertBatch(ctx context.Context, entries []models.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, owned, err := s.beginTx(ctx)
	if err != nil {
		return err
	}

	if owned {
		defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.
	}

	for start := 0; start < len(entries); start += insertChunk {
		end := min(start+insertChunk, len(entries))
		if err := insertChunkTx(ctx, tx, entries[start:end]); err != nil {
			return err
		}
	}

	if owned {
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("committing audit entries: %w", err)
		}
	}

	return nil
}

func insertChunkTx(ctx context.Context, tx pgx.Tx, entries []models.AuditEntry) error {
	var b strings.Builder

	b.WriteString(`INSERT INTO audit_entries
		(id, entity_name, entity_id, action, changed_by, changed_at, old_values, new_values, tenant_id)
		VALUES `)

	args := make([]any, 0, len(entries)*insertColumns)
	pos := make(map[uuid.UUID]int, len(entries))

	for i := range entries {
		e := &entries[i]

		id, err := uuid.Parse(e.ID)
		if err != nil {
			return fmt.Errorf("%w: entry id %q: %v", models.ErrInvalidArgument, e.ID, err)
		}

		pos[id] = i

		if i > 0 {
			b.WriteString(", ")
		}

		base := i * insertColumns
		b.WriteByte('(')

		for c := 1; c <= insertColumns; c++ {
			if c > 1 {
				b.WriteString(", ")
			}

			b.WriteByte('$')
			b.WriteString(strconv.Itoa(base + c))
		}

		b.WriteByte(')')

		args = append(args,
			id, e.EntityName, e.EntityID, string(e.Action), e.ChangedBy,
			e.ChangedAt.UTC(), jsonArg(e.OldValues), jsonArg(e.NewValues), e.TenantID,
		)
	}

	b.WriteString(" RETURNING id, seq")

	rows, err := tx.Query(ctx, b.String(), args...)
	if err != nil {
		return insertError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  uuid.UUID
			seq int64
		)

		if err := rows.Scan(&id, &seq); err != nil {
			return fmt.Errorf("scanning inserted seq: %w", err)
		}

		if i, ok := pos[id]; ok {
			entries[i].Seq = seq
		}
	}

	if err := rows.Err(); err != nil {
		return insertError(err)
	}

	return nil
}

// insertError wraps an insert failure, mapping a unique violation on the
// primary key to ErrDuplicateEntry. pgx may report it from Query or from rows.Err.
func insertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("inserting audit entries: %w", models.ErrDuplicateEntry)
	}

	return fmt.Errorf("inserting audit entries: %w", err)
}

// buildAuditFilter builds WHERE clause and args from an AuditQuery.
func buildAuditFilter(q models.AuditQuery) (where string, args []any, nextArg int) {
	var conditions []string

	argIdx := 1

	if q.EntityName != "" {
		conditions = append(conditions, "entity_name = $"+strconv.Itoa(argIdx))
		args = append(args, q.EntityName)
		argIdx++
	}

	if q.EntityID != nil {
		conditions = append(conditions, "entity_id = $"+strconv.Itoa(argIdx))
		args = append(args, *q.EntityID)
		argIdx++
	}

	if q.TenantID != nil {
		conditions = append(conditions, "tenant_id = $"+strconv.Itoa(argIdx))
		args = append(args, *q.TenantID)
		argIdx++
	}

	if q.From != nil {
		conditions = append(conditions, "changed_at >= $"+strconv.Itoa(argIdx))
		args = append(args, q.From.UTC())
		argIdx++
	}

	if q.To != nil {
		conditions = append(conditions, "changed_at <= $"+strconv.Itoa(argIdx))
		args = append(args, q.To.UTC())
		argIdx++
	}

	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	return where, args, argIdx
}

// buildAuditQuery renders the full SELECT for q.
func buildAuditQuery(q models.AuditQuery) (string, []any) {
	where, args, argIdx := buildAuditFilter(q)

	query := fmt.Sprintf(
		"SELECT %s FROM audit_entries %s ORDER BY changed_at DESC, seq DESC",
		auditColumns, where,
	)

	if limit := clampLimit(q.Limit); limit > 0 {
		query += " LIMIT $" + strconv.Itoa(argIdx)
		args = append(args, limit)
	}

	return query, args
}

// QueryAudit returns audit entries matching q, newest first.
func (s *AuditStore) QueryAudit(ctx context.Context, q models.AuditQuery) ([]models.AuditEntry, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction.

	query, args := buildAuditQuery(q)

	return scanAuditRows(ctx, tx, query, args)
}

// scanAuditRows executes a query and scans audit entries from the result.
func scanAuditRows(ctx context.Context, tx pgx.Tx, query string, args []any) ([]models.AuditEntry, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0)

	for rows.Next() {
		var (
			e         models.AuditEntry
			action    string
			oldValues []byte
			newValues []byte
		)

		if err := rows.Scan(
			&e.ID, &e.Seq, &e.EntityName, &e.EntityID, &action, &e.ChangedBy,
			&e.ChangedAt, &oldValues, &newValues, &e.TenantID,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		e.Action = models.Action(action)
		e.ChangedAt = e.ChangedAt.UTC()

		if oldValues != nil {
			e.OldValues = oldValues
		}

		if newValues != nil {
			e.NewValues = newValues
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading audit entries: %w", err)
	}

	return entries, nil
}
