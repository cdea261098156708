// Package store provides the append-only audit store backends.
//
// AuditStore persists entries in PostgreSQL through the shared pool; every
// call is bounded by withTimeout. MemoryStore keeps entries in process for
// tests and single-node deployments.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditrail/internal/dbpool"
)

const defaultQueryTimeout = 30 * time.Second

// Base contains shared dependencies for the Postgres store.
type Base struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

type txKey struct{}

// WithTx places a caller-owned transaction in ctx. Store writes made with
// that context join the transaction instead of opening their own, and the
// caller stays responsible for commit or rollback.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	if tx == nil {
		return ctx
	}

	return context.WithValue(ctx, txKey{}, tx)
}

// TxFrom extracts a transaction placed by WithTx.
func TxFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// beginTx returns the caller's transaction when ctx carries one (owned is
// false), or starts a new read-write transaction.
func (b *Base) beginTx(ctx context.Context) (tx pgx.Tx, owned bool, err error) {
	if tx, ok := TxFrom(ctx); ok {
		return tx, false, nil
	}

	tx, err = b.Pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("beginning transaction: %w", err)
	}

	return tx, true, nil
}

// beginReadTx starts a read-only transaction.
func (b *Base) beginReadTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := b.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning read transaction: %w", err)
	}

	return tx, nil
}
