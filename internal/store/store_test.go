package store_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditrail/internal/db"
	"github.com/persistorai/auditrail/internal/dbpool"
	"github.com/persistorai/auditrail/internal/store"
)

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

var (
	sharedEnv  *testEnv
	sharedErr  error
	sharedOnce sync.Once
)

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	sharedOnce.Do(func() {
		ctx := context.Background()

		log := logrus.New()
		log.SetLevel(logrus.ErrorLevel)

		pool, err := dbpool.NewPool(ctx, dbURL, 4)
		if err != nil {
			sharedErr = err
			return
		}

		if err := db.RunMigrations(ctx, pool, log, nil); err != nil {
			pool.Close()
			sharedErr = err

			return
		}

		sharedEnv = &testEnv{pool: pool, log: log}
	})

	if sharedErr != nil {
		t.Fatalf("preparing test DB: %v", sharedErr)
	}

	return sharedEnv
}

// newAuditStore returns a Postgres-backed AuditStore on the shared pool.
func newAuditStore(t *testing.T) (*store.AuditStore, *testEnv) {
	t.Helper()

	env := getTestEnv(t)

	return store.NewAuditStore(store.Base{Pool: env.pool, Log: env.log}), env
}
