package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditrail/internal/capture"
	"github.com/persistorai/auditrail/internal/models"
)

// mockStore records calls and returns configured responses.
type mockStore struct {
	mu      sync.Mutex
	queries []models.AuditQuery
	batches [][]models.AuditEntry

	queryAudit  func(ctx context.Context, q models.AuditQuery) ([]models.AuditEntry, error)
	insertBatch func(ctx context.Context, entries []models.AuditEntry) error
}

func (m *mockStore) QueryAudit(ctx context.Context, q models.AuditQuery) ([]models.AuditEntry, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()

	if m.queryAudit != nil {
		return m.queryAudit(ctx, q)
	}

	return nil, nil
}

func (m *mockStore) InsertBatch(ctx context.Context, entries []models.AuditEntry) error {
	if m.insertBatch != nil {
		if err := m.insertBatch(ctx, entries); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.batches = append(m.batches, append([]models.AuditEntry(nil), entries...))

	return nil
}

func (m *mockStore) getBatches() [][]models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([][]models.AuditEntry(nil), m.batches...)
}

func (m *mockStore) getQueries() []models.AuditQuery {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]models.AuditQuery(nil), m.queries...)
}

type Product struct {
	Id       int
	Name     string
	Price    float64
	Password string
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func newTestService(t *testing.T, st *mockStore) *AuditService {
	t.Helper()

	log := testLogger()
	reg := capture.NewRegistry(log)
	capture.MustRegister(reg, capture.EntityType[Product]{
		Properties: func(p Product) map[string]any {
			return map[string]any{"Id": p.Id, "Name": p.Name, "Price": p.Price, "Password": p.Password}
		},
	})

	opts := capture.DefaultOptions()
	opts.ExcludedProperties = []string{"Password"}

	return NewAuditService(st, capture.NewCapturer(reg, st, opts, log), log)
}
