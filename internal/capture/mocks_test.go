package capture_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditrail/internal/capture"
	"github.com/persistorai/auditrail/internal/models"
)

type Product struct {
	Id        int
	Name      string
	Price     float64
	IsDeleted bool
}

func productProps(p Product) map[string]any {
	return map[string]any{
		"Id":        p.Id,
		"Name":      p.Name,
		"Price":     p.Price,
		"IsDeleted": p.IsDeleted,
	}
}

type Secret struct {
	Token string
}

type OrderLine struct {
	OrderID int
	LineNo  int
	Qty     int
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func newRegistry(t *testing.T) *capture.Registry {
	t.Helper()

	reg := capture.NewRegistry(testLogger())
	capture.MustRegister(reg, capture.EntityType[Product]{Properties: productProps})
	capture.MustRegister(reg, capture.EntityType[Secret]{
		Properties: func(s Secret) map[string]any { return map[string]any{"Token": s.Token} },
	})
	capture.MustRegister(reg, capture.EntityType[OrderLine]{
		Properties: func(l OrderLine) map[string]any {
			return map[string]any{"OrderID": l.OrderID, "LineNo": l.LineNo, "Qty": l.Qty}
		},
		Key: func(l OrderLine) []any { return []any{l.OrderID, l.LineNo} },
	})

	return reg
}

// mockSink records inserted batches and can be told to fail.
type mockSink struct {
	mu      sync.Mutex
	batches [][]models.AuditEntry
	err     error
}

func (m *mockSink) InsertBatch(_ context.Context, entries []models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	cp := make([]models.AuditEntry, len(entries))
	copy(cp, entries)
	m.batches = append(m.batches, cp)

	return nil
}

func (m *mockSink) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

func (m *mockSink) all() []models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.AuditEntry
	for _, b := range m.batches {
		out = append(out, b...)
	}

	return out
}

type mockEnqueuer struct {
	accept bool
	got    [][]models.AuditEntry
}

func (m *mockEnqueuer) Enqueue(entries []models.AuditEntry) bool {
	if !m.accept {
		return false
	}

	m.got = append(m.got, entries)

	return true
}

var errSinkDown = errors.New("sink down")
