package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditrail/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

// doRequest performs an HTTP request against the test router and returns the recorder.
func doRequest(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

// mockAuditRepo implements api.AuditRepository and records which operation ran.
type mockAuditRepo struct {
	called  string
	query   models.AuditQuery
	logReq  models.LogRequest
	tenant  string
	from    time.Time
	to      time.Time
	entries []models.AuditEntry
	err     error
}

func (m *mockAuditRepo) GetLogs(_ context.Context, name, id string) ([]models.AuditEntry, error) {
	m.called = "GetLogs"
	m.query = models.AuditQuery{EntityName: name, EntityID: &id}
	return m.entries, m.err
}

func (m *mockAuditRepo) GetLogsForTenant(_ context.Context, name, id, tenant string) ([]models.AuditEntry, error) {
	m.called = "GetLogsForTenant"
	m.query = models.AuditQuery{EntityName: name, EntityID: &id}
	m.tenant = tenant
	return m.entries, m.err
}

func (m *mockAuditRepo) GetLogsInRange(_ context.Context, name, id string, from, to time.Time) ([]models.AuditEntry, error) {
	m.called = "GetLogsInRange"
	m.query = models.AuditQuery{EntityName: name, EntityID: &id}
	m.from, m.to = from, to
	return m.entries, m.err
}

func (m *mockAuditRepo) GetLogsByEntityName(_ context.Context, name string) ([]models.AuditEntry, error) {
	m.called = "GetLogsByEntityName"
	m.query = models.AuditQuery{EntityName: name}
	return m.entries, m.err
}

func (m *mockAuditRepo) Query(_ context.Context, q models.AuditQuery) ([]models.AuditEntry, error) {
	m.called = "Query"
	m.query = q
	return m.entries, m.err
}

func (m *mockAuditRepo) Log(ctx context.Context, req models.LogRequest) (*models.AuditEntry, error) {
	m.called = "Log"
	m.logReq = req
	if m.err != nil {
		return nil, m.err
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return &models.AuditEntry{
		ID:         "00000000-0000-0000-0000-000000000001",
		EntityName: req.EntityName,
		EntityID:   req.EntityID,
		Action:     req.Action,
		ChangedBy:  req.ActorID,
		NewValues:  req.NewValues,
		TenantID:   req.TenantID,
	}, nil
}

// mockDB implements api.DatabaseChecker.
type mockDB struct {
	pingErr    error
	version    int64
	versionErr error
}

func (m *mockDB) HealthCheck(context.Context) error { return m.pingErr }

func (m *mockDB) AppliedVersion(context.Context) (int64, error) { return m.version, m.versionErr }
