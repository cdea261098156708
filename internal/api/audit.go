package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditrail/internal/capture"
	"github.com/persistorai/auditrail/internal/models"
)

// AuditHandler serves the audit log endpoints.
type AuditHandler struct {
	repo AuditRepository
	log  *logrus.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(repo AuditRepository, log *logrus.Logger) *AuditHandler {
	return &AuditHandler{repo: repo, log: log}
}

// logsResponse wraps query results.
type logsResponse struct {
	Data  []models.AuditEntry `json:"data"`
	Count int                 `json:"count"`
}

func respondLogs(c *gin.Context, entries []models.AuditEntry) {
	if entries == nil {
		entries = []models.AuditEntry{}
	}

	c.JSON(http.StatusOK, logsResponse{Data: entries, Count: len(entries)})
}

// ListByName handles GET /api/v1/entities/:name/logs.
func (h *AuditHandler) ListByName(c *gin.Context) {
	name := c.Param("name")
	if err := validatePathID(name); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	var entries []models.AuditEntry
	if limit > 0 {
		entries, err = h.repo.Query(c.Request.Context(), models.AuditQuery{EntityName: name, Limit: limit})
	} else {
		entries, err = h.repo.GetLogsByEntityName(c.Request.Context(), name)
	}

	if err != nil {
		respondServiceError(c, h.log, err, "query audit log")
		return
	}

	respondLogs(c, entries)
}

// ListForEntity handles GET /api/v1/entities/:name/:id/logs. The optional
// tenant_id filter and the from/to range are mutually exclusive.
func (h *AuditHandler) ListForEntity(c *gin.Context) {
	name, id := c.Param("name"), c.Param("id")
	for _, v := range []string{name, id} {
		if err := validatePathID(v); err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
	}

	q, err := parseEntityQuery(c, name, id)
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	ctx := c.Request.Context()

	var entries []models.AuditEntry
	switch {
	case q.Limit > 0:
		entries, err = h.repo.Query(ctx, q)
	case q.TenantID != nil:
		entries, err = h.repo.GetLogsForTenant(ctx, name, id, *q.TenantID)
	case q.From != nil:
		entries, err = h.repo.GetLogsInRange(ctx, name, id, *q.From, *q.To)
	default:
		entries, err = h.repo.GetLogs(ctx, name, id)
	}

	if err != nil {
		respondServiceError(c, h.log, err, "query audit log")
		return
	}

	respondLogs(c, entries)
}

func parseEntityQuery(c *gin.Context, name, id string) (models.AuditQuery, error) {
	q := models.AuditQuery{EntityName: name, EntityID: &id}

	if tenant := c.Query("tenant_id"); tenant != "" {
		q.TenantID = &tenant
	}

	from, to := c.Query("from"), c.Query("to")
	if (from == "") != (to == "") {
		return q, fmt.Errorf("from and to must be given together")
	}

	if from != "" {
		if q.TenantID != nil {
			return q, fmt.Errorf("tenant_id cannot be combined with from/to")
		}

		f, err := time.Parse(time.RFC3339Nano, from)
		if err != nil {
			return q, fmt.Errorf("invalid from, use RFC3339")
		}

		t, err := time.Parse(time.RFC3339Nano, to)
		if err != nil {
			return q, fmt.Errorf("invalid to, use RFC3339")
		}

		q.From, q.To = &f, &t
	}

	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		return q, err
	}
	q.Limit = limit

	return q, nil
}

// logRequest is the JSON body of POST /api/v1/logs.
type logRequest struct {
	EntityName string          `json:"entity_name"`
	EntityID   string          `json:"entity_id"`
	Action     models.Action   `json:"action"`
	ActorID    string          `json:"actor_id"`
	OldValues  json.RawMessage `json:"old_values"`
	NewValues  json.RawMessage `json:"new_values"`
	TenantID   *string         `json:"tenant_id"`
}

// Log handles POST /api/v1/logs. A missing actor_id falls back to the
// X-Actor-ID identity; a missing tenant_id to X-Tenant-ID.
func (h *AuditHandler) Log(c *gin.Context) {
	var body logRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	if body.Action != "" && !body.Action.Valid() {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, fmt.Sprintf("unknown action %q", body.Action))
		return
	}

	actor := body.ActorID
	if actor == "" {
		actor = capture.ActorFromContext(c.Request.Context())
	}

	entry, err := h.repo.Log(c.Request.Context(), models.LogRequest{
		EntityName: body.EntityName,
		EntityID:   body.EntityID,
		Action:     body.Action,
		ActorID:    actor,
		OldValues:  nullToEmpty(body.OldValues),
		NewValues:  nullToEmpty(body.NewValues),
		TenantID:   body.TenantID,
	})
	if err != nil {
		respondServiceError(c, h.log, err, "log audit entry")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// nullToEmpty treats an explicit JSON null like an absent value.
func nullToEmpty(raw json.RawMessage) json.RawMessage {
	if string(raw) == "null" {
		return nil
	}

	return raw
}
