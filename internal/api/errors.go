package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditrail/internal/httputil"
	"github.com/persistorai/auditrail/internal/metrics"
	"github.com/persistorai/auditrail/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeInternalError  = "internal_error"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondServiceError maps a service error to a response. Validation errors
// surface their message; anything else is logged and hidden behind a 500.
func respondServiceError(c *gin.Context, log *logrus.Logger, err error, op string) {
	if errors.Is(err, models.ErrInvalidArgument) {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	log.WithError(err).WithField("request_id", c.GetString(httputil.RequestIDKey)).Error(op + " failed")
	respondError(c, http.StatusInternalServerError, ErrCodeInternalError, op+" failed")
}
