package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/auditrail/internal/capture"
)

// Identity headers read by AuditIdentity.
const (
	ActorHeader  = "X-Actor-ID"
	TenantHeader = "X-Tenant-ID"
)

const maxIdentityLen = 255

// AuditIdentity copies the caller's actor and tenant headers into the request
// context, where the default capture resolvers pick them up. Identity is
// asserted by the calling service; no authentication happens here.
func AuditIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader(ActorHeader)
		tenant := c.GetHeader(TenantHeader)

		if len(actor) > maxIdentityLen || len(tenant) > maxIdentityLen {
			respondError(c, http.StatusBadRequest, "invalid_request", "identity header exceeds maximum length of 255")
			return
		}

		ctx := c.Request.Context()
		if actor != "" {
			ctx = capture.WithActor(ctx, actor)
		}

		if tenant != "" {
			ctx = capture.WithTenant(ctx, tenant)
			c.Set("tenant_id", tenant)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
