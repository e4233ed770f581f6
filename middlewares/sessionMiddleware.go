package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/erp_backend/utils"
)

const (
	HeaderCompanyId     = "X-Company-Id"
	HeaderUsername      = "X-Username"
	HeaderCorrelationId = "X-Correlation-Id"

	companyIdKey = "company_id"
)

// SessionMiddleware copies the tenant and actor set by the gateway into the request context.
// Requests without a tenant are rejected.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := strings.TrimSpace(c.GetHeader(HeaderCorrelationId))
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		c.Header(HeaderCorrelationId, correlationId)

		companyId := strings.TrimSpace(c.GetHeader(HeaderCompanyId))
		if companyId == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing " + HeaderCompanyId})
			return
		}
		username := strings.TrimSpace(c.GetHeader(HeaderUsername))

		ctx := utils.SetCompanyIdInContext(c.Request.Context(), companyId)
		ctx = utils.SetUsernameInContext(ctx, username)
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Request = c.Request.WithContext(ctx)
		c.Set(companyIdKey, companyId)
		c.Next()
	}
}
