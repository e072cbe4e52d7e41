package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goldbooks/backend/internal/interfaces/http/dto"
	"github.com/google/uuid"
)

// TenantHeader carries the caller's tenant
const TenantHeader = "X-Tenant-ID"

const tenantContextKey = "tenant_id"

// defaultTenantID is used when no tenant header is present, for development
// and single-tenant deployments.
var defaultTenantID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Tenant resolves the tenant for the request. A malformed tenant ID aborts
// with 400; a missing one falls back to the default tenant.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(TenantHeader)
		if raw == "" {
			c.Set(tenantContextKey, defaultTenantID)
			c.Next()
			return
		}

		tenantID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponse("INVALID_TENANT", "Tenant ID must be a valid UUID"))
			return
		}

		c.Set(tenantContextKey, tenantID)
		c.Next()
	}
}

// GetTenantID returns the tenant resolved by the Tenant middleware
func GetTenantID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(tenantContextKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return defaultTenantID
}
