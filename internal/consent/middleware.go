package consent

import (
	"net/http"
	"time"

	"consentdesk/internal/auth"
	"consentdesk/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RequireSignCapacity caps concurrent in-flight sign requests per tenant.
//
// Term-start stampedes (a whole school signing the same permission slip within
// minutes) should shed load at the edge rather than pile up on document row
// locks. The cap is advisory throughput control only; correctness of the sign
// path never depends on it.
//
// Fail-open: if Redis is unavailable the request proceeds.
func RequireSignCapacity(rdb *redis.Client, limit int, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := auth.TenantID(c.Request.Context())
		if err != nil || tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
			return
		}

		key := "signcap:" + tenantID
		ok, err := utils.AcquireBurstSlot(c.Request.Context(), rdb, key, limit, ttl)
		if err != nil {
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "signing busy, retry shortly"})
			return
		}
		defer func() {
			_ = utils.ReleaseBurstSlot(c.Request.Context(), rdb, key)
		}()

		c.Next()
	}
}
