package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gymkeep/gymkeep/internal/entitlement"
	"github.com/gymkeep/gymkeep/internal/metrics"
	"github.com/rs/zerolog"
)

// LimitMiddleware returns a Gin middleware that enforces a resource limit for
// the authenticated user's organization before allowing creation. It checks the
// fresh count against the tier limit and rejects with a 402 upsell payload when
// the organization is at capacity.
//
// The check here is the fast path; the guarded create in the db layer recounts
// inside the transaction, so a request that slips past a concurrent create is
// still rejected.
func LimitMiddleware(guard *entitlement.Guard, key entitlement.LimitKey, syncMetrics *metrics.SyncMetrics, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().
		Str("component", "limit_middleware").
		Str("limit_key", string(key)).
		Logger()

	return func(c *gin.Context) {
		user := GetUser(c)
		if user == nil {
			c.Next()
			return
		}

		result, err := guard.Check(c.Request.Context(), user.OrgID, key)
		if err != nil {
			log.Error().Err(err).Msg("limit check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if !result.Allowed {
			syncMetrics.LimitDenied(string(key))
			LimitExceededResponse(c, result)
			return
		}

		c.Next()
	}
}

// LimitExceededResponse writes the 402 upsell payload for a denied limit
// check and aborts the request. Handlers that hit the in-transaction recount
// use it too, so both rejection paths produce the same body.
func LimitExceededResponse(c *gin.Context, result entitlement.LimitCheckResult) {
	body := gin.H{
		"error":     "limit_exceeded",
		"limit_key": string(result.LimitKey),
		"current":   result.Current,
		"limit":     result.Limit,
		"tier":      string(result.CurrentTier),
		"message":   "You have reached the maximum for your plan. Please upgrade to add more.",
	}
	if result.SuggestedTier != nil {
		body["suggested_tier"] = string(*result.SuggestedTier)
	}
	c.AbortWithStatusJSON(http.StatusPaymentRequired, body)
}
