package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewRateLimiter creates a Gin middleware for rate limiting.
// rateFormat uses the limiter notation, e.g. "300-M" for 300 requests per minute.
// When redisURL is empty the limiter keeps counters in process memory, which
// is fine for a single instance. Multi-instance deployments need Redis so the
// sync endpoints see one shared budget per client.
func NewRateLimiter(rateFormat, redisURL string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(rateFormat)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rateFormat, err)
	}

	var store limiter.Store
	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix: "gymkeep:ratelimit",
		})
		if err != nil {
			return nil, fmt.Errorf("create redis rate limit store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	instance := limiter.New(store, rate)
	return mgin.NewMiddleware(instance), nil
}
