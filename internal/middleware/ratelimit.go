package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"printdock.app/api/internal/apperr"
)

// LimiterStore returns a redis backed store shared by every instance when client is
// set, otherwise a per-process memory store.
func LimiterStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memory.NewStore(), nil
	}
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "printdock_limiter",
	})
	if err != nil {
		return nil, fmt.Errorf("redis limiter store: %w", err)
	}
	return store, nil
}

// RateLimiter returns a Gin middleware that rate-limits requests by client IP.
// Format examples: "5-M" (5/min), "10-H" (10/hour), "1-S" (1/sec).
func RateLimiter(formatted string, store limiter.Store) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate format '%s': %w", formatted, err)
	}
	instance := limiter.New(store, rate)
	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			Abort(c, apperr.ErrTooManyRequests)
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			Abort(c, apperr.Unexpected("rate limiter", err))
		}),
	), nil
}
