package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/utils"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginmiddleware "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimiter builds per-route limiters. With a nil redis client the counters
// live in process memory.
type RateLimiter struct {
	rdb *redis.Client
}

func NewRateLimiterFactory(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

// rateKey identifies the caller: the authenticated user when there is one,
// otherwise the client IP.
func rateKey(c *gin.Context) string {
	if user := utils.GetCurrentUser(c); user != nil {
		return user.ID
	}
	return c.ClientIP()
}

func (rl *RateLimiter) store(routeID string, period time.Duration) (limiter.Store, error) {
	options := limiter.StoreOptions{
		Prefix:          fmt.Sprintf("rate_limiter:%s", routeID),
		MaxRetry:        3,
		CleanUpInterval: period,
	}

	if rl.rdb == nil {
		return memorystore.NewStoreWithOptions(options), nil
	}

	store, err := redisstore.NewStoreWithOptions(rl.rdb, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis store for route %s: %w", routeID, err)
	}
	return store, nil
}

// ParseCustomRate allows formats like "10-2m", "30-20m", "5-1h", "20-10s".
func ParseCustomRate(rateStr string) (limiter.Rate, error) {
	parts := strings.Split(rateStr, "-")
	if len(parts) != 2 {
		return limiter.Rate{}, fmt.Errorf("invalid rate format: %s", rateStr)
	}

	limit, err := strconv.Atoi(parts[0])
	if err != nil || limit <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid limit: %s", parts[0])
	}

	durationStr := parts[1]
	var unit time.Duration

	switch {
	case strings.HasSuffix(durationStr, "s"):
		unit = time.Second
	case strings.HasSuffix(durationStr, "m"):
		unit = time.Minute
	case strings.HasSuffix(durationStr, "h"):
		unit = time.Hour
	default:
		return limiter.Rate{}, fmt.Errorf("unsupported period: %s", durationStr)
	}

	n, err := strconv.Atoi(durationStr[:len(durationStr)-1])
	if err != nil || n <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid duration: %s", durationStr)
	}

	return limiter.Rate{
		Period: time.Duration(n) * unit,
		Limit:  int64(limit),
	}, nil
}

// Limit returns middleware enforcing rateStr (e.g. "10-2m") for routeID.
func (rl *RateLimiter) Limit(rateStr, routeID string) gin.HandlerFunc {
	rate, err := ParseCustomRate(rateStr)
	if err != nil {
		logger.ErrorLogger.Errorf("Error parsing rate for route %s: %v", routeID, err)
		return func(c *gin.Context) { c.Next() }
	}

	store, err := rl.store(routeID, rate.Period)
	if err != nil {
		logger.ErrorLogger.Errorf("Error creating rate limit store for route %s: %v", routeID, err)
		return func(c *gin.Context) { c.Next() }
	}

	return ginmiddleware.NewMiddleware(limiter.New(store, rate), ginmiddleware.WithKeyGetter(rateKey))
}

// Combined applies several rates to the same route; the first exceeded one aborts.
func (rl *RateLimiter) Combined(routeID string, rateStrings ...string) gin.HandlerFunc {
	var limiters []*limiter.Limiter
	for i, rateStr := range rateStrings {
		rate, err := ParseCustomRate(rateStr)
		if err != nil {
			logger.ErrorLogger.Errorf("Error parsing rate for route %s: %v", routeID, err)
			continue
		}
		store, err := rl.store(fmt.Sprintf("%s_%d", routeID, i), rate.Period)
		if err != nil {
			logger.ErrorLogger.Errorf("Error creating rate limit store for route %s: %v", routeID, err)
			continue
		}
		limiters = append(limiters, limiter.New(store, rate))
	}

	return func(c *gin.Context) {
		key := rateKey(c)
		for _, l := range limiters {
			lc, err := l.Get(c, key)
			if err != nil {
				logger.WarnLogger.Warnf("Rate limiter unavailable for route %s: %v", routeID, err)
				continue
			}
			if lc.Reached {
				c.Header("Retry-After", strconv.FormatInt(max(lc.Reset-time.Now().Unix(), 1), 10))
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please slow down."})
				return
			}
		}
		c.Next()
	}
}
