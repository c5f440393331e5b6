package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// BookingRateLimit caps booking requests per account per minute using Redis
// if available. Without Redis, or on cache errors, it fails open: a missed
// throttle is cheaper than a blocked merchant.
func BookingRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 30
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		var req struct {
			AccountID string `json:"account_id"`
		}
		_ = c.BodyParser(&req)
		accountID := strings.TrimSpace(req.AccountID)
		if accountID == "" {
			accountID = c.IP()
		}
		key := "rl:booking:" + accountID
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if err != nil {
			return c.Next()
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "booking rate limit exceeded, slow down")
		}
		return c.Next()
	}
}
