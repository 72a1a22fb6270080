package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/requestctx"
	"github.com/noah-isme/gema-exam-api/internal/utils"
)

const (
	defaultRateLimitMax    = 10
	defaultRateLimitWindow = time.Second
)

// RateLimit throttles each caller within a named bucket. Authenticated callers
// are keyed by tenant and user, anonymous ones by IP.
func RateLimit(bucket string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = defaultRateLimitMax
	}
	if window <= 0 {
		window = defaultRateLimitWindow
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return bucket + ":" + rateLimitKey(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, apperror.CodeTooManyRequests, "too many requests, slow down")
		},
	})
}

func rateLimitKey(c *fiber.Ctx) string {
	if identity, ok := requestctx.IdentityFrom(c.UserContext()); ok && identity.UserID != 0 {
		return fmt.Sprintf("%d:%d", identity.EntityID, identity.UserID)
	}
	if value := c.Locals("user_id"); value != nil {
		if id := fmt.Sprintf("%v", value); id != "" && id != "0" {
			return "u:" + id
		}
	}
	return "ip:" + c.IP()
}
