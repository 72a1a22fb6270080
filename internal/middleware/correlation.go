package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/noah-isme/gema-exam-api/internal/requestctx"
)

const (
	correlationHeader   = "X-Correlation-ID"
	correlationLocalKey = "correlation_id"
)

// CorrelationID middleware ensures every request carries a correlation identifier.
// The id is echoed in the response and bound to the request's user context.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		incoming := strings.TrimSpace(c.Get(correlationHeader))
		if incoming == "" {
			incoming = strings.TrimSpace(c.Get("X-Request-ID"))
		}
		if incoming == "" {
			incoming = uuid.NewString()
		}

		c.Locals(correlationLocalKey, incoming)
		c.Set(correlationHeader, incoming)
		c.SetUserContext(requestctx.WithCorrelationID(c.UserContext(), incoming))

		return c.Next()
	}
}

// GetCorrelationID returns the correlation identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if value := c.Locals(correlationLocalKey); value != nil {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return requestctx.CorrelationID(c.UserContext())
}
