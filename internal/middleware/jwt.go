package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/requestctx"
	"github.com/noah-isme/gema-exam-api/internal/utils"
)

// JWTProtected returns a middleware that validates JWT bearer tokens and binds
// the caller identity {user_id, role, entity_id} to the request.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return unauthenticated(c, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return unauthenticated(c, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return unauthenticated(c, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return unauthenticated(c, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthenticated(c, "invalid token claims")
		}

		userID := extractUintClaim(claims, "sub", "user_id", "id")
		role := extractUserRoleFromClaims(claims)
		if userID == nil || role == "" {
			return unauthenticated(c, "token is missing subject or role")
		}

		identity := requestctx.Identity{UserID: *userID, Role: role}
		if entityID := extractUintClaim(claims, "entity_id", "entityId"); entityID != nil {
			identity.EntityID = *entityID
		}

		BindIdentity(c, identity)
		return c.Next()
	}
}

// BindIdentity stores the caller on the fiber context and its user context.
func BindIdentity(c *fiber.Ctx, identity requestctx.Identity) {
	c.Locals("user_id", identity.UserID)
	c.Locals("user_role", identity.Role)
	c.Locals("entity_id", identity.EntityID)
	c.SetUserContext(requestctx.WithIdentity(c.UserContext(), identity))
}

func unauthenticated(c *fiber.Ctx, message string) error {
	return utils.SendError(c, fiber.StatusUnauthorized, apperror.CodeAuthenticationFailed, message)
}

func extractUintClaim(claims jwt.MapClaims, keys ...string) *uint {
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if normalized, err := normalizeUint(value); err == nil {
				return &normalized
			}
		}
	}

	return nil
}

func normalizeUint(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}

func extractUserRoleFromClaims(claims jwt.MapClaims) string {
	candidates := []string{"role", "roles"}
	for _, key := range candidates {
		if value, ok := claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToUpper(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				role := strings.ToUpper(strings.TrimSpace(str))
				if role != "" {
					return role
				}
			}
		}
	default:
		return ""
	}
	return ""
}
