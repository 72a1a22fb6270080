package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/requestctx"
	"github.com/noah-isme/gema-exam-api/internal/service"
	"github.com/noah-isme/gema-exam-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryUint(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func entityIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("entity_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// actorFromContext prefers the identity bound to the user context and falls
// back to the locals set by the JWT middleware.
func actorFromContext(c *fiber.Ctx) service.Actor {
	if identity, ok := requestctx.IdentityFrom(c.UserContext()); ok {
		return service.Actor{ID: identity.UserID, Role: identity.Role, EntityID: identity.EntityID}
	}
	return service.Actor{
		ID:       userIDFromContext(c),
		Role:     userRoleFromContext(c),
		EntityID: entityIDFromContext(c),
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return utils.SendError(c, fiber.StatusBadRequest, apperror.CodeBadRequest, message)
}

// respondError maps a service failure onto the response envelope.
func respondError(c *fiber.Ctx, base zerolog.Logger, err error) error {
	if appErr, ok := apperror.As(err); ok {
		if appErr.Status >= fiber.StatusInternalServerError {
			logger := requestctx.Logger(c.UserContext(), base)
			logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		}
		return utils.SendError(c, appErr.Status, appErr.Code, appErr.Message)
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return badRequest(c, validationErrors.Error())
	}

	logger := requestctx.Logger(c.UserContext(), base)
	logger.Error().Err(err).Str("path", c.Path()).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, apperror.CodeInternalServerError, "internal server error")
}
