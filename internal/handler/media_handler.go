package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-exam-api/internal/service"
	"github.com/noah-isme/gema-exam-api/internal/utils"
)

// MediaHandler accepts question media uploads.
type MediaHandler struct {
	service service.MediaService
	logger  zerolog.Logger
}

// NewMediaHandler constructs a media handler.
func NewMediaHandler(service service.MediaService, logger zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		service: service,
		logger:  logger.With().Str("component", "media_handler").Logger(),
	}
}

// Register wires media routes.
func (h *MediaHandler) Register(router fiber.Router) {
	router.Post("", h.upload)
}

func (h *MediaHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}

	asset, err := h.service.Upload(c.UserContext(), actorFromContext(c), file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMediaTooLarge), errors.Is(err, service.ErrMediaTypeNotAllowed):
			return badRequest(c, err.Error())
		case errors.Is(err, service.ErrMediaStorageDisabled):
			return utils.SendError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", err.Error())
		default:
			return respondError(c, h.logger, err)
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, CodeMediaUploaded, "Media uploaded", asset)
}
