package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/taskguru/taskguru-api/internal/service"
	"github.com/taskguru/taskguru-api/internal/utils"
)

// UploadHandler wires image upload routes.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register attaches upload endpoints to the router group.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Post("", h.upload)
	router.Get("", h.listMine)
}

func (h *UploadHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	response, err := h.service.Upload(requestContext(c), uidFromContext(c), c.FormValue("kind"), file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "file uploaded", response)
}

func (h *UploadHandler) listMine(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	uploads, err := h.service.ListMine(requestContext(c), uidFromContext(c), limit)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "uploads retrieved", uploads)
}

func (h *UploadHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUploadsUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "uploads are not configured")
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "file exceeds the maximum allowed size")
	case errors.Is(err, service.ErrUploadNotImage):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, "only image files are accepted")
	case errors.Is(err, service.ErrUploadInvalidKind):
		return utils.SendError(c, fiber.StatusBadRequest, "unknown upload kind")
	default:
		h.logger.Error().Err(err).Msg("upload request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
