package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/middleware"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/service"
	"github.com/taskguru/taskguru-api/internal/utils"
)

// ApplicationHandler wires task application routes.
type ApplicationHandler struct {
	service service.ApplicationService
	logger  zerolog.Logger
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(service service.ApplicationService, logger zerolog.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		service: service,
		logger:  logger.With().Str("component", "application_handler").Logger(),
	}
}

// Register attaches application endpoints. Task-scoped routes live under the
// tasks group; RegisterTaskRoutes attaches those.
func (h *ApplicationHandler) Register(router fiber.Router) {
	router.Get("/mine", middleware.RequireRole(models.RoleTasker), h.listMine)
	router.Delete("/:id", middleware.RequireRole(models.RoleTasker), h.withdraw)
	router.Patch("/:id/seen", middleware.RequireRole(models.RoleTasker), h.markSeen)
}

// RegisterTaskRoutes attaches the apply and list endpoints under /tasks/:id.
func (h *ApplicationHandler) RegisterTaskRoutes(router fiber.Router) {
	router.Post("/:id/applications", middleware.RequireRole(models.RoleTasker), h.apply)
	router.Get("/:id/applications", middleware.RequireRole(models.RoleClient), h.listByTask)
}

func (h *ApplicationHandler) apply(c *fiber.Ctx) error {
	taskID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ApplicationCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	application, err := h.service.Apply(requestContext(c), taskID, uidFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "application submitted", application)
}

func (h *ApplicationHandler) withdraw(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Withdraw(requestContext(c), id, uidFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "application withdrawn", nil)
}

func (h *ApplicationHandler) listByTask(c *fiber.Ctx) error {
	taskID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	applications, err := h.service.ListByTask(requestContext(c), taskID, uidFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "applications retrieved", applications)
}

func (h *ApplicationHandler) listMine(c *fiber.Ctx) error {
	applications, err := h.service.ListMine(requestContext(c), uidFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "applications retrieved", applications)
}

func (h *ApplicationHandler) markSeen(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.MarkSeen(requestContext(c), id, uidFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "application marked seen", nil)
}

func (h *ApplicationHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrApplicationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "application not found")
	case errors.Is(err, service.ErrApplicationForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "not allowed to modify this application")
	case errors.Is(err, service.ErrAlreadyApplied):
		return utils.SendError(c, fiber.StatusConflict, "already applied to this task")
	case errors.Is(err, service.ErrApplicationNotOpen):
		return utils.SendError(c, fiber.StatusConflict, "application is no longer pending")
	case errors.Is(err, service.ErrTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrTaskNotOpen):
		return utils.SendError(c, fiber.StatusConflict, "task is no longer open")
	case errors.Is(err, service.ErrTaskForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "not allowed to view these applications")
	default:
		h.logger.Error().Err(err).Msg("application request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
