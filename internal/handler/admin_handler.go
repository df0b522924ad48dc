package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/taskguru/taskguru-api/internal/observability"
	"github.com/taskguru/taskguru-api/internal/repository"
	"github.com/taskguru/taskguru-api/internal/service"
	"github.com/taskguru/taskguru-api/internal/utils"
)

// AdminHandler wires moderation routes. All routes require the admin role;
// the router attaches that middleware.
type AdminHandler struct {
	service service.AdminService
	logger  zerolog.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(service service.AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register attaches admin endpoints to the router group.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Use(h.instrument)
	router.Get("/users", h.listUsers)
	router.Patch("/users/:uid/active", h.setUserActive)
	router.Delete("/users/:uid", h.deleteUser)
	router.Delete("/tasks/:id", h.deleteTask)
	router.Get("/activity", h.activityLogs)
}

func (h *AdminHandler) instrument(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	route := c.Route().Path
	observability.AdminRequests().WithLabelValues(c.Method(), route, statusLabel(status)).Inc()
	observability.AdminLatency().WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
	if status >= fiber.StatusInternalServerError {
		observability.AdminErrors().WithLabelValues(c.Method(), route, statusLabel(status)).Inc()
	}

	return err
}

func (h *AdminHandler) listUsers(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	users, total, err := h.service.ListUsers(requestContext(c), c.Query("search"), limit, offset)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, users, "users retrieved", fiber.Map{"total": total})
}

func (h *AdminHandler) setUserActive(c *fiber.Ctx) error {
	targetUID := strings.TrimSpace(c.Params("uid"))
	if targetUID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "user uid required")
	}

	var payload struct {
		Active bool `json:"active"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.SetUserActive(requestContext(c), uidFromContext(c), targetUID, payload.Active); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "user updated", nil)
}

func (h *AdminHandler) deleteUser(c *fiber.Ctx) error {
	targetUID := strings.TrimSpace(c.Params("uid"))
	if targetUID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "user uid required")
	}

	if err := h.service.DeleteUser(requestContext(c), uidFromContext(c), targetUID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "user deleted", nil)
}

func (h *AdminHandler) deleteTask(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteTask(requestContext(c), uidFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task deleted", nil)
}

func (h *AdminHandler) activityLogs(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	filter := repository.ActivityLogFilter{
		Page:       page,
		PageSize:   pageSize,
		ActorUID:   c.Query("actor_uid"),
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
	}

	logs, total, err := h.service.ActivityLogs(requestContext(c), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, logs, "activity retrieved", fiber.Map{"total": total})
}

func (h *AdminHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrAdminSelfTarget):
		return utils.SendError(c, fiber.StatusConflict, "cannot modify your own account")
	default:
		h.logger.Error().Err(err).Msg("admin request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
