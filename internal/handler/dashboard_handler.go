package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/taskguru/taskguru-api/internal/middleware"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/observability"
	"github.com/taskguru/taskguru-api/internal/service"
	"github.com/taskguru/taskguru-api/internal/utils"
)

// DashboardHandler wires the role-specific dashboard routes.
type DashboardHandler struct {
	service service.DashboardService
	logger  zerolog.Logger
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service service.DashboardService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Register attaches the dashboard endpoints to the router group.
func (h *DashboardHandler) Register(router fiber.Router) {
	router.Get("/client", middleware.RequireRole(models.RoleClient), h.client)
	router.Get("/tasker", middleware.RequireRole(models.RoleTasker), h.tasker)
	router.Get("/admin", middleware.RequireRole(models.RoleAdmin), h.admin)
}

func (h *DashboardHandler) client(c *fiber.Ctx) error {
	dashboard, err := h.service.Client(requestContext(c), uidFromContext(c))
	if err != nil {
		h.logger.Error().Err(err).Msg("client dashboard failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}

func (h *DashboardHandler) tasker(c *fiber.Ctx) error {
	dashboard, err := h.service.Tasker(requestContext(c), uidFromContext(c))
	if err != nil {
		h.logger.Error().Err(err).Msg("tasker dashboard failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}

func (h *DashboardHandler) admin(c *fiber.Ctx) error {
	dashboard, err := h.service.Admin(requestContext(c))
	if err != nil {
		observability.AdminErrors().WithLabelValues(c.Method(), c.Path(), "500").Inc()
		h.logger.Error().Err(err).Msg("admin dashboard failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}
