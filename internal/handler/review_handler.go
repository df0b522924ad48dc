package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/middleware"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/service"
	"github.com/taskguru/taskguru-api/internal/utils"
)

// ReviewHandler wires review routes.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches review endpoints to the router group.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Post("", middleware.RequireRole(models.RoleClient), h.create)
	router.Get("/tasker/:uid", h.listByTasker)
}

func (h *ReviewHandler) create(c *fiber.Ctx) error {
	var payload dto.ReviewCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	review, err := h.service.Create(requestContext(c), uidFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "review posted", review)
}

func (h *ReviewHandler) listByTasker(c *fiber.Ctx) error {
	taskerUID := strings.TrimSpace(c.Params("uid"))
	if taskerUID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "tasker uid required")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	reviews, err := h.service.ListByTasker(requestContext(c), taskerUID, limit, offset)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "reviews retrieved", reviews)
}

func (h *ReviewHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrTaskForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "only the task owner can review")
	case errors.Is(err, service.ErrTaskNotCompleted):
		return utils.SendError(c, fiber.StatusConflict, "task is not completed")
	case errors.Is(err, service.ErrAlreadyReviewed):
		return utils.SendError(c, fiber.StatusConflict, "task already reviewed")
	default:
		h.logger.Error().Err(err).Msg("review request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
