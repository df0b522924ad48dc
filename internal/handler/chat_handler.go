package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/service"
	"github.com/taskguru/taskguru-api/internal/utils"
)

// ChatHandler wires chat endpoints including the websocket upgrade.
type ChatHandler struct {
	service service.ChatService
	logger  zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(service service.ChatService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Post("", h.start)
	router.Get("", h.listConversations)
	router.Get("/:id/messages", h.history)
	router.Post("/:id/messages", h.send)
	router.Patch("/:id/read", h.markRead)

	router.Use("/:id/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/:id/ws", websocket.New(h.handleConnection))
}

func (h *ChatHandler) start(c *fiber.Ctx) error {
	var payload dto.ChatStartRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	chat, err := h.service.StartChat(requestContext(c), uidFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "chat ready", chat)
}

func (h *ChatHandler) listConversations(c *fiber.Ctx) error {
	conversations, err := h.service.ListConversations(requestContext(c), uidFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "conversations retrieved", conversations)
}

func (h *ChatHandler) history(c *fiber.Ctx) error {
	chatID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var beforePtr *time.Time
	if before := c.Query("before"); before != "" {
		parsed, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid before timestamp")
		}
		beforePtr = &parsed
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	messages, err := h.service.History(requestContext(c), chatID, uidFromContext(c), dto.ChatHistoryQuery{
		Before: beforePtr,
		Limit:  limit,
	})
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "chat history", messages)
}

func (h *ChatHandler) send(c *fiber.Ctx) error {
	chatID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.MessageSendRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.service.SendMessage(requestContext(c), chatID, uidFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *ChatHandler) markRead(c *fiber.Ctx) error {
	chatID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.MarkChatRead(requestContext(c), chatID, uidFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "chat marked read", nil)
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	uid := websocketUserUID(conn)
	if uid == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	chatID, err := websocketChatID(conn)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "invalid chat id"))
		_ = conn.Close()
		return
	}

	correlation := fmt.Sprint(conn.Locals("correlation_id"))
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.ChatConnectionOptions{
		UserUID:       uid,
		ChatID:        chatID,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Str("uid", uid).Uint("chat_id", chatID).Msg("chat websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("uid", uid).Uint("chat_id", chatID).Msg("chat websocket disconnected")
}

func (h *ChatHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrChatNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "chat not found")
	case errors.Is(err, service.ErrChatForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "not a member of this chat")
	case errors.Is(err, service.ErrSelfChat):
		return utils.SendError(c, fiber.StatusBadRequest, "cannot start a chat with yourself")
	case errors.Is(err, service.ErrMessageEmpty):
		return utils.SendError(c, fiber.StatusBadRequest, "message is empty")
	default:
		h.logger.Error().Err(err).Msg("chat request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func websocketUserUID(conn *websocket.Conn) string {
	if value := conn.Locals("uid"); value != nil {
		if uid, ok := value.(string); ok {
			return strings.TrimSpace(uid)
		}
	}
	return ""
}

func websocketChatID(conn *websocket.Conn) (uint, error) {
	value := strings.TrimSpace(conn.Params("id"))
	if value == "" {
		return 0, errors.New("chat id required")
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.New("invalid chat id")
	}
	return uint(parsed), nil
}
