package handler_test

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/models"
)

func TestChatHandlerConversationFlow(t *testing.T) {
	app, db := setupTestApp(t)
	seedAccount(t, db, "uid-client", models.RoleClient, "cara@example.com", "Cara", "Client")
	seedAccount(t, db, "uid-tasker", models.RoleTasker, "tom@example.com", "Tom", "Tasker")

	start := dto.ChatStartRequest{MemberUID: "uid-tasker"}
	resp, err := app.Test(jsonRequest(t, "POST", "/api/v1/chats", start, "uid-client", models.RoleClient))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var opened struct {
		Data    dto.ChatResponse `json:"data"`
		Message string           `json:"message"`
	}
	decodeResponse(t, resp, &opened)
	require.Equal(t, "chat ready", opened.Message)
	require.NotZero(t, opened.Data.ID)
	chatID := opened.Data.ID

	// Starting from the other side returns the same conversation.
	resp, err = app.Test(jsonRequest(t, "POST", "/api/v1/chats", dto.ChatStartRequest{MemberUID: "uid-client"}, "uid-tasker", models.RoleTasker))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var reopened struct {
		Data dto.ChatResponse `json:"data"`
	}
	decodeResponse(t, resp, &reopened)
	require.Equal(t, chatID, reopened.Data.ID)

	send := dto.MessageSendRequest{Text: "Gate code is 4412, come around the back."}
	resp, err = app.Test(jsonRequest(t, "POST", fmt.Sprintf("/api/v1/chats/%d/messages", chatID), send, "uid-client", models.RoleClient))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var sent struct {
		Data dto.MessageResponse `json:"data"`
	}
	decodeResponse(t, resp, &sent)
	require.Equal(t, "uid-client", sent.Data.SenderUID)

	resp, err = app.Test(jsonRequest(t, "GET", "/api/v1/chats", nil, "uid-tasker", models.RoleTasker))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var conversations struct {
		Data []dto.ConversationResponse `json:"data"`
	}
	decodeResponse(t, resp, &conversations)
	require.Len(t, conversations.Data, 1)
	require.Equal(t, "Cara Client", conversations.Data[0].CounterpartName)
	require.EqualValues(t, 1, conversations.Data[0].UnreadCount)

	resp, err = app.Test(jsonRequest(t, "PATCH", fmt.Sprintf("/api/v1/chats/%d/read", chatID), nil, "uid-tasker", models.RoleTasker))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, "GET", "/api/v1/chats", nil, "uid-tasker", models.RoleTasker))
	require.NoError(t, err)
	decodeResponse(t, resp, &conversations)
	require.EqualValues(t, 0, conversations.Data[0].UnreadCount)

	resp, err = app.Test(jsonRequest(t, "GET", fmt.Sprintf("/api/v1/chats/%d/messages?limit=10", chatID), nil, "uid-tasker", models.RoleTasker))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var history struct {
		Data []dto.MessageResponse `json:"data"`
	}
	decodeResponse(t, resp, &history)
	require.Len(t, history.Data, 1)
}

func TestChatHandlerRejectsOutsiders(t *testing.T) {
	app, db := setupTestApp(t)
	seedAccount(t, db, "uid-client", models.RoleClient, "cara@example.com", "Cara", "Client")
	seedAccount(t, db, "uid-tasker", models.RoleTasker, "tom@example.com", "Tom", "Tasker")
	seedAccount(t, db, "uid-other", models.RoleTasker, "nick@example.com", "Nick", "Other")

	resp, err := app.Test(jsonRequest(t, "POST", "/api/v1/chats", dto.ChatStartRequest{MemberUID: "uid-tasker"}, "uid-client", models.RoleClient))
	require.NoError(t, err)

	var opened struct {
		Data dto.ChatResponse `json:"data"`
	}
	decodeResponse(t, resp, &opened)

	send := dto.MessageSendRequest{Text: "let me in"}
	resp, err = app.Test(jsonRequest(t, "POST", fmt.Sprintf("/api/v1/chats/%d/messages", opened.Data.ID), send, "uid-other", models.RoleTasker))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Chatting with yourself is rejected outright.
	resp, err = app.Test(jsonRequest(t, "POST", "/api/v1/chats", dto.ChatStartRequest{MemberUID: "uid-client"}, "uid-client", models.RoleClient))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestChatHandlerRequiresUpgradeForSocket(t *testing.T) {
	app, db := setupTestApp(t)
	seedAccount(t, db, "uid-client", models.RoleClient, "cara@example.com", "Cara", "Client")

	resp, err := app.Test(jsonRequest(t, "GET", "/api/v1/chats/1/ws", nil, "uid-client", models.RoleClient))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
