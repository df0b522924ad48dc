package contract_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/database"
	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/handler"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/repository"
	"github.com/taskguru/taskguru-api/internal/service"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()

	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", name))
	require.NoError(t, err)

	schema, err := jsonschema.NewCompiler().Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func contractDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func identityMiddleware(uid, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("uid", uid)
		c.Locals("user_role", role)
		return c.Next()
	}
}

func seedUser(t *testing.T, db *gorm.DB, uid, role, email, first, last string) {
	t.Helper()

	user := models.User{
		UID:          uid,
		Role:         role,
		Email:        email,
		PasswordHash: "x",
		FirstName:    first,
		LastName:     last,
		IsActive:     true,
	}
	user.DisplayName = service.ResolveDisplayName(user)
	require.NoError(t, db.Create(&user).Error)
}

func validateBody(t *testing.T, schema *jsonschema.Schema, resp *http.Response) {
	t.Helper()

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestNotificationFeedContract(t *testing.T) {
	schema := compileSchema(t, "notification_feed.schema.json")

	db := contractDB(t)
	seedUser(t, db, "uid-client", models.RoleClient, "cara@example.com", "Cara", "Client")
	seedUser(t, db, "uid-tasker", models.RoleTasker, "tom@example.com", "Tom", "Tasker")

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	chatRepo := repository.NewChatRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())
	ctx := context.Background()

	notifications := service.NewNotificationService(notificationRepo, userRepo, nil, nil, "", nil, logger)
	tasks := service.NewTaskService(taskRepo, applicationRepo, userRepo, notifications, validate, logger)
	applications := service.NewApplicationService(applicationRepo, taskRepo, userRepo, notifications, validate, logger)
	feed := service.NewFeedService(applicationRepo, chatRepo, taskRepo, userRepo, logger)

	task, err := tasks.Create(ctx, "uid-client", dto.TaskCreateRequest{
		Title:       "Mount the projector",
		Description: "Ceiling mount and cable run in the meeting room.",
		Category:    "handyman",
		Budget:      280,
	})
	require.NoError(t, err)

	_, err = applications.Apply(ctx, task.ID, "uid-tasker", dto.ApplicationCreateRequest{Message: "Tomorrow works."})
	require.NoError(t, err)

	app := fiber.New()
	app.Use(identityMiddleware("uid-client", models.RoleClient))
	handler.NewNotificationHandler(notifications, feed, logger, time.Second).Register(app.Group("/notifications"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/notifications/feed", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validateBody(t, schema, resp)
}

func TestConversationListContract(t *testing.T) {
	schema := compileSchema(t, "conversations.schema.json")

	db := contractDB(t)
	seedUser(t, db, "uid-client", models.RoleClient, "cara@example.com", "Cara", "Client")
	seedUser(t, db, "uid-tasker", models.RoleTasker, "tom@example.com", "Tom", "Tasker")

	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)

	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())
	ctx := context.Background()

	chats := service.NewChatService(chatRepo, userRepo, nil, nil, "", nil, validate, logger)

	chat, err := chats.StartChat(ctx, "uid-client", dto.ChatStartRequest{MemberUID: "uid-tasker"})
	require.NoError(t, err)

	_, err = chats.SendMessage(ctx, chat.ID, "uid-client", dto.MessageSendRequest{Text: "Can you start Friday?"})
	require.NoError(t, err)

	app := fiber.New()
	app.Use(identityMiddleware("uid-tasker", models.RoleTasker))
	handler.NewChatHandler(chats, logger).Register(app.Group("/chats"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/chats", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validateBody(t, schema, resp)
}
