package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/config"
	"github.com/taskguru/taskguru-api/internal/database"
	"github.com/taskguru/taskguru-api/internal/handler"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/repository"
	"github.com/taskguru/taskguru-api/internal/router"
	"github.com/taskguru/taskguru-api/internal/service"
)

// setupTestApp builds the full application around an in-memory database.
// Optional integrations (redis, nats, push, stripe, cloudinary) stay nil so
// every service runs in its degraded local mode.
func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	chatRepo := repository.NewChatRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, userRepo, nil, nil, "", nil, logger)
	authService := service.NewAuthService(userRepo, validate, "test-secret", "test-refresh-secret", logger)
	userService := service.NewUserService(userRepo, validate, logger)
	taskService := service.NewTaskService(taskRepo, applicationRepo, userRepo, notificationService, validate, logger)
	applicationService := service.NewApplicationService(applicationRepo, taskRepo, userRepo, notificationService, validate, logger)
	chatService := service.NewChatService(chatRepo, userRepo, notificationService, nil, "", nil, validate, logger)
	feedService := service.NewFeedService(applicationRepo, chatRepo, taskRepo, userRepo, logger)
	dashboardService := service.NewDashboardService(taskRepo, applicationRepo, chatRepo, reviewRepo, userRepo, nil, time.Minute, logger)
	reviewService := service.NewReviewService(reviewRepo, taskRepo, userRepo, validate, logger)
	paymentService := service.NewPaymentService(nil, paymentRepo, taskRepo, validate, "bwp", logger)
	uploadService := service.NewUploadService(nil, uploadRepo, logger)
	adminService := service.NewAdminService(userRepo, taskRepo, activityRepo, notificationService, logger)

	app := fiber.New()

	router.Register(app, config.Config{AppName: "TaskGuru Test"}, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		TaskHandler:         handler.NewTaskHandler(taskService, logger),
		ApplicationHandler:  handler.NewApplicationHandler(applicationService, logger),
		ChatHandler:         handler.NewChatHandler(chatService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, feedService, logger, time.Second),
		DashboardHandler:    handler.NewDashboardHandler(dashboardService, logger),
		ReviewHandler:       handler.NewReviewHandler(reviewService, logger),
		PaymentHandler:      handler.NewPaymentHandler(paymentService, logger),
		UploadHandler:       handler.NewUploadHandler(uploadService, logger),
		AdminHandler:        handler.NewAdminHandler(adminService, logger),
		JWTMiddleware:       testIdentity,
	})

	return app, db
}

// testIdentity substitutes the JWT middleware in tests: the caller identity
// is taken from request headers instead of a signed token.
func testIdentity(c *fiber.Ctx) error {
	if uid := c.Get("X-Test-UID"); uid != "" {
		c.Locals("uid", uid)
	}
	if role := c.Get("X-Test-Role"); role != "" {
		c.Locals("user_role", role)
	}
	return c.Next()
}

func seedAccount(t *testing.T, db *gorm.DB, uid, role, email, firstName, lastName string) models.User {
	t.Helper()

	user := models.User{
		UID:                  uid,
		Role:                 role,
		Email:                email,
		PasswordHash:         "not-a-real-hash",
		FirstName:            firstName,
		LastName:             lastName,
		NotificationsEnabled: true,
		IsActive:             true,
	}
	user.DisplayName = service.ResolveDisplayName(user)
	require.NoError(t, db.Create(&user).Error)
	return user
}

func jsonRequest(t *testing.T, method, target string, payload interface{}, uid, role string) *http.Request {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != "" {
		req.Header.Set("X-Test-UID", uid)
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	return req
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}
