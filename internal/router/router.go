package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/taskguru/taskguru-api/internal/config"
	"github.com/taskguru/taskguru-api/internal/handler"
	"github.com/taskguru/taskguru-api/internal/middleware"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	TaskHandler         *handler.TaskHandler
	ApplicationHandler  *handler.ApplicationHandler
	ChatHandler         *handler.ChatHandler
	NotificationHandler *handler.NotificationHandler
	DashboardHandler    *handler.DashboardHandler
	ReviewHandler       *handler.ReviewHandler
	PaymentHandler      *handler.PaymentHandler
	UploadHandler       *handler.UploadHandler
	AdminHandler        *handler.AdminHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("auth", 20, time.Minute))
		deps.AuthHandler.Register(auth)
	}

	if deps.UserHandler != nil {
		users := api.Group("/users", jwtMiddleware)
		deps.UserHandler.Register(users)
	}

	if deps.TaskHandler != nil {
		tasks := api.Group("/tasks", jwtMiddleware)
		deps.TaskHandler.Register(tasks)

		// Applying and listing applicants live under the task resource.
		if deps.ApplicationHandler != nil {
			deps.ApplicationHandler.RegisterTaskRoutes(tasks)
		}
	}

	if deps.ApplicationHandler != nil {
		applications := api.Group("/applications", jwtMiddleware)
		deps.ApplicationHandler.Register(applications)
	}

	if deps.ChatHandler != nil {
		chats := api.Group("/chats", jwtMiddleware)
		deps.ChatHandler.Register(chats)
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}

	if deps.DashboardHandler != nil {
		dashboard := api.Group("/dashboard", jwtMiddleware)
		deps.DashboardHandler.Register(dashboard)
	}

	if deps.ReviewHandler != nil {
		reviews := api.Group("/reviews", jwtMiddleware)
		deps.ReviewHandler.Register(reviews)
	}

	if deps.PaymentHandler != nil {
		payments := api.Group("/payments", jwtMiddleware, middleware.RateLimit("payments", 30, time.Minute))
		deps.PaymentHandler.Register(payments)
	}

	if deps.UploadHandler != nil {
		uploads := api.Group("/uploads", jwtMiddleware, middleware.RateLimit("uploads", 60, time.Minute))
		deps.UploadHandler.Register(uploads)
	}

	if deps.AdminHandler != nil {
		admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(models.RoleAdmin))
		deps.AdminHandler.Register(admin)
	}
}
