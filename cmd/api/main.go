package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/taskguru/taskguru-api/internal/config"
	"github.com/taskguru/taskguru-api/internal/database"
	"github.com/taskguru/taskguru-api/internal/handler"
	"github.com/taskguru/taskguru-api/internal/middleware"
	"github.com/taskguru/taskguru-api/internal/repository"
	"github.com/taskguru/taskguru-api/internal/router"
	"github.com/taskguru/taskguru-api/internal/service"
	cloud "github.com/taskguru/taskguru-api/pkg/cloudinary"
	"github.com/taskguru/taskguru-api/pkg/fcm"
	"github.com/taskguru/taskguru-api/pkg/payments"
)

// channelBase prefixes the redis pub/sub channels and NATS subjects used for fanout.
const channelBase = "taskguru"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, caching and cross-node fanout disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	var imageStore service.ImageStore
	if cfg.CloudinaryCloudName != "" {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		imageStore = uploader
	} else {
		logger.Warn().Msg("cloudinary not configured, image uploads disabled")
	}

	var pushSender fcm.Sender
	if cfg.FirebaseCredentials != "" {
		pushSender, err = fcm.New(context.Background(), cfg.FirebaseCredentials, logger)
		if err != nil {
			log.Fatalf("failed to create fcm client: %v", err)
		}
	}

	var intentCreator payments.IntentCreator
	if cfg.StripeSecretKey != "" {
		intentCreator, err = payments.New(cfg.StripeSecretKey, logger)
		if err != nil {
			log.Fatalf("failed to create stripe client: %v", err)
		}
	} else {
		logger.Warn().Msg("stripe not configured, payment intents disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	chatRepo := repository.NewChatRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, userRepo, pushSender, redisClient, channelBase, natsConn, logger)
	authService := service.NewAuthService(userRepo, validate, cfg.JWTSecret, cfg.JWTRefreshSecret, logger)
	userService := service.NewUserService(userRepo, validate, logger)
	taskService := service.NewTaskService(taskRepo, applicationRepo, userRepo, notificationService, validate, logger)
	applicationService := service.NewApplicationService(applicationRepo, taskRepo, userRepo, notificationService, validate, logger)
	chatService := service.NewChatService(chatRepo, userRepo, notificationService, redisClient, channelBase, natsConn, validate, logger)
	feedService := service.NewFeedService(applicationRepo, chatRepo, taskRepo, userRepo, logger)
	dashboardService := service.NewDashboardService(taskRepo, applicationRepo, chatRepo, reviewRepo, userRepo, redisClient, cfg.DashboardCacheTTL, logger)
	reviewService := service.NewReviewService(reviewRepo, taskRepo, userRepo, validate, logger)
	paymentService := service.NewPaymentService(intentCreator, paymentRepo, taskRepo, validate, cfg.StripeCurrency, logger)
	uploadService := service.NewUploadService(imageStore, uploadRepo, logger)
	adminService := service.NewAdminService(userRepo, taskRepo, activityRepo, notificationService, logger)

	consumerCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	notificationService.Start(consumerCtx)
	chatService.Start(consumerCtx)

	deps := router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		TaskHandler:         handler.NewTaskHandler(taskService, logger),
		ApplicationHandler:  handler.NewApplicationHandler(applicationService, logger),
		ChatHandler:         handler.NewChatHandler(chatService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, feedService, logger, 30*time.Second),
		DashboardHandler:    handler.NewDashboardHandler(dashboardService, logger),
		ReviewHandler:       handler.NewReviewHandler(reviewService, logger),
		PaymentHandler:      handler.NewPaymentHandler(paymentService, logger),
		UploadHandler:       handler.NewUploadHandler(uploadService, logger),
		AdminHandler:        handler.NewAdminHandler(adminService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, deps)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopConsumers)
}

func waitForShutdown(app *fiber.App, stopConsumers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	stopConsumers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
