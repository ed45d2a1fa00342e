// gfgchapter/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gfgchapter/config"
	"gfgchapter/database"
	"gfgchapter/handlers"
	"gfgchapter/middleware"
	"gfgchapter/services"
	"gfgchapter/utils"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("FATAL: %v", err)
	}
	utils.InitLogger(cfg.LogLevel, cfg.IsProduction())
	logrus.WithFields(cfg.LogFields()).Info("Configuration loaded")

	flushSentry, err := utils.InitSentry(cfg.SentryDSN, cfg.Environment)
	if err != nil {
		logrus.WithError(err).Warn("Sentry initialization failed, continuing without error reporting")
	}
	defer flushSentry()

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}

	// Change feed, settings cache and limiter storage are shared through
	// Redis when it is enabled so several instances stay consistent.
	var (
		feed        services.ChangeFeed
		cache       services.SettingsCache
		authStorage fiber.Storage
		rdb         *redis.Client
	)
	if cfg.Redis.Enabled {
		rdb = services.NewRedisClient(cfg.Redis)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logrus.WithError(err).Fatal("Failed to connect to Redis")
		}
		feed = services.NewRedisFeed(rdb, cfg.Redis.Prefix)
		cache = services.NewRedisSettingsCache(rdb, cfg.Redis.Prefix, cfg.SettingsCacheTTL)
		authStorage = middleware.NewRedisStorage(rdb, cfg.Redis.Prefix)
		logrus.WithField("address", cfg.Redis.Address).Info("✅ Redis connected")
	} else {
		feed = services.NewLocalFeed()
		cache = services.NewMemorySettingsCache(cfg.SettingsCacheTTL)
	}

	retry := services.RetryPolicyFromConfig(cfg.Retry)
	threads := services.NewThreadService(db, feed, retry)
	svc := handlers.Services{
		DB:        db,
		Teams:     services.NewTeamService(db),
		Threads:   threads,
		Messages:  services.NewMessageService(db, feed, retry),
		Lifecycle: services.NewThreadLifecycle(threads),
		Users:     services.NewUserService(db, cache, retry),
	}
	middleware.ConfigureAuth(cfg.JWTSecret, svc.Users)
	handlers.InitHandlers(svc, cfg.JWTSecret, cfg.TokenTTL)

	// Initialize counter reconciliation
	reconciler := services.NewCounterReconciler(db, feed, cfg.ReconcileSchedule)
	if err := reconciler.Start(); err != nil {
		logrus.WithError(err).Fatal("Failed to start counter reconciler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	limiter.StartCleanup(ctx)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler(cfg),
		BodyLimit:    1 * 1024 * 1024, // 1MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	handlers.SetupRoutes(app, handlers.RouteConfig{
		RateLimit:   cfg.RateLimit,
		Limiter:     limiter,
		AuthStorage: authStorage,
	})

	go func() {
		<-ctx.Done()
		logrus.Info("Shutting down...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.WithError(err).Warn("HTTP shutdown did not complete cleanly")
		}
	}()

	logrus.Infof("🚀 HTTP server starting on port %s", cfg.Port)
	logrus.Infof("📊 Environment: %s", cfg.Environment)
	logrus.Infof("🌐 WebSocket available at ws://localhost:%s/ws", cfg.Port)

	if err := app.Listen(":" + cfg.Port); err != nil {
		logrus.WithError(err).Error("HTTP server stopped")
	}

	reconciler.Stop()
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close Redis client")
		}
	}
	if err := database.CloseDB(); err != nil {
		logrus.WithError(err).Warn("Failed to close database")
	}
}

func customErrorHandler(cfg config.Config) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}

		// Don't expose internal errors in production
		if cfg.IsProduction() && code == 500 {
			message = "An error occurred. Please try again later."
		}
		if code >= 500 {
			utils.LogError("unhandled_error", err, map[string]interface{}{
				"method": c.Method(),
				"path":   c.Path(),
			})
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
}
