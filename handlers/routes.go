// handlers/routes.go - Route table
package handlers

import (
	"context"
	"time"

	"gfgchapter/config"
	"gfgchapter/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteConfig carries the pieces of config the route table needs.
type RouteConfig struct {
	RateLimit   config.RateLimitConfig
	Limiter     *middleware.RateLimiter
	AuthStorage fiber.Storage
}

// SetupRoutes registers every endpoint on app.
func SetupRoutes(app *fiber.App, rc RouteConfig) {
	if rc.Limiter == nil {
		rc.Limiter = middleware.NewRateLimiter(rc.RateLimit.MaxRequests, rc.RateLimit.Window)
	}
	app.Use(middleware.RateLimitMiddleware(rc.RateLimit, rc.Limiter))

	api := app.Group("/api")

	// Auth routes with stricter rate limiting
	authGroup := api.Group("/auth")
	authGroup.Post("/register", middleware.AuthRateLimiter(rc.RateLimit, rc.AuthStorage), Register)
	authGroup.Post("/login", middleware.AuthRateLimiter(rc.RateLimit, rc.AuthStorage), Login)
	authGroup.Post("/logout", middleware.AuthMiddleware, Logout)

	// User routes (require authentication)
	userGroup := api.Group("/users", middleware.AuthMiddleware)
	userGroup.Get("/me", GetCurrentUser)
	userGroup.Put("/me", UpdateCurrentUser)
	userGroup.Put("/:id/role", middleware.RequireAdmin, SetUserRole)
	userGroup.Post("/:id/credits", middleware.RequireModerator, AwardCredits)

	api.Get("/leaderboard", GetLeaderboard)

	// Team and mentorship routes
	teamGroup := api.Group("/teams", middleware.AuthMiddleware)
	teamGroup.Get("/", GetTeams)
	teamGroup.Get("/:teamId", GetTeam)
	teamGroup.Get("/:teamId/threads", ListThreads)
	teamGroup.Post("/:teamId/threads", CreateThread)
	teamGroup.Get("/:teamId/threads/:threadId", GetThread)
	teamGroup.Delete("/:teamId/threads/:threadId", DeleteThread)
	teamGroup.Put("/:teamId/threads/:threadId/enable", middleware.RequireModerator, EnableThread)
	teamGroup.Put("/:teamId/threads/:threadId/flags", UpdateThreadFlags)
	teamGroup.Get("/:teamId/threads/:threadId/messages", ListMessages)
	teamGroup.Post("/:teamId/threads/:threadId/messages", SendMessage)

	app.Get("/ws", WebSocketUpgrade, middleware.AuthMiddleware, LiveWebSocket)

	app.Get("/health", Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

// Health reports liveness and database reachability
// GET /health
func Health(c *fiber.Ctx) error {
	status := "healthy"
	code := fiber.StatusOK

	if db != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().Unix(),
	})
}
