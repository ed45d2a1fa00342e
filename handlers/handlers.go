// handlers/handlers.go - Shared handler state and error mapping
package handlers

import (
	"errors"
	"time"

	"gfgchapter/services"
	"gfgchapter/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	DB        *gorm.DB
	Teams     *services.TeamService
	Threads   *services.ThreadService
	Messages  *services.MessageService
	Lifecycle *services.ThreadLifecycle
	Users     *services.UserService
}

var (
	db             *gorm.DB
	teamService    *services.TeamService
	threadService  *services.ThreadService
	messageService *services.MessageService
	lifecycle      *services.ThreadLifecycle
	userService    *services.UserService

	tokenSecret string
	tokenTTL    time.Duration
)

// InitHandlers wires the services used by every handler.
func InitHandlers(svc Services, secret string, ttl time.Duration) {
	db = svc.DB
	teamService = svc.Teams
	threadService = svc.Threads
	messageService = svc.Messages
	lifecycle = svc.Lifecycle
	userService = svc.Users
	tokenSecret = secret
	tokenTTL = ttl
}

// respondError maps a store error kind onto an HTTP status.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch services.KindOf(err) {
	case services.KindNotFound:
		status = fiber.StatusNotFound
	case services.KindPermissionDenied:
		status = fiber.StatusForbidden
	case services.KindInvalid:
		status = fiber.StatusBadRequest
	case services.KindTransient:
		status = fiber.StatusServiceUnavailable
	}

	message := "Internal server error"
	var se *services.StoreError
	if errors.As(err, &se) {
		message = se.Message()
	}

	if status >= 500 {
		utils.LogError("request_failed", err, map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
		})
	}
	return utils.JSONError(c, status, message)
}

// badRequest answers a body parse/validation failure.
func badRequest(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.JSONError(c, fe.Code, fe.Message)
	}
	return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
}
