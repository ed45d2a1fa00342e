// middleware/auth.go
package middleware

import (
	"context"
	"strings"

	"gfgchapter/models"
	"gfgchapter/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ActorResolver loads the canonical caller identity for a user id, failing
// with PermissionDenied once that session version has been logged out.
type ActorResolver interface {
	SessionActor(ctx context.Context, userID string, version int) (models.Actor, error)
}

var (
	jwtSecret string
	actors    ActorResolver
)

// ConfigureAuth sets the signing secret and the actor lookup used by AuthMiddleware.
func ConfigureAuth(secret string, resolver ActorResolver) {
	jwtSecret = secret
	actors = resolver
}

// AuthMiddleware accepts a Bearer token, or a token query parameter for
// WebSocket upgrades, and stores the caller in Locals.
func AuthMiddleware(c *fiber.Ctx) error {
	tokenString := ""
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(401).JSON(fiber.Map{"success": false, "error": "Invalid authorization header format"})
		}
		tokenString = parts[1]
	} else {
		tokenString = c.Query("token")
	}
	if tokenString == "" {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Missing authorization header"})
	}

	claims, err := ParseToken(jwtSecret, tokenString)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Invalid or expired token"})
	}

	actor, err := actors.SessionActor(c.UserContext(), claims.UserID, claims.Version)
	if err != nil {
		switch services.KindOf(err) {
		case services.KindNotFound:
			return c.Status(401).JSON(fiber.Map{"success": false, "error": "User no longer exists"})
		case services.KindPermissionDenied:
			return c.Status(401).JSON(fiber.Map{"success": false, "error": "Session ended, please log in again"})
		}
		logrus.WithError(err).WithField("user_id", claims.UserID).Error("actor lookup failed")
		return c.Status(503).JSON(fiber.Map{"success": false, "error": "service temporarily unavailable, please retry"})
	}

	c.Locals("userId", actor.ID)
	c.Locals("actor", actor)
	return c.Next()
}

// RequireModerator lets team leads and admins through.
func RequireModerator(c *fiber.Ctx) error {
	actor, err := GetActor(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	if !actor.Role.CanModerate() {
		return c.Status(403).JSON(fiber.Map{"success": false, "error": "Access denied. Team lead privileges required."})
	}
	return c.Next()
}

// RequireAdmin lets admins through.
func RequireAdmin(c *fiber.Ctx) error {
	actor, err := GetActor(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	if actor.Role != models.RoleAdmin {
		return c.Status(403).JSON(fiber.Map{"success": false, "error": "Access denied. Admin privileges required."})
	}
	return c.Next()
}

func GetActor(c *fiber.Ctx) (models.Actor, error) {
	actor, ok := c.Locals("actor").(models.Actor)
	if !ok || actor.ID == "" {
		return models.Actor{}, fiber.NewError(401, "User not authenticated")
	}
	return actor, nil
}

func GetUserID(c *fiber.Ctx) (string, error) {
	userID, ok := c.Locals("userId").(string)
	if !ok || userID == "" {
		return "", fiber.NewError(401, "User not authenticated")
	}
	return userID, nil
}
