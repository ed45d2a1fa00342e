// handlers/auth.go
package handlers

import (
	"gfgchapter/middleware"
	"gfgchapter/services"
	"gfgchapter/utils"

	"github.com/gofiber/fiber/v2"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates a new member account and signs it in
// POST /api/auth/register
func Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if _, err := userService.Register(c.UserContext(), req); err != nil {
		return respondError(c, err)
	}

	session, err := userService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return issueToken(c, fiber.StatusCreated, session)
}

// Login authenticates a registered user
// POST /api/auth/login
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	session, err := userService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return issueToken(c, fiber.StatusOK, session)
}

// Logout revokes every token the caller holds
// POST /api/auth/logout
func Logout(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "User not authenticated")
	}
	if err := userService.Logout(c.UserContext(), userID); err != nil {
		return respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Logged out"})
}

func issueToken(c *fiber.Ctx, status int, session *services.Session) error {
	settings := session.Settings
	token, err := middleware.GenerateToken(tokenSecret, settings.UserID, settings.Role, session.Version, tokenTTL)
	if err != nil {
		utils.LogError("token_generation", err, map[string]interface{}{"user_id": settings.UserID})
		return utils.JSONError(c, fiber.StatusInternalServerError, "Failed to generate token")
	}
	return utils.JSONStatus(c, status, fiber.Map{
		"token": token,
		"user":  settings,
	})
}
