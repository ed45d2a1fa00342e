// handlers/users.go - Profile, role and credit endpoints
package handlers

import (
	"gfgchapter/middleware"
	"gfgchapter/services"
	"gfgchapter/utils"

	"github.com/gofiber/fiber/v2"
)

// GetCurrentUser returns the caller's settings
// GET /api/users/me
func GetCurrentUser(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "User not authenticated")
	}

	settings, err := userService.GetSettings(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"user": settings})
}

// UpdateCurrentUser edits the caller's profile
// PUT /api/users/me
func UpdateCurrentUser(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "User not authenticated")
	}

	var req services.UpdateProfile
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	settings, err := userService.UpdateProfile(c.UserContext(), userID, req)
	if err != nil {
		return respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"user": settings})
}

// SetUserRole changes another user's role (admin only)
// PUT /api/users/:id/role
func SetUserRole(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "User not authenticated")
	}

	var req struct {
		Role string `json:"role" validate:"required"`
	}
	if err := utils.ParseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	settings, err := userService.SetRole(c.UserContext(), actor, c.Params("id"), req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"user": settings})
}

// AwardCredits adds credits to a user (team lead or admin)
// POST /api/users/:id/credits
func AwardCredits(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "User not authenticated")
	}

	var req struct {
		Amount int `json:"amount" validate:"required,gt=0"`
	}
	if err := utils.ParseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	settings, err := userService.AwardCredits(c.UserContext(), actor, c.Params("id"), req.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"user": settings})
}
