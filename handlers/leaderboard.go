// handlers/leaderboard.go
package handlers

import (
	"gfgchapter/utils"

	"github.com/gofiber/fiber/v2"
)

// GetLeaderboard returns the top users by credits
// GET /api/leaderboard?limit=10
func GetLeaderboard(c *fiber.Ctx) error {
	limit := utils.QueryInt(c, "limit", 10, 1, 100)
	entries := userService.Leaderboard(c.UserContext(), limit)
	return utils.JSONSuccess(c, fiber.Map{
		"leaderboard": entries,
		"count":       len(entries),
	})
}
