// handlers/teams.go - Team directory HTTP Handlers
package handlers

import (
	"gfgchapter/utils"

	"github.com/gofiber/fiber/v2"
)

// GetTeams lists every team
// GET /api/teams
func GetTeams(c *fiber.Ctx) error {
	teams := teamService.ListTeams(c.UserContext())
	return utils.JSONSuccess(c, fiber.Map{
		"teams": teams,
		"count": len(teams),
	})
}

// GetTeam returns one team
// GET /api/teams/:teamId
func GetTeam(c *fiber.Ctx) error {
	team, err := teamService.GetTeam(c.UserContext(), c.Params("teamId"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"team": team})
}
