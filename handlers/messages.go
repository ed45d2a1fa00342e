// handlers/messages.go - Thread reply HTTP Handlers
package handlers

import (
	"gfgchapter/middleware"
	"gfgchapter/services"
	"gfgchapter/utils"

	"github.com/gofiber/fiber/v2"
)

// ListMessages lists a thread's replies, oldest first
// GET /api/teams/:teamId/threads/:threadId/messages
func ListMessages(c *fiber.Ctx) error {
	msgs := messageService.ListMessages(c.UserContext(), c.Params("teamId"), c.Params("threadId"))
	return utils.JSONSuccess(c, fiber.Map{
		"messages": msgs,
		"count":    len(msgs),
	})
}

// SendMessage replies to an approved thread
// POST /api/teams/:teamId/threads/:threadId/messages
func SendMessage(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "User not authenticated")
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	msg, err := messageService.SendMessage(c.UserContext(), services.SendMessage{
		TeamID:   c.Params("teamId"),
		ThreadID: c.Params("threadId"),
		Text:     req.Text,
	}, actor)
	if err != nil {
		return respondError(c, err)
	}
	return utils.JSONStatus(c, fiber.StatusCreated, fiber.Map{"message": msg})
}
