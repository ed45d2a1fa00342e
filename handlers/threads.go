// handlers/threads.go - Mentorship thread HTTP Handlers
package handlers

import (
	"gfgchapter/middleware"
	"gfgchapter/services"
	"gfgchapter/utils"

	"github.com/gofiber/fiber/v2"
)

type createThreadRequest struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// ListThreads lists a team's threads, newest first
// GET /api/teams/:teamId/threads
func ListThreads(c *fiber.Ctx) error {
	threads := threadService.ListThreads(c.UserContext(), c.Params("teamId"))
	return utils.JSONSuccess(c, fiber.Map{
		"threads": threads,
		"count":   len(threads),
	})
}

// CreateThread posts a new question; it stays pending until a lead approves it
// POST /api/teams/:teamId/threads
func CreateThread(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "User not authenticated")
	}

	var req createThreadRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	thread, err := threadService.CreateThread(c.UserContext(), services.NewThread{
		TeamID:   c.Params("teamId"),
		Title:    req.Title,
		Message:  req.Message,
		Category: req.Category,
		Tags:     req.Tags,
	}, actor)
	if err != nil {
		return respondError(c, err)
	}
	return utils.JSONStatus(c, fiber.StatusCreated, fiber.Map{"thread": thread})
}

// GetThread returns one thread
// GET /api/teams/:teamId/threads/:threadId
func GetThread(c *fiber.Ctx) error {
	thread, err := threadService.GetThread(c.UserContext(), c.Params("teamId"), c.Params("threadId"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{
		"thread": thread,
		"state":  services.StateOf(*thread),
	})
}

// DeleteThread removes a thread (author or team lead)
// DELETE /api/teams/:teamId/threads/:threadId
func DeleteThread(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "User not authenticated")
	}
	if err := lifecycle.DeleteThread(c.UserContext(), actor, c.Params("teamId"), c.Params("threadId")); err != nil {
		return respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Thread deleted"})
}

// EnableThread approves a pending thread (team lead or admin)
// PUT /api/teams/:teamId/threads/:threadId/enable
func EnableThread(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "User not authenticated")
	}
	if err := lifecycle.EnableThread(c.UserContext(), actor, c.Params("teamId"), c.Params("threadId")); err != nil {
		return respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Thread approved"})
}

// UpdateThreadFlags pins or resolves a thread
// PUT /api/teams/:teamId/threads/:threadId/flags
func UpdateThreadFlags(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "User not authenticated")
	}

	var flags services.ThreadFlags
	if err := c.BodyParser(&flags); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	thread, err := lifecycle.ApplyFlags(c.UserContext(), actor, c.Params("teamId"), c.Params("threadId"), flags)
	if err != nil {
		return respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"thread": thread})
}
