package handler

import (
	"backend-antrian-bank/internal/models"

	"github.com/gofiber/fiber/v2"
)

/*
|--------------------------------------------------------------------------
| Customer surface
|--------------------------------------------------------------------------
*/

// JoinQueue - POST /api/queue/join
func (h *Handler) JoinQueue(c *fiber.Ctx) error {
	var req models.JoinQueueRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	entry, err := h.queue.Join(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "You have joined the queue",
		"data":    entry,
	})
}

// TrackQueue - GET /api/queue/track/:queueNumber
func (h *Handler) TrackQueue(c *fiber.Ctx) error {
	tracked, err := h.queue.Track(c.UserContext(), c.Params("queueNumber"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    tracked,
	})
}

// PrioritizeQueue - customer self-service and admin shortcut share the same rule
func (h *Handler) PrioritizeQueue(c *fiber.Ctx) error {
	entry, message, err := h.queue.Prioritize(c.UserContext(), c.Params("queueNumber"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    entry,
	})
}
