package handler

import (
	"backend-antrian-bank/internal/models"
	"backend-antrian-bank/internal/queue"

	"github.com/gofiber/fiber/v2"
)

/*
|--------------------------------------------------------------------------
| Admin listing
|--------------------------------------------------------------------------
*/

// ListQueue - GET /api/admin/queue?search=&service_type=
func (h *Handler) ListQueue(c *fiber.Ctx) error {
	entries, err := h.queue.List(c.UserContext(), queue.ListFilter{
		Search:      c.Query("search"),
		ServiceType: c.Query("service_type", "all"),
	})
	if err != nil {
		return h.fail(c, err)
	}

	data := make([]*models.TrackResponse, len(entries))
	for i, e := range entries {
		data[i] = queue.ToTrackResponse(e)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"total":   len(data),
	})
}

func (h *Handler) Stats(c *fiber.Ctx) error {
	stats, err := h.queue.Stats(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

/*
|--------------------------------------------------------------------------
| Admin mutations
|--------------------------------------------------------------------------
*/

// UpdateStatus - PUT /api/admin/queue/:queueNumber/status
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	var req models.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	entry, message, err := h.queue.UpdateStatus(c.UserContext(), c.Params("queueNumber"), req.Status)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    entry,
	})
}

// AdjustTime - PUT /api/admin/queue/:queueNumber/time
func (h *Handler) AdjustTime(c *fiber.Ctx) error {
	var req models.AdjustTimeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	entry, message, err := h.queue.AdjustTime(c.UserContext(), c.Params("queueNumber"), queue.AdjustOptions{
		PriorityPosition:  req.Priority,
		EstimatedWaitTime: req.EstimatedWaitTime,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    entry,
	})
}

// NudgeWait - POST /api/admin/queue/:queueNumber/nudge, minutes is usually +5 or -5
func (h *Handler) NudgeWait(c *fiber.Ctx) error {
	var req models.NudgeWaitRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	entry, message, err := h.queue.NudgeWait(c.UserContext(), c.Params("queueNumber"), req.Minutes)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    entry,
	})
}

// MoveQueue - POST /api/admin/queue/:id/move
func (h *Handler) MoveQueue(c *fiber.Ctx) error {
	var req models.MoveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	dir, err := queue.ParseDirection(req.Direction)
	if err != nil {
		return h.fail(c, err)
	}

	moved, err := h.queue.Move(c.UserContext(), c.Params("id"), dir)
	if err != nil {
		return h.fail(c, err)
	}

	message := "Queue position swapped"
	switch {
	case !moved && dir == queue.Up:
		message = "Entry is already at the top of the queue"
	case !moved:
		message = "Entry is already at the bottom of the queue"
	}

	return c.JSON(fiber.Map{
		"success": true,
		"moved":   moved,
		"message": message,
	})
}

// ServeQueue - POST /api/admin/queue/:id/serve
func (h *Handler) ServeQueue(c *fiber.Ctx) error {
	entry, err := h.queue.Serve(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Now serving " + entry.QueueNumber,
		"data":    entry,
	})
}
