package handler

import (
	"errors"

	"backend-antrian-bank/internal/config"
	"backend-antrian-bank/internal/queue"
	"backend-antrian-bank/internal/realtime"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves the customer and admin surfaces over one queue service.
type Handler struct {
	queue *queue.Service
	hub   *realtime.Hub
	cfg   *config.Config
	log   *zap.Logger
}

func New(svc *queue.Service, hub *realtime.Hub, cfg *config.Config, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{queue: svc, hub: hub, cfg: cfg, log: log}
}

/*
|--------------------------------------------------------------------------
| Response helpers
|--------------------------------------------------------------------------
*/

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

// fail maps a queue error to its HTTP status once for every handler.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status, msg := fiber.StatusInternalServerError, "Internal server error"

	switch {
	case errors.Is(err, queue.ErrValidation), errors.Is(err, queue.ErrInvalidStatus):
		status, msg = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, queue.ErrEntryNotFound):
		status, msg = fiber.StatusNotFound, "Queue entry not found"
	case errors.Is(err, queue.ErrNotFound):
		status, msg = fiber.StatusNotFound, "Queue number not found"
	case errors.Is(err, queue.ErrInvalidTransition):
		status, msg = fiber.StatusConflict, err.Error()
	case errors.Is(err, queue.ErrBranchClosed):
		status, msg = fiber.StatusForbidden, "The branch queue is closed right now"
	case errors.Is(err, queue.ErrPartialFailure):
		msg = "Queue reorder partially failed, please refresh"
	case errors.Is(err, queue.ErrStoreFailure):
		msg = "Queue storage is unavailable, please try again"
	}

	if status >= fiber.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}
