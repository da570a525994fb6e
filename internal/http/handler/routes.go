package handler

import (
	"backend-antrian-bank/internal/config"
	"backend-antrian-bank/internal/http/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Register mounts every route on app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/", h.Health)

	app.Post("/api/auth/login", h.Login)

	// Customer surface (public)
	app.Get("/api/branch", h.BranchInfo)
	app.Post("/api/queue/join", h.JoinQueue)
	app.Get("/api/queue/track/:queueNumber", h.TrackQueue)
	app.Post("/api/queue/:queueNumber/prioritize", h.PrioritizeQueue)

	// Display feed
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/queue", websocket.New(h.hub.QueueWebSocket))

	// Admin surface
	admin := app.Group("/api/admin",
		middleware.JWTAuth(h.cfg.JWT.Secret),
		middleware.RoleAuth(config.RoleAdmin),
	)
	admin.Post("/logout", h.Logout)
	admin.Get("/queue", h.ListQueue)
	admin.Get("/stats", h.Stats)
	admin.Put("/queue/:queueNumber/status", h.UpdateStatus)
	admin.Put("/queue/:queueNumber/time", h.AdjustTime)
	admin.Post("/queue/:queueNumber/prioritize", h.PrioritizeQueue)
	admin.Post("/queue/:queueNumber/nudge", h.NudgeWait)
	admin.Post("/queue/:id/move", h.MoveQueue)
	admin.Post("/queue/:id/serve", h.ServeQueue)
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": h.cfg.App.Name + " API running",
	})
}
