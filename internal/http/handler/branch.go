package handler

import (
	"sort"

	"backend-antrian-bank/internal/models"
	"backend-antrian-bank/internal/queue"

	"github.com/gofiber/fiber/v2"
)

// BranchInfo - GET /api/branch, opening hours and the service catalogue for the join form
func (h *Handler) BranchInfo(c *fiber.Ctx) error {
	services := make([]models.ServiceInfo, 0, len(models.ServiceTypes))
	for t, name := range models.ServiceTypes {
		services = append(services, models.ServiceInfo{
			Type:   t,
			Name:   name,
			Prefix: queue.Prefix(string(t)),
		})
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Type < services[j].Type })

	return c.JSON(fiber.Map{
		"success": true,
		"data": models.BranchInfo{
			Open:     h.cfg.Branch.Open,
			Close:    h.cfg.Branch.Close,
			Timezone: h.cfg.Branch.Timezone,
			IsOpen:   h.queue.IsOpen(),
			Services: services,
		},
	})
}
