package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/vizwave/api/internal/capacity"
	"github.com/vizwave/api/internal/config"
	"github.com/vizwave/api/pkg/response"
)

// CapacityGuard rejects new uploads when the host is under resource
// pressure, before the multipart body gets persisted to disk.
func CapacityGuard(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := capacity.Check(&cfg.Capacity, cfg.Upload.WorkDir); err != nil {
			log.Printf("Rejecting upload, capacity check failed: %v", err)
			return response.Overloaded(c, "Server is busy, try again shortly")
		}
		return c.Next()
	}
}
