package sites

import (
	"errors"

	"module-monitor/core/logger"
	"module-monitor/feature/inventory/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	// Header carries the site key.
	Header = "X-Site-Key"
	// LocalsKey is where the authenticated site is stored on the fiber context.
	LocalsKey = "site"
)

// Middleware authenticates the calling site by its X-Site-Key header.
func Middleware(reg *Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		site, err := reg.Authenticate(c.UserContext(), c.Get(Header))
		if err != nil {
			if errors.Is(err, ErrUnknownKey) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
			}
			logger.WithRayID(reg.logger, c).Error("Site lookup failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
		}
		c.Locals(LocalsKey, site)
		return c.Next()
	}
}

// FromCtx returns the site stored by Middleware, or nil.
func FromCtx(c *fiber.Ctx) *models.Site {
	site, _ := c.Locals(LocalsKey).(*models.Site)
	return site
}
