package catalog

import (
	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	handler *Handler
	guard   fiber.Handler
}

// NewFeature creates the catalog feature. guard protects the admin routes.
func NewFeature(c *Catalog, guard fiber.Handler) *Feature {
	return &Feature{handler: NewHandler(c), guard: guard}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "catalog"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app, f.guard)
	return nil
}
