package tasks

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	handler *Handler
	guard   fiber.Handler
}

// NewFeature creates the tasks feature. guard authenticates the calling site.
func NewFeature(store *Store, guard fiber.Handler, logger *zap.Logger) *Feature {
	return &Feature{handler: NewHandler(store, logger), guard: guard}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "tasks"
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
