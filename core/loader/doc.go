// Package loader provides the plugin-like feature loading system.
//
// Each feature implements the Feature interface, which defines its lifecycle hooks
// and route registration logic.
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// The Manager holds the registry of available features: Register adds one and
// LoadAll loads the enabled ones in order. The inventory, tasks, catalog and health
// features are developed and tested in isolation this way.
package loader
