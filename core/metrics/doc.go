// Package metrics defines the Prometheus collectors of the service.
//
// Collectors register with the default registry through promauto and are exposed
// on GET /metrics.
package metrics
