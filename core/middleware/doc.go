// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: X-API-Key validation for the admin endpoints.
//   - rayid: generates a RayID for every incoming request and injects it into the
//     context and the X-Ray-ID response header for tracing.
//
// Site authentication lives in feature/sites because it resolves the caller
// against the site registry.
package middleware
