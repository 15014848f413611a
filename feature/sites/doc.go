// Package sites identifies reporting sites.
//
// Each site owns one API key, stored only as a SHA-256 hash. Middleware
// resolves the X-Site-Key header to a Site and stores it on the request
// context. The Registry also checks that a submission's site_url matches the
// registered URL after normalization, and records the metadata snapshot of
// every accepted submission.
package sites
