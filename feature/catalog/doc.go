// Package catalog maintains the global module and version catalog.
//
// Modules are keyed by machine name and versions by (module, version string).
// Both are created on first sighting, either from a site report or from an
// imported release feed, and looked up through the shared cache with the
// database as fallback. A version's security flag is set once at creation:
// versions first seen in a site report are never security releases, and an
// import skips versions that already exist. A feed that marks such a version
// as a security release therefore does not change it, so release feeds should
// be imported before sites first report the versions they cover.
//
// DeriveStatus computes the latest version of a module and the two derived
// flags stored on every SiteModule. Recompute reapplies it after an import.
//
// # HTTP Endpoints
//
//   - POST /api/v1/releases : Imports release history (X-API-Key, supports ?dry_run=true).
package catalog
