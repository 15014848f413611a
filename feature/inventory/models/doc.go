// Package models defines the persistent entities and request types of the
// inventory pipeline.
//
// Catalog entities (Module, ModuleVersion) are global and shared by every site.
// Site-scoped state lives in Site and SiteModule; background syncs are tracked by
// Task. All tables are created by AutoMigrate.
package models
