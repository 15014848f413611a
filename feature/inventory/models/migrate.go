package models

import "gorm.io/gorm"

// AutoMigrate creates or updates the pipeline tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Module{},
		&ModuleVersion{},
		&Site{},
		&SiteModule{},
		&Task{},
		&TaskPayload{},
	)
}

// RequiredColumns lists, per table, the columns readiness checks expect.
func RequiredColumns() map[string][]string {
	return map[string][]string{
		"modules":            {"id", "machine_name", "name", "type"},
		"module_versions":    {"id", "module_id", "version", "is_security"},
		"sites":              {"id", "url", "api_key_hash", "last_sync_at"},
		"site_modules":       {"id", "site_id", "module_id", "current_version_id", "latest_version_id", "enabled", "update_available", "security_update_available"},
		"sync_tasks":         {"id", "site_id", "status", "progress_current", "progress_total", "result"},
		"sync_task_payloads": {"task_id", "modules"},
	}
}
