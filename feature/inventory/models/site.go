package models

import "time"

// Site is a remote installation that reports its inventory.
type Site struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Name           string     `gorm:"column:name;size:255" json:"name"`
	URL            string     `gorm:"column:url;size:191;not null;uniqueIndex" json:"url"`
	APIKeyHash     string     `gorm:"column:api_key_hash;size:64;not null;uniqueIndex" json:"-"`
	CoreVersion    string     `gorm:"column:core_version;size:64" json:"core_version"`
	RuntimeVersion string     `gorm:"column:runtime_version;size:64" json:"runtime_version"`
	IPAddress      string     `gorm:"column:ip_address;size:45" json:"ip_address"`
	LastSyncAt     *time.Time `gorm:"column:last_sync_at" json:"last_sync_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName overrides the table name.
func (Site) TableName() string {
	return "sites"
}

// SiteModule records which version of a module a site runs.
// UpdateAvailable and SecurityUpdateAvailable are derived from version
// ordering and recomputed on every write.
type SiteModule struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	SiteID                  uint      `gorm:"column:site_id;not null;uniqueIndex:uq_site_module" json:"site_id"`
	ModuleID                uint      `gorm:"column:module_id;not null;uniqueIndex:uq_site_module;index" json:"module_id"`
	CurrentVersionID        uint      `gorm:"column:current_version_id;not null" json:"current_version_id"`
	LatestVersionID         uint      `gorm:"column:latest_version_id;not null" json:"latest_version_id"`
	Enabled                 bool      `gorm:"column:enabled;not null" json:"enabled"`
	UpdateAvailable         bool      `gorm:"column:update_available;not null" json:"update_available"`
	SecurityUpdateAvailable bool      `gorm:"column:security_update_available;not null" json:"security_update_available"`
	FirstSeenAt             time.Time `gorm:"column:first_seen_at" json:"first_seen_at"`
	LastSeenAt              time.Time `gorm:"column:last_seen_at" json:"last_seen_at"`
	LastChangedAt           time.Time `gorm:"column:last_changed_at" json:"last_changed_at"`
}

// TableName overrides the table name.
func (SiteModule) TableName() string {
	return "site_modules"
}
