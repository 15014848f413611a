package models

import "time"

// Module types reported by sites.
const (
	TypeCore    = "core"
	TypeContrib = "contrib"
	TypeCustom  = "custom"
)

// Module is a globally known software module, keyed by machine name.
type Module struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	MachineName string    `gorm:"column:machine_name;size:191;not null;uniqueIndex" json:"machine_name"`
	Name        string    `gorm:"column:name;size:255" json:"name"`
	Type        string    `gorm:"column:type;size:16" json:"type"`
	Description string    `gorm:"column:description;type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides the table name.
func (Module) TableName() string {
	return "modules"
}

// ModuleVersion is one release of a Module. Rows are only ever inserted;
// IsSecurity is historical fact and never changes after creation.
type ModuleVersion struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ModuleID   uint       `gorm:"column:module_id;not null;uniqueIndex:uq_module_version" json:"module_id"`
	Version    string     `gorm:"column:version;size:64;not null;uniqueIndex:uq_module_version" json:"version"`
	IsSecurity bool       `gorm:"column:is_security;not null" json:"is_security"`
	ReleasedAt *time.Time `gorm:"column:released_at" json:"released_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName overrides the table name.
func (ModuleVersion) TableName() string {
	return "module_versions"
}
