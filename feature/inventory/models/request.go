package models

import (
	"module-monitor/core/utils"

	"github.com/goccy/go-json"
)

// FlexBool accepts the boolean encodings site agents send:
// true, false, 1, 0, "1", "0", "true", "false".
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = FlexBool(utils.ToBool(raw))
	return nil
}

// SyncRequest is an inventory submission from a site.
type SyncRequest struct {
	SiteURL        string         `json:"site_url" validate:"required,url,max=191"`
	CoreVersion    string         `json:"core_version" validate:"max=64"`
	RuntimeVersion string         `json:"runtime_version" validate:"max=64"`
	IPAddress      string         `json:"ip_address" validate:"omitempty,ip"`
	Modules        []ModuleReport `json:"modules" validate:"required,min=1,dive"`
	FullSync       FlexBool       `json:"full_sync"`
}

// ModuleReport is one installed module as reported by a site. The version is
// checked per row during reconciliation so one bad entry cannot reject the
// whole submission.
type ModuleReport struct {
	MachineName string   `json:"machine_name" validate:"required,max=191"`
	Name        string   `json:"name" validate:"required,max=255"`
	Type        string   `json:"type" validate:"required,oneof=core contrib custom"`
	Enabled     FlexBool `json:"enabled"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
}
