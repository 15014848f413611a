package catalog

import (
	"module-monitor/core/version"
	"module-monitor/feature/inventory/models"
)

// Status is the derived update state of an installed version.
type Status struct {
	LatestID                uint
	Latest                  string
	UpdateAvailable         bool
	SecurityUpdateAvailable bool
}

// DeriveStatus compares current against every known version of its module.
// The newest version becomes the latest pointer; a security update is
// available if any newer version, not only the newest, is a security release.
func DeriveStatus(current models.ModuleVersion, versions []models.ModuleVersion) Status {
	st := Status{LatestID: current.ID, Latest: current.Version}
	for _, mv := range versions {
		if version.Compare(st.Latest, mv.Version) < 0 {
			st.LatestID = mv.ID
			st.Latest = mv.Version
		}
		if mv.IsSecurity && version.IsUpgrade(current.Version, mv.Version) {
			st.SecurityUpdateAvailable = true
		}
	}
	st.UpdateAvailable = version.IsUpgrade(current.Version, st.Latest)
	return st
}
