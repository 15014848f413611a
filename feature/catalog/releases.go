package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"module-monitor/core/reconcile"
	"module-monitor/core/validation"
	"module-monitor/core/version"
	"module-monitor/feature/inventory/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errDryRun rolls back a dry-run import.
var errDryRun = errors.New("dry run")

// ReleaseFeed is a batch of release history, typically mirrored from an
// upstream update feed.
type ReleaseFeed struct {
	Modules []ReleaseModule `json:"modules" validate:"required,min=1,dive"`
}

// ReleaseModule lists the releases of one module.
type ReleaseModule struct {
	MachineName string    `json:"machine_name" validate:"required,max=191"`
	Name        string    `json:"name" validate:"max=255"`
	Type        string    `json:"type" validate:"omitempty,oneof=core contrib custom"`
	Releases    []Release `json:"releases" validate:"required,min=1,dive"`
}

// Release is one published version.
type Release struct {
	Version    string          `json:"version" validate:"required,max=64"`
	Security   models.FlexBool `json:"security"`
	ReleasedAt *time.Time      `json:"released_at,omitempty"`
}

// ImportResult summarizes a release import.
type ImportResult struct {
	ModulesCreated     int                  `json:"modules_created"`
	VersionsCreated    int                  `json:"versions_created"`
	VersionsSkipped    int                  `json:"versions_skipped"`
	SiteModulesUpdated int                  `json:"site_modules_updated"`
	DryRun             bool                 `json:"dry_run"`
	Errors             []reconcile.RowError `json:"errors"`
}

// ImportReleases adds unknown versions from feed and recomputes the derived
// flags of every site running an affected module. Known versions are skipped,
// so an import can never flip an existing security flag. A dry run performs the
// same work and rolls it back.
func (c *Catalog) ImportReleases(ctx context.Context, feed *ReleaseFeed, dryRun bool) (*ImportResult, error) {
	if err := validation.Struct(feed); err != nil {
		return nil, err
	}

	res := &ImportResult{DryRun: dryRun, Errors: []reconcile.RowError{}}
	var created []models.ModuleVersion

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var touched []uint
		for _, rm := range feed.Modules {
			moduleID, versions, isNew, err := importModule(ctx, tx, rm, res)
			if err != nil {
				return err
			}
			if isNew {
				res.ModulesCreated++
			}
			created = append(created, versions...)
			touched = append(touched, moduleID)
		}

		n, err := Recompute(ctx, tx, touched)
		if err != nil {
			return err
		}
		res.SiteModulesUpdated = n

		if dryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return nil, err
	}

	if !dryRun {
		for _, mv := range created {
			c.cache.Set(ctx, VersionKey(mv.ModuleID, mv.Version), toVersionRef(mv), c.ttl.VersionTTL)
		}
		c.logger.Info("Release history imported",
			zap.Int("modules_created", res.ModulesCreated),
			zap.Int("versions_created", res.VersionsCreated),
			zap.Int("site_modules_updated", res.SiteModulesUpdated),
		)
	}
	return res, nil
}

func importModule(ctx context.Context, tx *gorm.DB, rm ReleaseModule, res *ImportResult) (uint, []models.ModuleVersion, bool, error) {
	var existing int64
	if err := tx.WithContext(ctx).Model(&models.Module{}).Where("machine_name = ?", rm.MachineName).Count(&existing).Error; err != nil {
		return 0, nil, false, fmt.Errorf("load module %s: %w", rm.MachineName, err)
	}

	typ := rm.Type
	if typ == "" {
		typ = models.TypeContrib
	}
	m, err := getOrCreateModule(ctx, tx, models.ModuleReport{MachineName: rm.MachineName, Name: rm.Name, Type: typ})
	if err != nil {
		return 0, nil, false, err
	}

	var created []models.ModuleVersion
	for _, rel := range rm.Releases {
		if err := version.Validate(rel.Version); err != nil {
			res.Errors = append(res.Errors, reconcile.RowError{MachineName: rm.MachineName, Message: err.Error()})
			continue
		}
		mv, isNew, err := getOrCreateVersion(ctx, tx, models.ModuleVersion{
			ModuleID:   m.ID,
			Version:    rel.Version,
			IsSecurity: bool(rel.Security),
			ReleasedAt: rel.ReleasedAt,
		})
		if err != nil {
			return 0, nil, false, err
		}
		if !isNew {
			res.VersionsSkipped++
			continue
		}
		res.VersionsCreated++
		created = append(created, mv)
	}
	return m.ID, created, existing == 0, nil
}

// Recompute refreshes latest pointers and derived flags of every SiteModule
// of the given modules and returns how many rows changed.
func Recompute(ctx context.Context, db *gorm.DB, moduleIDs []uint) (int, error) {
	if len(moduleIDs) == 0 {
		return 0, nil
	}
	versions, err := versionsByModule(ctx, db, moduleIDs)
	if err != nil {
		return 0, err
	}

	var rows []models.SiteModule
	if err := db.WithContext(ctx).Where("module_id IN ?", moduleIDs).Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("load site modules: %w", err)
	}

	changed := 0
	for _, sm := range rows {
		current, ok := findVersion(versions[sm.ModuleID], sm.CurrentVersionID)
		if !ok {
			continue
		}
		st := DeriveStatus(current, versions[sm.ModuleID])
		if st.LatestID == sm.LatestVersionID &&
			st.UpdateAvailable == sm.UpdateAvailable &&
			st.SecurityUpdateAvailable == sm.SecurityUpdateAvailable {
			continue
		}
		err := db.WithContext(ctx).Model(&models.SiteModule{}).Where("id = ?", sm.ID).Updates(map[string]any{
			"latest_version_id":         st.LatestID,
			"update_available":          st.UpdateAvailable,
			"security_update_available": st.SecurityUpdateAvailable,
		}).Error
		if err != nil {
			return changed, fmt.Errorf("update site module %d: %w", sm.ID, err)
		}
		changed++
	}
	return changed, nil
}

func findVersion(versions []models.ModuleVersion, id uint) (models.ModuleVersion, bool) {
	for _, mv := range versions {
		if mv.ID == id {
			return mv, true
		}
	}
	return models.ModuleVersion{}, false
}
