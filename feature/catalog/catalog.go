package catalog

import (
	"context"
	"errors"
	"fmt"

	"module-monitor/core/cache"
	"module-monitor/core/version"
	"module-monitor/feature/inventory/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ModuleRef is the cached projection of a Module.
type ModuleRef struct {
	ID          uint   `json:"id"`
	MachineName string `json:"machine_name"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// VersionRef is the cached projection of a ModuleVersion.
type VersionRef struct {
	ID         uint   `json:"id"`
	ModuleID   uint   `json:"module_id"`
	Version    string `json:"version"`
	IsSecurity bool   `json:"is_security"`
}

// ModuleKey is the cache key of a module.
func ModuleKey(machineName string) string {
	return "module:" + machineName
}

// VersionKey is the cache key of a module version.
func VersionKey(moduleID uint, v string) string {
	return fmt.Sprintf("version:%d:%s", moduleID, v)
}

// Catalog resolves the global module and version catalog. Lookups go through
// the shared cache; every miss falls back to the database, which stays the
// only source of truth.
type Catalog struct {
	db     *gorm.DB
	cache  *cache.Cache
	ttl    cache.Config
	logger *zap.Logger
}

// New creates a catalog.
func New(db *gorm.DB, c *cache.Cache, ttl cache.Config, logger *zap.Logger) *Catalog {
	return &Catalog{db: db, cache: c, ttl: ttl, logger: logger}
}

// ResolveModule returns the module reported as r, creating it on first
// sighting. Changed display metadata is written back and the cache refreshed.
func (c *Catalog) ResolveModule(ctx context.Context, r models.ModuleReport) (ModuleRef, error) {
	key := ModuleKey(r.MachineName)
	ref, err := cache.GetOrLoad(ctx, c.cache, key, c.ttl.ModuleTTL, func(ctx context.Context) (ModuleRef, error) {
		m, err := getOrCreateModule(ctx, c.db, r)
		if err != nil {
			return ModuleRef{}, err
		}
		return toModuleRef(m), nil
	})
	if err != nil {
		return ModuleRef{}, err
	}

	updates := metadataChanges(ref, r)
	if len(updates) == 0 {
		return ref, nil
	}
	if err := c.db.WithContext(ctx).Model(&models.Module{}).Where("id = ?", ref.ID).Updates(updates).Error; err != nil {
		return ModuleRef{}, fmt.Errorf("update module %s: %w", r.MachineName, err)
	}
	if v, ok := updates["name"].(string); ok {
		ref.Name = v
	}
	if v, ok := updates["type"].(string); ok {
		ref.Type = v
	}
	if v, ok := updates["description"].(string); ok {
		ref.Description = v
	}
	c.cache.Set(ctx, key, ref, c.ttl.ModuleTTL)
	return ref, nil
}

// ResolveVersion returns the version v of moduleID, creating it on first
// sighting. Versions first seen in a site report are not security releases;
// only the release feed can mark one.
func (c *Catalog) ResolveVersion(ctx context.Context, moduleID uint, v string) (VersionRef, error) {
	if err := version.Validate(v); err != nil {
		return VersionRef{}, err
	}
	return cache.GetOrLoad(ctx, c.cache, VersionKey(moduleID, v), c.ttl.VersionTTL, func(ctx context.Context) (VersionRef, error) {
		mv, _, err := getOrCreateVersion(ctx, c.db, models.ModuleVersion{ModuleID: moduleID, Version: v})
		if err != nil {
			return VersionRef{}, err
		}
		return toVersionRef(mv), nil
	})
}

// Versions returns every known version of the given modules, keyed by module id.
func (c *Catalog) Versions(ctx context.Context, moduleIDs []uint) (map[uint][]models.ModuleVersion, error) {
	return versionsByModule(ctx, c.db, moduleIDs)
}

func versionsByModule(ctx context.Context, db *gorm.DB, moduleIDs []uint) (map[uint][]models.ModuleVersion, error) {
	out := make(map[uint][]models.ModuleVersion, len(moduleIDs))
	if len(moduleIDs) == 0 {
		return out, nil
	}
	var rows []models.ModuleVersion
	if err := db.WithContext(ctx).Where("module_id IN ?", moduleIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load module versions: %w", err)
	}
	for _, mv := range rows {
		out[mv.ModuleID] = append(out[mv.ModuleID], mv)
	}
	return out, nil
}

func metadataChanges(ref ModuleRef, r models.ModuleReport) map[string]any {
	updates := map[string]any{}
	if r.Name != "" && r.Name != ref.Name {
		updates["name"] = r.Name
	}
	if r.Type != "" && r.Type != ref.Type {
		updates["type"] = r.Type
	}
	if r.Description != "" && r.Description != ref.Description {
		updates["description"] = r.Description
	}
	return updates
}

// getOrCreateModule inserts the module if missing. A concurrent insert of the
// same machine name is absorbed by the unique index and the row re-read.
func getOrCreateModule(ctx context.Context, db *gorm.DB, r models.ModuleReport) (models.Module, error) {
	var m models.Module
	err := db.WithContext(ctx).Where("machine_name = ?", r.MachineName).Take(&m).Error
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return m, fmt.Errorf("load module %s: %w", r.MachineName, err)
	}

	m = models.Module{MachineName: r.MachineName, Name: r.Name, Type: r.Type, Description: r.Description}
	if m.Name == "" {
		m.Name = r.MachineName
	}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
		return m, fmt.Errorf("create module %s: %w", r.MachineName, err)
	}
	if err := db.WithContext(ctx).Where("machine_name = ?", r.MachineName).Take(&m).Error; err != nil {
		return m, fmt.Errorf("reload module %s: %w", r.MachineName, err)
	}
	return m, nil
}

// getOrCreateVersion inserts mv if missing and reports whether it did.
// An existing row is returned untouched, security flag included.
func getOrCreateVersion(ctx context.Context, db *gorm.DB, mv models.ModuleVersion) (models.ModuleVersion, bool, error) {
	var existing models.ModuleVersion
	err := db.WithContext(ctx).Where("module_id = ? AND version = ?", mv.ModuleID, mv.Version).Take(&existing).Error
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return existing, false, fmt.Errorf("load version %s: %w", mv.Version, err)
	}

	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&mv)
	if res.Error != nil {
		return mv, false, fmt.Errorf("create version %s: %w", mv.Version, res.Error)
	}
	created := res.RowsAffected == 1
	if err := db.WithContext(ctx).Where("module_id = ? AND version = ?", mv.ModuleID, mv.Version).Take(&existing).Error; err != nil {
		return existing, false, fmt.Errorf("reload version %s: %w", mv.Version, err)
	}
	return existing, created, nil
}

func toModuleRef(m models.Module) ModuleRef {
	return ModuleRef{ID: m.ID, MachineName: m.MachineName, Name: m.Name, Type: m.Type, Description: m.Description}
}

func toVersionRef(mv models.ModuleVersion) VersionRef {
	return VersionRef{ID: mv.ID, ModuleID: mv.ModuleID, Version: mv.Version, IsSecurity: mv.IsSecurity}
}
