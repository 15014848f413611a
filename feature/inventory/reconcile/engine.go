package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"module-monitor/core/reconcile"
	"module-monitor/core/version"
	"module-monitor/feature/catalog"
	"module-monitor/feature/inventory/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// deactivateBatch bounds the IN list of one deactivation statement.
const deactivateBatch = 500

// Engine reconciles module reports against the stored SiteModule rows of a
// site.
type Engine struct {
	db        *gorm.DB
	catalog   *catalog.Catalog
	chunkSize int
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine that applies reports in chunks of chunkSize.
func NewEngine(db *gorm.DB, cat *catalog.Catalog, chunkSize int, logger *zap.Logger, opts ...Option) *Engine {
	if chunkSize <= 0 {
		chunkSize = 100
	}
	e := &Engine{db: db, catalog: cat, chunkSize: chunkSize, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ChunkSize returns the number of reports applied per transaction.
func (e *Engine) ChunkSize() int {
	return e.chunkSize
}

// Apply reconciles every report in one call. Reports must already be unique
// by machine name.
func (e *Engine) Apply(ctx context.Context, siteID uint, reports []models.ModuleReport, fullSync bool) (*reconcile.Result, error) {
	run, err := e.Begin(ctx, siteID, reports, fullSync)
	if err != nil {
		return nil, err
	}
	for _, chunk := range reconcile.Chunk(reports, e.chunkSize) {
		if _, err := run.ApplyChunk(ctx, chunk); err != nil {
			return run.Result(), err
		}
	}
	return run.Finish(ctx)
}

// Run is one reconciliation in progress.
type Run struct {
	e        *Engine
	siteID   uint
	fullSync bool
	reported reconcile.KeySet
	snapshot map[string]uint
	result   *reconcile.Result
}

// Begin starts a reconciliation of reports. For a full sync it snapshots the
// site's enabled rows before anything is written, so Finish deactivates
// exactly those the site no longer reports.
func (e *Engine) Begin(ctx context.Context, siteID uint, reports []models.ModuleReport, fullSync bool) (*Run, error) {
	run := &Run{
		e:        e,
		siteID:   siteID,
		fullSync: fullSync,
		reported: reconcile.NewKeySet(),
		result:   reconcile.NewResult(),
	}
	for _, r := range reports {
		run.reported.Add(r.MachineName)
	}
	if !fullSync {
		return run, nil
	}

	var rows []struct {
		ID          uint
		MachineName string
	}
	err := e.db.WithContext(ctx).
		Table("site_modules").
		Select("site_modules.id, modules.machine_name").
		Joins("JOIN modules ON modules.id = site_modules.module_id").
		Where("site_modules.site_id = ? AND site_modules.enabled = ?", siteID, true).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("snapshot site %d: %w", siteID, err)
	}
	run.snapshot = make(map[string]uint, len(rows))
	for _, r := range rows {
		run.snapshot[r.MachineName] = r.ID
	}
	return run, nil
}

// Result returns the aggregate result so far.
func (r *Run) Result() *reconcile.Result {
	return r.result
}

// resolved is a report whose catalog entries are known.
type resolved struct {
	report   models.ModuleReport
	moduleID uint
	version  catalog.VersionRef
}

// ApplyChunk reconciles one chunk and returns its result. Catalog entries are
// resolved first, outside the chunk transaction; SiteModule writes then run in
// a single transaction with a savepoint per row, so a failing row is rolled
// back and recorded while the rest of the chunk commits. An error means the
// whole chunk was rolled back.
func (r *Run) ApplyChunk(ctx context.Context, chunk []models.ModuleReport) (*reconcile.Result, error) {
	res := reconcile.NewResult()

	rows := make([]resolved, 0, len(chunk))
	moduleIDs := make([]uint, 0, len(chunk))
	for _, rep := range chunk {
		row, err := r.resolve(ctx, rep)
		if isRowError(err) {
			res.Fail(rep.MachineName, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", rep.MachineName, err)
		}
		rows = append(rows, row)
		moduleIDs = append(moduleIDs, row.moduleID)
	}

	versions, err := r.e.catalog.Versions(ctx, moduleIDs)
	if err != nil {
		return nil, err
	}

	now := r.e.now().UTC()
	err = r.e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.SiteModule
		if len(moduleIDs) > 0 {
			if err := tx.Where("site_id = ? AND module_id IN ?", r.siteID, moduleIDs).Find(&existing).Error; err != nil {
				return fmt.Errorf("load site modules: %w", err)
			}
		}
		byModule := make(map[uint]*models.SiteModule, len(existing))
		for i := range existing {
			byModule[existing[i].ModuleID] = &existing[i]
		}

		var seen []uint
		for _, row := range rows {
			var outcome reconcile.Outcome
			err := tx.Transaction(func(sp *gorm.DB) error {
				var err error
				outcome, err = r.upsert(sp, row, byModule[row.moduleID], versions[row.moduleID], now)
				return err
			})
			if err != nil {
				res.Fail(row.report.MachineName, err)
				continue
			}
			res.Record(outcome)
			if sm := byModule[row.moduleID]; sm != nil && outcome == reconcile.OutcomeUnchanged {
				seen = append(seen, sm.ID)
			}
		}

		if len(seen) > 0 {
			if err := tx.Model(&models.SiteModule{}).Where("id IN ?", seen).Update("last_seen_at", now).Error; err != nil {
				return fmt.Errorf("touch site modules: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.result.Merge(res)
	return res, nil
}

func (r *Run) resolve(ctx context.Context, rep models.ModuleReport) (resolved, error) {
	if err := version.Validate(rep.Version); err != nil {
		return resolved{}, err
	}
	m, err := r.e.catalog.ResolveModule(ctx, rep)
	if err != nil {
		return resolved{}, err
	}
	v, err := r.e.catalog.ResolveVersion(ctx, m.ID, rep.Version)
	if err != nil {
		return resolved{}, err
	}
	return resolved{report: rep, moduleID: m.ID, version: v}, nil
}

func (r *Run) upsert(tx *gorm.DB, row resolved, sm *models.SiteModule, versions []models.ModuleVersion, now time.Time) (reconcile.Outcome, error) {
	current := models.ModuleVersion{ID: row.version.ID, ModuleID: row.moduleID, Version: row.version.Version, IsSecurity: row.version.IsSecurity}
	if !containsVersion(versions, current.ID) {
		versions = append(versions, current)
	}
	st := catalog.DeriveStatus(current, versions)
	enabled := bool(row.report.Enabled)

	if sm == nil {
		created := models.SiteModule{
			SiteID:                  r.siteID,
			ModuleID:                row.moduleID,
			CurrentVersionID:        current.ID,
			LatestVersionID:         st.LatestID,
			Enabled:                 enabled,
			UpdateAvailable:         st.UpdateAvailable,
			SecurityUpdateAvailable: st.SecurityUpdateAvailable,
			FirstSeenAt:             now,
			LastSeenAt:              now,
			LastChangedAt:           now,
		}
		if err := tx.Create(&created).Error; err != nil {
			return "", fmt.Errorf("create site module: %w", err)
		}
		return reconcile.OutcomeCreated, nil
	}

	updates := map[string]any{}
	if sm.CurrentVersionID != current.ID {
		updates["current_version_id"] = current.ID
		updates["last_changed_at"] = now
	}
	if sm.LatestVersionID != st.LatestID {
		updates["latest_version_id"] = st.LatestID
	}
	if sm.Enabled != enabled {
		updates["enabled"] = enabled
	}
	if sm.UpdateAvailable != st.UpdateAvailable {
		updates["update_available"] = st.UpdateAvailable
	}
	if sm.SecurityUpdateAvailable != st.SecurityUpdateAvailable {
		updates["security_update_available"] = st.SecurityUpdateAvailable
	}
	if len(updates) == 0 {
		return reconcile.OutcomeUnchanged, nil
	}
	updates["last_seen_at"] = now
	if err := tx.Model(&models.SiteModule{}).Where("id = ?", sm.ID).Updates(updates).Error; err != nil {
		return "", fmt.Errorf("update site module: %w", err)
	}
	return reconcile.OutcomeUpdated, nil
}

// Finish completes the run. For a full sync it disables, in one transaction,
// every snapshot row the site did not report. It returns the aggregate result.
func (r *Run) Finish(ctx context.Context) (*reconcile.Result, error) {
	if r.fullSync {
		ids := reconcile.PlanDeactivation(r.snapshot, r.reported)
		if len(ids) > 0 {
			var total int64
			err := r.e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				total = 0
				for _, batch := range reconcile.Chunk(ids, deactivateBatch) {
					res := tx.Model(&models.SiteModule{}).
						Where("site_id = ? AND id IN ? AND enabled = ?", r.siteID, batch, true).
						Update("enabled", false)
					if res.Error != nil {
						return fmt.Errorf("deactivate site modules: %w", res.Error)
					}
					total += res.RowsAffected
				}
				return nil
			})
			if err != nil {
				return r.result, err
			}
			r.result.Deactivated += int(total)
		}
	}

	r.e.logger.Debug("Reconciliation finished",
		zap.Uint("site_id", r.siteID),
		zap.Bool("full_sync", r.fullSync),
		zap.Int("created", r.result.Created),
		zap.Int("updated", r.result.Updated),
		zap.Int("unchanged", r.result.Unchanged),
		zap.Int("deactivated", r.result.Deactivated),
		zap.Int("errors", len(r.result.Errors)),
	)
	return r.result, nil
}

// isRowError reports whether err concerns only the reported row.
func isRowError(err error) bool {
	return errors.Is(err, version.ErrEmpty) ||
		errors.Is(err, version.ErrTooLong) ||
		errors.Is(err, version.ErrMalformed)
}

func containsVersion(versions []models.ModuleVersion, id uint) bool {
	for _, mv := range versions {
		if mv.ID == id {
			return true
		}
	}
	return false
}
