package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"module-monitor/core/cache"
	"module-monitor/core/database"
	"module-monitor/core/kvstore"
	"module-monitor/core/ratelimit"
	"module-monitor/feature/catalog"
	"module-monitor/feature/inventory/jobs"
	"module-monitor/feature/inventory/models"
	"module-monitor/feature/inventory/reconcile"
	"module-monitor/feature/sites"
	"module-monitor/feature/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakePublisher struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, _ string, payload []byte, _ map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	j, err := jobs.Decode(payload)
	if err != nil {
		return err
	}
	p.jobs = append(p.jobs, j)
	return nil
}

// brokenStore fails every operation.
type brokenStore struct{ kvstore.Store }

func (brokenStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("store down")
}

type env struct {
	db        *gorm.DB
	store     kvstore.Store
	svc       *Service
	site      *models.Site
	key       string
	tasks     *tasks.Store
	payloads  jobs.PayloadStore
	publisher *fakePublisher
}

var fixedNow = time.Date(2026, 5, 4, 10, 15, 0, 0, time.UTC)

func setupEnv(t *testing.T, store func(kvstore.Store) kvstore.Store) *env {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	dbStore := kvstore.NewDatabaseStore(db)
	require.NoError(t, dbStore.Migrate())
	var kv kvstore.Store = dbStore
	if store != nil {
		kv = store(kv)
	}

	logger := zap.NewNop()
	cat := catalog.New(db, cache.New(dbStore, logger), cache.Config{ModuleTTL: time.Hour, VersionTTL: time.Hour}, logger)
	reg := sites.NewRegistry(db, logger)
	site, key, err := reg.Register(context.Background(), "a", "https://a.example")
	require.NoError(t, err)

	e := &env{
		db:        db,
		store:     kv,
		site:      site,
		key:       key,
		tasks:     tasks.NewStore(db),
		payloads:  jobs.NewDatabasePayloads(db),
		publisher: &fakePublisher{},
	}
	e.svc = NewService(Config{
		Threshold:    500,
		ChunkSize:    100,
		MaxModules:   10000,
		FullSyncLock: true,
		LockTTL:      30 * time.Minute,
	}, Dependencies{
		Sites:     reg,
		Limiter:   ratelimit.New(kv, ratelimit.Config{Limit: 4, Window: time.Hour}, ratelimit.WithClock(func() time.Time { return fixedNow })),
		Engine:    reconcile.NewEngine(db, cat, 100, logger),
		Tasks:     e.tasks,
		Payloads:  e.payloads,
		Publisher: e.publisher,
		Store:     kv,
		Logger:    logger,
	})
	return e
}

func modules(n int) []models.ModuleReport {
	out := make([]models.ModuleReport, n)
	for i := range out {
		out[i] = models.ModuleReport{
			MachineName: fmt.Sprintf("module_%04d", i),
			Name:        fmt.Sprintf("Module %d", i),
			Type:        models.TypeContrib,
			Enabled:     true,
			Version:     "1.0.0",
		}
	}
	return out
}

func request(mods []models.ModuleReport) *models.SyncRequest {
	return &models.SyncRequest{SiteURL: "https://a.example/", CoreVersion: "10.2.1", Modules: mods}
}

func (e *env) countTasks(t *testing.T) int64 {
	var n int64
	require.NoError(t, e.db.Model(&models.Task{}).Count(&n).Error)
	return n
}

func TestSubmit_InlineAtThreshold(t *testing.T) {
	e := setupEnv(t, nil)

	resp, err := e.svc.Submit(context.Background(), e.site, request(modules(500)), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, ModeInline, resp.Mode)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 500, resp.Result.Created)
	assert.Zero(t, e.countTasks(t))
	assert.Empty(t, e.publisher.jobs)
	assert.Equal(t, 3, resp.Decision.Remaining)
}

func TestSubmit_BackgroundAboveThreshold(t *testing.T) {
	e := setupEnv(t, nil)
	ctx := context.Background()

	resp, err := e.svc.Submit(ctx, e.site, request(modules(501)), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, ModeBackground, resp.Mode)
	assert.Nil(t, resp.Result)
	assert.Equal(t, "/api/v1/tasks/"+resp.TaskID, resp.StatusURL)

	task, err := e.tasks.Get(ctx, resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, task.Status)
	assert.Equal(t, 501, task.ProgressTotal)

	require.Len(t, e.publisher.jobs, 1)
	job := e.publisher.jobs[0]
	assert.Equal(t, resp.TaskID, job.TaskID)
	assert.Equal(t, e.site.ID, job.SiteID)

	stored, err := e.payloads.Get(ctx, job.PayloadRef)
	require.NoError(t, err)
	assert.Len(t, stored, 501)

	var n int64
	require.NoError(t, e.db.Model(&models.SiteModule{}).Count(&n).Error)
	assert.Zero(t, n, "nothing is reconciled before the worker runs")
}

func TestSubmit_RateLimit(t *testing.T) {
	e := setupEnv(t, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		resp, err := e.svc.Submit(ctx, e.site, request(modules(1)), "")
		require.NoError(t, err)
		assert.Equal(t, 3-i, resp.Decision.Remaining)
	}

	resp, err := e.svc.Submit(ctx, e.site, request(modules(600)), "")
	var limited *RateLimitExceeded
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, 0, limited.Decision.Remaining)
	assert.Equal(t, time.Date(2026, 5, 4, 11, 0, 0, 0, time.UTC), limited.Decision.ResetAt)
	require.NotNil(t, resp)
	assert.False(t, resp.Decision.Allowed)

	assert.Zero(t, e.countTasks(t))
	assert.Empty(t, e.publisher.jobs)
}

func TestSubmit_Validation(t *testing.T) {
	e := setupEnv(t, nil)
	ctx := context.Background()

	_, err := e.svc.Submit(ctx, e.site, request(nil), "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "modules", verr.Fields[0].Field)

	bad := modules(2)
	bad[1].Type = "theme"
	_, err = e.svc.Submit(ctx, e.site, request(bad), "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "modules[1].type", verr.Fields[0].Field)
	assert.Equal(t, "oneof", verr.Fields[0].Rule)

	e.svc.cfg.MaxModules = 10
	_, err = e.svc.Submit(ctx, e.site, request(modules(11)), "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "max", verr.Fields[0].Rule)

	// Validation failures do not count against the limit.
	resp, err := e.svc.Submit(ctx, e.site, request(modules(1)), "")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Decision.Remaining)
}

func TestSubmit_SiteMismatch(t *testing.T) {
	e := setupEnv(t, nil)
	req := request(modules(1))
	req.SiteURL = "https://b.example"

	_, err := e.svc.Submit(context.Background(), e.site, req, "")
	assert.ErrorIs(t, err, ErrSiteMismatch)
}

func TestSubmit_DuplicatesLastWins(t *testing.T) {
	e := setupEnv(t, nil)
	mods := modules(2)
	dup := mods[0]
	dup.Version = "2.0.0"
	mods = append(mods, dup)

	resp, err := e.svc.Submit(context.Background(), e.site, request(mods), "")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Result.Created)
	require.Len(t, resp.Result.Warnings, 1)
	assert.Equal(t, "module_0000", resp.Result.Warnings[0].MachineName)
	assert.Equal(t, len(mods), resp.Result.Processed())

	var current string
	err = e.db.Table("site_modules").
		Select("module_versions.version").
		Joins("JOIN module_versions ON module_versions.id = site_modules.current_version_id").
		Joins("JOIN modules ON modules.id = site_modules.module_id").
		Where("modules.machine_name = ?", "module_0000").
		Scan(&current).Error
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", current)
}

func TestSubmit_RecordsSiteMetadata(t *testing.T) {
	e := setupEnv(t, nil)

	_, err := e.svc.Submit(context.Background(), e.site, request(modules(1)), "10.0.0.7")
	require.NoError(t, err)

	var site models.Site
	require.NoError(t, e.db.First(&site, e.site.ID).Error)
	assert.Equal(t, "10.2.1", site.CoreVersion)
	assert.Equal(t, "10.0.0.7", site.IPAddress)
	assert.NotNil(t, site.LastSyncAt)
}

func TestSubmit_FullSyncLock(t *testing.T) {
	e := setupEnv(t, nil)
	ctx := context.Background()

	ok, err := kvstore.TryLock(ctx, e.store, LockKey(e.site.ID), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	req := request(modules(3))
	req.FullSync = true
	_, err = e.svc.Submit(ctx, e.site, req, "")
	assert.ErrorIs(t, err, ErrSyncInProgress)

	// Partial syncs are not blocked.
	_, err = e.svc.Submit(ctx, e.site, request(modules(3)), "")
	require.NoError(t, err)

	require.NoError(t, kvstore.Unlock(ctx, e.store, LockKey(e.site.ID)))
	resp, err := e.svc.Submit(ctx, e.site, req, "")
	require.NoError(t, err)
	assert.Equal(t, ModeInline, resp.Mode)

	// The inline run released the lock.
	ok, err = kvstore.TryLock(ctx, e.store, LockKey(e.site.ID), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSubmit_RejectedFullSyncLeavesMetadata(t *testing.T) {
	e := setupEnv(t, nil)
	ctx := context.Background()

	ok, err := kvstore.TryLock(ctx, e.store, LockKey(e.site.ID), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	req := request(modules(3))
	req.FullSync = true
	_, err = e.svc.Submit(ctx, e.site, req, "10.0.0.9")
	require.ErrorIs(t, err, ErrSyncInProgress)

	var site models.Site
	require.NoError(t, e.db.First(&site, e.site.ID).Error)
	assert.Nil(t, site.LastSyncAt)
	assert.Empty(t, site.IPAddress)
}

func TestSubmit_BackgroundFullSyncHoldsLock(t *testing.T) {
	e := setupEnv(t, nil)
	ctx := context.Background()

	req := request(modules(501))
	req.FullSync = true
	_, err := e.svc.Submit(ctx, e.site, req, "")
	require.NoError(t, err)
	require.Len(t, e.publisher.jobs, 1)
	assert.Equal(t, LockKey(e.site.ID), e.publisher.jobs[0].LockKey)

	_, err = e.svc.Submit(ctx, e.site, req, "")
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestSubmit_QueueUnavailable(t *testing.T) {
	e := setupEnv(t, nil)
	e.publisher.err = errors.New("circuit breaker is open")
	ctx := context.Background()

	req := request(modules(501))
	req.FullSync = true
	_, err := e.svc.Submit(ctx, e.site, req, "")
	require.ErrorIs(t, err, ErrQueueUnavailable)

	var task models.Task
	require.NoError(t, e.db.Take(&task).Error)
	assert.Equal(t, models.TaskFailed, task.Status)
	assert.Contains(t, task.Error, "circuit breaker is open")

	_, err = e.payloads.Get(ctx, task.PayloadRef)
	assert.ErrorIs(t, err, jobs.ErrPayloadNotFound)

	ok, err := kvstore.TryLock(ctx, e.store, LockKey(e.site.ID), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock released after publish failure")
}

func TestSubmit_StoreUnavailable(t *testing.T) {
	e := setupEnv(t, func(s kvstore.Store) kvstore.Store { return brokenStore{s} })

	_, err := e.svc.Submit(context.Background(), e.site, request(modules(1)), "")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
