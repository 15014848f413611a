package catalog

import (
	"context"
	"testing"
	"time"

	"module-monitor/core/cache"
	"module-monitor/core/database"
	"module-monitor/core/kvstore"
	"module-monitor/core/version"
	"module-monitor/feature/inventory/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupCatalog(t *testing.T) (*Catalog, *gorm.DB, kvstore.Store) {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	store := kvstore.NewDatabaseStore(db)
	require.NoError(t, store.Migrate())

	ttl := cache.Config{ModuleTTL: time.Hour, VersionTTL: 24 * time.Hour}
	return New(db, cache.New(store, zap.NewNop()), ttl, zap.NewNop()), db, store
}

func report(name, ver string) models.ModuleReport {
	return models.ModuleReport{MachineName: name, Name: name, Type: models.TypeContrib, Enabled: true, Version: ver}
}

func TestDeriveStatus_SecurityFlag(t *testing.T) {
	versions := []models.ModuleVersion{
		{ID: 1, Version: "1.0"},
		{ID: 2, Version: "1.1", IsSecurity: true},
		{ID: 3, Version: "1.2"},
	}

	st := DeriveStatus(versions[0], versions)
	assert.Equal(t, uint(3), st.LatestID)
	assert.Equal(t, "1.2", st.Latest)
	assert.True(t, st.UpdateAvailable)
	assert.True(t, st.SecurityUpdateAvailable, "an intermediate security release counts")

	st = DeriveStatus(versions[1], versions)
	assert.True(t, st.UpdateAvailable)
	assert.False(t, st.SecurityUpdateAvailable)

	st = DeriveStatus(versions[2], versions)
	assert.Equal(t, uint(3), st.LatestID)
	assert.False(t, st.UpdateAvailable)
	assert.False(t, st.SecurityUpdateAvailable)
}

func TestDeriveStatus_CurrentAheadOfCatalog(t *testing.T) {
	current := models.ModuleVersion{ID: 9, Version: "2.0-dev"}
	st := DeriveStatus(current, []models.ModuleVersion{{ID: 1, Version: "1.0", IsSecurity: true}, current})
	assert.Equal(t, uint(9), st.LatestID)
	assert.False(t, st.UpdateAvailable)
	assert.False(t, st.SecurityUpdateAvailable)
}

func TestDeriveStatus_EquivalentSpellings(t *testing.T) {
	current := models.ModuleVersion{ID: 1, Version: "1.2"}
	versions := []models.ModuleVersion{
		current,
		{ID: 2, Version: "v1.2", IsSecurity: true},
		{ID: 3, Version: "1.2.0"},
	}

	st := DeriveStatus(current, versions)
	assert.Equal(t, uint(1), st.LatestID)
	assert.False(t, st.UpdateAvailable)
	assert.False(t, st.SecurityUpdateAvailable)
}

func TestResolveModule_CreatesOnceAndCaches(t *testing.T) {
	c, db, store := setupCatalog(t)
	ctx := context.Background()

	first, err := c.ResolveModule(ctx, report("views", "1.0"))
	require.NoError(t, err)
	second, err := c.ResolveModule(ctx, report("views", "1.0"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var n int64
	require.NoError(t, db.Model(&models.Module{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	_, err = store.Get(ctx, ModuleKey("views"))
	assert.NoError(t, err)
}

func TestResolveModule_UpdatesMetadata(t *testing.T) {
	c, db, _ := setupCatalog(t)
	ctx := context.Background()

	_, err := c.ResolveModule(ctx, report("views", "1.0"))
	require.NoError(t, err)

	r := report("views", "1.0")
	r.Name = "Views"
	r.Description = "Query builder"
	ref, err := c.ResolveModule(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "Views", ref.Name)

	var m models.Module
	require.NoError(t, db.Where("machine_name = ?", "views").Take(&m).Error)
	assert.Equal(t, "Views", m.Name)
	assert.Equal(t, "Query builder", m.Description)

	again, err := c.ResolveModule(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "Query builder", again.Description)
}

func TestResolveVersion(t *testing.T) {
	c, _, _ := setupCatalog(t)
	ctx := context.Background()

	m, err := c.ResolveModule(ctx, report("views", "1.0"))
	require.NoError(t, err)

	v, err := c.ResolveVersion(ctx, m.ID, "8.x-1.2")
	require.NoError(t, err)
	assert.Equal(t, "8.x-1.2", v.Version)
	assert.False(t, v.IsSecurity)

	again, err := c.ResolveVersion(ctx, m.ID, "8.x-1.2")
	require.NoError(t, err)
	assert.Equal(t, v.ID, again.ID)

	_, err = c.ResolveVersion(ctx, m.ID, "not a version")
	assert.ErrorIs(t, err, version.ErrMalformed)

	_, err = c.ResolveVersion(ctx, m.ID, "")
	assert.ErrorIs(t, err, version.ErrEmpty)
}

func TestImportReleases_NeverFlipsSecurityFlag(t *testing.T) {
	c, db, _ := setupCatalog(t)
	ctx := context.Background()

	m, err := c.ResolveModule(ctx, report("views", "1.1"))
	require.NoError(t, err)
	seen, err := c.ResolveVersion(ctx, m.ID, "1.1")
	require.NoError(t, err)

	res, err := c.ImportReleases(ctx, &ReleaseFeed{Modules: []ReleaseModule{{
		MachineName: "views",
		Releases: []Release{
			{Version: "1.1", Security: true},
			{Version: "1.2", Security: true},
		},
	}}}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ModulesCreated)
	assert.Equal(t, 1, res.VersionsCreated)
	assert.Equal(t, 1, res.VersionsSkipped)

	var mv models.ModuleVersion
	require.NoError(t, db.First(&mv, seen.ID).Error)
	assert.False(t, mv.IsSecurity)

	v, err := c.ResolveVersion(ctx, m.ID, "1.2")
	require.NoError(t, err)
	assert.True(t, v.IsSecurity)
}

func TestImportReleases_RecomputesSiteModules(t *testing.T) {
	c, db, _ := setupCatalog(t)
	ctx := context.Background()

	site := models.Site{URL: "https://a.example", APIKeyHash: "h"}
	require.NoError(t, db.Create(&site).Error)
	m, err := c.ResolveModule(ctx, report("views", "1.0"))
	require.NoError(t, err)
	v, err := c.ResolveVersion(ctx, m.ID, "1.0")
	require.NoError(t, err)
	sm := models.SiteModule{SiteID: site.ID, ModuleID: m.ID, CurrentVersionID: v.ID, LatestVersionID: v.ID, Enabled: true}
	require.NoError(t, db.Create(&sm).Error)

	feed := &ReleaseFeed{Modules: []ReleaseModule{
		{MachineName: "views", Releases: []Release{{Version: "1.1", Security: true}, {Version: "1.2"}}},
		{MachineName: "token", Type: models.TypeContrib, Releases: []Release{{Version: "1.0"}, {Version: "bad version"}}},
	}}
	res, err := c.ImportReleases(ctx, feed, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ModulesCreated)
	assert.Equal(t, 3, res.VersionsCreated)
	assert.Equal(t, 1, res.SiteModulesUpdated)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "token", res.Errors[0].MachineName)

	require.NoError(t, db.First(&sm, sm.ID).Error)
	assert.True(t, sm.UpdateAvailable)
	assert.True(t, sm.SecurityUpdateAvailable)
	assert.NotEqual(t, v.ID, sm.LatestVersionID)

	again, err := c.ImportReleases(ctx, feed, false)
	require.NoError(t, err)
	assert.Equal(t, 0, again.VersionsCreated)
	assert.Equal(t, 0, again.SiteModulesUpdated)
}

func TestImportReleases_DryRun(t *testing.T) {
	c, db, _ := setupCatalog(t)
	ctx := context.Background()

	res, err := c.ImportReleases(ctx, &ReleaseFeed{Modules: []ReleaseModule{
		{MachineName: "views", Releases: []Release{{Version: "1.0"}, {Version: "1.1"}}},
	}}, true)
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.ModulesCreated)
	assert.Equal(t, 2, res.VersionsCreated)

	var n int64
	require.NoError(t, db.Model(&models.ModuleVersion{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Module{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestImportReleases_Validation(t *testing.T) {
	c, _, _ := setupCatalog(t)
	_, err := c.ImportReleases(context.Background(), &ReleaseFeed{}, false)
	assert.Error(t, err)
}
