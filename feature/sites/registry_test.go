package sites

import (
	"context"
	"net/http/httptest"
	"testing"

	"module-monitor/core/database"
	"module-monitor/feature/inventory/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupRegistry(t *testing.T) *Registry {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return NewRegistry(db, zap.NewNop())
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://Example.com/", "https://example.com"},
		{"HTTPS://example.com:443", "https://example.com"},
		{"http://example.com:80/site/", "http://example.com/site"},
		{"http://example.com:8080", "http://example.com:8080"},
		{"https://example.com/?q=1#top", "https://example.com"},
	}
	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := NormalizeURL("example.com")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	site, key, err := reg.Register(ctx, "", "https://Example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", site.URL)
	assert.NotEmpty(t, key)
	assert.NotEqual(t, key, site.APIKeyHash)

	got, err := reg.Authenticate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, site.ID, got.ID)

	_, err = reg.Authenticate(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownKey)
	_, err = reg.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnknownKey)

	assert.True(t, reg.MatchesURL(site, "https://example.com:443/"))
	assert.False(t, reg.MatchesURL(site, "https://other.example.com"))
	assert.False(t, reg.MatchesURL(site, "::"))
}

func TestRecordSync(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()
	site, _, err := reg.Register(ctx, "a", "https://a.example")
	require.NoError(t, err)

	require.NoError(t, reg.RecordSync(ctx, site, &models.SyncRequest{CoreVersion: "10.2.1", RuntimeVersion: "8.3"}, "10.0.0.9"))
	var stored models.Site
	require.NoError(t, reg.db.First(&stored, site.ID).Error)
	assert.Equal(t, "10.2.1", stored.CoreVersion)
	assert.Equal(t, "10.0.0.9", stored.IPAddress)
	assert.NotNil(t, stored.LastSyncAt)

	require.NoError(t, reg.RecordSync(ctx, site, &models.SyncRequest{IPAddress: "192.0.2.1"}, "10.0.0.9"))
	require.NoError(t, reg.db.First(&stored, site.ID).Error)
	assert.Equal(t, "192.0.2.1", stored.IPAddress)
}

func TestAuthenticate_DatabaseError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT \\* FROM `sites`").WillReturnError(assert.AnError)

	reg := NewRegistry(db, zap.NewNop())
	_, err = reg.Authenticate(context.Background(), "k")
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, ErrUnknownKey)
}

func TestMiddleware(t *testing.T) {
	reg := setupRegistry(t)
	_, key, err := reg.Register(context.Background(), "a", "https://a.example")
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/whoami", Middleware(reg), func(c *fiber.Ctx) error {
		return c.SendString(FromCtx(c).URL)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set(Header, key)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
