package health

import (
	"net/http/httptest"
	"testing"

	"module-monitor/core/database"
	"module-monitor/core/kvstore"
	"module-monitor/feature/inventory/models"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func get(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	store := kvstore.NewDatabaseStore(db)

	app := fiber.New()
	feature := NewFeature(NewHandler(db, store, zap.NewNop()))
	assert.Equal(t, "health", feature.Name())
	assert.True(t, feature.IsEnabled())
	require.NoError(t, feature.Load(app))

	status, body := get(t, app, "/health")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	// Nothing migrated yet.
	status, body = get(t, app, "/health/ready")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["database"])
	assert.NotEqual(t, "ok", checks["schema"])

	require.NoError(t, models.AutoMigrate(db))
	status, body = get(t, app, "/health/ready")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", body["status"])
}
