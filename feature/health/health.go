package health

import (
	"context"
	"time"

	"module-monitor/core/database"
	"module-monitor/core/kvstore"
	"module-monitor/core/logger"
	"module-monitor/feature/inventory/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler serves liveness and readiness probes.
type Handler struct {
	db      *gorm.DB
	store   kvstore.Store
	timeout time.Duration
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler. store may be nil.
func NewHandler(db *gorm.DB, store kvstore.Store, logger *zap.Logger) *Handler {
	return &Handler{db: db, store: store, timeout: 5 * time.Second, logger: logger}
}

// RegisterRoutes registers the health routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/health")
	group.Get("/", h.HandleLive)
	group.Get("/ready", h.HandleReady)
}

// HandleLive reports that the process is up.
// @Summary Liveness
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HandleLive(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// HandleReady checks the database, the schema and the shared store.
// @Summary Readiness
// @Description Pings the database, checks that every required column exists and pings the shared store.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (h *Handler) HandleReady(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	checks := fiber.Map{}
	ready := true

	if err := database.Ping(ctx, h.db); err != nil {
		l.Warn("Database not ready", zap.Error(err))
		checks["database"] = err.Error()
		ready = false
	} else {
		checks["database"] = "ok"
		missing, err := database.MissingColumns(h.db.WithContext(ctx), models.RequiredColumns())
		switch {
		case err != nil:
			checks["schema"] = err.Error()
			ready = false
		case len(missing) > 0:
			checks["schema"] = fiber.Map{"missing": missing}
			ready = false
		default:
			checks["schema"] = "ok"
		}
	}

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			l.Warn("Shared store not ready", zap.Error(err))
			checks["store"] = err.Error()
			ready = false
		} else {
			checks["store"] = "ok"
		}
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "checks": checks})
	}
	return c.JSON(fiber.Map{"status": "ready", "checks": checks})
}
