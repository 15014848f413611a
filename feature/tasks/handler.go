package tasks

import (
	"errors"

	"module-monitor/core/logger"
	"module-monitor/feature/sites"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves task status to the owning site.
type Handler struct {
	store  *Store
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(store *Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes registers the task routes behind guard.
func (h *Handler) RegisterRoutes(app fiber.Router, guard fiber.Handler) {
	group := app.Group("/api/v1/tasks", guard)
	group.Get("/:id", h.HandleStatus)
}

// HandleStatus returns the status of a background sync.
// @Summary Get Sync Task Status
// @Description Returns progress of a background sync, plus its result once completed or its error once failed. Tasks of other sites are reported as not found.
// @Tags tasks
// @Produce json
// @Security SiteKeyAuth
// @Param id path string true "Task ID"
// @Success 200 {object} View
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "TaskNotFound"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /api/v1/tasks/{id} [get]
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	site := sites.FromCtx(c)
	if site == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	t, err := h.store.GetForSite(c.UserContext(), c.Params("id"), site.ID)
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "TaskNotFound"})
	}
	if err != nil {
		l.Error("Task lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	view, err := NewView(t)
	if err != nil {
		l.Error("Task result undecodable", zap.String("task_id", t.ID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(view)
}
