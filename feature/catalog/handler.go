package catalog

import (
	"errors"

	"module-monitor/core/logger"
	"module-monitor/core/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves the release import endpoint.
type Handler struct {
	catalog *Catalog
}

// NewHandler creates a new HTTP handler.
func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

// RegisterRoutes registers the catalog routes behind guard.
func (h *Handler) RegisterRoutes(app fiber.Router, guard fiber.Handler) {
	group := app.Group("/api/v1/releases", guard)
	group.Post("/", h.HandleImport)
}

// HandleImport imports release history.
// @Summary Import Release History
// @Description Adds unknown module versions with their security flags and recomputes update flags of affected sites. Existing versions are never modified.
// @Tags catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param dry_run query boolean false "Report what would change without writing"
// @Param feed body ReleaseFeed true "Release feed"
// @Success 200 {object} ImportResult
// @Failure 400 {object} map[string]string "Malformed body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 422 {object} map[string]interface{} "Validation failed"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /api/v1/releases [post]
func (h *Handler) HandleImport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.catalog.logger, c)

	var feed ReleaseFeed
	if err := c.BodyParser(&feed); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Malformed JSON body"})
	}

	res, err := h.catalog.ImportReleases(c.UserContext(), &feed, c.QueryBool("dry_run"))
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Validation failed", "fields": verr.Fields})
		}
		l.Error("Release import failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(res)
}
