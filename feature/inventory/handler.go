package inventory

import (
	"errors"
	"strconv"

	"module-monitor/core/logger"
	"module-monitor/core/ratelimit"
	"module-monitor/feature/inventory/models"
	"module-monitor/feature/sites"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles inventory submissions.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the inventory routes behind guard.
func (h *Handler) RegisterRoutes(app fiber.Router, guard fiber.Handler) {
	group := app.Group("/api/v1/inventory", guard)
	group.Post("/", h.HandleSubmit)
}

// HandleSubmit accepts a site's module inventory.
// @Summary Submit Module Inventory
// @Description Reconciles the reported modules of the calling site. Up to the inline threshold the result is returned directly; larger inventories are queued and can be polled via status_url.
// @Tags inventory
// @Accept json
// @Produce json
// @Security SiteKeyAuth
// @Param request body models.SyncRequest true "Inventory"
// @Success 200 {object} reconcile.Result "Reconciled inline"
// @Success 202 {object} map[string]string "Queued"
// @Failure 400 {object} map[string]string "Malformed body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Site mismatch"
// @Failure 409 {object} map[string]string "Full sync in progress"
// @Failure 422 {object} map[string]interface{} "Validation failed"
// @Failure 429 {object} map[string]string "Rate limit exceeded"
// @Failure 503 {object} map[string]string "Queue or store unavailable"
// @Router /api/v1/inventory [post]
func (h *Handler) HandleSubmit(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	site := sites.FromCtx(c)
	if site == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req models.SyncRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Malformed JSON body"})
	}

	resp, err := h.service.Submit(c.UserContext(), site, &req, c.IP())
	if resp != nil && resp.Decision.Limit > 0 {
		setLimitHeaders(c, resp.Decision)
	}
	if err != nil {
		return h.writeError(c, l, err)
	}

	if resp.Mode == ModeBackground {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status":     "accepted",
			"task_id":    resp.TaskID,
			"status_url": resp.StatusURL,
		})
	}
	return c.JSON(resp.Result)
}

func (h *Handler) writeError(c *fiber.Ctx, l *zap.Logger, err error) error {
	var verr *ValidationError
	var limited *RateLimitExceeded
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Validation failed", "fields": verr.Fields})
	case errors.Is(err, ErrSiteMismatch):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &limited):
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(limited.Decision.RetryAfter(h.service.Now())))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Rate limit exceeded", "reset_at": limited.Decision.ResetAt})
	case errors.Is(err, ErrSyncInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrQueueUnavailable), errors.Is(err, ErrStoreUnavailable):
		l.Warn("Submission deferred", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Service temporarily unavailable"})
	default:
		l.Error("Submission failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}
}

func setLimitHeaders(c *fiber.Ctx, d ratelimit.Decision) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}
