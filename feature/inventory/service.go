package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"module-monitor/core/kvstore"
	"module-monitor/core/metrics"
	"module-monitor/core/ratelimit"
	"module-monitor/core/reconcile"
	"module-monitor/core/validation"
	"module-monitor/feature/inventory/jobs"
	"module-monitor/feature/inventory/models"
	inventoryReconcile "module-monitor/feature/inventory/reconcile"
	"module-monitor/feature/tasks"

	"go.uber.org/zap"
)

// Submission modes reported in responses and metrics.
const (
	ModeInline     = "inline"
	ModeBackground = "background"
)

// SiteDirectory is the identity provider the service consults.
type SiteDirectory interface {
	// MatchesURL reports whether reported names site.
	MatchesURL(site *models.Site, reported string) bool
	// RecordSync stores the metadata snapshot of an accepted submission.
	RecordSync(ctx context.Context, site *models.Site, req *models.SyncRequest, callerIP string) error
}

// Publisher hands jobs to the queue.
type Publisher interface {
	Publish(ctx context.Context, id string, payload []byte, metadata map[string]string) error
}

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	Sites     SiteDirectory
	Limiter   *ratelimit.Limiter
	Engine    *inventoryReconcile.Engine
	Tasks     *tasks.Store
	Payloads  jobs.PayloadStore
	Publisher Publisher
	Store     kvstore.Store
	Logger    *zap.Logger
}

// SyncResponse is the outcome of an accepted submission.
type SyncResponse struct {
	// Mode is ModeInline or ModeBackground.
	Mode string
	// Result is set for inline submissions.
	Result *reconcile.Result
	// TaskID and StatusURL are set for background submissions.
	TaskID    string
	StatusURL string
	// Decision is the rate-limit decision of the submission.
	Decision ratelimit.Decision
}

// Service is the sync orchestrator.
type Service struct {
	cfg  Config
	deps Dependencies
}

// NewService creates a service.
func NewService(cfg Config, deps Dependencies) *Service {
	return &Service{cfg: cfg, deps: deps}
}

// Now returns the rate limiter's current time.
func (s *Service) Now() time.Time {
	return s.deps.Limiter.Now()
}

// LockKey is the shared-store key of a site's full sync lock.
func LockKey(siteID uint) string {
	return fmt.Sprintf("lock:fullsync:site:%d", siteID)
}

// Submit validates req, counts it against the site's rate limit and either
// reconciles it inline or queues it as a background task.
//
// Once the rate limiter has run, the returned response carries its decision
// even when err is non-nil, so callers can always report limit headers.
func (s *Service) Submit(ctx context.Context, site *models.Site, req *models.SyncRequest, callerIP string) (*SyncResponse, error) {
	if err := s.validate(req); err != nil {
		metrics.RecordSubmission("rejected", "invalid")
		return nil, err
	}
	if !s.deps.Sites.MatchesURL(site, req.SiteURL) {
		metrics.RecordSubmission("rejected", "site_mismatch")
		return nil, ErrSiteMismatch
	}

	decision, err := s.deps.Limiter.Check(ctx, site.ID)
	if err != nil {
		metrics.RecordSubmission("rejected", "store_unavailable")
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	resp := &SyncResponse{Decision: decision}
	if !decision.Allowed {
		metrics.RateLimitRejections.Inc()
		metrics.RecordSubmission("rejected", "rate_limited")
		return resp, &RateLimitExceeded{Decision: decision}
	}

	modules, discarded := reconcile.Dedupe(req.Modules, func(m models.ModuleReport) string { return m.MachineName })
	warnings := make([]reconcile.RowError, 0, len(discarded))
	for _, d := range discarded {
		warnings = append(warnings, reconcile.RowError{
			MachineName: d.MachineName,
			Message:     "duplicate entry ignored, a later entry for the same module was used",
		})
	}

	fullSync := bool(req.FullSync)
	lockKey := ""
	if fullSync && s.cfg.FullSyncLock {
		ok, err := kvstore.TryLock(ctx, s.deps.Store, LockKey(site.ID), s.cfg.LockTTL)
		if err != nil {
			return resp, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		if !ok {
			metrics.RecordSubmission("rejected", "sync_in_progress")
			return resp, ErrSyncInProgress
		}
		lockKey = LockKey(site.ID)
	}

	if err := s.deps.Sites.RecordSync(ctx, site, req, callerIP); err != nil {
		if lockKey != "" {
			s.unlock(lockKey)
		}
		return resp, err
	}

	if len(modules) <= s.cfg.Threshold {
		return s.runInline(ctx, site, modules, fullSync, warnings, lockKey, resp)
	}
	return s.enqueue(ctx, site, modules, fullSync, warnings, lockKey, resp)
}

func (s *Service) validate(req *models.SyncRequest) error {
	err := validation.Struct(req)
	var verr *validation.Error
	if errors.As(err, &verr) {
		return &ValidationError{Fields: verr.Fields}
	}
	if err != nil {
		return err
	}
	if s.cfg.MaxModules > 0 && len(req.Modules) > s.cfg.MaxModules {
		return &ValidationError{Fields: []validation.FieldError{{
			Field: "modules",
			Rule:  "max",
			Param: strconv.Itoa(s.cfg.MaxModules),
		}}}
	}
	return nil
}

func (s *Service) runInline(ctx context.Context, site *models.Site, modules []models.ModuleReport, fullSync bool, warnings []reconcile.RowError, lockKey string, resp *SyncResponse) (*SyncResponse, error) {
	if lockKey != "" {
		defer s.unlock(lockKey)
	}

	res, err := s.deps.Engine.Apply(ctx, site.ID, modules, fullSync)
	if err != nil {
		metrics.RecordSubmission(ModeInline, "failed")
		return resp, fmt.Errorf("reconcile site %d: %w", site.ID, err)
	}
	res.Warnings = append(res.Warnings, warnings...)

	metrics.RecordSubmission(ModeInline, "completed")
	metrics.RecordRows(res.Created, res.Updated, res.Unchanged, res.Deactivated, len(res.Errors), len(res.Warnings))
	s.deps.Logger.Info("Inventory reconciled",
		zap.Uint("site_id", site.ID),
		zap.Int("modules", len(modules)),
		zap.Bool("full_sync", fullSync),
	)

	resp.Mode = ModeInline
	resp.Result = res
	return resp, nil
}

func (s *Service) enqueue(ctx context.Context, site *models.Site, modules []models.ModuleReport, fullSync bool, warnings []reconcile.RowError, lockKey string, resp *SyncResponse) (*SyncResponse, error) {
	release := func() {
		if lockKey != "" {
			s.unlock(lockKey)
		}
	}

	id := tasks.NewID()
	ref, err := s.deps.Payloads.Put(ctx, id, modules)
	if err != nil {
		release()
		return resp, err
	}

	task := &models.Task{ID: id, SiteID: site.ID, FullSync: fullSync, ProgressTotal: len(modules), PayloadRef: ref}
	if err := s.deps.Tasks.Create(ctx, task); err != nil {
		s.dropPayload(ref)
		release()
		return resp, err
	}

	raw, err := jobs.Encode(jobs.Job{
		TaskID:     id,
		SiteID:     site.ID,
		FullSync:   fullSync,
		PayloadRef: ref,
		LockKey:    lockKey,
		Warnings:   warnings,
	})
	if err == nil {
		err = s.deps.Publisher.Publish(ctx, id, raw, map[string]string{"site_id": strconv.FormatUint(uint64(site.ID), 10)})
	}
	if err != nil {
		metrics.QueuePublishFailures.Inc()
		metrics.RecordSubmission(ModeBackground, "queue_unavailable")
		s.deps.Logger.Error("Failed to queue sync", zap.String("task_id", id), zap.Error(err))
		if ferr := s.deps.Tasks.Fail(context.WithoutCancel(ctx), id, nil, "could not queue sync: "+err.Error()); ferr != nil {
			s.deps.Logger.Warn("Failed to mark task failed", zap.String("task_id", id), zap.Error(ferr))
		}
		s.dropPayload(ref)
		release()
		return resp, fmt.Errorf("%w: %w", ErrQueueUnavailable, err)
	}

	metrics.RecordSubmission(ModeBackground, "accepted")
	s.deps.Logger.Info("Inventory queued",
		zap.Uint("site_id", site.ID),
		zap.String("task_id", id),
		zap.Int("modules", len(modules)),
		zap.Bool("full_sync", fullSync),
	)

	resp.Mode = ModeBackground
	resp.TaskID = id
	resp.StatusURL = "/api/v1/tasks/" + id
	return resp, nil
}

func (s *Service) unlock(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := kvstore.Unlock(ctx, s.deps.Store, key); err != nil {
		s.deps.Logger.Warn("Failed to release sync lock", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) dropPayload(ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.deps.Payloads.Delete(ctx, ref); err != nil {
		s.deps.Logger.Warn("Failed to delete payload", zap.String("ref", ref), zap.Error(err))
	}
}
