package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"module-monitor/core/reconcile"
	"module-monitor/feature/inventory/models"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned for unknown or purged tasks.
	ErrNotFound = errors.New("task not found")
	// ErrInvalidTransition is returned when a task is not in the state a
	// transition requires.
	ErrInvalidTransition = errors.New("invalid task transition")
)

// Store persists the task state machine:
//
//	pending -> in_progress -> completed | failed
//	pending -> failed
//
// Every transition is a conditional update on the current status, so two
// workers can never both start the same task.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a task store.
func NewStore(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

// NewID returns a fresh task id.
func NewID() string {
	return uuid.NewString()
}

// Create inserts t as a pending task. An empty id is generated.
func (s *Store) Create(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	t.Status = models.TaskPending
	t.ProgressCurrent = 0
	t.CreatedAt = s.clock()
	t.UpdatedAt = t.CreatedAt
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Get returns the task with id.
func (s *Store) Get(ctx context.Context, id string) (*models.Task, error) {
	var t models.Task
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}
	return &t, nil
}

// GetForSite returns the task only if siteID owns it. Tasks of other sites
// are reported as not found.
func (s *Store) GetForSite(ctx context.Context, id string, siteID uint) (*models.Task, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.SiteID != siteID {
		return nil, ErrNotFound
	}
	return t, nil
}

// Start moves a pending task to in_progress.
func (s *Store) Start(ctx context.Context, id string) error {
	return s.transition(ctx, id, []models.TaskStatus{models.TaskPending}, map[string]any{
		"status":     models.TaskInProgress,
		"started_at": s.clock(),
	})
}

// Progress records processed rows and the partial result of a running task.
func (s *Store) Progress(ctx context.Context, id string, current int, res *reconcile.Result) error {
	raw, err := encodeResult(res)
	if err != nil {
		return err
	}
	return s.transition(ctx, id, []models.TaskStatus{models.TaskInProgress}, map[string]any{
		"progress_current": current,
		"result":           raw,
	})
}

// Complete marks a running task completed with its final result.
func (s *Store) Complete(ctx context.Context, id string, res *reconcile.Result) error {
	raw, err := encodeResult(res)
	if err != nil {
		return err
	}
	return s.transition(ctx, id, []models.TaskStatus{models.TaskInProgress}, map[string]any{
		"status":           models.TaskCompleted,
		"progress_current": gorm.Expr("progress_total"),
		"result":           raw,
		"completed_at":     s.clock(),
	})
}

// Fail marks a pending or running task failed. res may hold a partial result.
func (s *Store) Fail(ctx context.Context, id string, res *reconcile.Result, cause string) error {
	updates := map[string]any{
		"status":       models.TaskFailed,
		"error":        cause,
		"completed_at": s.clock(),
	}
	if res != nil {
		raw, err := encodeResult(res)
		if err != nil {
			return err
		}
		updates["result"] = raw
	}
	return s.transition(ctx, id, []models.TaskStatus{models.TaskPending, models.TaskInProgress}, updates)
}

// FailStale fails in_progress tasks whose last transition or progress update
// is older than now-after and returns their ids.
func (s *Store) FailStale(ctx context.Context, after time.Duration) ([]string, error) {
	now := s.clock()
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("status = ? AND updated_at < ?", models.TaskInProgress, now.Add(-after)).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("find stale tasks: %w", err)
	}

	failed := ids[:0]
	for _, id := range ids {
		err := s.Fail(ctx, id, nil, fmt.Sprintf("worker lost: no progress for %s", after))
		if errors.Is(err, ErrInvalidTransition) {
			continue
		}
		if err != nil {
			return failed, err
		}
		failed = append(failed, id)
	}
	return failed, nil
}

// Purge deletes terminal tasks that finished before now-retention.
func (s *Store) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("status IN ? AND completed_at < ?", []models.TaskStatus{models.TaskCompleted, models.TaskFailed}, s.clock().Add(-retention)).
		Delete(&models.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) transition(ctx context.Context, id string, from []models.TaskStatus, updates map[string]any) error {
	updates["updated_at"] = s.clock()
	res := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update task %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: task %s is not %v", ErrInvalidTransition, id, from)
}

func encodeResult(res *reconcile.Result) (string, error) {
	if res == nil {
		res = reconcile.NewResult()
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("encode task result: %w", err)
	}
	return string(raw), nil
}

// DecodeResult parses the stored result of t, or returns nil if none.
func DecodeResult(t *models.Task) (*reconcile.Result, error) {
	if t.Result == "" {
		return nil, nil
	}
	res := reconcile.NewResult()
	if err := json.Unmarshal([]byte(t.Result), res); err != nil {
		return nil, fmt.Errorf("decode task result: %w", err)
	}
	return res, nil
}
