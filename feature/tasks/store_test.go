package tasks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"module-monitor/core/database"
	"module-monitor/core/reconcile"
	"module-monitor/feature/inventory/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func setupStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore(db, WithClock(clock.Now)), clock
}

func TestStore_Lifecycle(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	task := &models.Task{SiteID: 1, ProgressTotal: 250}
	require.NoError(t, s.Create(ctx, task))
	assert.NotEmpty(t, task.ID)

	got, err := s.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, got.Status)

	// Progress before Start is not allowed.
	assert.ErrorIs(t, s.Progress(ctx, task.ID, 100, nil), ErrInvalidTransition)

	require.NoError(t, s.Start(ctx, task.ID))
	assert.ErrorIs(t, s.Start(ctx, task.ID), ErrInvalidTransition)

	partial := reconcile.NewResult()
	partial.Created = 100
	require.NoError(t, s.Progress(ctx, task.ID, 100, partial))

	got, err = s.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.ProgressCurrent)
	res, err := DecodeResult(got)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Created)

	final := reconcile.NewResult()
	final.Created = 250
	require.NoError(t, s.Complete(ctx, task.ID, final))

	got, err = s.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, got.Status)
	assert.Equal(t, 250, got.ProgressCurrent)
	assert.NotNil(t, got.CompletedAt)

	assert.ErrorIs(t, s.Fail(ctx, task.ID, nil, "late"), ErrInvalidTransition)
}

func TestStore_FailKeepsPartialResult(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	task := &models.Task{SiteID: 1, ProgressTotal: 300}
	require.NoError(t, s.Create(ctx, task))
	require.NoError(t, s.Start(ctx, task.ID))

	partial := reconcile.NewResult()
	partial.Updated = 100
	require.NoError(t, s.Fail(ctx, task.ID, partial, "chunk 2: boom"))

	got, err := s.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskFailed, got.Status)
	assert.Equal(t, "chunk 2: boom", got.Error)

	view, err := NewView(got)
	require.NoError(t, err)
	require.NotNil(t, view.Result)
	assert.Equal(t, 100, view.Result.Updated)
	assert.Equal(t, "chunk 2: boom", view.Error)
}

func TestStore_UnknownTask(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Start(ctx, "missing"), ErrNotFound)
}

func TestStore_GetForSite(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	task := &models.Task{SiteID: 1}
	require.NoError(t, s.Create(ctx, task))

	_, err := s.GetForSite(ctx, task.ID, 1)
	assert.NoError(t, err)
	_, err = s.GetForSite(ctx, task.ID, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_FailStaleAndPurge(t *testing.T) {
	s, clock := setupStore(t)
	ctx := context.Background()

	stuck := &models.Task{SiteID: 1}
	require.NoError(t, s.Create(ctx, stuck))
	require.NoError(t, s.Start(ctx, stuck.ID))

	waiting := &models.Task{SiteID: 1}
	require.NoError(t, s.Create(ctx, waiting))

	clock.Advance(20 * time.Minute)

	fresh := &models.Task{SiteID: 1}
	require.NoError(t, s.Create(ctx, fresh))
	require.NoError(t, s.Start(ctx, fresh.ID))

	failed, err := s.FailStale(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{stuck.ID}, failed)

	got, err := s.Get(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskFailed, got.Status)
	assert.Contains(t, got.Error, "worker lost")

	n, err := s.Purge(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(2 * time.Hour)
	n, err = s.Purge(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Get(ctx, stuck.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, waiting.ID)
	assert.NoError(t, err)
}

func TestStore_FailStaleSparesProgressingTasks(t *testing.T) {
	s, clock := setupStore(t)
	ctx := context.Background()

	busy := &models.Task{SiteID: 1, ProgressTotal: 2000}
	require.NoError(t, s.Create(ctx, busy))
	require.NoError(t, s.Start(ctx, busy.ID))

	for i := 1; i <= 20; i++ {
		clock.Advance(time.Minute)
		require.NoError(t, s.Progress(ctx, busy.ID, i*100, &reconcile.Result{Created: i * 100}))
	}

	failed, err := s.FailStale(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, failed)

	require.NoError(t, s.Progress(ctx, busy.ID, 2000, &reconcile.Result{Created: 2000}))
	require.NoError(t, s.Complete(ctx, busy.ID, &reconcile.Result{Created: 2000}))

	got, err := s.Get(ctx, busy.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, got.Status)
}

func TestStore_LargeResult(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	task := &models.Task{SiteID: 1, ProgressTotal: 10000}
	require.NoError(t, s.Create(ctx, task))
	require.NoError(t, s.Start(ctx, task.ID))

	res := &reconcile.Result{}
	for i := 0; i < 2000; i++ {
		res.Errors = append(res.Errors, reconcile.RowError{
			MachineName: fmt.Sprintf("module_with_a_rather_long_machine_name_%04d", i),
			Message:     "version is malformed: \"not a version\"",
		})
	}
	require.NoError(t, s.Fail(ctx, task.ID, res, "reconcile failed"))

	got, err := s.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Greater(t, len(got.Result), 65535)
	decoded, err := DecodeResult(got)
	require.NoError(t, err)
	assert.Len(t, decoded.Errors, 2000)
}

func TestStore_DatabaseError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT \\* FROM `sync_tasks`").WillReturnError(assert.AnError)

	_, err = NewStore(db).Get(context.Background(), "t1")
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
