package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"module-monitor/core/kvstore"
	"module-monitor/core/metrics"
	"module-monitor/core/reconcile"
	"module-monitor/feature/inventory/jobs"
	"module-monitor/feature/inventory/models"
	inventoryReconcile "module-monitor/feature/inventory/reconcile"
	"module-monitor/feature/tasks"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Dependencies are the collaborators of a Worker.
type Dependencies struct {
	Subscriber message.Subscriber
	Topic      string
	Tasks      *tasks.Store
	Payloads   jobs.PayloadStore
	Engine     *inventoryReconcile.Engine
	Store      kvstore.Store
	Logger     *zap.Logger
}

// Worker consumes sync jobs and drives their tasks to a terminal state.
type Worker struct {
	cfg  Config
	deps Dependencies
	now  func() time.Time
}

// New creates a worker.
func New(cfg Config, deps Dependencies) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Worker{cfg: cfg, deps: deps, now: time.Now}
}

// Serve implements suture.Service. It subscribes to the job topic and
// processes messages with cfg.Concurrency goroutines until ctx is cancelled.
func (w *Worker) Serve(ctx context.Context) error {
	messages, err := w.deps.Subscriber.Subscribe(ctx, w.deps.Topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", w.deps.Topic, err)
	}
	w.deps.Logger.Info("Sync worker started",
		zap.String("topic", w.deps.Topic),
		zap.Int("concurrency", w.cfg.Concurrency),
	)

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.consume(ctx, messages)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// String implements fmt.Stringer for suture logs.
func (w *Worker) String() string {
	return "sync-worker"
}

func (w *Worker) consume(ctx context.Context, messages <-chan *message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg *message.Message) {
	job, err := jobs.Decode(msg.Payload)
	if err != nil {
		w.deps.Logger.Error("Dropping undecodable job", zap.String("message_uuid", msg.UUID), zap.Error(err))
		msg.Ack()
		return
	}

	if err := w.Process(ctx, job); err != nil {
		w.deps.Logger.Warn("Job will be retried", zap.String("task_id", job.TaskID), zap.Error(err))
		select {
		case <-time.After(w.cfg.RetryDelay):
		case <-ctx.Done():
		}
		msg.Nack()
		return
	}
	msg.Ack()
}

// Process runs one job. It returns an error only when the task could not be
// started for a transient reason and the job should be delivered again. Once
// started, the task always ends completed or failed and Process returns nil.
func (w *Worker) Process(ctx context.Context, job jobs.Job) error {
	l := w.deps.Logger.With(zap.String("task_id", job.TaskID), zap.Uint("site_id", job.SiteID))

	err := w.deps.Tasks.Start(ctx, job.TaskID)
	if errors.Is(err, tasks.ErrInvalidTransition) || errors.Is(err, tasks.ErrNotFound) {
		l.Info("Skipping job for task that is no longer pending", zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}

	// A started task runs to completion regardless of shutdown.
	ctx = context.WithoutCancel(ctx)
	started := w.now()
	defer w.cleanup(ctx, l, job)

	modules, err := w.deps.Payloads.Get(ctx, job.PayloadRef)
	if err != nil {
		w.fail(ctx, l, job, nil, started, fmt.Errorf("load payload: %w", err))
		return nil
	}

	run, err := w.deps.Engine.Begin(ctx, job.SiteID, modules, job.FullSync)
	if err != nil {
		w.fail(ctx, l, job, nil, started, err)
		return nil
	}
	res := run.Result()
	res.Warnings = append(res.Warnings, job.Warnings...)

	processed := 0
	for i, chunk := range reconcile.Chunk(modules, w.deps.Engine.ChunkSize()) {
		if _, err := run.ApplyChunk(ctx, chunk); err != nil {
			w.fail(ctx, l, job, res, started, fmt.Errorf("chunk %d: %w", i+1, err))
			return nil
		}
		processed += len(chunk)
		if err := w.deps.Tasks.Progress(ctx, job.TaskID, processed, res); err != nil {
			w.fail(ctx, l, job, res, started, fmt.Errorf("record progress: %w", err))
			return nil
		}
		l.Debug("Chunk applied", zap.Int("processed", processed), zap.Int("total", len(modules)))
	}

	if _, err := run.Finish(ctx); err != nil {
		w.fail(ctx, l, job, res, started, fmt.Errorf("deactivate: %w", err))
		return nil
	}

	if err := w.deps.Tasks.Complete(ctx, job.TaskID, res); err != nil {
		l.Error("Failed to complete task", zap.Error(err))
		return nil
	}
	metrics.RecordRows(res.Created, res.Updated, res.Unchanged, res.Deactivated, len(res.Errors), len(res.Warnings))
	metrics.RecordTaskFinished(string(models.TaskCompleted), w.now().Sub(started))
	l.Info("Sync task completed",
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("deactivated", res.Deactivated),
		zap.Int("errors", len(res.Errors)),
	)
	return nil
}

func (w *Worker) fail(ctx context.Context, l *zap.Logger, job jobs.Job, res *reconcile.Result, started time.Time, cause error) {
	l.Error("Sync task failed", zap.Error(cause))
	if err := w.deps.Tasks.Fail(ctx, job.TaskID, res, cause.Error()); err != nil {
		l.Error("Failed to mark task failed", zap.Error(err))
	}
	metrics.RecordTaskFinished(string(models.TaskFailed), w.now().Sub(started))
}

func (w *Worker) cleanup(ctx context.Context, l *zap.Logger, job jobs.Job) {
	if err := w.deps.Payloads.Delete(ctx, job.PayloadRef); err != nil {
		l.Warn("Failed to delete payload", zap.String("ref", job.PayloadRef), zap.Error(err))
	}
	if job.LockKey != "" {
		if err := kvstore.Unlock(ctx, w.deps.Store, job.LockKey); err != nil {
			l.Warn("Failed to release sync lock", zap.String("key", job.LockKey), zap.Error(err))
		}
	}
}
