package tasks

import (
	"time"

	"module-monitor/core/reconcile"
	"module-monitor/feature/inventory/models"
)

// Progress is the processed and total row count of a task.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// View is the status document returned to polling sites.
type View struct {
	ID          string            `json:"id"`
	Status      models.TaskStatus `json:"status"`
	Progress    Progress          `json:"progress"`
	Result      *reconcile.Result `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// NewView builds the status document of t. The result is exposed once the
// task is terminal; a failed task may carry a partial one.
func NewView(t *models.Task) (*View, error) {
	v := &View{
		ID:       t.ID,
		Status:   t.Status,
		Progress: Progress{Current: t.ProgressCurrent, Total: t.ProgressTotal},
	}
	switch t.Status {
	case models.TaskCompleted:
		res, err := DecodeResult(t)
		if err != nil {
			return nil, err
		}
		v.Result = res
		v.CompletedAt = t.CompletedAt
	case models.TaskFailed:
		res, err := DecodeResult(t)
		if err != nil {
			return nil, err
		}
		v.Result = res
		v.Error = t.Error
		v.CompletedAt = t.CompletedAt
	}
	return v, nil
}
