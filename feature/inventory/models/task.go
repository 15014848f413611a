package models

import "time"

// TaskStatus is the lifecycle state of a background sync.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Task tracks one background sync. Result holds the JSON encoded
// reconcile.Result, partial while running or after a failure.
type Task struct {
	ID              string     `gorm:"column:id;primaryKey;size:36"`
	SiteID          uint       `gorm:"column:site_id;not null;index"`
	FullSync        bool       `gorm:"column:full_sync;not null"`
	Status          TaskStatus `gorm:"column:status;size:16;not null;index"`
	ProgressCurrent int        `gorm:"column:progress_current;not null"`
	ProgressTotal   int        `gorm:"column:progress_total;not null"`
	Result          string     `gorm:"column:result;type:longtext"`
	Error           string     `gorm:"column:error;type:text"`
	PayloadRef      string     `gorm:"column:payload_ref;size:255"`
	CreatedAt       time.Time  `gorm:"column:created_at;index"`
	StartedAt       *time.Time `gorm:"column:started_at"`
	CompletedAt     *time.Time `gorm:"column:completed_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;index"`
}

// TableName overrides the table name.
func (Task) TableName() string {
	return "sync_tasks"
}

// TaskPayload holds the module list of a background sync when payloads are
// kept in the database.
type TaskPayload struct {
	TaskID    string    `gorm:"column:task_id;primaryKey;size:36"`
	Modules   []byte    `gorm:"column:modules;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName overrides the table name.
func (TaskPayload) TableName() string {
	return "sync_task_payloads"
}
