package jobs

import (
	"fmt"

	"module-monitor/core/reconcile"

	"github.com/goccy/go-json"
)

// Job is the queue message of a background sync. The module list itself is
// kept in a PayloadStore and referenced by PayloadRef.
type Job struct {
	TaskID     string               `json:"task_id"`
	SiteID     uint                 `json:"site_id"`
	FullSync   bool                 `json:"full_sync"`
	PayloadRef string               `json:"payload_ref"`
	LockKey    string               `json:"lock_key,omitempty"`
	Warnings   []reconcile.RowError `json:"warnings,omitempty"`
}

// Encode returns the wire form of j.
func Encode(j Job) ([]byte, error) {
	raw, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}
	return raw, nil
}

// Decode parses a job message.
func Decode(raw []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(raw, &j); err != nil {
		return j, fmt.Errorf("decode job: %w", err)
	}
	if j.TaskID == "" {
		return j, fmt.Errorf("decode job: missing task_id")
	}
	return j, nil
}
