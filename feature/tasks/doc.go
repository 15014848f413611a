// Package tasks tracks background syncs.
//
// A task is created pending when a submission is too large to reconcile
// inline, started by exactly one worker, and ends completed or failed. Sites
// poll GET /api/v1/tasks/:id for progress; a task is only visible to the site
// that submitted it. Terminal tasks are purged after the retention period.
package tasks
