package inventory

import (
	"errors"
	"fmt"

	"module-monitor/core/ratelimit"
	"module-monitor/core/validation"
)

var (
	// ErrSiteMismatch is returned when site_url does not belong to the
	// authenticated site.
	ErrSiteMismatch = errors.New("site_url does not match the authenticated site")
	// ErrSyncInProgress is returned when a full sync for the site already runs.
	ErrSyncInProgress = errors.New("a full sync for this site is already in progress")
	// ErrQueueUnavailable is returned when a background job could not be queued.
	ErrQueueUnavailable = errors.New("sync queue unavailable")
	// ErrStoreUnavailable is returned when the shared store cannot be reached
	// to count the submission or take the sync lock.
	ErrStoreUnavailable = errors.New("shared store unavailable")
)

// ValidationError lists the fields a submission failed on.
type ValidationError struct {
	Fields []validation.FieldError
}

// Error implements error.
func (e *ValidationError) Error() string {
	return (&validation.Error{Fields: e.Fields}).Error()
}

// RateLimitExceeded is returned when the site used up its window.
type RateLimitExceeded struct {
	Decision ratelimit.Decision
}

// Error implements error.
func (e *RateLimitExceeded) Error() string {
	return fmt.Sprintf("rate limit of %d submissions exceeded, resets at %s",
		e.Decision.Limit, e.Decision.ResetAt.Format("2006-01-02T15:04:05Z07:00"))
}
