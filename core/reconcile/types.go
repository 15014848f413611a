package reconcile

import "fmt"

// Outcome is what reconciliation did with one reported row.
type Outcome string

const (
	// OutcomeCreated means a new association was stored.
	OutcomeCreated Outcome = "created"
	// OutcomeUpdated means a stored association changed.
	OutcomeUpdated Outcome = "updated"
	// OutcomeUnchanged means the report matched stored state.
	OutcomeUnchanged Outcome = "unchanged"
)

// RowError is a failure confined to a single reported row.
type RowError struct {
	// MachineName identifies the row.
	MachineName string `json:"machine_name"`
	// Message describes the failure.
	Message string `json:"message"`
}

// Error implements error.
func (e RowError) Error() string {
	return fmt.Sprintf("%s: %s", e.MachineName, e.Message)
}

// Result aggregates reconciliation outcomes. Every reported row lands in
// exactly one of the counts, Errors or Warnings.
type Result struct {
	Created     int        `json:"created"`
	Updated     int        `json:"updated"`
	Unchanged   int        `json:"unchanged"`
	Deactivated int        `json:"deactivated"`
	Errors      []RowError `json:"errors"`
	Warnings    []RowError `json:"warnings"`
}

// NewResult returns an empty result with non-nil lists, so it encodes as [].
func NewResult() *Result {
	return &Result{Errors: []RowError{}, Warnings: []RowError{}}
}

// Record counts one row outcome.
func (r *Result) Record(o Outcome) {
	switch o {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeUnchanged:
		r.Unchanged++
	}
}

// Fail records a row error.
func (r *Result) Fail(machineName string, err error) {
	r.Errors = append(r.Errors, RowError{MachineName: machineName, Message: err.Error()})
}

// Warn records a row warning.
func (r *Result) Warn(machineName, message string) {
	r.Warnings = append(r.Warnings, RowError{MachineName: machineName, Message: message})
}

// Merge adds other into r.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Created += other.Created
	r.Updated += other.Updated
	r.Unchanged += other.Unchanged
	r.Deactivated += other.Deactivated
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Processed is the number of reported rows accounted for, excluding deactivations.
func (r *Result) Processed() int {
	return r.Created + r.Updated + r.Unchanged + len(r.Errors) + len(r.Warnings)
}
