// Package reconcile holds the bookkeeping shared by the inventory engine and the
// background worker.
//
// Result accounts for every reported row: created, updated, unchanged, a row
// error, or a duplicate warning. Deactivations from full syncs are counted
// separately because they concern stored rows, not reported ones.
//
// The keyed-set helpers express the two set operations reconciliation needs:
// last-write-wins de-duplication of a report and the full sync difference
// "stored and enabled, but not reported".
//
//	kept, dropped := reconcile.Dedupe(reports, func(r Report) string { return r.MachineName })
//	ids := reconcile.PlanDeactivation(snapshot, reported)
package reconcile
