// Package reconcile applies a site's module reports to its stored SiteModule
// rows.
//
// A Run is started with Begin, fed chunks with ApplyChunk and completed with
// Finish. Inline submissions use Apply, which does all three; the background
// worker drives the steps itself to report progress between chunks.
//
// Every row ends as created, updated, unchanged or a row error. Reapplying the
// same report yields only unchanged rows. A full sync additionally disables
// the site's rows that were enabled when the run began and are absent from
// the report; a partial sync never disables anything. Rows are never deleted.
package reconcile
