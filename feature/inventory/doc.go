// Package inventory accepts module inventories from sites.
//
// A submission goes through these steps in order:
//
//   - Validation of the request shape and the module cap.
//   - Check that site_url belongs to the authenticated site.
//   - The per-site rate limit. Rejected submissions touch nothing else.
//   - De-duplication by machine name. The last entry wins and earlier ones are
//     reported as warnings.
//   - Update of the site's metadata snapshot.
//   - For a full sync, the per-site advisory lock.
//
// Inventories up to sync.threshold modules are reconciled inline and answered
// with the result. Larger ones become a pending task whose module list is
// stored in a payload store and whose job is published to the queue; the
// caller gets 202 with a status URL. See the worker package for the consumer.
//
// # HTTP Endpoints
//
//   - POST /api/v1/inventory : Submits an inventory (X-Site-Key).
package inventory
