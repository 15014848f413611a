// Package jobs defines the queue message of a background sync and where its
// module list is kept.
//
// Payloads go to the sync_task_payloads table by default, or to the object
// storage bucket when sync.payload_store is "object". Either way the queue
// message stays small and only carries the reference.
package jobs
