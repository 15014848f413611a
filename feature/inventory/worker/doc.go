// Package worker runs background syncs.
//
// The Worker subscribes to the job topic and processes jobs concurrently. For
// each job it starts the task, loads the payload, applies it chunk by chunk
// while recording progress, runs full sync deactivation and completes the
// task. A failure at any point fails the task with the partial result; chunks
// already committed stay committed. Jobs are not retried once their task has
// started: a redelivered job for a task that is no longer pending is
// acknowledged and skipped.
//
// The Sweeper periodically fails tasks stuck in progress, purges terminal
// tasks past retention and removes expired shared store entries.
package worker
