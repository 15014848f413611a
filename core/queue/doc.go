// Package queue wires the durable job queue that feeds the background worker.
//
// Watermill provides the publisher/subscriber abstraction. In production the "nats"
// driver uses JetStream with a durable queue-group consumer, so a job survives
// restarts and is processed by exactly one worker instance. The "memory" driver is
// a Watermill gochannel for single node setups and tests.
//
// Publishing goes through a gobreaker circuit breaker: when NATS is unreachable the
// API stops waiting on it and reports the queue as unavailable.
package queue
