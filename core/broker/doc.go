// Package broker connects to NATS.
//
// A deployment either points at an external NATS cluster or runs an embedded
// JetStream server in-process. The resulting connection backs the durable job queue
// (through Watermill) and, when store.driver is "nats", the shared key/value store.
package broker
