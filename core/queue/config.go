package queue

import "time"

// Config holds configuration for the background job queue.
type Config struct {
	// Driver is "memory" (in-process, single node) or "nats" (JetStream).
	Driver string `mapstructure:"driver" default:"memory"`
	// Topic carries sync jobs.
	Topic string `mapstructure:"topic" default:"inventory_sync"`
	// Stream is the JetStream stream bound to Topic.
	Stream string `mapstructure:"stream" default:"INVENTORY_SYNC"`
	// StreamMaxAge bounds how long unconsumed jobs are retained.
	StreamMaxAge time.Duration `mapstructure:"stream_max_age" default:"168h"`
	// QueueGroup load balances jobs across worker instances.
	QueueGroup string `mapstructure:"queue_group" default:"sync-workers"`
	// Durable is the durable consumer name.
	Durable string `mapstructure:"durable" default:"sync-worker"`
	// AckWait is how long a job may run before it is redelivered.
	AckWait time.Duration `mapstructure:"ack_wait" default:"30m"`
	// MaxDeliver caps redeliveries of a job whose worker disappeared.
	MaxDeliver int `mapstructure:"max_deliver" default:"3"`
	// BreakerFailures is the consecutive publish failures that open the breaker.
	BreakerFailures uint32 `mapstructure:"breaker_failures" default:"5"`
	// BreakerTimeout is how long the breaker stays open.
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout" default:"30s"`
}
