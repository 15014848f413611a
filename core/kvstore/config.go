package kvstore

// Config selects the shared store backend.
type Config struct {
	// Driver is "database" (kv_entries table) or "nats" (JetStream KeyValue).
	Driver string `mapstructure:"driver" default:"database"`
	// Bucket is the JetStream KeyValue bucket name.
	Bucket string `mapstructure:"bucket" default:"module_monitor"`
}
