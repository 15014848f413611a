package broker

// Config holds the NATS connection settings shared by the queue and the
// NATS key/value store.
type Config struct {
	// URL of an external NATS server. Ignored when Embedded is set.
	URL string `mapstructure:"url" default:"nats://127.0.0.1:4222"`
	// Embedded runs an in-process JetStream server for single node deployments.
	Embedded bool `mapstructure:"embedded" default:"false"`
	// Port of the embedded server. -1 picks a random port.
	Port int `mapstructure:"port" default:"4222"`
	// StoreDir is where the embedded server keeps JetStream data.
	StoreDir string `mapstructure:"store_dir" default:"./data/nats"`
}
