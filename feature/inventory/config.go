package inventory

import "time"

// Payload store drivers.
const (
	PayloadStoreDatabase = "database"
	PayloadStoreObject   = "object"
)

// Config holds inventory submission settings.
type Config struct {
	// Threshold is the largest module count reconciled inline.
	Threshold int `mapstructure:"threshold" default:"500"`
	// ChunkSize is the number of modules applied per transaction.
	ChunkSize int `mapstructure:"chunk_size" default:"100"`
	// MaxModules caps the modules accepted in one submission.
	MaxModules int `mapstructure:"max_modules" default:"10000"`
	// PayloadStore is "database" or "object".
	PayloadStore string `mapstructure:"payload_store" default:"database"`
	// FullSyncLock rejects a full sync while another one for the site runs.
	FullSyncLock bool `mapstructure:"full_sync_lock" default:"true"`
	// LockTTL bounds how long an abandoned full sync lock survives.
	LockTTL time.Duration `mapstructure:"lock_ttl" default:"30m"`
}
