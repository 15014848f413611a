package config

import (
	"reflect"
	"strings"

	"module-monitor/core/broker"
	"module-monitor/core/cache"
	"module-monitor/core/database"
	"module-monitor/core/kvstore"
	"module-monitor/core/logger"
	"module-monitor/core/queue"
	"module-monitor/core/ratelimit"
	"module-monitor/core/server"
	"module-monitor/core/storage"
	"module-monitor/feature/inventory"
	"module-monitor/feature/inventory/worker"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Storage holds configuration for the object storage used by large payloads.
	Storage storage.Config `mapstructure:"storage"`
	// Store selects the shared key/value store for counters and cache entries.
	Store kvstore.Config `mapstructure:"store"`
	// NATS holds the broker connection used by the nats store and queue drivers.
	NATS broker.Config `mapstructure:"nats"`
	// Queue holds configuration for the background job queue.
	Queue queue.Config `mapstructure:"queue"`
	// Cache holds TTLs per cache key class.
	Cache cache.Config `mapstructure:"cache"`
	// RateLimit holds the per-site submission limit.
	RateLimit ratelimit.Config `mapstructure:"ratelimit"`
	// Sync holds inventory submission settings.
	Sync inventory.Config `mapstructure:"sync"`
	// Worker holds background worker settings.
	Worker worker.Config `mapstructure:"worker"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SYNC_THRESHOLD -> sync.threshold)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// time.Duration is an int64, so only plain structs recurse.
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
