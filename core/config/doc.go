// Package config provides configuration management for the module monitor.
//
// It utilizes Viper for loading configuration from environment variables and an
// optional .env file. Defaults come from `default:"..."` struct tags, so every
// setting is documented next to the field it configures.
//
// # Configuration Structure
//
//   - Server: HTTP port, admin API key, body limit
//   - Log: logging level and format
//   - Database: MySQL or SQLite connection details
//   - Storage: S3/MinIO settings for large sync payloads
//   - Store: shared key/value store (database or NATS KV)
//   - Queue: background job queue (in-memory or NATS JetStream)
//   - Cache, RateLimit, Sync, Worker: pipeline tuning
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.Threshold)
package config
