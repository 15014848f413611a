package worker

import "time"

// Config holds background worker settings.
type Config struct {
	// Enabled runs the worker inside the start command.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Concurrency is the number of jobs processed in parallel.
	Concurrency int `mapstructure:"concurrency" default:"4"`
	// StaleAfter fails tasks that have been in progress this long.
	StaleAfter time.Duration `mapstructure:"stale_after" default:"15m"`
	// Retention is how long terminal tasks stay queryable.
	Retention time.Duration `mapstructure:"retention" default:"168h"`
	// SweepInterval is the period of the stale task and retention sweep.
	SweepInterval time.Duration `mapstructure:"sweep_interval" default:"5m"`
	// RetryDelay is the pause before a job is handed back after a transient failure.
	RetryDelay time.Duration `mapstructure:"retry_delay" default:"5s"`
}
