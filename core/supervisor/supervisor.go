package supervisor

import (
	"time"

	"github.com/thejerf/suture/v4"
	"go.uber.org/zap"
)

// Config tunes restart behaviour of supervised services.
type Config struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultConfig returns the restart policy used by the start and worker commands.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// New creates a root supervisor that logs its events through zap.
func New(name string, cfg Config, logger *zap.Logger) *suture.Supervisor {
	return suture.New(name, suture.Spec{
		EventHook:        EventHook(logger),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})
}

// EventHook maps suture events to zap log entries.
func EventHook(logger *zap.Logger) suture.EventHook {
	l := logger.Named("supervisor")
	return func(e suture.Event) {
		fields := make([]zap.Field, 0, len(e.Map()))
		for k, v := range e.Map() {
			fields = append(fields, zap.Any(k, v))
		}
		switch e.Type() {
		case suture.EventTypeServicePanic, suture.EventTypeServiceTerminate:
			l.Error(e.String(), fields...)
		case suture.EventTypeBackoff, suture.EventTypeStopTimeout:
			l.Warn(e.String(), fields...)
		default:
			l.Info(e.String(), fields...)
		}
	}
}
