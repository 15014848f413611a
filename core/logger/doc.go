// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments (development vs production)
// and integrates with the Fiber web framework and the Watermill job queue.
//
// # Context Awareness
//
// The WithRayID helper extracts the RayID from a Fiber context and attaches it to the
// log entry, so every log line emitted while handling an inventory submission can be
// correlated with the response the site received.
//
// # Watermill
//
// NewWatermillAdapter exposes a zap logger through watermill.LoggerAdapter so that the
// queue publisher and subscriber log in the same format as the rest of the service.
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Server started")
//
//	// In a request handler:
//	l := logger.WithRayID(log, c)
//	l.Error("Handler failed", zap.Error(err))
package logger
