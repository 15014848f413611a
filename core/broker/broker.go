package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Broker owns the NATS connection and, when configured, the embedded server.
type Broker struct {
	srv *server.Server
	nc  *nats.Conn
	url string
}

// Start connects to NATS, starting the embedded server first if requested.
func Start(cfg Config, logger *zap.Logger) (*Broker, error) {
	b := &Broker{url: cfg.URL}

	if cfg.Embedded {
		srv, err := server.NewServer(&server.Options{
			ServerName: "module-monitor",
			Host:       "127.0.0.1",
			Port:       cfg.Port,
			JetStream:  true,
			StoreDir:   cfg.StoreDir,
			NoLog:      true,
			NoSigs:     true,
			MaxPayload: 8 * 1024 * 1024,
		})
		if err != nil {
			return nil, fmt.Errorf("create NATS server: %w", err)
		}
		go srv.Start()
		if !srv.ReadyForConnections(30 * time.Second) {
			srv.Shutdown()
			return nil, errors.New("NATS server not ready within timeout")
		}
		b.srv = srv
		b.url = srv.ClientURL()
		logger.Info("Embedded NATS server started", zap.String("url", b.url))
	}

	nc, err := nats.Connect(b.url,
		nats.Name("module-monitor"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	b.nc = nc
	return b, nil
}

// URL returns the client URL, which differs from the configured one when the
// embedded server picked its own port.
func (b *Broker) URL() string {
	return b.url
}

// Conn returns the shared connection.
func (b *Broker) Conn() *nats.Conn {
	return b.nc
}

// Close drains the connection and stops the embedded server.
func (b *Broker) Close() {
	if b.nc != nil {
		_ = b.nc.Drain()
	}
	if b.srv != nil {
		b.srv.Shutdown()
		b.srv.WaitForShutdown()
	}
}
