package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"
)

// ErrUnavailable is returned when a job could not be handed to the queue.
var ErrUnavailable = errors.New("queue unavailable")

// Publisher publishes jobs to one topic behind a circuit breaker.
type Publisher struct {
	pub   message.Publisher
	topic string
	cb    *gobreaker.CircuitBreaker[any]
}

// NewPublisher wraps pub. A breaker opens after cfg.BreakerFailures
// consecutive failures and fails fast for cfg.BreakerTimeout.
func NewPublisher(pub message.Publisher, cfg Config) *Publisher {
	threshold := cfg.BreakerFailures
	if threshold == 0 {
		threshold = 5
	}
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "queue-publish",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	return &Publisher{pub: pub, topic: cfg.Topic, cb: cb}
}

// Publish sends payload as message id. The id doubles as the JetStream
// de-duplication id.
func (p *Publisher) Publish(ctx context.Context, id string, payload []byte, metadata map[string]string) error {
	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)
	for k, v := range metadata {
		msg.Metadata.Set(k, v)
	}
	msg.Metadata.Set(nats.MsgIdHdr, id)

	_, err := p.cb.Execute(func() (any, error) {
		return nil, p.pub.Publish(p.topic, msg)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// State reports the breaker state for diagnostics.
func (p *Publisher) State() string {
	return p.cb.State().String()
}
