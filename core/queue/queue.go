package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Queue bundles the Watermill publisher and subscriber of one driver.
type Queue struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	closers    []func() error
}

// NewMemory creates an in-process queue. Jobs are lost on restart, so it is
// meant for single node development and tests. Messages are kept for late
// subscribers, so a job published before the worker subscribed is not lost.
func NewMemory(logger watermill.LoggerAdapter) *Queue {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64, Persistent: true}, logger)
	return &Queue{
		Publisher:  ch,
		Subscriber: ch,
		closers:    []func() error{ch.Close},
	}
}

// NewNATS creates a JetStream backed queue. The stream is provisioned here so
// the publisher and subscriber can bind to it by name.
func NewNATS(ctx context.Context, cfg Config, url string, nc *nats.Conn, concurrency int, logger watermill.LoggerAdapter) (*Queue, error) {
	if err := EnsureStream(ctx, nc, cfg); err != nil {
		return nil, err
	}

	natsOpts := []nats.Option{
		nats.Name("module-monitor-queue"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Error("Queue disconnected", err, nil)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Queue reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	if concurrency < 1 {
		concurrency = 1
	}
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: concurrency,
		AckWaitTimeout:   cfg.AckWait,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			AckAsync:      false,
			DurablePrefix: cfg.Durable,
			SubscribeOptions: []nats.SubOpt{
				nats.BindStream(cfg.Stream),
				nats.DeliverAll(),
				nats.AckExplicit(),
				nats.AckWait(cfg.AckWait),
				nats.MaxDeliver(cfg.MaxDeliver),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Queue{
		Publisher:  pub,
		Subscriber: sub,
		closers:    []func() error{sub.Close, pub.Close},
	}, nil
}

// EnsureStream creates or updates the job stream.
func EnsureStream(ctx context.Context, nc *nats.Conn, cfg Config) error {
	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "inventory sync jobs",
		Subjects:    []string{cfg.Topic},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.StreamMaxAge,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		Duplicates:  cfg.AckWait,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
	}
	return nil
}

// Close closes the subscriber and publisher.
func (q *Queue) Close() error {
	var errs []error
	for _, c := range q.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
