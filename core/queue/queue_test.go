package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"module-monitor/core/broker"
	"module-monitor/core/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(10 * time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestMemoryQueue(t *testing.T) {
	q := NewMemory(logger.NewWatermillAdapter(zap.NewNop()))
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := Config{Topic: "inventory_sync"}
	msgs, err := q.Subscriber.Subscribe(ctx, cfg.Topic)
	require.NoError(t, err)

	pub := NewPublisher(q.Publisher, cfg)
	require.NoError(t, pub.Publish(ctx, "task-1", []byte(`{"task_id":"task-1"}`), map[string]string{"site_id": "3"}))

	msg := receive(t, msgs)
	assert.Equal(t, "task-1", msg.UUID)
	assert.Equal(t, "3", msg.Metadata.Get("site_id"))
	assert.JSONEq(t, `{"task_id":"task-1"}`, string(msg.Payload))
	msg.Ack()
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(string, ...*message.Message) error {
	f.calls++
	return errors.New("nats: no responders available")
}

func (f *failingPublisher) Close() error { return nil }

func TestPublisher_BreakerOpens(t *testing.T) {
	fp := &failingPublisher{}
	pub := NewPublisher(fp, Config{Topic: "t", BreakerFailures: 2, BreakerTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		err := pub.Publish(ctx, "id", nil, nil)
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	// The breaker short-circuits once open.
	assert.Equal(t, 2, fp.calls)
	assert.Equal(t, "open", pub.State())
}

func TestNATSQueue(t *testing.T) {
	b, err := broker.Start(broker.Config{Embedded: true, Port: -1, StoreDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := Config{
		Topic:        "inventory_sync",
		Stream:       "INVENTORY_SYNC",
		StreamMaxAge: time.Hour,
		QueueGroup:   "sync-workers",
		Durable:      "sync-worker",
		AckWait:      30 * time.Second,
		MaxDeliver:   3,
	}
	q, err := NewNATS(ctx, cfg, b.URL(), b.Conn(), 1, logger.NewWatermillAdapter(zap.NewNop()))
	require.NoError(t, err)
	defer q.Close()

	pub := NewPublisher(q.Publisher, cfg)
	require.NoError(t, pub.Publish(ctx, "task-9", []byte(`{"task_id":"task-9"}`), nil))

	msgs, err := q.Subscriber.Subscribe(ctx, cfg.Topic)
	require.NoError(t, err)

	msg := receive(t, msgs)
	assert.Equal(t, "task-9", msg.UUID)
	msg.Ack()
}
