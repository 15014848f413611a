package kvstore

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// maxIncrAttempts bounds optimistic retries when counters are contended.
const maxIncrAttempts = 16

// NATSStore implements Store on a JetStream KeyValue bucket.
//
// Values carry their own expiry in an 8 byte header because bucket TTLs are
// global; the bucket MaxAge only garbage collects entries nobody rewrote.
type NATSStore struct {
	nc  *nats.Conn
	kv  jetstream.KeyValue
	now func() time.Time
}

// NewNATSStore opens (or creates) the bucket. maxAge should be at least the
// longest TTL any caller uses.
func NewNATSStore(ctx context.Context, nc *nats.Conn, bucket string, maxAge time.Duration) (*NATSStore, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "module monitor counters and cache",
		History:     1,
		TTL:         maxAge,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure key value bucket %s: %w", bucket, err)
	}
	return &NATSStore{nc: nc, kv: kv, now: time.Now}, nil
}

// encodeKey maps arbitrary keys onto the KV key alphabet.
func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func encodeValue(exp time.Time, payload []byte) []byte {
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint64(buf, uint64(exp.UnixNano()))
	copy(buf[8:], payload)
	return buf
}

func decodeValue(raw []byte) (time.Time, []byte, error) {
	if len(raw) < 8 {
		return time.Time{}, nil, errors.New("kvstore: corrupt entry")
	}
	exp := time.Unix(0, int64(binary.BigEndian.Uint64(raw[:8])))
	return exp, raw[8:], nil
}

func (s *NATSStore) entry(ctx context.Context, key string) (jetstream.KeyValueEntry, time.Time, []byte, error) {
	e, err := s.kv.Get(ctx, encodeKey(key))
	if err != nil {
		return nil, time.Time{}, nil, err
	}
	exp, payload, err := decodeValue(e.Value())
	if err != nil {
		return nil, time.Time{}, nil, err
	}
	return e, exp, payload, nil
}

// Get implements Store.
func (s *NATSStore) Get(ctx context.Context, key string) ([]byte, error) {
	_, exp, payload, err := s.entry(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore get %s: %w", key, err)
	}
	if !exp.After(s.now()) {
		return nil, ErrNotFound
	}
	return payload, nil
}

// Set implements Store.
func (s *NATSStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if _, err := s.kv.Put(ctx, encodeKey(key), encodeValue(s.now().Add(ttl), value)); err != nil {
		return fmt.Errorf("kvstore set %s: %w", key, err)
	}
	return nil
}

// Incr implements Store with compare-and-set on the entry revision.
func (s *NATSStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	k := encodeKey(key)
	for attempt := 0; attempt < maxIncrAttempts; attempt++ {
		now := s.now()
		e, exp, payload, err := s.entry(ctx, key)

		switch {
		case errors.Is(err, jetstream.ErrKeyNotFound):
			_, err = s.kv.Create(ctx, k, encodeValue(now.Add(ttl), counterBytes(1)))
			if err == nil {
				return 1, nil
			}
		case err != nil:
			return 0, fmt.Errorf("kvstore incr %s: %w", key, err)
		default:
			n := int64(1)
			if exp.After(now) {
				n = counterValue(payload) + 1
			} else {
				exp = now.Add(ttl)
			}
			_, err = s.kv.Update(ctx, k, encodeValue(exp, counterBytes(n)), e.Revision())
			if err == nil {
				return n, nil
			}
		}

		if !isConflict(err) {
			return 0, fmt.Errorf("kvstore incr %s: %w", key, err)
		}
	}
	return 0, fmt.Errorf("kvstore incr %s: too much contention", key)
}

func isConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

func counterBytes(n int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

func counterValue(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

// Delete implements Store.
func (s *NATSStore) Delete(ctx context.Context, key string) error {
	err := s.kv.Delete(ctx, encodeKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("kvstore delete %s: %w", key, err)
	}
	return nil
}

// Ping implements Store.
func (s *NATSStore) Ping(ctx context.Context) error {
	if !s.nc.IsConnected() {
		return fmt.Errorf("kvstore: nats connection is %s", s.nc.Status())
	}
	_, err := s.kv.Status(ctx)
	return err
}
