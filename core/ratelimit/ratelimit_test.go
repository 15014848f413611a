package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"module-monitor/core/database"
	"module-monitor/core/kvstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLimiter(t *testing.T, now *time.Time) *Limiter {
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	clock := func() time.Time { return *now }
	store := kvstore.NewDatabaseStore(db, kvstore.WithClock(clock))
	require.NoError(t, store.Migrate())
	return New(store, Config{Limit: 4, Window: time.Hour}, WithClock(clock))
}

func TestLimiter_Exactness(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)
	l := setupLimiter(t, &now)
	ctx := context.Background()
	reset := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	for i := 1; i <= 4; i++ {
		d, err := l.Check(ctx, 1)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 4-i, d.Remaining)
		assert.Equal(t, 4, d.Limit)
		assert.Equal(t, reset, d.ResetAt)
	}

	d, err := l.Check(ctx, 1)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, reset, d.ResetAt)
	assert.Equal(t, 45*60, d.RetryAfter(now))

	// Other sites have their own budget.
	d, err = l.Check(ctx, 2)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	now = reset.Add(time.Second)
	d, err = l.Check(ctx, 1)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 3, d.Remaining)
}

type brokenStore struct{ kvstore.Store }

func (brokenStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestLimiter_StoreError(t *testing.T) {
	l := New(brokenStore{}, Config{Limit: 4, Window: time.Hour})
	_, err := l.Check(context.Background(), 1)
	assert.ErrorContains(t, err, "connection refused")
}

func TestDecision_RetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	d := Decision{ResetAt: now.Add(1500 * time.Millisecond)}
	assert.Equal(t, 2, d.RetryAfter(now))
	assert.Equal(t, 1, d.RetryAfter(now.Add(time.Hour)))
}
