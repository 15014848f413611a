package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is a row of the database-backed store.
type Entry struct {
	Key       string    `gorm:"column:cache_key;primaryKey;size:191"`
	Value     []byte    `gorm:"column:value"`
	Counter   int64     `gorm:"column:counter;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
}

// TableName overrides the table name.
func (Entry) TableName() string {
	return "kv_entries"
}

// DatabaseStore implements Store on the relational database.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures a DatabaseStore.
type Option func(*DatabaseStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *DatabaseStore) { s.now = now }
}

// NewDatabaseStore creates a store backed by the kv_entries table.
func NewDatabaseStore(db *gorm.DB, opts ...Option) *DatabaseStore {
	s := &DatabaseStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the kv_entries table.
func (s *DatabaseStore) Migrate() error {
	return s.db.AutoMigrate(&Entry{})
}

func (s *DatabaseStore) clock() time.Time {
	return s.now().UTC()
}

// Get implements Store.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, error) {
	var e Entry
	err := s.db.WithContext(ctx).
		Where("cache_key = ? AND expires_at > ?", key, s.clock()).
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore get %s: %w", key, err)
	}
	return e.Value, nil
}

// Set implements Store.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := Entry{Key: key, Value: value, ExpiresAt: s.clock().Add(ttl)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "counter", "expires_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("kvstore set %s: %w", key, err)
	}
	return nil
}

// Incr implements Store with a single upsert followed by a read inside one
// transaction, so concurrent callers each observe a distinct count.
func (s *DatabaseStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	now := s.clock()
	exp := now.Add(ttl)

	var out Entry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e := Entry{Key: key, Counter: 1, ExpiresAt: exp}
		// Assignments are emitted in key order, so counter is evaluated against
		// the old expires_at before it is reset.
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cache_key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"counter":    gorm.Expr("CASE WHEN expires_at <= ? THEN 1 ELSE counter + 1 END", now),
				"expires_at": gorm.Expr("CASE WHEN expires_at <= ? THEN ? ELSE expires_at END", now, exp),
			}),
		}).Create(&e).Error; err != nil {
			return err
		}
		return tx.Where("cache_key = ?", key).Take(&out).Error
	})
	if err != nil {
		return 0, fmt.Errorf("kvstore incr %s: %w", key, err)
	}
	return out.Counter, nil
}

// Delete implements Store.
func (s *DatabaseStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("cache_key = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("kvstore delete %s: %w", key, err)
	}
	return nil
}

// Ping implements Store.
func (s *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// DeleteExpired purges expired rows and returns how many were removed.
func (s *DatabaseStore) DeleteExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.clock()).Delete(&Entry{})
	if res.Error != nil {
		return 0, fmt.Errorf("kvstore purge: %w", res.Error)
	}
	return res.RowsAffected, nil
}
