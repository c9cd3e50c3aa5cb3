package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Entry is one row of the key/value table.
type Entry struct {
	Key       string `gorm:"primaryKey;size:128"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName pins the table name regardless of naming strategy.
func (Entry) TableName() string {
	return "repairdesk_kv"
}

// GormStore keeps every key in one PostgreSQL table.
type GormStore struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and migrates the key/value table.
func OpenPostgres(dsn string) (*GormStore, error) {
	const op = "OpenPostgres"

	if dsn == "" {
		return nil, fmt.Errorf("%s: DATABASE_URL is required for the postgres store", op)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect: %w", op, err)
	}
	return NewGormStore(db)
}

// NewGormStore wraps an existing connection and migrates the table.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	const op = "NewGormStore"

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("%s: failed to migrate: %w", op, err)
	}
	return &GormStore{db: db}, nil
}

// Get returns the value stored under key, or ErrNotFound.
func (g *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "GormStore.Get"

	var e Entry
	err := g.db.WithContext(ctx).Where("key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e.Value, nil
}

// Put inserts or overwrites the value stored under key.
func (g *GormStore) Put(ctx context.Context, key string, value []byte) error {
	const op = "GormStore.Put"

	e := Entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (g *GormStore) Delete(ctx context.Context, key string) error {
	const op = "GormStore.Delete"

	if err := g.db.WithContext(ctx).Where("key = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
