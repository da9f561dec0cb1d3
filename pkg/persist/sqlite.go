package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// blobRecord is one row per store key.
type blobRecord struct {
	Key       string `gorm:"column:store_key;primaryKey;size:128"`
	Value     []byte
	UpdatedAt time.Time
}

func (blobRecord) TableName() string { return "state_blobs" }

// SQLite keeps the blob in a local sqlite file, the server-side analog of
// browser local storage.
type SQLite struct {
	db  *gorm.DB
	key string
}

func NewSQLite(path, key string, log *zap.Logger) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&blobRecord{}); err != nil {
		return nil, fmt.Errorf("migrate state_blobs: %w", err)
	}
	if log != nil {
		log.Info("sqlite persister ready", zap.String("path", path), zap.String("key", key))
	}
	return &SQLite{db: db, key: key}, nil
}

func (s *SQLite) Load(ctx context.Context) ([]byte, error) {
	var rec blobRecord
	err := s.db.WithContext(ctx).Where("store_key = ?", s.key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.key, err)
	}
	return rec.Value, nil
}

func (s *SQLite) Save(ctx context.Context, blob []byte) error {
	rec := blobRecord{Key: s.key, Value: blob, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save %s: %w", s.key, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
