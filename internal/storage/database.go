package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/storefront-cart/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DatabaseStorage keeps keys in the storage_entries table.
type DatabaseStorage struct {
	db     *gorm.DB
	prefix string
}

func NewDatabaseStorage(db *gorm.DB, prefix string) *DatabaseStorage {
	return &DatabaseStorage{db: db, prefix: prefix}
}

func (s *DatabaseStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	var entry model.StorageEntry
	err := s.db.WithContext(ctx).
		Where("key = ?", namespaced(s.prefix, key)).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("database get", err)
	}
	return entry.Value, true, nil
}

func (s *DatabaseStorage) SetItem(ctx context.Context, key, value string) error {
	entry := model.StorageEntry{
		Key:       namespaced(s.prefix, key),
		Value:     value,
		UpdatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return unavailable("database set", err)
	}
	return nil
}

func (s *DatabaseStorage) RemoveItem(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).
		Where("key = ?", namespaced(s.prefix, key)).
		Delete(&model.StorageEntry{}).Error
	if err != nil {
		return unavailable("database delete", err)
	}
	return nil
}

func (s *DatabaseStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
