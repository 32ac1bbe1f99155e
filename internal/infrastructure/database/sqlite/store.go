package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"medremind/internal/domain/entity"
	"medremind/internal/domain/repository"
	"medremind/internal/pkg/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StorageRecord is one key-value row of the local store: an opaque
// string key mapping to a JSON blob.
type StorageRecord struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value;type:text"`
}

// TableName specifies the table name for the StorageRecord entity.
func (StorageRecord) TableName() string {
	return "local_storage"
}

// reminderListKey is the single key holding the serialized reminder list.
const reminderListKey = "reminders"

type reminderStore struct {
	db  *gorm.DB
	log logger.Logger
}

// NewReminderStore creates a new instance of ReminderStore backed by the
// key-value table.
func NewReminderStore(db *gorm.DB, log logger.Logger) repository.ReminderStore {
	return &reminderStore{db: db, log: log}
}

// Load reads and decodes the full reminder list. A missing record is an
// empty list.
func (s *reminderStore) Load(ctx context.Context) ([]*entity.Reminder, error) {
	var record StorageRecord
	if err := s.db.WithContext(ctx).First(&record, "key = ?", reminderListKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []*entity.Reminder{}, nil
		}
		return nil, fmt.Errorf("failed to read reminder list: %w", err)
	}

	var reminders []*entity.Reminder
	if err := json.Unmarshal([]byte(record.Value), &reminders); err != nil {
		return nil, fmt.Errorf("failed to decode reminder list: %w", err)
	}
	return reminders, nil
}

// Save serializes and replaces the full reminder list under its key.
func (s *reminderStore) Save(ctx context.Context, reminders []*entity.Reminder) error {
	data, err := json.Marshal(reminders)
	if err != nil {
		return fmt.Errorf("failed to encode reminder list: %w", err)
	}

	record := StorageRecord{Key: reminderListKey, Value: string(data)}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to write reminder list: %w", err)
	}
	s.log.Debug(fmt.Sprintf("Persisted %d reminders", len(reminders)))
	return nil
}
