package repository

import (
	"context"

	"medremind/internal/domain/entity"
)

// ReminderStore defines the interface for durable reminder persistence.
// The list is stored as a whole: Load reads the complete array and Save
// replaces it, mirroring a key-value blob store rather than a row store.
type ReminderStore interface {
	// Load reads the full reminder list. A missing record yields an
	// empty list, not an error.
	Load(ctx context.Context) ([]*entity.Reminder, error)
	// Save replaces the full reminder list.
	Save(ctx context.Context, reminders []*entity.Reminder) error
}
