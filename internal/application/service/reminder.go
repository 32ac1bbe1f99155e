package service

import (
	"context"

	"medremind/internal/application/dto"
)

// ReminderService defines the interface for the reminder page's
// business logic: CRUD on reminders, slot toggling, schedule
// advancement after notification firings and the page lifecycle.
type ReminderService interface {
	// Activate loads the persisted reminders, requests notification
	// permission and arms every schedule. It never fires retroactive
	// notifications for times missed while the app was closed.
	Activate(ctx context.Context) error
	// Deactivate clears in-process timers and lifecycle flags. Native
	// scheduler registrations stay armed.
	Deactivate()
	// ListReminders returns the in-memory reminder list.
	ListReminders(ctx context.Context) []dto.ReminderResponse
	// SaveReminder validates and creates or edits a reminder, persists
	// it and re-arms its schedules (cancel-then-reschedule).
	SaveReminder(ctx context.Context, req dto.SaveReminderRequest) (dto.ReminderResponse, error)
	// DeleteReminder cancels every schedule of the reminder and removes it.
	DeleteReminder(ctx context.Context, id string) error
	// ToggleSlot enables or disables one time slot and re-arms the
	// reminder's schedules.
	ToggleSlot(ctx context.Context, id string, req dto.ToggleSlotRequest) error
	// HandleFired advances a reminder's schedule after a logical firing:
	// re-arm the next occurrence, or hard-delete an exhausted one-shot
	// or an expired reminder.
	HandleFired(ctx context.Context, reminderID, slot string) error
}
