package service

import (
	"context"
	"time"

	"medremind/internal/domain/entity"
	"medremind/internal/infrastructure/notify"
)

// DispatcherService translates computed fire times into notification
// backend registrations and routes delivery/tap events back into the
// reminder controller.
type DispatcherService interface {
	// RequestPermission asks the selected backend for delivery
	// permission, demoting to the timer fallback when denied.
	RequestPermission(ctx context.Context) error
	// ScheduleReminder re-arms every enabled slot of the reminder,
	// cancelling each slot's previous registration first.
	ScheduleReminder(ctx context.Context, rem *entity.Reminder) error
	// ScheduleSlot re-arms a single slot at a known fire time.
	ScheduleSlot(ctx context.Context, rem *entity.Reminder, slot string, fireAt time.Time) error
	// CancelReminder cancels every registration belonging to any slot of
	// the reminder. Safe to call when none exist.
	CancelReminder(ctx context.Context, reminderID string) error
	// OnDelivered handles a delivery callback. Duplicate callbacks for
	// the same notification instance are ignored.
	OnDelivered(ctx context.Context, evt notify.Event)
	// OnUserActivated handles a user tapping a delivered notification.
	OnUserActivated(ctx context.Context, evt notify.Event)
	// SetFiredHandler installs the controller callback that advances a
	// reminder's schedule after a logical firing.
	SetFiredHandler(fn func(ctx context.Context, reminderID, slot string) error)
	// SetPageActive propagates page visibility to the backends.
	SetPageActive(active bool)
	// Deactivate clears in-process timers and fire windows. Native
	// registrations stay in place.
	Deactivate()
}
