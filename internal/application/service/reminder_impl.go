package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"medremind/internal/application/dto"
	"medremind/internal/application/schedule"
	"medremind/internal/domain/constant"
	"medremind/internal/domain/entity"
	"medremind/internal/domain/repository"
	appErrors "medremind/internal/pkg/errors"
	"medremind/internal/pkg/logger"

	"github.com/google/uuid"
)

const maxDailyCount = 20

type reminderService struct {
	store      repository.ReminderStore
	dispatcher DispatcherService
	content    *ContentBuilder
	log        logger.Logger
	now        func() time.Time

	mu        sync.Mutex
	reminders []*entity.Reminder
	// scheduling gates the full reschedule pass so a second pass cannot
	// start while one is in flight.
	scheduling bool
	active     bool
}

// NewReminderService creates a new instance of ReminderService and
// registers itself as the dispatcher's fired handler.
func NewReminderService(
	store repository.ReminderStore,
	dispatcher DispatcherService,
	content *ContentBuilder,
	log logger.Logger,
) ReminderService {
	rs := &reminderService{
		store:      store,
		dispatcher: dispatcher,
		content:    content,
		log:        log,
		now:        time.Now,
	}
	dispatcher.SetFiredHandler(rs.HandleFired)
	log.Info("Fired handler set for DispatcherService.")
	return rs
}

// Activate brings the reminder page up: load the store, resolve the
// username for notification content, request permission and run one
// reschedule pass over the loaded list.
func (s *reminderService) Activate(ctx context.Context) error {
	loaded, err := s.store.Load(ctx)
	if err != nil {
		// The in-memory list stays the session's source of truth; a
		// storage hiccup must not lose in-session edits.
		s.log.Error("Failed to load persisted reminders, continuing with in-memory list", err)
	} else {
		s.mu.Lock()
		s.reminders = loaded
		s.mu.Unlock()
		s.log.Info(fmt.Sprintf("Loaded %d persisted reminders", len(loaded)))
	}

	s.mu.Lock()
	s.active = true
	s.mu.Unlock()

	s.content.ResolveUsername(ctx)
	if err := s.dispatcher.RequestPermission(ctx); err != nil {
		s.log.Error("Notification permission unavailable", err)
	}
	s.dispatcher.SetPageActive(true)

	s.setupReminders(ctx)
	return nil
}

// Deactivate tears the page down: in-process timers and lifecycle flags
// are cleared, native scheduler registrations are left standing so they
// fire while the app is not running.
func (s *reminderService) Deactivate() {
	s.dispatcher.SetPageActive(false)
	s.dispatcher.Deactivate()

	s.mu.Lock()
	s.scheduling = false
	s.active = false
	s.mu.Unlock()
	s.log.Info("Reminder page deactivated.")
}

// ListReminders returns the current in-memory list.
func (s *reminderService) ListReminders(ctx context.Context) []dto.ReminderResponse {
	s.mu.Lock()
	list := make([]*entity.Reminder, len(s.reminders))
	copy(list, s.reminders)
	s.mu.Unlock()
	return dto.ToReminderResponseList(list, s.now())
}

// SaveReminder validates and stores a new or edited reminder, then
// cancels and re-arms all of its slots.
func (s *reminderService) SaveReminder(ctx context.Context, req dto.SaveReminderRequest) (dto.ReminderResponse, error) {
	now := s.now()
	if err := validateSave(req, now); err != nil {
		return dto.ReminderResponse{}, err
	}

	step := req.RepeatCustomValue
	if step < 1 {
		step = 1
	}

	s.mu.Lock()
	var rem *entity.Reminder
	if req.ID == "" {
		rem = &entity.Reminder{
			ID:        uuid.NewString(),
			CreatedAt: now,
		}
		s.reminders = append(s.reminders, rem)
	} else {
		rem = s.findLocked(req.ID)
		if rem == nil {
			s.mu.Unlock()
			return dto.ReminderResponse{}, appErrors.ErrReminderNotFound
		}
	}
	rem.Name = strings.TrimSpace(req.Name)
	rem.StartDate = req.StartDate
	rem.EndDate = req.EndDate
	rem.Dosage = req.Dosage
	rem.Notes = req.Notes
	rem.DailyCount = req.DailyCount
	rem.DailyTimes = req.DailyTimes
	rem.DailyTimeEnabled = req.DailyTimeEnabled
	rem.RepeatInterval = constant.RepeatInterval(req.RepeatInterval)
	rem.RepeatCustomValue = step
	rem.UpdatedAt = now
	persistErr := s.persistLocked(ctx)
	s.mu.Unlock()

	// Cancel-then-reschedule even when persistence failed: the
	// in-memory record is live for this session either way.
	if err := s.dispatcher.CancelReminder(ctx, rem.ID); err != nil {
		s.log.Error(fmt.Sprintf("Failed to cancel schedules for reminder %s before rescheduling", rem.ID), err)
	}
	if err := s.dispatcher.ScheduleReminder(ctx, rem); err != nil {
		s.log.Error(fmt.Sprintf("Failed to schedule reminder %s after save", rem.ID), err)
	}

	s.log.Info(fmt.Sprintf("Saved reminder %s (%s)", rem.ID, rem.Name))
	return dto.ToReminderResponse(rem, now), persistErr
}

// DeleteReminder removes a reminder on explicit user action.
func (s *reminderService) DeleteReminder(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.findLocked(id) == nil {
		s.mu.Unlock()
		return appErrors.ErrReminderNotFound
	}
	s.mu.Unlock()
	return s.hardDelete(ctx, id)
}

// ToggleSlot flips one slot's enabled flag, persists it and re-arms the
// reminder. Disabled slots stay in DailyTimes for display and editing.
func (s *reminderService) ToggleSlot(ctx context.Context, id string, req dto.ToggleSlotRequest) error {
	s.mu.Lock()
	rem := s.findLocked(id)
	if rem == nil {
		s.mu.Unlock()
		return appErrors.ErrReminderNotFound
	}
	if !containsSlot(rem.DailyTimes, req.Slot) {
		s.mu.Unlock()
		return appErrors.ErrSlotNotFound
	}
	if rem.DailyTimeEnabled == nil {
		rem.DailyTimeEnabled = make(map[string]bool, len(rem.DailyTimes))
	}
	rem.DailyTimeEnabled[req.Slot] = req.Enabled
	rem.UpdatedAt = s.now()
	persistErr := s.persistLocked(ctx)
	s.mu.Unlock()

	if err := s.dispatcher.CancelReminder(ctx, id); err != nil {
		s.log.Error(fmt.Sprintf("Failed to cancel schedules for reminder %s before rescheduling", id), err)
	}
	if err := s.dispatcher.ScheduleReminder(ctx, rem); err != nil {
		s.log.Error(fmt.Sprintf("Failed to reschedule reminder %s after slot toggle", id), err)
	}
	s.log.Info(fmt.Sprintf("Slot %s of reminder %s set enabled=%t", req.Slot, id, req.Enabled))
	return persistErr
}

// HandleFired advances a reminder after a logical firing. A firing that
// references a reminder no longer in the store is a harmless no-op.
func (s *reminderService) HandleFired(ctx context.Context, reminderID, slot string) error {
	now := s.now()

	s.mu.Lock()
	rem := s.findLocked(reminderID)
	if rem == nil {
		s.mu.Unlock()
		s.log.Warn(fmt.Sprintf("Firing for reminder %s ignored: no longer in the store", reminderID))
		return nil
	}
	fired := now
	rem.LastFiredAt = &fired
	rem.UpdatedAt = now
	s.mu.Unlock()

	if rem.RepeatInterval == constant.RepeatNone {
		// One-shot: re-arm only the remaining same-day slot, or delete
		// once every enabled slot of the day has fired.
		next, nextSlot, ok := schedule.NextTimeToday(rem, now)
		if !ok {
			s.log.Info(fmt.Sprintf("One-shot reminder %s exhausted, deleting", reminderID))
			return s.hardDelete(ctx, reminderID)
		}
		if err := s.dispatcher.ScheduleSlot(ctx, rem, nextSlot, next); err != nil {
			s.log.Error(fmt.Sprintf("Failed to re-arm slot %s of one-shot reminder %s", nextSlot, reminderID), err)
		}
		return s.persist(ctx)
	}

	if schedule.IsExpired(rem, now) {
		s.log.Info(fmt.Sprintf("Reminder %s is past its end date, deleting", reminderID))
		return s.hardDelete(ctx, reminderID)
	}
	next, ok := schedule.NextOccurrence(rem, now)
	if !ok {
		s.log.Info(fmt.Sprintf("Next occurrence of reminder %s exceeds its end date, deleting", reminderID))
		return s.hardDelete(ctx, reminderID)
	}

	if err := s.dispatcher.ScheduleReminder(ctx, rem); err != nil {
		s.log.Error(fmt.Sprintf("Failed to re-arm reminder %s for %v", reminderID, next), err)
	}
	s.log.Info(fmt.Sprintf("Reminder %s advanced, next occurrence %v", reminderID, next))
	return s.persist(ctx)
}

// setupReminders runs one full reschedule pass: expired reminders are
// deleted, the rest get their next future occurrence armed. Missed
// firings are never replayed. A boolean flag gates re-entry while a
// pass is in progress.
func (s *reminderService) setupReminders(ctx context.Context) {
	s.mu.Lock()
	if s.scheduling {
		s.mu.Unlock()
		s.log.Warn("Reschedule pass already in progress, skipping")
		return
	}
	s.scheduling = true
	snapshot := make([]*entity.Reminder, len(s.reminders))
	copy(snapshot, s.reminders)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.scheduling = false
		s.mu.Unlock()
	}()

	now := s.now()
	scheduled := 0
	deleted := 0
	for _, rem := range snapshot {
		if schedule.IsExpired(rem, now) {
			if err := s.hardDelete(ctx, rem.ID); err != nil {
				s.log.Error(fmt.Sprintf("Failed to delete expired reminder %s during setup", rem.ID), err)
			} else {
				deleted++
			}
			continue
		}
		if err := s.dispatcher.ScheduleReminder(ctx, rem); err != nil {
			s.log.Error(fmt.Sprintf("Failed to schedule reminder %s during setup", rem.ID), err)
		} else {
			scheduled++
		}
	}
	s.log.Info(fmt.Sprintf("Reschedule pass complete. Scheduled: %d, Deleted expired: %d", scheduled, deleted))
}

// hardDelete cancels every schedule of the reminder, removes it from
// the list and persists the removal.
func (s *reminderService) hardDelete(ctx context.Context, id string) error {
	if err := s.dispatcher.CancelReminder(ctx, id); err != nil {
		s.log.Error(fmt.Sprintf("Failed to cancel schedules for reminder %s during delete", id), err)
	}

	s.mu.Lock()
	for i, rem := range s.reminders {
		if rem.ID == id {
			s.reminders = append(s.reminders[:i], s.reminders[i+1:]...)
			break
		}
	}
	persistErr := s.persistLocked(ctx)
	s.mu.Unlock()

	s.log.Info(fmt.Sprintf("Deleted reminder %s", id))
	return persistErr
}

func (s *reminderService) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

// persistLocked writes the whole list through to the store. Failures
// are logged and surfaced as recoverable; the in-memory list stays
// authoritative for the session and the next mutation retries.
func (s *reminderService) persistLocked(ctx context.Context) error {
	if err := s.store.Save(ctx, s.reminders); err != nil {
		s.log.Error("Failed to persist reminder list", err)
		return fmt.Errorf("%w: %v", appErrors.ErrStorage, err)
	}
	return nil
}

func (s *reminderService) findLocked(id string) *entity.Reminder {
	for _, rem := range s.reminders {
		if rem.ID == id {
			return rem
		}
	}
	return nil
}

// validateSave enforces the form contract: required name, today-or-
// later inclusive date range, a daily count matching the time slots and
// no two slots on the same minute.
func validateSave(req dto.SaveReminderRequest, now time.Time) error {
	if strings.TrimSpace(req.Name) == "" {
		return appErrors.ErrNameRequired
	}
	if req.StartDate == "" || req.EndDate == "" {
		return appErrors.ErrDateRequired
	}
	loc := now.Location()
	start, err := entity.ParseDay(req.StartDate, loc)
	if err != nil {
		return appErrors.ErrInvalidDate
	}
	end, err := entity.ParseDay(req.EndDate, loc)
	if err != nil {
		return appErrors.ErrInvalidDate
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if start.Before(today) || end.Before(today) {
		return appErrors.ErrPastDate
	}
	if end.Before(start) {
		return appErrors.ErrDateOrder
	}
	if req.DailyCount < 1 || req.DailyCount > maxDailyCount {
		return appErrors.ErrInvalidDailyCount
	}
	if len(req.DailyTimes) != req.DailyCount {
		return appErrors.ErrTimeCountMismatch
	}
	seen := make(map[string]struct{}, len(req.DailyTimes))
	for _, slot := range req.DailyTimes {
		if !entity.ValidSlot(slot) {
			return appErrors.ErrInvalidTime
		}
		if _, dup := seen[slot]; dup {
			return appErrors.ErrDuplicateTime
		}
		seen[slot] = struct{}{}
	}
	if !constant.RepeatInterval(req.RepeatInterval).Valid() {
		return appErrors.ErrInvalidRepeat
	}
	return nil
}

func containsSlot(times []string, slot string) bool {
	for _, s := range times {
		if s == slot {
			return true
		}
	}
	return false
}
