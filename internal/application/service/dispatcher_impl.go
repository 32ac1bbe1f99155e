package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medremind/internal/application/schedule"
	"medremind/internal/domain/entity"
	"medremind/internal/infrastructure/notify"
	appErrors "medremind/internal/pkg/errors"
	"medremind/internal/pkg/hash"
	"medremind/internal/pkg/logger"
)

// notificationCoolDown is the minimum gap between two user-visible
// sends for the same reminder. It absorbs double-scheduling races that
// produce near-simultaneous deliveries.
const notificationCoolDown = 5 * time.Minute

type dispatcherService struct {
	backend  notify.Backend
	fallback notify.Backend
	content  *ContentBuilder
	log      logger.Logger
	now      func() time.Time

	// Set after construction to break the controller/dispatcher cycle.
	firedHandler func(ctx context.Context, reminderID, slot string) error

	mu sync.Mutex
	// map[notification ID]request, for cancellation scans by reminder
	// and for re-publishing content at fire time.
	registered map[int64]notify.Request
	// handled notification instance keys, so a duplicate delivery
	// callback advances the schedule only once.
	handled map[string]struct{}
	// map[reminder ID]last visible send, backing the cool-down.
	lastSent map[string]time.Time
}

// NewDispatcherService creates the dispatcher over a primary backend
// and the timer fallback. The two may be the same instance when no
// native scheduler is configured.
// Note: the fired handler needs to be set later to avoid circular deps.
func NewDispatcherService(backend, fallback notify.Backend, content *ContentBuilder, log logger.Logger) DispatcherService {
	s := &dispatcherService{
		backend:    backend,
		fallback:   fallback,
		content:    content,
		log:        log,
		now:        time.Now,
		registered: make(map[int64]notify.Request),
		handled:    make(map[string]struct{}),
		lastSent:   make(map[string]time.Time),
	}
	backend.SetFireHandler(s.onBackendFire)
	if fallback != backend {
		fallback.SetFireHandler(s.onBackendFire)
	}
	return s
}

// SetFiredHandler sets the function called once per logical firing.
// This is called during dependency injection setup to break the
// circular dependency with the reminder controller.
func (s *dispatcherService) SetFiredHandler(fn func(ctx context.Context, reminderID, slot string) error) {
	s.firedHandler = fn
}

// onBackendFire is the FireHandler installed on both backends. Fires
// arrive outside any request scope, so delivery handling runs under a
// background context.
func (s *dispatcherService) onBackendFire(evt notify.Event) {
	s.OnDelivered(context.Background(), evt)
}

// RequestPermission asks the primary backend for permission. Denial is
// recovered by demoting to the timer fallback, not surfaced as failure.
func (s *dispatcherService) RequestPermission(ctx context.Context) error {
	if err := s.backend.RequestPermission(ctx); err != nil {
		if s.backend == s.fallback {
			return err
		}
		s.log.Warn(fmt.Sprintf("Notification permission denied, switching to in-process timers: %v", err))
		s.backend = s.fallback
	}
	return nil
}

// ScheduleReminder registers the next occurrence of every enabled slot.
// Slots with no valid future occurrence are skipped.
func (s *dispatcherService) ScheduleReminder(ctx context.Context, rem *entity.Reminder) error {
	var lastErr error
	for _, slot := range rem.DailyTimes {
		fireAt, ok := schedule.NextSlotOccurrence(rem, slot, s.now())
		if !ok {
			continue
		}
		if err := s.ScheduleSlot(ctx, rem, slot, fireAt); err != nil {
			s.log.Error(fmt.Sprintf("Failed to schedule slot %s of reminder %s", slot, rem.ID), err)
			lastErr = err
		}
	}
	return lastErr
}

// ScheduleSlot cancels the slot's existing registration and registers a
// new one under the same derived ID, so repeated calls never accumulate
// duplicates. Failures on the primary backend fall back to the
// in-process timer path instead of leaving the slot unscheduled.
func (s *dispatcherService) ScheduleSlot(ctx context.Context, rem *entity.Reminder, slot string, fireAt time.Time) error {
	id := hash.NotificationID(rem.ID, slot)
	s.cancelIDs(ctx, []int64{id})

	title, body := s.content.Build(rem, fireAt)
	req := notify.Request{
		ID:         id,
		Title:      title,
		Body:       body,
		FireAt:     fireAt,
		ReminderID: rem.ID,
		Slot:       slot,
	}

	target := s.backend
	if target == s.fallback {
		req.FireAt = fallbackFireTime(rem, slot, fireAt, s.now())
	}
	err := target.Schedule(ctx, req)
	if err != nil && target != s.fallback {
		s.log.Error(fmt.Sprintf("Native scheduling failed for notification %d, using timer fallback", id), err)
		req.FireAt = fallbackFireTime(rem, slot, fireAt, s.now())
		err = s.fallback.Schedule(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrScheduling, err)
	}

	s.mu.Lock()
	s.registered[id] = req
	s.mu.Unlock()
	return nil
}

// CancelReminder scans registrations by reminder ID and cancels them
// all. A reminder with no active registrations is a no-op.
func (s *dispatcherService) CancelReminder(ctx context.Context, reminderID string) error {
	s.mu.Lock()
	var ids []int64
	for id, req := range s.registered {
		if req.ReminderID == reminderID {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	if len(ids) == 0 {
		s.log.Debug(fmt.Sprintf("No active registrations for reminder %s to cancel.", reminderID))
		return nil
	}
	s.cancelIDs(ctx, ids)
	return nil
}

// OnDelivered handles a delivery callback: dedup by notification
// instance, publish the user-visible notification unless the reminder
// is in its cool-down, then let the controller advance the schedule.
func (s *dispatcherService) OnDelivered(ctx context.Context, evt notify.Event) {
	req, ok := s.consumeInstance(evt)
	if !ok {
		return
	}

	s.mu.Lock()
	last, sent := s.lastSent[evt.ReminderID]
	cooled := !sent || s.now().Sub(last) >= notificationCoolDown
	if cooled {
		s.lastSent[evt.ReminderID] = s.now()
	}
	s.mu.Unlock()

	if !cooled {
		s.log.Warn(fmt.Sprintf("Suppressing notification for reminder %s: last send was under %v ago", evt.ReminderID, notificationCoolDown))
	} else if req != nil {
		if err := s.backend.Publish(ctx, *req); err != nil {
			s.log.Error(fmt.Sprintf("Failed to publish notification %d", evt.ID), err)
		}
	}

	s.advance(ctx, evt)
}

// OnUserActivated handles the user tapping a notification. The tap and
// the delivery of the same instance advance the schedule only once.
func (s *dispatcherService) OnUserActivated(ctx context.Context, evt notify.Event) {
	if _, ok := s.consumeInstance(evt); !ok {
		return
	}
	s.advance(ctx, evt)
}

// SetPageActive propagates page visibility to both backends.
func (s *dispatcherService) SetPageActive(active bool) {
	s.backend.SetActive(active)
	if s.fallback != s.backend {
		s.fallback.SetActive(active)
	}
}

// Deactivate tears down in-process timers. The handled-instance set and
// cool-down map survive, so late callbacks from the torn-down page stay
// deduplicated.
func (s *dispatcherService) Deactivate() {
	s.backend.Deactivate()
	if s.fallback != s.backend {
		s.fallback.Deactivate()
	}
}

// consumeInstance marks a notification instance handled. It returns
// false for an instance seen before, and the registration if one is
// still tracked.
func (s *dispatcherService) consumeInstance(evt notify.Event) (*notify.Request, bool) {
	key := fmt.Sprintf("%d@%d", evt.ID, evt.FireAt.Unix())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.handled[key]; dup {
		s.log.Debug(fmt.Sprintf("Ignoring duplicate callback for notification instance %s", key))
		return nil, false
	}
	s.handled[key] = struct{}{}
	if req, ok := s.registered[evt.ID]; ok {
		delete(s.registered, evt.ID)
		return &req, true
	}
	return nil, true
}

func (s *dispatcherService) advance(ctx context.Context, evt notify.Event) {
	if s.firedHandler == nil {
		s.log.Error("Fired handler is not set on the dispatcher", nil)
		return
	}
	if err := s.firedHandler(ctx, evt.ReminderID, evt.Slot); err != nil {
		s.log.Error(fmt.Sprintf("Error advancing reminder %s after firing", evt.ReminderID), err)
	}
}

func (s *dispatcherService) cancelIDs(ctx context.Context, ids []int64) {
	s.mu.Lock()
	for _, id := range ids {
		delete(s.registered, id)
	}
	s.mu.Unlock()

	if err := s.backend.Cancel(ctx, ids); err != nil {
		s.log.Error("Failed to cancel backend registrations", err)
	}
	if s.fallback != s.backend {
		if err := s.fallback.Cancel(ctx, ids); err != nil {
			s.log.Error("Failed to cancel fallback timers", err)
		}
	}
}

// fallbackFireTime recomputes a fire time for the timer path. Same-day
// occurrences keep their exact time; later occurrences re-arm one flat
// retry interval after today's slot time, which approximates months as
// 30 days and years as 365 (the native path uses calendar arithmetic).
func fallbackFireTime(rem *entity.Reminder, slot string, fireAt, now time.Time) time.Time {
	ny, nm, nd := now.Date()
	fy, fm, fd := fireAt.Date()
	if ny == fy && nm == fm && nd == fd {
		return fireAt
	}
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, now.Location())
	return schedule.SlotTime(today, slot).Add(schedule.FallbackRetryInterval(rem))
}
