package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medremind/internal/pkg/logger"
)

const (
	// earlySlack tolerates minor clock skew between arming and firing.
	earlySlack = time.Minute
	// lateWindow bounds how stale a timer fire may be and still count
	// as a delivery. Timers left over from a previous page instance
	// land outside it and are dropped.
	lateWindow = 5 * time.Minute
)

type timerBackend struct {
	fireHandler FireHandler
	log         logger.Logger
	now         func() time.Time

	mu     sync.Mutex
	active bool
	// map[notification ID]fire timer
	timers map[int64]*time.Timer
	// map[notification ID]allowed fire time
	windows map[int64]time.Time
	events  map[int64]Event
}

// NewTimerBackend creates the in-process fallback backend. It is only
// reliable while the page stays in the foreground: timers neither
// survive process restarts nor fire for a backgrounded page.
func NewTimerBackend(log logger.Logger) Backend {
	return &timerBackend{
		log:     log,
		now:     time.Now,
		timers:  make(map[int64]*time.Timer),
		windows: make(map[int64]time.Time),
		events:  make(map[int64]Event),
	}
}

func (b *timerBackend) SetFireHandler(fn FireHandler) {
	b.fireHandler = fn
}

// RequestPermission always grants; the fallback needs no platform grant.
func (b *timerBackend) RequestPermission(ctx context.Context) error {
	return nil
}

// Schedule arms a timer for the delay until req.FireAt, replacing any
// timer already armed under the same ID.
func (b *timerBackend) Schedule(ctx context.Context, req Request) error {
	delay := req.FireAt.Sub(b.now())
	if delay < 0 {
		b.log.Warn(fmt.Sprintf("Refusing to arm timer %d for past time %v", req.ID, req.FireAt))
		return nil
	}

	b.mu.Lock()
	if old, ok := b.timers[req.ID]; ok {
		old.Stop()
	}
	id := req.ID
	b.windows[id] = req.FireAt
	b.events[id] = Event{ID: id, ReminderID: req.ReminderID, Slot: req.Slot, FireAt: req.FireAt}
	b.timers[id] = time.AfterFunc(delay, func() { b.fire(id) })
	b.mu.Unlock()

	b.log.Info(fmt.Sprintf("Armed fallback timer %d firing at %v", req.ID, req.FireAt))
	return nil
}

// Cancel stops the timers armed under the given IDs.
func (b *timerBackend) Cancel(ctx context.Context, ids []int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		if t, ok := b.timers[id]; ok {
			t.Stop()
			delete(b.timers, id)
			delete(b.windows, id)
			delete(b.events, id)
			b.log.Debug(fmt.Sprintf("Stopped fallback timer %d", id))
		}
	}
	return nil
}

// Publish logs the notification; the fallback has no richer channel.
func (b *timerBackend) Publish(ctx context.Context, req Request) error {
	b.log.Info(fmt.Sprintf("NOTIFY: %s - %s", req.Title, req.Body))
	return nil
}

// SetActive records whether the reminder page is in the foreground.
// Timers firing while inactive are dropped rather than delivered.
func (b *timerBackend) SetActive(active bool) {
	b.mu.Lock()
	b.active = active
	b.mu.Unlock()
}

// Deactivate stops every armed timer and clears the allowed-fire-time
// windows.
func (b *timerBackend) Deactivate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, t := range b.timers {
		t.Stop()
		delete(b.timers, id)
	}
	b.windows = make(map[int64]time.Time)
	b.events = make(map[int64]Event)
	b.active = false
	b.log.Info("Fallback timers cleared.")
}

func (b *timerBackend) fire(id int64) {
	b.mu.Lock()
	fireAt, windowOK := b.windows[id]
	evt, eventOK := b.events[id]
	active := b.active
	delete(b.timers, id)
	delete(b.windows, id)
	delete(b.events, id)
	b.mu.Unlock()

	if !windowOK || !eventOK {
		// Cancelled or cleared between firing and locking.
		return
	}
	if !active {
		b.log.Warn(fmt.Sprintf("Dropping fallback timer %d: reminder page not active", id))
		return
	}
	if !withinFireWindow(fireAt, b.now()) {
		b.log.Warn(fmt.Sprintf("Dropping fallback timer %d: fired outside the allowed window of %v", id, fireAt))
		return
	}
	if b.fireHandler == nil {
		b.log.Error("Fire handler is not set on the timer backend", nil)
		return
	}
	b.fireHandler(evt)
}

// withinFireWindow reports whether now is close enough to the computed
// fire time: not meaningfully early and at most lateWindow late.
func withinFireWindow(fireAt, now time.Time) bool {
	if now.Before(fireAt.Add(-earlySlack)) {
		return false
	}
	return !now.After(fireAt.Add(lateWindow))
}
