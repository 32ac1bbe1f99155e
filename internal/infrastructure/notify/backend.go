// Package notify abstracts the notification delivery mechanism behind a
// single Backend interface with two implementations: a native one that
// registers jobs with the external scheduler and pushes over LINE, and
// an in-process timer fallback used when the native path is
// unavailable. The dispatcher selects one at startup and stays
// backend-agnostic afterwards.
package notify

import (
	"context"
	"time"
)

// Request describes one pending notification registration.
type Request struct {
	// ID is the stable numeric ID derived from (reminder, slot); the
	// same ID always addresses the same registration.
	ID     int64
	Title  string
	Body   string
	FireAt time.Time
	// ReminderID and Slot are echoed back on delivery and tap events.
	ReminderID string
	Slot       string
}

// Event is a delivery or user-tap callback from a backend, carrying the
// payload the registration was created with.
type Event struct {
	ID         int64
	ReminderID string
	Slot       string
	FireAt     time.Time
}

// FireHandler receives backend fire events.
type FireHandler func(evt Event)

// Backend is the notification delivery mechanism.
type Backend interface {
	// RequestPermission verifies the backend may deliver notifications.
	RequestPermission(ctx context.Context) error
	// Schedule registers a future notification under req.ID, replacing
	// any existing registration with the same ID.
	Schedule(ctx context.Context, req Request) error
	// Cancel removes the registrations with the given IDs. Unknown IDs
	// are ignored.
	Cancel(ctx context.Context, ids []int64) error
	// Publish delivers a user-visible notification immediately.
	Publish(ctx context.Context, req Request) error
	// SetFireHandler installs the callback invoked when a registration
	// fires. Must be called before Schedule.
	SetFireHandler(fn FireHandler)
	// SetActive tells the backend whether the reminder page is in the
	// foreground. Only the timer backend acts on it.
	SetActive(active bool)
	// Deactivate tears down in-process timers on page deactivation.
	// Native registrations survive; firing while the app is gone is
	// their entire purpose.
	Deactivate()
}
