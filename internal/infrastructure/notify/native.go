package notify

import (
	"context"
	"fmt"
	"sync"

	"medremind/internal/infrastructure/line"
	"medremind/internal/infrastructure/scheduler"
	appErrors "medremind/internal/pkg/errors"
	"medremind/internal/pkg/logger"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/robfig/cron/v3"
)

type nativeBackend struct {
	cronScheduler *scheduler.Scheduler
	lineClient    *line.Client
	fireHandler   FireHandler
	log           logger.Logger
	// map[notification ID]cron.EntryID
	jobStore map[int64]cron.EntryID
	mu       sync.Mutex // Protect jobStore access
}

// NewNativeBackend creates the scheduler-backed notification backend.
// Registrations live in the cron scheduler and keep firing even after
// the reminder page deactivates.
func NewNativeBackend(cronScheduler *scheduler.Scheduler, lineClient *line.Client, log logger.Logger) Backend {
	return &nativeBackend{
		cronScheduler: cronScheduler,
		lineClient:    lineClient,
		log:           log,
		jobStore:      make(map[int64]cron.EntryID),
	}
}

func (b *nativeBackend) SetFireHandler(fn FireHandler) {
	b.fireHandler = fn
}

// RequestPermission reports whether the delivery channel is usable.
func (b *nativeBackend) RequestPermission(ctx context.Context) error {
	if b.lineClient == nil {
		return appErrors.ErrPermissionDenied
	}
	return nil
}

// Schedule registers a one-off job firing at req.FireAt. An existing
// registration under the same ID is replaced, never duplicated.
func (b *nativeBackend) Schedule(ctx context.Context, req Request) error {
	if b.fireHandler == nil {
		b.log.Error("Fire handler is not set on the native backend", nil)
		return fmt.Errorf("%w: fire handler not set", appErrors.ErrInternal)
	}

	b.removeJob(req.ID)

	evt := Event{ID: req.ID, ReminderID: req.ReminderID, Slot: req.Slot, FireAt: req.FireAt}
	jobFunc := func() {
		b.log.Info(fmt.Sprintf("Notification %d fired for reminder %s slot %s", evt.ID, evt.ReminderID, evt.Slot))
		// One-off job: drop the registration before handling.
		b.removeJob(evt.ID)
		b.fireHandler(evt)
	}

	entryID, err := b.cronScheduler.AddJob(scheduler.FormatSpec(req.FireAt), jobFunc)
	if err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrScheduling, err)
	}

	b.mu.Lock()
	b.jobStore[req.ID] = entryID
	b.mu.Unlock()
	b.log.Info(fmt.Sprintf("Scheduled notification %d at %v (Job ID: %d)", req.ID, req.FireAt, entryID))
	return nil
}

// Cancel removes the jobs registered under the given IDs.
func (b *nativeBackend) Cancel(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if b.removeJob(id) {
			b.log.Info(fmt.Sprintf("Cancelled notification registration %d", id))
		} else {
			b.log.Debug(fmt.Sprintf("No active registration found for notification %d to cancel.", id))
		}
	}
	return nil
}

// Publish pushes the notification over LINE with a tap action carrying
// the registration payload back through the webhook.
func (b *nativeBackend) Publish(ctx context.Context, req Request) error {
	if b.lineClient == nil {
		return appErrors.ErrPermissionDenied
	}

	data := fmt.Sprintf("ack:%s:%s:%d", req.ReminderID, req.Slot, req.FireAt.Unix())
	taken := linebot.NewQuickReplyButton("", linebot.NewPostbackAction("Taken", data, "", "Taken", "", ""))
	message := linebot.NewTextMessage(req.Title + "\n" + req.Body).
		WithQuickReplies(linebot.NewQuickReplyItems(taken))

	if err := b.lineClient.PushMessages(message); err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrScheduling, err)
	}
	return nil
}

// SetActive is a no-op: native registrations fire regardless of page state.
func (b *nativeBackend) SetActive(active bool) {}

// Deactivate is a no-op: native registrations must survive page teardown.
func (b *nativeBackend) Deactivate() {}

func (b *nativeBackend) removeJob(id int64) bool {
	b.mu.Lock()
	entryID, ok := b.jobStore[id]
	if ok {
		delete(b.jobStore, id)
	}
	b.mu.Unlock()
	if ok {
		b.cronScheduler.RemoveJob(entryID)
	}
	return ok
}
