package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"medremind/internal/domain/constant"
	"medremind/internal/infrastructure/backend"
	"medremind/internal/infrastructure/notify"
	"medremind/internal/pkg/hash"
	"medremind/internal/pkg/logger"
)

// mockBackend is a simple mock implementation of notify.Backend for testing.
type mockBackend struct {
	mu            sync.Mutex
	ops           map[int64][]string
	registered    map[int64]notify.Request
	published     []notify.Request
	fire          notify.FireHandler
	permissionErr error
	scheduleErr   error
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		ops:        make(map[int64][]string),
		registered: make(map[int64]notify.Request),
	}
}

func (m *mockBackend) RequestPermission(ctx context.Context) error {
	return m.permissionErr
}

func (m *mockBackend) Schedule(ctx context.Context, req notify.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[req.ID] = append(m.ops[req.ID], "schedule")
	if m.scheduleErr != nil {
		return m.scheduleErr
	}
	m.registered[req.ID] = req
	return nil
}

func (m *mockBackend) Cancel(ctx context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.ops[id] = append(m.ops[id], "cancel")
		delete(m.registered, id)
	}
	return nil
}

func (m *mockBackend) Publish(ctx context.Context, req notify.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, req)
	return nil
}

func (m *mockBackend) SetFireHandler(fn notify.FireHandler) { m.fire = fn }
func (m *mockBackend) SetActive(active bool)                {}
func (m *mockBackend) Deactivate()                          {}

func (m *mockBackend) opsFor(id int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops[id]...)
}

func (m *mockBackend) registeredCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.registered)
}

func (m *mockBackend) publishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

// firedRecorder counts advance callbacks per reminder.
type firedRecorder struct {
	mu    sync.Mutex
	count map[string]int
}

func newFiredRecorder() *firedRecorder {
	return &firedRecorder{count: make(map[string]int)}
}

func (f *firedRecorder) handle(ctx context.Context, reminderID, slot string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count[reminderID+":"+slot]++
	return nil
}

func (f *firedRecorder) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.count {
		n += c
	}
	return n
}

func newTestDispatcher(t *testing.T, primary, fallback notify.Backend, now time.Time) (*dispatcherService, *firedRecorder) {
	t.Helper()
	log := logger.New()
	content := NewContentBuilder(backend.NewClient(log), log)
	d := NewDispatcherService(primary, fallback, content, log).(*dispatcherService)
	d.now = func() time.Time { return now }
	rec := newFiredRecorder()
	d.SetFiredHandler(rec.handle)
	return d, rec
}

func TestScheduleReminder_CancelsBeforeScheduling(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	primary := newMockBackend()
	d, _ := newTestDispatcher(t, primary, newMockBackend(), now)

	rem := svcTestReminder(constant.RepeatDaily, "09:00", "20:00")
	if err := d.ScheduleReminder(context.Background(), rem); err != nil {
		t.Fatalf("ScheduleReminder() error = %v", err)
	}
	if err := d.ScheduleReminder(context.Background(), rem); err != nil {
		t.Fatalf("ScheduleReminder() second call error = %v", err)
	}

	// One live registration per enabled slot, never two.
	if got := primary.registeredCount(); got != 2 {
		t.Errorf("live registrations = %d, want 2", got)
	}
	for _, slot := range rem.DailyTimes {
		id := hash.NotificationID(rem.ID, slot)
		want := []string{"cancel", "schedule", "cancel", "schedule"}
		got := primary.opsFor(id)
		if len(got) != len(want) {
			t.Fatalf("ops for slot %s = %v, want %v", slot, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("ops[%d] for slot %s = %s, want %s", i, slot, got[i], want[i])
			}
		}
	}
}

func TestBackendFireReachesDispatcher(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	primary := newMockBackend()
	fallback := newMockBackend()
	d, rec := newTestDispatcher(t, primary, fallback, now)

	if primary.fire == nil || fallback.fire == nil {
		t.Fatal("dispatcher did not install a fire handler on both backends")
	}

	rem := svcTestReminder(constant.RepeatDaily, "09:00")
	if err := d.ScheduleReminder(context.Background(), rem); err != nil {
		t.Fatalf("ScheduleReminder() error = %v", err)
	}

	// The backend fires on its own; the event must travel through the
	// handler into the delivery flow, once per instance.
	evt := notify.Event{
		ID:         hash.NotificationID(rem.ID, "09:00"),
		ReminderID: rem.ID,
		Slot:       "09:00",
		FireAt:     time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	primary.fire(evt)
	primary.fire(evt)

	if got := rec.total(); got != 1 {
		t.Errorf("advance count = %d, want 1", got)
	}
	if got := primary.publishedCount(); got != 1 {
		t.Errorf("published count = %d, want 1", got)
	}
}

func TestOnDelivered_DuplicateInstanceAdvancesOnce(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	primary := newMockBackend()
	d, rec := newTestDispatcher(t, primary, newMockBackend(), now)

	rem := svcTestReminder(constant.RepeatDaily, "09:00")
	if err := d.ScheduleReminder(context.Background(), rem); err != nil {
		t.Fatalf("ScheduleReminder() error = %v", err)
	}

	evt := notify.Event{
		ID:         hash.NotificationID(rem.ID, "09:00"),
		ReminderID: rem.ID,
		Slot:       "09:00",
		FireAt:     time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	d.OnDelivered(context.Background(), evt)
	d.OnDelivered(context.Background(), evt)

	if got := rec.total(); got != 1 {
		t.Errorf("advance count = %d, want 1", got)
	}
	if got := primary.publishedCount(); got != 1 {
		t.Errorf("published count = %d, want 1", got)
	}
}

func TestOnUserActivated_SharesDedupWithDelivery(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	d, rec := newTestDispatcher(t, newMockBackend(), newMockBackend(), now)

	evt := notify.Event{
		ID:         hash.NotificationID("rem-1", "09:00"),
		ReminderID: "rem-1",
		Slot:       "09:00",
		FireAt:     time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	d.OnDelivered(context.Background(), evt)
	d.OnUserActivated(context.Background(), evt)

	if got := rec.total(); got != 1 {
		t.Errorf("advance count = %d, want 1", got)
	}
}

func TestOnDelivered_CoolDownSuppressesSecondSend(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	primary := newMockBackend()
	d, rec := newTestDispatcher(t, primary, newMockBackend(), now)

	rem := svcTestReminder(constant.RepeatDaily, "08:01", "08:02")
	if err := d.ScheduleReminder(context.Background(), rem); err != nil {
		t.Fatalf("ScheduleReminder() error = %v", err)
	}

	for _, slot := range rem.DailyTimes {
		d.OnDelivered(context.Background(), notify.Event{
			ID:         hash.NotificationID(rem.ID, slot),
			ReminderID: rem.ID,
			Slot:       slot,
			FireAt:     time.Date(2026, 3, 10, 8, 1, 0, 0, time.UTC),
		})
	}

	// Two distinct instances within the cool-down: one visible send,
	// both advances.
	if got := primary.publishedCount(); got != 1 {
		t.Errorf("published count = %d, want 1", got)
	}
	if got := rec.total(); got != 2 {
		t.Errorf("advance count = %d, want 2", got)
	}
}

func TestCancelReminder_NoActiveRegistrationsIsNoOp(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	primary := newMockBackend()
	d, _ := newTestDispatcher(t, primary, newMockBackend(), now)

	if err := d.CancelReminder(context.Background(), "unknown"); err != nil {
		t.Errorf("CancelReminder() error = %v, want nil", err)
	}
	if got := len(primary.ops); got != 0 {
		t.Errorf("backend ops = %d, want 0", got)
	}
}

func TestScheduleSlot_FallsBackWhenNativeFails(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	primary := newMockBackend()
	primary.scheduleErr = errors.New("scheduler unreachable")
	fallback := newMockBackend()
	d, _ := newTestDispatcher(t, primary, fallback, now)

	// Monthly reminder whose slot already passed today: the native path
	// would aim at April 10th, the timer path at 30 days after today's
	// slot time.
	rem := svcTestReminder(constant.RepeatMonthly, "09:00")
	rem.EndDate = "2026-12-31"
	if err := d.ScheduleReminder(context.Background(), rem); err != nil {
		t.Fatalf("ScheduleReminder() error = %v", err)
	}

	id := hash.NotificationID(rem.ID, "09:00")
	fallback.mu.Lock()
	req, ok := fallback.registered[id]
	fallback.mu.Unlock()
	if !ok {
		t.Fatal("fallback backend has no registration after native failure")
	}
	want := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC).Add(30 * 24 * time.Hour)
	if !req.FireAt.Equal(want) {
		t.Errorf("fallback FireAt = %v, want %v (30-day approximation)", req.FireAt, want)
	}
}

func TestRequestPermission_DemotesToFallback(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	primary := newMockBackend()
	primary.permissionErr = errors.New("permission denied")
	fallback := newMockBackend()
	d, _ := newTestDispatcher(t, primary, fallback, now)

	if err := d.RequestPermission(context.Background()); err != nil {
		t.Fatalf("RequestPermission() error = %v, want nil after demotion", err)
	}

	rem := svcTestReminder(constant.RepeatDaily, "09:00")
	if err := d.ScheduleReminder(context.Background(), rem); err != nil {
		t.Fatalf("ScheduleReminder() error = %v", err)
	}
	if got := fallback.registeredCount(); got != 1 {
		t.Errorf("fallback registrations = %d, want 1", got)
	}
	if got := primary.registeredCount(); got != 0 {
		t.Errorf("primary registrations = %d, want 0", got)
	}
}
