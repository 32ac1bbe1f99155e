package schedule

import (
	"testing"
	"time"

	"medremind/internal/domain/constant"
	"medremind/internal/domain/entity"
)

func testReminder(interval constant.RepeatInterval, times ...string) *entity.Reminder {
	return &entity.Reminder{
		ID:             "rem-1",
		Name:           "阿莫西林",
		StartDate:      "2026-03-10",
		EndDate:        "2026-03-13",
		DailyCount:     len(times),
		DailyTimes:     times,
		RepeatInterval: interval,
	}
}

func at(day string, hour, min int) time.Time {
	d, err := time.ParseInLocation(entity.DayLayout, day, time.UTC)
	if err != nil {
		panic(err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, time.UTC)
}

func TestNextTimeToday_PicksEarliestRemainingSlot(t *testing.T) {
	rem := testReminder(constant.RepeatDaily, "20:00", "09:00")

	got, slot, ok := NextTimeToday(rem, at("2026-03-10", 8, 0))
	if !ok {
		t.Fatal("NextTimeToday() ok = false, want true")
	}
	if slot != "09:00" {
		t.Errorf("NextTimeToday() slot = %s, want 09:00", slot)
	}
	if want := at("2026-03-10", 9, 0); !got.Equal(want) {
		t.Errorf("NextTimeToday() = %v, want %v", got, want)
	}
}

func TestNextTimeToday_SameMinuteIsNotStrictlyLater(t *testing.T) {
	rem := testReminder(constant.RepeatDaily, "09:00", "20:00")

	// 09:00:30 is still within the 09:00 minute, so that slot has passed.
	ref := at("2026-03-10", 9, 0).Add(30 * time.Second)
	_, slot, ok := NextTimeToday(rem, ref)
	if !ok || slot != "20:00" {
		t.Errorf("NextTimeToday() slot = %s, ok = %t, want 20:00, true", slot, ok)
	}
}

func TestNextTimeToday_ExhaustedDay(t *testing.T) {
	rem := testReminder(constant.RepeatDaily, "09:00", "20:00")

	if _, _, ok := NextTimeToday(rem, at("2026-03-10", 21, 0)); ok {
		t.Error("NextTimeToday() ok = true, want false after the last slot")
	}
}

func TestNextTimeToday_SkipsDisabledSlot(t *testing.T) {
	rem := testReminder(constant.RepeatDaily, "08:00", "20:00")
	rem.DailyTimeEnabled = map[string]bool{"08:00": false}

	_, slot, ok := NextTimeToday(rem, at("2026-03-10", 7, 0))
	if !ok || slot != "20:00" {
		t.Errorf("NextTimeToday() slot = %s, ok = %t, want 20:00, true", slot, ok)
	}

	// The other slot's schedule is unaffected.
	got, ok := NextSlotOccurrence(rem, "20:00", at("2026-03-10", 7, 0))
	if !ok || !got.Equal(at("2026-03-10", 20, 0)) {
		t.Errorf("NextSlotOccurrence(20:00) = %v, ok = %t, want today 20:00", got, ok)
	}
	if _, ok := NextSlotOccurrence(rem, "08:00", at("2026-03-10", 7, 0)); ok {
		t.Error("NextSlotOccurrence(08:00) ok = true, want false for disabled slot")
	}
}

func TestNextOccurrence_RollsToNextDay(t *testing.T) {
	rem := testReminder(constant.RepeatDaily, "09:00")

	got, ok := NextOccurrence(rem, at("2026-03-10", 21, 0))
	if !ok {
		t.Fatal("NextOccurrence() ok = false, want true")
	}
	if want := at("2026-03-11", 9, 0); !got.Equal(want) {
		t.Errorf("NextOccurrence() = %v, want %v", got, want)
	}
}

func TestNextOccurrence_PastEndDate(t *testing.T) {
	rem := testReminder(constant.RepeatDaily, "09:00")
	rem.EndDate = "2026-03-10"

	if _, ok := NextOccurrence(rem, at("2026-03-10", 21, 0)); ok {
		t.Error("NextOccurrence() ok = true, want false past the end date")
	}
}

func TestNextOccurrence_Monotonic(t *testing.T) {
	refs := []time.Time{
		at("2026-03-10", 0, 0),
		at("2026-03-10", 8, 59),
		at("2026-03-10", 9, 0),
		at("2026-03-10", 23, 59),
		at("2026-03-12", 12, 0),
	}
	intervals := []constant.RepeatInterval{
		constant.RepeatNone,
		constant.RepeatDaily,
		constant.RepeatWeekly,
		constant.RepeatMonthly,
		constant.RepeatYearly,
	}
	for _, interval := range intervals {
		rem := testReminder(interval, "09:00", "20:00")
		rem.EndDate = "2027-03-10"
		for _, ref := range refs {
			got, ok := NextOccurrence(rem, ref)
			if ok && !got.After(ref) {
				t.Errorf("NextOccurrence(%s, %v) = %v, not strictly after the reference", interval, ref, got)
			}
		}
	}
}

func TestNextOccurrence_IntervalAdvancement(t *testing.T) {
	tests := []struct {
		name     string
		interval constant.RepeatInterval
		step     int
		want     time.Time
	}{
		{"daily", constant.RepeatDaily, 1, at("2026-03-11", 9, 0)},
		{"every 2 days", constant.RepeatDaily, 2, at("2026-03-12", 9, 0)},
		{"weekly", constant.RepeatWeekly, 1, at("2026-03-17", 9, 0)},
		{"every 2 weeks", constant.RepeatWeekly, 2, at("2026-03-24", 9, 0)},
		{"monthly", constant.RepeatMonthly, 1, at("2026-04-10", 9, 0)},
		{"yearly", constant.RepeatYearly, 1, at("2027-03-10", 9, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rem := testReminder(tt.interval, "09:00")
			rem.EndDate = "2028-01-01"
			rem.RepeatCustomValue = tt.step

			got, ok := NextOccurrence(rem, at("2026-03-10", 10, 0))
			if !ok {
				t.Fatal("NextOccurrence() ok = false, want true")
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextSlotOccurrence_TodayThenRollover(t *testing.T) {
	rem := testReminder(constant.RepeatNone, "09:00")
	rem.EndDate = "2026-03-11"

	got, ok := NextSlotOccurrence(rem, "09:00", at("2026-03-10", 8, 0))
	if !ok || !got.Equal(at("2026-03-10", 9, 0)) {
		t.Errorf("NextSlotOccurrence() = %v, ok = %t, want today 09:00", got, ok)
	}

	// A one-shot whose slot already passed rolls exactly one day.
	got, ok = NextSlotOccurrence(rem, "09:00", at("2026-03-10", 10, 0))
	if !ok || !got.Equal(at("2026-03-11", 9, 0)) {
		t.Errorf("NextSlotOccurrence() = %v, ok = %t, want tomorrow 09:00", got, ok)
	}
}

func TestNextSlotOccurrence_BeyondEndDate(t *testing.T) {
	rem := testReminder(constant.RepeatDaily, "09:00")
	rem.EndDate = "2026-03-10"

	if _, ok := NextSlotOccurrence(rem, "09:00", at("2026-03-10", 10, 0)); ok {
		t.Error("NextSlotOccurrence() ok = true, want false past the end date")
	}
}

func TestIsExpired(t *testing.T) {
	rem := testReminder(constant.RepeatDaily, "09:00")
	rem.EndDate = "2026-03-13"

	if IsExpired(rem, at("2026-03-13", 23, 59)) {
		t.Error("IsExpired() = true on the end date itself, want false")
	}
	if !IsExpired(rem, at("2026-03-14", 0, 0)) {
		t.Error("IsExpired() = false after the end date, want true")
	}
}

func TestFallbackRetryInterval_Approximations(t *testing.T) {
	const day = 24 * time.Hour
	tests := []struct {
		interval constant.RepeatInterval
		step     int
		want     time.Duration
	}{
		{constant.RepeatNone, 1, day},
		{constant.RepeatDaily, 1, day},
		{constant.RepeatWeekly, 2, 14 * day},
		{constant.RepeatMonthly, 1, 30 * day},
		{constant.RepeatYearly, 1, 365 * day},
	}
	for _, tt := range tests {
		rem := testReminder(tt.interval, "09:00")
		rem.RepeatCustomValue = tt.step
		if got := FallbackRetryInterval(rem); got != tt.want {
			t.Errorf("FallbackRetryInterval(%s, step %d) = %v, want %v", tt.interval, tt.step, got, tt.want)
		}
	}
}
