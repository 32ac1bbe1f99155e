// Package schedule computes reminder fire times. All functions are pure
// and take an explicit reference time.
package schedule

import (
	"time"

	"medremind/internal/domain/constant"
	"medremind/internal/domain/entity"
)

// NextTimeToday returns the earliest enabled slot strictly after the
// reference time's minute on the reference date, together with the slot
// it belongs to. ok is false when no enabled slot remains today.
//
// Slots are zero-padded HH:MM strings, so plain string comparison
// orders them correctly.
func NextTimeToday(rem *entity.Reminder, ref time.Time) (fireAt time.Time, slot string, ok bool) {
	refSlot := ref.Format(entity.SlotLayout)
	for _, s := range rem.EnabledTimes() {
		if s > refSlot {
			return SlotTime(dayOf(ref), s), s, true
		}
	}
	return time.Time{}, "", false
}

// NextSlotOccurrence returns the next fire time of one specific slot:
// today at the slot's time when that is still ahead of ref, otherwise
// one repeat step later (one day for one-shot reminders, which only use
// the rollover on their first scheduling pass). ok is false for a
// disabled slot or when the occurrence would land past the end date.
func NextSlotOccurrence(rem *entity.Reminder, slot string, ref time.Time) (time.Time, bool) {
	if !rem.SlotEnabled(slot) {
		return time.Time{}, false
	}
	candidate := SlotTime(dayOf(ref), slot)
	if !candidate.After(ref) {
		candidate = SlotTime(NextDay(rem, dayOf(ref)), slot)
	}
	if end, bounded := endOfDay(rem, ref.Location()); bounded && candidate.After(end) {
		return time.Time{}, false
	}
	return candidate, true
}

// NextOccurrence returns the reminder's next fire time across all
// enabled slots: the next slot remaining today, or the earliest enabled
// slot on the next applicable day per the repeat cadence. ok is false
// when the computed occurrence would land past the end date or no slot
// is enabled.
//
// The occurrence is anchored to ref, not StartDate, so a one-shot with
// a future start date still arms against today.
func NextOccurrence(rem *entity.Reminder, ref time.Time) (time.Time, bool) {
	end, bounded := endOfDay(rem, ref.Location())
	if fireAt, _, ok := NextTimeToday(rem, ref); ok {
		if bounded && fireAt.After(end) {
			return time.Time{}, false
		}
		return fireAt, true
	}
	times := rem.EnabledTimes()
	if len(times) == 0 {
		return time.Time{}, false
	}
	fireAt := SlotTime(NextDay(rem, dayOf(ref)), times[0])
	if bounded && fireAt.After(end) {
		return time.Time{}, false
	}
	return fireAt, true
}

// IsExpired reports whether at is past the end date's 23:59:59.
func IsExpired(rem *entity.Reminder, at time.Time) bool {
	end, bounded := endOfDay(rem, at.Location())
	return bounded && at.After(end)
}

// NextDay advances a day by one repeat step using calendar arithmetic.
// One-shot reminders advance exactly one day.
func NextDay(rem *entity.Reminder, day time.Time) time.Time {
	step := rem.RepeatStep()
	switch rem.RepeatInterval {
	case constant.RepeatDaily:
		return day.AddDate(0, 0, step)
	case constant.RepeatWeekly:
		return day.AddDate(0, 0, 7*step)
	case constant.RepeatMonthly:
		return day.AddDate(0, step, 0)
	case constant.RepeatYearly:
		return day.AddDate(step, 0, 0)
	default:
		return day.AddDate(0, 0, 1)
	}
}

// FallbackRetryInterval returns the repeat step as a flat duration for
// the in-process timer path, which approximates months as 30 days and
// years as 365. The native path uses true calendar arithmetic instead;
// the two can disagree on monthly/yearly reminders after a backend
// switch, and that mismatch is preserved intentionally.
func FallbackRetryInterval(rem *entity.Reminder) time.Duration {
	const day = 24 * time.Hour
	step := time.Duration(rem.RepeatStep())
	switch rem.RepeatInterval {
	case constant.RepeatDaily:
		return step * day
	case constant.RepeatWeekly:
		return step * 7 * day
	case constant.RepeatMonthly:
		return step * 30 * day
	case constant.RepeatYearly:
		return step * 365 * day
	default:
		return day
	}
}

// SlotTime combines a calendar day with an HH:MM slot.
func SlotTime(day time.Time, slot string) time.Time {
	t, err := time.Parse(entity.SlotLayout, slot)
	if err != nil {
		return day
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(rem *entity.Reminder, loc *time.Location) (time.Time, bool) {
	if rem.EndDate == "" {
		return time.Time{}, false
	}
	end, err := rem.EndDay(loc)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, loc), true
}
