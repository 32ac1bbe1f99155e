package entity

import (
	"sort"
	"time"

	"medremind/internal/domain/constant"
)

// DayLayout is the calendar-date format used by StartDate and EndDate.
const DayLayout = "2006-01-02"

// SlotLayout is the zero-padded 24-hour time-of-day format used by
// DailyTimes entries. Slots compare correctly as plain strings.
const SlotLayout = "15:04"

// Reminder represents one medication schedule: a display name, an
// inclusive active date range, a set of daily time slots and a repeat
// cadence. The whole reminder list is persisted as a single JSON array.
type Reminder struct {
	ID                string                  `json:"id"`
	Name              string                  `json:"name"`
	StartDate         string                  `json:"startDate"`
	EndDate           string                  `json:"endDate"`
	Dosage            string                  `json:"dosage,omitempty"`
	Notes             string                  `json:"notes,omitempty"`
	DailyCount        int                     `json:"dailyCount"`
	DailyTimes        []string                `json:"dailyTimes"`
	DailyTimeEnabled  map[string]bool         `json:"dailyTimeEnabled,omitempty"`
	RepeatInterval    constant.RepeatInterval `json:"repeatInterval"`
	RepeatCustomValue int                     `json:"repeatCustomValue,omitempty"`
	LastFiredAt       *time.Time              `json:"lastFiredAt,omitempty"`
	CreatedAt         time.Time               `json:"createdAt"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

// SlotEnabled reports whether a time slot is currently active.
// Slots without an entry in DailyTimeEnabled default to enabled, which
// keeps records written before per-slot toggles existed working.
func (r *Reminder) SlotEnabled(slot string) bool {
	if r.DailyTimeEnabled == nil {
		return true
	}
	enabled, ok := r.DailyTimeEnabled[slot]
	if !ok {
		return true
	}
	return enabled
}

// EnabledTimes returns the enabled slots in ascending order.
func (r *Reminder) EnabledTimes() []string {
	times := make([]string, 0, len(r.DailyTimes))
	for _, slot := range r.DailyTimes {
		if r.SlotEnabled(slot) {
			times = append(times, slot)
		}
	}
	sort.Strings(times)
	return times
}

// RepeatStep returns the interval multiplier, defaulting to 1 when the
// stored value is absent or non-positive.
func (r *Reminder) RepeatStep() int {
	if r.RepeatCustomValue < 1 {
		return 1
	}
	return r.RepeatCustomValue
}

// StartDay parses StartDate at midnight in the given location.
func (r *Reminder) StartDay(loc *time.Location) (time.Time, error) {
	return ParseDay(r.StartDate, loc)
}

// EndDay parses EndDate at midnight in the given location.
func (r *Reminder) EndDay(loc *time.Location) (time.Time, error) {
	return ParseDay(r.EndDate, loc)
}

// ParseDay parses a YYYY-MM-DD calendar date in the given location.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DayLayout, s, loc)
}

// ValidSlot reports whether s is a zero-padded HH:MM time-of-day.
func ValidSlot(s string) bool {
	if len(s) != len(SlotLayout) {
		return false
	}
	_, err := time.Parse(SlotLayout, s)
	return err == nil
}
