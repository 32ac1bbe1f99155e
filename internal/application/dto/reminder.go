package dto

import (
	"time"

	"medremind/internal/application/schedule"
	"medremind/internal/domain/entity"
)

// ReminderResponse is the DTO for sending reminder information to the client.
type ReminderResponse struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	StartDate         string          `json:"startDate"`
	EndDate           string          `json:"endDate"`
	Dosage            string          `json:"dosage,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	DailyCount        int             `json:"dailyCount"`
	DailyTimes        []string        `json:"dailyTimes"`
	DailyTimeEnabled  map[string]bool `json:"dailyTimeEnabled,omitempty"`
	RepeatInterval    string          `json:"repeatInterval"`
	RepeatCustomValue int             `json:"repeatCustomValue"`
	NextFireAt        *time.Time      `json:"nextFireAt,omitempty"`
	LastFiredAt       *time.Time      `json:"lastFiredAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// ToReminderResponse converts an entity.Reminder to a ReminderResponse DTO,
// annotated with the next computed fire time relative to now.
func ToReminderResponse(r *entity.Reminder, now time.Time) ReminderResponse {
	resp := ReminderResponse{
		ID:                r.ID,
		Name:              r.Name,
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
		Dosage:            r.Dosage,
		Notes:             r.Notes,
		DailyCount:        r.DailyCount,
		DailyTimes:        r.DailyTimes,
		DailyTimeEnabled:  r.DailyTimeEnabled,
		RepeatInterval:    r.RepeatInterval.String(),
		RepeatCustomValue: r.RepeatStep(),
		LastFiredAt:       r.LastFiredAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if next, ok := schedule.NextOccurrence(r, now); ok {
		resp.NextFireAt = &next
	}
	return resp
}

// ToReminderResponseList converts a slice of entity.Reminder to ReminderResponse DTOs.
func ToReminderResponseList(reminders []*entity.Reminder, now time.Time) []ReminderResponse {
	list := make([]ReminderResponse, len(reminders))
	for i, r := range reminders {
		list[i] = ToReminderResponse(r, now)
	}
	return list
}

// SaveReminderRequest is the DTO for creating or editing a reminder.
// An empty ID creates; a present ID edits.
type SaveReminderRequest struct {
	ID                string          `json:"id,omitempty"`
	Name              string          `json:"name"`
	StartDate         string          `json:"startDate"`
	EndDate           string          `json:"endDate"`
	Dosage            string          `json:"dosage,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	DailyCount        int             `json:"dailyCount"`
	DailyTimes        []string        `json:"dailyTimes"`
	DailyTimeEnabled  map[string]bool `json:"dailyTimeEnabled,omitempty"`
	RepeatInterval    string          `json:"repeatInterval"`
	RepeatCustomValue int             `json:"repeatCustomValue,omitempty"`
}

// ToggleSlotRequest is the DTO for enabling or disabling one time slot.
type ToggleSlotRequest struct {
	Slot    string `json:"slot"`
	Enabled bool   `json:"enabled"`
}
