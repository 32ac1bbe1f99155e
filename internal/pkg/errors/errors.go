package errors

import "errors"

// Validation errors, reported synchronously to the caller on save.
var (
	ErrNameRequired      = errors.New("medication name is required")
	ErrDateRequired      = errors.New("start and end dates are required")
	ErrInvalidDate       = errors.New("invalid date format")
	ErrPastDate          = errors.New("dates must be today or later")
	ErrDateOrder         = errors.New("end date must not be before start date")
	ErrInvalidDailyCount = errors.New("daily count must be between 1 and 20")
	ErrTimeCountMismatch = errors.New("number of daily times must match daily count")
	ErrInvalidTime       = errors.New("daily times must be zero-padded HH:MM values")
	ErrDuplicateTime     = errors.New("daily times must not repeat")
	ErrInvalidRepeat     = errors.New("unknown repeat interval")
	ErrSlotNotFound      = errors.New("time slot does not belong to the reminder")
)

// Operational errors.
var (
	ErrReminderNotFound = errors.New("reminder not found")
	ErrStorage          = errors.New("reminder storage operation failed")
	ErrScheduling       = errors.New("notification scheduling failed")
	ErrPermissionDenied = errors.New("notification permission denied")
	ErrInternal         = errors.New("internal error")
)
