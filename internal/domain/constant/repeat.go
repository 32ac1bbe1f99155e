package constant

// RepeatInterval defines how a reminder recurs after exhausting the
// daily time slots of its current day.
type RepeatInterval string

const (
	// RepeatNone marks a one-shot reminder: once every enabled slot of
	// its first day has fired, the reminder is deleted.
	RepeatNone    RepeatInterval = "none"
	RepeatDaily   RepeatInterval = "daily"
	RepeatWeekly  RepeatInterval = "weekly"
	RepeatMonthly RepeatInterval = "monthly"
	RepeatYearly  RepeatInterval = "yearly"
)

// Valid reports whether the value is one of the known intervals.
func (r RepeatInterval) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return true
	}
	return false
}

func (r RepeatInterval) String() string {
	return string(r)
}
