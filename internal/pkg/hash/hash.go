package hash

import (
	"hash/fnv"
	"io"
)

// idMask keeps notification IDs within 53 bits so the value stays exact
// if it ever crosses a JSON number boundary.
const idMask = 1<<53 - 1

// NotificationID derives the stable numeric ID addressing the external
// scheduler registration for one (reminder, slot) pair. The same pair
// always yields the same ID, so rescheduling a slot replaces its
// registration instead of accumulating duplicates.
//
// The ID is FNV-1a 64 truncated to 53 bits. Collisions between distinct
// pairs are possible but need on the order of 2^26 live registrations
// to become likely, far beyond the 20-slots-per-reminder ceiling.
func NotificationID(reminderID, slot string) int64 {
	h := fnv.New64a()
	io.WriteString(h, reminderID)
	io.WriteString(h, "#")
	io.WriteString(h, slot)
	return int64(h.Sum64() & idMask)
}
