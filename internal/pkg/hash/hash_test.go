package hash

import "testing"

func TestNotificationID_Deterministic(t *testing.T) {
	a := NotificationID("rem-1", "09:00")
	b := NotificationID("rem-1", "09:00")
	if a != b {
		t.Errorf("NotificationID() not stable: %d != %d", a, b)
	}
}

func TestNotificationID_DistinctPairs(t *testing.T) {
	ids := map[int64]string{}
	pairs := []struct{ rem, slot string }{
		{"rem-1", "09:00"},
		{"rem-1", "20:00"},
		{"rem-2", "09:00"},
		{"rem-12", "09:00"},
		// The separator keeps ("ab", "c") and ("a", "bc") shapes apart.
		{"rem", "-1#09:00"},
	}
	for _, p := range pairs {
		id := NotificationID(p.rem, p.slot)
		key := p.rem + "|" + p.slot
		if prev, dup := ids[id]; dup {
			t.Errorf("NotificationID collision between %s and %s", prev, key)
		}
		ids[id] = key
	}
}

func TestNotificationID_FitsIn53Bits(t *testing.T) {
	for _, slot := range []string{"00:00", "08:30", "23:59"} {
		id := NotificationID("8b4c2c0e-0f3e-4f3a-9d2a-1c1f1e1d1c1b", slot)
		if id < 0 || id >= 1<<53 {
			t.Errorf("NotificationID(%s) = %d, outside [0, 2^53)", slot, id)
		}
	}
}
