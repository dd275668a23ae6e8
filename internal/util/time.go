package util

import "time"

// Clock supplies the current time. Stores take one so date resolution can be
// pinned in tests.
type Clock func() time.Time

// SystemClock returns time.Now in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}
