package clock

import "time"

// DayLayout is the partition key format used for calendar days (UTC).
const DayLayout = "2006-01-02"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now returns the current time in UTC.
func Now() time.Time { return NowFunc().UTC() }

// Day returns the UTC calendar day key of t.
func Day(t time.Time) string { return t.UTC().Format(DayLayout) }

// Today returns the UTC calendar day key of Now.
func Today() string { return Day(Now()) }
