package pipeline

import "time"

// Clock supplies the capture time for a run. Injected so tests can pin
// timestamps.
type Clock interface {
	Now() time.Time
}

// UTCClock is the production Clock reading the wall clock in UTC.
type UTCClock struct{}

func (UTCClock) Now() time.Time {
	return time.Now().UTC()
}
