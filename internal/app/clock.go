package app

import (
	"fmt"
	"time"
)

// OperationalClock converts instants to the hour-of-day in the institutions'
// operating region, independent of the host timezone. Construction fails if
// the timezone database cannot resolve the zone; callers treat that as a
// fatal startup error.
type OperationalClock struct {
	loc *time.Location
	now func() time.Time
}

func NewOperationalClock(tzName string) (*OperationalClock, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("failed to load operational timezone %q: %w", tzName, err)
	}
	return &OperationalClock{loc: loc, now: time.Now}, nil
}

// Now returns the current instant.
func (c *OperationalClock) Now() time.Time {
	return c.now()
}

// CurrentHour returns the hour-of-day [0,23] in the operational timezone.
func (c *OperationalClock) CurrentHour() int {
	return c.now().In(c.loc).Hour()
}
