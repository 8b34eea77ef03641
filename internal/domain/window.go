package domain

import (
	"fmt"
	"time"
)

// Window is an immutable time range plus the IANA timezone used for
// human-facing day-boundary math. All numeric aggregation stays in UTC.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	TZ    string    `json:"tz"`

	loc *time.Location
}

func NewWindow(start, end time.Time, tz string) (Window, error) {
	if start.After(end) {
		return Window{}, ErrInvalidWindow
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Window{}, fmt.Errorf("window: load timezone %q: %w", tz, err)
	}
	return Window{Start: start.UTC(), End: end.UTC(), TZ: tz, loc: loc}, nil
}

// LastDays is the window covering the past n days ending at now.
func LastDays(n int, tz string, now time.Time) (Window, error) {
	now = now.UTC()
	return NewWindow(now.Add(-time.Duration(n)*24*time.Hour), now, tz)
}

func (w Window) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w Window) Location() *time.Location {
	if w.loc == nil {
		return time.UTC
	}
	return w.loc
}

func (w Window) Days() int { return int(w.End.Sub(w.Start).Hours() / 24) }
