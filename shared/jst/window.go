package jst

import (
	"fmt"
	"time"
)

// Window is a closed search interval on the JST wall clock.
type Window struct {
	Start time.Time
	End   time.Time
}

// ParseWindow builds a Window from two "YYYY-MM-DD HH:MM:SS" JST strings.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseLocal(start)
	if err != nil {
		return Window{}, fmt.Errorf("window start: %w", err)
	}
	e, err := ParseLocal(end)
	if err != nil {
		return Window{}, fmt.Errorf("window end: %w", err)
	}
	if e.Before(s) {
		return Window{}, fmt.Errorf("window end %s is before start %s", end, start)
	}
	return Window{Start: s, End: e}, nil
}

// UTCBounds returns the window as RFC 3339 UTC strings for publishedAfter/publishedBefore.
func (w Window) UTCBounds() (after, before string) {
	return w.Start.Add(-Offset).Format(UTCLayout), w.End.Add(-Offset).Format(UTCLayout)
}

// Contains reports whether a UTC publish time falls inside the window, bounds included.
func (w Window) Contains(published time.Time) bool {
	local := ToLocal(published)
	return !local.Before(w.Start) && !local.After(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("%s - %s JST", w.Start.Format(LocalLayout), w.End.Format(LocalLayout))
}
