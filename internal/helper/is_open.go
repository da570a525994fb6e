package helper

import (
	"fmt"
	"strings"
	"time"
)

// OpeningHours - daily window in the branch's timezone. Close before Open means the window crosses midnight.
type OpeningHours struct {
	open  time.Duration
	close time.Duration
	loc   *time.Location
}

// NewOpeningHours parses HH:MM or HH:MM:SS for both ends.
func NewOpeningHours(jamBuka, jamTutup, timezone string) (*OpeningHours, error) {
	loc := time.UTC
	if timezone != "" {
		var err error
		if loc, err = time.LoadLocation(timezone); err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
		}
	}

	open, err := parseClock(jamBuka)
	if err != nil {
		return nil, fmt.Errorf("opening time: %w", err)
	}
	closeAt, err := parseClock(jamTutup)
	if err != nil {
		return nil, fmt.Errorf("closing time: %w", err)
	}

	return &OpeningHours{open: open, close: closeAt, loc: loc}, nil
}

// IsOpen reports whether now falls inside today's window. Open is inclusive, close exclusive.
func (h *OpeningHours) IsOpen(now time.Time) bool {
	now = now.In(h.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)

	openTime := midnight.Add(h.open)
	closeTime := midnight.Add(h.close)

	if closeTime.Before(openTime) {
		closeTime = closeTime.Add(24 * time.Hour)

		// before today's opening we are still in yesterday's window
		if now.Before(openTime) {
			openTime = openTime.Add(-24 * time.Hour)
			closeTime = closeTime.Add(-24 * time.Hour)
		}
	}

	return !now.Before(openTime) && now.Before(closeTime)
}

func parseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	// TIME columns come as HH:MM:SS, env values usually as HH:MM
	if strings.Count(s, ":") == 1 {
		s += ":00"
	}

	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}
