package scoring

import (
	"fmt"
	"time"
)

// WeekWindow is one scoring week: [Start, End), Monday 00:00 to the next
// Monday 00:00 in the user's timezone.
type WeekWindow struct {
	Start time.Time
	End   time.Time
}

// CurrentWeek resolves the week containing now in the given IANA
// timezone. An unknown timezone is an error; callers fall back to UTC
// explicitly if they want to.
func CurrentWeek(now time.Time, timezone string) (WeekWindow, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return WeekWindow{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return WeekOf(now.In(loc)), nil
}

// WeekOf returns the Monday-anchored week containing t, in t's location.
func WeekOf(t time.Time) WeekWindow {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday is 0, convert to 7
	}

	year, month, day := t.AddDate(0, 0, -(weekday - 1)).Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	return WeekWindow{
		Start: start,
		End:   start.AddDate(0, 0, 7),
	}
}
