package period

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Grading period keys, by grade band.
const (
	KeySixWeek  = "sixWeek"
	KeyNineWeek = "nineWeek"
)

// ErrUnparsableDate is returned by ParseDate.
var ErrUnparsableDate = errors.New("unparsable date")

var dateLayouts = []string{
	"1/2/2006",
	"1-2-2006",
	"2006-01-02",
}

// ParseDate parses a portal date (M/D/YYYY, M-D-YYYY or YYYY-MM-DD) at midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDate, value)
}

// SchoolYear returns the graduation-year label for date: January through
// August belong to the current year, September onward to the next one.
func SchoolYear(date time.Time) string {
	year := date.Year()
	if date.Month() > time.August {
		year++
	}
	return strconv.Itoa(year)
}

// KeyForGradeLevel picks the schedule key for a student's grade level.
// Unknown levels get the post-elementary schedule.
func KeyForGradeLevel(gradeLevel *int) string {
	if gradeLevel == nil || *gradeLevel > 5 {
		return KeySixWeek
	}
	return KeyNineWeek
}
