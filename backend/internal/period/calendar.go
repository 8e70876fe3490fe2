package period

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrScheduleNotFound is returned when a calendar has no schedule for a year and key.
var ErrScheduleNotFound = errors.New("grading period schedule not found")

// calendarFile models config/grading_periods.yaml.
type calendarFile struct {
	Timezone    string                                  `yaml:"timezone"`
	SchoolYears map[string]map[string][]intervalFileRow `yaml:"school_years"`
}

type intervalFileRow struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Calendar holds every schedule by school year, then by period key.
type Calendar struct {
	location  *time.Location
	schedules map[string]map[string]Schedule
}

// NewCalendar builds a calendar from already-validated schedules.
func NewCalendar(loc *time.Location, schedules map[string]map[string]Schedule) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	c := &Calendar{location: loc, schedules: make(map[string]map[string]Schedule, len(schedules))}
	for year, byKey := range schedules {
		c.schedules[year] = make(map[string]Schedule, len(byKey))
		for key, s := range byKey {
			c.schedules[year][key] = s
		}
	}
	return c
}

// LoadCalendar reads a YAML calendar file. fallback is used when the file names no timezone.
func LoadCalendar(path string, fallback *time.Location) (*Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendar %s: %w", path, err)
	}
	return ParseCalendar(data, fallback)
}

// ParseCalendar decodes YAML calendar data.
func ParseCalendar(data []byte, fallback *time.Location) (*Calendar, error) {
	var file calendarFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	loc := fallback
	if file.Timezone != "" {
		tz, err := time.LoadLocation(file.Timezone)
		if err != nil {
			return nil, fmt.Errorf("calendar timezone %q: %w", file.Timezone, err)
		}
		loc = tz
	}
	if loc == nil {
		loc = time.Local
	}

	schedules := make(map[string]map[string]Schedule, len(file.SchoolYears))
	for year, byKey := range file.SchoolYears {
		schedules[year] = make(map[string]Schedule, len(byKey))
		for key, rows := range byKey {
			intervals := make([]Interval, 0, len(rows))
			for i, row := range rows {
				start, err := ParseDate(row.Start, loc)
				if err != nil {
					return nil, fmt.Errorf("school year %s %s period %d start: %w", year, key, i+1, err)
				}
				end, err := ParseDate(row.End, loc)
				if err != nil {
					return nil, fmt.Errorf("school year %s %s period %d end: %w", year, key, i+1, err)
				}
				intervals = append(intervals, Interval{Start: start, End: end})
			}
			s, err := NewSchedule(intervals)
			if err != nil {
				return nil, fmt.Errorf("school year %s %s: %w", year, key, err)
			}
			schedules[year][key] = s
		}
	}

	return &Calendar{location: loc, schedules: schedules}, nil
}

// Location is the school's timezone; calendar and due dates are parsed in it.
func (c *Calendar) Location() *time.Location { return c.location }

// Schedule returns the schedule for a school year and period key.
func (c *Calendar) Schedule(schoolYear, key string) (Schedule, error) {
	byKey, ok := c.schedules[schoolYear]
	if !ok {
		return Schedule{}, fmt.Errorf("%w: school year %s", ErrScheduleNotFound, schoolYear)
	}
	s, ok := byKey[key]
	if !ok {
		return Schedule{}, fmt.Errorf("%w: school year %s key %s", ErrScheduleNotFound, schoolYear, key)
	}
	return s, nil
}

// SchoolYears lists the configured school years in ascending order.
func (c *Calendar) SchoolYears() []string {
	years := make([]string, 0, len(c.schedules))
	for y := range c.schedules {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}
