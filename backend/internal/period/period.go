// ============================================================================
// backend/internal/period/period.go
// Grading period (report card run) resolution
// ============================================================================

package period

import (
	"errors"
	"fmt"
	"time"
)

// AllYear is the reserved period index meaning "entire school year, unfiltered".
const AllYear = 0

var (
	// ErrInvalidPeriodIndex is matched by every *InvalidPeriodIndexError.
	ErrInvalidPeriodIndex = errors.New("invalid grading period index")

	// ErrInvalidSchedule is returned when schedule boundaries are empty, inverted or out of order.
	ErrInvalidSchedule = errors.New("invalid grading period schedule")
)

// InvalidPeriodIndexError reports an explicit index outside [0, Last].
type InvalidPeriodIndexError struct {
	Index int
	Last  int
}

func (e *InvalidPeriodIndexError) Error() string {
	return fmt.Sprintf("grading period %d is outside [0, %d]", e.Index, e.Last)
}

// Is lets errors.Is(err, ErrInvalidPeriodIndex) match.
func (e *InvalidPeriodIndexError) Is(target error) bool {
	return target == ErrInvalidPeriodIndex
}

// Interval is one period's inclusive [Start, End] boundary.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls within the interval, both ends inclusive.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// Schedule is an ordered list of period boundaries for one school year and grade band.
type Schedule struct {
	intervals []Interval
}

// NewSchedule validates and copies the boundaries.
func NewSchedule(intervals []Interval) (Schedule, error) {
	if len(intervals) == 0 {
		return Schedule{}, fmt.Errorf("%w: no intervals", ErrInvalidSchedule)
	}
	for i, iv := range intervals {
		if iv.Start.After(iv.End) {
			return Schedule{}, fmt.Errorf("%w: period %d starts after it ends", ErrInvalidSchedule, i+1)
		}
		if i > 0 && iv.Start.Before(intervals[i-1].End) {
			return Schedule{}, fmt.Errorf("%w: period %d starts before period %d ends", ErrInvalidSchedule, i+1, i)
		}
	}
	return Schedule{intervals: append([]Interval(nil), intervals...)}, nil
}

// Len returns the number of periods in the schedule.
func (s Schedule) Len() int { return len(s.intervals) }

// Intervals returns a copy of the period boundaries.
func (s Schedule) Intervals() []Interval {
	return append([]Interval(nil), s.intervals...)
}

// GradingPeriod is the resolved, bounded period. Current == AllYear spans the whole schedule.
type GradingPeriod struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	First   int       `json:"first"`
	Prev    *int      `json:"prev,omitempty"`
	Current int       `json:"current"`
	Next    *int      `json:"next,omitempty"`
	Last    int       `json:"last"`
}

// IsAllYear reports whether the period is the unfiltered whole-year sentinel.
func (p GradingPeriod) IsAllYear() bool { return p.Current == AllYear }

// Contains reports whether t is inside the period. The whole-year sentinel contains everything.
func (p GradingPeriod) Contains(t time.Time) bool {
	if p.IsAllYear() {
		return true
	}
	return Interval{Start: p.Start, End: p.End}.Contains(t)
}

// ResolveIndex returns the 1-based index of the first period containing date.
// ok is false when no period contains it; the index is then 0, which callers
// must not confuse with AllYear.
func (s Schedule) ResolveIndex(date time.Time) (index int, ok bool) {
	for i, iv := range s.intervals {
		if iv.Contains(date) {
			return i + 1, true
		}
	}
	return 0, false
}

// Interval returns the bounded period for an explicit index in [0, Len()].
func (s Schedule) Interval(index int) (GradingPeriod, error) {
	last := len(s.intervals)
	if last == 0 {
		return GradingPeriod{}, fmt.Errorf("%w: no intervals", ErrInvalidSchedule)
	}
	if index < AllYear || index > last {
		return GradingPeriod{}, &InvalidPeriodIndexError{Index: index, Last: last}
	}

	if index == AllYear {
		return GradingPeriod{
			Start:   s.intervals[0].Start,
			End:     s.intervals[last-1].End,
			First:   1,
			Current: AllYear,
			Last:    last,
		}, nil
	}

	iv := s.intervals[index-1]
	p := GradingPeriod{
		Start:   iv.Start,
		End:     iv.End,
		First:   1,
		Current: index,
		Last:    last,
	}
	if index > 1 {
		prev := index - 1
		p.Prev = &prev
	}
	if index < last {
		next := index + 1
		p.Next = &next
	}
	return p, nil
}

// Resolve turns a selector into a period. A Default date outside every
// period resolves to the whole school year.
func (s Schedule) Resolve(sel Selector) (GradingPeriod, error) {
	if sel.explicit {
		return s.Interval(sel.index)
	}
	index, ok := s.ResolveIndex(sel.asOf)
	if !ok {
		index = AllYear
	}
	return s.Interval(index)
}

// Selector picks a grading period either by explicit index or by a reference date.
type Selector struct {
	explicit bool
	index    int
	asOf     time.Time
}

// Explicit selects period index directly. Explicit(AllYear) selects the whole year.
func Explicit(index int) Selector { return Selector{explicit: true, index: index} }

// All selects the whole school year.
func All() Selector { return Explicit(AllYear) }

// Default selects the period containing asOf.
func Default(asOf time.Time) Selector { return Selector{asOf: asOf} }

// IsExplicit reports whether the selector carries an index.
func (s Selector) IsExplicit() bool { return s.explicit }

// Index returns the explicit index; only meaningful when IsExplicit is true.
func (s Selector) Index() int { return s.index }

// AsOf returns the reference date; only meaningful when IsExplicit is false.
func (s Selector) AsOf() time.Time { return s.asOf }

func (s Selector) String() string {
	if s.explicit {
		if s.index == AllYear {
			return "all"
		}
		return fmt.Sprintf("run %d", s.index)
	}
	return "as of " + s.asOf.Format("01/02/2006")
}
