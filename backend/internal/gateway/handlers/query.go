package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/stedman/grade-fetch/backend/internal/period"
)

var schoolYearPattern = regexp.MustCompile(`^\d{4}$`)

// PeriodQuery is the grading-period selection carried in a request's query string.
type PeriodQuery struct {
	Selector   period.Selector
	SchoolYear string
}

// ParsePeriodQuery reads all=true, run=<n> or date=<M/D/YYYY>, plus an
// optional year=<YYYY>. With none of the first three, the period is the one
// containing today. Dates are read in loc.
func ParsePeriodQuery(r *http.Request, loc *time.Location) (PeriodQuery, error) {
	q := r.URL.Query()
	all, run, date := q.Get("all"), q.Get("run"), q.Get("date")

	given := 0
	for _, v := range []string{all, run, date} {
		if v != "" {
			given++
		}
	}
	if given > 1 {
		return PeriodQuery{}, fmt.Errorf("only one of all, run or date may be given")
	}

	pq := PeriodQuery{Selector: period.Default(time.Time{})}

	switch {
	case all != "":
		whole, err := strconv.ParseBool(all)
		if err != nil {
			return PeriodQuery{}, fmt.Errorf("all must be true or false, got %q", all)
		}
		if whole {
			pq.Selector = period.All()
		}
	case run != "":
		index, err := strconv.Atoi(run)
		if err != nil {
			return PeriodQuery{}, fmt.Errorf("run must be a number, got %q", run)
		}
		pq.Selector = period.Explicit(index)
	case date != "":
		asOf, err := period.ParseDate(date, loc)
		if err != nil {
			return PeriodQuery{}, fmt.Errorf("date must be M/D/YYYY, got %q", date)
		}
		pq.Selector = period.Default(asOf)
	}

	if year := q.Get("year"); year != "" {
		if !schoolYearPattern.MatchString(year) {
			return PeriodQuery{}, fmt.Errorf("year must be YYYY, got %q", year)
		}
		pq.SchoolYear = year
	}

	return pq, nil
}

// ParseThreshold reads an optional threshold=<score> in [0, 100].
func ParseThreshold(r *http.Request) (*float64, error) {
	raw := r.URL.Query().Get("threshold")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 100 {
		return nil, fmt.Errorf("threshold must be a number between 0 and 100, got %q", raw)
	}
	return &v, nil
}
