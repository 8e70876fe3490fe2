package grade

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/stedman/grade-fetch/backend/internal/classwork"
	"github.com/stedman/grade-fetch/backend/internal/period"
	"github.com/stedman/grade-fetch/backend/internal/shared"
)

const testCalendarYAML = `
school_years:
  "2020":
    sixWeek:
      - {start: "08/21/2019", end: "10/04/2019"}
      - {start: "10/07/2019", end: "11/01/2019"}
      - {start: "11/04/2019", end: "12/19/2019"}
      - {start: "01/07/2020", end: "02/21/2020"}
      - {start: "02/24/2020", end: "04/09/2020"}
      - {start: "04/13/2020", end: "05/28/2020"}
    nineWeek:
      - {start: "08/21/2019", end: "10/18/2019"}
      - {start: "10/21/2019", end: "12/19/2019"}
      - {start: "01/07/2020", end: "03/06/2020"}
      - {start: "03/09/2020", end: "05/28/2020"}
`

type fakeSource struct {
	students  map[string]shared.Student
	classwork map[string][]classwork.Raw
	err       error
}

func (f *fakeSource) Students(ctx context.Context) ([]shared.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []shared.Student
	for _, s := range f.students {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSource) Student(ctx context.Context, id string) (shared.Student, error) {
	if f.err != nil {
		return shared.Student{}, f.err
	}
	s, ok := f.students[id]
	if !ok {
		return shared.Student{}, ErrStudentNotFound
	}
	return s, nil
}

func (f *fakeSource) Classwork(ctx context.Context, id string) ([]classwork.Raw, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.classwork[id], nil
}

func newTestService(t *testing.T, src Source) *GradeService {
	t.Helper()
	cal, err := period.ParseCalendar([]byte(testCalendarYAML), cst)
	if err != nil {
		t.Fatalf("ParseCalendar failed: %v", err)
	}
	return NewGradeService(src, testCatalog(), cal, Options{
		Now: func() time.Time { return time.Date(2019, time.December, 1, 12, 0, 0, 0, cst) },
	})
}

func fixtureSource() *fakeSource {
	five := 5
	return &fakeSource{
		students: map[string]shared.Student{
			"123456": {ID: "123456", Name: "Amber Lith"},
			"234567": {ID: "234567", Name: "Ruby Lith", GradeLevel: &five},
		},
		classwork: map[string][]classwork.Raw{
			"123456": {
				row("0123 - 1 Reading", "Assessment", "12/19/2019", "95", ""),
				row("0123 - 1 Reading", "Daily", "12/10/2019", "75", "Late Work"),
				row("0123 - 1 Reading", "Daily", "10/10/2019", "100", ""),
				row("0123 - 1 Reading", "Daily", "someday", "90", ""),
			},
		},
	}
}

func codeOf(err error) codes.Code {
	return status.Code(err)
}

func TestGradeServiceAverages(t *testing.T) {
	svc := newTestService(t, fixtureSource())
	ctx := context.Background()

	t.Run("Default period is the one containing today", func(t *testing.T) {
		report, err := svc.GetGradeAverages(ctx, "123456", period.Default(time.Time{}), "")
		if err != nil {
			t.Fatalf("GetGradeAverages failed: %v", err)
		}
		if report.Period.Current != 3 || report.SchoolYear != "2020" || report.PeriodKey != period.KeySixWeek {
			t.Errorf("Unexpected period: %+v", report.PeriodReport)
		}
		got := report.Averages[readingID]
		if FormatPercent(got.Average) != "85.00" {
			t.Errorf("Expected 85.00, got %s", FormatPercent(got.Average))
		}
		if len(report.Skipped) != 1 || report.Skipped[0].Index != 3 {
			t.Errorf("Expected the undated record to be skipped, got %+v", report.Skipped)
		}
	})

	t.Run("Explicit run", func(t *testing.T) {
		report, err := svc.GetGradeAverages(ctx, "123456", period.Explicit(2), "2020")
		if err != nil {
			t.Fatalf("GetGradeAverages failed: %v", err)
		}
		if FormatPercent(report.Averages[readingID].Average) != "100.00" {
			t.Errorf("Unexpected run 2 average: %+v", report.Averages)
		}
	})

	t.Run("Whole year", func(t *testing.T) {
		report, err := svc.GetGradeAverages(ctx, "123456", period.All(), "")
		if err != nil {
			t.Fatalf("GetGradeAverages failed: %v", err)
		}
		// Daily mean (75+100)/2 = 87.5, Assessment 95
		if FormatPercent(report.Averages[readingID].Average) != "91.25" {
			t.Errorf("Unexpected whole-year average: %+v", report.Averages[readingID])
		}
	})
}

func TestGradeServiceAlerts(t *testing.T) {
	svc := newTestService(t, fixtureSource())
	ctx := context.Background()

	report, err := svc.GetAlerts(ctx, "123456", period.Explicit(3), "2020", nil)
	if err != nil {
		t.Fatalf("GetAlerts failed: %v", err)
	}
	if report.Threshold != DefaultLowScore || len(report.Alerts) != 1 {
		t.Errorf("Unexpected alerts: %+v", report)
	}

	threshold := 96.0
	report, err = svc.GetAlerts(ctx, "123456", period.Explicit(3), "2020", &threshold)
	if err != nil {
		t.Fatalf("GetAlerts failed: %v", err)
	}
	if len(report.Alerts) != 2 {
		t.Errorf("Expected both entries below 96, got %+v", report.Alerts)
	}
}

func TestGradeServiceClasswork(t *testing.T) {
	svc := newTestService(t, fixtureSource())

	report, err := svc.GetClasswork(context.Background(), "123456", period.Explicit(3), "")
	if err != nil {
		t.Fatalf("GetClasswork failed: %v", err)
	}
	if len(report.Classwork) != 2 {
		t.Fatalf("Expected 2 in-period items, got %d", len(report.Classwork))
	}
	if report.Classwork[0].DateDue != "12/10/2019" {
		t.Errorf("Classwork should be ordered by due date, got %s first", report.Classwork[0].DateDue)
	}
}

func TestGradeServiceNineWeekSchedule(t *testing.T) {
	svc := newTestService(t, fixtureSource())

	report, err := svc.ResolvePeriod(context.Background(), "234567", period.Default(time.Time{}), "")
	if err != nil {
		t.Fatalf("ResolvePeriod failed: %v", err)
	}
	if report.PeriodKey != period.KeyNineWeek || report.Period.Current != 2 || report.Period.Last != 4 {
		t.Errorf("Unexpected nine-week period: %+v", report)
	}
}

func TestGradeServiceTodayIsWholeDay(t *testing.T) {
	cal, err := period.ParseCalendar([]byte(testCalendarYAML), cst)
	if err != nil {
		t.Fatalf("ParseCalendar failed: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"Last Day Afternoon", time.Date(2019, time.December, 19, 15, 0, 0, 0, cst), 3},
		{"Last Day Before Midnight", time.Date(2019, time.December, 19, 23, 59, 59, 0, cst), 3},
		{"First Day Morning", time.Date(2019, time.November, 4, 7, 30, 0, 0, cst), 3},
		{"Last Day Of Run 2 In UTC", time.Date(2019, time.November, 2, 3, 0, 0, 0, time.UTC), 2},
		{"Winter Break", time.Date(2019, time.December, 23, 10, 0, 0, 0, cst), period.AllYear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := tt.now
			svc := NewGradeService(fixtureSource(), testCatalog(), cal, Options{
				Now: func() time.Time { return now },
			})

			report, err := svc.ResolvePeriod(context.Background(), "123456", period.Default(time.Time{}), "")
			if err != nil {
				t.Fatalf("ResolvePeriod failed: %v", err)
			}
			if report.Period.Current != tt.want {
				t.Errorf("Expected run %d, got %d", tt.want, report.Period.Current)
			}

			// An explicit reference time with a time of day resolves the same way.
			report, err = svc.ResolvePeriod(context.Background(), "123456", period.Default(now), "2020")
			if err != nil {
				t.Fatalf("ResolvePeriod failed: %v", err)
			}
			if report.Period.Current != tt.want {
				t.Errorf("Expected run %d for Default(now), got %d", tt.want, report.Period.Current)
			}
		})
	}
}

func TestGradeServiceZeroThreshold(t *testing.T) {
	cal, err := period.ParseCalendar([]byte(testCalendarYAML), cst)
	if err != nil {
		t.Fatalf("ParseCalendar failed: %v", err)
	}
	zero := 0.0
	svc := NewGradeService(fixtureSource(), testCatalog(), cal, Options{LowScoreThreshold: &zero})

	if got := svc.LowScoreThreshold(); got != 0 {
		t.Fatalf("Expected configured threshold 0 to be kept, got %v", got)
	}
	report, err := svc.GetAlerts(context.Background(), "123456", period.Explicit(3), "2020", nil)
	if err != nil {
		t.Fatalf("GetAlerts failed: %v", err)
	}
	if report.Threshold != 0 || len(report.Alerts) != 1 || report.Alerts[0].Comment != "Late Work" {
		t.Errorf("Expected only the commented entry at threshold 0, got %+v", report)
	}

	if got := newTestService(t, fixtureSource()).LowScoreThreshold(); got != DefaultLowScore {
		t.Errorf("Expected default threshold %v when unset, got %v", DefaultLowScore, got)
	}
}

func TestGradeServiceErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, fixtureSource())

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"Malformed id", func() error { _, err := svc.GetStudent(ctx, "12345a"); return err }, codes.InvalidArgument},
		{"Empty id", func() error { _, err := svc.GetStudent(ctx, ""); return err }, codes.InvalidArgument},
		{"Unknown student", func() error { _, err := svc.GetStudent(ctx, "999999"); return err }, codes.NotFound},
		{"Period index out of range", func() error {
			_, err := svc.ResolvePeriod(ctx, "123456", period.Explicit(7), "2020")
			return err
		}, codes.InvalidArgument},
		{"Unknown school year", func() error {
			_, err := svc.ResolvePeriod(ctx, "123456", period.Explicit(1), "1999")
			return err
		}, codes.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := codeOf(tt.call()); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("Catalog mismatch", func(t *testing.T) {
		src := fixtureSource()
		src.classwork["123456"] = append(src.classwork["123456"], row("0123 - 1 Reading", "Homework", "12/01/2019", "80", ""))
		_, err := newTestService(t, src).GetGradeAverages(ctx, "123456", period.Explicit(3), "")
		if codeOf(err) != codes.FailedPrecondition {
			t.Errorf("Expected FailedPrecondition, got %v", err)
		}
	})

	t.Run("Store failure", func(t *testing.T) {
		_, err := newTestService(t, &fakeSource{err: errors.New("connection reset")}).ListStudents(ctx)
		if codeOf(err) != codes.Internal {
			t.Errorf("Expected Internal, got %v", err)
		}
	})

	t.Run("Deadline", func(t *testing.T) {
		_, err := newTestService(t, &fakeSource{err: context.DeadlineExceeded}).GetStudent(ctx, "123456")
		if codeOf(err) != codes.DeadlineExceeded {
			t.Errorf("Expected DeadlineExceeded, got %v", err)
		}
	})
}

func TestListStudentsSorted(t *testing.T) {
	students, err := newTestService(t, fixtureSource()).ListStudents(context.Background())
	if err != nil {
		t.Fatalf("ListStudents failed: %v", err)
	}
	if len(students) != 2 || students[0].ID != "123456" || students[1].ID != "234567" {
		t.Errorf("Unexpected students: %+v", students)
	}
}
