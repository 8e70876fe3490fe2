package grade

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/stedman/grade-fetch/backend/internal/catalog"
	"github.com/stedman/grade-fetch/backend/internal/classwork"
	"github.com/stedman/grade-fetch/backend/internal/period"
	"github.com/stedman/grade-fetch/backend/internal/shared"
)

// ErrStudentNotFound is returned by a Source for an unknown student id.
var ErrStudentNotFound = errors.New("student not found")

// studentIDPattern matches the district's six digit student ids.
var studentIDPattern = regexp.MustCompile(`^\d{6}$`)

// Source is the read side of the harvested data.
type Source interface {
	Students(ctx context.Context) ([]shared.Student, error)
	Student(ctx context.Context, studentID string) (shared.Student, error)
	Classwork(ctx context.Context, studentID string) ([]classwork.Raw, error)
}

// Options tune a GradeService. Zero values take the defaults; a nil
// LowScoreThreshold means DefaultLowScore, so an explicit 0 is kept.
type Options struct {
	LowScoreThreshold *float64
	Location          *time.Location
	Now               func() time.Time
	Timeout           time.Duration
}

// GradeService answers period, classwork, average and alert queries for a student.
type GradeService struct {
	source     Source
	catalog    *catalog.Catalog
	calendar   *period.Calendar
	normalizer *classwork.Normalizer
	lowScore   float64
	location   *time.Location
	now        func() time.Time
	timeout    time.Duration
}

// NewGradeService creates a new GradeService instance
func NewGradeService(source Source, c *catalog.Catalog, cal *period.Calendar, opts Options) *GradeService {
	loc := opts.Location
	if loc == nil {
		loc = cal.Location()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	lowScore := DefaultLowScore
	if opts.LowScoreThreshold != nil {
		lowScore = *opts.LowScoreThreshold
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &GradeService{
		source:     source,
		catalog:    c,
		calendar:   cal,
		normalizer: classwork.NewNormalizer(c, loc),
		lowScore:   lowScore,
		location:   loc,
		now:        now,
		timeout:    timeout,
	}
}

// ============================================================================
// Reports
// ============================================================================

// PeriodReport identifies the student and the grading period a query resolved to.
type PeriodReport struct {
	Student    shared.Student       `json:"student"`
	SchoolYear string               `json:"schoolYear"`
	PeriodKey  string               `json:"periodKey"`
	Period     period.GradingPeriod `json:"gradingPeriod"`
}

// SkippedRecord is a classwork row left out of a report because it could not be read.
type SkippedRecord struct {
	Index      int    `json:"index"`
	Course     string `json:"course"`
	Assignment string `json:"assignment"`
	Reason     string `json:"reason"`
}

// ClassworkReport lists normalized classwork due in the period.
type ClassworkReport struct {
	PeriodReport
	Classwork []classwork.Normalized `json:"classwork"`
	Skipped   []SkippedRecord        `json:"skipped"`
}

// AveragesReport holds per-course weighted averages for the period.
type AveragesReport struct {
	PeriodReport
	Averages map[string]CourseAverage `json:"averages"`
	Skipped  []SkippedRecord          `json:"skipped"`
}

// AlertsReport lists graded work with comments or low scores.
type AlertsReport struct {
	PeriodReport
	Threshold float64         `json:"threshold"`
	Alerts    []Alert         `json:"alerts"`
	Skipped   []SkippedRecord `json:"skipped"`
}

// ============================================================================
// Queries
// ============================================================================

// LowScoreThreshold is the threshold used when a query does not name one.
func (s *GradeService) LowScoreThreshold() float64 { return s.lowScore }

// Location is the school timezone service dates are interpreted in.
func (s *GradeService) Location() *time.Location { return s.location }

// ListStudents returns every student ordered by id.
func (s *GradeService) ListStudents(ctx context.Context) ([]shared.Student, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	students, err := s.source.Students(queryCtx)
	if err != nil {
		return nil, sourceError(err, "list students")
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

// GetStudent returns a single student.
func (s *GradeService) GetStudent(ctx context.Context, studentID string) (shared.Student, error) {
	if err := validateStudentID(studentID); err != nil {
		return shared.Student{}, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	student, err := s.source.Student(queryCtx, studentID)
	if err != nil {
		return shared.Student{}, sourceError(err, "find student "+studentID)
	}
	return student, nil
}

// ResolvePeriod resolves sel against the student's schedule. An empty
// schoolYear is derived from the selector date, or from today.
func (s *GradeService) ResolvePeriod(ctx context.Context, studentID string, sel period.Selector, schoolYear string) (PeriodReport, error) {
	student, err := s.GetStudent(ctx, studentID)
	if err != nil {
		return PeriodReport{}, err
	}
	return s.resolve(student, sel, schoolYear)
}

// GetClasswork returns the student's normalized classwork due in the period.
func (s *GradeService) GetClasswork(ctx context.Context, studentID string, sel period.Selector, schoolYear string) (ClassworkReport, error) {
	report, batch, err := s.load(ctx, studentID, sel, schoolYear)
	if err != nil {
		return ClassworkReport{}, err
	}

	items := InPeriod(batch.Items, report.Period)
	sort.SliceStable(items, func(i, j int) bool { return items[i].DueAt.Before(items[j].DueAt) })

	return ClassworkReport{
		PeriodReport: report,
		Classwork:    items,
		Skipped:      skippedRecords(batch.Skipped),
	}, nil
}

// GetGradeAverages returns per-course weighted averages for the period.
func (s *GradeService) GetGradeAverages(ctx context.Context, studentID string, sel period.Selector, schoolYear string) (AveragesReport, error) {
	report, batch, err := s.load(ctx, studentID, sel, schoolYear)
	if err != nil {
		return AveragesReport{}, err
	}

	return AveragesReport{
		PeriodReport: report,
		Averages:     Averages(batch.Items, report.Period, s.catalog),
		Skipped:      skippedRecords(batch.Skipped),
	}, nil
}

// GetAlerts returns the period's alerts. A nil threshold uses the service default.
func (s *GradeService) GetAlerts(ctx context.Context, studentID string, sel period.Selector, schoolYear string, threshold *float64) (AlertsReport, error) {
	lowScore := s.lowScore
	if threshold != nil {
		lowScore = *threshold
	}

	report, batch, err := s.load(ctx, studentID, sel, schoolYear)
	if err != nil {
		return AlertsReport{}, err
	}

	return AlertsReport{
		PeriodReport: report,
		Threshold:    lowScore,
		Alerts:       Alerts(batch.Items, report.Period, lowScore, s.catalog),
		Skipped:      skippedRecords(batch.Skipped),
	}, nil
}

// ============================================================================
// Helper Functions
// ============================================================================

func (s *GradeService) load(ctx context.Context, studentID string, sel period.Selector, schoolYear string) (PeriodReport, classwork.Batch, error) {
	student, err := s.GetStudent(ctx, studentID)
	if err != nil {
		return PeriodReport{}, classwork.Batch{}, err
	}

	report, err := s.resolve(student, sel, schoolYear)
	if err != nil {
		return PeriodReport{}, classwork.Batch{}, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raws, err := s.source.Classwork(queryCtx, studentID)
	if err != nil {
		return PeriodReport{}, classwork.Batch{}, sourceError(err, "load classwork for "+studentID)
	}

	batch, err := s.normalizer.NormalizeAll(raws)
	if err != nil {
		log.Printf("WARN: Classwork for student %s does not match the catalog: %v", studentID, err)
		return PeriodReport{}, classwork.Batch{}, status.Error(codes.FailedPrecondition, err.Error())
	}
	if len(batch.Skipped) > 0 {
		log.Printf("WARN: Skipped %d unreadable classwork records for student %s", len(batch.Skipped), studentID)
	}

	return report, batch, nil
}

func (s *GradeService) resolve(student shared.Student, sel period.Selector, schoolYear string) (PeriodReport, error) {
	if !sel.IsExplicit() {
		asOf := sel.AsOf()
		if asOf.IsZero() {
			asOf = s.now()
		}
		// Periods are whole school days: compare calendar dates, not instants.
		sel = period.Default(schoolDate(asOf, s.location))
	}

	if schoolYear == "" {
		ref := s.now().In(s.location)
		if !sel.IsExplicit() {
			ref = sel.AsOf()
		}
		schoolYear = period.SchoolYear(ref)
	}

	key := student.PeriodKey
	if key == "" {
		key = period.KeyForGradeLevel(student.GradeLevel)
	}

	schedule, err := s.calendar.Schedule(schoolYear, key)
	if err != nil {
		return PeriodReport{}, status.Error(codes.NotFound, err.Error())
	}

	p, err := schedule.Resolve(sel)
	if err != nil {
		if errors.Is(err, period.ErrInvalidPeriodIndex) {
			return PeriodReport{}, status.Error(codes.InvalidArgument, err.Error())
		}
		return PeriodReport{}, status.Error(codes.Internal, err.Error())
	}

	return PeriodReport{
		Student:    student,
		SchoolYear: schoolYear,
		PeriodKey:  key,
		Period:     p,
	}, nil
}

// schoolDate is midnight of t's calendar day in loc.
func schoolDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func validateStudentID(studentID string) error {
	if studentID == "" {
		return status.Error(codes.InvalidArgument, "student_id is required")
	}
	if !studentIDPattern.MatchString(studentID) {
		return status.Errorf(codes.InvalidArgument, "student_id must be 6 digits, got %q", studentID)
	}
	return nil
}

// sourceError maps a Source failure onto a status error. Unexpected failures
// are logged here and reported without detail.
func sourceError(err error, op string) error {
	switch {
	case errors.Is(err, ErrStudentNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, fmt.Sprintf("%s: timed out", op))
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, fmt.Sprintf("%s: canceled", op))
	default:
		log.Printf("Error: failed to %s: %v", op, err)
		return status.Error(codes.Internal, fmt.Sprintf("failed to %s", op))
	}
}

func skippedRecords(skipped []classwork.Skipped) []SkippedRecord {
	records := make([]SkippedRecord, 0, len(skipped))
	for _, sk := range skipped {
		records = append(records, SkippedRecord{
			Index:      sk.Index,
			Course:     sk.Raw.Course,
			Assignment: sk.Raw.Assignment,
			Reason:     sk.Reason(),
		})
	}
	return records
}
