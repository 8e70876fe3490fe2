// ============================================================================
// backend/internal/classwork/classwork.go
// Normalization of scraped classwork rows into weighted records
// ============================================================================

package classwork

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/stedman/grade-fetch/backend/internal/catalog"
	"github.com/stedman/grade-fetch/backend/internal/period"
)

const (
	// CourseIDWidth is the fixed-width course id prefix of a scraped course label.
	CourseIDWidth = 9

	// MissingWorkScore marks an assignment the student never turned in.
	MissingWorkScore = "M"

	// MissingWorkPrefix is prepended to the comment of missing work.
	MissingWorkPrefix = "[missing work] "
)

var (
	// ErrInvalidDate marks a record whose due date cannot be parsed.
	ErrInvalidDate = errors.New("invalid due date")

	// ErrInvalidScore marks a record whose score is neither empty, "M" nor a number.
	ErrInvalidScore = errors.New("invalid score")

	// ErrCatalogMismatch is matched by every scrape/catalog disagreement.
	ErrCatalogMismatch = errors.New("classwork does not match course catalog")

	// ErrCategoryNotInCatalog aliases the catalog error so callers need one import.
	ErrCategoryNotInCatalog = catalog.ErrCategoryNotInCatalog

	// ErrCourseNotFound aliases the catalog error so callers need one import.
	ErrCourseNotFound = catalog.ErrCourseNotFound
)

// Raw is one classwork row as produced by the portal scraper. Untrusted.
type Raw struct {
	Course       string `json:"course" bson:"course"`
	Assignment   string `json:"assignment" bson:"assignment"`
	Category     string `json:"category" bson:"category"`
	DateDue      string `json:"dateDue" bson:"date_due"`
	DateAssigned string `json:"dateAssigned" bson:"date_assigned"`
	Score        string `json:"score" bson:"score"`
	Comment      string `json:"comment" bson:"comment"`
}

// Normalized is a typed, weight-annotated classwork record. A nil Score means ungraded.
type Normalized struct {
	DueAt          time.Time `json:"dueAt"`
	DateDue        string    `json:"dateDue"`
	DateAssigned   string    `json:"dateAssigned"`
	CourseID       string    `json:"courseId"`
	Assignment     string    `json:"assignment"`
	Category       string    `json:"category"`
	Score          *float64  `json:"score"`
	CategoryWeight float64   `json:"catWeight"`
	Comment        string    `json:"comment"`
}

// Graded reports whether the record carries a score.
func (n Normalized) Graded() bool { return n.Score != nil }

// RecordError is a per-record normalization failure.
type RecordError struct {
	Field string
	Value string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// MismatchError is a catalog integrity failure for one record.
type MismatchError struct {
	CourseID string
	Category string
	Err      error
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("classwork for course %q category %q: %v", e.CourseID, e.Category, e.Err)
}

// Unwrap exposes both the catalog cause and ErrCatalogMismatch.
func (e *MismatchError) Unwrap() []error { return []error{ErrCatalogMismatch, e.Err} }

// CourseID extracts the fixed-width course id from a scraped course label.
func CourseID(course string) string {
	runes := []rune(course)
	if len(runes) > CourseIDWidth {
		runes = runes[:CourseIDWidth]
	}
	return strings.TrimSpace(string(runes))
}

// Normalizer converts raw rows against one catalog snapshot.
type Normalizer struct {
	catalog  *catalog.Catalog
	location *time.Location
}

// NewNormalizer binds a catalog and the timezone due dates are written in.
func NewNormalizer(c *catalog.Catalog, loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{catalog: c, location: loc}
}

// Normalize converts a single raw row. A catalog mismatch takes precedence
// over a malformed date or score so it is never skipped as a bad record.
func (n *Normalizer) Normalize(raw Raw) (Normalized, error) {
	courseID := CourseID(raw.Course)

	category := strings.TrimSpace(raw.Category)
	weight, err := n.catalog.Weight(courseID, category)
	if err != nil {
		return Normalized{}, &MismatchError{CourseID: courseID, Category: category, Err: err}
	}

	dueAt, err := period.ParseDate(raw.DateDue, n.location)
	if err != nil {
		return Normalized{}, &RecordError{Field: "dateDue", Value: raw.DateDue, Err: ErrInvalidDate}
	}

	comment := raw.Comment
	var score *float64
	switch value := strings.TrimSpace(raw.Score); value {
	case "":
	case MissingWorkScore:
		zero := 0.0
		score = &zero
		comment = MissingWorkPrefix + comment
	default:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return Normalized{}, &RecordError{Field: "score", Value: raw.Score, Err: ErrInvalidScore}
		}
		score = &parsed
	}

	return Normalized{
		DueAt:          dueAt,
		DateDue:        strings.TrimSpace(raw.DateDue),
		DateAssigned:   strings.TrimSpace(raw.DateAssigned),
		CourseID:       courseID,
		Assignment:     strings.TrimSpace(raw.Assignment),
		Category:       category,
		Score:          score,
		CategoryWeight: weight,
		Comment:        strings.TrimSpace(comment),
	}, nil
}
