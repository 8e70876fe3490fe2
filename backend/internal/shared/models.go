// ============================================================================
// backend/internal/shared/models.go
// MongoDB documents for students, course catalog and harvested classwork
// ============================================================================

package shared

import (
	"time"
)

// Collection names
const (
	StudentsCollection  = "students"
	CoursesCollection   = "courses"
	ClassworkCollection = "classwork"
)

// Student is a student roster entry. GradeLevel is nil when the school did not
// report one; PeriodKey overrides the schedule derived from the grade level.
type Student struct {
	ID         string `bson:"_id" json:"id"`
	Name       string `bson:"name" json:"name"`
	School     string `bson:"school,omitempty" json:"school,omitempty"`
	GradeLevel *int   `bson:"grade_level,omitempty" json:"gradeLevel,omitempty"`
	PeriodKey  string `bson:"period_key,omitempty" json:"periodKey,omitempty"`
}

// CourseDocument is a catalog entry with its category weight table
type CourseDocument struct {
	ID         string             `bson:"_id" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Categories map[string]float64 `bson:"categories" json:"categories"`
}

// ClassworkDocument is one harvested assignment row, stored as scraped
type ClassworkDocument struct {
	StudentID    string    `bson:"student_id" json:"studentId"`
	Course       string    `bson:"course" json:"course"`
	Assignment   string    `bson:"assignment" json:"assignment"`
	Category     string    `bson:"category" json:"category"`
	DateDue      string    `bson:"date_due" json:"dateDue"`
	DateAssigned string    `bson:"date_assigned,omitempty" json:"dateAssigned,omitempty"`
	Score        string    `bson:"score" json:"score"`
	Comment      string    `bson:"comment,omitempty" json:"comment,omitempty"`
	HarvestedAt  time.Time `bson:"harvested_at,omitempty" json:"harvestedAt,omitempty"`
}
