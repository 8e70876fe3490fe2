package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stedman/grade-fetch/backend/internal/gateway/util"
	"github.com/stedman/grade-fetch/backend/internal/grade"
	"github.com/stedman/grade-fetch/backend/internal/period"
	"github.com/stedman/grade-fetch/backend/internal/shared"
)

// GradeQuerier is the part of grade.GradeService the handlers call.
type GradeQuerier interface {
	ListStudents(ctx context.Context) ([]shared.Student, error)
	GetStudent(ctx context.Context, studentID string) (shared.Student, error)
	ResolvePeriod(ctx context.Context, studentID string, sel period.Selector, schoolYear string) (grade.PeriodReport, error)
	GetClasswork(ctx context.Context, studentID string, sel period.Selector, schoolYear string) (grade.ClassworkReport, error)
	GetGradeAverages(ctx context.Context, studentID string, sel period.Selector, schoolYear string) (grade.AveragesReport, error)
	GetAlerts(ctx context.Context, studentID string, sel period.Selector, schoolYear string, threshold *float64) (grade.AlertsReport, error)
	Location() *time.Location
}

var _ GradeQuerier = (*grade.GradeService)(nil)

// StudentHandler serves the student roster.
type StudentHandler struct {
	Grades GradeQuerier
}

// StudentView is a roster entry with a link to its own resource.
type StudentView struct {
	shared.Student
	StudentURL string `json:"studentUrl"`
}

func newStudentView(s shared.Student) StudentView {
	return StudentView{Student: s, StudentURL: "/api/students/" + s.ID}
}

// ListStudents handles GET /api/students
func (h *StudentHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Grades.ListStudents(r.Context())
	if err != nil {
		util.HandleGRPCError(w, err)
		return
	}

	views := make([]StudentView, 0, len(students))
	for _, s := range students {
		views = append(views, newStudentView(s))
	}
	util.WriteJSON(w, http.StatusOK, views)
}

// GetStudent handles GET /api/students/{id}
func (h *StudentHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	student, err := h.Grades.GetStudent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		util.HandleGRPCError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, newStudentView(student))
}
