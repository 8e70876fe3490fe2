package store

import (
	"context"
	"fmt"

	"github.com/stedman/grade-fetch/backend/internal/classwork"
	"github.com/stedman/grade-fetch/backend/internal/grade"
	"github.com/stedman/grade-fetch/backend/internal/shared"
)

// MemorySource serves a fixture bundle from memory. It is read-only after
// construction and safe for concurrent use.
type MemorySource struct {
	students  map[string]shared.Student
	order     []string
	classwork map[string][]classwork.Raw
}

var _ grade.Source = (*MemorySource)(nil)

// NewMemorySource indexes f by student id. Classwork keeps its file order.
func NewMemorySource(f *Fixtures) *MemorySource {
	m := &MemorySource{
		students:  make(map[string]shared.Student, len(f.Students)),
		classwork: make(map[string][]classwork.Raw),
	}
	for _, s := range f.Students {
		m.students[s.ID] = s
		m.order = append(m.order, s.ID)
	}
	for _, doc := range f.Classwork {
		m.classwork[doc.StudentID] = append(m.classwork[doc.StudentID], toRaw(doc))
	}
	return m
}

func (m *MemorySource) Students(ctx context.Context) ([]shared.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	students := make([]shared.Student, 0, len(m.order))
	for _, id := range m.order {
		students = append(students, m.students[id])
	}
	return students, nil
}

func (m *MemorySource) Student(ctx context.Context, studentID string) (shared.Student, error) {
	if err := ctx.Err(); err != nil {
		return shared.Student{}, err
	}
	s, ok := m.students[studentID]
	if !ok {
		return shared.Student{}, fmt.Errorf("%w: %s", grade.ErrStudentNotFound, studentID)
	}
	return s, nil
}

// Classwork returns a copy so callers cannot mutate the stored rows.
func (m *MemorySource) Classwork(ctx context.Context, studentID string) ([]classwork.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := m.students[studentID]; !ok {
		return nil, fmt.Errorf("%w: %s", grade.ErrStudentNotFound, studentID)
	}
	return append([]classwork.Raw(nil), m.classwork[studentID]...), nil
}

func toRaw(doc shared.ClassworkDocument) classwork.Raw {
	return classwork.Raw{
		Course:       doc.Course,
		Assignment:   doc.Assignment,
		Category:     doc.Category,
		DateDue:      doc.DateDue,
		DateAssigned: doc.DateAssigned,
		Score:        doc.Score,
		Comment:      doc.Comment,
	}
}
