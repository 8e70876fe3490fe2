package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stedman/grade-fetch/backend/internal/catalog"
	"github.com/stedman/grade-fetch/backend/internal/shared"
)

// Fixture file names inside a fixtures directory.
const (
	StudentsFile  = "students.json"
	CoursesFile   = "courses.json"
	ClassworkFile = "classwork.json"
)

// Fixtures is a complete harvested data set: roster, catalog and classwork.
type Fixtures struct {
	Students  []shared.Student           `json:"students"`
	Courses   []shared.CourseDocument    `json:"courses"`
	Classwork []shared.ClassworkDocument `json:"classwork"`
}

// LoadFixtures reads the three fixture files from dir.
func LoadFixtures(dir string) (*Fixtures, error) {
	f := &Fixtures{}
	if err := readJSON(filepath.Join(dir, StudentsFile), &f.Students); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, CoursesFile), &f.Courses); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, ClassworkFile), &f.Classwork); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("fixtures %s: %w", dir, err)
	}
	return f, nil
}

// Validate rejects duplicate ids and classwork for students not on the roster.
func (f *Fixtures) Validate() error {
	students := make(map[string]bool, len(f.Students))
	for _, s := range f.Students {
		if s.ID == "" {
			return fmt.Errorf("student without id")
		}
		if students[s.ID] {
			return fmt.Errorf("duplicate student %s", s.ID)
		}
		students[s.ID] = true
	}

	courses := make(map[string]bool, len(f.Courses))
	for _, c := range f.Courses {
		if courses[c.ID] {
			return fmt.Errorf("duplicate course %s", c.ID)
		}
		courses[c.ID] = true
	}

	for i, cw := range f.Classwork {
		if !students[cw.StudentID] {
			return fmt.Errorf("classwork %d: unknown student %q", i, cw.StudentID)
		}
	}
	return nil
}

// Catalog builds the course catalog from the fixture courses.
func (f *Fixtures) Catalog() *catalog.Catalog {
	return catalogFromDocuments(f.Courses)
}

func catalogFromDocuments(docs []shared.CourseDocument) *catalog.Catalog {
	courses := make([]catalog.Course, 0, len(docs))
	for _, d := range docs {
		courses = append(courses, catalog.Course{ID: d.ID, Name: d.Name, Categories: d.Categories})
	}
	return catalog.New(courses...)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
