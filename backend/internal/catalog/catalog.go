// ============================================================================
// backend/internal/catalog/catalog.go
// Read-only course catalog: course names and category weights
// ============================================================================

package catalog

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrCourseNotFound is returned when a course id has no catalog entry.
	ErrCourseNotFound = errors.New("course not found in catalog")

	// ErrCategoryNotInCatalog is returned when a course has no weight for a category.
	ErrCategoryNotInCatalog = errors.New("category not in catalog")
)

// Course is a catalog entry. Categories maps a category name to its weight (0-1).
// Weights are expected, but not guaranteed, to sum to 1.
type Course struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Categories map[string]float64 `json:"categories"`
}

// Catalog is an immutable snapshot of courses keyed by id.
// It is safe for concurrent use once built.
type Catalog struct {
	courses map[string]Course
}

// New builds a catalog from the given courses. Later duplicates replace earlier ones.
func New(courses ...Course) *Catalog {
	c := &Catalog{courses: make(map[string]Course, len(courses))}
	for _, course := range courses {
		categories := make(map[string]float64, len(course.Categories))
		for name, weight := range course.Categories {
			categories[name] = weight
		}
		course.Categories = categories
		c.courses[course.ID] = course
	}
	return c
}

// Lookup returns the course for id.
func (c *Catalog) Lookup(id string) (Course, error) {
	if c == nil {
		return Course{}, fmt.Errorf("%w: %q", ErrCourseNotFound, id)
	}
	course, ok := c.courses[id]
	if !ok {
		return Course{}, fmt.Errorf("%w: %q", ErrCourseNotFound, id)
	}
	return course, nil
}

// Weight returns the weight of category within course courseID.
func (c *Catalog) Weight(courseID, category string) (float64, error) {
	course, err := c.Lookup(courseID)
	if err != nil {
		return 0, err
	}
	weight, ok := course.Categories[category]
	if !ok {
		return 0, fmt.Errorf("%w: course %q has no category %q", ErrCategoryNotInCatalog, courseID, category)
	}
	return weight, nil
}

// Name returns the display name for a course, or an empty string when unknown.
func (c *Catalog) Name(courseID string) string {
	course, err := c.Lookup(courseID)
	if err != nil {
		return ""
	}
	return course.Name
}

// IDs returns all course ids in ascending order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.courses))
	for id := range c.courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len reports the number of courses.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.courses)
}
