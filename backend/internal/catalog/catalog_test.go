package catalog

import (
	"errors"
	"testing"
)

func TestCatalogLookup(t *testing.T) {
	weights := map[string]float64{"Assessment": 0.5, "Daily": 0.5}
	c := New(Course{ID: "0123 - 1", Name: "Reading", Categories: weights})

	// Mutating the caller's map must not leak into the snapshot.
	weights["Daily"] = 0.9

	t.Run("Known course", func(t *testing.T) {
		course, err := c.Lookup("0123 - 1")
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if course.Name != "Reading" {
			t.Errorf("Expected name Reading, got %q", course.Name)
		}
		if course.Categories["Daily"] != 0.5 {
			t.Errorf("Expected Daily weight 0.5, got %v", course.Categories["Daily"])
		}
	})

	t.Run("Unknown course", func(t *testing.T) {
		_, err := c.Lookup("9999 - 1")
		if !errors.Is(err, ErrCourseNotFound) {
			t.Errorf("Expected ErrCourseNotFound, got %v", err)
		}
	})

	t.Run("Weight", func(t *testing.T) {
		w, err := c.Weight("0123 - 1", "Assessment")
		if err != nil || w != 0.5 {
			t.Errorf("Expected 0.5, got %v (err %v)", w, err)
		}
		if _, err := c.Weight("0123 - 1", "Homework"); !errors.Is(err, ErrCategoryNotInCatalog) {
			t.Errorf("Expected ErrCategoryNotInCatalog, got %v", err)
		}
		if _, err := c.Weight("9999 - 1", "Daily"); !errors.Is(err, ErrCourseNotFound) {
			t.Errorf("Expected ErrCourseNotFound, got %v", err)
		}
	})
}

func TestCatalogIDs(t *testing.T) {
	c := New(
		Course{ID: "4567 - 1", Name: "Math"},
		Course{ID: "0123 - 1", Name: "Reading"},
	)
	ids := c.IDs()
	if len(ids) != 2 || ids[0] != "0123 - 1" || ids[1] != "4567 - 1" {
		t.Errorf("Unexpected ids: %v", ids)
	}
	if c.Len() != 2 {
		t.Errorf("Expected 2 courses, got %d", c.Len())
	}
	if c.Name("4567 - 1") != "Math" || c.Name("nope") != "" {
		t.Error("Name lookup mismatch")
	}
}
