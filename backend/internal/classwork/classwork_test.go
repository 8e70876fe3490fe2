package classwork

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stedman/grade-fetch/backend/internal/catalog"
)

var cst = time.FixedZone("CST", -6*60*60)

func testNormalizer() *Normalizer {
	c := catalog.New(catalog.Course{
		ID:         "0123 - 1",
		Name:       "Reading",
		Categories: map[string]float64{"Assessment": 0.5, "Daily": 0.5},
	})
	return NewNormalizer(c, cst)
}

func rawRow(score, comment string) Raw {
	return Raw{
		Course:     "0123 - 1 Reading",
		Assignment: "Short Story",
		Category:   "Assessment",
		DateDue:    "12/19/2019",
		Score:      score,
		Comment:    comment,
	}
}

func TestCourseID(t *testing.T) {
	tests := map[string]string{
		"0123 - 1 Reading":     "0123 - 1",
		"4567 - 12 Math":       "4567 - 12",
		"0123 - 1":             "0123 - 1",
		"  ":                   "",
		"9999 - 3    Science  ": "9999 - 3",
	}
	for in, want := range tests {
		if got := CourseID(in); got != want {
			t.Errorf("CourseID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	n := testNormalizer()

	t.Run("Numeric score", func(t *testing.T) {
		item, err := n.Normalize(rawRow("95", ""))
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if item.CourseID != "0123 - 1" || item.Category != "Assessment" {
			t.Errorf("Unexpected identity: %+v", item)
		}
		if item.Score == nil || *item.Score != 95 {
			t.Errorf("Expected score 95, got %v", item.Score)
		}
		if item.CategoryWeight != 0.5 {
			t.Errorf("Expected weight 0.5, got %v", item.CategoryWeight)
		}
		if item.DueAt.UnixMilli() != 1576735200000 {
			t.Errorf("Unexpected due date: %d", item.DueAt.UnixMilli())
		}
	})

	t.Run("Ungraded", func(t *testing.T) {
		item, err := n.Normalize(rawRow("", ""))
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if item.Graded() {
			t.Errorf("Expected ungraded, got %v", *item.Score)
		}
	})

	t.Run("Missing work", func(t *testing.T) {
		item, err := n.Normalize(rawRow("M", " Turn it in "))
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if item.Score == nil || *item.Score != 0 {
			t.Errorf("Expected score 0, got %v", item.Score)
		}
		if !strings.HasPrefix(item.Comment, "[missing work]") {
			t.Errorf("Expected missing-work comment, got %q", item.Comment)
		}
		if item.Comment != "[missing work]  Turn it in" {
			t.Errorf("Unexpected comment %q", item.Comment)
		}
	})

	t.Run("Missing work without comment is trimmed", func(t *testing.T) {
		item, err := n.Normalize(rawRow("M", ""))
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if item.Comment != "[missing work]" {
			t.Errorf("Unexpected comment %q", item.Comment)
		}
	})

	t.Run("Comment is trimmed", func(t *testing.T) {
		item, err := n.Normalize(rawRow("75", "  Late Work \n"))
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if item.Comment != "Late Work" {
			t.Errorf("Unexpected comment %q", item.Comment)
		}
	})

	t.Run("Invalid score", func(t *testing.T) {
		for _, score := range []string{"A+", "NaN", "Inf", "9 5"} {
			_, err := n.Normalize(rawRow(score, ""))
			if !errors.Is(err, ErrInvalidScore) {
				t.Errorf("Score %q: expected ErrInvalidScore, got %v", score, err)
			}
		}
	})

	t.Run("Invalid date", func(t *testing.T) {
		row := rawRow("90", "")
		row.DateDue = "soon"
		_, err := n.Normalize(row)
		if !errors.Is(err, ErrInvalidDate) {
			t.Errorf("Expected ErrInvalidDate, got %v", err)
		}
		var re *RecordError
		if !errors.As(err, &re) || re.Field != "dateDue" {
			t.Errorf("Expected *RecordError on dateDue, got %v", err)
		}
	})

	t.Run("Category not in catalog", func(t *testing.T) {
		row := rawRow("90", "")
		row.Category = "Homework"
		_, err := n.Normalize(row)
		if !errors.Is(err, ErrCategoryNotInCatalog) || !errors.Is(err, ErrCatalogMismatch) {
			t.Errorf("Expected category mismatch, got %v", err)
		}
	})

	t.Run("Course not in catalog", func(t *testing.T) {
		row := rawRow("90", "")
		row.Course = "7777 - 1 Art"
		_, err := n.Normalize(row)
		if !errors.Is(err, ErrCourseNotFound) || !errors.Is(err, ErrCatalogMismatch) {
			t.Errorf("Expected course mismatch, got %v", err)
		}
	})

	t.Run("Mismatch wins over bad date", func(t *testing.T) {
		row := rawRow("90", "")
		row.Category = "Homework"
		row.DateDue = "soon"
		if _, err := n.Normalize(row); !errors.Is(err, ErrCatalogMismatch) {
			t.Errorf("Expected catalog mismatch, got %v", err)
		}
	})
}

func TestNormalizeAll(t *testing.T) {
	n := testNormalizer()

	t.Run("All good records", func(t *testing.T) {
		batch, err := n.NormalizeAll([]Raw{rawRow("95", ""), rawRow("", ""), rawRow("M", "")})
		if err != nil {
			t.Fatalf("NormalizeAll failed: %v", err)
		}
		if len(batch.Items) != 3 || len(batch.Skipped) != 0 {
			t.Errorf("Expected 3 items and no skips, got %d/%d", len(batch.Items), len(batch.Skipped))
		}
	})

	t.Run("One bad record is skipped", func(t *testing.T) {
		bad := rawRow("ninety", "")
		batch, err := n.NormalizeAll([]Raw{rawRow("95", ""), bad, rawRow("80", "")})
		if err != nil {
			t.Fatalf("NormalizeAll failed: %v", err)
		}
		if len(batch.Items) != 2 {
			t.Errorf("Expected 2 items, got %d", len(batch.Items))
		}
		if len(batch.Skipped) != 1 || batch.Skipped[0].Index != 1 {
			t.Fatalf("Expected record 1 skipped, got %+v", batch.Skipped)
		}
		if !errors.Is(batch.Skipped[0].Err, ErrInvalidScore) || batch.Skipped[0].Reason() == "" {
			t.Errorf("Unexpected skip cause: %v", batch.Skipped[0].Err)
		}
	})

	t.Run("Catalog mismatch aborts", func(t *testing.T) {
		bad := rawRow("95", "")
		bad.Category = "Homework"
		batch, err := n.NormalizeAll([]Raw{rawRow("95", ""), bad})
		if !errors.Is(err, ErrCategoryNotInCatalog) {
			t.Fatalf("Expected ErrCategoryNotInCatalog, got %v", err)
		}
		if len(batch.Items) != 0 {
			t.Errorf("Expected empty batch on abort, got %d items", len(batch.Items))
		}
	})

	t.Run("Empty input", func(t *testing.T) {
		batch, err := n.NormalizeAll(nil)
		if err != nil || len(batch.Items) != 0 {
			t.Errorf("Expected empty batch, got %+v (err %v)", batch, err)
		}
	})
}
