// ============================================================================
// backend/internal/grade/aggregator.go
// Weighted course averages with compensation for empty categories
// ============================================================================

package grade

import (
	"fmt"
	"math"
	"sort"

	"github.com/stedman/grade-fetch/backend/internal/catalog"
	"github.com/stedman/grade-fetch/backend/internal/classwork"
	"github.com/stedman/grade-fetch/backend/internal/period"
)

// CourseAverage is one course's weighted average within a grading period.
type CourseAverage struct {
	CourseID                string             `json:"courseId"`
	CourseName              string             `json:"courseName"`
	Average                 float64            `json:"average"`
	CategoryAverage         map[string]float64 `json:"categoryAverage"`
	CategoryWeightsUsed     map[string]float64 `json:"categoryWeight"`
	WeightedScoreByCategory map[string]float64 `json:"weightedScore"`
	WeightAdjustment        float64            `json:"weightAdjustment"`
}

// FormatPercent renders a percentage with two decimals, e.g. "85.00".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// InPeriod returns the items due within p. The whole-year period keeps everything.
func InPeriod(items []classwork.Normalized, p period.GradingPeriod) []classwork.Normalized {
	if p.IsAllYear() {
		return append([]classwork.Normalized(nil), items...)
	}
	inPeriod := make([]classwork.Normalized, 0, len(items))
	for _, item := range items {
		if p.Contains(item.DueAt) {
			inPeriod = append(inPeriod, item)
		}
	}
	return inPeriod
}

// categoryTally accumulates one category's scores. Values are rebuilt, not mutated.
type categoryTally struct {
	sum    float64
	count  int
	weight float64
}

func (t categoryTally) add(score, weight float64) categoryTally {
	return categoryTally{sum: t.sum + score, count: t.count + 1, weight: weight}
}

func (t categoryTally) mean() float64 {
	return t.sum / float64(t.count)
}

// Averages computes the per-course weighted average of graded work in p.
// Categories without graded work are left out of both the weighted sum and
// the weight adjustment, which rescales the present categories to 100%.
// Courses without any graded work are omitted.
func Averages(items []classwork.Normalized, p period.GradingPeriod, c *catalog.Catalog) map[string]CourseAverage {
	tallies := make(map[string]map[string]categoryTally)
	for _, item := range InPeriod(items, p) {
		if !item.Graded() {
			continue
		}
		byCategory, ok := tallies[item.CourseID]
		if !ok {
			byCategory = make(map[string]categoryTally)
			tallies[item.CourseID] = byCategory
		}
		byCategory[item.Category] = byCategory[item.Category].add(*item.Score, item.CategoryWeight)
	}

	averages := make(map[string]CourseAverage, len(tallies))
	for courseID, byCategory := range tallies {
		averages[courseID] = courseAverage(courseID, c.Name(courseID), byCategory)
	}
	return averages
}

func courseAverage(courseID, courseName string, byCategory map[string]categoryTally) CourseAverage {
	categories := make([]string, 0, len(byCategory))
	for name := range byCategory {
		categories = append(categories, name)
	}
	// Fixed summation order keeps repeated calls bit-identical.
	sort.Strings(categories)

	avg := CourseAverage{
		CourseID:                courseID,
		CourseName:              courseName,
		CategoryAverage:         make(map[string]float64, len(categories)),
		CategoryWeightsUsed:     make(map[string]float64, len(categories)),
		WeightedScoreByCategory: make(map[string]float64, len(categories)),
	}

	var weightedSum, weightAdjustment float64
	for _, name := range categories {
		tally := byCategory[name]
		mean := tally.mean()
		weighted := tally.weight * mean

		avg.CategoryAverage[name] = mean
		avg.CategoryWeightsUsed[name] = tally.weight
		avg.WeightedScoreByCategory[name] = weighted

		weightedSum += weighted
		weightAdjustment += tally.weight
	}

	if weightAdjustment == 0 {
		weightAdjustment = 1
	}

	avg.WeightAdjustment = weightAdjustment
	avg.Average = round2(weightedSum / weightAdjustment)
	return avg
}

// SortedCourseIDs returns the keys of an averages map in ascending order.
func SortedCourseIDs(averages map[string]CourseAverage) []string {
	ids := make([]string, 0, len(averages))
	for id := range averages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
