package grade

import (
	"sort"

	"github.com/stedman/grade-fetch/backend/internal/catalog"
	"github.com/stedman/grade-fetch/backend/internal/classwork"
	"github.com/stedman/grade-fetch/backend/internal/period"
)

// DefaultLowScore is the score below which graded work raises an alert.
const DefaultLowScore = 70.0

// Alert is graded in-period work that carries a teacher comment or a low score.
type Alert struct {
	Date       string  `json:"date"`
	CourseID   string  `json:"courseId"`
	Course     string  `json:"course"`
	Assignment string  `json:"assignment"`
	Score      float64 `json:"score"`
	Comment    string  `json:"comment"`
}

// Alerts lists graded work in p with a non-empty comment or a score below
// lowScore, ordered by due date. Ungraded work never alerts.
func Alerts(items []classwork.Normalized, p period.GradingPeriod, lowScore float64, c *catalog.Catalog) []Alert {
	inPeriod := InPeriod(items, p)
	sort.SliceStable(inPeriod, func(i, j int) bool {
		return inPeriod[i].DueAt.Before(inPeriod[j].DueAt)
	})

	alerts := make([]Alert, 0)
	for _, item := range inPeriod {
		if !item.Graded() {
			continue
		}
		if item.Comment == "" && *item.Score >= lowScore {
			continue
		}
		alerts = append(alerts, Alert{
			Date:       item.DateDue,
			CourseID:   item.CourseID,
			Course:     c.Name(item.CourseID),
			Assignment: item.Assignment,
			Score:      *item.Score,
			Comment:    item.Comment,
		})
	}
	return alerts
}
