package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/stedman/grade-fetch/backend/internal/gateway/util"
	"github.com/stedman/grade-fetch/backend/internal/observability"
)

// GradeHandler serves period-scoped classwork, averages and alerts.
type GradeHandler struct {
	Grades  GradeQuerier
	Metrics *observability.Metrics
}

// GetPeriod handles GET /api/students/{id}/period
func (h *GradeHandler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	pq, ok := h.periodQuery(w, r)
	if !ok {
		return
	}

	report, err := h.Grades.ResolvePeriod(r.Context(), chi.URLParam(r, "id"), pq.Selector, pq.SchoolYear)
	if err != nil {
		h.fail(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, report)
}

// GetClasswork handles GET /api/students/{id}/classwork
func (h *GradeHandler) GetClasswork(w http.ResponseWriter, r *http.Request) {
	pq, ok := h.periodQuery(w, r)
	if !ok {
		return
	}

	report, err := h.Grades.GetClasswork(r.Context(), chi.URLParam(r, "id"), pq.Selector, pq.SchoolYear)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.Metrics.SkippedRecords(len(report.Skipped))
	util.WriteJSON(w, http.StatusOK, report)
}

// GetGradeAverages handles GET /api/students/{id}/grades/average
func (h *GradeHandler) GetGradeAverages(w http.ResponseWriter, r *http.Request) {
	pq, ok := h.periodQuery(w, r)
	if !ok {
		return
	}

	report, err := h.Grades.GetGradeAverages(r.Context(), chi.URLParam(r, "id"), pq.Selector, pq.SchoolYear)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.Metrics.SkippedRecords(len(report.Skipped))
	util.WriteJSON(w, http.StatusOK, report)
}

// GetAlerts handles GET /api/students/{id}/alerts
// Query Params: threshold (optional, defaults to the configured low score)
func (h *GradeHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	pq, ok := h.periodQuery(w, r)
	if !ok {
		return
	}
	threshold, err := ParseThreshold(r)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.Grades.GetAlerts(r.Context(), chi.URLParam(r, "id"), pq.Selector, pq.SchoolYear, threshold)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.Metrics.SkippedRecords(len(report.Skipped))
	h.Metrics.AlertsReported(len(report.Alerts))
	util.WriteJSON(w, http.StatusOK, report)
}

func (h *GradeHandler) periodQuery(w http.ResponseWriter, r *http.Request) (PeriodQuery, bool) {
	pq, err := ParsePeriodQuery(r, h.Grades.Location())
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return PeriodQuery{}, false
	}
	return pq, true
}

func (h *GradeHandler) fail(w http.ResponseWriter, err error) {
	if status.Code(err) == codes.FailedPrecondition {
		h.Metrics.CatalogMismatch()
	}
	util.HandleGRPCError(w, err)
}
