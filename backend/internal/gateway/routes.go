package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/stedman/grade-fetch/backend/internal/gateway/handlers"
	"github.com/stedman/grade-fetch/backend/internal/gateway/util"
	"github.com/stedman/grade-fetch/backend/internal/observability"
	"github.com/stedman/grade-fetch/backend/internal/shared"
)

// Dependencies are the collaborators the router hands to its handlers.
type Dependencies struct {
	Grades         handlers.GradeQuerier
	Metrics        *observability.Metrics
	CORS           shared.CORSConfig
	RequestTimeout time.Duration
}

// SetupRoutes configures the Chi router, middleware, and route handlers.
func SetupRoutes(deps Dependencies) *chi.Mux {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = shared.DefaultRequestTimeout
	}

	r := chi.NewRouter()

	// 1. Global Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORS.AllowedOrigins,
		AllowedMethods:   deps.CORS.AllowedMethods,
		AllowedHeaders:   deps.CORS.AllowedHeaders,
		AllowCredentials: deps.CORS.AllowCredentials,
		MaxAge:           deps.CORS.MaxAge,
	}))

	// 2. Initialize Handlers
	studentHandler := &handlers.StudentHandler{Grades: deps.Grades}
	gradeHandler := &handlers.GradeHandler{Grades: deps.Grades, Metrics: deps.Metrics}

	route := func(name string, fn http.HandlerFunc) http.Handler {
		return deps.Metrics.WrapHandler(name, fn)
	}

	// 3. Define Routes
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": "ok"})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/api/students", func(r chi.Router) {
		r.Method(http.MethodGet, "/", route("students", studentHandler.ListStudents))

		r.Route("/{id}", func(r chi.Router) {
			r.Method(http.MethodGet, "/", route("student", studentHandler.GetStudent))
			r.Method(http.MethodGet, "/period", route("period", gradeHandler.GetPeriod))
			r.Method(http.MethodGet, "/classwork", route("classwork", gradeHandler.GetClasswork))
			r.Method(http.MethodGet, "/grades/average", route("grade_average", gradeHandler.GetGradeAverages))
			r.Method(http.MethodGet, "/alerts", route("alerts", gradeHandler.GetAlerts))
		})
	})

	return r
}
