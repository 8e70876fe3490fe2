package tests

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/test/bufconn"

	"github.com/stedman/grade-fetch/backend/internal/gateway"
	"github.com/stedman/grade-fetch/backend/internal/grade"
	"github.com/stedman/grade-fetch/backend/internal/observability"
	"github.com/stedman/grade-fetch/backend/internal/period"
	"github.com/stedman/grade-fetch/backend/internal/shared"
	"github.com/stedman/grade-fetch/backend/internal/store"
)

const (
	bufSize      = 1024 * 1024
	fixturesDir  = "../../../../data/fixtures"
	calendarFile = "../../../../config/grading_periods.yaml"
)

// TestEnv holds all the running components for the test
type TestEnv struct {
	Router  http.Handler
	Service *grade.GradeService
	Metrics *observability.Metrics
}

// setupGatewayTestEnv wires the gateway to the sample fixtures in memory.
// "Today" is pinned to 12/01/2019, inside six-week run 3 of school year 2020.
func setupGatewayTestEnv(t *testing.T) *TestEnv {
	return setupGatewayTestEnvWith(t, nil)
}

// setupGatewayTestEnvWith lets a test edit the fixtures before they are served.
func setupGatewayTestEnvWith(t *testing.T, edit func(*store.Fixtures)) *TestEnv {
	t.Helper()

	fixtures, err := store.LoadFixtures(fixturesDir)
	if err != nil {
		t.Fatalf("Failed to load fixtures: %v", err)
	}
	if edit != nil {
		edit(fixtures)
	}
	cal, err := period.LoadCalendar(calendarFile, nil)
	if err != nil {
		t.Fatalf("Failed to load calendar: %v", err)
	}

	svc := grade.NewGradeService(store.NewMemorySource(fixtures), fixtures.Catalog(), cal, grade.Options{
		Now: func() time.Time { return time.Date(2019, time.December, 1, 9, 0, 0, 0, cal.Location()) },
	})
	metrics := observability.NewMetrics()

	router := gateway.SetupRoutes(gateway.Dependencies{
		Grades:  svc,
		Metrics: metrics,
		CORS: shared.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		},
	})

	return &TestEnv{Router: router, Service: svc, Metrics: metrics}
}

// get performs a GET against the router and decodes the JSON envelope.
func (env *TestEnv) get(t *testing.T, path string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	env.Router.ServeHTTP(rr, req)

	var body map[string]interface{}
	if rr.Body.Len() > 0 && rr.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("Invalid JSON from %s: %v\n%s", path, err, rr.Body.String())
		}
	}
	return rr.Code, body
}

// startHealthServer serves the gRPC health server over an in-memory listener.
func startHealthServer(t *testing.T) (*grpc.ClientConn, *health.Server) {
	t.Helper()

	lis := bufconn.Listen(bufSize)
	grpcServer, healthServer := gateway.NewHealthServer()
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough://bufnet",
		grpc.WithContextDialer(func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("Failed to dial bufnet: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn, healthServer
}
